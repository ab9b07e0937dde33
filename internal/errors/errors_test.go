package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeInteractionRequired,
				Message: "silent renewal impossible",
			},
			want: "silent renewal impossible",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeClientInit,
				Message: "construct identity client",
				Cause:   errors.New("discovery unreachable"),
			},
			want: "construct identity client: discovery unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructorsAndPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		predicate func(error) bool
	}{
		{"ClientInit", ClientInit("m"), ErrCodeClientInit, IsClientInit},
		{"CallbackResolution", CallbackResolution("m"), ErrCodeCallbackResolution, IsCallbackResolution},
		{"InteractionRequired", InteractionRequired("m"), ErrCodeInteractionRequired, IsInteractionRequired},
		{"UserCancelled", UserCancelled("m"), ErrCodeUserCancelled, IsUserCancelled},
		{"PopupFailed", PopupFailed("m"), ErrCodePopupFailed, IsPopupFailed},
		{"InteractiveAuthFailed", InteractiveAuthFailed("m"), ErrCodeInteractiveAuthFailed, IsInteractiveAuthFailed},
		{"NotFound", NotFound("m"), ErrCodeNotFound, IsNotFound},
		{"Validation", Validation("m"), ErrCodeValidation, IsValidation},
		{"Internal", Internal("m"), ErrCodeInternal, IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("%s().Code = %v, want %v", tt.name, tt.err.Code, tt.code)
			}
			if !tt.predicate(tt.err) {
				t.Errorf("Is%s(%v) = false, want true", tt.name, tt.err)
			}
			if tt.predicate(errors.New("plain")) {
				t.Errorf("Is%s(plain error) = true, want false", tt.name)
			}
		})
	}
}

func TestPredicates_MatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", InteractionRequired("renew failed"))
	if !IsInteractionRequired(err) {
		t.Error("IsInteractionRequired should match through fmt.Errorf wrapping")
	}
	if IsUserCancelled(err) {
		t.Error("IsUserCancelled should not match an interaction-required error")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, ErrCodeInteractiveAuthFailed, "interactive login failed")
	if err.Code != ErrCodeInteractiveAuthFailed {
		t.Errorf("Wrap().Code = %v, want %v", err.Code, ErrCodeInteractiveAuthFailed)
	}
	if !errors.Is(err, cause) {
		t.Error("Wrap() should preserve the cause for errors.Is")
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(UserCancelled("m")); got != ErrCodeUserCancelled {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeUserCancelled)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %v, want empty", got)
	}
}
