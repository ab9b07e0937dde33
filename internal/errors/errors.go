package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeClientInit indicates the identity client could not be constructed.
	ErrCodeClientInit ErrorCode = "client_init"
	// ErrCodeCallbackResolution indicates a malformed or expired redirect callback.
	ErrCodeCallbackResolution ErrorCode = "callback_resolution"
	// ErrCodeInteractionRequired indicates silent token renewal is impossible
	// and the user must authenticate interactively.
	ErrCodeInteractionRequired ErrorCode = "interaction_required"
	// ErrCodeUserCancelled indicates the user explicitly cancelled an interactive flow.
	ErrCodeUserCancelled ErrorCode = "user_cancelled"
	// ErrCodePopupFailed indicates a popup attempt failed for a reason other
	// than explicit cancellation (blocked, closed by the platform, unsupported).
	ErrCodePopupFailed ErrorCode = "popup_failed"
	// ErrCodeInteractiveAuthFailed indicates both the popup attempt and the
	// redirect fallback failed.
	ErrCodeInteractiveAuthFailed ErrorCode = "interactive_auth_failed"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message,
// and optional cause. It supports error wrapping and unwrapping for use with
// errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// ClientInit creates a new ClientInit error.
func ClientInit(message string) *AppError {
	return &AppError{Code: ErrCodeClientInit, Message: message}
}

// CallbackResolution creates a new CallbackResolution error.
func CallbackResolution(message string) *AppError {
	return &AppError{Code: ErrCodeCallbackResolution, Message: message}
}

// InteractionRequired creates a new InteractionRequired error.
func InteractionRequired(message string) *AppError {
	return &AppError{Code: ErrCodeInteractionRequired, Message: message}
}

// UserCancelled creates a new UserCancelled error.
func UserCancelled(message string) *AppError {
	return &AppError{Code: ErrCodeUserCancelled, Message: message}
}

// PopupFailed creates a new PopupFailed error.
func PopupFailed(message string) *AppError {
	return &AppError{Code: ErrCodePopupFailed, Message: message}
}

// InteractiveAuthFailed creates a new InteractiveAuthFailed error.
func InteractiveAuthFailed(message string) *AppError {
	return &AppError{Code: ErrCodeInteractiveAuthFailed, Message: message}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsClientInit checks if an error is a ClientInit error.
func IsClientInit(err error) bool {
	return isCode(err, ErrCodeClientInit)
}

// IsCallbackResolution checks if an error is a CallbackResolution error.
func IsCallbackResolution(err error) bool {
	return isCode(err, ErrCodeCallbackResolution)
}

// IsInteractionRequired checks if an error is an InteractionRequired error.
func IsInteractionRequired(err error) bool {
	return isCode(err, ErrCodeInteractionRequired)
}

// IsUserCancelled checks if an error is a UserCancelled error.
func IsUserCancelled(err error) bool {
	return isCode(err, ErrCodeUserCancelled)
}

// IsPopupFailed checks if an error is a PopupFailed error.
func IsPopupFailed(err error) bool {
	return isCode(err, ErrCodePopupFailed)
}

// IsInteractiveAuthFailed checks if an error is an InteractiveAuthFailed error.
func IsInteractiveAuthFailed(err error) bool {
	return isCode(err, ErrCodeInteractiveAuthFailed)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool {
	return isCode(err, ErrCodeCanceled)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
