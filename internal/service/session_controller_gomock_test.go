package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
	portmocks "github.com/helsevakt/vaksineportal/internal/mocks"
	mocks "github.com/helsevakt/vaksineportal/internal/mocks/identity"
	"github.com/helsevakt/vaksineportal/internal/ports"
)

// Lifecycle tests against the generated port mocks, pinning the exact
// notification and audit calls a full login/logout round trip makes.
func TestSessionController_LifecycleCalls(t *testing.T) {
	ctrl := gomock.NewController(t)

	client := &mocks.ScriptedClient{}
	client.LoginPopupFunc = func(context.Context, ports.LoginRequest) (*domainauth.Account, error) {
		return testAccount("u1"), nil
	}

	notifier := portmocks.NewMockNotifier(ctrl)
	audit := portmocks.NewMockAuthEventRecorder(ctrl)

	controller := NewSessionController(SessionControllerOptions{
		Factory:  &mocks.Factory{Client: client},
		Platform: mocks.StaticPolicy{},
		Notifier: notifier,
		Audit:    audit,
		Scopes:   []string{"openid", "profile"},
	})

	ctx := context.Background()
	_, err := controller.Initialize(ctx)
	require.NoError(t, err)

	notifier.EXPECT().ShowSuccess(gomock.Any(), "Innlogging vellykket!")
	audit.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev ports.AuthEvent) error {
			assert.Equal(t, ports.AuthEventLoginSuccess, ev.Kind)
			assert.Equal(t, "u1", ev.AccountID)
			return nil
		})

	account, err := controller.Login(ctx)
	require.NoError(t, err)
	require.NotNil(t, account)

	notifier.EXPECT().ShowSuccess(gomock.Any(), "Utlogging vellykket!")
	audit.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev ports.AuthEvent) error {
			assert.Equal(t, ports.AuthEventLogout, ev.Kind)
			return nil
		})

	require.NoError(t, controller.Logout(ctx))
	assert.Equal(t, domainauth.StateAnonymous, controller.State())
}
