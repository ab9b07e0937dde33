// Package mocks provides generated mock implementations for testing.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for port interfaces. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	notifier := mocks.NewMockNotifier(ctrl)
//	notifier.EXPECT().ShowSuccess(gomock.Any(), gomock.Any())
package mocks

// Generate mocks for the Notifier and AuthEventRecorder ports. Hand-written
// doubles for the larger IdentityClient surface live in mocks/identity.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=ports_mock.go github.com/helsevakt/vaksineportal/internal/ports Notifier,AuthEventRecorder
