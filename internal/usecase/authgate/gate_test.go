package authgate

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockBiometric is a mock implementation of BiometricAuthenticator for testing
type MockBiometric struct {
	mock.Mock
}

func (m *MockBiometric) Available() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockBiometric) Enrolled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockBiometric) Prompt(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func TestAuthorize_BiometricSuccessSkipsFallback(t *testing.T) {
	ctx := context.Background()
	biometric := new(MockBiometric)
	biometric.On("Available").Return(true)
	biometric.On("Enrolled").Return(true)
	biometric.On("Prompt", ctx).Return(true, nil)

	gate := NewGate(biometric, testr.New(t))

	authorized := 0
	fallbacks := 0
	err := gate.Authorize(ctx,
		func(context.Context) error { authorized++; return nil },
		func() { fallbacks++ },
	)

	assert.NoError(t, err)
	assert.Equal(t, 1, authorized)
	assert.Equal(t, 0, fallbacks)
	biometric.AssertExpectations(t)
}

func TestAuthorize_DeclinedPromptFallsBack(t *testing.T) {
	ctx := context.Background()
	biometric := new(MockBiometric)
	biometric.On("Available").Return(true)
	biometric.On("Enrolled").Return(true)
	biometric.On("Prompt", ctx).Return(false, nil)

	gate := NewGate(biometric, testr.New(t))

	authorized := 0
	fallbacks := 0
	err := gate.Authorize(ctx,
		func(context.Context) error { authorized++; return nil },
		func() { fallbacks++ },
	)

	assert.NoError(t, err)
	assert.Equal(t, 0, authorized)
	assert.Equal(t, 1, fallbacks)
}

func TestAuthorize_PlatformErrorFallsBackWithoutSurfacing(t *testing.T) {
	ctx := context.Background()
	biometric := new(MockBiometric)
	biometric.On("Available").Return(true)
	biometric.On("Enrolled").Return(true)
	biometric.On("Prompt", ctx).Return(false, errors.New("sensor unavailable"))

	gate := NewGate(biometric, testr.New(t))

	fallbacks := 0
	err := gate.Authorize(ctx,
		func(context.Context) error { t.Fatal("onAuthorized must not run"); return nil },
		func() { fallbacks++ },
	)

	// The platform error is logged and swallowed, never returned
	assert.NoError(t, err)
	assert.Equal(t, 1, fallbacks)
}

func TestAuthorize_UnsupportedDeviceSkipsPrompt(t *testing.T) {
	ctx := context.Background()
	biometric := new(MockBiometric)
	biometric.On("Available").Return(false)

	gate := NewGate(biometric, testr.New(t))

	fallbacks := 0
	err := gate.Authorize(ctx,
		func(context.Context) error { t.Fatal("onAuthorized must not run"); return nil },
		func() { fallbacks++ },
	)

	assert.NoError(t, err)
	assert.Equal(t, 1, fallbacks)
	biometric.AssertNotCalled(t, "Prompt", mock.Anything)
}

func TestAuthorize_NotEnrolledSkipsPrompt(t *testing.T) {
	ctx := context.Background()
	biometric := new(MockBiometric)
	biometric.On("Available").Return(true)
	biometric.On("Enrolled").Return(false)

	gate := NewGate(biometric, testr.New(t))

	fallbacks := 0
	err := gate.Authorize(ctx,
		func(context.Context) error { return nil },
		func() { fallbacks++ },
	)

	assert.NoError(t, err)
	assert.Equal(t, 1, fallbacks)
	biometric.AssertNotCalled(t, "Prompt", mock.Anything)
}

func TestAuthorize_OnAuthorizedErrorPropagates(t *testing.T) {
	ctx := context.Background()
	biometric := new(MockBiometric)
	biometric.On("Available").Return(true)
	biometric.On("Enrolled").Return(true)
	biometric.On("Prompt", ctx).Return(true, nil)

	gate := NewGate(biometric, testr.New(t))

	wantErr := errors.New("submit failed")
	err := gate.Authorize(ctx,
		func(context.Context) error { return wantErr },
		func() { t.Fatal("onFallback must not run") },
	)

	assert.ErrorIs(t, err, wantErr)
}
