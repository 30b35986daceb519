package pinpad

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockVerifier is a mock implementation of PINVerifier for testing
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	args := m.Called(ctx, pin)
	return args.Bool(0), args.Error(1)
}

// verifierFunc adapts a function to the PINVerifier interface
type verifierFunc func(ctx context.Context, pin string) (bool, error)

func (f verifierFunc) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	return f(ctx, pin)
}

func pressAll(t *testing.T, c *Challenge, digits ...int) State {
	t.Helper()
	var state State
	for _, d := range digits {
		var err error
		state, err = c.Press(context.Background(), d)
		require.NoError(t, err)
	}
	return state
}

func TestPress_FourthDigitTriggersExactlyOneVerification(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("VerifyPIN", mock.Anything, "1234").Return(true, nil)

	c := NewChallenge(verifier, testr.New(t))
	c.SetSuccessCloseDelay(time.Hour) // keep success state stable for assertions
	c.Open(func(context.Context) error { return nil }, nil)

	state := pressAll(t, c, 1, 2, 3, 4)
	assert.Equal(t, StateSuccess, state)

	// Rapid extra presses while already settled are ignored
	state = pressAll(t, c, 5, 6)
	assert.Equal(t, StateSuccess, state)

	verifier.AssertNumberOfCalls(t, "VerifyPIN", 1)
}

func TestPress_CollectingStates(t *testing.T) {
	verifier := new(MockVerifier)
	c := NewChallenge(verifier, testr.New(t))
	c.Open(func(context.Context) error { return nil }, nil)

	assert.Equal(t, StateIdle, c.State())

	state := pressAll(t, c, 0)
	assert.Equal(t, StateCollecting, state)
	assert.Equal(t, 1, c.EnteredDigits())

	state = pressAll(t, c, 0, 0)
	assert.Equal(t, StateCollecting, state)
	assert.Equal(t, 3, c.EnteredDigits())
}

func TestPress_InvalidPINClearsDigitsAndStaysOpen(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("VerifyPIN", mock.Anything, "9999").Return(false, nil)
	verifier.On("VerifyPIN", mock.Anything, "1234").Return(true, nil)

	c := NewChallenge(verifier, testr.New(t))
	c.SetSuccessCloseDelay(time.Hour)

	succeeded := 0
	failed := 0
	c.Open(
		func(context.Context) error { succeeded++; return nil },
		func() { failed++ },
	)

	state := pressAll(t, c, 9, 9, 9, 9)
	assert.Equal(t, StateError, state)
	assert.Equal(t, 0, c.EnteredDigits())
	assert.Equal(t, "Incorrect PIN. Try again.", c.ErrorText())
	assert.Equal(t, 1, failed)
	assert.Equal(t, 0, succeeded)

	// The challenge remains open for another attempt
	state = pressAll(t, c, 1, 2, 3, 4)
	assert.Equal(t, StateSuccess, state)
	assert.Equal(t, 1, succeeded)
}

func TestPress_VerifierErrorBecomesInlineError(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("VerifyPIN", mock.Anything, "1234").Return(false, errors.New("network down"))

	c := NewChallenge(verifier, testr.New(t))
	c.Open(func(context.Context) error { t.Fatal("success callback must not run"); return nil }, nil)

	state := pressAll(t, c, 1, 2, 3, 4)
	assert.Equal(t, StateError, state)
	assert.Equal(t, "Could not verify PIN. Try again.", c.ErrorText())
}

func TestBackspace_RemovesDigitAndClearsError(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("VerifyPIN", mock.Anything, "9999").Return(false, nil)

	c := NewChallenge(verifier, testr.New(t))
	c.Open(func(context.Context) error { return nil }, nil)

	pressAll(t, c, 9, 9, 9, 9)
	require.Equal(t, StateError, c.State())

	c.Backspace()
	assert.Equal(t, "", c.ErrorText())
	assert.Equal(t, StateIdle, c.State())

	pressAll(t, c, 1, 2)
	c.Backspace()
	assert.Equal(t, 1, c.EnteredDigits())
	assert.Equal(t, StateCollecting, c.State())
}

func TestOpen_ResetsStaleSessionState(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("VerifyPIN", mock.Anything, "9999").Return(false, nil)

	c := NewChallenge(verifier, testr.New(t))
	c.Open(func(context.Context) error { return nil }, nil)
	pressAll(t, c, 9, 9, 9, 9)
	require.Equal(t, StateError, c.State())
	require.NotEmpty(t, c.ErrorText())

	// Opening again must start from idle with no leaked error text
	c.Open(func(context.Context) error { return nil }, nil)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "", c.ErrorText())
	assert.Equal(t, 0, c.EnteredDigits())
}

func TestPress_SuccessAutoClosesAfterDelay(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("VerifyPIN", mock.Anything, "1234").Return(true, nil)

	c := NewChallenge(verifier, testr.New(t))
	c.SetSuccessCloseDelay(20 * time.Millisecond)

	invoked := 0
	c.Open(func(context.Context) error { invoked++; return nil }, nil)

	state := pressAll(t, c, 1, 2, 3, 4)
	assert.Equal(t, StateSuccess, state)
	assert.Equal(t, 1, invoked)

	assert.Eventually(t, func() bool {
		return c.State() == StateIdle
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, invoked)
}

func TestPress_BeforeOpenIsRejected(t *testing.T) {
	c := NewChallenge(new(MockVerifier), testr.New(t))
	_, err := c.Press(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestPress_OutOfRangeDigit(t *testing.T) {
	c := NewChallenge(new(MockVerifier), testr.New(t))
	c.Open(func(context.Context) error { return nil }, nil)
	_, err := c.Press(context.Background(), 12)
	assert.Error(t, err)
}

func TestClose_MidFlightVerificationIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	verifier := verifierFunc(func(ctx context.Context, pin string) (bool, error) {
		<-release
		return true, nil
	})

	c := NewChallenge(verifier, testr.New(t))
	c.Open(func(context.Context) error { t.Error("stale success callback must not run"); return nil }, nil)

	done := make(chan State, 1)
	go func() {
		state := pressAll(t, c, 1, 2, 3, 4)
		done <- state
	}()

	// Wait for the machine to lock into verifying, then close it
	require.Eventually(t, func() bool {
		return c.State() == StateVerifying
	}, 2*time.Second, 5*time.Millisecond)
	c.Close()
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("press did not return")
	}
	assert.Equal(t, StateIdle, c.State())
}

func TestForgotPIN_ClosesAndRoutesToResetFlow(t *testing.T) {
	c := NewChallenge(new(MockVerifier), testr.New(t))

	routed := 0
	c.SetForgotHandler(func() { routed++ })
	c.Open(func(context.Context) error { return nil }, nil)
	pressAll(t, c, 1, 2)

	c.ForgotPIN()
	assert.Equal(t, 1, routed)
	assert.Equal(t, 0, c.EnteredDigits())
	_, err := c.Press(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotOpen)
}
