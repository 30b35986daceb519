package pinpad

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/billpoint/billpoint-core/internal/domain"
)

// PINLength is the fixed number of digits in a transaction PIN
const PINLength = 4

const defaultSuccessCloseDelay = 600 * time.Millisecond

// State represents the state of the PIN challenge machine
type State string

const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting"
	StateVerifying  State = "verifying"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// ErrNotOpen is returned when digits are pressed before Open
var ErrNotOpen = errors.New("pin challenge is not open")

// Challenge is the numeric-code collection state machine:
// idle -> collecting -> verifying -> success | error -> idle.
// Verification is delegated to a remote check; while it is in flight
// the machine ignores further input so that a burst of digit presses
// can never trigger overlapping verification calls.
//
// Every Open starts a fresh session: digits, error text and the bound
// success callback from a previous session never leak into the next.
type Challenge struct {
	verifier          domain.PINVerifier
	log               logr.Logger
	successCloseDelay time.Duration

	mu        sync.Mutex
	open      bool
	session   uint64
	state     State
	digits    string
	errorText string
	onSuccess func(context.Context) error
	onFailure func()
	onForgot  func()
}

// NewChallenge creates a new Challenge instance
func NewChallenge(verifier domain.PINVerifier, log logr.Logger) *Challenge {
	return &Challenge{
		verifier:          verifier,
		log:               log,
		successCloseDelay: defaultSuccessCloseDelay,
		state:             StateIdle,
	}
}

// SetSuccessCloseDelay overrides the auto-close delay after a
// successful verification (used in tests)
func (c *Challenge) SetSuccessCloseDelay(d time.Duration) {
	c.successCloseDelay = d
}

// SetForgotHandler binds the escape hatch that routes to the separate
// PIN reset flow
func (c *Challenge) SetForgotHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onForgot = fn
}

// Open starts a fresh challenge session, rebinding the callbacks.
// Exactly one success callback is bound per session; it runs once on a
// valid PIN and never otherwise. onFailure may be nil.
func (c *Challenge) Open(onSuccess func(context.Context) error, onFailure func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session++
	c.open = true
	c.state = StateIdle
	c.digits = ""
	c.errorText = ""
	c.onSuccess = onSuccess
	c.onFailure = onFailure
}

// Close dismisses the challenge and invalidates the session, so a
// verification still in flight is discarded when it completes
func (c *Challenge) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// ForgotPIN closes the challenge and routes to the reset flow
func (c *Challenge) ForgotPIN() {
	c.mu.Lock()
	fn := c.onForgot
	c.reset()
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// reset clears all session state. Caller must hold mu.
func (c *Challenge) reset() {
	c.session++
	c.open = false
	c.state = StateIdle
	c.digits = ""
	c.errorText = ""
	c.onSuccess = nil
	c.onFailure = nil
}

// State returns the current machine state
func (c *Challenge) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EnteredDigits returns how many digits are currently entered
func (c *Challenge) EnteredDigits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.digits)
}

// ErrorText returns the inline error message for the current session
func (c *Challenge) ErrorText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorText
}

// Backspace removes the last entered digit and clears any prior
// error or success indicator
func (c *Challenge) Backspace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.state == StateVerifying || c.state == StateSuccess {
		return
	}
	c.errorText = ""
	if len(c.digits) == 0 {
		c.state = StateIdle
		return
	}
	c.digits = c.digits[:len(c.digits)-1]
	if len(c.digits) == 0 {
		c.state = StateIdle
	} else {
		c.state = StateCollecting
	}
}

// Press enters one digit (0-9). Reaching the fixed length transitions
// to verifying and performs exactly one remote check; input is ignored
// while a check is in flight or after success. The returned state is
// the state after the press (and after verification, when triggered).
func (c *Challenge) Press(ctx context.Context, digit int) (State, error) {
	if digit < 0 || digit > 9 {
		return c.State(), errors.New("digit must be between 0 and 9")
	}

	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return StateIdle, ErrNotOpen
	}
	// Number pad is locked during verification and after success
	if c.state == StateVerifying || c.state == StateSuccess {
		state := c.state
		c.mu.Unlock()
		return state, nil
	}

	c.errorText = ""
	c.digits += string(rune('0' + digit))
	if len(c.digits) < PINLength {
		c.state = StateCollecting
		state := c.state
		c.mu.Unlock()
		return state, nil
	}

	// Length reached: gate further input before releasing the lock so
	// rapid presses cannot start a second verification.
	c.state = StateVerifying
	pin := c.digits
	session := c.session
	c.mu.Unlock()

	valid, err := c.verifier.VerifyPIN(ctx, pin)
	return c.settle(ctx, session, valid, err), nil
}

// settle applies the verification result, unless the session changed
// while the remote check was in flight
func (c *Challenge) settle(ctx context.Context, session uint64, valid bool, err error) State {
	c.mu.Lock()
	if c.session != session {
		// Challenge was closed or reopened mid-flight; discard.
		state := c.state
		c.mu.Unlock()
		return state
	}

	if err != nil || !valid {
		if err != nil {
			c.log.Error(err, "pin verification call failed")
			c.errorText = "Could not verify PIN. Try again."
		} else {
			c.errorText = "Incorrect PIN. Try again."
		}
		c.state = StateError
		c.digits = ""
		onFailure := c.onFailure
		c.mu.Unlock()
		if onFailure != nil {
			onFailure()
		}
		return StateError
	}

	c.state = StateSuccess
	onSuccess := c.onSuccess
	c.onSuccess = nil
	c.mu.Unlock()

	if onSuccess != nil {
		if cbErr := onSuccess(ctx); cbErr != nil {
			c.log.Error(cbErr, "authorized operation failed after pin success")
		}
	}

	// Keep the success indicator visible briefly, then close
	time.AfterFunc(c.successCloseDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.session == session && c.state == StateSuccess {
			c.reset()
		}
	})
	return StateSuccess
}
