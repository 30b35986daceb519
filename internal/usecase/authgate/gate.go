package authgate

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/billpoint/billpoint-core/internal/domain"
)

// Gate decides whether a pending authorization request can be satisfied
// by an on-device biometric check before falling back to the PIN
// challenge. It performs no network calls; its only side effect is the
// native biometric prompt.
type Gate struct {
	Biometric domain.BiometricAuthenticator
	log       logr.Logger
}

// NewGate creates a new Gate instance
func NewGate(biometric domain.BiometricAuthenticator, log logr.Logger) *Gate {
	return &Gate{
		Biometric: biometric,
		log:       log,
	}
}

// Authorize attempts a single biometric check and routes accordingly.
// Logic:
//  1. Biometric unsupported or not enrolled: invoke onFallback directly
//  2. Prompt succeeds: invoke onAuthorized and stop
//  3. Prompt declined or cancelled: invoke onFallback (designed
//     degraded path, not an error)
//  4. Prompt fails with a platform error: log, then invoke onFallback;
//     authorization must never leave the user without a fallback path
//
// Exactly one of onAuthorized/onFallback runs, exactly once.
func (g *Gate) Authorize(ctx context.Context, onAuthorized func(context.Context) error, onFallback func()) error {
	if g.Biometric == nil || !g.Biometric.Available() || !g.Biometric.Enrolled() {
		onFallback()
		return nil
	}

	ok, err := g.Biometric.Prompt(ctx)
	if err != nil {
		g.log.Error(err, "biometric prompt failed, falling back to PIN challenge")
		onFallback()
		return nil
	}
	if !ok {
		onFallback()
		return nil
	}

	return onAuthorized(ctx)
}
