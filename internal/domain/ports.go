package domain

import (
	"context"

	"github.com/google/uuid"
)

// Cache identifies a client-side cache that submissions can invalidate
type Cache string

const (
	CacheBalance            Cache = "balance"
	CacheTransactionHistory Cache = "transaction_history"
	CacheBeneficiaries      Cache = "beneficiaries"
)

// PINVerifier checks a transaction PIN against the remote record
type PINVerifier interface {
	VerifyPIN(ctx context.Context, pin string) (bool, error)
}

// LedgerGateway defines the interface to the remote ledger service
type LedgerGateway interface {
	// ProcessTransaction submits an intent to the ledger exactly once.
	// A rejection embedded in a 200 body is returned as *BusinessError;
	// transport failures are returned as plain errors.
	ProcessTransaction(ctx context.Context, intent TransactionIntent) (TransactionOutcome, error)

	// VerifyPIN checks a transaction PIN against the remote record
	VerifyPIN(ctx context.Context, pin string) (bool, error)

	// FetchWallet retrieves the authoritative balance snapshot
	FetchWallet(ctx context.Context) (Balance, error)
}

// BiometricAuthenticator defines the interface to the platform
// biometric prompt. Prompt may fail with a platform error; callers
// must treat that the same as a declined prompt.
type BiometricAuthenticator interface {
	// Available reports whether the device supports biometrics
	Available() bool

	// Enrolled reports whether the user has enabled biometric authorization
	Enrolled() bool

	// Prompt shows the native biometric prompt and reports the decision
	Prompt(ctx context.Context) (bool, error)
}

// CacheInvalidator marks a client-side cache stale so its next reader refetches
type CacheInvalidator interface {
	Invalidate(cache Cache)
}

// FundingSignal notifies the user that money arrived (haptic/notification).
// It fires only on a strict balance increase, not on every mutation.
type FundingSignal interface {
	FundsArrived(newBalance Balance)
}

// PreferenceStore persists per-user display preferences across restarts
type PreferenceStore interface {
	// ShowBalance reports whether the wallet balance is rendered unmasked
	ShowBalance(userID uuid.UUID) bool

	// ShowBonus reports whether the bonus balances are rendered unmasked
	ShowBonus(userID uuid.UUID) bool

	// SetShowBalance updates and persists the wallet visibility preference
	SetShowBalance(userID uuid.UUID, show bool) error

	// SetShowBonus updates and persists the bonus visibility preference
	SetShowBonus(userID uuid.UUID, show bool) error
}
