package submitter

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/billpoint/billpoint-core/internal/domain"
)

// genericFailureMessage is shown when the ledger did not supply a reason
const genericFailureMessage = "Transaction failed. Please try again."

// Service turns a payment/transfer intent into exactly one remote
// ledger call and a tri-state outcome. It performs no authorization
// itself; callers must gate Submit behind the credential gate or the
// PIN challenge. Retries are the caller's responsibility and must use
// a fresh intent.
type Service struct {
	Ledger      domain.LedgerGateway
	Invalidator domain.CacheInvalidator
	log         logr.Logger
}

// NewService creates a new submitter Service instance
func NewService(ledger domain.LedgerGateway, invalidator domain.CacheInvalidator, log logr.Logger) *Service {
	return &Service{
		Ledger:      ledger,
		Invalidator: invalidator,
		log:         log,
	}
}

// Submit executes one submission attempt.
// Logic:
//  1. Validate the intent; an invalid intent never reaches the ledger
//  2. Call the ledger exactly once, no silent retries
//  3. A *domain.BusinessError (rejection inside a 200 body) and a
//     transport failure both end in an error outcome; they are logged
//     on distinct paths
//  4. On unambiguous success, invalidate the balance, transaction
//     history and beneficiaries caches exactly once each, without
//     making the caller wait on it
//
// Errors never escape as Go errors; every path ends in an outcome.
func (s *Service) Submit(ctx context.Context, intent domain.TransactionIntent) domain.TransactionOutcome {
	if err := intent.Validate(); err != nil {
		return domain.ErrorOutcome(err.Error())
	}

	outcome, err := s.Ledger.ProcessTransaction(ctx, intent)
	if err != nil {
		var bizErr *domain.BusinessError
		if errors.As(err, &bizErr) {
			s.log.Info("ledger rejected transaction",
				"channel", string(intent.Channel()), "reason", bizErr.Message)
			return domain.ErrorOutcome(bizErr.Message)
		}
		s.log.Error(err, "ledger call failed", "channel", string(intent.Channel()))
		return domain.ErrorOutcome(genericFailureMessage)
	}

	if outcome.Status == domain.OutcomeSuccess {
		// Fire-and-forget relative to returning the outcome
		go s.invalidateCaches()
	}
	return outcome
}

func (s *Service) invalidateCaches() {
	s.Invalidator.Invalidate(domain.CacheBalance)
	s.Invalidator.Invalidate(domain.CacheTransactionHistory)
	s.Invalidator.Invalidate(domain.CacheBeneficiaries)
}
