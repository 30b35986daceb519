package balance

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billpoint/billpoint-core/internal/domain"
)

const defaultPollInterval = 30 * time.Second

// Store is the single source of truth for the displayed balance. It
// reconciles three update vectors: an authoritative poll, a push
// delivered snapshot and an optimistic local echo.
//
// Ordering rules:
//   - Polls are sequence-numbered at start; a poll that completes after
//     a later-started poll has already applied is discarded, so an
//     out-of-order completion can never overwrite newer data.
//   - A push always overwrites the cached value at the moment it
//     arrives and raises a barrier that discards every poll already in
//     flight; only a poll started after the push can supersede it.
//   - An echo applies only while no authoritative value has landed
//     since the echo was computed; authoritative data always wins.
type Store struct {
	ledger       domain.LedgerGateway
	signal       domain.FundingSignal
	prefs        domain.PreferenceStore
	userID       uuid.UUID
	log          logr.Logger
	pollInterval time.Duration

	wake chan struct{}

	mu         sync.Mutex
	current    domain.Balance
	loaded     bool
	version    uint64
	nextSeq    uint64
	appliedSeq uint64
	barrierSeq uint64
	foreground bool
}

// NewStore creates a new balance Store for the authenticated user
func NewStore(ledger domain.LedgerGateway, signal domain.FundingSignal, prefs domain.PreferenceStore, userID uuid.UUID, log logr.Logger) *Store {
	return &Store{
		ledger:       ledger,
		signal:       signal,
		prefs:        prefs,
		userID:       userID,
		log:          log,
		pollInterval: defaultPollInterval,
		wake:         make(chan struct{}, 1),
		foreground:   true,
	}
}

// SetPollInterval overrides the poll interval (used in tests)
func (s *Store) SetPollInterval(d time.Duration) {
	s.pollInterval = d
}

// Current returns the cached balance, whether any value has landed
// yet, and the store version for echo capture
func (s *Store) Current() (domain.Balance, bool, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.loaded, s.version
}

// Version returns the store version, bumped on every applied update.
// Capture it before a submission to scope an optimistic echo.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Refresh performs one authoritative fetch. The result applies only if
// no later-started fetch and no push has landed in the meantime; a
// stale completion is discarded silently.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	fetched, err := s.ledger.FetchWallet(ctx)
	if err != nil {
		s.log.Error(err, "balance fetch failed")
		return err
	}
	s.applyFetch(seq, fetched)
	return nil
}

func (s *Store) applyFetch(seq uint64, b domain.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.appliedSeq || seq <= s.barrierSeq {
		// A newer fetch or a push already landed; this completion is
		// stale. Not an error condition.
		s.log.V(1).Info("discarding stale balance fetch", "seq", seq)
		return
	}
	s.appliedSeq = seq
	s.current = b
	s.loaded = true
	s.version++
}

// ApplyPush merges a push-delivered snapshot. It always replaces the
// cached value, invalidates every poll currently in flight so the next
// poll reconfirms consistency, and fires the funding signal exactly
// once when the balance strictly increased — money arriving, not just
// any mutation.
func (s *Store) ApplyPush(b domain.Balance) {
	s.mu.Lock()
	prev := s.current
	had := s.loaded
	s.barrierSeq = s.nextSeq
	s.current = b
	s.loaded = true
	s.version++
	s.mu.Unlock()

	if had && b.Balance.GreaterThan(prev.Balance) && s.signal != nil {
		s.signal.FundsArrived(b)
	}
}

// Echo displays an optimistic value computed locally after a
// submission, while the authoritative refetch is in flight. since must
// be the version captured before the submission; if any authoritative
// update has landed meanwhile the echo is rejected, so a stale echo
// can never regress the displayed value. Reports whether it applied.
func (s *Store) Echo(b domain.Balance, since uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != since {
		return false
	}
	s.current = b
	s.loaded = true
	s.version++
	return true
}

// MarkStale requests an out-of-schedule refetch from the poll loop.
// It implements the balance leg of cache invalidation and never blocks.
func (s *Store) MarkStale() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// EnterForeground resumes polling and triggers an immediate refetch,
// matching the app-foreground transition
func (s *Store) EnterForeground() {
	s.mu.Lock()
	s.foreground = true
	s.mu.Unlock()
	s.MarkStale()
}

// EnterBackground pauses interval polling until the next foreground
// transition
func (s *Store) EnterBackground() {
	s.mu.Lock()
	s.foreground = false
	s.mu.Unlock()
}

func (s *Store) isForeground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.foreground
}

// Run drives the poll loop: one fetch at start, then one every poll
// interval while foregrounded, plus on-demand fetches from MarkStale
// and foreground transitions. Run blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	_ = s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			_ = s.Refresh(ctx)
		case <-ticker.C:
			if s.isForeground() {
				_ = s.Refresh(ctx)
			}
		}
	}
}

// DisplayBalance renders the wallet balance for the UI, masked when
// the user has toggled visibility off
func (s *Store) DisplayBalance() string {
	b, _, _ := s.Current()
	return FormatAmount(b.Balance, s.prefs.ShowBalance(s.userID))
}

// DisplayCashback renders the cashback balance, masked with the bonus
// visibility preference
func (s *Store) DisplayCashback() string {
	b, _, _ := s.Current()
	return FormatAmount(b.CashbackBalance, s.prefs.ShowBonus(s.userID))
}

// DisplayDataBonus renders the data bonus, masked with the bonus
// visibility preference
func (s *Store) DisplayDataBonus() string {
	b, _, _ := s.Current()
	if !s.prefs.ShowBonus(s.userID) {
		return maskedPlaceholder
	}
	return b.DataBonus
}

// SetBalanceVisible persists the wallet visibility preference
func (s *Store) SetBalanceVisible(show bool) error {
	return s.prefs.SetShowBalance(s.userID, show)
}

// SetBonusVisible persists the bonus visibility preference
func (s *Store) SetBonusVisible(show bool) error {
	return s.prefs.SetShowBonus(s.userID, show)
}

const maskedPlaceholder = "••••••"

// FormatAmount renders a naira amount for display. The mask is
// independent of the underlying value.
func FormatAmount(d decimal.Decimal, visible bool) string {
	if !visible {
		return maskedPlaceholder
	}
	return "₦" + d.StringFixed(2)
}
