package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"nhooyr.io/websocket"

	"github.com/billpoint/billpoint-core/internal/domain"
)

const defaultRetryDelay = 1 * time.Second

// pushPayload is a full-row snapshot of the balance record delivered
// whenever the server mutates it. Insert/update/delete semantics all
// collapse to "treat as update" on the client.
type pushPayload struct {
	UserID          string          `json:"user_id"`
	Event           string          `json:"event"`
	Balance         decimal.Decimal `json:"balance"`
	CashbackBalance decimal.Decimal `json:"cashback_balance"`
	DataBonus       string          `json:"data_bonus"`
}

// Subscriber maintains the realtime push channel for balance snapshots.
// The channel is scoped to a single authenticated user; on user change
// the owner must cancel the context and subscribe again.
type Subscriber struct {
	baseURL    string
	apiToken   string
	retryDelay time.Duration
	log        logr.Logger
}

// NewSubscriber creates a new realtime subscriber.
// baseURL is the websocket origin, e.g. "wss://api.example.com".
func NewSubscriber(baseURL, apiToken string, log logr.Logger) *Subscriber {
	return &Subscriber{
		baseURL:    baseURL,
		apiToken:   apiToken,
		retryDelay: defaultRetryDelay,
		log:        log,
	}
}

// SetRetryDelay overrides the resubscribe delay (used in tests)
func (s *Subscriber) SetRetryDelay(d time.Duration) {
	s.retryDelay = d
}

// Subscribe streams balance snapshots for userID, invoking fn for each
// one, until ctx is cancelled. Channel failures are never surfaced to
// the caller; the subscription is retried after a fixed short delay.
// Subscribe blocks and is meant to run in its own goroutine.
func (s *Subscriber) Subscribe(ctx context.Context, userID uuid.UUID, fn func(domain.Balance)) {
	bo := backoff.WithContext(backoff.NewConstantBackOff(s.retryDelay), ctx)
	_ = backoff.RetryNotify(
		func() error {
			err := s.stream(ctx, userID, fn)
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		},
		bo,
		func(err error, d time.Duration) {
			s.log.V(1).Info("realtime channel error, resubscribing",
				"user_id", userID.String(), "delay", d.String(), "cause", err.Error())
		},
	)
}

// stream dials the push endpoint and pumps snapshots until the
// connection drops or ctx is cancelled. A normal server close is
// returned as an error so the caller resubscribes.
func (s *Subscriber) stream(ctx context.Context, userID uuid.UUID, fn func(domain.Balance)) error {
	addr := s.baseURL + "/realtime?user_id=" + userID.String()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.apiToken)

	conn, _, err := websocket.Dial(ctx, addr, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var payload pushPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			s.log.V(1).Info("discarding malformed push frame", "cause", err.Error())
			continue
		}
		// The server scopes the stream by user id already; drop
		// anything that slips through for another user.
		if payload.UserID != "" && payload.UserID != userID.String() {
			continue
		}

		fn(domain.Balance{
			Balance:         payload.Balance,
			CashbackBalance: payload.CashbackBalance,
			DataBonus:       payload.DataBonus,
		})
	}
}
