package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/shopspring/decimal"

	"github.com/billpoint/billpoint-core/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client is the JSON-over-HTTP client for the remote ledger service.
// It implements domain.LedgerGateway.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	log      logr.Logger
}

// NewClient creates a new ledger client.
// If httpClient is nil a default client with a 30s timeout is used.
func NewClient(baseURL, apiToken string, httpClient *http.Client, log logr.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		http:     httpClient,
		log:      log,
	}
}

// envelope is the response wrapper every ledger endpoint uses.
// A populated Error field inside a 200 body is a business rejection.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

type processData struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
	Extra       map[string]string `json:"extra"`
}

type verifyPINData struct {
	IsValid bool `json:"is_valid"`
}

type walletData struct {
	Balance         decimal.Decimal `json:"balance"`
	CashbackBalance decimal.Decimal `json:"cashback_balance"`
	DataBonus       string          `json:"data_bonus"`
}

// ProcessTransaction submits an intent to the ledger exactly once.
// Logic:
//  1. Build the wire body from the intent's common and channel fields
//  2. POST /process-transactions
//  3. Unwrap the envelope: an embedded error becomes *domain.BusinessError
//  4. Map the remote status onto the tri-state outcome
func (c *Client) ProcessTransaction(ctx context.Context, intent domain.TransactionIntent) (domain.TransactionOutcome, error) {
	body := map[string]string{
		"channel":        string(intent.Channel()),
		"amount":         intent.Amount().String(),
		"payment_method": string(intent.Method()),
	}
	for k, v := range intent.Fields() {
		body[k] = v
	}

	env, err := c.post(ctx, "/process-transactions", body)
	if err != nil {
		return domain.TransactionOutcome{}, err
	}

	var data processData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return domain.TransactionOutcome{}, fmt.Errorf("failed to decode transaction response: %w", err)
	}

	result := map[string]string{
		"id":          data.ID,
		"amount":      data.Amount.String(),
		"description": data.Description,
	}
	for k, v := range data.Extra {
		result[k] = v
	}

	status := domain.OutcomeSuccess
	if data.Status == "pending" {
		status = domain.OutcomePending
	}
	return domain.TransactionOutcome{Status: status, Result: result}, nil
}

// VerifyPIN checks a transaction PIN against the remote record
func (c *Client) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	env, err := c.post(ctx, "/verify-pin", map[string]string{"pin": pin})
	if err != nil {
		return false, err
	}

	var data verifyPINData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return false, fmt.Errorf("failed to decode pin verification response: %w", err)
	}
	return data.IsValid, nil
}

// FetchWallet retrieves the authoritative balance snapshot
func (c *Client) FetchWallet(ctx context.Context) (domain.Balance, error) {
	env, err := c.get(ctx, "/wallets")
	if err != nil {
		return domain.Balance{}, err
	}

	var data walletData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return domain.Balance{}, fmt.Errorf("failed to decode wallet response: %w", err)
	}
	return domain.Balance{
		Balance:         data.Balance,
		CashbackBalance: data.CashbackBalance,
		DataBonus:       data.DataBonus,
	}, nil
}

// LatestTransactions fetches the recent transaction history records
func (c *Client) LatestTransactions(ctx context.Context) ([]map[string]any, error) {
	return c.getList(ctx, "/transactions/latest")
}

// Beneficiaries fetches the saved beneficiary records
func (c *Client) Beneficiaries(ctx context.Context) ([]map[string]any, error) {
	return c.getList(ctx, "/beneficiaries")
}

// RecentRecipients fetches the recent transfer recipient records
func (c *Client) RecentRecipients(ctx context.Context) ([]map[string]any, error) {
	return c.getList(ctx, "/transfer/recent-recipients")
}

func (c *Client) getList(ctx context.Context, path string) ([]map[string]any, error) {
	env, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var records []map[string]any
	if err := json.Unmarshal(env.Data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode list response from %s: %w", path, err)
	}
	return records, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req)
}

// do executes the request and unwraps the common response envelope.
// An embedded error in a 2xx body is converted to *domain.BusinessError
// so the caller can distinguish a ledger rejection from a transport
// failure with errors.As.
func (c *Client) do(req *http.Request) (*envelope, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.V(1).Info("ledger returned non-2xx status",
			"path", req.URL.Path, "status", resp.StatusCode)
		return nil, fmt.Errorf("ledger responded with status %d: %s", resp.StatusCode, string(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode ledger envelope: %w", err)
	}
	if env.Error != nil {
		msg := env.Error.Message
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "transaction was rejected"
		}
		return nil, &domain.BusinessError{Message: msg}
	}
	return &env, nil
}
