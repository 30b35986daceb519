package ledgertest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"nhooyr.io/websocket"
)

const wsWriteTimeout = 10 * time.Second

// Server is an in-process double of the remote ledger service. It
// implements the endpoints the client core contracts against,
// including the websocket push channel, and is used by the integration
// tests and the stubledger development binary.
type Server struct {
	UserID uuid.UUID
	PIN    string

	mu            sync.Mutex
	balance       decimal.Decimal
	cashback      decimal.Decimal
	dataBonus     string
	transactions  []map[string]any
	beneficiaries []map[string]any
	recipients    []map[string]any
	subscribers   map[chan []byte]struct{}

	router *mux.Router
}

// NewServer creates a stub ledger for one user with a seeded wallet
func NewServer(userID uuid.UUID, pin string, seed decimal.Decimal) *Server {
	s := &Server{
		UserID:      userID,
		PIN:         pin,
		balance:     seed,
		dataBonus:   "0MB",
		subscribers: map[chan []byte]struct{}{},
	}

	r := mux.NewRouter()
	r.HandleFunc("/process-transactions", s.handleProcess).Methods(http.MethodPost)
	r.HandleFunc("/verify-pin", s.handleVerifyPIN).Methods(http.MethodPost)
	r.HandleFunc("/wallets", s.handleWallet).Methods(http.MethodGet)
	r.HandleFunc("/transactions/latest", s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/beneficiaries", s.handleBeneficiaries).Methods(http.MethodGet)
	r.HandleFunc("/transfer/recent-recipients", s.handleRecipients).Methods(http.MethodGet)
	r.HandleFunc("/fund", s.handleFund).Methods(http.MethodPost)
	r.HandleFunc("/realtime", s.handleRealtime)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Balance returns the current wallet balance
func (s *Server) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Subscribers returns the number of live push subscriptions
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Fund credits the wallet and pushes a snapshot, simulating an
// out-of-band funding event
func (s *Server) Fund(amount decimal.Decimal) {
	s.mu.Lock()
	s.balance = s.balance.Add(amount)
	s.mu.Unlock()
	s.broadcast()
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeBusinessError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":  nil,
		"error": map[string]string{"message": message},
	})
}

type processRequest struct {
	Channel       string          `json:"channel"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Phone         string          `json:"phone"`
	PlanID        string          `json:"plan_id"`
	VariationCode string          `json:"variation_code"`
	BillersCode   string          `json:"billers_code"`
	RecipientID   string          `json:"recipient_id"`
	ProfileID     string          `json:"profile_id"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		writeBusinessError(w, "amount must be positive")
		return
	}

	s.mu.Lock()
	funded := false
	switch req.PaymentMethod {
	case "wallet":
		if s.balance.LessThan(req.Amount) {
			s.mu.Unlock()
			writeBusinessError(w, "insufficient wallet balance")
			return
		}
		s.balance = s.balance.Sub(req.Amount)
		funded = true
	case "cashback":
		if s.cashback.LessThan(req.Amount) {
			s.mu.Unlock()
			writeBusinessError(w, "insufficient cashback balance")
			return
		}
		s.cashback = s.cashback.Sub(req.Amount)
		funded = true
	default:
		s.mu.Unlock()
		writeBusinessError(w, "unknown payment method")
		return
	}

	id := "txn_" + uuid.NewString()[:8]
	record := map[string]any{
		"id":          id,
		"channel":     req.Channel,
		"amount":      req.Amount,
		"description": fmt.Sprintf("%s purchase", req.Channel),
	}
	s.transactions = append([]map[string]any{record}, s.transactions...)
	if req.Channel == "transfer" && req.RecipientID != "" {
		s.recipients = append([]map[string]any{{"recipient_id": req.RecipientID}}, s.recipients...)
	}
	s.mu.Unlock()

	if funded {
		// A settled transaction mutates the balance row server-side,
		// which pushes a snapshot like any other mutation.
		s.broadcast()
	}

	extra := map[string]string{}
	switch req.Channel {
	case "electricity":
		extra["token"] = "5031-8427-1165-9003"
	case "education":
		extra["pins"] = "385912064477"
	}

	writeData(w, map[string]any{
		"id":          id,
		"status":      "success",
		"amount":      req.Amount,
		"description": fmt.Sprintf("%s purchase", req.Channel),
		"extra":       extra,
	})
}

func (s *Server) handleVerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	writeData(w, map[string]bool{"is_valid": req.PIN == s.PIN})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, map[string]any{
		"balance":          s.balance,
		"cashback_balance": s.cashback,
		"data_bonus":       s.dataBonus,
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, s.listOrEmpty(s.transactions))
}

func (s *Server) handleBeneficiaries(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, s.listOrEmpty(s.beneficiaries))
}

func (s *Server) handleRecipients(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, s.listOrEmpty(s.recipients))
}

func (s *Server) listOrEmpty(records []map[string]any) []map[string]any {
	if records == nil {
		return []map[string]any{}
	}
	return records
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	s.Fund(req.Amount)
	writeData(w, map[string]string{"status": "funded"})
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	if got := r.URL.Query().Get("user_id"); got != s.UserID.String() {
		http.Error(w, "unknown user", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ch := make(chan []byte, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subscribers, ch)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// The client never sends frames; a read completing means the
		// connection is gone.
		_, _, _ = conn.Read(ctx)
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}

// broadcast pushes a full-row balance snapshot to every subscriber
func (s *Server) broadcast() {
	s.mu.Lock()
	payload, err := json.Marshal(map[string]any{
		"user_id":          s.UserID.String(),
		"event":            "update",
		"balance":          s.balance,
		"cashback_balance": s.cashback,
		"data_bonus":       s.dataBonus,
	})
	if err != nil {
		s.mu.Unlock()
		return
	}
	for ch := range s.subscribers {
		select {
		case ch <- payload:
		default:
		}
	}
	s.mu.Unlock()
}
