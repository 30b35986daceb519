package domain

// OutcomeStatus represents the terminal state of a submission attempt
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomePending OutcomeStatus = "pending"
	OutcomeError   OutcomeStatus = "error"
)

// TransactionOutcome is the result of a single submission attempt.
// It is created when the remote call completes, handed to the status
// presenter, and discarded; it is never persisted client-side.
type TransactionOutcome struct {
	Status       OutcomeStatus
	ErrorMessage string
	// Result carries the channel-specific payload returned by the
	// ledger on success (generated PINs, electricity token, reference).
	Result map[string]string
}

// ErrorOutcome builds a terminal error outcome with the given message
func ErrorOutcome(message string) TransactionOutcome {
	return TransactionOutcome{Status: OutcomeError, ErrorMessage: message}
}
