package domain

// BusinessError is a rejection the ledger returned inside a 200
// response body (e.g. insufficient funds caught server-side). It is a
// distinct failure mode from a transport error and is logged
// distinctly, but both end in an error outcome for the UI.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}
