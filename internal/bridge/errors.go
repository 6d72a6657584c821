package bridge

import (
	"errors"
	"net/http"
)

// Kind classifies a terminal bridge failure.
type Kind string

const (
	KindInvalidRequest     Kind = "invalid_request"
	KindInvalidState       Kind = "invalid_state"
	KindMissingCode        Kind = "missing_code"
	KindUpstreamExchange   Kind = "upstream_exchange"
	KindUpstreamEnrichment Kind = "upstream_enrichment"
	KindCompletion         Kind = "completion_failed"
	KindInternal           Kind = "internal"
)

// Error is a terminal failure of one authorization attempt. Message is the
// plain-text body shown to the user; Err is for logs only.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, status int, message string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: err}
}

// KindOf returns the kind of a bridge error, or KindInternal.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// WriteError renders err as a plain-text response.
func WriteError(w http.ResponseWriter, err error) {
	var be *Error
	if !errors.As(err, &be) {
		be = newError(KindInternal, http.StatusInternalServerError, "Internal server error", err)
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, be.Message, be.Status)
}
