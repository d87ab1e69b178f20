package action

import (
	"errors"
	"fmt"

	"solana-token-desk/internal/failover"
	"solana-token-desk/internal/token"
	"solana-token-desk/internal/wallet"
)

// ErrorKind classifies failures surfaced to the user.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindValidation
	KindSignerUnavailable
	KindSignatureRejected
	KindEndpointsExhausted
	KindSubmission
	KindConfirmationTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindValidation:
		return "ValidationError"
	case KindSignerUnavailable:
		return "SignerUnavailable"
	case KindSignatureRejected:
		return "SignatureRejected"
	case KindEndpointsExhausted:
		return "AllEndpointsExhausted"
	case KindSubmission:
		return "SubmissionError"
	case KindConfirmationTimeout:
		return "ConfirmationTimeout"
	default:
		return "UnknownError"
	}
}

// Retryable reports whether the user may simply try again.
// A confirmation timeout is not: the first attempt may still land.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindSignerUnavailable, KindSignatureRejected, KindEndpointsExhausted:
		return true
	default:
		return false
	}
}

// Error is a classified action failure.
type Error struct {
	Kind  ErrorKind
	Field string // offending request field, validation errors only
	Msg   string
	Err   error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrConfiguration       = &Error{Kind: KindConfiguration}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrSignerUnavailable   = &Error{Kind: KindSignerUnavailable}
	ErrSignatureRejected   = &Error{Kind: KindSignatureRejected}
	ErrEndpointsExhausted  = &Error{Kind: KindEndpointsExhausted}
	ErrSubmission          = &Error{Kind: KindSubmission}
	ErrConfirmationTimeout = &Error{Kind: KindConfirmationTimeout}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, msg)
	}
	if msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// UserMessage returns the text shown to an end user.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindConfiguration:
		return "the service is misconfigured: " + e.detail()
	case KindValidation:
		if e.Field != "" {
			return fmt.Sprintf("invalid %s: %s", e.Field, e.detail())
		}
		return "invalid request: " + e.detail()
	case KindSignerUnavailable:
		return "wallet not connected, connect a wallet and try again"
	case KindSignatureRejected:
		return "signature request was declined, nothing was sent"
	case KindEndpointsExhausted:
		return "network error, try again later"
	case KindSubmission:
		return "transaction rejected: " + e.detail()
	case KindConfirmationTimeout:
		return "transaction was sent but not confirmed in time, check its status before retrying"
	default:
		return e.detail()
	}
}

func (e *Error) detail() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func validationError(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

// KindOf returns the kind of a classified error, KindUnknown otherwise.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify maps a lower-level error to a classified *Error.
// Errors that match no known cause get fallback.
func Classify(err error, fallback ErrorKind) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	kind := fallback
	switch {
	case errors.Is(err, failover.ErrNoEndpoints):
		kind = KindConfiguration
	case errors.Is(err, failover.ErrExhausted):
		kind = KindEndpointsExhausted
	case errors.Is(err, wallet.ErrNotConnected), errors.Is(err, wallet.ErrNotSigner):
		kind = KindSignerUnavailable
	case errors.Is(err, wallet.ErrRejected):
		kind = KindSignatureRejected
	case errors.Is(err, token.ErrInvalidAddress),
		errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, token.ErrTooPrecise),
		errors.Is(err, token.ErrAmountOverflow),
		errors.Is(err, token.ErrNotTokenAccount),
		errors.Is(err, token.ErrAccountNotFound),
		errors.Is(err, token.ErrMintNotInitialized):
		kind = KindValidation
	}
	return &Error{Kind: kind, Err: err}
}
