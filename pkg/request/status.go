package request

import (
	stderrors "errors"

	"github.com/matzehuels/lighthttp/pkg/errors"
)

// Kind tags the outcome of a request.
type Kind int

const (
	// KindSuccess means a response with a 2xx status code was received.
	KindSuccess Kind = iota
	// KindTransport means the exchange itself failed (timeout, cancellation,
	// connection error). Status.Err holds the cause.
	KindTransport
	// KindStatus means a response was received with a non-2xx status code.
	KindStatus
)

// String returns a short label for the kind, used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Status is the uniform outcome of a single HTTP exchange.
//
// Exactly one of the failure shapes is populated when Success is false:
// either Err (Kind == KindTransport) or a failing StatusCode
// (Kind == KindStatus).
type Status struct {
	Kind       Kind
	Success    bool
	Err        error  // transport failure, coded TIMEOUT, CANCELED or NETWORK_ERROR
	StatusCode int    // HTTP status code; 0 when no response was received or the value came from a cache
	Reason     string // failure description; for status failures, the server's error body when available
}

// String returns "Success" on success and the reason phrase otherwise.
func (s Status) String() string {
	if s.Success {
		return "Success"
	}
	return s.Reason
}

// Code returns the error code of a transport failure, or "" otherwise.
func (s Status) Code() errors.Code {
	return errors.GetCode(s.Err)
}

func successStatus(code int) Status {
	return Status{Kind: KindSuccess, Success: true, StatusCode: code}
}

func transportStatus(err error) Status {
	return Status{Kind: KindTransport, Err: err, Reason: reasonOf(err)}
}

func failedStatus(code int, reason string) Status {
	return Status{Kind: KindStatus, StatusCode: code, Reason: reason}
}

// Result carries the status of a request and, on success, its converted value.
type Result[T any] struct {
	Status Status
	Value  T
}

// Cached builds the result returned for a value served from a cache.
func Cached[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: Status{Kind: KindSuccess, Success: true}}
}

// reasonOf returns the message of the original cause rather than the coded
// wrapper, so reason phrases read like the underlying transport error.
func reasonOf(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Cause != nil {
		return e.Cause.Error()
	}
	return err.Error()
}
