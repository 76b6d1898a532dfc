package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures so each layer can decide whether to retry,
// skip or abort.
type ErrorType string

const (
	// ErrorTypeTransport is a connection-level failure (refused, reset, timeout).
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeHTTPStatus is any response other than 200 that is not a redirect.
	ErrorTypeHTTPStatus ErrorType = "http_status"
	// ErrorTypeDiscoveryTimeout means a discovery deadline elapsed.
	ErrorTypeDiscoveryTimeout ErrorType = "discovery_timeout"
	// ErrorTypeAccountUnavailable marks private or missing accounts.
	ErrorTypeAccountUnavailable ErrorType = "account_unavailable"
	// ErrorTypeImageDownload wraps a single failed image.
	ErrorTypeImageDownload ErrorType = "image_download"
	// ErrorTypeAccountJob aborts one account without touching the batch.
	ErrorTypeAccountJob ErrorType = "account_job"
	ErrorTypeParsing    ErrorType = "parsing"
	ErrorTypeConfig     ErrorType = "config"
)

// Error is a typed failure. Code carries the HTTP status when there is one.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a failure of this type is worth another attempt.
// Only transport failures are; a status response is an answer, not a glitch.
func IsRetryable(errorType ErrorType) bool {
	return errorType == ErrorTypeTransport
}

// TypeOf returns the ErrorType of the first *Error in err's chain, or "".
func TypeOf(err error) ErrorType {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ""
}

// IsType reports whether err's chain holds an *Error of type t.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// Transport wraps a connection-level failure for url.
func Transport(url string, err error) *Error {
	return &Error{Type: ErrorTypeTransport, Message: url, Err: err}
}

// HTTPStatus records a non-success response. The message keeps the
// "HTTP <code> for <url>" shape users grep their logs for.
func HTTPStatus(code int, url string) *Error {
	return &Error{Type: ErrorTypeHTTPStatus, Code: code, Message: fmt.Sprintf("HTTP %d for %s", code, url)}
}

// DiscoveryTimeout reports that strategy ran out of time after found results.
func DiscoveryTimeout(strategy string, found int) *Error {
	return &Error{
		Type:    ErrorTypeDiscoveryTimeout,
		Message: fmt.Sprintf("%s deadline elapsed with %d results", strategy, found),
	}
}

// AccountUnavailable marks account as private or missing.
func AccountUnavailable(account string) *Error {
	return &Error{Type: ErrorTypeAccountUnavailable, Message: account + " is private or unavailable"}
}

// ImageDownload wraps the failure of one image.
func ImageDownload(url string, err error) *Error {
	return &Error{Type: ErrorTypeImageDownload, Message: url, Err: err}
}

// AccountJob wraps an error that aborted account during stage.
func AccountJob(account, stage string, err error) *Error {
	return &Error{Type: ErrorTypeAccountJob, Message: fmt.Sprintf("%s failed during %s", account, stage), Err: err}
}
