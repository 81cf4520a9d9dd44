package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine codes surfaced to callers. The routing layer maps these plus the
// HTTP status onto wire responses and carries no logic of its own.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeForbidden      = "forbidden"
	CodeDomainTaken    = "domain_taken"
	CodeQuoteExpired   = "quote_expired"
	CodeRegistrarError = "registrar_error"
	CodeProviderError  = "provider_error"
	CodeRateLimited    = "rate_limited"
	CodeInternal       = "internal_error"
)

// Error is the typed failure every backend operation returns instead of a
// bare error. RetryAfterSeconds is only set for rate_limited.
type Error struct {
	Status            int    `json:"status"`
	Code              string `json:"code"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`

	// RemoteCommitted marks internal_error cases where an external side
	// effect (a charge, a DNS change) already happened before the local
	// failure. Callers must not treat these like clean failures.
	RemoteCommitted bool `json:"remoteCommitted,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(status int, code, format string, args ...interface{}) *Error {
	return &Error{Status: status, Code: code, Message: fmt.Sprintf(format, args...)}
}

func InvalidRequest(format string, args ...interface{}) *Error {
	return New(http.StatusUnprocessableEntity, CodeInvalidRequest, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(http.StatusForbidden, CodeForbidden, format, args...)
}

func DomainTaken(domain string) *Error {
	return New(http.StatusConflict, CodeDomainTaken, "domain %s is not available", domain)
}

func QuoteExpired(quoteID string) *Error {
	return New(http.StatusGone, CodeQuoteExpired, "quote %s has expired", quoteID)
}

func Registrar(format string, args ...interface{}) *Error {
	return New(http.StatusBadGateway, CodeRegistrarError, format, args...)
}

func Provider(format string, args ...interface{}) *Error {
	return New(http.StatusBadGateway, CodeProviderError, format, args...)
}

func RateLimited(retryAfterSeconds int) *Error {
	e := New(http.StatusTooManyRequests, CodeRateLimited, "upstream rate limit hit, retry later")
	e.RetryAfterSeconds = retryAfterSeconds
	return e
}

func Internal(format string, args ...interface{}) *Error {
	return New(http.StatusInternalServerError, CodeInternal, format, args...)
}

// InternalRemoteCommitted reports a local failure that happened strictly after
// a remote side effect committed. The message must tell the caller the remote
// change is real.
func InternalRemoteCommitted(format string, args ...interface{}) *Error {
	e := Internal(format, args...)
	e.RemoteCommitted = true
	return e
}

// As unwraps err into an *Error if it is one.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
