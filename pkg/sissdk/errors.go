package sissdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API failure so callers can branch on the class of
// error instead of matching message text.
type Kind string

const (
	// KindAuthentication covers rejected credentials and unrecovered 401s.
	KindAuthentication Kind = "authentication"

	// KindRefresh covers a missing, expired or rejected refresh token.
	KindRefresh Kind = "refresh"

	// KindNotFound covers 404 responses.
	KindNotFound Kind = "not_found"

	// KindValidation covers 422 responses and carries field-level detail.
	KindValidation Kind = "validation"

	// KindConflict covers 409 responses, e.g. a duplicate student identifier.
	KindConflict Kind = "conflict"

	// KindRateLimit covers 429 responses.
	KindRateLimit Kind = "rate_limit"

	// KindServer covers 5xx responses.
	KindServer Kind = "server"

	// KindNetwork covers transport failures: timeouts, refused connections,
	// bodies that could not be read.
	KindNetwork Kind = "network"

	// KindRequest covers remaining 4xx responses (400, 403, ...) that the
	// API reports but the client has no recovery path for.
	KindRequest Kind = "request"
)

// Error is the single error type returned by the client. Kind is always set;
// Status is zero for network failures.
type Error struct {
	Kind    Kind
	Status  int
	Code    string            // server-provided error code, when present
	Message string
	Fields  map[string]string // field-level validation detail (422)
	cause   error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("sissdk: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("sissdk: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// AsError unwraps err into *Error if the chain contains one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

func IsAuthentication(err error) bool { return IsKind(err, KindAuthentication) }
func IsRefresh(err error) bool        { return IsKind(err, KindRefresh) }
func IsNotFound(err error) bool       { return IsKind(err, KindNotFound) }
func IsValidation(err error) bool     { return IsKind(err, KindValidation) }
func IsConflict(err error) bool       { return IsKind(err, KindConflict) }
func IsRateLimit(err error) bool      { return IsKind(err, KindRateLimit) }
func IsServer(err error) bool         { return IsKind(err, KindServer) }
func IsNetwork(err error) bool        { return IsKind(err, KindNetwork) }

// kindFromStatus maps a non-2xx status code onto the error taxonomy.
func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindServer
	default:
		return KindRequest
	}
}

// errorBody matches the two error shapes the API produces: the standard
// envelope with success=false plus message, and the nested error object
// validation failures use.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

// parseError builds a typed error from a non-2xx response body.
func parseError(status int, body []byte) *Error {
	e := &Error{
		Kind:    kindFromStatus(status),
		Status:  status,
		Message: http.StatusText(status),
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return e
	}

	if parsed.Message != "" {
		e.Message = parsed.Message
	}
	if parsed.Error != nil {
		if parsed.Error.Message != "" {
			e.Message = parsed.Error.Message
		}
		e.Code = parsed.Error.Code
		e.Fields = parsed.Error.Details
	}

	return e
}

// networkError wraps a transport-level failure.
func networkError(err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: err.Error(),
		cause:   err,
	}
}
