package couch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a non-2xx response.
type ErrorKind int

const (
	// KindOther is any non-2xx status that is neither 404 nor 409.
	KindOther ErrorKind = iota
	// KindNotFound is HTTP 404.
	KindNotFound
	// KindConflict is HTTP 409, a write carrying a stale revision.
	KindConflict
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "other"
	}
}

// Static errors for err113 compliance.
var (
	ErrServerUnreachable    = errors.New("couchdb server not connected")
	ErrDecode               = errors.New("couchdb: invalid JSON response")
	ErrIllegalDatabaseName  = errors.New("illegal database name")
	ErrURLRequired          = errors.New("server URL is required")
	ErrConfigRequired       = errors.New("config is required")
	ErrDocumentIDRequired   = errors.New("document ID is required")
	ErrDocumentRequired     = errors.New("document is required")
	ErrDatabaseNameRequired = errors.New("database name is required")
	ErrAttachmentRequired   = errors.New("attachment name is required")
	ErrUnsupportedScheme    = errors.New("unsupported URL scheme")
)

// Error is a classified non-2xx response from the server.
type Error struct {
	Kind       ErrorKind `json:"kind"`
	StatusCode int       `json:"status"`
	StatusText string    `json:"status_text"`
	// Request identifies the call as "METHOD|path?query".
	Request string `json:"request"`
	// Body is the raw response body.
	Body string `json:"body"`
	// Type and Reason are taken from a CouchDB {"error","reason"} body, if any.
	Type   string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewError classifies a non-2xx response. The dispatcher is the only caller.
func NewError(method, path string, statusCode int, statusText, body string) *Error {
	e := &Error{
		Kind:       classify(statusCode),
		StatusCode: statusCode,
		StatusText: statusText,
		Request:    method + "|" + path,
		Body:       body,
	}

	var reason struct {
		Error  string `json:"error"`
		Reason string `json:"reason"`
	}

	if json.Unmarshal([]byte(body), &reason) == nil {
		e.Type = reason.Error
		e.Reason = reason.Reason
	}

	return e
}

func classify(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindOther
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("CouchDB - %d - %s", e.StatusCode, e.StatusText)
	if e.Type != "" {
		msg += fmt.Sprintf(": %s (%s)", e.Type, e.Reason)
	}

	return msg
}

// TransportError reports that the request could not be completed at all.
// The underlying transport error is flattened into Message.
type TransportError struct {
	Request string
	Message string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s (%s): %s", ErrServerUnreachable.Error(), e.Request, e.Message)
}

// Is reports whether target is ErrServerUnreachable.
func (e *TransportError) Is(target error) bool {
	return target == ErrServerUnreachable
}

// AsError returns the classified error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	couchErr := &Error{}
	if errors.As(err, &couchErr) {
		return couchErr, true
	}

	return nil, false
}

// IsNotFound checks if the error is a 404 from the server.
func IsNotFound(err error) bool {
	couchErr, ok := AsError(err)

	return ok && couchErr.Kind == KindNotFound
}

// IsConflict checks if the error is a 409 from the server.
func IsConflict(err error) bool {
	couchErr, ok := AsError(err)

	return ok && couchErr.Kind == KindConflict
}

// StatusCode returns the HTTP status of a classified error, or 0.
func StatusCode(err error) int {
	if couchErr, ok := AsError(err); ok {
		return couchErr.StatusCode
	}

	return 0
}
