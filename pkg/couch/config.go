package couch

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}

// Random is the source of document ids and retry jitter.
type Random interface {
	// NewID returns a globally unique document id.
	NewID() string
	// Intn returns a number in [0, n).
	Intn(n int) int
}

type defaultRandom struct{}

func (defaultRandom) NewID() string {
	return uuid.NewString()
}

func (defaultRandom) Intn(n int) int {
	return rand.IntN(n) //nolint:gosec // jitter, not security sensitive
}

// DefaultRandom generates UUIDv4 ids and uses math/rand/v2 for jitter.
func DefaultRandom() Random {
	return defaultRandom{}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Config represents client configuration for building a couch.Client.
//
// # Authentication
//
// When Username is set, every request carries an Authorization header with
// the HTTP Basic encoding of Username:Password. The header value is computed
// once by couchclient.New.
//
// # Timeouts and retries
//
// HTTPTimeout bounds every request (30s when zero); contexts passed to the
// client methods can shorten it. The only retry performed by default is the
// conflict resolution of SaveDoc. RetryMax enables transport retries for
// connection errors, 429 and 5xx responses.
type Config struct {
	// URL of the server, e.g. "http://127.0.0.1:5984". couchclient.New trims
	// a trailing slash and adds "http://" when no scheme is present.
	URL string

	// Username and Password for HTTP Basic authentication.
	Username string
	Password string

	// HTTPTimeout bounds each request.
	HTTPTimeout time.Duration
	// RetryMax is the number of transport retries; 0 disables them.
	RetryMax int
	// RetryWaitMin is the minimum backoff between transport retries.
	RetryWaitMin time.Duration
	// RetryWaitMax is the maximum backoff between transport retries.
	RetryWaitMax time.Duration

	// Debug logs every request before it is sent, and its response.
	Debug bool
	// Logger receives debug output and conflict-resolution failures.
	Logger Logger
	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// StrictArrayParams sends one pair per slice element only. By default a
	// trailing pair holding the comma-joined slice is appended as well, for
	// compatibility with servers and fixtures that expect it.
	StrictArrayParams bool

	// Random overrides the id and jitter source. Tests inject fixed values.
	Random Random
	// Sleep overrides the jitter delay primitive.
	Sleep SleepFunc

	// Interceptors run around every dispatched request.
	Interceptors *InterceptorChain
}

// SaveOptions are the options of SaveDoc.
type SaveOptions struct {
	// ConflictResolution retries once after a 409. Defaults to true.
	ConflictResolution bool
}

// SaveOption configures SaveDoc.
type SaveOption func(*SaveOptions)

// WithoutConflictResolution makes SaveDoc fail on the first conflict.
func WithoutConflictResolution() SaveOption {
	return func(o *SaveOptions) {
		o.ConflictResolution = false
	}
}

// NewSaveOptions applies opts over the defaults.
func NewSaveOptions(opts ...SaveOption) *SaveOptions {
	options := &SaveOptions{ConflictResolution: true}
	for _, opt := range opts {
		opt(options)
	}

	return options
}
