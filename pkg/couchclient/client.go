package couchclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/couchdb-client/internal/client"
	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

// New creates a client for config.URL. config is not modified.
func New(config *couch.Config) (couch.Client, error) {
	if config == nil {
		return nil, couch.ErrConfigRequired
	}

	if config.URL == "" {
		return nil, couch.ErrURLRequired
	}

	normalized := *config
	normalized.URL = NormalizeURL(config.URL)

	c, err := client.New(&normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithURL creates an unauthenticated client.
func NewWithURL(url string) (couch.Client, error) {
	return New(&couch.Config{URL: url})
}

// NewWithPassword creates a client using HTTP Basic authentication.
func NewWithPassword(url, username, password string) (couch.Client, error) {
	return New(&couch.Config{
		URL:      url,
		Username: username,
		Password: password,
	})
}

// Connect creates a client and checks that the server answers. The check
// gives up after ten seconds unless ctx expires first.
func Connect(ctx context.Context, config *couch.Config) (couch.Client, error) {
	c, err := New(config)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, constants.ShortHTTPTimeout)
	defer cancel()

	_, err = c.Info(pingCtx)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", NormalizeURL(config.URL), err)
	}

	return c, nil
}

// NormalizeURL trims trailing slashes and adds "http://" when no scheme is
// present.
func NormalizeURL(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}

	return url
}
