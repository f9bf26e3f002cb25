// Package client implements the couch.Client and couch.Database interfaces
// on top of the internal HTTP dispatcher.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fivetwenty-io/couchdb-client/internal/auth"
	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	internalhttp "github.com/fivetwenty-io/couchdb-client/internal/http"
	"github.com/fivetwenty-io/couchdb-client/internal/query"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

// Client implements couch.Client.
type Client struct {
	httpClient *internalhttp.Client
	baseURL    string
	logger     couch.Logger
	random     couch.Random
	sleep      couch.SleepFunc
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *couch.Config) []internalhttp.Option {
	var httpOpts []internalhttp.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, internalhttp.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, internalhttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, internalhttp.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, internalhttp.WithTimeout(config.HTTPTimeout))
	}

	if config.StrictArrayParams {
		httpOpts = append(httpOpts, internalhttp.WithStrictArrayParams(true))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, internalhttp.WithInterceptors(config.Interceptors))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, internalhttp.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// New creates a client from config. config.URL must be an absolute http or
// https URL.
func New(config *couch.Config) (*Client, error) {
	if config == nil {
		return nil, couch.ErrConfigRequired
	}

	if config.URL == "" {
		return nil, couch.ErrURLRequired
	}

	parsed, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", couch.ErrUnsupportedScheme, parsed.Scheme)
	}

	credential := auth.Basic(config.Username, config.Password)
	httpClient := internalhttp.NewClient(config.URL, credential, createHTTPClientOptions(config)...)

	client := &Client{
		httpClient: httpClient,
		baseURL:    httpClient.BaseURL(),
		logger:     config.Logger,
		random:     config.Random,
		sleep:      config.Sleep,
	}

	if client.logger == nil {
		client.logger = couch.NopLogger{}
	}

	if client.random == nil {
		client.random = couch.DefaultRandom()
	}

	if client.sleep == nil {
		client.sleep = couch.Sleep
	}

	return client, nil
}

// URL returns the server URL.
func (c *Client) URL() string {
	return c.baseURL
}

// Info implements couch.ServerClient.Info.
func (c *Client) Info(ctx context.Context) (*couch.ServerInfo, error) {
	var info couch.ServerInfo

	err := c.httpClient.DoJSON(ctx, &internalhttp.Request{Method: http.MethodGet, Path: "/"}, &info)
	if err != nil {
		return nil, fmt.Errorf("getting server info: %w", err)
	}

	return &info, nil
}

// ListAllDBs implements couch.ServerClient.ListAllDBs.
func (c *Client) ListAllDBs(ctx context.Context, params *couch.ListParams) ([]string, error) {
	queryParams, err := query.EncodeList(params)
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}

	var names []string

	err = c.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method: http.MethodGet,
		Path:   constants.PathAllDBs,
		Query:  queryParams,
	}, &names)
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}

	return names, nil
}

// CreateDB implements couch.DatabasesClient.CreateDB.
func (c *Client) CreateDB(ctx context.Context, name string) (couch.Database, error) {
	if name == "" {
		return nil, couch.ErrDatabaseNameRequired
	}

	_, err := c.httpClient.Put(ctx, dbPath(name), nil)
	if err != nil {
		switch couch.StatusCode(err) {
		case http.StatusPreconditionFailed:
			// already exists
		case http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %q: %w", couch.ErrIllegalDatabaseName, name, err)
		default:
			return nil, fmt.Errorf("creating database %s: %w", name, err)
		}
	}

	return c.DB(name), nil
}

// DeleteDB implements couch.DatabasesClient.DeleteDB.
func (c *Client) DeleteDB(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, couch.ErrDatabaseNameRequired
	}

	_, err := c.httpClient.Delete(ctx, dbPath(name), nil)
	if err != nil {
		if couch.IsNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("deleting database %s: %w", name, err)
	}

	return true, nil
}

// HasDB implements couch.DatabasesClient.HasDB.
func (c *Client) HasDB(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, couch.ErrDatabaseNameRequired
	}

	_, err := c.httpClient.Get(ctx, dbPath(name), nil)
	if err != nil {
		if couch.IsNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("checking database %s: %w", name, err)
	}

	return true, nil
}

// DB implements couch.DatabasesClient.DB. No request is made.
func (c *Client) DB(name string) couch.Database {
	return newDatabase(c, name)
}

// Do implements couch.Client.Do. path is relative to the server URL.
func (c *Client) Do(ctx context.Context, method, path string, params *couch.CallParams, out any) error {
	return c.httpClient.DoJSON(ctx, callRequest(method, path, params), out)
}

func callRequest(method, path string, params *couch.CallParams) *internalhttp.Request {
	req := &internalhttp.Request{Method: method, Path: path}

	if params != nil {
		req.Query = params.Query
		req.Body = params.Body
		req.Headers = params.Headers
		req.Debug = params.Debug
	}

	return req
}
