// Package http dispatches calls to the CouchDB server and classifies the
// responses.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/couchdb-client/internal/auth"
	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	"github.com/fivetwenty-io/couchdb-client/internal/query"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

// Request describes one call.
type Request struct {
	Method  string
	Path    string
	Query   couch.Params
	Body    couch.Body
	Headers map[string]string
	// Debug logs this request even when the client is not in debug mode.
	Debug bool
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// StreamResponse is a 2xx response whose body has not been read.
type StreamResponse struct {
	StatusCode int
	Headers    http.Header
	Body       io.ReadCloser
}

// Client sends requests to a single server.
type Client struct {
	baseURL      string
	credential   auth.Credential
	httpClient   *retryablehttp.Client
	logger       couch.Logger
	debug        bool
	userAgent    string
	encoder      query.Encoder
	interceptors *couch.InterceptorChain
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for debug output and transport failures.
func WithLogger(logger couch.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug logs every request and response.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig enables transport retries for connection errors, 429 and 5xx.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout bounds every request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// WithStrictArrayParams stops appending the comma-joined pair after the
// elements of slice parameters.
func WithStrictArrayParams(strict bool) Option {
	return func(c *Client) {
		c.encoder.Strict = strict
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *couch.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewClient creates a client for baseURL. Transport retries are disabled
// unless WithRetryConfig is given.
func NewClient(baseURL string, credential auth.Credential, opts ...Option) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 0
	httpClient.Logger = nil
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		credential: credential,
		httpClient: httpClient,
		logger:     couch.NopLogger{},
		userAgent:  constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	if _, discard := client.logger.(couch.NopLogger); !discard {
		httpClient.Logger = leveledLogger{logger: client.logger}
	}

	return client
}

// BaseURL returns the server URL requests are relative to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends the request and reads the whole response. Non-2xx responses are
// returned as *couch.Error, together with the response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpResp, current, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.finish(ctx, current, httpResp.StatusCode, c.transportError(current, err))
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	if !isSuccess(httpResp.StatusCode) {
		return resp, c.finish(ctx, current, httpResp.StatusCode, classify(current, httpResp, body))
	}

	return resp, c.finish(ctx, current, httpResp.StatusCode, nil)
}

// DoJSON sends the request and decodes the JSON response into out. A nil out
// still requires the body to be valid JSON.
func (c *Client) DoJSON(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}

	if out == nil {
		out = &json.RawMessage{}
	}

	err = json.Unmarshal(resp.Body, out)
	if err != nil {
		return fmt.Errorf("%w (%s): %w", couch.ErrDecode, identity(req), err)
	}

	return nil
}

// Open sends the request and hands over the unread body of a 2xx response.
// The caller must close it.
func (c *Client) Open(ctx context.Context, req *Request) (*StreamResponse, error) {
	httpResp, current, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if !isSuccess(httpResp.StatusCode) {
		defer func() { _ = httpResp.Body.Close() }()

		body, readErr := io.ReadAll(httpResp.Body)
		if readErr != nil {
			return nil, c.finish(ctx, current, httpResp.StatusCode, c.transportError(current, readErr))
		}

		return nil, c.finish(ctx, current, httpResp.StatusCode, classify(current, httpResp, body))
	}

	if err := c.finish(ctx, current, httpResp.StatusCode, nil); err != nil {
		_ = httpResp.Body.Close()

		return nil, err
	}

	return &StreamResponse{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       httpResp.Body,
	}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, params couch.Params) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: params})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: jsonBody(body)})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: jsonBody(body)})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, params couch.Params) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path, Query: params})
}

func jsonBody(body any) couch.Body {
	if body == nil {
		return nil
	}

	return couch.JSONBody{Value: body}
}

// call is the state of one request between send and finish.
type call struct {
	method  string
	path    string
	view    *couch.Request
	debug   bool
	started time.Time
}

func (c *Client) send(ctx context.Context, req *Request) (*http.Response, *call, error) {
	rawQuery, err := c.encoder.Encode(req.Query)
	if err != nil {
		return nil, nil, fmt.Errorf("building query for %s %s: %w", req.Method, req.Path, err)
	}

	path := req.Path
	if rawQuery != "" {
		path += "?" + rawQuery
	}

	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding body for %s %s: %w", req.Method, req.Path, err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, c.baseURL+path, payload)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	current := &call{
		method: req.Method,
		path:   path,
		debug:  c.debug || req.Debug,
		view: &couch.Request{
			Method:   req.Method,
			Path:     req.Path,
			Headers:  httpReq.Header,
			Metadata: make(map[string]interface{}),
		},
	}

	if c.interceptors != nil {
		err = c.interceptors.ExecuteRequestInterceptors(ctx, current.view)
		if err != nil {
			return nil, nil, err
		}

		httpReq.Header = current.view.Headers
	}

	c.setHeaders(httpReq.Header, req.Body)

	if current.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"url":     c.baseURL + path,
			"method":  req.Method,
			"body":    rawBody(req.Body),
			"headers": c.redact(httpReq.Header),
		})
	}

	current.started = time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if httpResp != nil && httpResp.Body != nil {
			_ = httpResp.Body.Close()
		}

		if ctx.Err() != nil {
			return nil, nil, c.finish(ctx, current, 0, fmt.Errorf("%s %s: %w", req.Method, path, ctx.Err()))
		}

		return nil, nil, c.finish(ctx, current, 0, c.transportError(current, err))
	}

	return httpResp, current, nil
}

// finish logs the outcome, runs the response interceptors and returns err.
func (c *Client) finish(ctx context.Context, current *call, statusCode int, err error) error {
	duration := time.Since(current.started)

	if current.debug {
		fields := map[string]interface{}{
			"method":   current.method,
			"path":     current.path,
			"status":   statusCode,
			"duration": duration.String(),
		}
		if err != nil {
			fields["error"] = err.Error()
		}

		c.logger.Debug("HTTP Response", fields)
	}

	if c.interceptors == nil {
		return err
	}

	interceptErr := c.interceptors.ExecuteResponseInterceptors(ctx, current.view, &couch.Response{
		StatusCode: statusCode,
		Headers:    current.view.Headers,
		Duration:   duration,
		Error:      err,
	})
	if err == nil {
		return interceptErr
	}

	return err
}

func (c *Client) setHeaders(header http.Header, body couch.Body) {
	if header.Get(constants.HeaderUserAgent) == "" {
		header.Set(constants.HeaderUserAgent, c.userAgent)
	}

	if c.credential.Valid() {
		header.Set(constants.HeaderAuthorization, c.credential.Header())
	}

	header.Set(constants.HeaderAccept, constants.ContentTypeJSON)

	if _, isJSON := body.(couch.JSONBody); isJSON {
		header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}
}

func (c *Client) redact(header http.Header) map[string]string {
	headers := make(map[string]string, len(header))
	for key := range header {
		headers[key] = header.Get(key)
	}

	if _, ok := headers[constants.HeaderAuthorization]; ok {
		headers[constants.HeaderAuthorization] = c.credential.Redacted()
	}

	return headers
}

func (c *Client) transportError(current *call, err error) error {
	c.logger.Error("CouchDB server not connected", map[string]interface{}{
		"method": current.method,
		"path":   current.path,
		"error":  err.Error(),
	})

	return &couch.TransportError{
		Request: current.method + "|" + current.path,
		Message: err.Error(),
	}
}

func classify(current *call, resp *http.Response, body []byte) *couch.Error {
	return couch.NewError(current.method, current.path, resp.StatusCode, statusText(resp), string(body))
}

// statusText returns the reason phrase of the status line.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}

	return text
}

func encodeBody(body couch.Body) (any, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case couch.JSONBody:
		data, err := json.Marshal(b.Value)
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON body: %w", err)
		}

		return bytes.NewReader(data), nil
	case couch.StreamBody:
		return b.Reader, nil
	default:
		return nil, fmt.Errorf("%w: %T", query.ErrUnsupportedValue, body)
	}
}

func rawBody(body couch.Body) any {
	switch b := body.(type) {
	case couch.JSONBody:
		return b.Value
	case couch.StreamBody:
		return "<stream>"
	default:
		return nil
	}
}

func identity(req *Request) string {
	return req.Method + "|" + req.Path
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
