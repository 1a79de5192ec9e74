package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuseats-dev/campuseats/pkg/metrics"
)

// Default tracer name for the client core.
const defaultTracerName = "campuseats"

// genericFailure is shown when the server gave us nothing usable.
const genericFailure = "request failed, please try again"

// envelope is the backend's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client issues authenticated REST calls against the backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	// tokenSource returns the current bearer token, "" when absent.
	tokenSource func() string

	// onUnauthorized is fired on a 401, at most once per authenticated
	// stretch. It clears the session and redirects to login.
	onUnauthorized func()

	// armed is set when an authenticated request goes out and cleared
	// when the 401 hook fires, so one expiry triggers one teardown.
	armed atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTokenSource sets the bearer token source.
func WithTokenSource(fn func() string) Option {
	return func(c *Client) {
		c.tokenSource = fn
	}
}

// WithOnUnauthorized sets the ambient-401 hook.
func WithOnUnauthorized(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics attaches the metrics bundle.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracerName overrides the otel tracer name.
func WithTracerName(name string) Option {
	return func(c *Client) {
		c.tracer = otel.Tracer(name)
	}
}

// New creates a Client for the given base URL, e.g.
// "http://localhost:18090/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
		tracer:  otel.Tracer(defaultTracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET and decodes the envelope payload into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

// Post issues a POST with a JSON body and decodes the payload into out.
// body may be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	reader, err := encodeJSON(body)
	if err != nil {
		return err
	}
	contentType := ""
	if reader != nil {
		contentType = "application/json"
	}
	return c.do(ctx, http.MethodPost, path, contentType, reader, out)
}

// Put issues a PUT with a JSON body and decodes the payload into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	reader, err := encodeJSON(body)
	if err != nil {
		return err
	}
	contentType := ""
	if reader != nil {
		contentType = "application/json"
	}
	return c.do(ctx, http.MethodPut, path, contentType, reader, out)
}

// Delete issues a DELETE and decodes the payload into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, "", nil, out)
}

// PostMultipart issues a POST with a multipart body. contentType must be
// the multipart writer's FormDataContentType; the client never overrides
// it with JSON.
func (c *Client) PostMultipart(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	return c.do(ctx, http.MethodPost, path, contentType, body, out)
}

func encodeJSON(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Message: genericFailure, cause: err}
	}
	return bytes.NewReader(data), nil
}

// do runs one request/response round trip. No retries: the operations
// behind this client are user-initiated and safe to retry manually.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return &Error{Message: genericFailure, cause: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			c.armed.Store(true)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.metrics.ObserveAPIRequest(method, 0, time.Since(start).Seconds())
		c.logger.Warn("api: request failed", "method", method, "path", path, "error", err)
		return &Error{Message: "could not reach the server", cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.metrics.ObserveAPIRequest(method, resp.StatusCode, time.Since(start).Seconds())
		return &Error{Status: resp.StatusCode, Message: genericFailure, cause: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.metrics.ObserveAPIRequest(method, resp.StatusCode, time.Since(start).Seconds())

	if resp.StatusCode == http.StatusUnauthorized {
		c.fireUnauthorized()
	}

	var env envelope
	hasEnvelope := json.Unmarshal(raw, &env) == nil

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode, Message: genericFailure}
		if hasEnvelope {
			apiErr.Detail = env.Error
			switch {
			case env.Error != "":
				apiErr.Message = env.Error
			case env.Message != "":
				apiErr.Message = env.Message
			}
		}
		span.SetStatus(codes.Error, apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}

	// Normalized unwrapping: the data field when the envelope carries
	// one, the raw body otherwise.
	payload := raw
	if hasEnvelope && len(env.Data) > 0 {
		payload = env.Data
	}
	if err := json.Unmarshal(payload, out); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return &Error{Status: resp.StatusCode, Message: genericFailure, cause: err}
	}
	return nil
}

// fireUnauthorized invokes the 401 hook at most once per authenticated
// stretch. The session re-arms the client on its next authenticated call.
func (c *Client) fireUnauthorized() {
	if c.onUnauthorized == nil {
		return
	}
	if c.armed.CompareAndSwap(true, false) {
		c.metrics.IncForcedLogout()
		c.onUnauthorized()
	}
}
