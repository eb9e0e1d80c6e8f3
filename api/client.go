package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is the per-call deadline used when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

const (
	maxBodyBytes     = 8 << 20
	diagnosticPrefix = 120
	requestIDHeader  = "X-Request-ID"
)

// Logger receives diagnostics for failed, non-silent calls. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Config configures a [Client].
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Location is the time zone used to render check-in dates. Defaults to Asia/Makassar,
	// falling back to UTC when the zone database is unavailable.
	Location *time.Location
}

// Option customizes a [Client].
type Option func(*Client)

// WithHTTPClient replaces the transport. Its Timeout is ignored in favour of the
// per-call deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the diagnostics sink. A nil logger disables logging.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRequestIDs toggles the X-Request-ID header.
func WithRequestIDs(enabled bool) Option {
	return func(c *Client) {
		c.requestIDs = enabled
	}
}

// Client talks to one SIKAD backend. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	timeout    time.Duration
	userAgent  string
	location   *time.Location
	http       *http.Client
	logger     Logger
	requestIDs bool
}

// New validates cfg and returns a [Client].
func New(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("api base URL required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base URL scheme %q", base.Scheme)
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("api timeout must not be negative")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = defaultLocation()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "sikad-go"
	}

	c := &Client{
		base:       base,
		timeout:    cfg.Timeout,
		userAgent:  cfg.UserAgent,
		location:   cfg.Location,
		http:       &http.Client{},
		logger:     log.Default(),
		requestIDs: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Timeout returns the per-call deadline.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Location returns the time zone used for check-in/check-out fields.
func (c *Client) Location() *time.Location {
	return c.location
}

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Makassar")
	if err != nil {
		return time.FixedZone("WITA", 8*60*60)
	}
	return loc
}

type request struct {
	method string
	path   string
	token  string
	// body is JSON-encoded unless form is set.
	body any
	form *multipartBody
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// call executes req and folds every outcome into a Response.
func call[T any](ctx context.Context, c *Client, req request) Response[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	silent := IsSilent(ctx)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.newHTTPRequest(callCtx, req)
	if err != nil {
		res := failure[T](KindInvalidRequest, 0, err.Error())
		c.logFailure(silent, req, res)
		return res
	}
	requestID := httpReq.Header.Get(requestIDHeader)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		res := transportFailure[T](ctx, err)
		res.RequestID = requestID
		c.logFailure(silent, req, res)
		return res
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		res := transportFailure[T](ctx, err)
		res.Status = resp.StatusCode
		res.RequestID = requestID
		c.logFailure(silent, req, res)
		return res
	}

	res := decodeEnvelope[T](resp.StatusCode, body)
	res.RequestID = requestID
	if !res.Success && (res.Kind == KindMalformed || resp.StatusCode >= 300) {
		c.logFailure(silent, req, res)
	}
	return res
}

func (c *Client) newHTTPRequest(ctx context.Context, req request) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.form != nil:
		buf, ct, err := req.form.encode()
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.body != nil:
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if c.requestIDs {
		httpReq.Header.Set(requestIDHeader, uuid.NewString())
	}
	return httpReq, nil
}

// transportFailure classifies a client.Do or body read error. parent is the caller's
// context, before the per-call deadline was applied.
func transportFailure[T any](parent context.Context, err error) Response[T] {
	if errors.Is(parent.Err(), context.Canceled) {
		return failure[T](KindCanceled, 0, MessageCanceled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failure[T](KindTimeout, 0, MessageTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failure[T](KindTimeout, 0, MessageTimeout)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return failure[T](KindNetwork, 0, "Network request failed: "+err.Error())
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func decodeEnvelope[T any](status int, body []byte) Response[T] {
	ok2xx := status >= 200 && status < 300

	if len(bytes.TrimSpace(body)) == 0 {
		if ok2xx {
			return Response[T]{Success: true, Status: status}
		}
		return failure[T](KindRejected, status, defaultStatusMessage(status))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return failure[T](KindMalformed, status, "Invalid response from server: "+truncate(body, diagnosticPrefix))
	}

	message := env.Message
	if message == "" {
		message = env.Error
	}

	if !ok2xx {
		if message == "" {
			message = defaultStatusMessage(status)
		}
		return failure[T](KindRejected, status, message)
	}

	if env.Success == nil {
		return failure[T](KindMalformed, status, "Invalid response from server: missing success flag")
	}
	if !*env.Success {
		if message == "" {
			message = MessageDefault
		}
		return failure[T](KindRejected, status, message)
	}

	res := Response[T]{Success: true, Status: status, Message: message}
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, &res.Data); err != nil {
			return failure[T](KindMalformed, status, "Invalid response from server: unexpected data shape")
		}
	}
	return res
}

func defaultStatusMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return MessageDefault + " (" + text + ")"
	}
	return MessageDefault
}

func truncate(body []byte, n int) string {
	s := strings.TrimSpace(string(body))
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func (c *Client) logFailure(silent bool, req request, res interface{ Err() error }) {
	if silent || c.logger == nil {
		return
	}
	var apiErr *Error
	if errors.As(res.Err(), &apiErr) && (apiErr.Kind == KindTimeout || apiErr.Kind == KindCanceled) {
		return
	}
	c.logger.Printf("sikad: api %s %s failed: %v", req.method, req.path, res.Err())
}
