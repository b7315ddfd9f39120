package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const maxResponseBytes = 1 << 20

// Config holds backend connection settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
	Metrics   *Metrics
}

// Client talks to the shopping-list backend. It carries the session
// credential both as a cookie (via its jar) and as a bearer token.
type Client struct {
	mu         sync.RWMutex
	cfg        Config
	base       *url.URL
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *Metrics
}

// NewClient creates a client for the backend at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "shoplist"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		cfg:  cfg,
		base: base,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// SetToken sets the bearer credential sent with every request. An empty
// token also drops the cookies the backend set.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	if token == "" {
		if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
			c.httpClient.Jar = jar
		}
	}
}

// Token returns the current bearer credential.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// response is a decoded reply. Transport and decoding failures never
// produce one; they are returned as errors from do.
type response struct {
	status int
	env    envelope
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300 && !r.env.failed()
}

// decode unmarshals the envelope's data into v.
func (r *response) decode(op string, v any) error {
	if len(r.env.Data) == 0 || bytes.Equal(r.env.Data, []byte("null")) {
		return Errorf(KindProtocol, op, "response has no data")
	}
	if err := json.Unmarshal(r.env.Data, v); err != nil {
		return wrap(KindProtocol, op, fmt.Errorf("decode data: %w", err))
	}
	return nil
}

// decodeOptional is decode for routes where data may legitimately be absent.
func (r *response) decodeOptional(op string, v any) error {
	if len(r.env.Data) == 0 || bytes.Equal(r.env.Data, []byte("null")) {
		return nil
	}
	return r.decode(op, v)
}

// do sends one request and decodes the envelope. It returns an error only
// for network failures and malformed responses; application-level
// rejections are left to the caller.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (resp *response, err error) {
	start := time.Now()
	defer func() { c.metrics.observe(op, start, err) }()

	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, wrap(KindProtocol, op, fmt.Errorf("parse path: %w", err))
	}
	target := c.base.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, wrap(KindProtocol, op, fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, wrap(KindProtocol, op, fmt.Errorf("create request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Request-ID", requestID)

	c.mu.RLock()
	token := c.token
	httpClient := c.httpClient
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.logger.With("op", op, "request_id", requestID)

	res, err := httpClient.Do(req)
	if err != nil {
		logger.Warn("api request failed", "method", method, "path", target.Path, "error", err)
		return nil, wrap(KindNetwork, op, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, wrap(KindNetwork, op, fmt.Errorf("read response: %w", err))
	}

	logger.Debug("api request", "method", method, "path", target.Path, "status", res.StatusCode,
		"duration", time.Since(start))

	resp = &response{status: res.StatusCode}

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, Errorf(KindTooManyAttempts, op, "rate limited by server")
	case res.StatusCode >= 500:
		return nil, wrap(KindNetwork, op, fmt.Errorf("server returned %d", res.StatusCode))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil
	}

	if err := json.Unmarshal(raw, &resp.env); err != nil {
		logger.Error("malformed api response", "status", res.StatusCode, "error", err)
		return nil, wrap(KindProtocol, op, fmt.Errorf("decode envelope: %w", err))
	}
	return resp, nil
}

// rejection maps a non-ok response to a taxonomy error. fallback is used
// when the HTTP status does not determine the kind.
func (r *response) rejection(op string, fallback Kind) *Error {
	var st status
	_ = json.Unmarshal(r.env.Data, &st)
	msg := st.Error
	if msg == "" {
		msg = st.Message
	}
	if msg == "" {
		msg = r.env.Message
	}
	if msg == "" {
		msg = http.StatusText(r.status)
	}

	kind := fallback
	switch r.status {
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusConflict:
		kind = KindConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		if fallback != KindInvalidCredentials && fallback != KindInvalidCode {
			kind = KindUnauthorized
		}
	}
	if strings.EqualFold(strings.TrimSpace(r.env.Message), messageNotAuthorized) {
		kind = KindUnauthorized
	}
	return &Error{Kind: kind, Op: op, Message: msg}
}

// expect performs a request that has no meaningful payload beyond the
// status envelope.
func (c *Client) expect(ctx context.Context, op, method, path string, body any, fallback Kind) error {
	resp, err := c.do(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.rejection(op, fallback)
	}
	// Some routes answer with an array or scalar. Only an object can carry
	// a success flag.
	data := bytes.TrimSpace(resp.env.Data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var st status
	if err := resp.decode(op, &st); err != nil {
		return err
	}
	if st.rejected() {
		return resp.rejection(op, fallback)
	}
	return nil
}
