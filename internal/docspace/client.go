// Package docspace is a client for the DocSpace REST API.
package docspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/docspace-portals/backend/internal/metrics"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// DefaultRoomCacheTTL is how long a resolved forms room is reused
	DefaultRoomCacheTTL = 5 * time.Minute

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// FolderPageSize is how many entries one folder listing request asks for
	FolderPageSize = 500

	apiPrefix = "/api/2.0"
)

// ErrNotConfigured is returned when the client has no base URL or API key.
var ErrNotConfigured = errors.New("docspace: base URL and API key are required")

// Config holds DocSpace client configuration
type Config struct {
	BaseURL        string
	APIKey         string
	FormsRoomID    string
	FormsRoomTitle string
	Timeout        time.Duration
	RoomCacheTTL   time.Duration
}

// Error is a non-2xx response from the platform.
type Error struct {
	Status  int
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("docspace: %s (status %d): %s", e.Message, e.Status, e.Details)
	}
	return fmt.Sprintf("docspace: %s (status %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a platform 404.
func IsNotFound(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Status == http.StatusNotFound
}

// Client talks to a single DocSpace portal.
type Client struct {
	baseURL *url.URL
	apiKey  string
	cfg     Config
	http    *http.Client
	rooms   *cache.Cache
	logger  *zap.Logger

	pageSize int
}

// NewClient creates a client for cfg.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("docspace: invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RoomCacheTTL <= 0 {
		cfg.RoomCacheTTL = DefaultRoomCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		cfg:     cfg,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    100,
				IdleConnTimeout: 90 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
		rooms:    cache.New(cfg.RoomCacheTTL, 2*cfg.RoomCacheTTL),
		logger:   logger.Named("docspace"),
		pageSize: FolderPageSize,
	}, nil
}

// envelope is the wrapper the platform puts around every payload.
type envelope struct {
	Response   json.RawMessage `json:"response"`
	Status     int             `json:"status"`
	StatusCode int             `json:"statusCode"`
	Error      *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// call performs one API request. op names the operation for logs and metrics.
// When out is non-nil the "response" member of the envelope is decoded into it.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body any, auth string, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + apiPrefix + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("docspace %s: encoding request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("docspace %s: creating request: %w", op, err)
	}
	if auth == "" {
		auth = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordDocSpaceRequest(op, "error", time.Since(start).Seconds())
		c.logger.Warn("request failed", zap.String("op", op), zap.String("url", u.Path), zap.Error(err))
		return fmt.Errorf("docspace %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	metrics.RecordDocSpaceRequest(op, strconv.Itoa(resp.StatusCode), duration.Seconds())
	c.logger.Debug("request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", u.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", duration),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("docspace %s: reading response: %w", op, err)
	}
	if len(data) > MaxResponseSize {
		return fmt.Errorf("docspace %s: response body too large (max %d bytes)", op, MaxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(op, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("docspace %s: decoding response: %w", op, err)
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("docspace %s: decoding payload: %w", op, err)
	}
	return nil
}

func newError(op string, status int, body []byte) *Error {
	e := &Error{Status: status, Message: op + " failed"}
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil && env.Error.Message != "" {
		e.Details = env.Error.Message
		return e
	}
	e.Details = strings.TrimSpace(string(body))
	if len(e.Details) > 512 {
		e.Details = e.Details[:512]
	}
	return e
}

// flexID accepts identifiers encoded as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}
