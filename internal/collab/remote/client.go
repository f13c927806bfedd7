// Package remote talks to the HTTP screening backend (/parse_jd, /score, /analytics, /chat).
package remote

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	userAgent       = "spigell/cv-screener"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	maxLogLength      = 512
)

// Config describes the backend endpoint.
type Config struct {
	BaseURL    string        `mapstructure:"base-url"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max-retries"`
}

type Client struct {
	baseURL    string
	token      string
	maxRetries int
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string

	newBackOff func() backoff.BackOff
}

func New(cfg Config, log *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("remote collaborator base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = defaultMaxRetries
	}

	return &Client{
		baseURL:    base,
		token:      strings.TrimSpace(cfg.Token),
		maxRetries: retries,
		logger:     logger.ForCollaborator(log, "remote"),
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  userAgent,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}, nil
}

// statusError is a non-2xx reply of the backend.
type statusError struct {
	path   string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: bad status %d: %s", e.path, e.status, e.body)
}

// postJSON sends in to path and decodes the reply into out. Transport errors, 429 and
// 5xx replies are retried; other 4xx replies fail at once.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	attempt := 0
	op := func() error {
		attempt++

		// The body reader is rebuilt on every attempt.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req)

		c.logger.Debug("make request",
			zap.String("url", req.URL.String()),
			zap.Int("attempt", attempt),
			zap.String("body_preview", utils.TruncateForLog(string(body), maxLogLength)),
		)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := readBody(resp)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			serr := &statusError{path: path, status: resp.StatusCode, body: utils.TruncateForLog(string(data), maxLogLength)}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(serr)
			}
			c.logger.Warn("retryable backend reply", zap.String("path", path), zap.Int("status", resp.StatusCode))
			return serr
		}

		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: decode %s reply: %v", screening.ErrUpstream, path, err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("User-Agent", c.UserAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(reader)
}
