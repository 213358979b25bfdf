// Package logclient sends trial records to the log service without blocking
// the caller.
package logclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tuigrid/internal/model"
)

const defaultTimeout = 10 * time.Second

// OutcomeFunc is called once per reported record with the transmission
// result. It runs on the sending goroutine.
type OutcomeFunc func(rec model.TrialRecord, err error)

// Client posts trial records to {baseURL}/log_interaction.
type Client struct {
	baseURL   string
	http      *http.Client
	log       *zap.Logger
	onOutcome OutcomeFunc

	wg sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithOutcome registers a callback for transmission results.
func WithOutcome(fn OutcomeFunc) Option {
	return func(c *Client) {
		c.onOutcome = fn
	}
}

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Report sends rec in the background and returns immediately. Failures are
// not retried.
func (c *Client) Report(rec model.TrialRecord) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.post(context.Background(), rec)
		if err != nil {
			c.log.Debug("trial log not delivered",
				zap.String("session", rec.SessionID),
				zap.Int("trial", rec.TrialNumber),
				zap.Error(err))
		}
		if c.onOutcome != nil {
			c.onOutcome(rec, err)
		}
	}()
}

// Wait blocks until in-flight reports finish or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) post(ctx context.Context, rec model.TrialRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode trial: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/log_interaction", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("log service returned %s", resp.Status)
	}
	return nil
}

// Download copies the session's CSV export from route into w.
func (c *Client) Download(ctx context.Context, route string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+route, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download session data: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv") {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("download failed: %s", strings.TrimSpace(string(msg)))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to write session data: %w", err)
	}
	return nil
}
