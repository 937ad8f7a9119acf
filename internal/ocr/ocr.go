package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds OCR.space API settings. Zero values get the defaults below.
type Config struct {
	APIKey   string
	Endpoint string // default "https://api.ocr.space/parse/image"
	Language string // default "eng"
	Engine   int    // default 2; engine 2 handles dense card layouts better

	// MinInterval is the minimum gap between API calls. The free tier
	// throttles aggressively, so calls are spaced client-side.
	// Negative disables the spacing.
	MinInterval time.Duration // default 2s

	MaxRetries int           // default 3
	RetryWait  time.Duration // base backoff unit, default 5s; waits grow 1x,2x,3x
	Timeout    time.Duration // per-request, default 60s
}

// Result is the outcome of one recognition call.
type Result struct {
	Text       string
	Duration   time.Duration
	Confidence float32
	Warnings   []string
}

// ErrRateLimited marks a terminal rate-limit failure after all retries.
var ErrRateLimited = errors.New("ocr rate limit exceeded")

// Client calls the OCR.space parse API. The embedded rate limiter is the
// only shared state; it is owned by the client and mutex guarded, so a
// single client is safe for concurrent use.
type Client struct {
	cfg    Config
	hc     *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	lastCall time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.ocr.space/parse/image"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Engine <= 0 {
		cfg.Engine = 2
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	} else if cfg.MinInterval == 0 {
		cfg.MinInterval = 2 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		hc:     &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// parseResponse mirrors the fields of the OCR.space reply that matter here.
type parseResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool         `json:"IsErroredOnProcessing"`
	ErrorMessage          errorMessage `json:"ErrorMessage"`
}

// errorMessage tolerates both forms the API sends: a single string and a
// list of strings.
type errorMessage string

func (m *errorMessage) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = errorMessage(s)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		*m = errorMessage(strings.Join(many, "; "))
		return nil
	}
	*m = errorMessage(string(b))
	return nil
}

// Recognize uploads the file at path and returns the recognized text.
// Rate-limit replies retry with growing waits; timeouts retry after the
// base wait. Other processing errors are terminal.
func (c *Client) Recognize(ctx context.Context, path string) (Result, error) {
	start := time.Now()

	src, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read image: %w", err)
	}

	var res Result
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.waitTurn(ctx); err != nil {
			return Result{}, err
		}

		text, callErr := c.call(ctx, filepath.Base(path), src)
		if callErr == nil {
			res.Text = text
			res.Duration = time.Since(start)
			res.Confidence = heuristicConfidence(text)
			c.logger.Info("ocr.ok",
				"path", path,
				"attempt", attempt,
				"bytes", len(text),
				"confidence", res.Confidence,
				"elapsed_ms", res.Duration.Milliseconds(),
			)
			return res, nil
		}

		switch {
		case isRateLimit(callErr):
			if attempt == c.cfg.MaxRetries {
				return Result{}, fmt.Errorf("%w after %d attempts", ErrRateLimited, attempt)
			}
			wait := time.Duration(attempt) * c.cfg.RetryWait
			c.logger.Warn("ocr.rate_limited", "attempt", attempt, "wait", wait.String())
			if err := sleepCtx(ctx, wait); err != nil {
				return Result{}, err
			}
		case isTimeout(callErr):
			if attempt == c.cfg.MaxRetries {
				return Result{}, fmt.Errorf("ocr API timeout after %d attempts: %w", attempt, callErr)
			}
			c.logger.Warn("ocr.timeout", "attempt", attempt)
			if err := sleepCtx(ctx, c.cfg.RetryWait); err != nil {
				return Result{}, err
			}
		default:
			return Result{}, callErr
		}
	}
	return Result{}, fmt.Errorf("ocr failed after %d attempts", c.cfg.MaxRetries)
}

// call performs one API request and decodes the reply.
func (c *Client) call(ctx context.Context, filename string, src []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("multipart file: %w", err)
	}
	if _, err := fw.Write(src); err != nil {
		return "", fmt.Errorf("multipart write: %w", err)
	}
	fields := map[string]string{
		"apikey":            c.cfg.APIKey,
		"language":          c.cfg.Language,
		"isOverlayRequired": "false",
		"detectOrientation": "true",
		"scale":             "true",
		"OCREngine":         strconv.Itoa(c.cfg.Engine),
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("multipart close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("ocr.body_close_error", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr API status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var pr parseResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if pr.IsErroredOnProcessing {
		msg := string(pr.ErrorMessage)
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "rate limit") || strings.Contains(lower, "quota") {
			return "", fmt.Errorf("%w: %s", ErrRateLimited, msg)
		}
		return "", fmt.Errorf("ocr error: %s", msg)
	}
	if len(pr.ParsedResults) == 0 {
		return "", nil
	}
	return pr.ParsedResults[0].ParsedText, nil
}

// waitTurn enforces the minimum interval between calls.
func (c *Client) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	wait := c.cfg.MinInterval - now.Sub(c.lastCall)
	if wait < 0 {
		wait = 0
	}
	c.lastCall = now.Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		c.logger.Info("ocr.rate_limiting", "wait_ms", wait.Milliseconds())
		return sleepCtx(ctx, wait)
	}
	return nil
}

func isRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
