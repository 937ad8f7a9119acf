package compress

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Config holds Compresto API settings. Zero values get the defaults below.
type Config struct {
	APIKey   string
	Endpoint string        // default "https://api.compresto.app/v1/compress"
	Timeout  time.Duration // default 60s

	// Quality is the first-pass quality; RetryQuality is used for the
	// second pass when the first result is still over MaxBytes.
	Quality      int
	RetryQuality int
	MaxBytes     int64
}

const (
	defaultEndpoint     = "https://api.compresto.app/v1/compress"
	defaultQuality      = 75
	defaultRetryQuality = 50
	defaultMaxBytes     = 1000 * 1024
)

// Client compresses card images through the Compresto API before they are
// sent to OCR, to stay within the OCR provider's upload limits.
type Client struct {
	cfg    Config
	hc     *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Quality <= 0 {
		cfg.Quality = defaultQuality
	}
	if cfg.RetryQuality <= 0 {
		cfg.RetryQuality = defaultRetryQuality
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	return &Client{
		cfg:    cfg,
		hc:     &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Compress sends the file at path to the API and overwrites it with the
// compressed bytes. When the result is still over MaxBytes a second pass
// runs at RetryQuality forcing jpg output. Without an API key this is a
// no-op. The caller treats errors as non-fatal: OCR proceeds on the
// original file.
func (c *Client) Compress(ctx context.Context, path string) error {
	if c.cfg.APIKey == "" {
		c.logger.Debug("compress.skipped", "reason", "no api key")
		return nil
	}

	c.logger.Info("compress.start", "path", path)
	if err := c.compressOnce(ctx, path, c.cfg.Quality, "auto"); err != nil {
		return err
	}

	size, err := fileSize(path)
	if err != nil {
		return err
	}
	c.logger.Info("compress.ok", "path", path, "size_kb", size/1024)

	if size > c.cfg.MaxBytes {
		c.logger.Warn("compress.still_large", "path", path, "size_kb", size/1024)
		if err := c.compressOnce(ctx, path, c.cfg.RetryQuality, "jpg"); err != nil {
			return err
		}
		size, err = fileSize(path)
		if err != nil {
			return err
		}
		c.logger.Info("compress.second_pass_ok", "path", path, "size_kb", size/1024)
	}
	return nil
}

func (c *Client) compressOnce(ctx context.Context, path string, quality int, format string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("multipart image: %w", err)
	}
	if _, err := fw.Write(src); err != nil {
		return fmt.Errorf("multipart write: %w", err)
	}
	_ = mw.WriteField("quality", fmt.Sprintf("%d", quality))
	_ = mw.WriteField("format", format)
	if err := mw.Close(); err != nil {
		return fmt.Errorf("multipart close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("compress.body_close_error", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("compress API status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write compressed image: %w", err)
	}
	c.logger.Debug("compress.pass_done",
		"quality", quality,
		"format", format,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
