package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/canopy/pkg/buildinfo"
	cerrors "github.com/matzehuels/canopy/pkg/errors"
)

const (
	// DefaultMaxBytes bounds the size of a fetched body.
	DefaultMaxBytes = 8 << 20

	// DefaultAttempts is the number of tries made by [FetchWithRetry].
	DefaultAttempts = 3

	// DefaultBackoff is the first delay between tries of [FetchWithRetry].
	DefaultBackoff = time.Second

	// DefaultTimeout bounds a single request made with [DefaultClient].
	DefaultTimeout = 30 * time.Second
)

// DefaultClient is used when Fetch is given a nil client.
var DefaultClient = &http.Client{Timeout: DefaultTimeout}

// IsRemote reports whether s is an http or https URL.
func IsRemote(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch GETs rawURL and returns the body. Network errors, 5xx and 429
// responses are wrapped in [RetryableError]; 404 maps to FILE_NOT_FOUND.
func Fetch(ctx context.Context, client *http.Client, rawURL string, maxBytes int64) ([]byte, error) {
	if client == nil {
		client = DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	req.Header.Set("User-Agent", "canopy/"+buildinfo.Version)
	req.Header.Set("Accept", "application/json, application/yaml, application/toml, text/plain, */*")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: fmt.Errorf("fetch %s: %w", rawURL, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, cerrors.New(cerrors.ErrCodeFileNotFound, "dataset %s: 404 not found", rawURL)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &RetryableError{Err: fmt.Errorf("fetch %s: %s", rawURL, resp.Status)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("read %s: %w", rawURL, err)}
	}
	if int64(len(data)) > maxBytes {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "dataset %s exceeds %d bytes", rawURL, maxBytes)
	}
	return data, nil
}

// FetchWithRetry is [Fetch] wrapped in [Retry] with the default settings.
func FetchWithRetry(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	var data []byte
	err := Retry(ctx, DefaultAttempts, DefaultBackoff, func() error {
		var err error
		data, err = Fetch(ctx, client, rawURL, DefaultMaxBytes)
		return err
	})
	return data, err
}
