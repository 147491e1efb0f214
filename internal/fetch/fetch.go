package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// MaxRedirects is the number of redirect hops followed before giving up.
const MaxRedirects = 5

var (
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrDirectoryCreation = errors.New("failed to create directory")
)

// NetworkError reports a transport failure (StatusCode 0) or a non-2xx
// terminal response.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed with HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Recorder receives download outcomes. A nil Recorder is allowed.
type Recorder interface {
	DownloadFinished(outcome string, bytes int64)
}

// Client streams remote assets to disk.
type Client struct {
	httpClient *http.Client
	progress   ProgressFunc
	recorder   Recorder
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport. Its redirect policy is
// overridden so hops can be counted here.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		c.httpClient = &clone
	}
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// WithRecorder reports every finished download to r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// New creates a downloader. No request timeout is set; cancellation comes
// from the context.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		progress:   LogProgress,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}

// Fetch downloads rawURL into dest. On any failure dest is removed.
func (c *Client) Fetch(ctx context.Context, rawURL, dest string) (err error) {
	var written int64
	defer func() {
		if err != nil {
			_ = os.Remove(dest)
			c.record("failure", 0)
			return
		}
		c.record("success", written)
	}()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDirectoryCreation, filepath.Dir(dest), err)
	}

	resp, err := c.follow(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	tracker := newProgressTracker(rawURL, resp.ContentLength, c.progress)
	written, err = io.Copy(file, io.TeeReader(resp.Body, tracker))
	closeErr := file.Close()
	if err != nil {
		return &NetworkError{URL: rawURL, Err: err}
	}
	if closeErr != nil {
		return fmt.Errorf("failed to write %s: %w", dest, closeErr)
	}

	logrus.WithFields(logrus.Fields{
		"url":   rawURL,
		"dest":  dest,
		"bytes": written,
	}).Debug("Download complete")

	return nil
}

// follow issues GET requests until a non-redirect response arrives.
func (c *Client) follow(ctx context.Context, rawURL string) (*http.Response, error) {
	current := rawURL

	for hops := 0; ; hops++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, &NetworkError{URL: current, Err: err}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &NetworkError{URL: current, Err: err}
		}

		if !isRedirect(resp.StatusCode) {
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				resp.Body.Close()
				return nil, &NetworkError{URL: current, StatusCode: resp.StatusCode}
			}
			return resp, nil
		}

		location := resp.Header.Get("Location")
		resp.Body.Close()

		if hops >= MaxRedirects {
			return nil, fmt.Errorf("%w: %s", ErrTooManyRedirects, rawURL)
		}
		if location == "" {
			return nil, &NetworkError{URL: current, StatusCode: resp.StatusCode}
		}

		next, err := resolveLocation(current, location)
		if err != nil {
			return nil, &NetworkError{URL: current, Err: err}
		}

		logrus.WithFields(logrus.Fields{
			"from": current,
			"to":   next,
			"hop":  hops + 1,
		}).Debug("Following redirect")
		current = next
	}
}

func (c *Client) record(outcome string, bytes int64) {
	if c.recorder != nil {
		c.recorder.DownloadFinished(outcome, bytes)
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolveLocation(base, location string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	l, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(l).String(), nil
}
