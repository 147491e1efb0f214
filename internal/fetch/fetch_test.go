package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redirectChain answers /hop/<n> with a 302 to /hop/<n-1> and /hop/0 with
// the payload.
func redirectChain(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		if _, err := fmt.Sscanf(r.URL.Path, "/hop/%d", &n); err != nil {
			http.NotFound(w, r)
			return
		}
		if n == 0 {
			w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
			_, _ = w.Write([]byte(payload))
			return
		}
		// Relative location, resolved against the current URL.
		http.Redirect(w, r, fmt.Sprintf("%d", n-1), http.StatusFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type countingRecorder struct {
	outcomes []string
	bytes    int64
}

func (r *countingRecorder) DownloadFinished(outcome string, bytes int64) {
	r.outcomes = append(r.outcomes, outcome)
	r.bytes += bytes
}

func TestFetchFollowsFiveRedirects(t *testing.T) {
	srv := redirectChain(t, "model-bytes")
	rec := &countingRecorder{}
	c := New(WithProgress(nil), WithRecorder(rec))

	dest := filepath.Join(t.TempDir(), "nested", "model.onnx")
	require.NoError(t, c.Fetch(context.Background(), srv.URL+"/hop/5", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "model-bytes", string(data))
	assert.Equal(t, []string{"success"}, rec.outcomes)
	assert.Equal(t, int64(len("model-bytes")), rec.bytes)
}

func TestFetchRejectsSixRedirects(t *testing.T) {
	srv := redirectChain(t, "model-bytes")
	rec := &countingRecorder{}
	c := New(WithProgress(nil), WithRecorder(rec))

	dest := filepath.Join(t.TempDir(), "model.onnx")
	err := c.Fetch(context.Background(), srv.URL+"/hop/6", dest)
	require.ErrorIs(t, err, ErrTooManyRedirects)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, []string{"failure"}, rec.outcomes)
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "missing.bin")
	err := New(WithProgress(nil)).Fetch(context.Background(), srv.URL+"/missing.bin", dest)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchRemovesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Promise more than is sent so the body read fails midway.
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "partial.bin")
	err := New(WithProgress(nil)).Fetch(context.Background(), srv.URL, dest)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 0, netErr.StatusCode)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	dest := filepath.Join(t.TempDir(), "x.bin")
	err := New(WithProgress(nil)).Fetch(context.Background(), url, dest)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 0, netErr.StatusCode)
	assert.Error(t, netErr.Err)
}

func TestFetchDirectoryCreationFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := New(WithProgress(nil)).Fetch(context.Background(), "http://127.0.0.1:1/x", filepath.Join(blocker, "sub", "x.bin"))
	require.ErrorIs(t, err, ErrDirectoryCreation)
}

func TestProgressReportsCoarseSteps(t *testing.T) {
	payload := strings.Repeat("a", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		for i := 0; i < len(payload); i += 10 {
			_, _ = w.Write([]byte(payload[i : i+10]))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}))
	defer srv.Close()

	var seen []int
	c := New(WithProgress(func(_ string, percent int, _, _ int64) {
		seen = append(seen, percent)
	}))
	require.NoError(t, c.Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "p.bin")))

	require.NotEmpty(t, seen)
	assert.Equal(t, 100, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		step := seen[i] - seen[i-1]
		assert.True(t, step >= 10 || seen[i] == 100, "step %d -> %d", seen[i-1], seen[i])
	}
}

func TestProgressTrackerUnknownLength(t *testing.T) {
	calls := 0
	p := newProgressTracker("u", -1, func(string, int, int64, int64) { calls++ })
	_, _ = p.Write([]byte("abc"))
	assert.Zero(t, calls)
	assert.Equal(t, int64(3), p.received)
}
