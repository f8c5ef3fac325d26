package transfer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"teraBridgeBot/internal/logger"
	"teraBridgeBot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, "", logger.FATAL, false)
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.DownloadDir == "" {
		opts.DownloadDir = t.TempDir()
	}
	return NewManager(opts, nil, testLogger())
}

func TestTransferDownloadsFile(t *testing.T) {
	payload := strings.Repeat("x", 64*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		io.WriteString(w, payload)
	}))
	defer srv.Close()

	m := newTestManager(t, Options{UserAgent: "test-agent"})
	art, err := m.Transfer(context.Background(), 42, srv.URL, "video.mp4", int64(len(payload)), nil)
	require.NoError(t, err)
	defer m.Cleanup(art)

	assert.Equal(t, int64(len(payload)), art.Size)
	assert.Equal(t, "video.mp4", art.Name)

	data, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	assert.Len(t, data, len(payload))
}

func TestTransferReportsProgress(t *testing.T) {
	payload := strings.Repeat("x", 256*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, payload)
	}))
	defer srv.Close()

	var reports []int
	m := newTestManager(t, Options{})
	art, err := m.Transfer(context.Background(), 42, srv.URL, "f.bin", int64(len(payload)),
		func(total int64, percent int) error {
			reports = append(reports, percent)
			return nil
		})
	require.NoError(t, err)
	defer m.Cleanup(art)

	require.NotEmpty(t, reports)
	// Final report always fires and reaches 100 when the size is known.
	assert.Equal(t, 100, reports[len(reports)-1])
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i], reports[i-1], "percent must be monotonic")
	}
}

func TestTransferProgressErrorDoesNotAbort(t *testing.T) {
	payload := strings.Repeat("x", 256*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, payload)
	}))
	defer srv.Close()

	m := newTestManager(t, Options{})
	art, err := m.Transfer(context.Background(), 42, srv.URL, "f.bin", int64(len(payload)),
		func(total int64, percent int) error {
			return assert.AnError
		})
	require.NoError(t, err)
	m.Cleanup(art)
}

func TestTransferUpstreamErrorIsConnectPhase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer srv.Close()

	m := newTestManager(t, Options{})
	_, err := m.Transfer(context.Background(), 42, srv.URL, "f.bin", 0, nil)
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseConnect, te.Phase)
}

func TestTransferEnforcesSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Lie about the length, then stream more than the limit.
		w.Header().Set("Content-Length", "1024")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, strings.Repeat("x", 64*1024))
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := newTestManager(t, Options{DownloadDir: dir, MaxBytes: 8 * 1024})
	_, err := m.Transfer(context.Background(), 42, srv.URL, "f.bin", 0, nil)
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseStream, te.Phase)

	// The truncated spool file must be removed on failure.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestTransferRejectsDeclaredOversize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("body must not be fetched")
	}))
	defer srv.Close()

	m := newTestManager(t, Options{MaxBytes: 1024})
	_, err := m.Transfer(context.Background(), 42, srv.URL, "f.bin", 1<<30, nil)
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseStream, te.Phase)
}

func TestTransferWatchdogTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	m := newTestManager(t, Options{Watchdog: 100 * time.Millisecond})
	_, err := m.Transfer(context.Background(), 42, srv.URL, "f.bin", 0, nil)
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseTimeout, te.Phase)
}

func TestTransferAcceptPartialKeepsBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("x", 4096))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	m := newTestManager(t, Options{Watchdog: 200 * time.Millisecond, AcceptPartial: true})
	art, err := m.Transfer(context.Background(), 42, srv.URL, "f.bin", 0, nil)
	require.NoError(t, err)
	defer m.Cleanup(art)
	assert.Equal(t, int64(4096), art.Size)
}

func TestTransferDeduplicatesFileNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data")
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := newTestManager(t, Options{DownloadDir: dir})

	a, err := m.Transfer(context.Background(), 1, srv.URL, "clip.mp4", 4, nil)
	require.NoError(t, err)
	b, err := m.Transfer(context.Background(), 2, srv.URL, "clip.mp4", 4, nil)
	require.NoError(t, err)

	assert.Equal(t, "clip.mp4", a.Name)
	assert.Equal(t, "clip.1.mp4", b.Name)
	assert.NotEqual(t, a.Path, b.Path)
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"plain.mp4":           "plain.mp4",
		"../../etc/passwd":    "passwd",
		"a/b/c.mkv":           "c.mkv",
		"bad:name*?.mp4":      "bad_name__.mp4",
		"  spaced.mp4  ":      "spaced.mp4",
		"":                    types.DefaultFileName,
		"..":                  types.DefaultFileName,
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFileName(in), "input %q", in)
	}
}

func TestCleanupRemovesArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	m := newTestManager(t, Options{DownloadDir: dir})
	m.Cleanup(&LocalArtifact{Path: path})
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
