package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"teraBridgeBot/internal/logger"
	"teraBridgeBot/internal/types"
)

// Phase identifies where in the transfer pipeline a failure occurred.
type Phase string

const (
	PhaseConnect Phase = "connect"
	PhaseStream  Phase = "stream"
	PhaseWrite   Phase = "write"
	PhaseTimeout Phase = "timeout"
)

// TransferError is a download failure tagged with its pipeline phase.
type TransferError struct {
	Phase Phase
	Cause error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed during %s: %v", e.Phase, e.Cause)
}

func (e *TransferError) Unwrap() error { return e.Cause }

// ProgressFunc receives throttled progress updates. totalBytes is the
// running byte count; percent is -1 while the total size is unknown. A
// reporting error is logged and never aborts the transfer.
type ProgressFunc func(totalBytes int64, percent int) error

// Progress updates fire at most once per reportInterval, or whenever the
// completed percentage advances by reportStepPercent.
const (
	reportInterval    = 3 * time.Second
	reportStepPercent = 10
)

// Options configures a Manager.
type Options struct {
	DownloadDir string
	// MaxBytes aborts a stream that grows beyond it. 0 means unlimited.
	MaxBytes int64
	// Watchdog bounds the whole transfer. 0 means no deadline.
	Watchdog time.Duration
	// AcceptPartial keeps a truncated file on watchdog expiry instead of
	// failing the transfer.
	AcceptPartial bool
	UserAgent     string
	Referer       string
}

// Manager performs streaming downloads into the local spool directory.
type Manager struct {
	opts     Options
	client   *http.Client
	sessions *SessionRegistry
	log      *logger.Logger
}

// LocalArtifact is a completed download on disk.
type LocalArtifact struct {
	Path string
	Size int64
	Name string
}

func NewManager(opts Options, sessions *SessionRegistry, log *logger.Logger) *Manager {
	return &Manager{
		opts: opts,
		// No client-level timeout: large files legitimately stream for
		// minutes. The watchdog context bounds the whole operation.
		client:   &http.Client{},
		sessions: sessions,
		log:      log,
	}
}

// Transfer streams url into the spool directory, reporting throttled
// progress through onProgress. expectedSize of 0 means unknown; percent
// reporting is disabled and -1 is passed instead.
func (m *Manager) Transfer(ctx context.Context, requesterID int64, url, fileName string, expectedSize int64, onProgress ProgressFunc) (*LocalArtifact, error) {
	if m.opts.Watchdog > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.Watchdog)
		defer cancel()
	}

	if m.opts.MaxBytes > 0 && expectedSize > m.opts.MaxBytes {
		return nil, &TransferError{
			Phase: PhaseStream,
			Cause: fmt.Errorf("declared size %d exceeds limit %d", expectedSize, m.opts.MaxBytes),
		}
	}

	if m.sessions != nil {
		m.sessions.Begin(requesterID, fileName)
		defer m.sessions.End(requesterID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransferError{Phase: PhaseConnect, Cause: err}
	}
	if m.opts.UserAgent != "" {
		req.Header.Set("User-Agent", m.opts.UserAgent)
	}
	if m.opts.Referer != "" {
		req.Header.Set("Referer", m.opts.Referer)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, m.classify(ctx, PhaseConnect, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransferError{
			Phase: PhaseConnect,
			Cause: fmt.Errorf("upstream returned %s", resp.Status),
		}
	}

	if expectedSize <= 0 && resp.ContentLength > 0 {
		expectedSize = resp.ContentLength
	}

	path, file, err := m.createSpoolFile(fileName)
	if err != nil {
		return nil, &TransferError{Phase: PhaseWrite, Cause: err}
	}

	written, streamErr := m.stream(ctx, file, resp.Body, expectedSize, onProgress)

	if syncErr := file.Sync(); syncErr != nil && streamErr == nil {
		streamErr = &TransferError{Phase: PhaseWrite, Cause: syncErr}
	}
	if closeErr := file.Close(); closeErr != nil && streamErr == nil {
		streamErr = &TransferError{Phase: PhaseWrite, Cause: closeErr}
	}

	if streamErr != nil {
		var te *TransferError
		if errors.As(streamErr, &te) && te.Phase == PhaseTimeout && m.opts.AcceptPartial && written > 0 {
			m.log.Warningf("Keeping partial download of %s (%d bytes) after watchdog expiry", fileName, written)
			return &LocalArtifact{Path: path, Size: written, Name: filepath.Base(path)}, nil
		}
		os.Remove(path)
		return nil, streamErr
	}

	m.log.Infof("Downloaded %s (%d bytes) for %d", fileName, written, requesterID)
	return &LocalArtifact{Path: path, Size: written, Name: filepath.Base(path)}, nil
}

func (m *Manager) stream(ctx context.Context, dst io.Writer, src io.Reader, expectedSize int64, onProgress ProgressFunc) (int64, error) {
	var (
		written     int64
		lastReport  time.Time
		lastPercent = -1
		buf         = make([]byte, 128*1024)
	)

	report := func(force bool) {
		if onProgress == nil {
			return
		}
		percent := -1
		if expectedSize > 0 {
			percent = int(written * 100 / expectedSize)
			if percent > 100 {
				percent = 100
			}
			// Monotonic: never report a lower percentage than before.
			if percent < lastPercent {
				percent = lastPercent
			}
		}
		due := time.Since(lastReport) >= reportInterval ||
			(percent >= 0 && percent >= lastPercent+reportStepPercent)
		if !force && !due {
			return
		}
		if err := onProgress(written, percent); err != nil {
			m.log.Debugf("Progress report failed: %v", err)
		}
		lastReport = time.Now()
		if percent > lastPercent {
			lastPercent = percent
		}
	}

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if m.opts.MaxBytes > 0 && written+int64(n) > m.opts.MaxBytes {
				return written, &TransferError{
					Phase: PhaseStream,
					Cause: fmt.Errorf("stream exceeded limit %d", m.opts.MaxBytes),
				}
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, &TransferError{Phase: PhaseWrite, Cause: werr}
			}
			written += int64(n)
			report(false)
		}
		if err == io.EOF {
			report(true)
			return written, nil
		}
		if err != nil {
			return written, m.classify(ctx, PhaseStream, err)
		}
	}
}

// classify maps a context deadline expiry to the timeout phase so callers
// can distinguish "took too long" from network failures.
func (m *Manager) classify(ctx context.Context, phase Phase, err error) *TransferError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &TransferError{Phase: PhaseTimeout, Cause: err}
	}
	return &TransferError{Phase: phase, Cause: err}
}

// createSpoolFile opens a fresh file under the download directory,
// suffixing the name when a previous download left a collision behind.
func (m *Manager) createSpoolFile(fileName string) (string, *os.File, error) {
	if err := os.MkdirAll(m.opts.DownloadDir, 0o755); err != nil {
		return "", nil, err
	}

	base := sanitizeFileName(fileName)
	for attempt := 0; attempt < 100; attempt++ {
		name := base
		if attempt > 0 {
			ext := filepath.Ext(base)
			name = fmt.Sprintf("%s.%d%s", strings.TrimSuffix(base, ext), attempt, ext)
		}
		path := filepath.Join(m.opts.DownloadDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", nil, err
		}
	}
	return "", nil, fmt.Errorf("could not allocate spool file for %q", fileName)
}

// Cleanup removes a spooled artifact after delivery.
func (m *Manager) Cleanup(a *LocalArtifact) {
	if a == nil {
		return
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.log.Warningf("Failed to remove spool file %s: %v", a.Path, err)
	}
}

// sanitizeFileName strips path separators and control characters so an
// upstream-supplied name cannot escape the spool directory.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20, r == '/', r == '\\', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return types.DefaultFileName
	}
	return out
}
