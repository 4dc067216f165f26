package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
	"github.com/swipswaps/cursor-appimage-installer/internal/version"
)

// Options tunes a single download.
type Options struct {
	// ExpectedSHA256 is an optional hex-encoded reference digest. When set,
	// a mismatch is fatal and the temporary file is removed.
	ExpectedSHA256 string
	// Retries is the bounded attempt count for transient failures.
	Retries int
	// Timeout bounds connection setup, response headers, and gaps between
	// received bytes. A transfer that keeps delivering data is never cut
	// off. Zero disables the guard.
	Timeout time.Duration
	// Label names the download in progress logs.
	Label string
}

var (
	// ErrChecksumMismatch is returned when the computed digest differs from
	// the caller-supplied reference. The artifact is discarded.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// errBadHTTPStatus is returned for non-2xx responses.
	errBadHTTPStatus = errors.New("unexpected http status")
	// errEmptyBody is returned when the server sends no content.
	errEmptyBody = errors.New("empty response body")
	// errStalled is returned when the body stops arriving for longer than
	// the configured timeout.
	errStalled = errors.New("download stalled")
)

const (
	// tempPattern names in-flight downloads inside the destination directory.
	tempPattern = ".download-*.partial"

	// initialBackoffInterval is the first delay between retry attempts.
	initialBackoffInterval = 2 * time.Second

	// progressStep is the percentage granularity of progress logs.
	progressStep = 10

	// indeterminateStep is the byte granularity when the length is unknown.
	indeterminateStep = 32 << 20
)

// Fetch streams url into a temporary file inside dir, computing a SHA-256
// digest over the stream in a single pass. On success it returns the
// temporary file path and the hex digest; the caller owns moving the file
// into place. On any failure path no temporary file is left behind.
func Fetch(ctx context.Context, url, dir string, opts Options) (string, string, error) {
	if opts.Retries <= 0 {
		opts.Retries = 1
	}

	if opts.Label == "" {
		opts.Label = "Downloading"
	}

	client := newHTTPClient(opts.Timeout)

	var (
		tempPath string
		digest   string
		attempt  int
	)

	operation := func() error {
		attempt++

		path, sum, err := fetchOnce(ctx, client, url, dir, opts)
		if err != nil {
			logger.Warnf(ctx, "%s failed (attempt %d/%d): %v",
				opts.Label, attempt, opts.Retries, err)

			return err
		}

		tempPath, digest = path, sum

		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(initialBackoffInterval)),
			uint64(opts.Retries-1)),
		ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return "", "", fmt.Errorf("failed to download after %d attempts: %w", opts.Retries, err)
	}

	return tempPath, digest, nil
}

// newHTTPClient bounds connection setup and response header latency with
// timeout. The body read is guarded separately by a stall watchdog, so a
// slow but progressing transfer is never cut off mid-stream.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		return &http.Client{}
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: timeout,
			}).DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
		},
	}
}

// fetchOnce performs a single attempt. Its temporary file is removed on
// every error path, including checksum mismatch.
func fetchOnce(ctx context.Context, client *http.Client, url, dir string, opts Options) (string, string, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})

	if opts.Timeout > 0 {
		attemptCtx, cancel = context.WithCancel(ctx)
	}

	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", "", backoff.Permanent(err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := client.Do(req)
	if err != nil {
		return "", "", err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return "", "", fmt.Errorf("%s: %w", response.Status, errBadHTTPStatus)
	}

	tempFile, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return "", "", backoff.Permanent(fmt.Errorf("create temporary file: %w", err))
	}

	tempPath := tempFile.Name()

	discard := func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}

	hasher := sha256.New()
	progress := newProgressWriter(ctx, opts.Label, response.ContentLength)

	var body io.Reader = response.Body

	var guard *stallGuard
	if opts.Timeout > 0 {
		guard = newStallGuard(cancel, opts.Timeout)
		defer guard.stop()

		body = guard.wrap(response.Body)
	}

	written, err := io.Copy(io.MultiWriter(tempFile, hasher, progress), body)
	if err != nil {
		discard()

		if guard != nil && guard.tripped() {
			return "", "", fmt.Errorf("stream body: %w: no data for %s", errStalled, opts.Timeout)
		}

		return "", "", fmt.Errorf("stream body: %w", err)
	}

	if written == 0 {
		discard()
		return "", "", errEmptyBody
	}

	if err = tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", "", fmt.Errorf("close temporary file: %w", err)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	if opts.ExpectedSHA256 != "" && digest != opts.ExpectedSHA256 {
		_ = os.Remove(tempPath)

		return "", "", backoff.Permanent(fmt.Errorf("%w: got %s, want %s",
			ErrChecksumMismatch, digest, opts.ExpectedSHA256))
	}

	return tempPath, digest, nil
}

// stallGuard cancels an in-flight request when no bytes arrive within the
// configured interval. Each successful read rearms the timer, so an actively
// progressing transfer runs to completion no matter how long it takes.
type stallGuard struct {
	timer   *time.Timer
	timeout time.Duration
	fired   atomic.Bool
}

func newStallGuard(cancel context.CancelFunc, timeout time.Duration) *stallGuard {
	guard := &stallGuard{timeout: timeout}
	guard.timer = time.AfterFunc(timeout, func() {
		guard.fired.Store(true)
		cancel()
	})

	return guard
}

// wrap returns a reader that rearms the watchdog on every chunk received.
func (g *stallGuard) wrap(r io.Reader) io.Reader {
	return &stallGuardedReader{reader: r, guard: g}
}

func (g *stallGuard) stop() {
	g.timer.Stop()
}

func (g *stallGuard) tripped() bool {
	return g.fired.Load()
}

type stallGuardedReader struct {
	reader io.Reader
	guard  *stallGuard
}

func (r *stallGuardedReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.guard.timer.Reset(r.guard.timeout)
	}

	return n, err
}

// progressWriter logs bytes received against the declared content length,
// or absolute byte counts when the length is unknown.
type progressWriter struct {
	ctx      context.Context
	label    string
	total    int64
	received int64
	lastMark int64
}

func newProgressWriter(ctx context.Context, label string, total int64) *progressWriter {
	return &progressWriter{
		ctx:   ctx,
		label: label,
		total: total,
	}
}

// Write implements io.Writer, emitting a log line per progress step.
func (p *progressWriter) Write(b []byte) (int, error) {
	p.received += int64(len(b))

	if p.total > 0 {
		percent := p.received * 100 / p.total
		if percent/progressStep > p.lastMark {
			p.lastMark = percent / progressStep
			logger.Infof(p.ctx, "%s: %d%%", p.label, percent)
		}

		return len(b), nil
	}

	if p.received/indeterminateStep > p.lastMark {
		p.lastMark = p.received / indeterminateStep
		logger.Infof(p.ctx, "%s: %d MiB", p.label, p.received>>20)
	}

	return len(b), nil
}
