package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// requireNoPartials asserts no in-flight temp files remain in dir.
func requireNoPartials(t *testing.T, dir string) {
	t.Helper()

	leftovers, err := filepath.Glob(filepath.Join(dir, ".download-*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

// TestFetch streams content to a temp file and reports the correct digest.
func TestFetch(t *testing.T) {
	t.Parallel()

	payload := []byte("appimage bytes go here")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()

	path, digest, err := Fetch(context.Background(), server.URL, dir, Options{Retries: 1})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	expected := sha256.Sum256(payload)
	require.Equal(t, hex.EncodeToString(expected[:]), digest)
}

// TestFetchChecksumMismatch deletes the temp file and is not retried.
func TestFetchChecksumMismatch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("unexpected content"))
	}))
	defer server.Close()

	dir := t.TempDir()

	_, _, err := Fetch(context.Background(), server.URL, dir, Options{
		Retries:        3,
		ExpectedSHA256: "0000000000000000000000000000000000000000000000000000000000000000",
	})
	require.ErrorIs(t, err, ErrChecksumMismatch)
	require.EqualValues(t, 1, calls.Load())
	requireNoPartials(t, dir)
}

// TestFetchChecksumMatch accepts a correct reference digest.
func TestFetchChecksumMatch(t *testing.T) {
	t.Parallel()

	payload := []byte("verified payload")
	sum := sha256.Sum256(payload)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	path, digest, err := Fetch(context.Background(), server.URL, t.TempDir(), Options{
		Retries:        1,
		ExpectedSHA256: hex.EncodeToString(sum[:]),
	})
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(sum[:]), digest)
	require.FileExists(t, path)
}

// TestFetchRetriesTransientFailures recovers from 5xx and leaves no partials.
func TestFetchRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	payload := []byte("eventually served")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()

	path, _, err := Fetch(context.Background(), server.URL, dir, Options{Retries: 3})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

// TestFetchExhaustedRetries fails after the bounded attempt count with a clean dir.
func TestFetchExhaustedRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()

	_, _, err := Fetch(context.Background(), server.URL, dir, Options{
		Retries: 2,
		Timeout: time.Second,
	})
	require.Error(t, err)
	require.EqualValues(t, 2, calls.Load())
	requireNoPartials(t, dir)
}

// TestFetchSlowTransferNotCutOff keeps a download alive past the timeout as
// long as bytes keep arriving.
func TestFetchSlowTransferNotCutOff(t *testing.T) {
	t.Parallel()

	payload := []byte("slowly delivered payload")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		for _, b := range payload {
			_, _ = w.Write([]byte{b})
			flusher.Flush()
			time.Sleep(40 * time.Millisecond)
		}
	}))
	defer server.Close()

	dir := t.TempDir()

	// The whole transfer takes far longer than the timeout; the gaps between
	// bytes never do.
	path, _, err := Fetch(context.Background(), server.URL, dir, Options{
		Retries: 1,
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

// TestFetchStalledTransferAborted cancels a download whose body stops arriving.
func TestFetchStalledTransferAborted(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		_, _ = w.Write([]byte("partial content"))
		flusher.Flush()

		// Send nothing further until the client gives up.
		<-r.Context().Done()
	}))
	defer server.Close()

	dir := t.TempDir()

	_, _, err := Fetch(context.Background(), server.URL, dir, Options{
		Retries: 1,
		Timeout: 150 * time.Millisecond,
	})
	require.Error(t, err)
	require.ErrorContains(t, err, "download stalled")
	requireNoPartials(t, dir)
}

// TestFetchEmptyBody rejects 2xx responses without content.
func TestFetchEmptyBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()

	_, _, err := Fetch(context.Background(), server.URL, dir, Options{Retries: 1})
	require.Error(t, err)
	requireNoPartials(t, dir)
}
