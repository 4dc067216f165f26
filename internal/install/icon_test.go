package install

import (
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestInstallIconFromRemote uses the first source that answers.
func TestInstallIconFromRemote(t *testing.T) {
	t.Parallel()

	payload := []byte("png bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	layout := testLayout(t)
	sources := []string{server.URL + "/logo.png"}

	require.NoError(t, InstallIcon(context.Background(), layout, sources, "Cursor"))

	got, err := os.ReadFile(layout.IconPath)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

// TestInstallIconFallsBackThroughSources skips failing sources in order.
func TestInstallIconFallsBackThroughSources(t *testing.T) {
	t.Parallel()

	payload := []byte("second source")

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer failing.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer working.Close()

	layout := testLayout(t)
	sources := []string{failing.URL, working.URL}

	require.NoError(t, InstallIcon(context.Background(), layout, sources, "Cursor"))

	got, err := os.ReadFile(layout.IconPath)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

// TestInstallIconPlaceholder synthesizes a valid PNG when every source fails.
func TestInstallIconPlaceholder(t *testing.T) {
	t.Parallel()

	unreachable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer unreachable.Close()

	layout := testLayout(t)

	require.NoError(t, InstallIcon(context.Background(), layout, []string{unreachable.URL}, "Cursor"))

	file, err := os.Open(layout.IconPath)
	require.NoError(t, err)

	defer func() {
		_ = file.Close()
	}()

	img, err := png.Decode(file)
	require.NoError(t, err)
	require.Equal(t, iconSize, img.Bounds().Dx())
	require.Equal(t, iconSize, img.Bounds().Dy())
}

// TestInstallIconNoSources goes straight to the placeholder.
func TestInstallIconNoSources(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)

	require.NoError(t, InstallIcon(context.Background(), layout, nil, "Cursor"))
	require.FileExists(t, layout.IconPath)
}
