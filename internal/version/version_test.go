package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestShortAndFull verifies the rendered version strings contain the build metadata.
func TestShortAndFull(t *testing.T) {
	t.Parallel()

	require.Equal(t, Version, Short())

	full := Full()
	require.Contains(t, full, "version: "+Version)
	require.Contains(t, full, "commit: "+Commit)
}

// TestUserAgent verifies the User-Agent value is derived from the version.
func TestUserAgent(t *testing.T) {
	t.Parallel()

	ua := UserAgent()
	require.True(t, strings.HasPrefix(ua, "Cursor-Installer/"))
	require.True(t, strings.HasSuffix(ua, Version))
}
