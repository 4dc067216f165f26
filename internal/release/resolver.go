package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/swipswaps/cursor-appimage-installer/internal/config"
	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
	"github.com/swipswaps/cursor-appimage-installer/internal/version"
)

// Release describes the latest downloadable artifact as reported by the API.
// Immutable once fetched.
type Release struct {
	// DownloadURL points at the AppImage artifact.
	DownloadURL string `json:"downloadUrl"`
	// Version is the release's version string.
	Version string `json:"version"`
	// Commit identifies the upstream commit; older API generations omit it.
	Commit string `json:"commitSha"`
}

var (
	// errBadHTTPStatus is returned for non-2xx API responses.
	errBadHTTPStatus = errors.New("unexpected http status")
	// errMissingDownloadURL is returned when the response lacks downloadUrl.
	errMissingDownloadURL = errors.New("downloadUrl not found in API response")
	// errMissingVersion is returned when the response lacks a version string.
	errMissingVersion = errors.New("version not found in API response")
)

// initialBackoffInterval is the first delay between API retry attempts.
const initialBackoffInterval = 2 * time.Second

// Client queries the release API for the latest artifact.
type Client struct {
	endpoint     string
	platform     string
	releaseTrack string
	userAgent    string
	retries      int
	httpClient   *http.Client
}

// NewClient builds a release client from the installer configuration.
// Redirects are followed by the default http.Client policy.
func NewClient(cfg *config.Config) *Client {
	retries := cfg.DownloadRetries
	if retries <= 0 {
		retries = config.DefaultDownloadRetries
	}

	return &Client{
		endpoint:     cfg.APIEndpoint,
		platform:     cfg.Platform,
		releaseTrack: cfg.ReleaseTrack,
		userAgent:    version.UserAgent(),
		retries:      retries,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// Resolve fetches the latest release for the configured platform and track.
// Transient failures are retried with exponential backoff up to the
// configured attempt count; a malformed or incomplete body is never retried.
func (c *Client) Resolve(ctx context.Context) (*Release, error) {
	requestURL, err := c.buildURL()
	if err != nil {
		return nil, fmt.Errorf("build API URL: %w", err)
	}

	var body []byte

	operation := func() error {
		var fetchErr error

		body, fetchErr = c.fetch(ctx, requestURL)
		if fetchErr != nil {
			logger.Warnf(ctx, "API request failed: %v", fetchErr)
		}

		return fetchErr
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(initialBackoffInterval)),
			uint64(c.retries-1)),
		ctx)

	if err = backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("fetch API data after %d attempts: %w", c.retries, err)
	}

	return parseRelease(body)
}

// buildURL composes the endpoint with platform and release track query parameters.
func (c *Client) buildURL() (string, error) {
	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}

	query := endpoint.Query()
	query.Set("platform", c.platform)
	query.Set("releaseTrack", c.releaseTrack)
	endpoint.RawQuery = query.Encode()

	return endpoint.String(), nil
}

// fetch performs a single GET and returns the response body.
func (c *Client) fetch(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		err = fmt.Errorf("%s, %s: %w", requestURL, response.Status, errBadHTTPStatus)

		// Client errors will not heal on retry.
		if response.StatusCode >= http.StatusBadRequest &&
			response.StatusCode < http.StatusInternalServerError {
			return nil, backoff.Permanent(err)
		}

		return nil, err
	}

	return io.ReadAll(response.Body)
}

// parseRelease decodes the API body into a strictly validated Release.
func parseRelease(body []byte) (*Release, error) {
	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("invalid JSON response from API: %w", err)
	}

	if release.DownloadURL == "" {
		return nil, errMissingDownloadURL
	}

	if release.Version == "" {
		return nil, errMissingVersion
	}

	return &release, nil
}

// NeedsUpdate decides whether the pipeline proceeds to download.
// An absent recorded version or a missing executable always triggers an
// update; otherwise any textual difference from the recorded string does.
// The marker is written verbatim from the API, so exact comparison is the
// ground truth.
func NeedsUpdate(ctx context.Context, release *Release, installedVersion string, executableExists bool) bool {
	if !executableExists {
		logger.Info(ctx, "No installed executable found, update needed")
		return true
	}

	if installedVersion == "" {
		logger.Info(ctx, "No local version recorded, update needed")
		return true
	}

	if installedVersion == release.Version {
		logger.Infof(ctx, "Already up to date (version %s).", release.Version)
		return false
	}

	logger.InfoKV(ctx, "Version mismatch detected",
		"local", installedVersion, "remote", release.Version)

	return true
}
