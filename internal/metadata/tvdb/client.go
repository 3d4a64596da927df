package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelvault/reelvault/internal/config"
	"github.com/reelvault/reelvault/internal/metadata"
)

var (
	ErrAPIKeyMissing = errors.New("TVDB API key is not configured")
	ErrNotFound      = errors.New("not found")
	ErrAPIError      = errors.New("TVDB API error")
	ErrAuthFailed    = errors.New("TVDB authentication failed")
	ErrRateLimited   = errors.New("TVDB API rate limited")
)

// tokenValidity is how long an acquired bearer token is trusted. TVDB
// tokens nominally last longer, but the validity window is not
// server-confirmed, so the token is refreshed after 24 hours.
const tokenValidity = 24 * time.Hour

// Client is a TVDB API client. Authentication is a bearer token
// exchanged for the API key, cached in memory and refreshed lazily.
type Client struct {
	httpClient *http.Client
	config     config.TVDBConfig
	logger     zerolog.Logger

	// Token management
	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new TVDB client.
func NewClient(cfg config.TVDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tvdb").Logger(),
	}
}

// Name returns the catalog name.
func (c *Client) Name() string {
	return "tvdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// authenticate gets or refreshes the authentication token.
func (c *Client) authenticate(ctx context.Context) error {
	c.mu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	loginURL := fmt.Sprintf("%s/login", c.config.BaseURL)
	loginReq := LoginRequest{APIKey: c.config.APIKey}

	body, err := json.Marshal(loginReq)
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Msg("TVDB authentication failed")
		return ErrAuthFailed
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	c.token = loginResp.Data.Token
	c.tokenExpiry = time.Now().Add(tokenValidity)

	c.logger.Debug().Msg("TVDB authentication successful")
	return nil
}

// SearchShow returns the best show match for a name, or nil when the
// catalog has no match.
func (c *Client) SearchShow(ctx context.Context, name string) (*metadata.UnifiedShow, error) {
	results, err := c.SearchShows(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// SearchShows searches for TV shows by name.
func (c *Client) SearchShows(ctx context.Context, name string, limit int) ([]metadata.UnifiedShow, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/search", c.config.BaseURL)
	params := url.Values{}
	params.Set("query", name)
	params.Set("type", "series")

	var response SearchResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	results := make([]metadata.UnifiedShow, 0, len(response.Data))
	for _, item := range response.Data {
		if item.Type != "" && item.Type != "series" {
			continue
		}
		if limit > 0 && len(results) >= limit {
			break
		}

		id, err := decodeID(item.ID, idFallback(item))
		if err != nil {
			c.logger.Warn().Err(err).Str("name", item.Name).Msg("Skipping result with undecodable id")
			continue
		}

		results = append(results, metadata.UnifiedShow{
			ID:         id,
			Name:       item.Name,
			Overview:   item.Overview,
			PosterPath: item.ImageURL,
			FirstAired: firstAired(item),
		})
	}

	c.logger.Debug().
		Str("query", name).
		Int("results", len(results)).
		Msg("TV search completed")

	return results, nil
}

// SearchMovie is unsupported: TVDB has no usable movie search. It
// reports no match rather than substituting a wrong result.
func (c *Client) SearchMovie(ctx context.Context, title string) (*metadata.UnifiedMovie, error) {
	return nil, nil
}

// SearchMovies is unsupported for TVDB and always returns empty.
func (c *Client) SearchMovies(ctx context.Context, title string, limit int) ([]metadata.UnifiedMovie, error) {
	return []metadata.UnifiedMovie{}, nil
}

// GetEpisode gets a single episode of a series by TVDB ID.
func (c *Client) GetEpisode(ctx context.Context, showID, season, episode int) (*metadata.UnifiedEpisode, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/series/%d/episodes/default", c.config.BaseURL, showID)
	params := url.Values{}
	params.Set("season", strconv.Itoa(season))
	params.Set("episodeNumber", strconv.Itoa(episode))

	var response EpisodesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	for _, ep := range response.Data.Episodes {
		if ep.SeasonNumber != season || ep.EpisodeNumber != episode {
			continue
		}

		id, err := decodeID(ep.ID, "")
		if err != nil {
			return nil, err
		}

		return &metadata.UnifiedEpisode{
			ID:        id,
			ShowID:    showID,
			Season:    ep.SeasonNumber,
			Episode:   ep.EpisodeNumber,
			Name:      ep.Name,
			Overview:  ep.Overview,
			StillPath: ep.Image,
			AirDate:   ep.Aired,
		}, nil
	}

	return nil, ErrNotFound
}

// DownloadImage fetches raw image bytes. TVDB usually supplies absolute
// artwork URLs; relative paths are resolved against the artwork base.
func (c *Client) DownloadImage(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty image path", ErrAPIError)
	}

	imageURL := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		imageURL = c.config.ImageBaseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", imageURL).Msg("Image download failed")
		return nil, fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image status %d", ErrAPIError, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	c.logger.Debug().
		Str("url", imageURL).
		Int("bytes", len(data)).
		Msg("Image downloaded")

	return data, nil
}

// doRequest performs an HTTP GET request with authentication.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			// Token might be expired, clear it
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			return fmt.Errorf("%w: unauthorized", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// idFallback picks the best alternative identifier encoding present on
// a search result.
func idFallback(item SearchResult) string {
	if item.TvdbID != "" {
		return item.TvdbID
	}
	return item.ObjectID
}

// firstAired prefers the full air time but falls back to the bare year.
func firstAired(item SearchResult) string {
	if item.FirstAirTime != "" {
		return item.FirstAirTime
	}
	return item.Year
}
