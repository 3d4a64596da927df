package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelvault/reelvault/internal/config"
	"github.com/reelvault/reelvault/internal/metadata"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrNotFound      = errors.New("not found")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

// posterSize is the size segment used when resolving relative image paths.
const posterSize = "w500"

// Client is a TMDB API client. Authentication is an api_key query
// parameter on every request.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// Name returns the catalog name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
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

	endpoint := fmt.Sprintf("%s/search/tv", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("query", name)

	var response SearchTVResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	results := make([]metadata.UnifiedShow, 0, len(response.Results))
	for _, tv := range response.Results {
		if limit > 0 && len(results) >= limit {
			break
		}
		results = append(results, c.toShow(tv))
	}

	c.logger.Debug().
		Str("query", name).
		Int("results", len(results)).
		Msg("TV search completed")

	return results, nil
}

// SearchMovie returns the best movie match for a title, or nil when the
// catalog has no match.
func (c *Client) SearchMovie(ctx context.Context, title string) (*metadata.UnifiedMovie, error) {
	results, err := c.SearchMovies(ctx, title, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// SearchMovies searches for movies by title. The search endpoint omits
// runtime, so each result is completed with a details round-trip.
func (c *Client) SearchMovies(ctx context.Context, title string, limit int) ([]metadata.UnifiedMovie, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/search/movie", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("query", title)
	params.Set("include_adult", "false")

	var response SearchMoviesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	results := make([]metadata.UnifiedMovie, 0, len(response.Results))
	for _, movie := range response.Results {
		if limit > 0 && len(results) >= limit {
			break
		}

		details, err := c.getMovieDetails(ctx, movie.ID)
		if err != nil {
			c.logger.Warn().Err(err).
				Int("id", movie.ID).
				Msg("Failed to get movie details, using search result")
			results = append(results, c.toMovie(movie))
			continue
		}
		results = append(results, c.detailsToMovie(*details))
	}

	c.logger.Debug().
		Str("query", title).
		Int("results", len(results)).
		Msg("Movie search completed")

	return results, nil
}

// GetEpisode gets a single episode of a show by TMDB ID.
func (c *Client) GetEpisode(ctx context.Context, showID, season, episode int) (*metadata.UnifiedEpisode, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/tv/%d/season/%d/episode/%d", c.config.BaseURL, showID, season, episode)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var details EpisodeDetails
	if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
		return nil, err
	}

	result := &metadata.UnifiedEpisode{
		ID:       details.ID,
		ShowID:   showID,
		Season:   details.SeasonNumber,
		Episode:  details.EpisodeNumber,
		Name:     details.Name,
		Overview: details.Overview,
		AirDate:  details.AirDate,
	}
	if details.StillPath != nil {
		result.StillPath = *details.StillPath
	}

	c.logger.Debug().
		Int("showId", showID).
		Int("season", season).
		Int("episode", episode).
		Msg("Got episode details")

	return result, nil
}

// DownloadImage fetches raw image bytes. Relative paths are resolved
// against the configured image base with the fixed poster size.
func (c *Client) DownloadImage(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty image path", ErrAPIError)
	}

	imageURL := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		imageURL = fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, posterSize, path)
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

// getMovieDetails gets detailed movie info by TMDB ID.
func (c *Client) getMovieDetails(ctx context.Context, id int) (*MovieDetails, error) {
	endpoint := fmt.Sprintf("%s/movie/%d", c.config.BaseURL, id)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var details MovieDetails
	if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
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

// toShow converts a TMDB TV search result to a UnifiedShow.
func (c *Client) toShow(tv TVResult) metadata.UnifiedShow {
	result := metadata.UnifiedShow{
		ID:         tv.ID,
		Name:       tv.Name,
		Overview:   tv.Overview,
		FirstAired: tv.FirstAirDate,
	}
	if tv.PosterPath != nil {
		result.PosterPath = *tv.PosterPath
	}
	if tv.BackdropPath != nil {
		result.BackdropPath = *tv.BackdropPath
	}
	return result
}

// toMovie converts a TMDB movie search result to a UnifiedMovie.
func (c *Client) toMovie(movie MovieResult) metadata.UnifiedMovie {
	result := metadata.UnifiedMovie{
		ID:          movie.ID,
		Title:       movie.Title,
		Overview:    movie.Overview,
		ReleaseDate: movie.ReleaseDate,
	}
	if movie.PosterPath != nil {
		result.PosterPath = *movie.PosterPath
	}
	if movie.BackdropPath != nil {
		result.BackdropPath = *movie.BackdropPath
	}
	return result
}

// detailsToMovie converts TMDB movie details to a UnifiedMovie.
func (c *Client) detailsToMovie(details MovieDetails) metadata.UnifiedMovie {
	result := metadata.UnifiedMovie{
		ID:          details.ID,
		Title:       details.Title,
		Overview:    details.Overview,
		ReleaseDate: details.ReleaseDate,
		Runtime:     details.Runtime,
	}
	if details.PosterPath != nil {
		result.PosterPath = *details.PosterPath
	}
	if details.BackdropPath != nil {
		result.BackdropPath = *details.BackdropPath
	}
	return result
}
