package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrNoCatalogsConfigured = errors.New("no metadata catalogs configured")
	ErrUnknownSource        = errors.New("unknown metadata source")
	ErrNotFound             = errors.New("metadata not found")
)

// Resolver orchestrates metadata lookups across catalogs in a fixed
// priority order. Multi-source searches absorb per-catalog errors so a
// failing catalog never hides results from the next one; single-source
// operations propagate errors to the caller.
type Resolver struct {
	catalogs map[Source]Catalog
	order    []Source
	logger   zerolog.Logger
}

// NewResolver creates a resolver over the given catalog clients,
// queried in ScanOrder.
func NewResolver(catalogs map[Source]Catalog, logger zerolog.Logger) *Resolver {
	return &Resolver{
		catalogs: catalogs,
		order:    ScanOrder,
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// Catalog returns the client for a source.
func (r *Resolver) Catalog(source Source) (Catalog, error) {
	c, ok := r.catalogs[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	return c, nil
}

// HasCatalog returns true if at least one catalog is configured.
func (r *Resolver) HasCatalog() bool {
	for _, source := range r.order {
		if c, ok := r.catalogs[source]; ok && c.IsConfigured() {
			return true
		}
	}
	return false
}

// SearchShow returns the first show match across catalogs in scan order.
// Returns nil when no catalog has a match.
func (r *Resolver) SearchShow(ctx context.Context, name string) (*UnifiedShow, error) {
	show, _, err := r.SearchShowWithSource(ctx, name)
	return show, err
}

// SearchShowWithSource returns the first show match along with the
// source that produced it, so follow-up episode and image calls can be
// directed at the same catalog.
func (r *Resolver) SearchShowWithSource(ctx context.Context, name string) (*UnifiedShow, Source, error) {
	if !r.HasCatalog() {
		return nil, "", ErrNoCatalogsConfigured
	}

	for _, source := range r.order {
		c, ok := r.catalogs[source]
		if !ok || !c.IsConfigured() {
			continue
		}

		show, err := c.SearchShow(ctx, name)
		if err != nil {
			// A failing catalog counts as no-match during multi-source search.
			r.logger.Warn().Err(err).
				Str("catalog", c.Name()).
				Str("name", name).
				Msg("Catalog show search failed, trying next")
			continue
		}
		if show != nil {
			r.logger.Debug().
				Str("catalog", c.Name()).
				Str("name", name).
				Int("id", show.ID).
				Msg("Show resolved")
			return show, source, nil
		}
	}

	return nil, "", nil
}

// SearchShows queries every catalog in scan order and merges the
// results into one ordered list, deduplicating by (lowercased name,
// first-air-date). The first catalog to return a given key wins; the
// merge stops once limit results are collected.
func (r *Resolver) SearchShows(ctx context.Context, name string, limit int) ([]UnifiedShow, error) {
	if !r.HasCatalog() {
		return nil, ErrNoCatalogsConfigured
	}

	merged := make([]UnifiedShow, 0, limit)
	seen := make(map[string]bool)

	for _, source := range r.order {
		if limit > 0 && len(merged) >= limit {
			break
		}

		c, ok := r.catalogs[source]
		if !ok || !c.IsConfigured() {
			continue
		}

		results, err := c.SearchShows(ctx, name, limit)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("catalog", c.Name()).
				Str("name", name).
				Msg("Catalog show search failed, trying next")
			continue
		}

		for _, show := range results {
			if limit > 0 && len(merged) >= limit {
				break
			}
			key := dedupKey(show.Name, show.FirstAired)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, show)
		}
	}

	r.logger.Debug().
		Str("name", name).
		Int("results", len(merged)).
		Msg("Merged show search completed")

	return merged, nil
}

// SearchMovie returns the first movie match. Only the primary catalog
// is queried; catalogs without movie search report no match.
func (r *Resolver) SearchMovie(ctx context.Context, title string) (*UnifiedMovie, error) {
	movie, _, err := r.SearchMovieWithSource(ctx, title)
	return movie, err
}

// SearchMovieWithSource returns the first movie match along with its
// producing source.
func (r *Resolver) SearchMovieWithSource(ctx context.Context, title string) (*UnifiedMovie, Source, error) {
	if !r.HasCatalog() {
		return nil, "", ErrNoCatalogsConfigured
	}

	for _, source := range r.order {
		c, ok := r.catalogs[source]
		if !ok || !c.IsConfigured() {
			continue
		}

		movie, err := c.SearchMovie(ctx, title)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("catalog", c.Name()).
				Str("title", title).
				Msg("Catalog movie search failed, trying next")
			continue
		}
		if movie != nil {
			return movie, source, nil
		}
	}

	return nil, "", nil
}

// SearchMovies queries every catalog in scan order and merges results,
// deduplicating by (lowercased title, release-date).
func (r *Resolver) SearchMovies(ctx context.Context, title string, limit int) ([]UnifiedMovie, error) {
	if !r.HasCatalog() {
		return nil, ErrNoCatalogsConfigured
	}

	merged := make([]UnifiedMovie, 0, limit)
	seen := make(map[string]bool)

	for _, source := range r.order {
		if limit > 0 && len(merged) >= limit {
			break
		}

		c, ok := r.catalogs[source]
		if !ok || !c.IsConfigured() {
			continue
		}

		results, err := c.SearchMovies(ctx, title, limit)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("catalog", c.Name()).
				Str("title", title).
				Msg("Catalog movie search failed, trying next")
			continue
		}

		for _, movie := range results {
			if limit > 0 && len(merged) >= limit {
				break
			}
			key := dedupKey(movie.Title, movie.ReleaseDate)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, movie)
		}
	}

	return merged, nil
}

// GetEpisode looks up one episode against an explicitly named source.
// The resolver never re-guesses the source; callers carry forward the
// source discovered during the initiating show search. Errors propagate.
func (r *Resolver) GetEpisode(ctx context.Context, source Source, showID, season, episode int) (*UnifiedEpisode, error) {
	c, err := r.Catalog(source)
	if err != nil {
		return nil, err
	}
	return c.GetEpisode(ctx, showID, season, episode)
}

// DownloadImage fetches image bytes from an explicitly named source.
// Errors propagate.
func (r *Resolver) DownloadImage(ctx context.Context, source Source, path string) ([]byte, error) {
	c, err := r.Catalog(source)
	if err != nil {
		return nil, err
	}
	return c.DownloadImage(ctx, path)
}

// dedupKey builds the composite merge key for cross-catalog results.
func dedupKey(name, date string) string {
	return strings.ToLower(name) + "|" + date
}
