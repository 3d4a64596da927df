// Package sync reconciles the scanned library inventory against the
// metadata catalogs, refreshing stale cache records and filling in
// missing artwork.
package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelvault/reelvault/internal/library/scanner"
	"github.com/reelvault/reelvault/internal/library/store"
	"github.com/reelvault/reelvault/internal/metadata"
	"github.com/reelvault/reelvault/internal/thumbnail"
)

// RefreshWindow is how long a cache record stays fresh before the next
// run re-fetches it.
const RefreshWindow = 7 * 24 * time.Hour

// IsStale reports whether a record last updated at the given time needs
// a refresh. The zero time (absent record) is always stale.
func IsStale(lastUpdated, now time.Time) bool {
	return lastUpdated.IsZero() || now.Sub(lastUpdated) > RefreshWindow
}

// ItemFailure records one inventory item whose refresh failed. Later
// items are still processed.
type ItemFailure struct {
	Item   string `json:"item"`
	Reason string `json:"reason"`
}

// Result is the structured outcome of one synchronization run.
type Result struct {
	ShowsProcessed  int           `json:"showsProcessed"`
	ShowsSkipped    int           `json:"showsSkipped"`
	EpisodesUpdated int           `json:"episodesUpdated"`
	MoviesProcessed int           `json:"moviesProcessed"`
	MoviesSkipped   int           `json:"moviesSkipped"`
	Diagnostics     []string      `json:"diagnostics,omitempty"`
	Failures        []ItemFailure `json:"failures,omitempty"`
}

// Synchronizer drives the per-item refresh state machine. Items are
// processed sequentially; all writes for one item commit together
// before the next item starts.
type Synchronizer struct {
	store    *store.Store
	resolver *metadata.Resolver
	thumbs   *thumbnail.Generator
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a synchronizer. thumbs may be nil when frame extraction
// is unavailable.
func New(st *store.Store, resolver *metadata.Resolver, thumbs *thumbnail.Generator, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		store:    st,
		resolver: resolver,
		thumbs:   thumbs,
		logger:   logger.With().Str("component", "sync").Logger(),
		now:      time.Now,
	}
}

// Sync refreshes metadata for every item in the inventory, plus any
// externally-referenced video filenames. Cancellation is cooperative:
// the context is checked between items, never mid-item, so a cancelled
// run still leaves whole items committed.
func (s *Synchronizer) Sync(ctx context.Context, inv *scanner.Inventory, external []string) (*Result, error) {
	result := &Result{}

	for i := range inv.Shows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.syncShow(ctx, &inv.Shows[i], result)
	}

	for i := range inv.Movies {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.syncMovie(ctx, inv.Movies[i].FileName, inv.Movies[i].Meta, result)
	}

	for _, fileName := range external {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		meta, err := s.store.GetMovie(ctx, fileName)
		if err != nil {
			result.Failures = append(result.Failures, ItemFailure{Item: fileName, Reason: err.Error()})
			continue
		}
		s.syncMovie(ctx, fileName, meta, result)
	}

	s.logger.Info().
		Int("showsProcessed", result.ShowsProcessed).
		Int("showsSkipped", result.ShowsSkipped).
		Int("episodesUpdated", result.EpisodesUpdated).
		Int("moviesProcessed", result.MoviesProcessed).
		Int("moviesSkipped", result.MoviesSkipped).
		Int("failures", len(result.Failures)).
		Msg("Synchronization run complete")
	return result, nil
}

// episodeWorkNeeded reports whether any episode file of the show lacks
// a fresh, imaged cache record.
func (s *Synchronizer) episodeWorkNeeded(show *scanner.Show, now time.Time) bool {
	for _, f := range show.Files {
		if !f.HasEpisode {
			continue
		}
		if f.Meta == nil || IsStale(f.Meta.LastUpdated, now) || len(f.Meta.Still) == 0 {
			return true
		}
	}
	return false
}

func (s *Synchronizer) syncShow(ctx context.Context, show *scanner.Show, result *Result) {
	now := s.now()
	showStale := show.Meta == nil || IsStale(show.Meta.LastUpdated, now)
	if !showStale && !s.episodeWorkNeeded(show, now) {
		result.ShowsSkipped++
		return
	}

	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		return s.refreshShow(ctx, tx, show, result, now)
	})
	if err != nil {
		result.Failures = append(result.Failures, ItemFailure{Item: show.Name, Reason: err.Error()})
		s.logger.Warn().Err(err).Str("show", show.Name).Msg("Show refresh failed")
		return
	}
	result.ShowsProcessed++
}

func (s *Synchronizer) refreshShow(ctx context.Context, tx *store.Store, show *scanner.Show, result *Result, now time.Time) error {
	unified, source, err := s.resolver.SearchShowWithSource(ctx, show.Name)
	if err != nil {
		return err
	}

	var meta *store.ShowMetadata
	switch {
	case unified != nil:
		meta = &store.ShowMetadata{
			ShowName:     show.Name,
			CatalogID:    unified.ID,
			Source:       string(source),
			DisplayName:  unified.Name,
			Overview:     unified.Overview,
			PosterPath:   unified.PosterPath,
			BackdropPath: unified.BackdropPath,
			FirstAired:   unified.FirstAired,
		}
		if show.Meta != nil {
			meta.Poster = show.Meta.Poster
		}
	case show.Meta != nil:
		// No catalog match; keep the cached identity so episode lookups
		// still work against the previously resolved catalog.
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("show %q: no catalog match, keeping cached identity", show.Name))
		meta = show.Meta
		source, err = metadata.ParseSource(meta.Source)
		if err != nil {
			return err
		}
	default:
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("show %q: no catalog match", show.Name))
		return nil
	}

	if len(meta.Poster) == 0 && meta.PosterPath != "" {
		if data, err := s.resolver.DownloadImage(ctx, source, meta.PosterPath); err != nil {
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("show %q: poster download failed: %v", show.Name, err))
		} else {
			meta.Poster = data
		}
	}

	meta.LastUpdated = now
	if err := tx.UpsertShow(ctx, meta); err != nil {
		return err
	}
	show.Meta = meta

	for i := range show.Files {
		f := &show.Files[i]
		if !f.HasEpisode {
			continue
		}
		if err := s.refreshEpisode(ctx, tx, show.Name, meta, source, f, result, now); err != nil {
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("episode %s S%02dE%02d: %v", show.Name, f.Season, f.Episode, err))
		}
	}
	return nil
}

func (s *Synchronizer) refreshEpisode(ctx context.Context, tx *store.Store, showName string, showMeta *store.ShowMetadata, source metadata.Source, f *scanner.VideoFile, result *Result, now time.Time) error {
	existing := f.Meta
	fresh := existing != nil && !IsStale(existing.LastUpdated, now)
	if fresh && len(existing.Still) > 0 {
		return nil
	}

	// Fresh record missing only its image: try a cheap refill from the
	// remembered still path before spending a full metadata fetch.
	if fresh && existing.StillPath != "" {
		if data, err := s.resolver.DownloadImage(ctx, source, existing.StillPath); err == nil {
			existing.Still = data
			existing.LastUpdated = now
			if err := tx.UpsertEpisode(ctx, existing); err != nil {
				return err
			}
			f.Meta = existing
			result.EpisodesUpdated++
			return nil
		}
	}

	ep, err := s.resolver.GetEpisode(ctx, source, showMeta.CatalogID, f.Season, f.Episode)
	if err != nil {
		return err
	}

	meta := &store.EpisodeMetadata{
		ShowName:      showName,
		Season:        f.Season,
		Episode:       f.Episode,
		CatalogID:     ep.ID,
		ShowCatalogID: showMeta.CatalogID,
		DisplayName:   ep.Name,
		Overview:      ep.Overview,
		StillPath:     ep.StillPath,
		AirDate:       ep.AirDate,
	}
	if existing != nil && existing.StillPath == ep.StillPath {
		meta.Still = existing.Still
	}

	if len(meta.Still) == 0 {
		if meta.StillPath != "" {
			if data, err := s.resolver.DownloadImage(ctx, source, meta.StillPath); err == nil {
				meta.Still = data
			} else {
				s.logger.Debug().Err(err).Str("show", showName).Msg("Still download failed")
			}
		}
		// Last resort: sample a frame from the local file. Failures
		// here are logged, not retried.
		if len(meta.Still) == 0 && s.thumbs != nil && s.thumbs.Available() && f.Path != "" {
			if data, err := s.thumbs.Generate(ctx, f.Path); err == nil {
				meta.Still = data
			} else {
				s.logger.Debug().Err(err).Str("path", f.Path).Msg("Thumbnail generation failed")
			}
		}
	}

	meta.LastUpdated = now
	if err := tx.UpsertEpisode(ctx, meta); err != nil {
		return err
	}
	f.Meta = meta
	result.EpisodesUpdated++
	return nil
}

func (s *Synchronizer) syncMovie(ctx context.Context, fileName string, existing *store.MovieMetadata, result *Result) {
	now := s.now()
	// A movie only counts as fresh when its poster bytes are present.
	if existing != nil && !IsStale(existing.LastUpdated, now) && len(existing.Poster) > 0 {
		result.MoviesSkipped++
		return
	}

	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		return s.refreshMovie(ctx, tx, fileName, existing, result, now)
	})
	if err != nil {
		result.Failures = append(result.Failures, ItemFailure{Item: fileName, Reason: err.Error()})
		s.logger.Warn().Err(err).Str("movie", fileName).Msg("Movie refresh failed")
		return
	}
	result.MoviesProcessed++
}

func (s *Synchronizer) refreshMovie(ctx context.Context, tx *store.Store, fileName string, existing *store.MovieMetadata, result *Result, now time.Time) error {
	title := movieQuery(fileName)
	unified, source, err := s.resolver.SearchMovieWithSource(ctx, title)
	if err != nil {
		return err
	}

	var meta *store.MovieMetadata
	switch {
	case unified != nil:
		meta = &store.MovieMetadata{
			FileName:     fileName,
			CatalogID:    unified.ID,
			Source:       string(source),
			DisplayName:  unified.Title,
			Overview:     unified.Overview,
			PosterPath:   unified.PosterPath,
			BackdropPath: unified.BackdropPath,
			ReleaseDate:  unified.ReleaseDate,
			Runtime:      unified.Runtime,
		}
		// Only reuse old poster bytes when the catalog still points at
		// the same image.
		if existing != nil && existing.PosterPath == unified.PosterPath {
			meta.Poster = existing.Poster
		}
	case existing != nil:
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("movie %q: no catalog match, keeping cached identity", fileName))
		meta = existing
		source, err = metadata.ParseSource(meta.Source)
		if err != nil {
			return err
		}
	default:
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("movie %q: no catalog match", fileName))
		return nil
	}

	if len(meta.Poster) == 0 && meta.PosterPath != "" {
		if data, err := s.resolver.DownloadImage(ctx, source, meta.PosterPath); err != nil {
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("movie %q: poster download failed: %v", fileName, err))
		} else {
			meta.Poster = data
		}
	}

	meta.LastUpdated = now
	return tx.UpsertMovie(ctx, meta)
}

// movieQuery derives the search title from a movie filename, dropping
// the extension and any trailing (YYYY) marker.
func movieQuery(fileName string) string {
	if info, ok := scanner.ParseMovieYear(fileName); ok {
		return info.Title
	}
	return strings.TrimSpace(strings.TrimSuffix(fileName, filepath.Ext(fileName)))
}
