package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is the persisted metadata cache: a keyed record store for
// show, episode and movie metadata plus watch progress.
type Store struct {
	db     *sql.DB
	q      dbtx
	logger zerolog.Logger
}

// New creates a new store backed by the given database.
func New(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		q:      db,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// WithTx runs fn against a transaction-backed store. All writes made
// inside fn are committed together, or rolled back if fn errors.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		// Already transactional, run fn in the enclosing transaction.
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStore := &Store{db: s.db, q: tx, logger: s.logger}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListShows bulk-loads all show records, keyed by show name.
func (s *Store) ListShows(ctx context.Context) (map[string]*ShowMetadata, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT show_name, catalog_id, source, display_name, overview,
		       poster_path, backdrop_path, poster, first_aired, last_updated
		FROM show_metadata`)
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}
	defer rows.Close()

	shows := make(map[string]*ShowMetadata)
	for rows.Next() {
		var m ShowMetadata
		var updated int64
		if err := rows.Scan(&m.ShowName, &m.CatalogID, &m.Source, &m.DisplayName, &m.Overview,
			&m.PosterPath, &m.BackdropPath, &m.Poster, &m.FirstAired, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan show row: %w", err)
		}
		m.LastUpdated = time.Unix(updated, 0)
		shows[m.ShowName] = &m
	}
	return shows, rows.Err()
}

// GetShow fetches one show record, or nil if absent.
func (s *Store) GetShow(ctx context.Context, showName string) (*ShowMetadata, error) {
	var m ShowMetadata
	var updated int64
	err := s.q.QueryRowContext(ctx, `
		SELECT show_name, catalog_id, source, display_name, overview,
		       poster_path, backdrop_path, poster, first_aired, last_updated
		FROM show_metadata WHERE show_name = ?`, showName).
		Scan(&m.ShowName, &m.CatalogID, &m.Source, &m.DisplayName, &m.Overview,
			&m.PosterPath, &m.BackdropPath, &m.Poster, &m.FirstAired, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	m.LastUpdated = time.Unix(updated, 0)
	return &m, nil
}

// UpsertShow inserts or replaces a show record.
func (s *Store) UpsertShow(ctx context.Context, m *ShowMetadata) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO show_metadata
			(show_name, catalog_id, source, display_name, overview,
			 poster_path, backdrop_path, poster, first_aired, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(show_name) DO UPDATE SET
			catalog_id = excluded.catalog_id,
			source = excluded.source,
			display_name = excluded.display_name,
			overview = excluded.overview,
			poster_path = excluded.poster_path,
			backdrop_path = excluded.backdrop_path,
			poster = excluded.poster,
			first_aired = excluded.first_aired,
			last_updated = excluded.last_updated`,
		m.ShowName, m.CatalogID, m.Source, m.DisplayName, m.Overview,
		m.PosterPath, m.BackdropPath, m.Poster, m.FirstAired, m.LastUpdated.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert show: %w", err)
	}
	return nil
}

// DeleteShow removes a show record and, in the same transaction, all
// episode records that reference its show name.
func (s *Store) DeleteShow(ctx context.Context, showName string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx,
			`DELETE FROM episode_metadata WHERE show_name = ?`, showName); err != nil {
			return fmt.Errorf("failed to delete episodes for show: %w", err)
		}
		if _, err := tx.q.ExecContext(ctx,
			`DELETE FROM show_metadata WHERE show_name = ?`, showName); err != nil {
			return fmt.Errorf("failed to delete show: %w", err)
		}
		return nil
	})
}

// ListEpisodes bulk-loads all episode records, keyed by
// (show name, season, episode).
func (s *Store) ListEpisodes(ctx context.Context) (map[EpisodeKey]*EpisodeMetadata, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT show_name, season, episode, catalog_id, show_catalog_id,
		       display_name, overview, still_path, still, air_date, last_updated
		FROM episode_metadata`)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	episodes := make(map[EpisodeKey]*EpisodeMetadata)
	for rows.Next() {
		var m EpisodeMetadata
		var updated int64
		if err := rows.Scan(&m.ShowName, &m.Season, &m.Episode, &m.CatalogID, &m.ShowCatalogID,
			&m.DisplayName, &m.Overview, &m.StillPath, &m.Still, &m.AirDate, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan episode row: %w", err)
		}
		m.LastUpdated = time.Unix(updated, 0)
		episodes[m.Key()] = &m
	}
	return episodes, rows.Err()
}

// UpsertEpisode inserts or replaces an episode record.
func (s *Store) UpsertEpisode(ctx context.Context, m *EpisodeMetadata) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO episode_metadata
			(show_name, season, episode, catalog_id, show_catalog_id,
			 display_name, overview, still_path, still, air_date, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(show_name, season, episode) DO UPDATE SET
			catalog_id = excluded.catalog_id,
			show_catalog_id = excluded.show_catalog_id,
			display_name = excluded.display_name,
			overview = excluded.overview,
			still_path = excluded.still_path,
			still = excluded.still,
			air_date = excluded.air_date,
			last_updated = excluded.last_updated`,
		m.ShowName, m.Season, m.Episode, m.CatalogID, m.ShowCatalogID,
		m.DisplayName, m.Overview, m.StillPath, m.Still, m.AirDate, m.LastUpdated.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert episode: %w", err)
	}
	return nil
}

// DeleteEpisode removes one episode record.
func (s *Store) DeleteEpisode(ctx context.Context, key EpisodeKey) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM episode_metadata WHERE show_name = ? AND season = ? AND episode = ?`,
		key.ShowName, key.Season, key.Episode)
	if err != nil {
		return fmt.Errorf("failed to delete episode: %w", err)
	}
	return nil
}

// ListMovies bulk-loads all movie records, keyed by filename.
func (s *Store) ListMovies(ctx context.Context) (map[string]*MovieMetadata, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT file_name, catalog_id, source, display_name, overview,
		       poster_path, backdrop_path, poster, release_date, runtime, last_updated
		FROM movie_metadata`)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	movies := make(map[string]*MovieMetadata)
	for rows.Next() {
		var m MovieMetadata
		var updated int64
		if err := rows.Scan(&m.FileName, &m.CatalogID, &m.Source, &m.DisplayName, &m.Overview,
			&m.PosterPath, &m.BackdropPath, &m.Poster, &m.ReleaseDate, &m.Runtime, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan movie row: %w", err)
		}
		m.LastUpdated = time.Unix(updated, 0)
		movies[m.FileName] = &m
	}
	return movies, rows.Err()
}

// GetMovie fetches one movie record, or nil if absent.
func (s *Store) GetMovie(ctx context.Context, fileName string) (*MovieMetadata, error) {
	var m MovieMetadata
	var updated int64
	err := s.q.QueryRowContext(ctx, `
		SELECT file_name, catalog_id, source, display_name, overview,
		       poster_path, backdrop_path, poster, release_date, runtime, last_updated
		FROM movie_metadata WHERE file_name = ?`, fileName).
		Scan(&m.FileName, &m.CatalogID, &m.Source, &m.DisplayName, &m.Overview,
			&m.PosterPath, &m.BackdropPath, &m.Poster, &m.ReleaseDate, &m.Runtime, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	m.LastUpdated = time.Unix(updated, 0)
	return &m, nil
}

// UpsertMovie inserts or replaces a movie record.
func (s *Store) UpsertMovie(ctx context.Context, m *MovieMetadata) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO movie_metadata
			(file_name, catalog_id, source, display_name, overview,
			 poster_path, backdrop_path, poster, release_date, runtime, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_name) DO UPDATE SET
			catalog_id = excluded.catalog_id,
			source = excluded.source,
			display_name = excluded.display_name,
			overview = excluded.overview,
			poster_path = excluded.poster_path,
			backdrop_path = excluded.backdrop_path,
			poster = excluded.poster,
			release_date = excluded.release_date,
			runtime = excluded.runtime,
			last_updated = excluded.last_updated`,
		m.FileName, m.CatalogID, m.Source, m.DisplayName, m.Overview,
		m.PosterPath, m.BackdropPath, m.Poster, m.ReleaseDate, m.Runtime, m.LastUpdated.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert movie: %w", err)
	}
	return nil
}

// DeleteMovie removes one movie record.
func (s *Store) DeleteMovie(ctx context.Context, fileName string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM movie_metadata WHERE file_name = ?`, fileName)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	return nil
}

// GetProgress fetches the watch progress for a file, or nil if absent.
func (s *Store) GetProgress(ctx context.Context, filePath string) (*WatchProgress, error) {
	var p WatchProgress
	var updated int64
	err := s.q.QueryRowContext(ctx,
		`SELECT file_path, position, updated_at FROM watch_progress WHERE file_path = ?`, filePath).
		Scan(&p.FilePath, &p.Position, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	p.UpdatedAt = time.Unix(updated, 0)
	return &p, nil
}

// SetProgress inserts or replaces the watch progress for a file.
func (s *Store) SetProgress(ctx context.Context, p *WatchProgress) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO watch_progress (file_path, position, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			position = excluded.position,
			updated_at = excluded.updated_at`,
		p.FilePath, p.Position, p.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to set progress: %w", err)
	}
	return nil
}

// DeleteProgress removes the watch progress for a file.
func (s *Store) DeleteProgress(ctx context.Context, filePath string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM watch_progress WHERE file_path = ?`, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}

// DeleteFileRecords removes the episode record and watch progress for a
// deleted video file as one logical unit.
func (s *Store) DeleteFileRecords(ctx context.Context, key EpisodeKey, filePath string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if err := tx.DeleteEpisode(ctx, key); err != nil {
			return err
		}
		return tx.DeleteProgress(ctx, filePath)
	})
}

// ClearAll wipes every cached metadata record and watch progress row.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *Store) error {
		for _, table := range []string{"episode_metadata", "show_metadata", "movie_metadata", "watch_progress"} {
			if _, err := tx.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}
