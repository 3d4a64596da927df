package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/reelvault/reelvault/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return New(db.Conn(), zerolog.Nop())
}

func TestShowRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	show := &ShowMetadata{
		ShowName:    "Breaking Bad",
		CatalogID:   1396,
		Source:      "tmdb",
		DisplayName: "Breaking Bad",
		Overview:    "A chemistry teacher turns to crime.",
		PosterPath:  "/poster.jpg",
		Poster:      []byte{0xff, 0xd8},
		FirstAired:  "2008-01-20",
		LastUpdated: time.Now().Truncate(time.Second),
	}
	require.NoError(t, s.UpsertShow(ctx, show))

	got, err := s.GetShow(ctx, "Breaking Bad")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, show.CatalogID, got.CatalogID)
	require.Equal(t, show.Poster, got.Poster)
	require.True(t, show.LastUpdated.Equal(got.LastUpdated))

	missing, err := s.GetShow(ctx, "Nonexistent")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestUpsertShowReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	show := &ShowMetadata{ShowName: "Dark", CatalogID: 1, Source: "tmdb", LastUpdated: time.Now()}
	require.NoError(t, s.UpsertShow(ctx, show))

	show.CatalogID = 2
	show.Overview = "updated"
	require.NoError(t, s.UpsertShow(ctx, show))

	shows, err := s.ListShows(ctx)
	require.NoError(t, err)
	require.Len(t, shows, 1)
	require.Equal(t, 2, shows["Dark"].CatalogID)
	require.Equal(t, "updated", shows["Dark"].Overview)
}

func TestEpisodeKeyJoin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ep := &EpisodeMetadata{
		ShowName:      "Breaking Bad",
		Season:        1,
		Episode:       5,
		CatalogID:     62089,
		ShowCatalogID: 1396,
		DisplayName:   "Gray Matter",
		LastUpdated:   time.Now(),
	}
	require.NoError(t, s.UpsertEpisode(ctx, ep))

	episodes, err := s.ListEpisodes(ctx)
	require.NoError(t, err)

	// The key is (show name, season, episode), independent of any file
	// path, so a moved file joins back to the same record.
	key := EpisodeKey{ShowName: "Breaking Bad", Season: 1, Episode: 5}
	require.NotNil(t, episodes[key])
	require.Equal(t, "Gray Matter", episodes[key].DisplayName)

	// Upserting again for the same triple must not create a duplicate.
	ep.DisplayName = "Gray Matter (revised)"
	require.NoError(t, s.UpsertEpisode(ctx, ep))
	episodes, err = s.ListEpisodes(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
}

func TestDeleteShowCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertShow(ctx, &ShowMetadata{ShowName: "The Wire", CatalogID: 1, Source: "tmdb", LastUpdated: time.Now()}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.UpsertEpisode(ctx, &EpisodeMetadata{
			ShowName: "The Wire", Season: 1, Episode: i, CatalogID: i, ShowCatalogID: 1, LastUpdated: time.Now(),
		}))
	}
	require.NoError(t, s.UpsertEpisode(ctx, &EpisodeMetadata{
		ShowName: "Other Show", Season: 1, Episode: 1, CatalogID: 99, ShowCatalogID: 2, LastUpdated: time.Now(),
	}))

	require.NoError(t, s.DeleteShow(ctx, "The Wire"))

	shows, err := s.ListShows(ctx)
	require.NoError(t, err)
	require.Empty(t, shows)

	episodes, err := s.ListEpisodes(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 1, "episodes of other shows must survive the cascade")
	require.NotNil(t, episodes[EpisodeKey{ShowName: "Other Show", Season: 1, Episode: 1}])
}

func TestMovieRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	movie := &MovieMetadata{
		FileName:    "Alien (1979).mp4",
		CatalogID:   348,
		Source:      "tmdb",
		DisplayName: "Alien",
		Runtime:     117,
		Poster:      []byte("jpeg"),
		LastUpdated: time.Now(),
	}
	require.NoError(t, s.UpsertMovie(ctx, movie))

	got, err := s.GetMovie(ctx, "Alien (1979).mp4")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 117, got.Runtime)

	require.NoError(t, s.DeleteMovie(ctx, "Alien (1979).mp4"))
	got, err = s.GetMovie(ctx, "Alien (1979).mp4")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestWatchProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetProgress(ctx, &WatchProgress{
		FilePath:  "/library/Movies/Alien (1979).mp4",
		Position:  523.5,
		UpdatedAt: time.Now(),
	}))

	got, err := s.GetProgress(ctx, "/library/Movies/Alien (1979).mp4")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.InDelta(t, 523.5, got.Position, 0.001)

	require.NoError(t, s.DeleteProgress(ctx, "/library/Movies/Alien (1979).mp4"))
	got, err = s.GetProgress(ctx, "/library/Movies/Alien (1979).mp4")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDeleteFileRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := EpisodeKey{ShowName: "Dark", Season: 1, Episode: 2}
	require.NoError(t, s.UpsertEpisode(ctx, &EpisodeMetadata{
		ShowName: "Dark", Season: 1, Episode: 2, CatalogID: 5, ShowCatalogID: 1, LastUpdated: time.Now(),
	}))
	require.NoError(t, s.SetProgress(ctx, &WatchProgress{
		FilePath: "/library/Shows/Dark/Dark - S01E02.mp4", Position: 10, UpdatedAt: time.Now(),
	}))

	require.NoError(t, s.DeleteFileRecords(ctx, key, "/library/Shows/Dark/Dark - S01E02.mp4"))

	episodes, err := s.ListEpisodes(ctx)
	require.NoError(t, err)
	require.Empty(t, episodes)

	progress, err := s.GetProgress(ctx, "/library/Shows/Dark/Dark - S01E02.mp4")
	require.NoError(t, err)
	require.Nil(t, progress)
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertShow(ctx, &ShowMetadata{ShowName: "A", CatalogID: 1, Source: "tmdb", LastUpdated: time.Now()}))
	require.NoError(t, s.UpsertEpisode(ctx, &EpisodeMetadata{ShowName: "A", Season: 1, Episode: 1, CatalogID: 1, ShowCatalogID: 1, LastUpdated: time.Now()}))
	require.NoError(t, s.UpsertMovie(ctx, &MovieMetadata{FileName: "m.mp4", CatalogID: 1, Source: "tmdb", LastUpdated: time.Now()}))
	require.NoError(t, s.SetProgress(ctx, &WatchProgress{FilePath: "/m.mp4", UpdatedAt: time.Now()}))

	require.NoError(t, s.ClearAll(ctx))

	shows, err := s.ListShows(ctx)
	require.NoError(t, err)
	require.Empty(t, shows)
	episodes, err := s.ListEpisodes(ctx)
	require.NoError(t, err)
	require.Empty(t, episodes)
	movies, err := s.ListMovies(ctx)
	require.NoError(t, err)
	require.Empty(t, movies)
}

func TestWithTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Store) error {
		if err := tx.UpsertShow(ctx, &ShowMetadata{ShowName: "Doomed", CatalogID: 1, Source: "tmdb", LastUpdated: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	shows, err := s.ListShows(ctx)
	require.NoError(t, err)
	require.Empty(t, shows, "writes inside a failed transaction must not persist")
}
