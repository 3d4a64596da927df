package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/reelvault/reelvault/internal/database"
	"github.com/reelvault/reelvault/internal/library/scanner"
	"github.com/reelvault/reelvault/internal/library/sorter"
	"github.com/reelvault/reelvault/internal/library/store"
	libsync "github.com/reelvault/reelvault/internal/library/sync"
	"github.com/reelvault/reelvault/internal/metadata"
)

func newTestService(t *testing.T) (*Service, *store.Store, string) {
	t.Helper()
	root := t.TempDir()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := zerolog.Nop()
	st := store.New(db.Conn(), log)
	sc := scanner.New(st, log)
	so := sorter.New(log)
	resolver := metadata.NewResolver(map[metadata.Source]metadata.Catalog{}, log)
	sy := libsync.New(st, resolver, nil, log)

	return New(root, st, sc, so, sy, log), st, root
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("video"), 0o644))
}

func TestBusyFlagRejectsConcurrentOperations(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.acquire("test"))

	_, err := s.Scan(ctx)
	require.ErrorIs(t, err, ErrBusy)
	_, err = s.Sort(ctx)
	require.ErrorIs(t, err, ErrBusy)
	require.ErrorIs(t, s.StartSync(nil), ErrBusy)
	require.ErrorIs(t, s.ClearMetadata(ctx), ErrBusy)

	require.True(t, s.Status().Busy)

	s.release(nil)

	_, err = s.Scan(ctx)
	require.NoError(t, err)
	require.False(t, s.Status().Busy)
}

func TestScanUpdatesInventoryAndStatus(t *testing.T) {
	s, _, root := newTestService(t)
	writeFile(t, filepath.Join(root, "Movies", "Alien (1979).mp4"))

	inv, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, inv.Movies, 1)

	require.Same(t, inv, s.Inventory())
	st := s.Status()
	require.False(t, st.Busy)
	require.NotNil(t, st.LastScanAt)
	require.Empty(t, st.LastError)
}

func TestSortThenScan(t *testing.T) {
	s, _, root := newTestService(t)
	writeFile(t, filepath.Join(root, "Breaking Bad - S01E05.mp4"))

	result, err := s.Sort(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Moved)

	inv, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, inv.Shows, 1)
	require.Equal(t, "Breaking Bad", inv.Shows[0].Name)
}

func TestDeleteFile_Movie(t *testing.T) {
	s, st, root := newTestService(t)
	ctx := context.Background()

	path := filepath.Join(root, "Movies", "Alien (1979).mp4")
	writeFile(t, path)
	require.NoError(t, st.UpsertMovie(ctx, &store.MovieMetadata{
		FileName: "Alien (1979).mp4", CatalogID: 348, Source: "tmdb", LastUpdated: time.Now(),
	}))
	require.NoError(t, st.SetProgress(ctx, &store.WatchProgress{FilePath: path, Position: 10, UpdatedAt: time.Now()}))

	require.NoError(t, s.DeleteFile(ctx, path))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	movie, err := st.GetMovie(ctx, "Alien (1979).mp4")
	require.NoError(t, err)
	require.Nil(t, movie)

	progress, err := st.GetProgress(ctx, path)
	require.NoError(t, err)
	require.Nil(t, progress)
}

func TestDeleteFile_EpisodeInSeasonFolder(t *testing.T) {
	s, st, root := newTestService(t)
	ctx := context.Background()

	path := filepath.Join(root, "Shows", "Breaking Bad", "Season 01", "Breaking Bad - S01E05.mp4")
	writeFile(t, path)
	require.NoError(t, st.UpsertEpisode(ctx, &store.EpisodeMetadata{
		ShowName: "Breaking Bad", Season: 1, Episode: 5, CatalogID: 1, ShowCatalogID: 1, LastUpdated: time.Now(),
	}))

	require.NoError(t, s.DeleteFile(ctx, path))

	episodes, err := st.ListEpisodes(ctx)
	require.NoError(t, err)
	require.Empty(t, episodes, "season-folder file keys by the grandparent show folder")
}

func TestDeleteFile_LooseEpisodeUsesParsedTitle(t *testing.T) {
	s, st, root := newTestService(t)
	ctx := context.Background()

	path := filepath.Join(root, "Shows", "Severance - S01E01.mp4")
	writeFile(t, path)
	require.NoError(t, st.UpsertEpisode(ctx, &store.EpisodeMetadata{
		ShowName: "Severance", Season: 1, Episode: 1, CatalogID: 2, ShowCatalogID: 2, LastUpdated: time.Now(),
	}))

	require.NoError(t, s.DeleteFile(ctx, path))

	episodes, err := st.ListEpisodes(ctx)
	require.NoError(t, err)
	require.Empty(t, episodes)
}

func TestDeleteFile_OutsideRootRejected(t *testing.T) {
	s, _, _ := newTestService(t)
	err := s.DeleteFile(context.Background(), "../../etc/passwd")
	require.Error(t, err)
}

func TestClearMetadata(t *testing.T) {
	s, st, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertShow(ctx, &store.ShowMetadata{
		ShowName: "A", CatalogID: 1, Source: "tmdb", LastUpdated: time.Now(),
	}))

	require.NoError(t, s.ClearMetadata(ctx))

	shows, err := st.ListShows(ctx)
	require.NoError(t, err)
	require.Empty(t, shows)
}

func TestProgressRoundTrip(t *testing.T) {
	s, _, root := newTestService(t)
	ctx := context.Background()

	path := filepath.Join(root, "Movies", "Alien (1979).mp4")
	writeFile(t, path)

	require.NoError(t, s.SetProgress(ctx, path, 42.5))

	got, err := s.Progress(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.InDelta(t, 42.5, got.Position, 0.001)
}
