// Package manager exposes the library operations (scan, sort, sync,
// metadata maintenance) behind a single busy flag so only one
// operation runs at a time.
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelvault/reelvault/internal/library/scanner"
	"github.com/reelvault/reelvault/internal/library/sorter"
	"github.com/reelvault/reelvault/internal/library/store"
	libsync "github.com/reelvault/reelvault/internal/library/sync"
)

// ErrBusy is returned when an operation is requested while another is
// still running. Requests are rejected, never queued.
var ErrBusy = errors.New("a library operation is already in progress")

// Status is the operation snapshot reported to collaborators.
type Status struct {
	Busy       bool            `json:"busy"`
	Operation  string          `json:"operation,omitempty"`
	LastError  string          `json:"lastError,omitempty"`
	LastScanAt *time.Time      `json:"lastScanAt,omitempty"`
	LastSort   *sorter.Result  `json:"lastSort,omitempty"`
	LastSync   *libsync.Result `json:"lastSync,omitempty"`
}

// Service coordinates the library components. All mutating operations
// share one busy flag; a second caller gets ErrBusy while the first is
// running.
type Service struct {
	root    string
	store   *store.Store
	scanner *scanner.Scanner
	sorter  *sorter.Sorter
	syncer  *libsync.Synchronizer
	logger  zerolog.Logger

	mu         stdsync.Mutex
	busy       bool
	operation  string
	syncCancel context.CancelFunc

	lastErr       error
	lastInventory *scanner.Inventory
	lastScanAt    time.Time
	lastSort      *sorter.Result
	lastSync      *libsync.Result
}

// New creates the library service for one library root.
func New(root string, st *store.Store, sc *scanner.Scanner, so *sorter.Sorter, sy *libsync.Synchronizer, logger zerolog.Logger) *Service {
	return &Service{
		root:    root,
		store:   st,
		scanner: sc,
		sorter:  so,
		syncer:  sy,
		logger:  logger.With().Str("component", "library").Logger(),
	}
}

// acquire claims the busy flag, or returns ErrBusy.
func (s *Service) acquire(operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	s.operation = operation
	return nil
}

func (s *Service) release(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.operation = ""
	s.syncCancel = nil
	s.lastErr = err
}

// Status returns the current busy/idle snapshot with the last results.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Busy:      s.busy,
		Operation: s.operation,
		LastSort:  s.lastSort,
		LastSync:  s.lastSync,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if !s.lastScanAt.IsZero() {
		t := s.lastScanAt
		st.LastScanAt = &t
	}
	return st
}

// Inventory returns the most recent scan result, which may be nil
// before the first scan.
func (s *Service) Inventory() *scanner.Inventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInventory
}

// Scan walks the library root and refreshes the cached inventory.
func (s *Service) Scan(ctx context.Context) (*scanner.Inventory, error) {
	if err := s.acquire("scan"); err != nil {
		return nil, err
	}

	inv, err := s.scanner.Scan(ctx, s.root)
	if err == nil {
		s.mu.Lock()
		s.lastInventory = inv
		s.lastScanAt = time.Now()
		s.mu.Unlock()
	}
	s.release(err)
	return inv, err
}

// Sort moves recognized video files into their canonical locations and
// returns the structured result.
func (s *Service) Sort(ctx context.Context) (*sorter.Result, error) {
	if err := s.acquire("sort"); err != nil {
		return nil, err
	}

	result, err := s.sorter.Sort(s.root)
	if err == nil {
		s.mu.Lock()
		s.lastSort = result
		s.mu.Unlock()
	}
	s.release(err)
	return result, err
}

// StartSync scans the library and launches metadata synchronization in
// the background, reporting completion through Status. external lists
// filenames of videos outside the library tree that should be resolved
// by name. Returns ErrBusy if another operation is running.
func (s *Service) StartSync(external []string) error {
	if err := s.acquire("sync"); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.syncCancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()

		inv, err := s.scanner.Scan(ctx, s.root)
		if err != nil {
			s.logger.Error().Err(err).Msg("Sync scan failed")
			s.release(err)
			return
		}

		result, err := s.syncer.Sync(ctx, inv, external)
		s.mu.Lock()
		s.lastInventory = inv
		s.lastScanAt = time.Now()
		s.lastSync = result
		s.mu.Unlock()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("Synchronization failed")
		}
		s.release(err)
	}()
	return nil
}

// CancelSync requests cooperative cancellation of a running sync. The
// run stops after finishing its current item. No-op when idle.
func (s *Service) CancelSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncCancel != nil {
		s.syncCancel()
	}
}

// ClearMetadata wipes every cached metadata record.
func (s *Service) ClearMetadata(ctx context.Context) error {
	if err := s.acquire("clear"); err != nil {
		return err
	}

	err := s.store.ClearAll(ctx)
	if err == nil {
		s.mu.Lock()
		s.lastInventory = nil
		s.mu.Unlock()
	}
	s.release(err)
	return err
}

// DeleteFile removes a video file from disk along with its cache
// records. Episode records are keyed path-independently, so the show
// name is derived from the file's location the same way the scanner
// derives it.
func (s *Service) DeleteFile(ctx context.Context, path string) error {
	abs, err := s.resolveLibraryPath(path)
	if err != nil {
		return err
	}

	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	name := filepath.Base(abs)
	moviesDir := filepath.Join(s.root, scanner.MoviesDir)
	if filepath.Dir(abs) == moviesDir {
		if err := s.store.DeleteMovie(ctx, name); err != nil {
			return err
		}
		return s.store.DeleteProgress(ctx, abs)
	}

	info, ok := scanner.ParseEpisode(name)
	if !ok {
		// Not an episode, nothing cached beyond watch progress.
		return s.store.DeleteProgress(ctx, abs)
	}

	key := store.EpisodeKey{
		ShowName: s.showNameFor(abs, info.Title),
		Season:   info.Season,
		Episode:  info.Episode,
	}
	return s.store.DeleteFileRecords(ctx, key, abs)
}

// resolveLibraryPath confines a caller-supplied path to the library
// root.
func (s *Service) resolveLibraryPath(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.root, path)
	}
	abs = filepath.Clean(abs)
	root := filepath.Clean(s.root)
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the library root", path)
	}
	return abs, nil
}

// showNameFor derives the episode-key show name from a file location:
// loose files in the shows root use the parsed title, files in a
// season folder use the grandparent folder, anything else the parent
// folder.
func (s *Service) showNameFor(abs, parsedTitle string) string {
	showsDir := filepath.Join(s.root, scanner.ShowsDir)
	parent := filepath.Dir(abs)
	if parent == showsDir {
		return parsedTitle
	}
	if strings.Contains(strings.ToLower(filepath.Base(parent)), "season") {
		return filepath.Base(filepath.Dir(parent))
	}
	return filepath.Base(parent)
}

// Progress returns the stored watch progress for a file, or nil.
func (s *Service) Progress(ctx context.Context, path string) (*store.WatchProgress, error) {
	abs, err := s.resolveLibraryPath(path)
	if err != nil {
		return nil, err
	}
	return s.store.GetProgress(ctx, abs)
}

// SetProgress stores the playback position for a file.
func (s *Service) SetProgress(ctx context.Context, path string, position float64) error {
	abs, err := s.resolveLibraryPath(path)
	if err != nil {
		return err
	}
	return s.store.SetProgress(ctx, &store.WatchProgress{
		FilePath:  abs,
		Position:  position,
		UpdatedAt: time.Now(),
	})
}
