package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reelvault/reelvault/internal/library/store"
)

const (
	// MoviesDir and ShowsDir are the canonical top-level library
	// subdirectories under the library root.
	MoviesDir = "Movies"
	ShowsDir  = "Shows"

	// ImportedDir is reserved for externally-referenced videos and is
	// excluded from scanning and sorting.
	ImportedDir = "Imported"
)

// VideoFile is one recognized video file in the inventory, joined with
// its cached episode metadata when the filename classifies as an
// episode.
type VideoFile struct {
	Path       string                 `json:"path"`
	Name       string                 `json:"name"`
	Season     int                    `json:"season,omitempty"`
	Episode    int                    `json:"episode,omitempty"`
	HasEpisode bool                   `json:"hasEpisode"`
	Meta       *store.EpisodeMetadata `json:"meta,omitempty"`
}

// Show groups the inventory files belonging to one show name.
type Show struct {
	Name  string              `json:"name"`
	Path  string              `json:"path,omitempty"`
	Files []VideoFile         `json:"files"`
	Meta  *store.ShowMetadata `json:"meta,omitempty"`
}

// Movie is one recognized movie file joined with its cached metadata.
type Movie struct {
	Path     string               `json:"path"`
	FileName string               `json:"fileName"`
	Meta     *store.MovieMetadata `json:"meta,omitempty"`
}

// Inventory is the full result of a library scan. Diagnostics collects
// per-entry read problems that were skipped rather than aborting the
// scan.
type Inventory struct {
	Shows       []Show   `json:"shows"`
	Movies      []Movie  `json:"movies"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Scanner walks a library root and produces the show/movie inventory
// joined against the persisted metadata cache.
type Scanner struct {
	store  *store.Store
	logger zerolog.Logger
}

// New creates a new library scanner.
func New(st *store.Store, logger zerolog.Logger) *Scanner {
	return &Scanner{
		store:  st,
		logger: logger.With().Str("component", "scanner").Logger(),
	}
}

// Scan enumerates root and returns the inventory. The metadata cache is
// bulk-loaded once up front so the join never issues per-file queries.
// Per-entry read errors become diagnostics; a missing Movies or Shows
// subdirectory yields an empty section.
func (s *Scanner) Scan(ctx context.Context, root string) (*Inventory, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to access library root: %w", err)
	}

	showMeta, err := s.store.ListShows(ctx)
	if err != nil {
		return nil, err
	}
	episodeMeta, err := s.store.ListEpisodes(ctx)
	if err != nil {
		return nil, err
	}
	movieMeta, err := s.store.ListMovies(ctx)
	if err != nil {
		return nil, err
	}

	inv := &Inventory{}
	s.scanMovies(root, movieMeta, inv)
	s.scanShows(root, showMeta, episodeMeta, inv)

	s.logger.Info().
		Int("shows", len(inv.Shows)).
		Int("movies", len(inv.Movies)).
		Int("diagnostics", len(inv.Diagnostics)).
		Msg("Library scan complete")
	return inv, nil
}

func (s *Scanner) scanMovies(root string, meta map[string]*store.MovieMetadata, inv *Inventory) {
	dir := filepath.Join(root, MoviesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			inv.Diagnostics = append(inv.Diagnostics, fmt.Sprintf("read %s: %v", dir, err))
		}
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsVideoFile(entry.Name()) {
			continue
		}
		inv.Movies = append(inv.Movies, Movie{
			Path:     filepath.Join(dir, entry.Name()),
			FileName: entry.Name(),
			Meta:     meta[entry.Name()],
		})
	}
}

func (s *Scanner) scanShows(root string, showMeta map[string]*store.ShowMetadata, episodeMeta map[store.EpisodeKey]*store.EpisodeMetadata, inv *Inventory) {
	dir := filepath.Join(root, ShowsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			inv.Diagnostics = append(inv.Diagnostics, fmt.Sprintf("read %s: %v", dir, err))
		}
		return
	}

	// Shows are collected in enumeration order; the index maps a show
	// name back to its slot so loose files and directory files merge
	// into the same entity.
	index := make(map[string]int)
	addFile := func(showName, showPath string, f VideoFile) {
		i, ok := index[showName]
		if !ok {
			inv.Shows = append(inv.Shows, Show{
				Name: showName,
				Path: showPath,
				Meta: showMeta[showName],
			})
			i = len(inv.Shows) - 1
			index[showName] = i
		}
		if showPath != "" && inv.Shows[i].Path == "" {
			inv.Shows[i].Path = showPath
		}
		inv.Shows[i].Files = append(inv.Shows[i].Files, f)
	}

	// First pass: video files sitting loose in the shows root. Their
	// show name comes from the classifier's title capture.
	for _, entry := range entries {
		if entry.IsDir() || !IsVideoFile(entry.Name()) {
			continue
		}
		var showName string
		if info, ok := ParseEpisode(entry.Name()); ok {
			showName = info.Title
		} else {
			showName = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		f := s.classify(filepath.Join(dir, entry.Name()), entry.Name(), showName, episodeMeta)
		addFile(showName, "", f)
	}

	// Second pass: per-show directories, with one level of season
	// folder nesting. The reserved imported subtree is skipped.
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == ImportedDir {
			continue
		}
		showDir := filepath.Join(dir, entry.Name())
		sub, err := os.ReadDir(showDir)
		if err != nil {
			inv.Diagnostics = append(inv.Diagnostics, fmt.Sprintf("read %s: %v", showDir, err))
			continue
		}
		for _, se := range sub {
			if se.IsDir() {
				seasonDir := filepath.Join(showDir, se.Name())
				nested, err := os.ReadDir(seasonDir)
				if err != nil {
					inv.Diagnostics = append(inv.Diagnostics, fmt.Sprintf("read %s: %v", seasonDir, err))
					continue
				}
				// A folder named like a season belongs to the
				// enclosing show; anything else is treated as its own
				// show named after the folder.
				showName := se.Name()
				if strings.Contains(strings.ToLower(se.Name()), "season") {
					showName = entry.Name()
				}
				for _, ne := range nested {
					if ne.IsDir() || !IsVideoFile(ne.Name()) {
						continue
					}
					f := s.classify(filepath.Join(seasonDir, ne.Name()), ne.Name(), showName, episodeMeta)
					addFile(showName, showDir, f)
				}
				continue
			}
			if !IsVideoFile(se.Name()) {
				continue
			}
			f := s.classify(filepath.Join(showDir, se.Name()), se.Name(), entry.Name(), episodeMeta)
			addFile(entry.Name(), showDir, f)
		}
	}
}

// classify builds a VideoFile, joining cached episode metadata by the
// path-independent (show name, season, episode) triple.
func (s *Scanner) classify(path, name, showName string, episodeMeta map[store.EpisodeKey]*store.EpisodeMetadata) VideoFile {
	f := VideoFile{Path: path, Name: name}
	info, ok := ParseEpisode(name)
	if !ok {
		return f
	}
	f.Season = info.Season
	f.Episode = info.Episode
	f.HasEpisode = true
	if showName != "" {
		f.Meta = episodeMeta[store.EpisodeKey{ShowName: showName, Season: info.Season, Episode: info.Episode}]
	}
	return f
}
