package sorter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reelvault/reelvault/internal/library/scanner"
)

// fallbackFolder is used when sanitizing a show title leaves nothing.
const fallbackFolder = "Unknown"

// Failure records one file that could not be moved.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the structured outcome of a sort pass. Per-file problems
// land in Failures and Unclassified; only top-level destination
// directory errors abort the pass.
type Result struct {
	Scanned       int       `json:"scanned"`
	Moved         int       `json:"moved"`
	AlreadySorted int       `json:"alreadySorted"`
	Unclassified  []string  `json:"unclassified,omitempty"`
	Failures      []Failure `json:"failures,omitempty"`
}

// IsClean reports whether the pass moved nothing and hit no failures,
// which is what a second run over an already-sorted tree looks like.
func (r *Result) IsClean() bool {
	return r.Moved == 0 && len(r.Failures) == 0
}

// Sorter moves recognized video files under a library root into their
// canonical Shows/ and Movies/ locations.
type Sorter struct {
	logger zerolog.Logger
}

// New creates a new library sorter.
func New(logger zerolog.Logger) *Sorter {
	return &Sorter{logger: logger.With().Str("component", "sorter").Logger()}
}

// Sort walks root and relocates every recognized video file. Episodes
// go to Shows/<sanitized title>/, files with a (YYYY) suffix go to
// Movies/, everything else is reported as unclassified. Files already
// inside their canonical destination are counted, not moved.
func (s *Sorter) Sort(root string) (*Result, error) {
	showsDir := filepath.Join(root, scanner.ShowsDir)
	moviesDir := filepath.Join(root, scanner.MoviesDir)
	if err := os.MkdirAll(showsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create shows directory: %w", err)
	}
	if err := os.MkdirAll(moviesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create movies directory: %w", err)
	}

	importedDir := filepath.Join(showsDir, scanner.ImportedDir)
	result := &Result{}

	// Collect candidates before moving anything so files relocated into
	// Shows/ or Movies/ are not rescanned mid-walk.
	var candidates []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Failures = append(result.Failures, Failure{Path: path, Reason: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path == importedDir {
				return filepath.SkipDir
			}
			return nil
		}
		if scanner.IsVideoFile(d.Name()) {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk library root: %w", err)
	}

	for _, path := range candidates {
		result.Scanned++
		s.sortFile(path, filepath.Base(path), showsDir, moviesDir, result)
	}

	s.logger.Info().
		Int("scanned", result.Scanned).
		Int("moved", result.Moved).
		Int("alreadySorted", result.AlreadySorted).
		Int("unclassified", len(result.Unclassified)).
		Int("failures", len(result.Failures)).
		Msg("Sort pass complete")
	return result, nil
}

func (s *Sorter) sortFile(path, name, showsDir, moviesDir string, result *Result) {
	var destDir string
	switch {
	case hasEpisodeSignal(name):
		info, _ := scanner.ParseEpisode(name)
		destDir = filepath.Join(showsDir, SanitizeFolderName(info.Title))
	case hasMovieSignal(name):
		destDir = moviesDir
	default:
		result.Unclassified = append(result.Unclassified, name)
		return
	}

	if filepath.Dir(path) == destDir {
		result.AlreadySorted++
		return
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		result.Failures = append(result.Failures, Failure{Path: path, Reason: err.Error()})
		return
	}
	dest := uniqueDestination(filepath.Join(destDir, name))
	if err := os.Rename(path, dest); err != nil {
		result.Failures = append(result.Failures, Failure{Path: path, Reason: err.Error()})
		return
	}
	result.Moved++
	s.logger.Debug().Str("from", path).Str("to", dest).Msg("Moved file")
}

func hasEpisodeSignal(name string) bool {
	_, ok := scanner.ParseEpisode(name)
	return ok
}

func hasMovieSignal(name string) bool {
	_, ok := scanner.ParseMovieYear(name)
	return ok
}

// uniqueDestination appends " (n)" before the extension until the path
// does not exist, so an existing file is never overwritten.
func uniqueDestination(dest string) string {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest
	}
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// SanitizeFolderName replaces filesystem-illegal characters with spaces
// and collapses the result. An empty result falls back to a fixed
// placeholder.
func SanitizeFolderName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return ' '
		}
		return r
	}, name)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return fallbackFolder
	}
	return cleaned
}
