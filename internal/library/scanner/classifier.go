package scanner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// EpisodeInfo is the result of classifying a filename as an episode.
type EpisodeInfo struct {
	Title   string
	Season  int
	Episode int
}

// MovieInfo is the result of the looser movie-year classification used
// by the sorter.
type MovieInfo struct {
	Title string
	Year  int
}

// Episode pattern: "<title> - S<season>E<episode>" as the whole name.
// Partial or fuzzy matching is deliberately not attempted.
var episodePattern = regexp.MustCompile(`(?i)^(.+?)\s*-\s*S(\d+)E(\d+)$`)

// Movie pattern: a bare "(YYYY)" suffix. This is a looser, independent
// heuristic because sorting must also handle files that are not show
// episodes.
var moviePattern = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)$`)

// ParseEpisode classifies a filename as a show episode. It strips the
// extension, trims whitespace and requires the full name to match the
// episode pattern; anything else returns ok=false.
func ParseEpisode(filename string) (EpisodeInfo, bool) {
	name := strings.TrimSpace(stripExt(filename))

	match := episodePattern.FindStringSubmatch(name)
	if match == nil {
		return EpisodeInfo{}, false
	}

	season, err := strconv.Atoi(match[2])
	if err != nil {
		return EpisodeInfo{}, false
	}
	episode, err := strconv.Atoi(match[3])
	if err != nil {
		return EpisodeInfo{}, false
	}

	return EpisodeInfo{
		Title:   strings.TrimSpace(match[1]),
		Season:  season,
		Episode: episode,
	}, true
}

// ParseMovieYear classifies a filename as a movie using the "(YYYY)"
// suffix signal.
func ParseMovieYear(filename string) (MovieInfo, bool) {
	name := strings.TrimSpace(stripExt(filename))

	match := moviePattern.FindStringSubmatch(name)
	if match == nil {
		return MovieInfo{}, false
	}

	year, err := strconv.Atoi(match[2])
	if err != nil {
		return MovieInfo{}, false
	}

	return MovieInfo{
		Title: strings.TrimSpace(match[1]),
		Year:  year,
	}, true
}

func stripExt(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
