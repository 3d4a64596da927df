package metadata

import "fmt"

// Source identifies which catalog produced a result. Callers carry it
// forward explicitly for follow-up calls (episode lookup, image download)
// so the same catalog is always consulted for the same entity.
type Source string

const (
	SourceTMDB Source = "tmdb"
	SourceTVDB Source = "tvdb"
)

// ScanOrder is the fixed priority sequence in which catalogs are queried
// during multi-source resolution.
var ScanOrder = []Source{SourceTMDB, SourceTVDB}

// ParseSource converts a stored string back to a Source.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceTMDB, SourceTVDB:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown metadata source %q", s)
}
