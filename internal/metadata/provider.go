package metadata

import "context"

// Catalog defines the uniform capability set every metadata catalog
// client exposes. A catalog that cannot serve a capability reports an
// empty result rather than substituting a wrong one.
type Catalog interface {
	// Name returns the catalog name.
	Name() string

	// IsConfigured returns true if the catalog has required configuration.
	IsConfigured() bool

	// SearchShow returns the best show match for a name, or nil if none.
	SearchShow(ctx context.Context, name string) (*UnifiedShow, error)

	// SearchShows returns up to limit show matches for a name.
	SearchShows(ctx context.Context, name string, limit int) ([]UnifiedShow, error)

	// SearchMovie returns the best movie match for a title, or nil if none.
	SearchMovie(ctx context.Context, title string) (*UnifiedMovie, error)

	// SearchMovies returns up to limit movie matches for a title.
	SearchMovies(ctx context.Context, title string, limit int) ([]UnifiedMovie, error)

	// GetEpisode returns a single episode of a show known to this catalog.
	GetEpisode(ctx context.Context, showID, season, episode int) (*UnifiedEpisode, error)

	// DownloadImage fetches raw image bytes for a catalog-relative or
	// fully-qualified image path.
	DownloadImage(ctx context.Context, path string) ([]byte, error)
}

// UnifiedShow is a catalog-agnostic show record.
type UnifiedShow struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Overview     string `json:"overview,omitempty"`
	PosterPath   string `json:"posterPath,omitempty"`
	BackdropPath string `json:"backdropPath,omitempty"`
	FirstAired   string `json:"firstAired,omitempty"`
}

// UnifiedEpisode is a catalog-agnostic episode record.
type UnifiedEpisode struct {
	ID        int    `json:"id"`
	ShowID    int    `json:"showId"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	Name      string `json:"name"`
	Overview  string `json:"overview,omitempty"`
	StillPath string `json:"stillPath,omitempty"`
	AirDate   string `json:"airDate,omitempty"`
}

// UnifiedMovie is a catalog-agnostic movie record.
type UnifiedMovie struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Overview     string `json:"overview,omitempty"`
	PosterPath   string `json:"posterPath,omitempty"`
	BackdropPath string `json:"backdropPath,omitempty"`
	ReleaseDate  string `json:"releaseDate,omitempty"`
	Runtime      int    `json:"runtime,omitempty"`
}
