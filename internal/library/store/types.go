package store

import "time"

// ShowMetadata is the persisted cache record for a show, keyed by the
// inventory show name.
type ShowMetadata struct {
	ShowName     string    `json:"showName"`
	CatalogID    int       `json:"catalogId"`
	Source       string    `json:"source"`
	DisplayName  string    `json:"displayName"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"posterPath,omitempty"`
	BackdropPath string    `json:"backdropPath,omitempty"`
	Poster       []byte    `json:"-"`
	FirstAired   string    `json:"firstAired,omitempty"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// EpisodeKey is the composite key for episode records. It is
// deliberately path-independent so moving or renaming season folders
// does not orphan metadata.
type EpisodeKey struct {
	ShowName string
	Season   int
	Episode  int
}

// EpisodeMetadata is the persisted cache record for one episode.
type EpisodeMetadata struct {
	ShowName      string    `json:"showName"`
	Season        int       `json:"season"`
	Episode       int       `json:"episode"`
	CatalogID     int       `json:"catalogId"`
	ShowCatalogID int       `json:"showCatalogId"`
	DisplayName   string    `json:"displayName"`
	Overview      string    `json:"overview,omitempty"`
	StillPath     string    `json:"stillPath,omitempty"`
	Still         []byte    `json:"-"`
	AirDate       string    `json:"airDate,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// Key returns the composite key for this record.
func (e *EpisodeMetadata) Key() EpisodeKey {
	return EpisodeKey{ShowName: e.ShowName, Season: e.Season, Episode: e.Episode}
}

// MovieMetadata is the persisted cache record for a movie, keyed by the
// original filename.
type MovieMetadata struct {
	FileName     string    `json:"fileName"`
	CatalogID    int       `json:"catalogId"`
	Source       string    `json:"source"`
	DisplayName  string    `json:"displayName"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"posterPath,omitempty"`
	BackdropPath string    `json:"backdropPath,omitempty"`
	Poster       []byte    `json:"-"`
	ReleaseDate  string    `json:"releaseDate,omitempty"`
	Runtime      int       `json:"runtime,omitempty"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// WatchProgress tracks playback position for a file.
type WatchProgress struct {
	FilePath  string    `json:"filePath"`
	Position  float64   `json:"position"`
	UpdatedAt time.Time `json:"updatedAt"`
}
