package tvdb

import "encoding/json"

// LoginRequest is the request body for TVDB authentication.
type LoginRequest struct {
	APIKey string `json:"apikey"`
}

// LoginResponse is the response from TVDB authentication.
type LoginResponse struct {
	Status string `json:"status"`
	Data   struct {
		Token string `json:"token"`
	} `json:"data"`
}

// SearchResponse is the response from TVDB search.
type SearchResponse struct {
	Status string         `json:"status"`
	Data   []SearchResult `json:"data"`
}

// SearchResult is a search result from TVDB. Identifiers arrive in
// several encodings: the id field may be a number or a numeric string,
// tvdb_id is a numeric string, and objectID embeds the id in a
// composite "series-NNN" string.
type SearchResult struct {
	ObjectID     string          `json:"objectID"`
	ID           json.RawMessage `json:"id"`
	TvdbID       string          `json:"tvdb_id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Year         string          `json:"year"`
	Overview     string          `json:"overview"`
	ImageURL     string          `json:"image_url"`
	FirstAirTime string          `json:"first_air_time"`
}

// EpisodesResponse is the response from the series episodes endpoint.
type EpisodesResponse struct {
	Status string `json:"status"`
	Data   struct {
		Episodes []EpisodeRecord `json:"episodes"`
	} `json:"data"`
}

// EpisodeRecord is a single episode from TVDB.
type EpisodeRecord struct {
	ID            json.RawMessage `json:"id"`
	SeriesID      json.RawMessage `json:"seriesId"`
	Name          string          `json:"name"`
	Overview      string          `json:"overview"`
	Aired         string          `json:"aired"`
	SeasonNumber  int             `json:"seasonNumber"`
	EpisodeNumber int             `json:"number"`
	Image         string          `json:"image"`
}
