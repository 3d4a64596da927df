package tvdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelvault/reelvault/internal/config"
)

func newTestClient(server *httptest.Server) *Client {
	cfg := config.TVDBConfig{
		APIKey:       "test-api-key",
		BaseURL:      server.URL,
		ImageBaseURL: server.URL,
		Timeout:      5,
	}
	return NewClient(cfg, zerolog.Nop())
}

func loginHandler(t *testing.T, w http.ResponseWriter, r *http.Request) {
	t.Helper()
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Errorf("bad login body: %v", err)
	}
	if req.APIKey != "test-api-key" {
		t.Errorf("login apikey = %q", req.APIKey)
	}
	resp := LoginResponse{Status: "success"}
	resp.Data.Token = "bearer-token"
	json.NewEncoder(w).Encode(resp)
}

func TestClient_SearchShows_AuthenticatesLazily(t *testing.T) {
	logins := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			logins++
			loginHandler(t, w, r)
		case "/search":
			if got := r.Header.Get("Authorization"); got != "Bearer bearer-token" {
				t.Errorf("Authorization = %q", got)
			}
			if got := r.URL.Query().Get("type"); got != "series" {
				t.Errorf("type = %q, want series", got)
			}
			json.NewEncoder(w).Encode(SearchResponse{
				Status: "success",
				Data: []SearchResult{
					{ObjectID: "series-81189", ID: json.RawMessage(`"81189"`), Name: "Breaking Bad",
						Type: "series", Year: "2008", ImageURL: "https://artworks.example/bb.jpg"},
					{ObjectID: "series-broken", ID: json.RawMessage(`"broken"`), Name: "Undecodable", Type: "series"},
				},
			})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	results, err := client.SearchShows(context.Background(), "Breaking Bad", 10)
	if err != nil {
		t.Fatalf("SearchShows() error = %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (undecodable ids are skipped)", len(results))
	}
	if results[0].ID != 81189 {
		t.Errorf("ID = %d, want 81189", results[0].ID)
	}
	if results[0].FirstAired != "2008" {
		t.Errorf("FirstAired = %q, want year fallback", results[0].FirstAired)
	}

	// Second search reuses the cached token.
	if _, err := client.SearchShows(context.Background(), "Breaking Bad", 10); err != nil {
		t.Fatalf("second SearchShows() error = %v", err)
	}
	if logins != 1 {
		t.Errorf("logins = %d, want 1 (token cached)", logins)
	}
}

func TestClient_SearchMovie_Unsupported(t *testing.T) {
	// No server: unsupported capabilities must not reach the network.
	client := NewClient(config.TVDBConfig{APIKey: "k", BaseURL: "http://127.0.0.1:0"}, zerolog.Nop())

	movie, err := client.SearchMovie(context.Background(), "Alien")
	if err != nil {
		t.Fatalf("SearchMovie() error = %v, want nil", err)
	}
	if movie != nil {
		t.Errorf("movie = %+v, want nil", movie)
	}

	movies, err := client.SearchMovies(context.Background(), "Alien", 10)
	if err != nil {
		t.Fatalf("SearchMovies() error = %v, want nil", err)
	}
	if len(movies) != 0 {
		t.Errorf("movies = %+v, want empty", movies)
	}
}

func TestClient_GetEpisode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			loginHandler(t, w, r)
		case "/series/81189/episodes/default":
			if got := r.URL.Query().Get("season"); got != "1" {
				t.Errorf("season = %q", got)
			}
			if got := r.URL.Query().Get("episodeNumber"); got != "5" {
				t.Errorf("episodeNumber = %q", got)
			}
			resp := EpisodesResponse{Status: "success"}
			resp.Data.Episodes = []EpisodeRecord{
				{ID: json.RawMessage(`349232`), SeasonNumber: 1, EpisodeNumber: 5,
					Name: "Gray Matter", Aired: "2008-02-24", Image: "/banners/still.jpg"},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	ep, err := client.GetEpisode(context.Background(), 81189, 1, 5)
	if err != nil {
		t.Fatalf("GetEpisode() error = %v", err)
	}
	if ep.ID != 349232 || ep.Name != "Gray Matter" || ep.ShowID != 81189 {
		t.Errorf("unexpected episode: %+v", ep)
	}
}

func TestClient_GetEpisode_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			loginHandler(t, w, r)
		default:
			json.NewEncoder(w).Encode(EpisodesResponse{Status: "success"})
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.GetEpisode(context.Background(), 81189, 9, 99)
	if err != ErrNotFound {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestClient_TokenClearedOnUnauthorized(t *testing.T) {
	unauthorized := true
	logins := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			logins++
			loginHandler(t, w, r)
		case "/search":
			if unauthorized {
				unauthorized = false
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(SearchResponse{Status: "success"})
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	if _, err := client.SearchShows(context.Background(), "x", 1); err == nil {
		t.Fatal("expected error from unauthorized response")
	}

	// The cleared token forces a fresh login on the next call.
	if _, err := client.SearchShows(context.Background(), "x", 1); err != nil {
		t.Fatalf("retry after token clear failed: %v", err)
	}
	if logins != 2 {
		t.Errorf("logins = %d, want 2", logins)
	}
}

func TestClient_DownloadImage_AbsoluteAndRelative(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/banners/still.jpg" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte("img"))
	}))
	defer server.Close()

	client := newTestClient(server)

	// Relative path resolves against the artwork base.
	data, err := client.DownloadImage(context.Background(), "/banners/still.jpg")
	if err != nil {
		t.Fatalf("DownloadImage(relative) error = %v", err)
	}
	if string(data) != "img" {
		t.Errorf("data = %q", data)
	}

	// Absolute URL is fetched as-is.
	data, err = client.DownloadImage(context.Background(), server.URL+"/banners/still.jpg")
	if err != nil {
		t.Fatalf("DownloadImage(absolute) error = %v", err)
	}
	if string(data) != "img" {
		t.Errorf("data = %q", data)
	}
}
