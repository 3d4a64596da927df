package metadata

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const defaultSearchLimit = 10

// Handlers provides HTTP handlers for catalog searches, used by the
// re-match UI to offer alternative identities for a library item.
type Handlers struct {
	resolver *Resolver
}

// NewHandlers creates new metadata search handlers.
func NewHandlers(resolver *Resolver) *Handlers {
	return &Handlers{resolver: resolver}
}

// RegisterRoutes registers the metadata search routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/shows", h.SearchShows)
	g.GET("/movies", h.SearchMovies)
}

// SearchShows returns the merged cross-catalog show search results.
// GET /api/v1/metadata/shows?query=...&limit=10
func (h *Handlers) SearchShows(c echo.Context) error {
	query, limit, err := searchParams(c)
	if err != nil {
		return err
	}

	results, err := h.resolver.SearchShows(c.Request().Context(), query, limit)
	if err != nil {
		return searchError(err)
	}
	if results == nil {
		results = []UnifiedShow{}
	}
	return c.JSON(http.StatusOK, results)
}

// SearchMovies returns the merged cross-catalog movie search results.
// GET /api/v1/metadata/movies?query=...&limit=10
func (h *Handlers) SearchMovies(c echo.Context) error {
	query, limit, err := searchParams(c)
	if err != nil {
		return err
	}

	results, err := h.resolver.SearchMovies(c.Request().Context(), query, limit)
	if err != nil {
		return searchError(err)
	}
	if results == nil {
		results = []UnifiedMovie{}
	}
	return c.JSON(http.StatusOK, results)
}

func searchParams(c echo.Context) (string, int, error) {
	query := c.QueryParam("query")
	if query == "" {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	limit := defaultSearchLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return "", 0, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	return query, limit, nil
}

func searchError(err error) error {
	if errors.Is(err, ErrNoCatalogsConfigured) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
