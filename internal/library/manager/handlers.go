package manager

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for library operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates new library handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the library routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/status", h.GetStatus)
	g.GET("/inventory", h.GetInventory)
	g.POST("/scan", h.Scan)
	g.POST("/sort", h.Sort)
	g.POST("/sync", h.StartSync)
	g.DELETE("/sync", h.CancelSync)
	g.DELETE("/metadata", h.ClearMetadata)
	g.DELETE("/files", h.DeleteFile)
	g.GET("/progress", h.GetProgress)
	g.PUT("/progress", h.SetProgress)
}

// GetStatus returns the busy/idle snapshot and last results.
// GET /api/v1/library/status
func (h *Handlers) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Status())
}

// GetInventory returns the most recent scan result.
// GET /api/v1/library/inventory
func (h *Handlers) GetInventory(c echo.Context) error {
	inv := h.service.Inventory()
	if inv == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no scan has completed yet")
	}
	return c.JSON(http.StatusOK, inv)
}

// Scan walks the library root and returns the fresh inventory.
// POST /api/v1/library/scan
func (h *Handlers) Scan(c echo.Context) error {
	inv, err := h.service.Scan(c.Request().Context())
	if err != nil {
		return operationError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

// Sort relocates recognized video files and returns the sort result.
// POST /api/v1/library/sort
func (h *Handlers) Sort(c echo.Context) error {
	result, err := h.service.Sort(c.Request().Context())
	if err != nil {
		return operationError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// StartSyncRequest carries optional externally-referenced filenames to
// resolve alongside the library tree.
type StartSyncRequest struct {
	External []string `json:"external"`
}

// StartSync launches a background metadata synchronization run.
// POST /api/v1/library/sync
func (h *Handlers) StartSync(c echo.Context) error {
	var req StartSyncRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.service.StartSync(req.External); err != nil {
		return operationError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}

// CancelSync requests cooperative cancellation of a running sync.
// DELETE /api/v1/library/sync
func (h *Handlers) CancelSync(c echo.Context) error {
	h.service.CancelSync()
	return c.NoContent(http.StatusNoContent)
}

// ClearMetadata wipes all cached metadata.
// DELETE /api/v1/library/metadata
func (h *Handlers) ClearMetadata(c echo.Context) error {
	if err := h.service.ClearMetadata(c.Request().Context()); err != nil {
		return operationError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteFileRequest names the library file to remove.
type DeleteFileRequest struct {
	Path string `json:"path"`
}

// DeleteFile removes a video file and its cache records.
// DELETE /api/v1/library/files
func (h *Handlers) DeleteFile(c echo.Context) error {
	var req DeleteFileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}

	if err := h.service.DeleteFile(c.Request().Context(), req.Path); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// GetProgress returns the stored playback position for a file.
// GET /api/v1/library/progress?path=...
func (h *Handlers) GetProgress(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}

	progress, err := h.service.Progress(c.Request().Context(), path)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if progress == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no progress recorded")
	}
	return c.JSON(http.StatusOK, progress)
}

// SetProgressRequest carries a playback position update.
type SetProgressRequest struct {
	Path     string  `json:"path"`
	Position float64 `json:"position"`
}

// SetProgress stores the playback position for a file.
// PUT /api/v1/library/progress
func (h *Handlers) SetProgress(c echo.Context) error {
	var req SetProgressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}

	if err := h.service.SetProgress(c.Request().Context(), req.Path, req.Position); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func operationError(err error) error {
	if errors.Is(err, ErrBusy) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
