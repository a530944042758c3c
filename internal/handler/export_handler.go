package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/floorpro/measure-backend-go/internal/middleware"
	"github.com/floorpro/measure-backend-go/internal/service"
	"github.com/floorpro/measure-backend-go/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler handles HTTP requests for plan exports
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(service *service.ExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// ExportPNG handles POST /api/v1/geometries/:id/export
func (h *ExportHandler) ExportPNG(c *gin.Context) {
	e, err := h.service.ExportPNG(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to export plan", err)
		return
	}
	response.Created(c, e)
}

// List handles GET /api/v1/geometries/:id/exports
func (h *ExportHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.service.ListExports(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"), limit)
	if err != nil {
		fail(c, "Failed to list exports", err)
		return
	}
	response.Success(c, list)
}

// GeoJSON handles GET /api/v1/geometries/:id/geojson
func (h *ExportHandler) GeoJSON(c *gin.Context) {
	data, err := h.service.GeoJSON(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to export GeoJSON", err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}

// Takeoff handles GET /api/v1/geometries/:id/takeoff.xlsx
func (h *ExportHandler) Takeoff(c *gin.Context) {
	id := c.Param("id")
	data, err := h.service.Takeoff(c.Request.Context(), middleware.WorkspaceID(c), id)
	if err != nil {
		fail(c, "Failed to build takeoff", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="takeoff-`+id+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
