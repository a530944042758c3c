package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/floorpro/measure-backend-go/internal/middleware"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/service"
	"github.com/floorpro/measure-backend-go/pkg/response"
)

// GeometryHandler handles HTTP requests for floor plans
type GeometryHandler struct {
	service *service.GeometryService
}

// NewGeometryHandler creates a new geometry handler
func NewGeometryHandler(service *service.GeometryService) *GeometryHandler {
	return &GeometryHandler{service: service}
}

// Save handles POST /api/v1/geometries. The body is a whole geometry; pass
// ?expectedVersion= to reject the save when someone else saved first.
func (h *GeometryHandler) Save(c *gin.Context) {
	version, ok := expectedVersion(c)
	if !ok {
		return
	}
	var g models.Geometry
	if err := c.ShouldBindJSON(&g); err != nil {
		response.BadRequest(c, "Invalid geometry", err)
		return
	}
	g.WorkspaceID = middleware.WorkspaceID(c)

	saved, err := h.service.Save(c.Request.Context(), &g, version)
	if err != nil {
		fail(c, "Failed to save geometry", err)
		return
	}
	response.Success(c, saved)
}

// List handles GET /api/v1/geometries
func (h *GeometryHandler) List(c *gin.Context) {
	var filter models.GeometryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}
	filter.WorkspaceID = middleware.WorkspaceID(c)

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, "Failed to list geometries", err)
		return
	}
	response.Success(c, list)
}

// Get handles GET /api/v1/geometries/:id
func (h *GeometryHandler) Get(c *gin.Context) {
	g, err := h.service.Get(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to get geometry", err)
		return
	}
	response.Success(c, g)
}

type previewRequest struct {
	Points   [][2]float64     `json:"points"`
	Closed   bool             `json:"closed"`
	Openings []models.Opening `json:"openings"`
}

// Preview handles POST /api/v1/geometries/preview
func (h *GeometryHandler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid points", err)
		return
	}
	g, err := h.service.Preview(req.Points, req.Closed, req.Openings)
	if err != nil {
		fail(c, "Failed to preview geometry", err)
		return
	}
	response.Success(c, g)
}

type openingRequest struct {
	SegmentID   string  `json:"segmentId" binding:"required"`
	Type        string  `json:"type" binding:"required"`
	Width       float64 `json:"width"`
	OffsetFromA float64 `json:"offsetFromA"`
}

// AddOpening handles POST /api/v1/geometries/:id/openings
func (h *GeometryHandler) AddOpening(c *gin.Context) {
	version, ok := expectedVersion(c)
	if !ok {
		return
	}
	var req openingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid opening", err)
		return
	}

	g, o, err := h.service.AddOpening(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"),
		req.SegmentID, req.Type, req.Width, req.OffsetFromA, version)
	if err != nil {
		fail(c, "Failed to add opening", err)
		return
	}
	response.Created(c, gin.H{"opening": o, "geometry": g})
}

// RemoveOpening handles DELETE /api/v1/geometries/:id/openings/:openingId
func (h *GeometryHandler) RemoveOpening(c *gin.Context) {
	version, ok := expectedVersion(c)
	if !ok {
		return
	}
	g, err := h.service.RemoveOpening(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"), c.Param("openingId"), version)
	if err != nil {
		fail(c, "Failed to remove opening", err)
		return
	}
	response.Success(c, g)
}

type pointRequest struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Locked *bool    `json:"locked"`
}

// UpdatePoint handles PATCH /api/v1/geometries/:id/points/:pointId. It
// moves the point, locks or unlocks it, or both, as one new version.
func (h *GeometryHandler) UpdatePoint(c *gin.Context) {
	version, ok := expectedVersion(c)
	if !ok {
		return
	}
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid point update", err)
		return
	}
	if (req.X == nil) != (req.Y == nil) {
		response.BadRequest(c, "x and y must be given together", nil)
		return
	}
	if req.X == nil && req.Locked == nil {
		response.BadRequest(c, "Nothing to update", nil)
		return
	}

	g, err := h.service.UpdatePoint(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"), c.Param("pointId"),
		service.PointUpdate{X: req.X, Y: req.Y, Locked: req.Locked}, version)
	if err != nil {
		fail(c, "Failed to update point", err)
		return
	}
	response.Success(c, g)
}

// BuildFromSession handles POST /api/v1/geometries/from-session/:sessionId
func (h *GeometryHandler) BuildFromSession(c *gin.Context) {
	g, err := h.service.BuildFromSession(c.Request.Context(), middleware.WorkspaceID(c), c.Param("sessionId"))
	if err != nil {
		fail(c, "Failed to build geometry from session", err)
		return
	}
	response.Success(c, g)
}
