package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/floorpro/measure-backend-go/internal/measure/capture"
	"github.com/floorpro/measure-backend-go/internal/middleware"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/service"
	"github.com/floorpro/measure-backend-go/pkg/response"
)

// SessionHandler handles HTTP requests for capture sessions
type SessionHandler struct {
	service *service.CaptureService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *service.CaptureService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Start handles POST /api/v1/sessions
func (h *SessionHandler) Start(c *gin.Context) {
	var req service.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid session", err)
		return
	}
	req.WorkspaceID = middleware.WorkspaceID(c)

	session, err := h.service.Start(c.Request.Context(), req)
	if err != nil {
		fail(c, "Failed to start session", err)
		return
	}
	response.Created(c, session)
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	var filter models.SessionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}
	filter.WorkspaceID = middleware.WorkspaceID(c)

	sessions, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, "Failed to list sessions", err)
		return
	}
	response.Success(c, sessions)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to get session", err)
		return
	}
	response.Success(c, session)
}

// Readings handles GET /api/v1/sessions/:id/readings
func (h *SessionHandler) Readings(c *gin.Context) {
	readings, err := h.service.Readings(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to get readings", err)
		return
	}
	response.Success(c, readings)
}

// Capture handles POST /api/v1/sessions/:id/readings. The body is optional.
func (h *SessionHandler) Capture(c *gin.Context) {
	var req struct {
		TurnDeg *float64 `json:"turnDeg"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid reading options", err)
			return
		}
	}

	reading, err := h.service.Capture(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"), capture.CaptureOptions{
		TurnDeg:    req.TurnDeg,
		CapturedBy: middleware.UserID(c),
	})
	if err != nil {
		fail(c, "Failed to capture reading", err)
		return
	}
	response.Created(c, reading)
}

// StartContinuous handles POST /api/v1/sessions/:id/continuous
func (h *SessionHandler) StartContinuous(c *gin.Context) {
	if err := h.service.StartContinuous(middleware.WorkspaceID(c), c.Param("id")); err != nil {
		fail(c, "Failed to start continuous measurement", err)
		return
	}
	response.Success(c, gin.H{"continuous": true})
}

// StopContinuous handles DELETE /api/v1/sessions/:id/continuous
func (h *SessionHandler) StopContinuous(c *gin.Context) {
	if err := h.service.StopContinuous(middleware.WorkspaceID(c), c.Param("id")); err != nil {
		fail(c, "Failed to stop continuous measurement", err)
		return
	}
	response.Success(c, gin.H{"continuous": false})
}

// End handles POST /api/v1/sessions/:id/end
func (h *SessionHandler) End(c *gin.Context) {
	session, err := h.service.End(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to end session", err)
		return
	}
	response.Success(c, session)
}

// Discard handles POST /api/v1/sessions/:id/discard
func (h *SessionHandler) Discard(c *gin.Context) {
	session, err := h.service.Discard(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to discard session", err)
		return
	}
	response.Success(c, session)
}

// Geometry handles GET /api/v1/sessions/:id/geometry
func (h *SessionHandler) Geometry(c *gin.Context) {
	res, err := h.service.Geometry(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to build session geometry", err)
		return
	}
	response.Success(c, gin.H{
		"origin":       res.Origin,
		"points":       res.Points,
		"segments":     res.Segments,
		"closureError": res.ClosureError,
	})
}
