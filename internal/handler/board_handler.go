package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/floorpro/measure-backend-go/internal/freedraw"
	"github.com/floorpro/measure-backend-go/internal/middleware"
	"github.com/floorpro/measure-backend-go/internal/service"
	"github.com/floorpro/measure-backend-go/pkg/response"
)

// BoardHandler handles HTTP requests for free-draw boards
type BoardHandler struct {
	service *service.BoardService
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(service *service.BoardService) *BoardHandler {
	return &BoardHandler{service: service}
}

// Create handles POST /api/v1/boards
func (h *BoardHandler) Create(c *gin.Context) {
	var req struct {
		JobID  string `json:"jobId" binding:"required"`
		RoomID string `json:"roomId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid board", err)
		return
	}
	b, err := h.service.Create(c.Request.Context(), middleware.WorkspaceID(c), req.JobID, req.RoomID)
	if err != nil {
		fail(c, "Failed to create board", err)
		return
	}
	response.Created(c, b)
}

// List handles GET /api/v1/boards?jobId=
func (h *BoardHandler) List(c *gin.Context) {
	jobID := c.Query("jobId")
	if jobID == "" {
		response.BadRequest(c, "jobId is required", nil)
		return
	}
	boards, err := h.service.ListByJob(c.Request.Context(), middleware.WorkspaceID(c), jobID)
	if err != nil {
		fail(c, "Failed to list boards", err)
		return
	}
	response.Success(c, boards)
}

// Get handles GET /api/v1/boards/:id
func (h *BoardHandler) Get(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to get board", err)
		return
	}
	response.Success(c, b)
}

// AddStroke handles POST /api/v1/boards/:id/strokes with screen positions
func (h *BoardHandler) AddStroke(c *gin.Context) {
	var req struct {
		Points []freedraw.Point `json:"points" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid stroke", err)
		return
	}
	b, stroke, err := h.service.AddStroke(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"), req.Points)
	if err != nil {
		fail(c, "Failed to add stroke", err)
		return
	}
	response.Created(c, gin.H{"stroke": stroke, "board": b})
}

// AttachReading handles POST /api/v1/boards/:id/readings
func (h *BoardHandler) AttachReading(c *gin.Context) {
	var req struct {
		ReadingID string  `json:"readingId"`
		Inches    float64 `json:"inches" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid reading", err)
		return
	}
	b, stroke, err := h.service.AttachReading(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"), req.ReadingID, req.Inches)
	if err != nil {
		fail(c, "Failed to attach reading", err)
		return
	}
	response.Success(c, gin.H{"stroke": stroke, "board": b})
}

// PlaceShape handles POST /api/v1/boards/:id/shapes
func (h *BoardHandler) PlaceShape(c *gin.Context) {
	var shape freedraw.Shape
	if err := c.ShouldBindJSON(&shape); err != nil {
		response.BadRequest(c, "Invalid shape", err)
		return
	}
	b, placed, err := h.service.PlaceShape(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"), shape)
	if err != nil {
		fail(c, "Failed to place shape", err)
		return
	}
	response.Created(c, gin.H{"shape": placed, "board": b})
}

// MoveShape handles PATCH /api/v1/boards/:id/shapes/:shapeId
func (h *BoardHandler) MoveShape(c *gin.Context) {
	var req struct {
		X        float64 `json:"x"`
		Y        float64 `json:"y"`
		Rotation float64 `json:"rotation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid shape position", err)
		return
	}
	b, err := h.service.MoveShape(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"), c.Param("shapeId"), req.X, req.Y, req.Rotation)
	if err != nil {
		fail(c, "Failed to move shape", err)
		return
	}
	response.Success(c, b)
}

// RemoveShape handles DELETE /api/v1/boards/:id/shapes/:shapeId
func (h *BoardHandler) RemoveShape(c *gin.Context) {
	b, err := h.service.RemoveShape(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"), c.Param("shapeId"))
	if err != nil {
		fail(c, "Failed to remove shape", err)
		return
	}
	response.Success(c, b)
}

// Undo handles POST /api/v1/boards/:id/undo
func (h *BoardHandler) Undo(c *gin.Context) {
	b, err := h.service.Undo(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to undo", err)
		return
	}
	response.Success(c, b)
}

// Redo handles POST /api/v1/boards/:id/redo
func (h *BoardHandler) Redo(c *gin.Context) {
	b, err := h.service.Redo(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to redo", err)
		return
	}
	response.Success(c, b)
}

// Clear handles POST /api/v1/boards/:id/clear
func (h *BoardHandler) Clear(c *gin.Context) {
	b, err := h.service.Clear(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to clear board", err)
		return
	}
	response.Success(c, b)
}

// SetView handles PUT /api/v1/boards/:id/view
func (h *BoardHandler) SetView(c *gin.Context) {
	var view freedraw.View
	if err := c.ShouldBindJSON(&view); err != nil {
		response.BadRequest(c, "Invalid view", err)
		return
	}
	b, err := h.service.SetView(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"), view)
	if err != nil {
		fail(c, "Failed to set view", err)
		return
	}
	response.Success(c, b)
}
