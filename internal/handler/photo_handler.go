package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/floorpro/measure-backend-go/internal/middleware"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/service"
	"github.com/floorpro/measure-backend-go/pkg/response"
)

// MaxPhotoBytes bounds an uploaded photo
const MaxPhotoBytes = 20 << 20

// PhotoHandler handles HTTP requests for room photos
type PhotoHandler struct {
	service *service.PhotoService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(service *service.PhotoService) *PhotoHandler {
	return &PhotoHandler{service: service}
}

// Upload handles POST /api/v1/photos as multipart/form-data with a "file"
// part and geometryId, roomId, jobId, segmentId, caption, source fields
func (h *PhotoHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxPhotoBytes+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "Missing photo file", err)
		return
	}
	if fh.Size > MaxPhotoBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, "Photo is too large", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "Unreadable photo file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.BadRequest(c, "Unreadable photo file", err)
		return
	}

	photo, err := h.service.Upload(c.Request.Context(), models.Photo{
		WorkspaceID: middleware.WorkspaceID(c),
		JobID:       c.PostForm("jobId"),
		RoomID:      c.PostForm("roomId"),
		GeometryID:  c.PostForm("geometryId"),
		SegmentID:   c.PostForm("segmentId"),
		Caption:     c.PostForm("caption"),
		Source:      c.PostForm("source"),
	}, data)
	if err != nil {
		fail(c, "Failed to upload photo", err)
		return
	}
	response.Created(c, photo)
}

// List handles GET /api/v1/photos
func (h *PhotoHandler) List(c *gin.Context) {
	var filter models.PhotoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}
	filter.WorkspaceID = middleware.WorkspaceID(c)

	photos, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, "Failed to list photos", err)
		return
	}
	response.Success(c, photos)
}
