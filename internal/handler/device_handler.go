package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/floorpro/measure-backend-go/internal/middleware"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/service"
	"github.com/floorpro/measure-backend-go/pkg/response"
)

// DeviceHandler handles HTTP requests for paired lasers and the device link
type DeviceHandler struct {
	service *service.DeviceService
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(service *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

type pairRequest struct {
	Name         string              `json:"name" binding:"required"`
	Brand        string              `json:"brand"`
	Model        string              `json:"model"`
	BLE          models.BLEInfo      `json:"ble"`
	Capabilities models.Capabilities `json:"capabilities"`
}

// Pair handles POST /api/v1/devices
func (h *DeviceHandler) Pair(c *gin.Context) {
	var req pairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid device", err)
		return
	}
	if req.BLE.DeviceID == "" {
		response.BadRequest(c, "ble.deviceId is required", nil)
		return
	}

	d, err := h.service.Pair(c.Request.Context(), &models.Device{
		WorkspaceID:  middleware.WorkspaceID(c),
		Name:         req.Name,
		Brand:        req.Brand,
		Model:        req.Model,
		BLE:          req.BLE,
		Capabilities: req.Capabilities,
	})
	if err != nil {
		fail(c, "Failed to pair device", err)
		return
	}
	response.Created(c, d)
}

// List handles GET /api/v1/devices
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.service.List(c.Request.Context(), middleware.WorkspaceID(c))
	if err != nil {
		fail(c, "Failed to list devices", err)
		return
	}
	response.Success(c, devices)
}

// Disable handles DELETE /api/v1/devices/:id
func (h *DeviceHandler) Disable(c *gin.Context) {
	if err := h.service.Disable(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id")); err != nil {
		fail(c, "Failed to disable device", err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "status": models.DeviceDisabled})
}

// Scan handles POST /api/v1/devices/scan
func (h *DeviceHandler) Scan(c *gin.Context) {
	d, err := h.service.Scan(c.Request.Context())
	if err != nil {
		fail(c, "Failed to scan for devices", err)
		return
	}
	response.Success(c, d)
}

// Connect handles POST /api/v1/devices/:id/connect
func (h *DeviceHandler) Connect(c *gin.Context) {
	status, err := h.service.Connect(c.Request.Context(), middleware.WorkspaceID(c), c.Param("id"))
	if err != nil {
		fail(c, "Failed to connect device", err)
		return
	}
	response.Success(c, status)
}

// Disconnect handles POST /api/v1/devices/disconnect
func (h *DeviceHandler) Disconnect(c *gin.Context) {
	if err := h.service.Disconnect(); err != nil {
		fail(c, "Failed to disconnect device", err)
		return
	}
	response.Success(c, h.service.Status())
}

// SetUnit handles PUT /api/v1/devices/unit
func (h *DeviceHandler) SetUnit(c *gin.Context) {
	var req struct {
		Unit string `json:"unit" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid unit", err)
		return
	}
	status, err := h.service.SetUnit(c.Request.Context(), req.Unit)
	if err != nil {
		fail(c, "Failed to set unit", err)
		return
	}
	response.Success(c, status)
}

// Status handles GET /api/v1/devices/status
func (h *DeviceHandler) Status(c *gin.Context) {
	response.Success(c, h.service.Status())
}
