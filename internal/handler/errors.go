package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/floorpro/measure-backend-go/internal/freedraw"
	"github.com/floorpro/measure-backend-go/internal/measure/builder"
	"github.com/floorpro/measure-backend-go/internal/measure/capture"
	"github.com/floorpro/measure-backend-go/internal/measure/device"
	"github.com/floorpro/measure-backend-go/internal/measure/export"
	"github.com/floorpro/measure-backend-go/internal/measure/openings"
	"github.com/floorpro/measure-backend-go/internal/service"
	"github.com/floorpro/measure-backend-go/pkg/response"
)

var statusByError = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{
		service.ErrNotFound,
		capture.ErrSessionNotFound,
		freedraw.ErrShapeNotFound,
		openings.ErrUnknownOpening,
		builder.ErrUnknownPoint,
	}},
	{http.StatusConflict, []error{
		service.ErrVersionConflict,
		capture.ErrSessionActive,
		capture.ErrSessionNotActive,
		capture.ErrSessionStarted,
		capture.ErrNoDeviceConnected,
		device.ErrDeviceNotConnected,
		device.ErrContinuousActive,
		device.ErrNoDeviceSelected,
		builder.ErrPointLocked,
	}},
	{http.StatusUnprocessableEntity, []error{
		service.ErrSelfIntersecting,
		service.ErrInvalidGeometry,
		service.ErrInvalidPhoto,
		service.ErrSessionDiscarded,
		service.ErrNothingToBuild,
		service.ErrWrongSessionMode,
		service.ErrBoardRequired,
		capture.ErrInvalidMode,
		openings.ErrUnknownSegment,
		openings.ErrOutOfBounds,
		openings.ErrOverlap,
		openings.ErrInvalidWidth,
		openings.ErrInvalidType,
		builder.ErrPolygonClosed,
		builder.ErrTooFewPoints,
		freedraw.ErrInvalidShape,
		freedraw.ErrEmptyStroke,
		freedraw.ErrNoPendingStroke,
		device.ErrUnsupportedUnit,
		device.ErrUnsupportedDevice,
		export.ErrInvalidCanvas,
	}},
	{http.StatusBadGateway, []error{device.ErrConnectionFailed}},
	{http.StatusServiceUnavailable, []error{device.ErrBluetoothUnavailable, service.ErrGatewayDisabled}},
	{http.StatusGatewayTimeout, []error{device.ErrMeasureTimeout}},
}

// statusFor maps a domain error to its HTTP status
func statusFor(err error) int {
	for _, group := range statusByError {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// fail writes err with the status of its category
func fail(c *gin.Context, message string, err error) {
	response.Error(c, statusFor(err), message, err)
}

// expectedVersion reads the optional optimistic-lock version from the query
func expectedVersion(c *gin.Context) (int, bool) {
	raw := c.Query("expectedVersion")
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		response.BadRequest(c, "Invalid expectedVersion", err)
		return 0, false
	}
	return v, true
}
