package service

import (
	"errors"

	"github.com/floorpro/measure-backend-go/internal/repository"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrVersionConflict   = errors.New("geometry was changed by someone else, reload and try again")
	ErrSelfIntersecting  = errors.New("walls cross each other, fix the outline before saving")
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrSessionDiscarded  = errors.New("session was discarded and cannot produce a geometry")
	ErrNothingToBuild    = errors.New("not enough readings to build an outline")
	ErrGatewayDisabled   = errors.New("no device gateway is configured")
	ErrInvalidPhoto      = errors.New("invalid photo")
	ErrWrongSessionMode  = errors.New("operation does not apply to this session mode")
)
