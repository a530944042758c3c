package service

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/repository"
	"github.com/floorpro/measure-backend-go/internal/storage"
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// PhotoService attaches room photos to geometries and walls
type PhotoService struct {
	photos     *repository.PhotoRepository
	geometries *GeometryService
	blobs      storage.Blobs
	logger     *zap.Logger
	now        func() time.Time
}

// NewPhotoService creates a new photo service
func NewPhotoService(photos *repository.PhotoRepository, geometries *GeometryService, blobs storage.Blobs, logger *zap.Logger) *PhotoService {
	return &PhotoService{photos: photos, geometries: geometries, blobs: blobs, logger: logger, now: time.Now}
}

// Upload stores the image and its record. A segment id must exist on the
// photo's geometry.
func (s *PhotoService) Upload(ctx context.Context, meta models.Photo, data []byte) (*models.Photo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidPhoto)
	}
	if meta.GeometryID == "" && meta.RoomID == "" {
		return nil, fmt.Errorf("%w: geometryId or roomId is required", ErrInvalidPhoto)
	}
	if meta.SegmentID != "" && meta.GeometryID == "" {
		return nil, fmt.Errorf("%w: segmentId needs a geometryId", ErrInvalidPhoto)
	}
	switch meta.Source {
	case "":
		meta.Source = models.PhotoFile
	case models.PhotoCamera, models.PhotoFile:
	default:
		return nil, fmt.Errorf("%w: source must be camera or file", ErrInvalidPhoto)
	}

	if meta.GeometryID != "" {
		g, err := s.geometries.Get(ctx, meta.WorkspaceID, meta.GeometryID)
		if err != nil {
			return nil, err
		}
		if meta.SegmentID != "" {
			if _, ok := g.SegmentByID(meta.SegmentID); !ok {
				return nil, fmt.Errorf("%w: segment %s is not on the geometry", ErrInvalidPhoto, meta.SegmentID)
			}
		}
		if meta.RoomID == "" {
			meta.RoomID = g.RoomID
		}
		if meta.JobID == "" {
			meta.JobID = g.JobID
		}
	}

	meta.ContentType = http.DetectContentType(data)
	ext, ok := photoExtensions[meta.ContentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrInvalidPhoto, meta.ContentType)
	}

	meta.ID = uuid.NewString()
	owner := meta.GeometryID
	if owner == "" {
		owner = meta.RoomID
	}
	h, err := s.blobs.Upload(ctx, path.Join("photos", meta.WorkspaceID, owner, meta.ID+ext), data)
	if err != nil {
		return nil, err
	}
	meta.StoragePath = h.Path
	meta.URL = s.blobs.DownloadURL(h)
	meta.CreatedAt = s.now().UTC()

	if err := s.photos.Create(ctx, &meta); err != nil {
		return nil, err
	}
	s.logger.Info("Photo uploaded", zap.String("photo_id", meta.ID), zap.String("segment_id", meta.SegmentID))
	return &meta, nil
}

// List retrieves photos matching filter
func (s *PhotoService) List(ctx context.Context, filter models.PhotoFilter) ([]models.Photo, error) {
	return s.photos.List(ctx, filter)
}
