package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/measure/export"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/repository"
	"github.com/floorpro/measure-backend-go/internal/storage"
)

// ExportService renders saved geometries into shareable artifacts
type ExportService struct {
	geometries *GeometryService
	exports    *repository.ExportRepository
	blobs      storage.Blobs
	options    export.Options
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService creates a new export service
func NewExportService(geometries *GeometryService, exports *repository.ExportRepository, blobs storage.Blobs, options export.Options, logger *zap.Logger) *ExportService {
	return &ExportService{
		geometries: geometries,
		exports:    exports,
		blobs:      blobs,
		options:    options,
		logger:     logger,
		now:        time.Now,
	}
}

// ExportPNG rasterizes the current version of a geometry, uploads the image
// and records the export. The geometry itself is never modified.
func (s *ExportService) ExportPNG(ctx context.Context, workspaceID, geometryID string) (*models.Export, error) {
	g, err := s.geometries.Get(ctx, workspaceID, geometryID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	opts := s.options
	if opts.Title == "" {
		opts.Title = g.RoomID
	}
	if err := export.EncodePNG(&buf, g, opts); err != nil {
		return nil, fmt.Errorf("failed to render plan: %w", err)
	}

	now := s.now().UTC()
	p := fmt.Sprintf("exports/%s/%s/%d.png", workspaceID, geometryID, now.UnixMilli())
	h, err := s.blobs.Upload(ctx, p, buf.Bytes())
	if err != nil {
		return nil, err
	}

	e := &models.Export{
		WorkspaceID:     workspaceID,
		GeometryID:      geometryID,
		GeometryVersion: g.Version,
		Format:          "png",
		StoragePath:     h.Path,
		FileName:        path.Base(h.Path),
		URL:             s.blobs.DownloadURL(h),
		CreatedAt:       now,
	}
	if err := s.exports.Create(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("Plan exported",
		zap.String("geometry_id", geometryID),
		zap.Int("version", g.Version),
		zap.Int64("bytes", h.Size),
	)
	return e, nil
}

// ListExports returns the exports of a geometry, newest first
func (s *ExportService) ListExports(ctx context.Context, workspaceID, geometryID string, limit int) ([]models.Export, error) {
	if _, err := s.geometries.Get(ctx, workspaceID, geometryID); err != nil {
		return nil, err
	}
	return s.exports.ListByGeometry(ctx, workspaceID, geometryID, limit)
}

// GeoJSON encodes a geometry as a GeoJSON feature collection
func (s *ExportService) GeoJSON(ctx context.Context, workspaceID, geometryID string) ([]byte, error) {
	g, err := s.geometries.Get(ctx, workspaceID, geometryID)
	if err != nil {
		return nil, err
	}
	return export.MarshalGeoJSON(g)
}

// Takeoff builds the XLSX material takeoff of a geometry
func (s *ExportService) Takeoff(ctx context.Context, workspaceID, geometryID string) ([]byte, error) {
	g, err := s.geometries.Get(ctx, workspaceID, geometryID)
	if err != nil {
		return nil, err
	}
	return export.Takeoff(g)
}
