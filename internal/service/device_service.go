package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/measure/device"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/repository"
)

// DeviceService manages paired lasers and the live device link
type DeviceService struct {
	repo   *repository.DeviceRepository
	link   *device.Link
	logger *zap.Logger
	now    func() time.Time
}

// NewDeviceService creates a new device service. link is nil when no BLE
// gateway is configured.
func NewDeviceService(repo *repository.DeviceRepository, link *device.Link, logger *zap.Logger) *DeviceService {
	return &DeviceService{repo: repo, link: link, logger: logger, now: time.Now}
}

// LaserConnected reports whether the link has a live device
func (s *DeviceService) LaserConnected() bool {
	return s.link != nil && s.link.Connected()
}

// Pair stores a device record
func (s *DeviceService) Pair(ctx context.Context, d *models.Device) (*models.Device, error) {
	d.ID = ""
	d.Protocol = models.ProtocolBLE
	d.Status = models.DeviceActive
	d.CreatedAt = s.now().UTC()
	if d.BLE.ServiceUUIDs == nil {
		d.BLE.ServiceUUIDs = []string{}
	}
	if d.BLE.CharacteristicUUIDs == nil {
		d.BLE.CharacteristicUUIDs = []string{}
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get retrieves a device inside a workspace
func (s *DeviceService) Get(ctx context.Context, workspaceID, id string) (*models.Device, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return d, nil
}

// List returns the workspace's active devices
func (s *DeviceService) List(ctx context.Context, workspaceID string) ([]models.Device, error) {
	return s.repo.List(ctx, workspaceID)
}

// Disable soft-deletes a device
func (s *DeviceService) Disable(ctx context.Context, workspaceID, id string) error {
	if _, err := s.Get(ctx, workspaceID, id); err != nil {
		return err
	}
	return s.repo.Disable(ctx, id)
}

// Scan asks the host to pick a nearby laser
func (s *DeviceService) Scan(ctx context.Context) (device.Descriptor, error) {
	if s.link == nil {
		return device.Descriptor{}, ErrGatewayDisabled
	}
	return s.link.Scan(ctx)
}

// Connect opens the link to a paired device. A successful connection marks
// the device active, re-enabling a disabled one, and refreshes lastSeenAt.
func (s *DeviceService) Connect(ctx context.Context, workspaceID, id string) (device.Status, error) {
	if s.link == nil {
		return device.Status{}, ErrGatewayDisabled
	}
	d, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return device.Status{}, err
	}

	status, err := s.link.Connect(ctx, d.BLE.DeviceID)
	if err != nil {
		return device.Status{}, err
	}
	if err := s.repo.MarkConnected(ctx, d.ID, s.now().UTC()); err != nil {
		s.logger.Warn("Failed to mark device connected", zap.String("device_id", d.ID), zap.Error(err))
	}
	return status, nil
}

// Disconnect closes the link; it is a no-op when nothing is connected
func (s *DeviceService) Disconnect() error {
	if s.link == nil {
		return nil
	}
	return s.link.Disconnect()
}

// SetUnit changes the unit the laser reports in
func (s *DeviceService) SetUnit(ctx context.Context, unit string) (device.Status, error) {
	if s.link == nil {
		return device.Status{}, ErrGatewayDisabled
	}
	u, err := device.ParseUnit(unit)
	if err != nil {
		return device.Status{}, err
	}
	if err := s.link.SetUnit(ctx, u); err != nil {
		return device.Status{}, err
	}
	return s.link.Status(), nil
}

// Status returns the link state
func (s *DeviceService) Status() device.Status {
	if s.link == nil {
		return device.Status{Unit: device.DefaultUnit}
	}
	return s.link.Status()
}
