// Package app wires configuration, storage, the device link and services
// into an HTTP router.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/api"
	"github.com/floorpro/measure-backend-go/internal/config"
	"github.com/floorpro/measure-backend-go/internal/events"
	"github.com/floorpro/measure-backend-go/internal/handler"
	"github.com/floorpro/measure-backend-go/internal/measure/capture"
	"github.com/floorpro/measure-backend-go/internal/measure/device"
	"github.com/floorpro/measure-backend-go/internal/measure/device/mqttble"
	"github.com/floorpro/measure-backend-go/internal/measure/export"
	"github.com/floorpro/measure-backend-go/internal/middleware"
	"github.com/floorpro/measure-backend-go/internal/repository"
	"github.com/floorpro/measure-backend-go/internal/service"
	"github.com/floorpro/measure-backend-go/internal/storage"
)

// Options override infrastructure normally built from config
type Options struct {
	// Transport replaces the MQTT gateway
	Transport device.Transport
	// Publisher replaces the Redis stream
	Publisher events.Publisher
}

// App is the assembled service
type App struct {
	Router   *gin.Engine
	Captures *service.CaptureService

	logger  *zap.Logger
	closers []func()
}

// New builds the application on an open, migrated database
func New(cfg *config.Config, db *sql.DB, logger *zap.Logger, opts Options) (*App, error) {
	a := &App{logger: logger}

	blobs, err := storage.NewFS(cfg.Storage.Dir, cfg.Storage.BaseURL)
	if err != nil {
		return nil, err
	}

	publisher, err := a.publisher(cfg, opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	transport, err := a.transport(cfg, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	var link *device.Link
	if transport != nil {
		link = device.NewLink(transport, cfg.Measure.Timeout, logger.Named("device"))
		a.closers = append(a.closers, func() { link.Disconnect() })
	}

	sessionRepo := repository.NewSessionRepository(db)
	devices := service.NewDeviceService(repository.NewDeviceRepository(db), link, logger)
	boards := service.NewBoardService(repository.NewBoardRepository(db), devices.LaserConnected, logger)
	geometries := service.NewGeometryService(db, repository.NewGeometryRepository(db), sessionRepo, publisher, logger)
	a.Captures = service.NewCaptureService(capture.NewManager(logger.Named("capture")), link, sessionRepo, boards, publisher, logger)
	exports := service.NewExportService(geometries, repository.NewExportRepository(db), blobs,
		export.Options{Width: cfg.Export.Width, Height: cfg.Export.Height}, logger)
	photos := service.NewPhotoService(repository.NewPhotoRepository(db), geometries, blobs, logger)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Requests > 0 && cfg.RateLimit.Window > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		a.closers = append(a.closers, limiter.Stop)
	}

	a.Router = api.SetupRouter(cfg, api.Handlers{
		Devices:    handler.NewDeviceHandler(devices),
		Sessions:   handler.NewSessionHandler(a.Captures),
		Geometries: handler.NewGeometryHandler(geometries),
		Exports:    handler.NewExportHandler(exports),
		Photos:     handler.NewPhotoHandler(photos),
		Boards:     handler.NewBoardHandler(boards),
	}, limiter, logger.Named("http"))
	return a, nil
}

func (a *App) publisher(cfg *config.Config, opts Options) (events.Publisher, error) {
	if opts.Publisher != nil {
		return events.Logged{Publisher: opts.Publisher, Logger: a.logger}, nil
	}
	if cfg.Redis.Addr == "" {
		a.logger.Info("Redis not configured, reading events are not published")
		return events.Nop{}, nil
	}

	client := events.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	stream := events.NewStreamPublisher(client, cfg.Redis.Stream, 100000)
	if err := stream.Ping(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, func() { closeRedis(client, a.logger) })
	return events.Logged{Publisher: stream, Logger: a.logger}, nil
}

func closeRedis(client *redis.Client, logger *zap.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("Failed to close redis client", zap.Error(err))
	}
}

func (a *App) transport(cfg *config.Config, opts Options) (device.Transport, error) {
	if opts.Transport != nil {
		return opts.Transport, nil
	}
	if cfg.MQTT.Broker == "" {
		a.logger.Info("MQTT broker not configured, only manual capture is available")
		return nil, nil
	}

	client, err := mqttble.NewClient(mqttble.ClientConfig{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	}, a.logger.Named("mqtt"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Disconnect)
	return mqttble.NewTransport(client, cfg.MQTT.TopicPrefix, cfg.Measure.GatewayTimeout, a.logger.Named("gateway")), nil
}

// Shutdown ends live capture sessions so their state is persisted
func (a *App) Shutdown(ctx context.Context) {
	if a.Captures != nil {
		a.Captures.Shutdown(ctx)
	}
}

// Close releases infrastructure in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
