package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/database"
	"github.com/floorpro/measure-backend-go/internal/events"
	"github.com/floorpro/measure-backend-go/internal/freedraw"
	"github.com/floorpro/measure-backend-go/internal/measure/builder"
	"github.com/floorpro/measure-backend-go/internal/measure/capture"
	"github.com/floorpro/measure-backend-go/internal/measure/device"
	"github.com/floorpro/measure-backend-go/internal/measure/device/devicetest"
	"github.com/floorpro/measure-backend-go/internal/measure/export"
	"github.com/floorpro/measure-backend-go/internal/measure/openings"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/repository"
	"github.com/floorpro/measure-backend-go/internal/storage"
)

const ws = "ws-1"

type recordedEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordedEvents) Publish(_ context.Context, eventType string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, eventType)
	return nil
}

func (r *recordedEvents) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.types {
		if t == eventType {
			n++
		}
	}
	return n
}

type env struct {
	transport *devicetest.Transport
	link      *device.Link
	events    *recordedEvents
	blobDir   string

	geometries *GeometryService
	captures   *CaptureService
	devices    *DeviceService
	boards     *BoardService
	exports    *ExportService
	photos     *PhotoService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "measure.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db, logger).RunMigrations())

	blobDir := t.TempDir()
	blobs, err := storage.NewFS(blobDir, "/blobs")
	require.NoError(t, err)

	e := &env{
		transport: devicetest.NewLeica("disto-1"),
		events:    &recordedEvents{},
		blobDir:   blobDir,
	}
	e.link = device.NewLink(e.transport, time.Second, logger)
	t.Cleanup(func() { e.link.Disconnect() })

	sessions := repository.NewSessionRepository(db)
	e.devices = NewDeviceService(repository.NewDeviceRepository(db), e.link, logger)
	e.boards = NewBoardService(repository.NewBoardRepository(db), e.devices.LaserConnected, logger)
	e.geometries = NewGeometryService(db, repository.NewGeometryRepository(db), sessions, e.events, logger)
	e.captures = NewCaptureService(capture.NewManager(logger), e.link, sessions, e.boards, e.events, logger)
	t.Cleanup(func() { e.captures.Shutdown(context.Background()) })
	e.exports = NewExportService(e.geometries, repository.NewExportRepository(db), blobs, export.Options{}, logger)
	e.photos = NewPhotoService(repository.NewPhotoRepository(db), e.geometries, blobs, logger)
	return e
}

// connect pairs and connects the fake DISTO; every trigger answers meters
func (e *env) connect(t *testing.T, meters float64) {
	t.Helper()
	ctx := context.Background()
	d, err := e.devices.Pair(ctx, &models.Device{
		WorkspaceID: ws,
		Name:        "DISTO D2",
		Brand:       "Leica",
		BLE:         models.BLEInfo{DeviceID: "disto-1"},
	})
	require.NoError(t, err)
	_, err = e.devices.Connect(ctx, ws, d.ID)
	require.NoError(t, err)
	e.transport.GATT().RespondTo([]byte("g"), func() []byte { return device.LeicaFrame(meters) })
}

func square(side float64) *models.Geometry {
	return &models.Geometry{
		WorkspaceID: ws,
		JobID:       "job-1",
		RoomID:      "kitchen",
		Points: []models.Point{
			{ID: "p0", X: 0, Y: 0},
			{ID: "p1", X: side, Y: 0},
			{ID: "p2", X: side, Y: -side},
			{ID: "p3", X: 0, Y: -side},
		},
		Segments: []models.Segment{
			{ID: "s1", A: "p0", B: "p1", Length: side, Source: models.SourceLaser},
			{ID: "s2", A: "p1", B: "p2", Length: side, Source: models.SourceLaser},
			{ID: "s3", A: "p2", B: "p3", Length: side, Source: models.SourceManual},
			{ID: "s-close", A: "p3", B: "p0", Length: side, Source: models.SourceDerived},
		},
		Openings: []models.Opening{},
	}
}

func TestGeometrySave_Versioning(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g, err := e.geometries.Save(ctx, square(120), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Version)
	assert.InDelta(t, 100, g.Calculations.Area, 1e-9)
	assert.InDelta(t, 40, g.Calculations.Perimeter, 1e-9)
	assert.Equal(t, 95, g.Confidence.Score)
	assert.Equal(t, models.GeometryDraft, g.Status)
	created := g.CreatedAt

	g.Calculations = models.Calculations{Area: 1}
	g, err = e.geometries.Save(ctx, g, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Version)
	assert.InDelta(t, 100, g.Calculations.Area, 1e-9, "calculations are recomputed")
	assert.Equal(t, created, g.CreatedAt)

	_, err = e.geometries.Save(ctx, g, 1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	g, err = e.geometries.Save(ctx, g, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Version, "zero expected version is last write wins")

	stored, err := e.geometries.Get(ctx, ws, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Version)
	assert.Equal(t, 3, e.events.count(events.TypeGeometrySave))

	_, err = e.geometries.Get(ctx, "ws-2", g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGeometrySave_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	bowtie := square(120)
	bowtie.Points[2], bowtie.Points[3] = models.Point{ID: "p2", X: 0, Y: -120}, models.Point{ID: "p3", X: 120, Y: -120}
	_, err := e.geometries.Save(ctx, bowtie, 0)
	assert.ErrorIs(t, err, ErrSelfIntersecting)

	g, err := e.geometries.Save(ctx, square(120), 0)
	require.NoError(t, err)

	g.Openings = []models.Opening{{ID: "o1", SegmentID: "s1", Type: models.OpeningDoor, Width: 36, OffsetFromA: 100}}
	_, err = e.geometries.Save(ctx, g, 0)
	assert.ErrorIs(t, err, openings.ErrOutOfBounds)

	g.Openings = nil
	g.Segments[0].B = "p9"
	_, err = e.geometries.Save(ctx, g, 0)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	stored, err := e.geometries.Get(ctx, ws, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version, "failed saves leave the stored geometry alone")
}

func TestGeometryOpeningsAndPoints(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g, err := e.geometries.Save(ctx, square(120), 0)
	require.NoError(t, err)

	g, door, err := e.geometries.AddOpening(ctx, ws, g.ID, "s1", models.OpeningDoor, 36, 12, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Version)
	assert.InDelta(t, 37, g.Calculations.BaseboardLf, 1e-9)

	_, _, err = e.geometries.AddOpening(ctx, ws, g.ID, "s1", models.OpeningWindow, 24, 30, 0)
	assert.ErrorIs(t, err, openings.ErrOverlap)

	_, _, err = e.geometries.AddOpening(ctx, ws, g.ID, "s1", models.OpeningWindow, 24, 60, 1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	g, err = e.geometries.RemoveOpening(ctx, ws, g.ID, door.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, g.Openings)
	assert.InDelta(t, 40, g.Calculations.BaseboardLf, 1e-9)

	g, err = e.geometries.SetPointLock(ctx, ws, g.ID, "p2", true, 0)
	require.NoError(t, err)
	_, err = e.geometries.MovePoint(ctx, ws, g.ID, "p2", 150, -120, 0)
	assert.ErrorIs(t, err, builder.ErrPointLocked)

	g, err = e.geometries.MovePoint(ctx, ws, g.ID, "p3", 0, -150, 0)
	require.NoError(t, err)
	closing, _ := g.SegmentByID("s-close")
	assert.InDelta(t, 150, closing.Length, 1e-9, "derived wall follows the point")
	s1, _ := g.SegmentByID("s1")
	assert.InDelta(t, 120, s1.Length, 1e-9, "laser wall keeps its reading")

	x, y, unlock := 150.0, -120.0, false
	_, err = e.geometries.UpdatePoint(ctx, ws, g.ID, "p2", PointUpdate{X: &x, Y: &y, Locked: &unlock}, g.Version+1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	x, y = -60, -60
	_, err = e.geometries.UpdatePoint(ctx, ws, g.ID, "p2", PointUpdate{X: &x, Y: &y, Locked: &unlock}, 0)
	assert.ErrorIs(t, err, ErrSelfIntersecting)

	stored, err := e.geometries.Get(ctx, ws, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Version, stored.Version, "rejected updates store nothing")
	p2, _ := stored.PointByID("p2")
	assert.True(t, p2.Locked)

	x, y = 150, -120
	lock := true
	_, err = e.geometries.UpdatePoint(ctx, ws, g.ID, "p2", PointUpdate{X: &x, Y: &y, Locked: &lock}, 0)
	assert.ErrorIs(t, err, builder.ErrPointLocked, "a locked point needs an explicit unlock")

	g, err = e.geometries.UpdatePoint(ctx, ws, g.ID, "p2", PointUpdate{X: &x, Y: &y, Locked: &unlock}, stored.Version)
	require.NoError(t, err)
	assert.Equal(t, stored.Version+1, g.Version)
	p2, _ = g.PointByID("p2")
	assert.Equal(t, 150.0, p2.X)
	assert.False(t, p2.Locked)

	_, err = e.geometries.UpdatePoint(ctx, ws, g.ID, "p9", PointUpdate{Locked: &lock}, 0)
	assert.ErrorIs(t, err, builder.ErrUnknownPoint)
	_, err = e.geometries.UpdatePoint(ctx, ws, g.ID, "p2", PointUpdate{X: &x}, 0)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestGeometryClosureError(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.connect(t, 3.048)

	drawn := square(120)
	drawn.Confidence.Breakdown.ClosureError = 42
	g, err := e.geometries.Save(ctx, drawn, 0)
	require.NoError(t, err)
	assert.Zero(t, g.Confidence.Breakdown.ClosureError, "client outlines carry no closure error")

	info, err := e.captures.Start(ctx, StartRequest{WorkspaceID: ws, JobID: "job-1", RoomID: "hall", Mode: models.ModeWalkRoom})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := e.captures.Capture(ctx, ws, info.ID, capture.CaptureOptions{})
		require.NoError(t, err)
	}
	_, err = e.captures.End(ctx, ws, info.ID)
	require.NoError(t, err)

	built, err := e.geometries.BuildFromSession(ctx, ws, info.ID)
	require.NoError(t, err)
	assert.InDelta(t, 120, built.Confidence.Breakdown.ClosureError, 0.01)

	edited, _, err := e.geometries.AddOpening(ctx, ws, built.ID, "s1", models.OpeningDoor, 36, 12, 0)
	require.NoError(t, err)
	assert.InDelta(t, 120, edited.Confidence.Breakdown.ClosureError, 0.01, "edits keep the measured closure")

	edited.Confidence.Breakdown.ClosureError = 0.5
	resaved, err := e.geometries.Save(ctx, edited, 0)
	require.NoError(t, err)
	assert.Zero(t, resaved.Confidence.Breakdown.ClosureError)
}

func TestGeometryPreview(t *testing.T) {
	e := newEnv(t)

	g, err := e.geometries.Preview([][2]float64{{0, 0}, {12, 0}, {12, -12}, {0, -12}}, true, nil)
	require.NoError(t, err)
	assert.Len(t, g.Segments, 4)
	assert.InDelta(t, 1, g.Calculations.Area, 1e-9)
	assert.Equal(t, 70, g.Confidence.Score)
	assert.Empty(t, g.ID)

	open, err := e.geometries.Preview([][2]float64{{0, 0}, {12, 0}, {12, -12}}, false, nil)
	require.NoError(t, err)
	assert.Len(t, open.Segments, 2, "manual outlines never close themselves")
}

func TestCaptureFlow_BuildFromSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.connect(t, 3.048)

	info, err := e.captures.Start(ctx, StartRequest{WorkspaceID: ws, JobID: "job-1", RoomID: "kitchen", Mode: models.ModeWalkRoom})
	require.NoError(t, err)
	assert.Equal(t, "disto-1", info.DeviceID)

	_, err = e.captures.Start(ctx, StartRequest{WorkspaceID: ws, JobID: "job-1", RoomID: "kitchen", Mode: models.ModeWalkRoom})
	assert.ErrorIs(t, err, capture.ErrSessionActive)

	for i := 0; i < 4; i++ {
		r, err := e.captures.Capture(ctx, ws, info.ID, capture.CaptureOptions{})
		require.NoError(t, err)
		assert.InDelta(t, 120, r.Reading.Value, 1e-3)
		assert.Equal(t, i, r.Seq)
	}
	assert.Equal(t, 4, e.events.count(events.TypeReading))

	live, err := e.captures.Geometry(ctx, ws, info.ID)
	require.NoError(t, err)
	assert.Len(t, live.Points, 4)

	ended, err := e.captures.End(ctx, ws, info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, ended.Status)
	assert.Equal(t, 1, e.events.count(events.TypeSessionEnded))

	stored, err := e.captures.Get(ctx, ws, info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, stored.Status)
	require.NotNil(t, stored.EndedAt)

	g, err := e.geometries.BuildFromSession(ctx, ws, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Version)
	assert.Len(t, g.Points, 4)
	assert.Len(t, g.Segments, 4)
	assert.InDelta(t, 100, g.Calculations.Area, 0.01)
	assert.InDelta(t, 0, g.Confidence.Breakdown.ClosureError, 0.01)
	assert.Equal(t, 3, g.Confidence.Breakdown.LaserSegments)

	again, err := e.geometries.BuildFromSession(ctx, ws, info.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, again.ID)
	assert.Equal(t, 2, again.Version)
}

func TestCaptureFlow_DiscardedSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.connect(t, 2)

	info, err := e.captures.Start(ctx, StartRequest{WorkspaceID: ws, JobID: "job-1", RoomID: "hall", Mode: models.ModeWalkRoom})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := e.captures.Capture(ctx, ws, info.ID, capture.CaptureOptions{})
		require.NoError(t, err)
	}
	_, err = e.captures.Discard(ctx, ws, info.ID)
	require.NoError(t, err)

	_, err = e.geometries.BuildFromSession(ctx, ws, info.ID)
	assert.ErrorIs(t, err, ErrSessionDiscarded)

	readings, err := e.captures.Readings(ctx, ws, info.ID)
	require.NoError(t, err)
	assert.Len(t, readings, 3, "discarded readings stay stored")

	_, err = e.captures.Capture(ctx, ws, info.ID, capture.CaptureOptions{})
	assert.ErrorIs(t, err, capture.ErrSessionNotFound)
}

func TestCaptureStart_NeedsDevice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.captures.Start(ctx, StartRequest{WorkspaceID: ws, JobID: "job-1", RoomID: "den", Mode: models.ModeWalkRoom})
	assert.ErrorIs(t, err, capture.ErrNoDeviceConnected)

	info, err := e.captures.Start(ctx, StartRequest{WorkspaceID: ws, JobID: "job-1", RoomID: "den", Mode: models.ModeManual})
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, info.Status)

	_, err = e.captures.Start(ctx, StartRequest{WorkspaceID: ws, JobID: "job-1", Mode: models.ModeFreeDraw})
	assert.ErrorIs(t, err, ErrBoardRequired)
}

func TestFreeDrawSession_AttachesReadings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.connect(t, 3.048)

	b, err := e.boards.Create(ctx, ws, "job-1", "")
	require.NoError(t, err)
	_, stroke, err := e.boards.AddStroke(ctx, ws, b.ID, []freedraw.Point{{X: 0, Y: 0}, {X: 200, Y: 0}})
	require.NoError(t, err)
	assert.True(t, stroke.Pending)

	info, err := e.captures.Start(ctx, StartRequest{WorkspaceID: ws, JobID: "job-1", BoardID: b.ID, Mode: models.ModeFreeDraw})
	require.NoError(t, err)
	r, err := e.captures.Capture(ctx, ws, info.ID, capture.CaptureOptions{})
	require.NoError(t, err)

	b, err = e.boards.Get(ctx, ws, b.ID)
	require.NoError(t, err)
	require.Len(t, b.Strokes, 1)
	assert.False(t, b.Strokes[0].Pending)
	assert.Equal(t, freedraw.SourceLaser, b.Strokes[0].Source)
	assert.Equal(t, r.ID, b.Strokes[0].ReadingID)
	assert.InDelta(t, 120, b.Strokes[0].DistanceIn, 1e-3)
}

func TestBoardService_Edits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	b, err := e.boards.Create(ctx, ws, "job-1", "bath")
	require.NoError(t, err)

	_, stroke, err := e.boards.AddStroke(ctx, ws, b.ID, []freedraw.Point{{X: 0, Y: 0}, {X: 200, Y: 0}})
	require.NoError(t, err)
	assert.False(t, stroke.Pending)
	assert.InDelta(t, 120, stroke.DistanceIn, 1e-9)

	_, shape, err := e.boards.PlaceShape(ctx, ws, b.ID, freedraw.Shape{Kind: freedraw.ShapeDoor, X: 40, Y: 0, Width: 60, Height: 60})
	require.NoError(t, err)

	b, err = e.boards.Undo(ctx, ws, b.ID)
	require.NoError(t, err)
	assert.Empty(t, b.Shapes)

	b, err = e.boards.Redo(ctx, ws, b.ID)
	require.NoError(t, err)
	require.Len(t, b.Shapes, 1)
	assert.Equal(t, shape.ID, b.Shapes[0].ID)

	_, _, err = e.boards.PlaceShape(ctx, ws, b.ID, freedraw.Shape{Kind: "sofa", Width: 1, Height: 1})
	assert.ErrorIs(t, err, freedraw.ErrInvalidShape)

	b, err = e.boards.SetView(ctx, ws, b.ID, freedraw.View{Zoom: 100})
	require.NoError(t, err)
	assert.Equal(t, freedraw.MaxZoom, b.View.Zoom)

	_, err = e.boards.Get(ctx, "ws-2", b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeviceService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.False(t, e.devices.Status().Connected)
	d, err := e.devices.Pair(ctx, &models.Device{WorkspaceID: ws, Name: "DISTO", BLE: models.BLEInfo{DeviceID: "disto-1"}})
	require.NoError(t, err)
	assert.Equal(t, models.ProtocolBLE, d.Protocol)

	status, err := e.devices.Connect(ctx, ws, d.ID)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "Leica", status.Brand)

	stored, err := e.devices.Get(ctx, ws, d.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastSeenAt)

	status, err = e.devices.SetUnit(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, device.Meters, status.Unit)
	_, err = e.devices.SetUnit(ctx, "yd")
	assert.ErrorIs(t, err, device.ErrUnsupportedUnit)

	require.NoError(t, e.devices.Disconnect())
	require.NoError(t, e.devices.Disconnect())
	assert.False(t, e.devices.Status().Connected)

	require.NoError(t, e.devices.Disable(ctx, ws, d.ID))
	list, err := e.devices.List(ctx, ws)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = e.devices.Connect(ctx, ws, d.ID)
	require.NoError(t, err)
	stored, err = e.devices.Get(ctx, ws, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceActive, stored.Status, "connecting re-activates the device")
	list, err = e.devices.List(ctx, ws)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	noGateway := NewDeviceService(nil, nil, zap.NewNop())
	_, err = noGateway.Scan(ctx)
	assert.ErrorIs(t, err, ErrGatewayDisabled)
}

func TestExportService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g, err := e.geometries.Save(ctx, square(120), 0)
	require.NoError(t, err)

	exp, err := e.exports.ExportPNG(ctx, ws, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, exp.GeometryVersion)
	assert.Equal(t, "png", exp.Format)
	assert.Contains(t, exp.StoragePath, "exports/ws-1/"+g.ID+"/")
	assert.Equal(t, "/blobs/"+exp.StoragePath, exp.URL)

	data, err := os.ReadFile(filepath.Join(e.blobDir, filepath.FromSlash(exp.StoragePath)))
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, export.DefaultWidth, cfg.Width)
	assert.Equal(t, export.DefaultHeight, cfg.Height)

	list, err := e.exports.ListExports(ctx, ws, g.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, exp.ID, list[0].ID)

	stored, err := e.geometries.Get(ctx, ws, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version, "exporting never saves the geometry")

	gj, err := e.exports.GeoJSON(ctx, ws, g.ID)
	require.NoError(t, err)
	assert.Contains(t, string(gj), "FeatureCollection")

	xlsx, err := e.exports.Takeoff(ctx, ws, g.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx, []byte("PK")))

	_, err = e.exports.ExportPNG(ctx, "ws-2", g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPhotoService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g, err := e.geometries.Save(ctx, square(120), 0)
	require.NoError(t, err)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	_, err = e.photos.Upload(ctx, models.Photo{WorkspaceID: ws, GeometryID: g.ID, SegmentID: "s9"}, img.Bytes())
	assert.ErrorIs(t, err, ErrInvalidPhoto)

	_, err = e.photos.Upload(ctx, models.Photo{WorkspaceID: ws, GeometryID: g.ID}, []byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidPhoto)

	p, err := e.photos.Upload(ctx, models.Photo{WorkspaceID: ws, GeometryID: g.ID, SegmentID: "s2", Source: models.PhotoCamera, Caption: "cracked tile"}, img.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.ContentType)
	assert.Equal(t, "kitchen", p.RoomID)
	assert.FileExists(t, filepath.Join(e.blobDir, filepath.FromSlash(p.StoragePath)))

	list, err := e.photos.List(ctx, models.PhotoFilter{WorkspaceID: ws, SegmentID: "s2"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cracked tile", list[0].Caption)
}
