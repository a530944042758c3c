package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/database"
	"github.com/floorpro/measure-backend-go/internal/freedraw"
	"github.com/floorpro/measure-backend-go/internal/models"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "measure.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db, zap.NewNop()).RunMigrations())
	return db
}

func TestGeometryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGeometryRepository(testDB(t))

	g := &models.Geometry{WorkspaceID: "ws-1", JobID: "job-1", RoomID: "kitchen", Version: 1, Status: models.GeometryDraft}
	require.NoError(t, repo.Create(ctx, g))
	require.NotEmpty(t, g.ID)

	other := &models.Geometry{WorkspaceID: "ws-1", JobID: "job-1", RoomID: "hall", Version: 1}
	require.NoError(t, repo.Create(ctx, other))
	require.NoError(t, repo.Create(ctx, &models.Geometry{WorkspaceID: "ws-2", JobID: "job-1", RoomID: "kitchen", Version: 1}))

	got, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", got.RoomID)

	g.Version = 2
	g.Points = []models.Point{{ID: "p0"}}
	require.NoError(t, repo.Update(ctx, g))
	got, err = repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)

	list, err := repo.List(ctx, models.GeometryFilter{WorkspaceID: "ws-1", JobID: "job-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, other.ID, list[0].ID, "newest first")

	list, err = repo.List(ctx, models.GeometryFilter{WorkspaceID: "ws-1", RoomID: "kitchen"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Points, 1)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &models.Geometry{ID: "missing"}), ErrNotFound)
}

func TestGeometryRepository_Tx(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewGeometryRepository(db)

	err := database.Transaction(ctx, db, func(tx *sql.Tx) error {
		if err := repo.WithTx(tx).Create(ctx, &models.Geometry{ID: "g-tx", WorkspaceID: "ws"}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = repo.GetByID(ctx, "g-tx")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(testDB(t))

	s := &models.Session{ID: "s-1", WorkspaceID: "ws-1", JobID: "job-1", RoomID: "den", Mode: models.ModeWalkRoom, Status: models.SessionActive}
	require.NoError(t, repo.Create(ctx, s))

	for _, seq := range []int{2, 0, 1} {
		require.NoError(t, repo.RecordReading(ctx, models.Reading{ID: "r" + string(rune('0'+seq)), SessionID: "s-1", Seq: seq}))
	}
	assert.Error(t, repo.RecordReading(ctx, models.Reading{ID: "dup", SessionID: "s-1", Seq: 1}), "seq is unique per session")

	readings, err := repo.Readings(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, readings, 3)
	for i, r := range readings {
		assert.Equal(t, i, r.Seq)
	}

	ended := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Finish(ctx, "s-1", models.SessionDiscarded, ended))
	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionDiscarded, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.True(t, ended.Equal(*got.EndedAt))
	assert.Equal(t, models.ModeWalkRoom, got.Mode, "merge keeps other fields")

	list, err := repo.List(ctx, models.SessionFilter{WorkspaceID: "ws-1", Status: models.SessionDiscarded})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, repo.Finish(ctx, "missing", models.SessionEnded, ended), ErrNotFound)
}

func TestDeviceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDeviceRepository(testDB(t))

	d := &models.Device{WorkspaceID: "ws-1", Name: "DISTO D2", Brand: "Leica", Protocol: models.ProtocolBLE, Status: models.DeviceActive}
	require.NoError(t, repo.Create(ctx, d))

	seen := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkConnected(ctx, d.ID, seen))
	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSeenAt)
	assert.True(t, seen.Equal(*got.LastSeenAt))

	list, err := repo.List(ctx, "ws-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Disable(ctx, d.ID))
	list, err = repo.List(ctx, "ws-1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	require.NoError(t, repo.MarkConnected(ctx, d.ID, seen.Add(time.Minute)))
	list, err = repo.List(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.DeviceActive, list[0].Status)
}

func TestExportAndPhotoRepositories(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	exports := NewExportRepository(db)
	photos := NewPhotoRepository(db)

	for i := 0; i < 3; i++ {
		require.NoError(t, exports.Create(ctx, &models.Export{WorkspaceID: "ws-1", GeometryID: "g-1", GeometryVersion: i + 1}))
	}
	list, err := exports.ListByGeometry(ctx, "ws-1", "g-1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 3, list[0].GeometryVersion)

	require.NoError(t, photos.Create(ctx, &models.Photo{WorkspaceID: "ws-1", GeometryID: "g-1", SegmentID: "s1"}))
	require.NoError(t, photos.Create(ctx, &models.Photo{WorkspaceID: "ws-1", GeometryID: "g-1"}))
	got, err := photos.List(ctx, models.PhotoFilter{WorkspaceID: "ws-1", GeometryID: "g-1", SegmentID: "s1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBoardRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewBoardRepository(testDB(t))

	b := freedraw.New("ws-1", "job-1", "den")
	require.NoError(t, repo.Create(ctx, b))

	_, err := b.AddStroke([]freedraw.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, false)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, b))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Strokes, 1)
	assert.Len(t, got.History, 2)
	assert.True(t, got.Undo())

	list, err := repo.ListByJob(ctx, "ws-1", "job-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDocuments_RejectsUnknownColumns(t *testing.T) {
	docs := newDocuments[models.Geometry](testDB(t), "geometries", "room_id")
	_, err := docs.query(context.Background(), Query{Where: []Condition{{"doc; DROP TABLE geometries", "x"}}})
	assert.ErrorContains(t, err, "unknown geometries filter column")
	_, err = docs.query(context.Background(), Query{OrderBy: "random()"})
	assert.ErrorContains(t, err, "unknown geometries order column")
}

func TestDocuments_DriverErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewGeometryRepository(db)
	mock.ExpectExec("INSERT INTO geometries").WillReturnError(errors.New("disk I/O error"))
	err = repo.Create(context.Background(), &models.Geometry{ID: "g-1"})
	assert.ErrorContains(t, err, "failed to insert into geometries")

	mock.ExpectQuery("SELECT doc FROM geometries").WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow("{broken"))
	_, err = repo.GetByID(context.Background(), "g-1")
	assert.ErrorContains(t, err, "failed to decode geometries g-1")

	mock.ExpectExec("UPDATE geometries SET doc").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), &models.Geometry{ID: "g-1"}), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
