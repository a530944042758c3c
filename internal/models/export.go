package models

import "time"

// Export records an immutable rendered artifact of a geometry
type Export struct {
	ID              string    `json:"id"`
	WorkspaceID     string    `json:"workspaceId"`
	GeometryID      string    `json:"geometryId"`
	GeometryVersion int       `json:"geometryVersion"`
	Format          string    `json:"format"` // png
	StoragePath     string    `json:"storagePath"`
	FileName        string    `json:"fileName"`
	URL             string    `json:"url"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Photo is a room picture, optionally tied to one wall segment
type Photo struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	JobID       string    `json:"jobId"`
	RoomID      string    `json:"roomId,omitempty"`
	GeometryID  string    `json:"geometryId,omitempty"`
	SegmentID   string    `json:"segmentId,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	Source      string    `json:"source"` // camera, file
	ContentType string    `json:"contentType"`
	StoragePath string    `json:"storagePath"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Photo sources
const (
	PhotoCamera = "camera"
	PhotoFile   = "file"
)
