package models

import "time"

// Session is one measurement pass for a room
type Session struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	JobID       string     `json:"jobId"`
	RoomID      string     `json:"roomId,omitempty"`
	BoardID     string     `json:"boardId,omitempty"` // free_draw sessions only
	DeviceID    string     `json:"deviceId,omitempty"`
	Mode        string     `json:"mode"`
	Status      string     `json:"status"` // active, ended, discarded
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
}

// ReadingValue is the measured quantity. Value is canonical inches.
type ReadingValue struct {
	Value         float64  `json:"value"`
	Unit          string   `json:"unit"`    // unit reported by the device
	Display       string   `json:"display"` // e.g. 12' 4 1/2"
	Type          string   `json:"type"`    // single, continuous, manual
	SignalQuality *int     `json:"signalQuality,omitempty"`
	TiltAngleDeg  *float64 `json:"tiltAngleDeg,omitempty"`
}

// Reading is an immutable distance measurement captured during a session
type Reading struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"sessionId"`
	DeviceID   string       `json:"deviceId,omitempty"`
	Seq        int          `json:"seq"`               // capture order within the session
	TurnDeg    *float64     `json:"turnDeg,omitempty"` // heading change after this leg
	Reading    ReadingValue `json:"reading"`
	CapturedAt time.Time    `json:"capturedAt"`
	CapturedBy string       `json:"capturedBy,omitempty"`
}

// Capture modes
const (
	ModeAssistedDraw = "assisted_draw"
	ModeWalkRoom     = "walk_room"
	ModeRectBySize   = "rect_by_size"
	ModeManual       = "manual"
	ModeFreeDraw     = "free_draw"
)

// Session status values
const (
	SessionActive    = "active"
	SessionEnded     = "ended"
	SessionDiscarded = "discarded"
)

// Reading types
const (
	ReadingSingle     = "single"
	ReadingContinuous = "continuous"
	ReadingManual     = "manual"
)

// ValidMode reports whether mode is a known capture mode
func ValidMode(mode string) bool {
	switch mode {
	case ModeAssistedDraw, ModeWalkRoom, ModeRectBySize, ModeManual, ModeFreeDraw:
		return true
	}
	return false
}
