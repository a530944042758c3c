package models

// GeometryFilter represents filter parameters for querying geometries
type GeometryFilter struct {
	WorkspaceID string `form:"-"`
	JobID       string `form:"jobId"`
	RoomID      string `form:"roomId"`
	Status      string `form:"status"` // draft, final
	Limit       int    `form:"limit"`
}

// SessionFilter represents filter parameters for querying sessions
type SessionFilter struct {
	WorkspaceID string `form:"-"`
	JobID       string `form:"jobId"`
	RoomID      string `form:"roomId"`
	Status      string `form:"status"` // active, ended, discarded
	Limit       int    `form:"limit"`
}

// PhotoFilter represents filter parameters for querying photos
type PhotoFilter struct {
	WorkspaceID string `form:"-"`
	GeometryID  string `form:"geometryId"`
	RoomID      string `form:"roomId"`
	SegmentID   string `form:"segmentId"`
	Limit       int    `form:"limit"`
}

// ClampLimit bounds a query limit the same way for every collection
func ClampLimit(limit int) int {
	if limit < 1 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
