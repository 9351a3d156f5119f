package model

import (
	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// Job is one completed video processing run.
// Results holds the JSON-serialized per-frame record log, so that the full
// log can be replayed from /api/jobs/:id without keeping the video around.
type Job struct {
	BaseModel
	CreatedAt  dbh.MilliTime `json:"createdAt"`
	InputName  string        `json:"inputName"`  // Local name of the uploaded video
	OutputName string        `json:"outputName"` // Local name of the annotated video
	RemoteURL  string        `json:"remoteUrl"`  // Public URL in blob storage
	FrameCount int           `json:"frameCount"`
	FaceCount  int           `json:"faceCount"`
	Results    string        `json:"-"`
}
