// Package facedet is the face/emotion classifier interface layer.
// The production implementation (HTTPDetector) talks to an inference
// sidecar; tests substitute their own Detector.
package facedet

import (
	"github.com/chewxy/math32"
	"gocv.io/x/gocv"
)

// Face is one face that the classifier found in a frame.
type Face struct {
	Box        Rect               `json:"box"`
	Dominant   string             `json:"dominant"`   // Highest-confidence emotion label
	Confidence float32            `json:"confidence"` // Confidence of the dominant label, 0..1
	Emotions   map[string]float32 `json:"emotions"`   // Full emotion->confidence distribution, 0..1
}

// HasValidConfidence reports whether the dominant confidence is a finite value in [0,1].
// Anything else is a malformed classifier result, treated the same as no detection.
func (f *Face) HasValidConfidence() bool {
	c := f.Confidence
	return !math32.IsNaN(c) && !math32.IsInf(c, 0) && c >= 0 && c <= 1
}

// Detector is given a decoded frame, and returns zero or more detected faces.
// Implementations must tolerate frames with no faces in them (returning an
// empty slice, not an error).
type Detector interface {
	// Close releases any resources held by the detector
	Close()

	// DetectFaces returns the faces found in the frame, in classifier order
	DetectFaces(frame gocv.Mat) ([]Face, error)
}
