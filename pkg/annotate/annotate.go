// Package annotate turns raw classifier output into per-frame records,
// and draws the overlay graphics onto the frame.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/cyclopcam/emocam/pkg/facedet"
	"github.com/cyclopcam/logs"
	"gocv.io/x/gocv"
)

// DefaultFullFrameFraction: a detection covering at least this fraction of
// both frame dimensions is treated as detector noise, not a face.
const DefaultFullFrameFraction = 0.95

// FrameRecord is one entry in the job's output log. One record per
// (frame, detection); frames are 1-based; a frame with multiple faces
// produces multiple records sharing the frame index. Records are immutable
// once appended.
type FrameRecord struct {
	Frame        int      `json:"frame"`
	FaceDetected bool     `json:"face_detected"`
	X            *int     `json:"x"`
	Y            *int     `json:"y"`
	Width        *int     `json:"width"`
	Height       *int     `json:"height"`
	Emotion      *string  `json:"emotion"`
	Confidence   *float64 `json:"confidence"`
}

var black = color.RGBA{A: 255}

// Annotator validates detections, filters out false positives, and draws
// box+label overlays in place.
type Annotator struct {
	// FullFrameFraction overrides DefaultFullFrameFraction when > 0
	FullFrameFraction float32

	log logs.Log
}

func NewAnnotator(log logs.Log) *Annotator {
	return &Annotator{
		FullFrameFraction: DefaultFullFrameFraction,
		log:               log,
	}
}

// AnnotateFrame converts the classifier output for one frame into records,
// drawing the overlay for every accepted detection. The frame is mutated in
// place. frameIndex is 1-based.
func (a *Annotator) AnnotateFrame(frame *gocv.Mat, frameIndex int, faces []facedet.Face) []FrameRecord {
	frameWidth := frame.Cols()
	frameHeight := frame.Rows()
	records := make([]FrameRecord, 0, len(faces))
	for _, face := range faces {
		box := face.Box
		if box.Width <= 0 || box.Height <= 0 {
			a.log.Infof("Frame %v: empty face region, skipping", frameIndex)
			records = append(records, noDetection(frameIndex))
			continue
		}
		if a.isFullFrame(box, frameWidth, frameHeight) {
			a.log.Infof("Frame %v: full-frame box, likely false positive, skipping", frameIndex)
			records = append(records, noDetection(frameIndex))
			continue
		}
		if !face.HasValidConfidence() || face.Dominant == "" {
			a.log.Warnf("Frame %v: malformed classifier result (emotion '%v', confidence %v), skipping", frameIndex, face.Dominant, face.Confidence)
			records = append(records, noDetection(frameIndex))
			continue
		}

		a.drawFace(frame, &face)

		confidence := float64(face.Confidence)
		emotion := face.Dominant
		records = append(records, FrameRecord{
			Frame:        frameIndex,
			FaceDetected: true,
			X:            &box.X,
			Y:            &box.Y,
			Width:        &box.Width,
			Height:       &box.Height,
			Emotion:      &emotion,
			Confidence:   &confidence,
		})
		a.log.Infof("Frame %v: emotion %v, confidence %.2f", frameIndex, emotion, confidence)
	}
	return records
}

func (a *Annotator) isFullFrame(box facedet.Rect, frameWidth, frameHeight int) bool {
	frac := a.FullFrameFraction
	if frac <= 0 {
		frac = DefaultFullFrameFraction
	}
	return float32(box.Width) >= float32(frameWidth)*frac &&
		float32(box.Height) >= float32(frameHeight)*frac
}

// drawFace draws a black outline rectangle with a thinner colored rectangle
// on top, and the "<emotion> <confidence>" label in the same outlined style,
// anchored just above the box. The black-under-color double stroke keeps the
// overlay legible on any background.
func (a *Annotator) drawFace(frame *gocv.Mat, face *facedet.Face) {
	col := facedet.ColorFor(face.Dominant)
	rect := face.Box.ToImage()
	gocv.Rectangle(frame, rect, black, 4)
	gocv.Rectangle(frame, rect, col, 2)

	label := fmt.Sprintf("%v %.2f", face.Dominant, face.Confidence)
	anchor := image.Pt(face.Box.X, face.Box.Y-10)
	gocv.PutText(frame, label, anchor, gocv.FontHersheySimplex, 0.9, black, 4)
	gocv.PutText(frame, label, anchor, gocv.FontHersheySimplex, 0.9, col, 2)
}

func noDetection(frameIndex int) FrameRecord {
	return FrameRecord{
		Frame:        frameIndex,
		FaceDetected: false,
	}
}
