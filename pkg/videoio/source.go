// Package videoio reads and writes video containers through OpenCV.
package videoio

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/cyclopcam/logs"
	"gocv.io/x/gocv"
)

// ErrUnreadableVideo means the container could not be opened, or its first
// frame could not be decoded.
var ErrUnreadableVideo = errors.New("unable to read video")

// DefaultFrameRate is used when the container declares no usable frame rate.
// Some containers report 0, and OpenCV reports NaN on others.
const DefaultFrameRate = 25

// Source decodes frames from a video file, one forward pass only.
// Frame rate and dimensions are fixed at open time; any subsequent frame
// whose size disagrees with the first frame gets resized to match.
type Source struct {
	log       logs.Log
	cap       *gocv.VideoCapture
	path      string
	frameRate float64
	width     int
	height    int
	frame     int // frames handed out so far
}

func OpenSource(log logs.Log, path string) (*Source, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %v: %v", ErrUnreadableVideo, path, err)
	}
	frameRate := cap.Get(gocv.VideoCaptureFPS)
	if frameRate == 0 || math.IsNaN(frameRate) {
		frameRate = DefaultFrameRate
	}

	// Probe the first frame for dimensions, then rewind.
	// A container that can't produce even one frame is unreadable.
	probe := gocv.NewMat()
	defer probe.Close()
	if ok := cap.Read(&probe); !ok || probe.Empty() {
		cap.Close()
		return nil, fmt.Errorf("%w %v: failed to decode first frame", ErrUnreadableVideo, path)
	}
	width := probe.Cols()
	height := probe.Rows()
	cap.Set(gocv.VideoCapturePosFrames, 0)

	return &Source{
		log:       log,
		cap:       cap,
		path:      path,
		frameRate: frameRate,
		width:     width,
		height:    height,
	}, nil
}

func (s *Source) FrameRate() float64 {
	return s.frameRate
}

func (s *Source) Width() int {
	return s.width
}

func (s *Source) Height() int {
	return s.height
}

// Next decodes the next frame into 'frame', resizing it to the source
// dimensions if necessary. Returns io.EOF at end-of-stream.
func (s *Source) Next(frame *gocv.Mat) error {
	if ok := s.cap.Read(frame); !ok || frame.Empty() {
		return io.EOF
	}
	s.frame++
	if frame.Cols() != s.width || frame.Rows() != s.height {
		s.log.Warnf("Frame %v size mismatch (%vx%v, expected %vx%v), resizing", s.frame, frame.Cols(), frame.Rows(), s.width, s.height)
		gocv.Resize(*frame, frame, image.Pt(s.width, s.height), 0, 0, gocv.InterpolationLinear)
	}
	return nil
}

func (s *Source) Close() error {
	return s.cap.Close()
}
