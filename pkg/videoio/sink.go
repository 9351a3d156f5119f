package videoio

import (
	"errors"
	"fmt"

	"github.com/cyclopcam/logs"
	"gocv.io/x/gocv"
)

// ErrEncoderInit means the output writer could not be constructed, eg an
// unsupported codec/resolution combination on this host.
var ErrEncoderInit = errors.New("failed to initialize video encoder")

// Sink encodes frames into an output container, in the order written.
type Sink struct {
	log    logs.Log
	writer *gocv.VideoWriter
	path   string
	frames int
}

// CreateSink opens an output container at path. fourCC is the four
// character codec tag, eg "mp4v".
func CreateSink(log logs.Log, path, fourCC string, frameRate float64, width, height int) (*Sink, error) {
	writer, err := gocv.VideoWriterFile(path, fourCC, frameRate, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("%w (%v, %vx%v @ %v fps): %v", ErrEncoderInit, fourCC, width, height, frameRate, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("%w (%v, %vx%v @ %v fps)", ErrEncoderInit, fourCC, width, height, frameRate)
	}
	log.Infof("Encoder initialized for %v: %v, %vx%v @ %v fps", path, fourCC, width, height, frameRate)
	return &Sink{
		log:    log,
		writer: writer,
		path:   path,
	}, nil
}

func (s *Sink) Write(frame gocv.Mat) error {
	if err := s.writer.Write(frame); err != nil {
		return fmt.Errorf("failed to encode frame %v of %v: %w", s.frames+1, s.path, err)
	}
	s.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (s *Sink) Frames() int {
	return s.frames
}

// Close flushes and finalizes the container.
func (s *Sink) Close() error {
	return s.writer.Close()
}
