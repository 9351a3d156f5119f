// Package pipeline runs one video processing job: decode, classify,
// annotate, encode. One forward pass, strictly sequential.
package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/cyclopcam/emocam/pkg/annotate"
	"github.com/cyclopcam/emocam/pkg/facedet"
	"github.com/cyclopcam/emocam/pkg/videoio"
	"github.com/cyclopcam/logs"
	"gocv.io/x/gocv"
)

type Options struct {
	FourCC            string  // Codec tag of the output container. Zero value uses "mp4v".
	FullFrameFraction float32 // False-positive threshold. Zero value uses annotate.DefaultFullFrameFraction.
}

func DefaultOptions() Options {
	return Options{
		FourCC:            "mp4v",
		FullFrameFraction: annotate.DefaultFullFrameFraction,
	}
}

// Result of a completed job. Records holds one entry per (frame, detection),
// in frame order.
type Result struct {
	Records    []annotate.FrameRecord `json:"records"`
	FrameCount int                    `json:"frameCount"`
	FaceCount  int                    `json:"faceCount"`
}

// frameSource and frameSink are the slices of videoio that the loop needs.
// Tests substitute their own.
type frameSource interface {
	Next(frame *gocv.Mat) error
}

type frameSink interface {
	Write(frame gocv.Mat) error
}

// Run processes inputPath into outputPath. Classifier failures on individual
// frames are absorbed: the frame is written through unannotated and
// contributes zero records. Only stream-level failures abort the job.
// Both streams are closed before Run returns.
func Run(log logs.Log, detector facedet.Detector, inputPath, outputPath string, options Options) (*Result, error) {
	if options.FourCC == "" {
		options.FourCC = "mp4v"
	}

	src, err := videoio.OpenSource(log, inputPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	sink, err := videoio.CreateSink(log, outputPath, options.FourCC, src.FrameRate(), src.Width(), src.Height())
	if err != nil {
		return nil, err
	}

	result, err := processFrames(log, src, sink, detector, options)
	errClose := sink.Close()
	if err != nil {
		return nil, err
	}
	if errClose != nil {
		return nil, fmt.Errorf("failed to finalize %v: %w", outputPath, errClose)
	}
	return result, nil
}

// processFrames is the per-frame loop. Every frame read is written exactly
// once, whatever the classifier did with it.
func processFrames(log logs.Log, src frameSource, sink frameSink, detector facedet.Detector, options Options) (*Result, error) {
	annotator := annotate.NewAnnotator(log)
	if options.FullFrameFraction > 0 {
		annotator.FullFrameFraction = options.FullFrameFraction
	}

	frame := gocv.NewMat()
	defer frame.Close()

	result := &Result{
		Records: []annotate.FrameRecord{},
	}
	for {
		err := src.Next(&frame)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		result.FrameCount++

		faces, err := detector.DetectFaces(frame)
		if err != nil {
			// The frame still gets written, unmodified
			log.Warnf("Frame %v skipped: %v", result.FrameCount, err)
		} else {
			records := annotator.AnnotateFrame(&frame, result.FrameCount, faces)
			for _, rec := range records {
				if rec.FaceDetected {
					result.FaceCount++
				}
			}
			result.Records = append(result.Records, records...)
		}

		if err := sink.Write(frame); err != nil {
			return nil, err
		}
	}
	return result, nil
}
