package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/emocam/pkg/annotate"
	"github.com/cyclopcam/emocam/pkg/kibi"
	"github.com/cyclopcam/emocam/pkg/pipeline"
	"github.com/cyclopcam/emocam/server/model"
	"github.com/cyclopcam/emocam/server/storage"
	"github.com/cyclopcam/www"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// Blob storage keys live under this logical folder
const storageFolder = "videos"

type processResponse struct {
	Message         string                 `json:"message"`
	OutputVideoPath string                 `json:"output_video_path"`
	URL             string                 `json:"url"`
	Results         []annotate.FrameRecord `json:"results"`
}

// Process an uploaded video: decode, classify every frame, draw overlays,
// re-encode, push to blob storage. The whole job runs synchronously on this
// goroutine, and the response carries the full per-frame record log.
func (s *Server) httpProcessVideo(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.Log.Infof("Video incoming")
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	video, _, err := r.FormFile("video")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			www.PanicBadRequestf("Video exceeds the maximum upload size of %v", kibi.Bytes(s.maxUploadSize))
		}
		www.PanicBadRequestf("No video file provided")
	}
	defer video.Close()

	// Unique names keep concurrent requests from ever colliding on disk
	id := uuid.NewString()
	inputPath := filepath.Join(s.uploadDir, "temp_"+id+".mp4")
	outputPath := filepath.Join(s.outputDir, "processed_"+id+".mp4")

	inputSize, err := writeStreamToFile(inputPath, video)
	www.Check(err)
	s.Log.Infof("Saved input video to %v (%v)", inputPath, kibi.Bytes(inputSize))

	result, err := pipeline.Run(s.Log, s.detector, inputPath, outputPath, s.pipelineOptions)
	www.Check(err)
	s.Log.Infof("Processed video saved to %v (%v frames, %v faces)", outputPath, result.FrameCount, result.FaceCount)

	name := storageFolder + "/" + filepath.Base(outputPath)
	if err := storage.UploadLocalFile(s.storage, name, outputPath); err != nil {
		// The annotated video stays on local disk; no retry, no rollback
		s.Log.Errorf("Error uploading %v: %v", name, err)
		www.PanicServerErrorf("Failed to upload to storage: %v", err)
	}
	// A filesystem store without a web server in front of it has no public
	// URL, and that's fine. The response carries an empty url.
	url, err := s.storage.URL(name)
	if err != nil && !errors.Is(err, storage.ErrNoPublicURL) {
		www.Check(err)
	}
	s.Log.Infof("Uploaded %v to %v", outputPath, url)

	resultsJSON, err := json.Marshal(result.Records)
	www.Check(err)
	job := model.Job{
		CreatedAt:  dbh.Milli(time.Now().UTC()),
		InputName:  filepath.Base(inputPath),
		OutputName: filepath.Base(outputPath),
		RemoteURL:  url,
		FrameCount: result.FrameCount,
		FaceCount:  result.FaceCount,
		Results:    string(resultsJSON),
	}
	www.Check(s.DB.Create(&job).Error)

	www.SendJSON(w, &processResponse{
		Message:         "Video processed successfully.",
		OutputVideoPath: outputPath,
		URL:             url,
		Results:         result.Records,
	})
}

func (s *Server) httpJobGet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := www.ParseID(params.ByName("id"))
	job := model.Job{}
	if err := s.DB.First(&job, id).Error; err != nil {
		www.PanicNotFound()
	}
	records := []annotate.FrameRecord{}
	www.Check(json.Unmarshal([]byte(job.Results), &records))
	type jobJSON struct {
		model.Job
		Results []annotate.FrameRecord `json:"results"`
	}
	www.SendJSON(w, &jobJSON{
		Job:     job,
		Results: records,
	})
}

func writeStreamToFile(dstFilename string, src io.Reader) (int64, error) {
	dstFile, err := os.Create(dstFilename)
	if err != nil {
		return 0, err
	}
	defer dstFile.Close()
	n, err := io.Copy(dstFile, src)
	if err != nil {
		os.Remove(dstFilename)
		return 0, err
	}
	return n, nil
}
