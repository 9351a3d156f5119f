package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/emocam/pkg/facedet"
	"github.com/cyclopcam/emocam/pkg/pipeline"
	"github.com/cyclopcam/emocam/pkg/videoio"
	"github.com/cyclopcam/emocam/server/model"
	"github.com/cyclopcam/emocam/server/storage"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func newTestServer(t *testing.T, classifierURL string) *Server {
	logger := logs.NewTestingLog(t)
	tmp := t.TempDir()
	db, err := openDB(logger, dbh.MakeSqliteConfig(filepath.Join(tmp, "jobs.sqlite")))
	require.NoError(t, err)
	store, err := storage.NewStorageFS(logger, filepath.Join(tmp, "blobs"), "https://files.test.local/")
	require.NoError(t, err)
	s := &Server{
		Log:             logger,
		DB:              db,
		storage:         store,
		detector:        facedet.NewHTTPDetector(logger, classifierURL),
		pipelineOptions: pipeline.DefaultOptions(),
		uploadDir:       filepath.Join(tmp, "uploads"),
		outputDir:       filepath.Join(tmp, "outputs"),
		maxUploadSize:   64 * 1024 * 1024,
	}
	require.NoError(t, os.MkdirAll(s.uploadDir, 0755))
	require.NoError(t, os.MkdirAll(s.outputDir, 0755))
	require.NoError(t, s.setupHttpRoutes())
	return s
}

// A sidecar stand-in that reports one happy face on every frame
func fakeClassifier(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/analyze", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"region":{"x":10,"y":10,"w":40,"h":20},"dominant_emotion":"happy","emotion":{"happy":80.0,"neutral":20.0}}]}`)
	}))
}

func makeTestVideo(t *testing.T, logger logs.Log, nFrames int) string {
	path := filepath.Join(t.TempDir(), "clip.avi")
	sink, err := videoio.CreateSink(logger, path, "MJPG", 20, 64, 48)
	require.NoError(t, err)
	frame := gocv.Zeros(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	for i := 0; i < nFrames; i++ {
		require.NoError(t, sink.Write(frame))
	}
	require.NoError(t, sink.Close())
	return path
}

func postVideo(t *testing.T, s *Server, videoPath string) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("video", filepath.Base(videoPath))
	require.NoError(t, err)
	f, err := os.Open(videoPath)
	require.NoError(t, err)
	_, err = io.Copy(part, f)
	f.Close()
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/video/process", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.httpRouter.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	req := httptest.NewRequest("GET", "/api/ping", nil)
	w := httptest.NewRecorder()
	s.httpRouter.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "time")
}

func TestProcessMissingPayload(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	req := httptest.NewRequest("POST", "/api/video/process", nil)
	w := httptest.NewRecorder()
	s.httpRouter.ServeHTTP(w, req)
	require.Equal(t, 400, w.Code)
	require.Contains(t, w.Body.String(), "No video file provided")

	// Nothing may be written to disk for a rejected request
	uploads, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	require.Empty(t, uploads)
}

func TestProcessTooLarge(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	s.maxUploadSize = 1024

	video := makeTestVideo(t, s.Log, 3)
	w := postVideo(t, s, video)
	require.Equal(t, 400, w.Code)
	require.Contains(t, w.Body.String(), "maximum upload size")
}

func TestProcessVideo(t *testing.T) {
	classifier := fakeClassifier(t)
	defer classifier.Close()
	s := newTestServer(t, classifier.URL)

	video := makeTestVideo(t, s.Log, 5)
	w := postVideo(t, s, video)
	require.Equal(t, 200, w.Code, w.Body.String())

	resp := processResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Video processed successfully.", resp.Message)
	require.True(t, strings.HasPrefix(resp.URL, "https://files.test.local/videos/processed_"))
	require.Len(t, resp.Results, 5)
	for i, rec := range resp.Results {
		require.Equal(t, i+1, rec.Frame)
		require.True(t, rec.FaceDetected)
		require.NotNil(t, rec.Emotion)
		require.Equal(t, "happy", *rec.Emotion)
		require.NotNil(t, rec.Confidence)
		require.InDelta(t, 0.8, *rec.Confidence, 0.0001)
	}

	// The annotated video exists locally and in blob storage
	_, err := os.Stat(resp.OutputVideoPath)
	require.NoError(t, err)
	blob, err := storage.ReadFileBytes(s.storage, "videos/"+filepath.Base(resp.OutputVideoPath))
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	// And the job was recorded
	jobs := []model.Job{}
	require.NoError(t, s.DB.Find(&jobs).Error)
	require.Len(t, jobs, 1)
	require.Equal(t, resp.URL, jobs[0].RemoteURL)
	require.Equal(t, 5, jobs[0].FrameCount)

	// The job endpoint serves the same record log back
	req := httptest.NewRequest("GET", fmt.Sprintf("/api/jobs/%v", jobs[0].ID), nil)
	jw := httptest.NewRecorder()
	s.httpRouter.ServeHTTP(jw, req)
	require.Equal(t, 200, jw.Code)
	fetched := struct {
		Results []json.RawMessage `json:"results"`
	}{}
	require.NoError(t, json.Unmarshal(jw.Body.Bytes(), &fetched))
	require.Len(t, fetched.Results, 5)
}

func TestProcessUploadFailure(t *testing.T) {
	classifier := fakeClassifier(t)
	defer classifier.Close()
	s := newTestServer(t, classifier.URL)
	s.storage = &failingStorage{}

	video := makeTestVideo(t, s.Log, 3)
	w := postVideo(t, s, video)
	require.Equal(t, 500, w.Code)
	require.Contains(t, w.Body.String(), "Failed to upload")

	// The annotated video must survive on local disk
	outputs, err := filepath.Glob(filepath.Join(s.outputDir, "processed_*.mp4"))
	require.NoError(t, err)
	require.Len(t, outputs, 1)
}

func TestJobNotFound(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	req := httptest.NewRequest("GET", "/api/jobs/12345", nil)
	w := httptest.NewRecorder()
	s.httpRouter.ServeHTTP(w, req)
	require.Equal(t, 404, w.Code)
}

type failingStorage struct{}

func (f *failingStorage) WriteFile(name string) (io.WriteCloser, error) {
	return nil, errors.New("bucket on fire")
}

func (f *failingStorage) ReadFile(name string) (*storage.File, error) {
	return nil, errors.New("bucket on fire")
}

func (f *failingStorage) DeleteFile(name string) error {
	return errors.New("bucket on fire")
}

func (f *failingStorage) URL(name string) (string, error) {
	return "", storage.ErrNoPublicURL
}
