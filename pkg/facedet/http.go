package facedet

import (
	"encoding/base64"
	"fmt"

	"github.com/cyclopcam/emocam/pkg/requests"
	"github.com/cyclopcam/logs"
	"gocv.io/x/gocv"
)

// HTTPDetector talks to an emotion inference sidecar (eg a DeepFace service).
// Frames go over the wire as base64 JPEG; the sidecar replies with one entry
// per face. Sidecars report emotion confidence as a percentage, so we
// normalize to 0..1 here, at the boundary.
type HTTPDetector struct {
	url string // eg "http://127.0.0.1:5005"
	log logs.Log
}

type analyzeRequest struct {
	Image            string   `json:"img"`
	Actions          []string `json:"actions"`
	EnforceDetection bool     `json:"enforce_detection"`
}

type analyzeRegion struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type analyzeFace struct {
	Region          analyzeRegion      `json:"region"`
	DominantEmotion string             `json:"dominant_emotion"`
	Emotion         map[string]float32 `json:"emotion"` // percentages
}

type analyzeResponse struct {
	Results []analyzeFace `json:"results"`
}

func NewHTTPDetector(log logs.Log, url string) *HTTPDetector {
	return &HTTPDetector{
		url: url,
		log: log,
	}
}

func (d *HTTPDetector) Close() {
}

func (d *HTTPDetector) DetectFaces(frame gocv.Mat) ([]Face, error) {
	jpg, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame for classifier: %w", err)
	}
	defer jpg.Close()

	req := analyzeRequest{
		Image:            base64.StdEncoding.EncodeToString(jpg.GetBytes()),
		Actions:          []string{"emotion"},
		EnforceDetection: false,
	}
	resp, err := requests.PostJSON[analyzeResponse](d.url+"/analyze", &req)
	if err != nil {
		return nil, err
	}

	faces := make([]Face, 0, len(resp.Results))
	for _, rf := range resp.Results {
		faces = append(faces, Face{
			Box: Rect{
				X:      rf.Region.X,
				Y:      rf.Region.Y,
				Width:  rf.Region.W,
				Height: rf.Region.H,
			},
			Dominant:   rf.DominantEmotion,
			Confidence: rf.Emotion[rf.DominantEmotion] / 100,
			Emotions:   normalizeDistribution(rf.Emotion),
		})
	}
	return faces, nil
}

func normalizeDistribution(percent map[string]float32) map[string]float32 {
	dist := make(map[string]float32, len(percent))
	for label, p := range percent {
		dist[label] = p / 100
	}
	return dist
}
