package server

import (
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/emocam/pkg/annotate"
)

type Config struct {
	DB         dbh.DBConfig     `json:"db"`
	Storage    StorageConfig    `json:"storage"`
	Classifier ClassifierConfig `json:"classifier"`
	Pipeline   PipelineConfig   `json:"pipeline"`
	UploadDir  string           `json:"uploadDir"` // Where incoming videos land. Default "uploads"
	OutputDir  string           `json:"outputDir"` // Where annotated videos are written. Default "outputs"

	// Largest video we'll accept, eg "200MB". Default "500MB"
	MaxUploadSize string `json:"maxUploadSize"`
}

// One of the storage options must be configured (i.e. 'filesystem', 'gcs' or 's3')
type StorageConfig struct {
	Filesystem *StorageConfigFS  `json:"filesystem"`
	GCS        *StorageConfigGCS `json:"gcs"`
	S3         *StorageConfigS3  `json:"s3"`
}

type StorageConfigFS struct {
	Root    string `json:"root"`    // Path to the root of the filesystem
	BaseURL string `json:"baseUrl"` // Public URL of the root, if a web server exposes it (optional)
}

type StorageConfigGCS struct {
	Bucket string `json:"bucket"` // Name of the GCS bucket
	Public bool   `json:"public"` // Whether the bucket is public. This allows us to give clients direct URLs into GCS, instead of passing the data through our service
}

type StorageConfigS3 struct {
	Bucket string `json:"bucket"` // Name of the S3 bucket
	Region string `json:"region"` // eg "eu-west-1"
}

type ClassifierConfig struct {
	URL string `json:"url"` // Base URL of the emotion inference sidecar, eg "http://127.0.0.1:5005"
}

type PipelineConfig struct {
	FourCC            string  `json:"fourCC"`            // Output codec tag. Default "mp4v"
	FullFrameFraction float32 `json:"fullFrameFraction"` // False-positive threshold. Default 0.95
}

func (c *Config) applyDefaults() {
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.OutputDir == "" {
		c.OutputDir = "outputs"
	}
	if c.Pipeline.FourCC == "" {
		c.Pipeline.FourCC = "mp4v"
	}
	if c.Pipeline.FullFrameFraction == 0 {
		c.Pipeline.FullFrameFraction = annotate.DefaultFullFrameFraction
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "500MB"
	}
}
