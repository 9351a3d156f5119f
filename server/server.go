package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/emocam/pkg/facedet"
	"github.com/cyclopcam/emocam/pkg/kibi"
	"github.com/cyclopcam/emocam/pkg/pipeline"
	"github.com/cyclopcam/emocam/server/storage"
	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
	"gorm.io/gorm"
)

type Server struct {
	Log logs.Log
	DB  *gorm.DB

	signalIn        chan os.Signal
	httpServer      *http.Server
	httpRouter      *httprouter.Router
	storage         storage.Storage
	detector        facedet.Detector
	pipelineOptions pipeline.Options
	uploadDir       string
	outputDir       string
	maxUploadSize   int64
}

func NewServer(configFile string) (*Server, error) {
	cfg := Config{}
	if cfgB, err := os.ReadFile(configFile); err != nil {
		return nil, err
	} else {
		if err := json.Unmarshal(cfgB, &cfg); err != nil {
			return nil, fmt.Errorf("Error parsing config file %v: %w", configFile, err)
		}
	}
	cfg.applyDefaults()
	logger, err := logs.NewLog()
	if err != nil {
		return nil, err
	}
	db, err := openDB(logger, cfg.DB)
	if err != nil {
		return nil, err
	}

	// Open blob store
	var storageServer storage.Storage
	if cfg.Storage.GCS != nil {
		// Google Cloud Storage
		storageServer, err = storage.NewStorageGCS(logger, cfg.Storage.GCS.Bucket, cfg.Storage.GCS.Public)
		if err != nil {
			return nil, err
		}
	} else if cfg.Storage.S3 != nil {
		// AWS S3
		storageServer, err = storage.NewStorageS3(logger, cfg.Storage.S3.Bucket, cfg.Storage.S3.Region)
		if err != nil {
			return nil, err
		}
	} else if cfg.Storage.Filesystem != nil {
		// Filesystem
		storageServer, err = storage.NewStorageFS(logger, cfg.Storage.Filesystem.Root, cfg.Storage.Filesystem.BaseURL)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("One of the storage options must be configured (i.e. 'filesystem', 'gcs' or 's3')")
	}

	if cfg.Classifier.URL == "" {
		return nil, fmt.Errorf("classifier.url must be configured")
	}

	maxUploadSize, err := kibi.Parse(cfg.MaxUploadSize)
	if err != nil {
		return nil, fmt.Errorf("Invalid maxUploadSize '%v': %w", cfg.MaxUploadSize, err)
	}

	// Ensure working folders exist before the first request arrives
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("Failed to create upload directory %v: %w", cfg.UploadDir, err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("Failed to create output directory %v: %w", cfg.OutputDir, err)
	}

	s := &Server{
		Log:      logger,
		DB:       db,
		storage:  storageServer,
		detector: facedet.NewHTTPDetector(logger, cfg.Classifier.URL),
		pipelineOptions: pipeline.Options{
			FourCC:            cfg.Pipeline.FourCC,
			FullFrameFraction: cfg.Pipeline.FullFrameFraction,
		},
		uploadDir:     cfg.UploadDir,
		outputDir:     cfg.OutputDir,
		maxUploadSize: maxUploadSize,
	}
	if err := s.setupHttpRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// port example: ":8080"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.Log.Infof("ListenForKillSignals starting")
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v'. ListenForKillSignals will exit after shutdown", sig.String())
			s.Shutdown()
		} else {
			// This path gets hit when Shutdown() is called by something other than ourselves, and Shutdown() closes the signalIn channel.
			s.Log.Infof("signalIn closed. ListenForKillSignals will exit now")
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	signal.Stop(s.signalIn)
	close(s.signalIn)
	s.detector.Close()
	s.Log.Infof("Closing HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	err := s.httpServer.Shutdown(ctx)
	defer cancel()
	if err != nil {
		s.Log.Warnf("Shutdown complete, with error: %v", err)
	} else {
		s.Log.Infof("Shutdown complete")
	}
	s.Log.Close()
}
