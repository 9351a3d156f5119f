package storage

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cyclopcam/logs"
)

// StorageS3 is an AWS S3-based blob store.
// Credentials come from the default AWS credential chain (env vars,
// ~/.aws/credentials, instance role).
type StorageS3 struct {
	bucketName string
	client     *s3.Client
	uploader   *manager.Uploader
	log        logs.Log
}

func NewStorageS3(log logs.Log, bucketName, region string) (*StorageS3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &StorageS3{
		bucketName: bucketName,
		client:     client,
		uploader:   manager.NewUploader(client),
		log:        log,
	}, nil
}

// WriteFile streams into S3 via a pipe, so that we never need to hold the
// whole blob in memory. The upload completes when the writer is closed.
func (s *StorageS3) WriteFile(name string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := s.uploader.Upload(context.Background(), &s3.PutObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(name),
			Body:   pr,
		})
		// Unblock the writer if the upload died mid-stream
		pr.CloseWithError(err)
		done <- err
	}()
	return &s3Writer{pw: pw, done: done}, nil
}

type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Close() error {
	w.pw.Close()
	return <-w.done
}

func (s *StorageS3) ReadFile(name string) (*File, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, err
	}
	return &File{
		Reader:     out.Body,
		ModifiedAt: aws.ToTime(out.LastModified),
		Size:       aws.ToInt64(out.ContentLength),
	}, nil
}

func (s *StorageS3) DeleteFile(name string) error {
	_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(name),
	})
	return err
}

func (s *StorageS3) URL(name string) (string, error) {
	return "https://" + s.bucketName + ".s3.amazonaws.com/" + name, nil
}
