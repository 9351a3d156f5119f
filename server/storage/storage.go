package storage

import (
	"errors"
	"io"
	"os"
	"time"
)

var (
	ErrNoPublicURL = errors.New("storage backend has no public URL")
)

// Storage is an abstraction of a blob store (eg S3, GCS, or a plain
// filesystem behind a web server).
type Storage interface {
	// When finished, you must close the WriteCloser
	WriteFile(name string) (io.WriteCloser, error)

	// When finished, you must close File.Reader
	ReadFile(name string) (*File, error)

	DeleteFile(name string) error

	// URL returns the public URL of name, or ErrNoPublicURL if the backend
	// can't serve one
	URL(name string) (string, error)
}

// File is an element in blob storage.
type File struct {
	Reader     io.ReadCloser
	ModifiedAt time.Time
	Size       int64
}

func WriteFile(s Storage, name string, content io.Reader) error {
	f, err := s.WriteFile(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, content)
	errClose := f.Close()
	if err != nil {
		return err
	}
	return errClose
}

// ReadFileBytes reads the entire contents of name.
func ReadFileBytes(s Storage, name string) ([]byte, error) {
	f, err := s.ReadFile(name)
	if err != nil {
		return nil, err
	}
	defer f.Reader.Close()
	return io.ReadAll(f.Reader)
}

// UploadLocalFile copies the file at localPath into blob storage as name.
func UploadLocalFile(s Storage, name, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteFile(s, name, f)
}
