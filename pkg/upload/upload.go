// Package upload publishes finished dataset artifacts (the record file
// and its label map) to a blob store, so a training job can pull them
// without access to the machine that ran the conversion.
package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
)

// Storage is an abstraction of a blob store (eg GCS)
type Storage interface {
	// When finished, you must close the WriteCloser
	WriteFile(name string) (io.WriteCloser, error)

	// When finished, you must close File.Reader
	ReadFile(name string) (*File, error)

	DeleteFile(name string) error
}

// File is an element in blob storage.
type File struct {
	Reader io.ReadCloser
	Size   int64
}

// NewStorage picks a backend from a target string: "gs://bucket/prefix"
// gives GCS, anything else is treated as a local directory.
func NewStorage(log logs.Log, target string) (Storage, error) {
	if strings.HasPrefix(target, "gs://") {
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(target, "gs://"), "/")
		if bucket == "" {
			return nil, fmt.Errorf("Invalid GCS target '%v'", target)
		}
		return NewStorageGCS(log, bucket, prefix)
	}
	return NewStorageFS(log, target)
}

// Publish copies the given local files into the store, keyed by their
// base names.
func Publish(log logs.Log, target string, filenames ...string) error {
	store, err := NewStorage(log, target)
	if err != nil {
		return err
	}
	for _, filename := range filenames {
		src, err := os.Open(filename)
		if err != nil {
			return err
		}
		err = WriteFile(store, filepath.Base(filename), src)
		src.Close()
		if err != nil {
			return err
		}
		log.Infof("Published %v to %v", filepath.Base(filename), target)
	}
	return nil
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

func ReadFile(s Storage, name string) ([]byte, error) {
	f, err := s.ReadFile(name)
	if err != nil {
		return nil, err
	}
	defer f.Reader.Close()
	return io.ReadAll(f.Reader)
}
