package upload

import (
	"context"
	"io"
	"path"

	gcs "cloud.google.com/go/storage"
	"github.com/cyclopcam/logs"
)

// StorageGCS is a Google Cloud Storage-based blob store
type StorageGCS struct {
	bucketName string
	prefix     string
	bucket     *gcs.BucketHandle
	log        logs.Log
}

// NewStorageGCS uses application default credentials.
func NewStorageGCS(log logs.Log, bucketName, prefix string) (*StorageGCS, error) {
	ctx := context.Background()
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &StorageGCS{
		bucketName: bucketName,
		prefix:     prefix,
		bucket:     client.Bucket(bucketName),
		log:        log,
	}, nil
}

func (s *StorageGCS) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *StorageGCS) WriteFile(name string) (io.WriteCloser, error) {
	ctx := context.Background()
	s.log.Infof("Writing gs://%v/%v", s.bucketName, s.objectName(name))
	return s.bucket.Object(s.objectName(name)).NewWriter(ctx), nil
}

func (s *StorageGCS) ReadFile(name string) (*File, error) {
	ctx := context.Background()
	r, err := s.bucket.Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	return &File{
		Reader: r,
		Size:   r.Attrs.Size,
	}, nil
}

func (s *StorageGCS) DeleteFile(name string) error {
	ctx := context.Background()
	return s.bucket.Object(s.objectName(name)).Delete(ctx)
}
