package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage keeps uploads in a MinIO (or S3-compatible) bucket,
// for deployments where API instances do not share a filesystem.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// MinioConfig configures MinIO storage.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// NewMinioStorage connects to MinIO and ensures the bucket exists.
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket: %w", err)
		}
	}

	return &MinioStorage{client: client, bucket: cfg.Bucket}, nil
}

// Save streams the upload into the bucket under a generated ID.
func (s *MinioStorage) Save(reader io.Reader, filename string) (FileInfo, error) {
	id := uuid.New().String()
	ext := filepath.Ext(filename)

	now := time.Now()
	objectName := fmt.Sprintf("%04d/%02d/%02d/%s%s",
		now.Year(), now.Month(), now.Day(), id, ext)
	contentType := MimeType(filename)

	// Size -1 lets the client stream with multipart upload.
	uploaded, err := s.client.PutObject(
		context.Background(), s.bucket, objectName, reader, -1,
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return FileInfo{}, fmt.Errorf("uploading object: %w", err)
	}

	return FileInfo{
		ID:       id,
		Name:     filename,
		Size:     uploaded.Size,
		MimeType: contentType,
		Path:     objectName,
	}, nil
}

// Get opens a stored object by ID.
func (s *MinioStorage) Get(id string) (io.ReadCloser, error) {
	info, err := s.Stat(id)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(
		context.Background(), s.bucket, info.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting object: %w", err)
	}
	return obj, nil
}

// Stat returns a stored object's info by ID.
func (s *MinioStorage) Stat(id string) (FileInfo, error) {
	files, err := s.List()
	if err != nil {
		return FileInfo{}, err
	}
	for _, file := range files {
		if file.ID == id {
			return file, nil
		}
	}
	return FileInfo{}, fmt.Errorf("%w: %s", ErrFileNotFound, id)
}

// Delete removes a stored object.
func (s *MinioStorage) Delete(id string) error {
	info, err := s.Stat(id)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(
		context.Background(), s.bucket, info.Path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing object: %w", err)
	}
	return nil
}

// List returns info for every stored object.
func (s *MinioStorage) List() ([]FileInfo, error) {
	var files []FileInfo
	objects := s.client.ListObjects(
		context.Background(), s.bucket, minio.ListObjectsOptions{Recursive: true})

	for object := range objects {
		if object.Err != nil {
			return nil, fmt.Errorf("listing objects: %w", object.Err)
		}
		name := filepath.Base(object.Key)
		files = append(files, FileInfo{
			ID:       strings.TrimSuffix(name, filepath.Ext(name)),
			Name:     name,
			Size:     object.Size,
			MimeType: MimeType(name),
			Path:     object.Key,
		})
	}
	return files, nil
}
