// Package modelstore reads model artifacts from a blob store.
package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
)

var ErrNotFound = errors.New("File not found")

// Storage is an abstraction of a read-only blob store (eg S3)
type Storage interface {
	// When finished, you must close File.Reader.
	// If the file does not exist, the error wraps ErrNotFound.
	ReadFile(ctx context.Context, name string) (*File, error)

	// Human readable location, for logs
	String() string
}

// File is an element in blob storage.
type File struct {
	Reader     io.ReadCloser
	ModifiedAt time.Time
	Size       int64
}

func ReadFile(ctx context.Context, s Storage, name string) ([]byte, error) {
	f, err := s.ReadFile(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Reader.Close()
	return io.ReadAll(f.Reader)
}

// Open a store from a URI:
//
//	/var/lib/models or file:///var/lib/models
//	https://models.example.com/redact
//	gs://bucket/prefix
//	s3://bucket/prefix  (endpoint and credentials from S3_ENDPOINT, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
func Open(log logs.Log, uri string) (Storage, error) {
	if !strings.Contains(uri, "://") {
		return NewStorageFS(log, uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("Invalid model store URI '%v': %w", uri, err)
	}
	prefix := strings.Trim(u.Path, "/")
	switch u.Scheme {
	case "file":
		return NewStorageFS(log, u.Path)
	case "http", "https":
		return NewStorageHTTP(log, uri), nil
	case "gs":
		return NewStorageGCS(context.Background(), log, u.Host, prefix)
	case "s3":
		return NewStorageS3(log, S3Options{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Bucket:    u.Host,
			Prefix:    prefix,
			Insecure:  os.Getenv("S3_INSECURE") == "1",
		})
	}
	return nil, fmt.Errorf("Unsupported model store scheme '%v'", u.Scheme)
}

func checkName(name string) error {
	if name == "" || strings.Contains(name, "..") {
		return fmt.Errorf("Invalid file name '%v'", name)
	}
	return nil
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
