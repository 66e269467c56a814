package modelstore

import (
	"context"
	"fmt"

	"github.com/cyclopcam/logs"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Options struct {
	Endpoint  string // eg "s3.amazonaws.com" or "localhost:9000"
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Prefix    string
	Insecure  bool // Use plain HTTP
}

// StorageS3 reads from an S3 compatible object store
type StorageS3 struct {
	client *minio.Client
	bucket string
	prefix string
	log    logs.Log
}

func NewStorageS3(log logs.Log, opt S3Options) (*StorageS3, error) {
	if opt.Endpoint == "" {
		opt.Endpoint = "s3.amazonaws.com"
	}
	client, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: !opt.Insecure,
		Region: opt.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to create S3 client for %v: %w", opt.Endpoint, err)
	}
	return &StorageS3{
		client: client,
		bucket: opt.Bucket,
		prefix: opt.Prefix,
		log:    log,
	}, nil
}

func (s *StorageS3) String() string {
	return "s3://" + joinKey(s.bucket, s.prefix)
}

func (s *StorageS3) ReadFile(ctx context.Context, name string) (*File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, joinKey(s.prefix, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy, so Stat is where a missing object shows up
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, err
	}
	return &File{
		Reader:     obj,
		ModifiedAt: st.LastModified,
		Size:       st.Size,
	}, nil
}
