package modelstore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
)

// StorageHTTP reads files from a static HTTP server
type StorageHTTP struct {
	BaseURL string
	Client  *http.Client
	log     logs.Log
}

func NewStorageHTTP(log logs.Log, baseURL string) *StorageHTTP {
	return &StorageHTTP{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  http.DefaultClient,
		log:     log,
	}
}

func (s *StorageHTTP) String() string {
	return s.BaseURL
}

func (s *StorageHTTP) ReadFile(ctx context.Context, name string) (*File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"/"+name, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotFound, req.URL)
	} else if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error %v fetching %v", resp.Status, req.URL)
	}
	modifiedAt, _ := http.ParseTime(resp.Header.Get("Last-Modified"))
	if modifiedAt.IsZero() {
		modifiedAt = time.Now()
	}
	return &File{
		Reader:     resp.Body,
		ModifiedAt: modifiedAt,
		Size:       resp.ContentLength,
	}, nil
}
