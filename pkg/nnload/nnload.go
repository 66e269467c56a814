// Package nnload turns a model name into a running nn.Engine.
// It downloads model artifacts from a modelstore into a local cache directory, and hands the
// cached file to an Opener that is registered for the file extension (eg ".tflite").
// The Openers are supplied by the caller, so that this package has no dependency on any
// particular inference runtime.
package nnload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/redact/pkg/iox"
	"github.com/cyclopcam/redact/pkg/kibi"
	"github.com/cyclopcam/redact/pkg/metrics"
	"github.com/cyclopcam/redact/pkg/modelstore"
	"github.com/cyclopcam/redact/pkg/nn"
)

// Opener creates an engine from a model file on local disk, or from a URL for remote engines.
// config is nil if the model has no JSON sidecar.
type Opener func(path string, config *nn.ModelConfig) (nn.Engine, error)

// RemoteScheme is the Openers key for models that are served over HTTP, and are not downloaded
const RemoteScheme = "http"

type Loader struct {
	Log      logs.Log
	Store    modelstore.Storage // Where to download models from. If nil, models must already be in CacheDir.
	CacheDir string
	Openers  map[string]Opener // Keyed by file extension (eg ".tflite") or RemoteScheme
}

func isRemote(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

func (l *Loader) downloadFile(ctx context.Context, name, targetFile string) error {
	src, err := l.Store.ReadFile(ctx, name)
	if err != nil {
		return err
	}
	defer src.Reader.Close()
	n, err := iox.WriteFileAtomic(targetFile, src.Reader)
	if err != nil {
		return err
	}
	l.Log.Infof("Downloaded %v (%v)", name, kibi.FormatBytes(n))
	return nil
}

// fetchOne makes sure that name is in the cache, and returns its path.
// Returns an error wrapping modelstore.ErrNotFound if the file doesn't exist anywhere.
func (l *Loader) fetchOne(ctx context.Context, name string) (string, error) {
	diskPath := filepath.Join(l.CacheDir, filepath.FromSlash(name))
	if _, err := os.Stat(diskPath); err == nil {
		return diskPath, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}
	if l.Store == nil {
		return "", fmt.Errorf("%w: %v", modelstore.ErrNotFound, diskPath)
	}
	l.Log.Infof("Downloading %v from %v to %v", name, l.Store, diskPath)
	if err := l.downloadFile(ctx, name, diskPath); err != nil {
		return "", err
	}
	return diskPath, nil
}

// Fetch downloads the model file and its optional JSON sidecar into the cache, if they are not already there.
// Returns the local path of the model file, and the sidecar config (or nil).
func (l *Loader) Fetch(ctx context.Context, name string) (string, *nn.ModelConfig, error) {
	modelPath, err := l.fetchOne(ctx, name)
	if err != nil {
		return "", nil, fmt.Errorf("Download of %v failed: %w", name, err)
	}

	sidecar := strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
	configPath, err := l.fetchOne(ctx, sidecar)
	if errors.Is(err, modelstore.ErrNotFound) {
		return modelPath, nil, nil
	} else if err != nil {
		return "", nil, fmt.Errorf("Download of %v failed: %w", sidecar, err)
	}
	config, err := nn.LoadModelConfig(configPath)
	if err != nil {
		return "", nil, fmt.Errorf("Invalid model config %v: %w", configPath, err)
	}
	return modelPath, config, nil
}

// Load fetches and opens a model
func (l *Loader) Load(ctx context.Context, name string) (nn.Engine, *nn.ModelConfig, error) {
	engine, config, err := l.load(ctx, name)
	metrics.RecordModelLoad(name, err == nil)
	return engine, config, err
}

func (l *Loader) load(ctx context.Context, name string) (nn.Engine, *nn.ModelConfig, error) {
	if isRemote(name) {
		open := l.Openers[RemoteScheme]
		if open == nil {
			return nil, nil, fmt.Errorf("No opener for remote model %v", name)
		}
		engine, err := open(name, nil)
		if err != nil {
			return nil, nil, err
		}
		return engine, nil, nil
	}

	ext := strings.ToLower(filepath.Ext(name))
	open := l.Openers[ext]
	if open == nil {
		return nil, nil, fmt.Errorf("Unrecognized NN model type %v", name)
	}
	path, config, err := l.Fetch(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	l.Log.Infof("Loading model %v", path)
	engine, err := open(path, config)
	if err != nil {
		return nil, nil, fmt.Errorf("Failed to open model %v: %w", path, err)
	}
	return engine, config, nil
}

// Handle creates a lazily loaded handle for the model
func (l *Loader) Handle(name string) *Handle {
	return NewHandle(l.Log, name, func(ctx context.Context) (nn.Engine, *nn.ModelConfig, error) {
		return l.Load(ctx, name)
	})
}
