// Package nnserve runs models on a remote model server, over JSON/HTTP.
//
//	GET  {url}/health    200 if the server is ready
//	POST {url}/predict   {"inputs":[{"shape":[1,640,640,3],"data":[...]}]}
//	                     -> {"outputs":[{"shape":[1,8400,5],"data":[...]}]}
package nnserve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cyclopcam/redact/pkg/nn"
	"github.com/cyclopcam/redact/pkg/requests"
)

type Config struct {
	Client        *http.Client  // If nil, a client with Timeout is created
	Timeout       time.Duration // Per request timeout (default 30 seconds)
	SkipHealth    bool          // Don't check /health in Open
	MaxConcurrent int           // Maximum number of concurrent predict calls (0 = unlimited)
}

type predictRequest struct {
	Inputs []nn.Tensor `json:"inputs"`
}

type predictResponse struct {
	Outputs []nn.Tensor `json:"outputs"`
	Error   string      `json:"error,omitempty"`
}

type Engine struct {
	url    string
	client *http.Client
	slots  chan struct{}
}

// Open connects to the model server at url
func Open(ctx context.Context, url string, config Config) (*Engine, error) {
	client := config.Client
	if client == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	e := &Engine{
		url:    strings.TrimSuffix(url, "/"),
		client: client,
	}
	if config.MaxConcurrent > 0 {
		e.slots = make(chan struct{}, config.MaxConcurrent)
	}
	if !config.SkipHealth {
		if err := e.Health(ctx); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Opener adapts Open to the nnload.Opener signature
func Opener(config Config) func(url string, modelConfig *nn.ModelConfig) (nn.Engine, error) {
	return func(url string, modelConfig *nn.ModelConfig) (nn.Engine, error) {
		e, err := Open(context.Background(), url, config)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

func (e *Engine) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", e.url+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("Model server %v is not reachable: %w", e.url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Model server %v is not healthy: %v", e.url, resp.Status)
	}
	return nil
}

func (e *Engine) Run(ctx context.Context, inputs []nn.Tensor) ([]nn.Tensor, error) {
	if e.slots != nil {
		select {
		case e.slots <- struct{}{}:
			defer func() { <-e.slots }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	pr, err := requests.RequestJSON[predictResponse](ctx, e.client, "POST", e.url+"/predict", predictRequest{Inputs: inputs})
	if err != nil {
		var se *requests.StatusError
		if errors.As(err, &se) {
			failed := predictResponse{}
			if json.Unmarshal(se.Body, &failed) == nil && failed.Error != "" {
				return nil, fmt.Errorf("Predict failed (%v): %v", se.Status, failed.Error)
			}
			return nil, fmt.Errorf("Predict failed: %v", se.Status)
		}
		return nil, fmt.Errorf("Predict failed: %w", err)
	}
	for i, t := range pr.Outputs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("Output %v: %w", i, err)
		}
	}
	return pr.Outputs, nil
}

func (e *Engine) Close() {
	e.client.CloseIdleConnections()
}
