package nnserve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyclopcam/redact/pkg/nn"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, healthy bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			if !healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		case "/predict":
			req := predictRequest{}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Inputs) != 1 {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(predictResponse{Error: "bad input"})
				return
			}
			// Echo the sum of the input as a [1,1,5] output
			sum := float32(0)
			for _, v := range req.Inputs[0].Data {
				sum += v
			}
			json.NewEncoder(w).Encode(predictResponse{
				Outputs: []nn.Tensor{{Shape: []int{1, 1, 5}, Data: []float32{1, 2, 3, 4, sum}}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestRemoteEngine(t *testing.T) {
	srv := newServer(t, true)
	defer srv.Close()

	e, err := Open(context.Background(), srv.URL+"/", Config{MaxConcurrent: 2})
	require.NoError(t, err)
	defer e.Close()

	in := nn.Tensor{Shape: []int{1, 2}, Data: []float32{0.5, 1.5}}
	out, err := e.Run(context.Background(), []nn.Tensor{in})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, []int{1, 1, 5}, out[0].Shape)
	require.Equal(t, float32(2), out[0].Data[4])

	_, err = e.Run(context.Background(), nil)
	require.ErrorContains(t, err, "bad input")
}

func TestRemoteEngineUnhealthy(t *testing.T) {
	srv := newServer(t, false)
	defer srv.Close()
	_, err := Open(context.Background(), srv.URL, Config{})
	require.Error(t, err)

	e, err := Open(context.Background(), srv.URL, Config{SkipHealth: true})
	require.NoError(t, err)
	require.Error(t, e.Health(context.Background()))
}

func TestRemoteEngineCancelled(t *testing.T) {
	srv := newServer(t, true)
	defer srv.Close()
	e, err := Open(context.Background(), srv.URL, Config{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Run(ctx, []nn.Tensor{nn.NewTensor(1, 1)})
	require.ErrorIs(t, err, context.Canceled)
}
