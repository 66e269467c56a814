package requests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type echo struct {
	Values []int `json:"values"`
}

func TestRequestJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			http.Error(w, `{"error":"bad input"}`, http.StatusBadRequest)
			return
		}
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		e := echo{}
		json.NewDecoder(r.Body).Decode(&e)
		e.Values = append(e.Values, len(e.Values))
		json.NewEncoder(w).Encode(e)
	}))
	defer srv.Close()

	r, err := RequestJSON[echo](context.Background(), nil, "POST", srv.URL+"/echo", echo{Values: []int{5, 6}})
	require.NoError(t, err)
	require.Equal(t, []int{5, 6, 2}, r.Values)

	_, err = RequestJSON[echo](context.Background(), srv.Client(), "POST", srv.URL+"/fail", echo{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.StatusCode)
	require.Contains(t, string(se.Body), "bad input")
}
