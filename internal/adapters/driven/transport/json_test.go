package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSON_RoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]int{"doubled": in["n"] * 2})
	}))
	defer server.Close()

	var out struct {
		Doubled int `json:"doubled"`
	}
	err := DoJSON(t.Context(), server.Client(), http.MethodPost, server.URL, map[string]int{"n": 21}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Doubled)
}

func TestDoJSON_NoBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte("ignored"))
	}))
	defer server.Close()

	assert.NoError(t, DoJSON(t.Context(), server.Client(), http.MethodDelete, server.URL, nil, nil))
}

func TestDoJSON_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":"not found"}` + "\n"))
	}))
	defer server.Close()

	err := DoJSON(t.Context(), server.Client(), http.MethodGet, server.URL+"/x", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, `{"status":"not found"}`, se.Body)
	assert.Contains(t, se.Error(), "GET")
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestDoJSON_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	var out map[string]any
	err := DoJSON(t.Context(), server.Client(), http.MethodGet, server.URL, nil, &out)
	assert.ErrorContains(t, err, "decode response")
}
