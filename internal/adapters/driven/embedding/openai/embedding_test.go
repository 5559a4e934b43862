package openai

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
}

func TestEmbeddingService_EmbedBatch_OrdersByIndex(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[
			{"embedding":[0,1],"index":1},
			{"embedding":[1,0],"index":0}
		]}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	vecs, err := svc.EmbedBatch(t.Context(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, []string{"first", "second"}, got.Input)
	assert.Equal(t, 2, got.Dimensions)
}

func TestEmbeddingService_DimensionsOnlyForV3Models(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1],"index":0}]}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL, Model: "text-embedding-ada-002", Dimensions: 256})
	require.NoError(t, err)

	_, err = svc.Embed(t.Context(), "x")
	require.NoError(t, err)
	assert.NotContains(t, got, "dimensions")
}

func TestEmbeddingService_EmptyBatch(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	vecs, err := svc.EmbedBatch(t.Context(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbeddingService_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "api error", status: http.StatusTooManyRequests, body: `{"error":{"message":"rate limited"}}`},
		{name: "missing data", status: http.StatusOK, body: `{"data":[]}`},
		{name: "bad index", status: http.StatusOK, body: `{"data":[{"embedding":[1],"index":5}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = svc.Embed(t.Context(), "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrBackendRuntime))
		})
	}
}
