package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"resume-chat-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEmbeddings_OrdersByIndex(t *testing.T) {
	var req embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "2023-05-15", r.URL.Query().Get("api-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0.3,0.4]},{"index":0,"embedding":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.EmbeddingConfig{BaseURL: srv.URL, Model: "text-embedding-ada-002", APIVersion: "2023-05-15", Dimensions: 1536}, srv.Client())
	vecs, err := c.CreateEmbeddings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)
	assert.Equal(t, []string{"a", "b"}, req.Input)
	// ada-002 拒绝 dimensions 参数
	assert.Zero(t, req.Dimensions)
	assert.Equal(t, "text-embedding-ada-002", c.Model())
}

func TestCreateEmbedding_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(config.EmbeddingConfig{BaseURL: srv.URL, Model: "m"}, nil)
	_, err := c.CreateEmbedding(context.Background(), "hello")
	assert.Error(t, err)
}

func TestCreateEmbeddings_EmptyInput(t *testing.T) {
	c := NewClient(config.EmbeddingConfig{}, nil)
	_, err := c.CreateEmbeddings(context.Background(), nil)
	assert.Error(t, err)
}

func TestCreateEmbedding_TrailingSlashBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.EmbeddingConfig{BaseURL: srv.URL + "/v1/", Model: "text-embedding-3-small"}, srv.Client())
	vec, err := c.CreateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
}
