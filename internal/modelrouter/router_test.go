package modelrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uukuguy/qmd/internal/config"
)

func embedServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		var texts []string
		switch v := req.Input.(type) {
		case string:
			texts = []string{v}
		case []any:
			for _, x := range v {
				texts = append(texts, x.(string))
			}
		}
		embeddings := make([][]float64, len(texts))
		for i := range texts {
			vec := make([]float64, dims)
			vec[0] = 1.0
			embeddings[i] = vec
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: embeddings})
	}))
}

func TestRouter_Embed_LocalSucceeds(t *testing.T) {
	srv := embedServer(t, 4)
	defer srv.Close()

	r := New(Config{
		Models:     config.ModelsConfig{Embed: config.ModelEndpoint{Local: srv.URL}},
		Dimensions: 4,
	})
	defer r.Close()

	vecs, provider, err := r.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, provider)
	require.Len(t, vecs, 1)
	assert.Len(t, vecs[0], 4)
}

func TestRouter_Embed_FallsBackToRemoteOnLocalFailure(t *testing.T) {
	remote := embedServer(t, 4)
	defer remote.Close()

	r := New(Config{
		Models: config.ModelsConfig{Embed: config.ModelEndpoint{
			Local:  "http://127.0.0.1:1", // nothing listening
			Remote: remote.URL,
		}},
		Dimensions: 4,
		Timeout:    2 * time.Second,
	})
	defer r.Close()

	_, provider, err := r.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, ProviderRemote, provider)
}

func TestRouter_Embed_NoProviderConfigured(t *testing.T) {
	r := New(Config{})
	defer r.Close()

	_, provider, err := r.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Equal(t, ProviderNone, provider)
}

func rerankServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := rerankResponse{}
		for i := range req.Documents {
			resp.Results = append(resp.Results, struct {
				Index int     `json:"index"`
				Score float64 `json:"score"`
			}{Index: i, Score: float64(len(req.Documents) - i)})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestRouter_Rerank_LocalSucceeds(t *testing.T) {
	srv := rerankServer(t)
	defer srv.Close()

	r := New(Config{Models: config.ModelsConfig{Rerank: config.ModelEndpoint{Local: srv.URL}}})
	defer r.Close()

	scores, provider, err := r.Rerank(context.Background(), "q", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, provider)
	assert.Equal(t, []float64{2, 1}, scores)
	assert.True(t, r.HasReranker())
}

func TestRouter_ExpandQuery_FallsBackToRuleBased(t *testing.T) {
	r := New(Config{})
	defer r.Close()

	variants := r.ExpandQuery(context.Background(), "find the config")
	require.NotEmpty(t, variants)
	assert.Equal(t, "find the config", variants[0])
}
