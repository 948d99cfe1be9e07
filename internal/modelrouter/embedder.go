package modelrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// httpEmbedder talks to an Ollama-compatible embedding endpoint
// (POST /api/embed, {"model","input"} -> {"embeddings"}). Both the local
// and remote embed providers use this same wire shape: "local" addresses
// a same-host model server (e.g. Ollama), "remote" a hosted equivalent
// reachable over the network. Only the endpoint, model, and timeout
// differ between the two.
type httpEmbedder struct {
	client   *http.Client
	endpoint string
	model    string
	dims     int
	timeout  time.Duration
}

var _ Embedder = (*httpEmbedder)(nil)

func newHTTPEmbedder(endpoint, model string, dims int, timeout time.Duration) *httpEmbedder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpEmbedder{
		client:   newHTTPClient(),
		endpoint: endpoint,
		model:    model,
		dims:     dims,
		timeout:  timeout,
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed requests embeddings for texts, one HTTP round trip per call.
func (e *httpEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Input: input})
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindInvalidInput, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindInvalidInput, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("embed request to %s: %w", e.endpoint, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, qerrors.New(qerrors.KindProviderUnavailable,
			fmt.Sprintf("embed endpoint %s returned status %d: %s", e.endpoint, resp.StatusCode, string(respBody)), nil)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("decoding embed response: %w", err))
	}
	if len(result.Embeddings) != len(texts) {
		return nil, qerrors.New(qerrors.KindEmbeddingFailed,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(result.Embeddings)), nil)
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		out[i] = normalizeVector(vec)
	}
	return out, nil
}

func (e *httpEmbedder) Dimensions() int { return e.dims }

// Available issues a cheap single-text embed as a liveness probe.
func (e *httpEmbedder) Available(ctx context.Context) bool {
	_, err := e.Embed(ctx, []string{"ping"})
	return err == nil
}

func (e *httpEmbedder) Close() error {
	if t, ok := e.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
