package modelrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// httpReranker talks to a cross-encoder reranking endpoint
// (POST /rerank, {"query","documents"} -> {"results":[{"index","score"}]}).
// As with httpEmbedder, the local and remote providers share this shape
// and differ only in endpoint/model/timeout.
type httpReranker struct {
	client   *http.Client
	endpoint string
	model    string
	timeout  time.Duration
}

var _ Reranker = (*httpReranker)(nil)

func newHTTPReranker(endpoint, model string, timeout time.Duration) *httpReranker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpReranker{client: newHTTPClient(), endpoint: endpoint, model: model, timeout: timeout}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Rerank returns scores aligned with the documents slice (higher better).
func (r *httpReranker) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Documents: documents, Model: r.model})
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindInvalidInput, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindInvalidInput, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("rerank request to %s: %w", r.endpoint, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, qerrors.New(qerrors.KindProviderUnavailable,
			fmt.Sprintf("rerank endpoint %s returned status %d: %s", r.endpoint, resp.StatusCode, string(respBody)), nil)
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("decoding rerank response: %w", err))
	}

	scores := make([]float64, len(documents))
	for _, res := range result.Results {
		if res.Index >= 0 && res.Index < len(scores) {
			scores[res.Index] = res.Score
		}
	}
	return scores, nil
}

// Available issues a 1-document rerank as a liveness probe.
func (r *httpReranker) Available(ctx context.Context) bool {
	_, err := r.Rerank(ctx, "ping", []string{"ping"})
	return err == nil
}

func (r *httpReranker) Close() error {
	if t, ok := r.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}
