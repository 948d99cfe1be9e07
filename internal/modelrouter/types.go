// Package modelrouter selects between a local and a remote provider for
// the three model-backed operations the retriever needs: embed, rerank,
// and expand_query. Each operation tries its local provider first and
// falls back to remote on failure. Embed and rerank then end in a
// provider_unavailable error; expand_query falls back to the rule-based
// expander and does not fail.
package modelrouter

import "context"

// ProviderKind identifies which provider actually served a call.
type ProviderKind string

const (
	ProviderLocal  ProviderKind = "local"
	ProviderRemote ProviderKind = "remote"
	ProviderNone   ProviderKind = ""
)

// Embedder generates vector embeddings for a batch of texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Available(ctx context.Context) bool
	Close() error
}

// Reranker scores documents against a query. Scores align positionally
// with the input documents slice; higher is better.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
	Available(ctx context.Context) bool
	Close() error
}

// Expander produces query variants for hybrid search's multi-BM25 pass.
// Implementations must always include the original query verbatim.
type Expander interface {
	Expand(ctx context.Context, query string) ([]string, error)
}
