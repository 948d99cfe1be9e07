package modelrouter

import (
	"context"
	"log/slog"
	"time"

	"github.com/uukuguy/qmd/internal/config"
	"github.com/uukuguy/qmd/internal/qerrors"
)

// Config configures the three routed operations from a loaded
// config.ModelsConfig plus the embedding dimension the collection expects.
type Config struct {
	Models     config.ModelsConfig
	Dimensions int
	Timeout    time.Duration
}

// Router holds at most two providers per operation (local, remote) and
// implements the local-first, remote-fallback attempt order.
type Router struct {
	localEmbedder  Embedder
	remoteEmbedder Embedder

	localReranker  Reranker
	remoteReranker Reranker

	localExpander  Expander
	remoteExpander Expander
	ruleExpander   Expander
}

// New builds a Router from config. Endpoints left empty in config simply
// leave that provider unset; Router degrades gracefully per operation.
func New(cfg Config) *Router {
	r := &Router{ruleExpander: NewRuleBasedExpander()}

	if cfg.Models.Embed.Local != "" {
		r.localEmbedder = newHTTPEmbedder(cfg.Models.Embed.Local, "", cfg.Dimensions, cfg.Timeout)
	}
	if cfg.Models.Embed.Remote != "" {
		r.remoteEmbedder = newHTTPEmbedder(cfg.Models.Embed.Remote, "", cfg.Dimensions, cfg.Timeout)
	}

	if cfg.Models.Rerank.Local != "" {
		r.localReranker = newHTTPReranker(cfg.Models.Rerank.Local, "", cfg.Timeout)
	}
	if cfg.Models.Rerank.Remote != "" {
		r.remoteReranker = newHTTPReranker(cfg.Models.Rerank.Remote, "", cfg.Timeout)
	}

	if cfg.Models.QueryExpansion.Local != "" {
		r.localExpander = newHTTPExpander(cfg.Models.QueryExpansion.Local, "", cfg.Timeout)
	}
	if cfg.Models.QueryExpansion.Remote != "" {
		r.remoteExpander = newHTTPExpander(cfg.Models.QueryExpansion.Remote, "", cfg.Timeout)
	}

	return r
}

// Embed generates embeddings, trying the local provider before remote.
func (r *Router) Embed(ctx context.Context, texts []string) ([][]float32, ProviderKind, error) {
	if r.localEmbedder != nil {
		vecs, err := r.localEmbedder.Embed(ctx, texts)
		if err == nil {
			return vecs, ProviderLocal, nil
		}
		slog.Warn("local_embedder_failed", slog.String("error", err.Error()))
	}
	if r.remoteEmbedder != nil {
		vecs, err := r.remoteEmbedder.Embed(ctx, texts)
		if err == nil {
			return vecs, ProviderRemote, nil
		}
		slog.Error("remote_embedder_failed", slog.String("error", err.Error()))
	}
	return nil, ProviderNone, qerrors.New(qerrors.KindProviderUnavailable, "no embedder available", nil)
}

// Rerank scores documents, trying the local provider before remote.
func (r *Router) Rerank(ctx context.Context, query string, documents []string) ([]float64, ProviderKind, error) {
	if r.localReranker != nil {
		scores, err := r.localReranker.Rerank(ctx, query, documents)
		if err == nil {
			return scores, ProviderLocal, nil
		}
		slog.Warn("local_reranker_failed", slog.String("error", err.Error()))
	}
	if r.remoteReranker != nil {
		scores, err := r.remoteReranker.Rerank(ctx, query, documents)
		if err == nil {
			return scores, ProviderRemote, nil
		}
		slog.Error("remote_reranker_failed", slog.String("error", err.Error()))
	}
	return nil, ProviderNone, qerrors.New(qerrors.KindProviderUnavailable, "no reranker available", nil)
}

// HasReranker reports whether any reranker provider is configured.
func (r *Router) HasReranker() bool {
	return r.localReranker != nil || r.remoteReranker != nil
}

// ExpandQuery returns query variants. Unlike Embed/Rerank, expansion is a
// cheap optional step (spec: "a minimal implementation that returns [q]
// is acceptable"), so a missing or failing LLM provider falls back to the
// rule-based expander rather than returning a terminal error.
func (r *Router) ExpandQuery(ctx context.Context, query string) []string {
	if r.localExpander != nil {
		if variants, err := r.localExpander.Expand(ctx, query); err == nil {
			return variants
		} else {
			slog.Warn("local_expander_failed", slog.String("error", err.Error()))
		}
	}
	if r.remoteExpander != nil {
		if variants, err := r.remoteExpander.Expand(ctx, query); err == nil {
			return variants
		} else {
			slog.Warn("remote_expander_failed", slog.String("error", err.Error()))
		}
	}
	variants, _ := r.ruleExpander.Expand(ctx, query)
	return variants
}

// Close releases resources held by configured providers.
func (r *Router) Close() error {
	closers := []interface{ Close() error }{}
	for _, c := range []Embedder{r.localEmbedder, r.remoteEmbedder} {
		if c != nil {
			closers = append(closers, c)
		}
	}
	for _, c := range []Reranker{r.localReranker, r.remoteReranker} {
		if c != nil {
			closers = append(closers, c)
		}
	}
	var firstErr error
	for _, c := range closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
