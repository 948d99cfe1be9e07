package modelrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// intentSynonyms maps common document-search intent words to natural
// language variants, generalized from code-identifier synonym expansion
// to the vocabulary of documentation/notes/prose search.
var intentSynonyms = map[string][]string{
	"find":      {"search", "locate", "look"},
	"search":    {"find", "look", "query"},
	"show":      {"display", "list", "view"},
	"list":      {"show", "enumerate"},
	"explain":   {"describe", "clarify"},
	"describe":  {"explain", "summarize"},
	"install":   {"setup", "configure"},
	"configure": {"setup", "install", "set up"},
	"delete":    {"remove", "erase"},
	"remove":    {"delete", "erase"},
	"create":    {"make", "add", "new"},
	"update":    {"change", "modify", "edit"},
	"error":     {"issue", "problem", "failure"},
	"issue":     {"error", "problem", "bug"},
	"fix":       {"resolve", "repair", "solve"},
	"guide":     {"tutorial", "walkthrough", "howto"},
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true,
	"is": true, "are": true, "in": true, "on": true, "for": true,
	"how": true, "do": true, "does": true, "i": true,
}

// RuleBasedExpander produces cheap synonym and stopword-drop variants
// without calling a model. Always returns the original query first.
type RuleBasedExpander struct {
	maxSynonymsPerTerm int
}

var _ Expander = (*RuleBasedExpander)(nil)

// NewRuleBasedExpander constructs the default rule-based expander.
func NewRuleBasedExpander() *RuleBasedExpander {
	return &RuleBasedExpander{maxSynonymsPerTerm: 2}
}

// Expand returns [query, stopword-dropped variant, synonym variants...]
// with duplicates removed. It never fails.
func (e *RuleBasedExpander) Expand(_ context.Context, query string) ([]string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return []string{query}, nil
	}

	seen := map[string]bool{query: true}
	variants := []string{query}

	terms := strings.Fields(trimmed)

	if dropped := dropStopwords(terms); dropped != "" && !seen[dropped] {
		variants = append(variants, dropped)
		seen[dropped] = true
	}

	for _, term := range terms {
		lower := strings.ToLower(strings.Trim(term, ".,!?;:"))
		syns, ok := intentSynonyms[lower]
		if !ok {
			continue
		}
		for i, syn := range syns {
			if i >= e.maxSynonymsPerTerm {
				break
			}
			variant := strings.Replace(trimmed, term, syn, 1)
			if !seen[variant] {
				variants = append(variants, variant)
				seen[variant] = true
			}
		}
	}

	return variants, nil
}

func dropStopwords(terms []string) string {
	var kept []string
	for _, t := range terms {
		if !stopwords[strings.ToLower(t)] {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(terms) || len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, " ")
}

// httpExpander calls a model endpoint for LLM-driven query expansion
// (POST /expand, {"query"} -> {"variants"}). Used when models.query_expansion
// names a local or remote endpoint; falls back to RuleBasedExpander on
// failure via the Router.
type httpExpander struct {
	client   *http.Client
	endpoint string
	model    string
	timeout  time.Duration
}

var _ Expander = (*httpExpander)(nil)

func newHTTPExpander(endpoint, model string, timeout time.Duration) *httpExpander {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpExpander{client: newHTTPClient(), endpoint: endpoint, model: model, timeout: timeout}
}

type expandRequest struct {
	Query string `json:"query"`
	Model string `json:"model,omitempty"`
}

type expandResponse struct {
	Variants []string `json:"variants"`
}

func (e *httpExpander) Expand(ctx context.Context, query string) ([]string, error) {
	body, err := json.Marshal(expandRequest{Query: query, Model: e.model})
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindInvalidInput, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/expand", bytes.NewReader(body))
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindInvalidInput, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("expand request to %s: %w", e.endpoint, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, qerrors.New(qerrors.KindProviderUnavailable,
			fmt.Sprintf("expand endpoint %s returned status %d: %s", e.endpoint, resp.StatusCode, string(respBody)), nil)
	}

	var result expandResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("decoding expand response: %w", err))
	}

	hasOriginal := false
	for _, v := range result.Variants {
		if v == query {
			hasOriginal = true
			break
		}
	}
	if !hasOriginal {
		result.Variants = append([]string{query}, result.Variants...)
	}
	return result.Variants, nil
}
