// Package qerrors provides the stable, tagged error taxonomy shared by
// every layer of the search engine. Transport hosts (HTTP, MCP, CLI) are
// expected to translate a Kind into their own status codes.
package qerrors

// Kind is one of the stable error kinds exposed to callers.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidInput       Kind = "invalid_input"
	KindCollectionNotFound Kind = "collection_not_found"
	KindCollectionExists   Kind = "collection_exists"
	KindCollectionLocked   Kind = "collection_locked"
	KindIndexNotReady      Kind = "index_not_ready"
	KindEmbeddingFailed    Kind = "embedding_failed"
	KindStorageError       Kind = "storage_error"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindCancelled          Kind = "cancelled"
	KindTimedOut           Kind = "timed_out"
	KindUnknown            Kind = "unknown"
)

// retryableKinds are kinds for which a caller may reasonably retry.
var retryableKinds = map[Kind]bool{
	KindStorageError:        true,
	KindTimedOut:            true,
	KindProviderUnavailable: true,
}
