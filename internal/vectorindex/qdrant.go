package vectorindex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// idPayloadField stores the caller's original "hash:seq" id in the point
// payload, since Qdrant point ids must be a UUID or a positive integer.
const idPayloadField = "_qmd_id"

// QdrantStore is the vector.backend: qdrant implementation, a remote
// collection reached over Qdrant's gRPC API (default port 6334).
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	cfg        Config
}

// NewQdrantStore connects to a Qdrant instance and ensures the configured
// collection exists with the right vector size and metric.
func NewQdrantStore(ctx context.Context, cfg Config) (*QdrantStore, error) {
	if cfg.Collection == "" {
		return nil, qerrors.New(qerrors.KindInvalidInput, "qdrant collection name is required", nil)
	}
	if cfg.Dimensions <= 0 {
		return nil, qerrors.New(qerrors.KindInvalidInput, "qdrant requires dimensions > 0", nil)
	}

	host, port, useTLS, apiKey, err := parseQdrantEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, qerrors.New(qerrors.KindInvalidInput, "parsing qdrant endpoint", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		UseTLS: useTLS,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("creating qdrant client: %w", err))
	}

	qs := &QdrantStore{client: client, collection: cfg.Collection, cfg: cfg}
	if err := qs.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return qs, nil
}

func parseQdrantEndpoint(endpoint string) (host string, port int, useTLS bool, apiKey string, err error) {
	if endpoint == "" {
		return "localhost", 6334, false, "", nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", 0, false, "", err
	}
	host = u.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := u.Port()
	if portStr == "" {
		port = 6334
	} else if port, err = strconv.Atoi(portStr); err != nil {
		return "", 0, false, "", fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	useTLS = u.Scheme == "https"
	apiKey = u.Query().Get("api_key")
	return host, port, useTLS, apiKey, nil
}

func (q *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("checking collection: %w", err))
	}
	if exists {
		return nil
	}

	distance := qdrant.Distance_Cosine
	if q.cfg.Metric == "l2" {
		distance = qdrant.Distance_Euclid
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.cfg.Dimensions),
			Distance: distance,
		}),
	})
	if err != nil {
		return qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("creating collection: %w", err))
	}
	return nil
}

func qdrantPointID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

// Add upserts vectors into the remote collection.
func (q *QdrantStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return qerrors.New(qerrors.KindInvalidInput, fmt.Sprintf("ids/vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}

	points := make([]*qdrant.PointStruct, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != q.cfg.Dimensions {
			return ErrDimensionMismatch{Expected: q.cfg.Dimensions, Got: len(vectors[i])}
		}
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(qdrantPointID(id)),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(map[string]any{idPayloadField: id}),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		return qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("qdrant upsert: %w", err))
	}
	return nil
}

// Search runs a k-NN query against the remote collection.
func (q *QdrantStore) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != q.cfg.Dimensions {
		return nil, ErrDimensionMismatch{Expected: q.cfg.Dimensions, Got: len(query)}
	}
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(query))
	copy(vec, query)
	limit := uint64(k)

	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("qdrant query: %w", err))
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		id := hit.Id.GetUuid()
		if hit.Payload != nil {
			if v, ok := hit.Payload[idPayloadField]; ok {
				id = v.GetStringValue()
			}
		}
		results = append(results, Result{
			ID:    id,
			Score: hit.Score,
		})
	}
	return results, nil
}

// Delete removes points by original id.
func (q *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(qdrantPointID(id))
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return qerrors.Wrap(qerrors.KindProviderUnavailable, fmt.Errorf("qdrant delete: %w", err))
	}
	return nil
}

// Contains is unsupported remotely without a round trip; qmd never calls
// it on the hot path for the qdrant backend, so it conservatively reports
// false rather than issuing a network call per lookup.
func (q *QdrantStore) Contains(id string) bool { return false }

// Count is not tracked locally for a remote backend.
func (q *QdrantStore) Count() int { return -1 }

// Save is a no-op: Qdrant persists its own collection state server-side.
func (q *QdrantStore) Save(path string) error { return nil }

// Load is a no-op: Qdrant persists its own collection state server-side.
func (q *QdrantStore) Load(path string) error { return nil }

// Close releases the gRPC connection.
func (q *QdrantStore) Close() error {
	return q.client.Close()
}

var _ Store = (*QdrantStore)(nil)
