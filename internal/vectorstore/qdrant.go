package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"landmarkvector/internal/domain"
)

// payloadIDField holds the caller-supplied vector ID in the Qdrant payload
// whenever that ID isn't itself a valid UUID, since Qdrant only accepts
// UUIDs or unsigned integers as point IDs. Generalized from a
// map[string]string metadata shape and a single-record Upsert/Delete to the
// batched, FlatMetadata-typed Store contract spec.md §4.6 requires.
const payloadIDField = "_original_id"

type qdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     string
}

// NewQdrantStore dials a Qdrant instance at dsn (its gRPC endpoint, default
// port 6334) and ensures collection exists with the given dimension/metric,
// creating it if absent. An API key may be passed as a DSN query parameter:
// "http://host:6334?api_key=...".
func NewQdrantStore(dsn, collection string, dimension int, metric string) (Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("vectorstore: collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: invalid port in qdrant dsn: %w", err)
	}

	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}

	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create qdrant client: %w", err)
	}

	q := &qdrantStore{
		client:     client,
		collection: collection,
		dimension:  dimension,
		metric:     strings.ToLower(strings.TrimSpace(metric)),
	}
	if err := q.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("vectorstore: ensure collection: %w", err)
	}
	return q, nil
}

func (q *qdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	if q.dimension <= 0 {
		return fmt.Errorf("qdrant requires dimension > 0")
	}

	var distance qdrant.Distance
	switch q.metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	case "manhattan":
		distance = qdrant.Distance_Manhattan
	default:
		distance = qdrant.Distance_Cosine
	}

	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: distance,
		}),
	})
}

// pointIDFor maps an arbitrary vector ID onto the UUID Qdrant requires,
// deterministically, so re-upserting the same logical ID always lands on the
// same point.
func pointIDFor(id string) (uuidStr string, isOriginal bool) {
	if _, err := uuid.Parse(id); err == nil {
		return id, true
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String(), false
}

func (q *qdrantStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		uuidStr, isOriginal := pointIDFor(r.ID)

		payload := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		if !isOriginal {
			payload[payloadIDField] = r.ID
		}

		vec := make([]float32, len(r.Values))
		copy(vec, r.Values)

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	return err
}

func (q *qdrantStore) Delete(ctx context.Context, filter Filter) (int, error) {
	qf := buildFilter(filter)
	if qf == nil {
		return 0, fmt.Errorf("vectorstore: delete requires a non-empty filter")
	}

	scanLimit := uint64(10000)
	matches, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Filter:         qf,
		WithPayload:    qdrant.NewWithPayload(false),
		Limit:          &scanLimit,
	})
	if err != nil {
		return 0, fmt.Errorf("find points to delete: %w", err)
	}
	if len(matches) == 0 {
		return 0, nil
	}

	deleted := 0
	for _, m := range matches {
		_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: q.collection,
			Points:         qdrant.NewPointsSelector(m.Id),
		})
		if err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (q *qdrantStore) Query(ctx context.Context, vector []float32, topK int, filter Filter, includeValues bool) ([]domain.Match, error) {
	if topK <= 0 {
		topK = 10
	}
	qf := buildFilter(filter)

	if vector == nil {
		scrollLimit := uint32(topK)
		points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: q.collection,
			Filter:         qf,
			Limit:          &scrollLimit,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(includeValues),
		})
		if err != nil {
			return nil, err
		}
		results := make([]domain.Match, 0, len(points))
		for _, p := range points {
			results = append(results, retrievedToMatch(p.Id, 0, p.Payload, p.Vectors, includeValues))
		}
		return results, nil
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	limit := uint64(topK)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         qf,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(includeValues),
	})
	if err != nil {
		return nil, err
	}
	results := make([]domain.Match, 0, len(hits))
	for _, hit := range hits {
		results = append(results, retrievedToMatch(hit.Id, float64(hit.Score), hit.Payload, hit.Vectors, includeValues))
	}
	return results, nil
}

func (q *qdrantStore) Get(ctx context.Context, id string) (*domain.Match, error) {
	uuidStr, _ := pointIDFor(id)
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(uuidStr)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}
	match := retrievedToMatch(points[0].Id, 0, points[0].Payload, points[0].Vectors, true)
	return &match, nil
}

func (q *qdrantStore) Dimension() int { return q.dimension }

func (q *qdrantStore) Close() error { return q.client.Close() }

func buildFilter(filter Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		must = append(must, qdrant.NewMatch(k, v))
	}
	return &qdrant.Filter{Must: must}
}

func retrievedToMatch(id *qdrant.PointId, score float64, payload map[string]*qdrant.Value, vectors *qdrant.VectorsOutput, includeValues bool) domain.Match {
	uuidStr := id.GetUuid()
	if uuidStr == "" {
		uuidStr = id.String()
	}

	md := domain.NewFlatMetadata()
	var originalID string
	for k, v := range payload {
		if k == payloadIDField {
			originalID = v.GetStringValue()
			continue
		}
		md[k] = v.GetStringValue()
	}

	resolvedID := originalID
	if resolvedID == "" {
		resolvedID = uuidStr
	}

	match := domain.Match{ID: resolvedID, Score: score, Metadata: md}
	if includeValues && vectors != nil {
		if dense := vectors.GetVector().GetData(); dense != nil {
			match.Values = dense
		}
	}
	return match
}
