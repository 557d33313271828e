// Package vector wraps the Weaviate client behind the semantic search
// gateway. Every stored object carries the owning org_id property and every
// search includes a mandatory org_id filter, so one tenant's resources can
// never surface in another tenant's retrieval.
package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/cloud-companion/cloud-companion/internal/telemetry"
)

// Config holds the vector store settings.
type Config struct {
	URL         string
	ClassName   string
	SearchLimit int
}

// ResourceObject is the payload stored per cloud resource.
type ResourceObject struct {
	ResourceID   string
	OrgID        string
	Name         string
	ResourceType string
	Provider     string
	Description  string
	Vector       []float32
}

// Hit is one semantic search result.
type Hit struct {
	ResourceID   string
	Name         string
	ResourceType string
	Description  string
	Certainty    float64
}

// Service is the Weaviate-backed gateway.
type Service struct {
	client      *weaviate.Client
	className   string
	searchLimit int
}

// New builds the gateway from configuration. The client is lazy; no network
// traffic happens until the first call, so startup does not depend on the
// vector store being up.
func New(cfg Config) (*Service, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid vector store url %q", cfg.URL)
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsed.Host,
		Scheme: parsed.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	limit := cfg.SearchLimit
	if limit < 1 {
		limit = 5
	}

	return &Service{client: client, className: cfg.ClassName, searchLimit: limit}, nil
}

// ObjectID derives the deterministic Weaviate object id for a resource, so
// repeated ingestion of the same resource overwrites rather than duplicates.
func ObjectID(resourceID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(resourceID)).String()
}

// UpsertResource writes one resource object under its deterministic id.
func (s *Service) UpsertResource(ctx context.Context, obj ResourceObject) error {
	if obj.OrgID == "" {
		return fmt.Errorf("vector upsert requires an org id")
	}

	properties := map[string]interface{}{
		"resource_id":   obj.ResourceID,
		"org_id":        obj.OrgID,
		"name":          obj.Name,
		"resource_type": obj.ResourceType,
		"provider":      obj.Provider,
		"description":   obj.Description,
	}

	_, err := s.client.Data().Creator().
		WithClassName(s.className).
		WithID(ObjectID(obj.ResourceID)).
		WithProperties(properties).
		WithVector(obj.Vector).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("upsert resource object: %w", err)
	}
	return nil
}

// SearchResources runs an org-filtered nearVector search. limit <= 0 falls
// back to the configured default.
func (s *Service) SearchResources(ctx context.Context, orgID string, vec []float32, limit int) ([]Hit, error) {
	if orgID == "" {
		return nil, fmt.Errorf("vector search requires an org id")
	}
	if limit < 1 {
		limit = s.searchLimit
	}

	fields := []graphql.Field{
		{Name: "resource_id"},
		{Name: "name"},
		{Name: "resource_type"},
		{Name: "description"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	whereFilter := filters.Where().
		WithPath([]string{"org_id"}).
		WithOperator(filters.Equal).
		WithValueString(orgID)

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vec)

	result, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithWhere(whereFilter).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		telemetry.VectorSearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(result.Errors) > 0 {
		telemetry.VectorSearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("vector search: %s", result.Errors[0].Message)
	}

	hits, err := parseHits(result.Data, s.className)
	if err != nil {
		telemetry.VectorSearchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	telemetry.VectorSearchesTotal.WithLabelValues("ok").Inc()
	return hits, nil
}

// Healthy reports whether the vector store answers its readiness probe. It
// returns false on any error so the health endpoint can degrade instead of
// failing.
func (s *Service) Healthy(ctx context.Context) bool {
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		slog.Warn("Vector health probe failed", "error", err)
		return false
	}
	return ready
}

// hitsEnvelope mirrors the GraphQL response shape under Get.<ClassName>.
// Marshal then unmarshal gives typed access without hand-walking interface
// maps.
type hitsEnvelope struct {
	Get map[string][]struct {
		ResourceID   string `json:"resource_id"`
		Name         string `json:"name"`
		ResourceType string `json:"resource_type"`
		Description  string `json:"description"`
		Additional   struct {
			Certainty float64 `json:"certainty"`
		} `json:"_additional"`
	} `json:"Get"`
}

func parseHits(data interface{}, className string) ([]Hit, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal weaviate response: %w", err)
	}

	var envelope hitsEnvelope
	if err := json.Unmarshal(jsonBytes, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal weaviate response: %w", err)
	}

	raw := envelope.Get[className]
	hits := make([]Hit, 0, len(raw))
	for _, r := range raw {
		hits = append(hits, Hit{
			ResourceID:   r.ResourceID,
			Name:         r.Name,
			ResourceType: r.ResourceType,
			Description:  r.Description,
			Certainty:    r.Additional.Certainty,
		})
	}
	return hits, nil
}
