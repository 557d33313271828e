package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-companion/cloud-companion/internal/graph"
	"github.com/cloud-companion/cloud-companion/internal/models"
)

// APIKeyRepository manages APIKey nodes and resolves request contexts.
type APIKeyRepository struct {
	q graph.Querier
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(q graph.Querier) *APIKeyRepository {
	return &APIKeyRepository{q: q}
}

// Create inserts a new key under the organization. Returns nil, nil when the
// organization does not exist, mirroring the lookup methods.
func (r *APIKeyRepository) Create(ctx context.Context, orgID, name, hashedKey string, expiresAt *time.Time) (*models.APIKey, error) {
	key := &models.APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		HashedKey: hashedKey,
		Status:    models.APIKeyStatusActive,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}

	params := map[string]any{
		"org_id":     orgID,
		"id":         key.ID,
		"name":       key.Name,
		"hashed_key": key.HashedKey,
		"status":     key.Status,
		"created_at": key.CreatedAt,
	}
	expiryClause := ""
	if expiresAt != nil {
		expiryClause = ", expires_at: $expires_at"
		params["expires_at"] = expiresAt.UTC()
	}

	cypher := `
		MATCH (org:Organization {id: $org_id})
		CREATE (k:APIKey {id: $id, name: $name, hashed_key: $hashed_key,
		                  status: $status, created_at: $created_at` + expiryClause + `})
		CREATE (k)-[:BELONGS_TO]->(org)
		RETURN k.id AS id`

	records, err := r.q.ExecuteWrite(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return key, nil
}

// ResolveContext authenticates a key digest in a single round trip: active
// key, unexpired, its organization, and the organization's account ids.
// Returns nil, nil when nothing matches; the caller cannot tell which
// predicate failed, which is intentional.
func (r *APIKeyRepository) ResolveContext(ctx context.Context, hashedKey string) (*models.RequestContext, error) {
	cypher := `
		MATCH (k:APIKey {hashed_key: $hashed_key, status: 'active'})
		WHERE k.expires_at IS NULL OR k.expires_at > $now
		MATCH (k)-[:BELONGS_TO]->(org:Organization)
		OPTIONAL MATCH (org)-[:HAS_ACCOUNT]->(acc:CloudAccount)
		RETURN k.id AS api_key_id, org.id AS org_id, collect(acc.id) AS account_ids`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{
		"hashed_key": hashedKey,
		"now":        time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	record := records[0]
	return &models.RequestContext{
		OrgID:      graph.StringValue(record, "org_id"),
		APIKeyID:   graph.StringValue(record, "api_key_id"),
		AccountIDs: graph.StringSliceValue(record, "account_ids"),
	}, nil
}

// ListByOrg returns the metadata of all keys owned by the organization.
// Digests are not returned.
func (r *APIKeyRepository) ListByOrg(ctx context.Context, orgID string) ([]*models.APIKey, error) {
	cypher := `
		MATCH (k:APIKey)-[:BELONGS_TO]->(org:Organization {id: $org_id})
		RETURN k.id AS id, k.name AS name, k.status AS status,
		       k.created_at AS created_at, k.expires_at AS expires_at,
		       k.last_used_at AS last_used_at
		ORDER BY k.created_at DESC`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{"org_id": orgID})
	if err != nil {
		return nil, err
	}

	keys := make([]*models.APIKey, 0, len(records))
	for _, record := range records {
		keys = append(keys, &models.APIKey{
			ID:         graph.StringValue(record, "id"),
			Name:       graph.StringValue(record, "name"),
			Status:     graph.StringValue(record, "status"),
			CreatedAt:  graph.TimeValue(record, "created_at"),
			ExpiresAt:  graph.TimePtrValue(record, "expires_at"),
			LastUsedAt: graph.TimePtrValue(record, "last_used_at"),
		})
	}
	return keys, nil
}

// Revoke flips the key status so it no longer authenticates. The node stays
// in place for auditability. Revoking an already revoked or unknown key is
// a no-op.
func (r *APIKeyRepository) Revoke(ctx context.Context, orgID, keyID string) error {
	cypher := `
		MATCH (k:APIKey {id: $id})-[:BELONGS_TO]->(org:Organization {id: $org_id})
		SET k.status = 'revoked'`

	_, err := r.q.ExecuteWrite(ctx, cypher, map[string]any{
		"id":     keyID,
		"org_id": orgID,
	})
	return err
}

// FindExpiringSoon returns active keys expiring within the given window,
// for the expiry sweeper.
func (r *APIKeyRepository) FindExpiringSoon(ctx context.Context, within time.Duration) ([]*models.APIKey, error) {
	now := time.Now().UTC()
	cypher := `
		MATCH (k:APIKey {status: 'active'})
		WHERE k.expires_at IS NOT NULL AND k.expires_at > $now AND k.expires_at <= $deadline
		RETURN k.id AS id, k.name AS name, k.status AS status,
		       k.created_at AS created_at, k.expires_at AS expires_at
		ORDER BY k.expires_at`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{
		"now":      now,
		"deadline": now.Add(within),
	})
	if err != nil {
		return nil, err
	}

	keys := make([]*models.APIKey, 0, len(records))
	for _, record := range records {
		keys = append(keys, &models.APIKey{
			ID:        graph.StringValue(record, "id"),
			Name:      graph.StringValue(record, "name"),
			Status:    graph.StringValue(record, "status"),
			CreatedAt: graph.TimeValue(record, "created_at"),
			ExpiresAt: graph.TimePtrValue(record, "expires_at"),
		})
	}
	return keys, nil
}

// TouchLastUsed stamps the key's last use. Called fire-and-forget after
// authentication; failures are logged by the caller and never fail a
// request.
func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, keyID string) error {
	cypher := `
		MATCH (k:APIKey {id: $id})
		SET k.last_used_at = $now`

	_, err := r.q.ExecuteWrite(ctx, cypher, map[string]any{
		"id":  keyID,
		"now": time.Now().UTC(),
	})
	return err
}
