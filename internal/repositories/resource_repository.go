package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-companion/cloud-companion/internal/graph"
	"github.com/cloud-companion/cloud-companion/internal/models"
)

// Pagination bounds for resource listings.
const (
	DefaultResourcePageSize = 20
	MaxResourcePageSize     = 100
)

// ResourceRepository manages CloudResource nodes. Resources hang off cloud
// accounts, so every query walks Organization -> CloudAccount ->
// CloudResource and cannot cross tenants.
type ResourceRepository struct {
	q graph.Querier
}

// NewResourceRepository creates a new ResourceRepository
func NewResourceRepository(q graph.Querier) *ResourceRepository {
	return &ResourceRepository{q: q}
}

// ListByOrg returns one page of the organization's resources, ordered by
// name. Negative skip is treated as zero; limit is clamped to
// [1, MaxResourcePageSize] with DefaultResourcePageSize when unset.
// resourceType narrows the listing when non-empty.
func (r *ResourceRepository) ListByOrg(ctx context.Context, orgID, resourceType string, skip, limit int) ([]*models.CloudResource, error) {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = DefaultResourcePageSize
	}
	if limit > MaxResourcePageSize {
		limit = MaxResourcePageSize
	}

	cypher := `
		MATCH (org:Organization {id: $org_id})-[:HAS_ACCOUNT]->(acc:CloudAccount)-[:OWNS_RESOURCE]->(res:CloudResource)
		WHERE $resource_type = '' OR res.resource_type = $resource_type
		RETURN res.id AS id, res.resource_id AS resource_id, res.name AS name,
		       res.resource_type AS resource_type, res.provider AS provider,
		       res.region AS region, res.status AS status, res.metadata AS metadata,
		       acc.id AS account_id, res.created_at AS created_at, res.updated_at AS updated_at
		ORDER BY res.name
		SKIP $skip LIMIT $limit`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{
		"org_id":        orgID,
		"resource_type": resourceType,
		"skip":          skip,
		"limit":         limit,
	})
	if err != nil {
		return nil, err
	}

	resources := make([]*models.CloudResource, 0, len(records))
	for _, record := range records {
		resources = append(resources, resourceFromRecord(record))
	}
	return resources, nil
}

// GetByID retrieves one resource within the organization. Returns nil, nil
// when the resource does not exist or belongs to another tenant; the caller
// cannot distinguish the two.
func (r *ResourceRepository) GetByID(ctx context.Context, orgID, id string) (*models.CloudResource, error) {
	cypher := `
		MATCH (org:Organization {id: $org_id})-[:HAS_ACCOUNT]->(acc:CloudAccount)-[:OWNS_RESOURCE]->(res:CloudResource {id: $id})
		RETURN res.id AS id, res.resource_id AS resource_id, res.name AS name,
		       res.resource_type AS resource_type, res.provider AS provider,
		       res.region AS region, res.status AS status, res.metadata AS metadata,
		       acc.id AS account_id, res.created_at AS created_at, res.updated_at AS updated_at`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{
		"org_id": orgID,
		"id":     id,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return resourceFromRecord(records[0]), nil
}

// Upsert merges a resource under the account, keyed by the provider-native
// resource id. Repeated ingestion updates properties in place. Returns
// nil, nil when the account is absent from the organization.
func (r *ResourceRepository) Upsert(ctx context.Context, orgID, accountID string, res *models.CloudResource) (*models.CloudResource, error) {
	now := time.Now().UTC()
	newID := uuid.New().String()

	cypher := `
		MATCH (org:Organization {id: $org_id})-[:HAS_ACCOUNT]->(acc:CloudAccount {id: $account_id})
		MERGE (acc)-[:OWNS_RESOURCE]->(res:CloudResource {resource_id: $resource_id})
		ON CREATE SET res.id = $new_id, res.created_at = $now
		SET res.name = $name, res.resource_type = $resource_type, res.provider = $provider,
		    res.region = $region, res.status = $status, res.metadata = $metadata,
		    res.updated_at = $now
		RETURN res.id AS id, res.created_at AS created_at`

	records, err := r.q.ExecuteWrite(ctx, cypher, map[string]any{
		"org_id":        orgID,
		"account_id":    accountID,
		"resource_id":   res.ResourceID,
		"new_id":        newID,
		"name":          res.Name,
		"resource_type": res.ResourceType,
		"provider":      res.Provider,
		"region":        res.Region,
		"status":        res.Status,
		"metadata":      res.Metadata,
		"now":           now,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	stored := *res
	stored.ID = graph.StringValue(records[0], "id")
	stored.AccountID = accountID
	stored.CreatedAt = graph.TimeValue(records[0], "created_at")
	stored.UpdatedAt = now
	return &stored, nil
}

func resourceFromRecord(record map[string]any) *models.CloudResource {
	return &models.CloudResource{
		ID:           graph.StringValue(record, "id"),
		ResourceID:   graph.StringValue(record, "resource_id"),
		Name:         graph.StringValue(record, "name"),
		ResourceType: graph.StringValue(record, "resource_type"),
		Provider:     graph.StringValue(record, "provider"),
		Region:       graph.StringValue(record, "region"),
		Status:       graph.StringValue(record, "status"),
		Metadata:     graph.StringValue(record, "metadata"),
		AccountID:    graph.StringValue(record, "account_id"),
		CreatedAt:    graph.TimeValue(record, "created_at"),
		UpdatedAt:    graph.TimeValue(record, "updated_at"),
	}
}
