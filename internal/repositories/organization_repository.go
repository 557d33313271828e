// Package repositories contains the graph-backed data access layer. Each
// repository holds the shared graph.Querier and issues parameterized Cypher;
// every read and write that touches tenant data takes the org id as a
// mandatory parameter.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-companion/cloud-companion/internal/graph"
	"github.com/cloud-companion/cloud-companion/internal/models"
)

// OrganizationRepository manages Organization nodes.
type OrganizationRepository struct {
	q graph.Querier
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(q graph.Querier) *OrganizationRepository {
	return &OrganizationRepository{q: q}
}

// ErrOrgNameTaken is returned by Create when an organization with the same
// name already exists.
var ErrOrgNameTaken = errors.New("organization name already taken")

// Create inserts a new organization node. Names are unique at creation: a
// GetByName pre-check rejects duplicates before the write.
func (r *OrganizationRepository) Create(ctx context.Context, name, description string) (*models.Organization, error) {
	existing, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrOrgNameTaken
	}

	org := &models.Organization{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	cypher := `
		CREATE (org:Organization {id: $id, name: $name, description: $description,
		                          created_at: $created_at})
		RETURN org.id AS id`

	_, err = r.q.ExecuteWrite(ctx, cypher, map[string]any{
		"id":          org.ID,
		"name":        org.Name,
		"description": org.Description,
		"created_at":  org.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// GetByName retrieves an organization by its unique name. Returns nil, nil
// when absent.
func (r *OrganizationRepository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	cypher := `
		MATCH (org:Organization {name: $name})
		RETURN org.id AS id, org.name AS name, org.description AS description,
		       org.created_at AS created_at`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return orgFromRecord(records[0]), nil
}

// GetByID retrieves an organization by ID. Returns nil, nil when absent.
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	cypher := `
		MATCH (org:Organization {id: $id})
		RETURN org.id AS id, org.name AS name, org.description AS description,
		       org.created_at AS created_at`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return orgFromRecord(records[0]), nil
}

// List returns all organizations ordered by creation time.
func (r *OrganizationRepository) List(ctx context.Context) ([]*models.Organization, error) {
	cypher := `
		MATCH (org:Organization)
		RETURN org.id AS id, org.name AS name, org.description AS description,
		       org.created_at AS created_at
		ORDER BY org.created_at`

	records, err := r.q.ExecuteRead(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}

	orgs := make([]*models.Organization, 0, len(records))
	for _, record := range records {
		orgs = append(orgs, orgFromRecord(record))
	}
	return orgs, nil
}

// Delete removes an organization and everything hanging off it: accounts,
// resources, API keys, conversations, and messages. Nothing cross-tenant is
// reachable from an org node, so the subtree delete cannot escape the
// tenant.
func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	cypher := `
		MATCH (org:Organization {id: $id})
		OPTIONAL MATCH (org)-[*1..3]-(n)
		DETACH DELETE org, n`

	_, err := r.q.ExecuteWrite(ctx, cypher, map[string]any{"id": id})
	return err
}

func orgFromRecord(record map[string]any) *models.Organization {
	return &models.Organization{
		ID:          graph.StringValue(record, "id"),
		Name:        graph.StringValue(record, "name"),
		Description: graph.StringValue(record, "description"),
		CreatedAt:   graph.TimeValue(record, "created_at"),
	}
}
