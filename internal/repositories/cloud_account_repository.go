package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-companion/cloud-companion/internal/graph"
	"github.com/cloud-companion/cloud-companion/internal/models"
)

// CloudAccountRepository manages CloudAccount nodes.
type CloudAccountRepository struct {
	q graph.Querier
}

// NewCloudAccountRepository creates a new CloudAccountRepository
func NewCloudAccountRepository(q graph.Querier) *CloudAccountRepository {
	return &CloudAccountRepository{q: q}
}

// Create attaches a new cloud account to the organization. credentials must
// already be sealed by the credential cipher; this layer never sees
// plaintext secrets. Returns nil, nil when the organization does not exist.
func (r *CloudAccountRepository) Create(ctx context.Context, orgID, provider, accountRef, name, credentials string) (*models.CloudAccount, error) {
	account := &models.CloudAccount{
		ID:          uuid.New().String(),
		Provider:    provider,
		AccountRef:  accountRef,
		Name:        name,
		Credentials: credentials,
		CreatedAt:   time.Now().UTC(),
	}

	cypher := `
		MATCH (org:Organization {id: $org_id})
		CREATE (acc:CloudAccount {id: $id, provider: $provider, account_ref: $account_ref,
		                          name: $name, credentials: $credentials, created_at: $created_at})
		CREATE (org)-[:HAS_ACCOUNT]->(acc)
		RETURN acc.id AS id`

	records, err := r.q.ExecuteWrite(ctx, cypher, map[string]any{
		"org_id":      orgID,
		"id":          account.ID,
		"provider":    account.Provider,
		"account_ref": account.AccountRef,
		"name":        account.Name,
		"credentials": account.Credentials,
		"created_at":  account.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return account, nil
}

// ListByOrg returns the organization's cloud accounts. Sealed credentials
// are not returned.
func (r *CloudAccountRepository) ListByOrg(ctx context.Context, orgID string) ([]*models.CloudAccount, error) {
	cypher := `
		MATCH (org:Organization {id: $org_id})-[:HAS_ACCOUNT]->(acc:CloudAccount)
		RETURN acc.id AS id, acc.provider AS provider, acc.account_ref AS account_ref,
		       acc.name AS name, acc.last_synced AS last_synced, acc.created_at AS created_at
		ORDER BY acc.created_at`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{"org_id": orgID})
	if err != nil {
		return nil, err
	}

	accounts := make([]*models.CloudAccount, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, &models.CloudAccount{
			ID:         graph.StringValue(record, "id"),
			Provider:   graph.StringValue(record, "provider"),
			AccountRef: graph.StringValue(record, "account_ref"),
			Name:       graph.StringValue(record, "name"),
			LastSynced: graph.TimePtrValue(record, "last_synced"),
			CreatedAt:  graph.TimeValue(record, "created_at"),
		})
	}
	return accounts, nil
}

// TouchLastSynced stamps the account with the time its resources were last
// ingested.
func (r *CloudAccountRepository) TouchLastSynced(ctx context.Context, orgID, accountID string) error {
	cypher := `
		MATCH (org:Organization {id: $org_id})-[:HAS_ACCOUNT]->(acc:CloudAccount {id: $id})
		SET acc.last_synced = $now`

	_, err := r.q.ExecuteWrite(ctx, cypher, map[string]any{
		"org_id": orgID,
		"id":     accountID,
		"now":    time.Now().UTC(),
	})
	return err
}

// GetCredentials returns the sealed credential blob for one account within
// the organization. Returns "" when the account is absent.
func (r *CloudAccountRepository) GetCredentials(ctx context.Context, orgID, accountID string) (string, error) {
	cypher := `
		MATCH (org:Organization {id: $org_id})-[:HAS_ACCOUNT]->(acc:CloudAccount {id: $id})
		RETURN acc.credentials AS credentials`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{
		"org_id": orgID,
		"id":     accountID,
	})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}
	return graph.StringValue(records[0], "credentials"), nil
}
