// Package ingest moves collected cloud resources into the two stores: the
// graph holds the authoritative record, the vector store holds an embedding
// of the resource's textual description for semantic retrieval. Provider
// crawlers are external collaborators that implement Source; this package
// deliberately contains no provider SDK code.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloud-companion/cloud-companion/internal/models"
	"github.com/cloud-companion/cloud-companion/internal/repositories"
	"github.com/cloud-companion/cloud-companion/internal/vector"
)

// Source enumerates the resources of one cloud account. Implementations
// live outside this repository (provider crawlers, import tools, fixtures).
type Source interface {
	// Provider returns the provider identifier, e.g. models.ProviderAWS.
	Provider() string
	// Collect returns the current resources of the account.
	Collect(ctx context.Context, account *models.CloudAccount) ([]*models.CloudResource, error)
}

// Embedder turns a resource description into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the slice of the vector gateway the ingestor needs.
type VectorStore interface {
	UpsertResource(ctx context.Context, obj vector.ResourceObject) error
}

// Ingestor writes resources into both stores.
type Ingestor struct {
	resources *repositories.ResourceRepository
	accounts  *repositories.CloudAccountRepository
	vectors   VectorStore
	embedder  Embedder
}

// NewIngestor creates a new Ingestor. vectors and embedder may be nil
// together, which skips embedding and leaves resources graph-only.
func NewIngestor(resources *repositories.ResourceRepository, accounts *repositories.CloudAccountRepository, vectors VectorStore, embedder Embedder) *Ingestor {
	return &Ingestor{resources: resources, accounts: accounts, vectors: vectors, embedder: embedder}
}

// IngestResources upserts the batch under the account. The graph write is
// authoritative: a failed graph upsert fails the batch. Embedding and
// vector writes degrade per resource; the record is still queryable by id,
// it just will not surface in semantic search until the next ingest.
func (i *Ingestor) IngestResources(ctx context.Context, orgID, accountID string, batch []*models.CloudResource) error {
	for _, res := range batch {
		stored, err := i.resources.Upsert(ctx, orgID, accountID, res)
		if err != nil {
			return fmt.Errorf("upsert resource %s: %w", res.ResourceID, err)
		}
		if stored == nil {
			return fmt.Errorf("account %s not found in organization", accountID)
		}

		if i.vectors == nil || i.embedder == nil {
			continue
		}

		description := Describe(stored)
		vec, err := i.embedder.Embed(ctx, description)
		if err != nil {
			slog.Warn("Skipping embedding for resource", "resource_id", stored.ResourceID, "error", err)
			continue
		}

		obj := vector.ResourceObject{
			ResourceID:   stored.ResourceID,
			OrgID:        orgID,
			Name:         stored.Name,
			ResourceType: stored.ResourceType,
			Provider:     stored.Provider,
			Description:  description,
			Vector:       vec,
		}
		if err := i.vectors.UpsertResource(ctx, obj); err != nil {
			slog.Warn("Skipping vector write for resource", "resource_id", stored.ResourceID, "error", err)
		}
	}

	// The sync stamp is advisory; a failed write does not fail the batch.
	if err := i.accounts.TouchLastSynced(ctx, orgID, accountID); err != nil {
		slog.Warn("Could not stamp account last_synced", "account_id", accountID, "error", err)
	}

	return nil
}

// Describe renders the text that gets embedded for a resource. Keep it close
// to the grounding format so retrieval and prompting see the same shape.
func Describe(res *models.CloudResource) string {
	parts := []string{
		"Resource: " + res.Name,
		"Type: " + res.ResourceType,
		"Provider: " + res.Provider,
	}
	if res.Region != "" {
		parts = append(parts, "Region: "+res.Region)
	}
	if res.Status != "" {
		parts = append(parts, "Status: "+res.Status)
	}
	if res.Metadata != "" {
		parts = append(parts, "Metadata: "+res.Metadata)
	}
	return strings.Join(parts, ", ")
}
