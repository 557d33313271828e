// Package models defines the graph node types stored in Neo4j. Each struct
// mirrors the properties of one node label; relationships are expressed in
// the repository Cypher, not here.
package models

import "time"

// Organization is the tenant. Every API key, cloud account, resource, and
// conversation hangs off exactly one organization node.
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CloudAccount is a provider account owned by an organization. Credentials
// is the AES-GCM sealed secret blob, never the plaintext.
type CloudAccount struct {
	ID          string     `json:"id"`
	Provider    string     `json:"provider"`
	AccountRef  string     `json:"account_ref"`
	Name        string     `json:"name"`
	Credentials string     `json:"-"`
	LastSynced  *time.Time `json:"last_synced,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Cloud providers accepted for CloudAccount.Provider.
const (
	ProviderAWS   = "aws"
	ProviderAzure = "azure"
	ProviderGCP   = "gcp"
)
