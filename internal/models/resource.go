package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CloudResource is a discovered piece of cloud infrastructure attached to a
// cloud account. ResourceID is the provider-native identifier (ARN, resource
// URI, self link); ID is our node id. Metadata holds provider-specific
// attributes as a JSON document.
type CloudResource struct {
	ID           string    `json:"id"`
	ResourceID   string    `json:"resource_id"`
	Name         string    `json:"name"`
	ResourceType string    `json:"resource_type"`
	Provider     string    `json:"provider"`
	Region       string    `json:"region,omitempty"`
	Status       string    `json:"status,omitempty"`
	Metadata     string    `json:"metadata,omitempty"`
	AccountID    string    `json:"account_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GroundingLine renders the resource in the fixed format the model prompt
// expects. Changing this format changes what the model sees, so keep it
// stable.
func (r *CloudResource) GroundingLine() string {
	return fmt.Sprintf("Resource: %s, Type: %s, Metadata: %s", r.Name, r.ResourceType, r.Metadata)
}

// MetadataMap decodes the metadata JSON document. Empty metadata yields an
// empty map, not an error.
func (r *CloudResource) MetadataMap() (map[string]any, error) {
	if r.Metadata == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(r.Metadata), &m); err != nil {
		return nil, fmt.Errorf("decode resource metadata: %w", err)
	}
	return m, nil
}
