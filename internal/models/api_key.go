package models

import "time"

// APIKey status values. Only active keys authenticate; revocation flips the
// status and leaves the node in place for auditability.
const (
	APIKeyStatusActive  = "active"
	APIKeyStatusRevoked = "revoked"
)

// APIKey is an org-scoped credential. HashedKey is the HMAC-SHA256 digest of
// the raw key; the raw key itself is shown once at creation and never stored.
type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	HashedKey  string     `json:"-"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// Expired reports whether the key has an expiry in the past at the given
// instant. Expiry is evaluated at verification time; nothing is written back.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// RequestContext is the resolved identity attached to every authenticated
// request. AccountIDs lists the cloud accounts visible to the organization so
// downstream reads can scope without a second lookup.
type RequestContext struct {
	OrgID      string
	APIKeyID   string
	AccountIDs []string
}
