package models

import (
	"testing"
	"time"
)

func TestAPIKeyExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		key  APIKey
		want bool
	}{
		{"no expiry never expires", APIKey{}, false},
		{"future expiry", APIKey{ExpiresAt: &future}, false},
		{"past expiry", APIKey{ExpiresAt: &past}, true},
		{"exact instant is not yet expired", APIKey{ExpiresAt: &now}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.Expired(now); got != tt.want {
				t.Errorf("Expired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleUser, RoleAssistant} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%q) = false, want true", role)
		}
	}
	for _, role := range []string{"system", "", "USER", "admin"} {
		if ValidRole(role) {
			t.Errorf("ValidRole(%q) = true, want false", role)
		}
	}
}

func TestGroundingLine(t *testing.T) {
	res := CloudResource{
		Name:         "api-server-1",
		ResourceType: "ec2_instance",
		Metadata:     `{"instance_type":"t3.large"}`,
	}
	want := `Resource: api-server-1, Type: ec2_instance, Metadata: {"instance_type":"t3.large"}`
	if got := res.GroundingLine(); got != want {
		t.Errorf("GroundingLine = %q, want %q", got, want)
	}
}

func TestMetadataMap(t *testing.T) {
	res := CloudResource{Metadata: `{"instance_type":"t3.large","cpu_count":4}`}
	m, err := res.MetadataMap()
	if err != nil {
		t.Fatalf("MetadataMap: %v", err)
	}
	if m["instance_type"] != "t3.large" {
		t.Errorf("instance_type = %v", m["instance_type"])
	}

	empty := CloudResource{}
	m, err = empty.MetadataMap()
	if err != nil {
		t.Fatalf("MetadataMap empty: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("empty metadata yielded %v", m)
	}

	bad := CloudResource{Metadata: "{not json"}
	if _, err := bad.MetadataMap(); err == nil {
		t.Error("expected error for malformed metadata")
	}
}
