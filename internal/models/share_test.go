package models

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func boolPtr(v bool) *bool { return &v }

func TestPermissionSet_Has(t *testing.T) {
	set := PermissionSet{Read: true, Share: true}

	tests := []struct {
		perm     Permission
		expected bool
	}{
		{PermissionRead, true},
		{PermissionEdit, false},
		{PermissionShare, true},
		{PermissionDelete, false},
		{Permission("owner"), false},
	}

	for _, tt := range tests {
		if got := set.Has(tt.perm); got != tt.expected {
			t.Errorf("Has(%q) = %v, expected %v", tt.perm, got, tt.expected)
		}
	}
}

func TestPermissionSet_HasAny(t *testing.T) {
	set := PermissionSet{Edit: true}

	if !set.HasAny([]Permission{PermissionRead, PermissionEdit}) {
		t.Error("Expected HasAny to match when one permission is present")
	}
	if set.HasAny([]Permission{PermissionRead, PermissionDelete}) {
		t.Error("Expected HasAny to fail when no permission is present")
	}
	if set.HasAny(nil) {
		t.Error("An empty permission list must never match")
	}
}

func TestPermissionSet_Merge(t *testing.T) {
	original := PermissionSet{Read: true, Edit: true}

	merged := original.Merge(PermissionPatch{
		Edit:  boolPtr(false),
		Share: boolPtr(true),
	})

	if !merged.Read || merged.Edit || !merged.Share || merged.Delete {
		t.Errorf("Unexpected merge result: %+v", merged)
	}

	// The receiver must stay untouched
	if !original.Read || !original.Edit || original.Share {
		t.Errorf("Merge mutated the original set: %+v", original)
	}
}

func TestPermissionSet_MergeEmptyPatch(t *testing.T) {
	original := PermissionSet{Read: true, Delete: true}

	if merged := original.Merge(PermissionPatch{}); merged != original {
		t.Errorf("Empty patch changed the set: %+v", merged)
	}
}

func TestDefaultPermissions(t *testing.T) {
	def := DefaultPermissions()
	if !def.Read || def.Edit || def.Share || def.Delete {
		t.Errorf("Expected read-only defaults, got %+v", def)
	}
}

func TestParsePermission(t *testing.T) {
	for _, valid := range []string{"read", "edit", "share", "delete"} {
		if _, ok := ParsePermission(valid); !ok {
			t.Errorf("Expected %q to parse", valid)
		}
	}
	for _, invalid := range []string{"", "READ", "admin", "write"} {
		if _, ok := ParsePermission(invalid); ok {
			t.Errorf("Expected %q to be rejected", invalid)
		}
	}
}

func TestShareGrant_Effective(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		isActive  bool
		expiresAt *time.Time
		expected  bool
	}{
		{"active without expiry", true, nil, true},
		{"active with future expiry", true, &future, true},
		{"active but expired", true, &past, false},
		{"revoked without expiry", false, nil, false},
		{"revoked with future expiry", false, &future, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant := &ShareGrant{IsActive: tt.isActive, ExpiresAt: tt.expiresAt}
			if got := grant.Effective(now); got != tt.expected {
				t.Errorf("Effective() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestShareGrant_EffectiveAtExactExpiry(t *testing.T) {
	now := time.Now()
	grant := &ShareGrant{IsActive: true, ExpiresAt: &now}

	// expires_at equal to now is already expired
	if grant.Effective(now) {
		t.Error("Grant expiring exactly now must not be effective")
	}
}

func TestShareGrant_HasTarget(t *testing.T) {
	id := bson.NewObjectID()

	if (&ShareGrant{}).HasTarget() {
		t.Error("Grant without any target must report HasTarget false")
	}
	if !(&ShareGrant{SharedWithUser: &id}).HasTarget() {
		t.Error("User-targeted grant must report HasTarget true")
	}
	if !(&ShareGrant{SharedWithRole: &id}).HasTarget() {
		t.Error("Role-targeted grant must report HasTarget true")
	}
	if !(&ShareGrant{SharedWithTenant: &id}).HasTarget() {
		t.Error("Tenant-targeted grant must report HasTarget true")
	}
}

func TestParseResourceType(t *testing.T) {
	tests := []struct {
		input      string
		collection string
		valid      bool
	}{
		{"Project", "projects", true},
		{"Moodboard", "moodboards", true},
		{"SizeChart", "size_charts", true},
		{"GalleryImage", "gallery_images", true},
		{"project", "", false},
		{"Board", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		rt, err := ParseResourceType(tt.input)
		if tt.valid {
			if err != nil {
				t.Errorf("ParseResourceType(%q) returned error: %v", tt.input, err)
				continue
			}
			if got := rt.CollectionName(); got != tt.collection {
				t.Errorf("CollectionName(%q) = %q, expected %q", tt.input, got, tt.collection)
			}
		} else if err == nil {
			t.Errorf("Expected ParseResourceType(%q) to fail", tt.input)
		}
	}
}

func TestParseActor(t *testing.T) {
	userID := bson.NewObjectID()
	tenantID := bson.NewObjectID()
	roleA := bson.NewObjectID()
	roleB := bson.NewObjectID()

	actor, err := ParseActor(userID.Hex(), tenantID.Hex(), roleA.Hex()+","+roleB.Hex())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if actor.UserID != userID || actor.TenantID != tenantID {
		t.Error("Actor IDs do not round-trip")
	}
	if len(actor.Roles) != 2 || actor.Roles[0] != roleA || actor.Roles[1] != roleB {
		t.Errorf("Unexpected roles: %v", actor.Roles)
	}

	if _, err := ParseActor("not-hex", tenantID.Hex(), ""); err == nil {
		t.Error("Expected invalid user ID to fail")
	}
	if _, err := ParseActor(userID.Hex(), "not-hex", ""); err == nil {
		t.Error("Expected invalid tenant ID to fail")
	}
}
