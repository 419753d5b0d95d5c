package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Permission is one of the four independent capabilities a grant can carry.
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionEdit   Permission = "edit"
	PermissionShare  Permission = "share"
	PermissionDelete Permission = "delete"
)

// PermissionSet holds the capability flags of a share grant.
type PermissionSet struct {
	Read   bool `bson:"read" json:"read"`
	Edit   bool `bson:"edit" json:"edit"`
	Share  bool `bson:"share" json:"share"`
	Delete bool `bson:"delete" json:"delete"`
}

// PermissionPatch is a partial update of a PermissionSet. Nil fields keep
// their current value.
type PermissionPatch struct {
	Read   *bool `json:"read,omitempty"`
	Edit   *bool `json:"edit,omitempty"`
	Share  *bool `json:"share,omitempty"`
	Delete *bool `json:"delete,omitempty"`
}

// DefaultPermissions returns the permissions a new grant gets when the
// caller supplies none: read only.
func DefaultPermissions() PermissionSet {
	return PermissionSet{Read: true}
}

// FullPermissions is what tenant ownership implies.
func FullPermissions() PermissionSet {
	return PermissionSet{Read: true, Edit: true, Share: true, Delete: true}
}

// Has reports whether the set contains the given permission.
func (p PermissionSet) Has(perm Permission) bool {
	switch perm {
	case PermissionRead:
		return p.Read
	case PermissionEdit:
		return p.Edit
	case PermissionShare:
		return p.Share
	case PermissionDelete:
		return p.Delete
	}
	return false
}

// HasAny reports whether the set contains at least one of the given
// permissions. An empty list never matches.
func (p PermissionSet) HasAny(perms []Permission) bool {
	for _, perm := range perms {
		if p.Has(perm) {
			return true
		}
	}
	return false
}

// Merge returns a new PermissionSet with the non-nil patch fields applied.
// The receiver is not modified.
func (p PermissionSet) Merge(patch PermissionPatch) PermissionSet {
	merged := p
	if patch.Read != nil {
		merged.Read = *patch.Read
	}
	if patch.Edit != nil {
		merged.Edit = *patch.Edit
	}
	if patch.Share != nil {
		merged.Share = *patch.Share
	}
	if patch.Delete != nil {
		merged.Delete = *patch.Delete
	}
	return merged
}

// ParsePermission validates a permission name coming from the API.
func ParsePermission(s string) (Permission, bool) {
	switch Permission(s) {
	case PermissionRead, PermissionEdit, PermissionShare, PermissionDelete:
		return Permission(s), true
	}
	return "", false
}

// ShareGrant is one sharing relationship: a resource granted to a user, a
// role or a whole tenant. The bson field names and the compound unique
// index below are a durable schema contract shared with other services.
type ShareGrant struct {
	ID               bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	ResourceType     ResourceType   `bson:"resource_type" json:"resourceType"`
	ResourceID       bson.ObjectID  `bson:"resource_id" json:"resourceId"`
	OwnerTenantID    bson.ObjectID  `bson:"owner_tenant_id,omitempty" json:"ownerTenantId,omitempty"`
	SharedBy         bson.ObjectID  `bson:"shared_by" json:"sharedBy"`
	SharedWithUser   *bson.ObjectID `bson:"shared_with_user,omitempty" json:"sharedWithUser,omitempty"`
	SharedWithRole   *bson.ObjectID `bson:"shared_with_role,omitempty" json:"sharedWithRole,omitempty"`
	SharedWithTenant *bson.ObjectID `bson:"shared_with_tenant,omitempty" json:"sharedWithTenant,omitempty"`
	Permissions      PermissionSet  `bson:"permissions" json:"permissions"`
	ExpiresAt        *time.Time     `bson:"expires_at,omitempty" json:"expiresAt,omitempty"`
	IsActive         bool           `bson:"is_active" json:"isActive"`
	Notes            string         `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt        time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time      `bson:"updated_at" json:"updatedAt"`
}

// Effective reports whether the grant currently conveys access: active and
// either never expiring or not yet expired.
func (g *ShareGrant) Effective(now time.Time) bool {
	if !g.IsActive {
		return false
	}
	if g.ExpiresAt == nil {
		return true
	}
	return g.ExpiresAt.After(now)
}

// HasTarget reports whether at least one of the three share targets is set.
func (g *ShareGrant) HasTarget() bool {
	return g.SharedWithUser != nil || g.SharedWithRole != nil || g.SharedWithTenant != nil
}

// GetShareIndexes returns the index models for the shares collection. The
// sparse unique compound index makes re-sharing with the same target an
// upsert instead of a duplicate row; grants with no target field set do
// not collide with each other.
func GetShareIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "resource_type", Value: 1},
				{Key: "resource_id", Value: 1},
				{Key: "shared_with_user", Value: 1},
				{Key: "shared_with_role", Value: 1},
				{Key: "shared_with_tenant", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{
				{Key: "shared_with_user", Value: 1},
				{Key: "is_active", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "shared_with_role", Value: 1},
				{Key: "is_active", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "shared_with_tenant", Value: 1},
				{Key: "is_active", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "shared_by", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "expires_at", Value: 1},
			},
		},
	}
}
