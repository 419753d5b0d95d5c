package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserProfile is the read-only view of a user this service exposes when
// listing who a resource is shared with. The users collection is owned by
// the profile service; everything else in the document is ignored.
type UserProfile struct {
	ID         bson.ObjectID `bson:"_id" json:"id"`
	Name       string        `bson:"name" json:"name"`
	Email      string        `bson:"email" json:"email"`
	Phone      string        `bson:"phone,omitempty" json:"phone,omitempty"`
	Role       string        `bson:"role,omitempty" json:"role,omitempty"`
	TenantID   bson.ObjectID `bson:"tenant_id,omitempty" json:"tenantId,omitempty"`
	Department string        `bson:"department,omitempty" json:"department,omitempty"`
}

// RoleProfile is the read-only view of a role.
type RoleProfile struct {
	ID          bson.ObjectID `bson:"_id" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description,omitempty" json:"description,omitempty"`
}

// TenantProfile is the read-only view of a tenant.
type TenantProfile struct {
	ID     bson.ObjectID `bson:"_id" json:"id"`
	Name   string        `bson:"name" json:"name"`
	Domain string        `bson:"domain,omitempty" json:"domain,omitempty"`
}

// SharedUser couples a user-targeted grant with the target's profile, for
// the share-management UI.
type SharedUser struct {
	ShareID     bson.ObjectID `json:"shareId"`
	User        *UserProfile  `json:"user"`
	Permissions PermissionSet `json:"permissions"`
	SharedBy    bson.ObjectID `json:"sharedBy"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
	IsActive    bool          `json:"isActive"`
	Notes       string        `json:"notes,omitempty"`
}

// SharedRole and SharedTenant are the role/tenant analogues of SharedUser.
type SharedRole struct {
	ShareID     bson.ObjectID `json:"shareId"`
	Role        *RoleProfile  `json:"role"`
	Permissions PermissionSet `json:"permissions"`
	SharedBy    bson.ObjectID `json:"sharedBy"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
	IsActive    bool          `json:"isActive"`
	Notes       string        `json:"notes,omitempty"`
}

type SharedTenant struct {
	ShareID     bson.ObjectID  `json:"shareId"`
	Tenant      *TenantProfile `json:"tenant"`
	Permissions PermissionSet  `json:"permissions"`
	SharedBy    bson.ObjectID  `json:"sharedBy"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty"`
	IsActive    bool           `json:"isActive"`
	Notes       string         `json:"notes,omitempty"`
}

// SharedEntities partitions every grant on a resource by target kind.
type SharedEntities struct {
	Users   []SharedUser   `json:"users"`
	Roles   []SharedRole   `json:"roles"`
	Tenants []SharedTenant `json:"tenants"`
}
