package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"sharing-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ProfileStore expands share targets into display profiles.
type ProfileStore interface {
	FindUsersByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.UserProfile, error)
	FindRolesByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.RoleProfile, error)
	FindTenantsByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.TenantProfile, error)
}

// EventPublisher emits share lifecycle events. Publishing failures never
// fail the business operation.
type EventPublisher interface {
	PublishShareEvent(ctx context.Context, eventType string, grant *models.ShareGrant) error
}

// Share lifecycle event routing keys.
const (
	EventShareCreated            = "share.created"
	EventShareUpdated            = "share.updated"
	EventShareRevoked            = "share.revoked"
	EventSharePermissionsUpdated = "share.permissions_updated"
)

// ShareService is the only writer of share grants: it creates, updates and
// revokes them, and backs the share-management views.
type ShareService struct {
	shares    ShareStore
	resources ResourceStore
	profiles  ProfileStore
	publisher EventPublisher
}

func NewShareService(shares ShareStore, resources ResourceStore, profiles ProfileStore, publisher EventPublisher) *ShareService {
	return &ShareService{
		shares:    shares,
		resources: resources,
		profiles:  profiles,
		publisher: publisher,
	}
}

// ShareRequest describes a grant to create or refresh. Exactly one of the
// three target fields should be set; the route layer validates that.
type ShareRequest struct {
	ResourceType     models.ResourceType
	ResourceID       bson.ObjectID
	SharedBy         bson.ObjectID
	SharedWithUser   *bson.ObjectID
	SharedWithRole   *bson.ObjectID
	SharedWithTenant *bson.ObjectID
	Permissions      *models.PermissionSet
	ExpiresAt        *time.Time
	Notes            string
}

// IntrospectOptions widens the share-management views to revoked or
// expired grants when audit UIs ask for them.
type IntrospectOptions struct {
	IncludeExpired  bool
	IncludeInactive bool
}

// ShareResource validates that the resource exists, then upserts a grant
// keyed on resource + target. Re-sharing with the same target refreshes
// the existing grant in place.
func (s *ShareService) ShareResource(ctx context.Context, req ShareRequest) (*models.ShareGrant, error) {
	if req.SharedWithUser == nil && req.SharedWithRole == nil && req.SharedWithTenant == nil {
		return nil, ErrShareTargetRequired
	}

	resource, err := s.resources.FindActive(ctx, req.ResourceType, req.ResourceID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load resource for sharing: %w", err)
	}
	if resource == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrResourceNotFound, req.ResourceType, req.ResourceID.Hex())
	}

	permissions := models.DefaultPermissions()
	if req.Permissions != nil {
		permissions = *req.Permissions
	}

	grant := &models.ShareGrant{
		ResourceType:     req.ResourceType,
		ResourceID:       req.ResourceID,
		SharedBy:         req.SharedBy,
		SharedWithUser:   req.SharedWithUser,
		SharedWithRole:   req.SharedWithRole,
		SharedWithTenant: req.SharedWithTenant,
		Permissions:      permissions,
		ExpiresAt:        req.ExpiresAt,
		Notes:            req.Notes,
	}

	if tenantID, ok := resource["tenant_id"].(bson.ObjectID); ok {
		grant.OwnerTenantID = tenantID
	}

	saved, err := s.shares.Upsert(ctx, grant)
	if err != nil {
		return nil, err
	}

	eventType := EventShareUpdated
	if saved.CreatedAt.Equal(saved.UpdatedAt) {
		eventType = EventShareCreated
	}
	s.publish(ctx, eventType, saved)

	return saved, nil
}

// GetShare returns a grant by ID, or nil when none exists.
func (s *ShareService) GetShare(ctx context.Context, shareID bson.ObjectID) (*models.ShareGrant, error) {
	return s.shares.FindByID(ctx, shareID)
}

// RevokeShare soft-deletes a grant. The record stays behind for audit; the
// actor's access disappears on the next evaluation.
func (s *ShareService) RevokeShare(ctx context.Context, shareID, actorID bson.ObjectID) error {
	grant, err := s.shares.FindByID(ctx, shareID)
	if err != nil {
		return err
	}
	if grant == nil {
		return fmt.Errorf("%w: %s", ErrShareNotFound, shareID.Hex())
	}

	if _, err := s.shares.SetActive(ctx, shareID, false); err != nil {
		return err
	}

	log.Printf("Share %s revoked by %s", shareID.Hex(), actorID.Hex())

	grant.IsActive = false
	s.publish(ctx, EventShareRevoked, grant)
	return nil
}

// UpdateSharePermissions merges the patch into the grant's permission set.
// Flags absent from the patch keep their prior value; the merge builds a
// new set rather than mutating the stored one.
func (s *ShareService) UpdateSharePermissions(ctx context.Context, shareID bson.ObjectID, patch models.PermissionPatch, actorID bson.ObjectID) (*models.ShareGrant, error) {
	grant, err := s.shares.FindByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, fmt.Errorf("%w: %s", ErrShareNotFound, shareID.Hex())
	}

	merged := grant.Permissions.Merge(patch)

	updated, err := s.shares.UpdatePermissions(ctx, shareID, merged)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: %s", ErrShareNotFound, shareID.Hex())
	}

	log.Printf("Share %s permissions updated by %s", shareID.Hex(), actorID.Hex())

	s.publish(ctx, EventSharePermissionsUpdated, updated)
	return updated, nil
}

// GetSharedUsers lists the user-targeted grants on a resource, expanded
// with the users' profiles.
func (s *ShareService) GetSharedUsers(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID, opts IntrospectOptions) ([]models.SharedUser, error) {
	grants, err := s.shares.FindByResource(ctx, resourceType, resourceID, true, opts.IncludeExpired, opts.IncludeInactive)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, nil
	}

	ids := make([]bson.ObjectID, 0, len(grants))
	for _, g := range grants {
		if g.SharedWithUser != nil {
			ids = append(ids, *g.SharedWithUser)
		}
	}

	profiles, err := s.profiles.FindUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	users := make([]models.SharedUser, 0, len(grants))
	for _, g := range grants {
		if g.SharedWithUser == nil {
			continue
		}
		users = append(users, models.SharedUser{
			ShareID:     g.ID,
			User:        profiles[*g.SharedWithUser],
			Permissions: g.Permissions,
			SharedBy:    g.SharedBy,
			ExpiresAt:   g.ExpiresAt,
			IsActive:    g.IsActive,
			Notes:       g.Notes,
		})
	}
	return users, nil
}

// GetAllSharedEntities partitions every grant on a resource into user,
// role and tenant buckets, each expanded with the target's profile.
func (s *ShareService) GetAllSharedEntities(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID, opts IntrospectOptions) (*models.SharedEntities, error) {
	grants, err := s.shares.FindByResource(ctx, resourceType, resourceID, false, opts.IncludeExpired, opts.IncludeInactive)
	if err != nil {
		return nil, err
	}

	entities := &models.SharedEntities{
		Users:   []models.SharedUser{},
		Roles:   []models.SharedRole{},
		Tenants: []models.SharedTenant{},
	}

	var userIDs, roleIDs, tenantIDs []bson.ObjectID
	for _, g := range grants {
		switch {
		case g.SharedWithUser != nil:
			userIDs = append(userIDs, *g.SharedWithUser)
		case g.SharedWithRole != nil:
			roleIDs = append(roleIDs, *g.SharedWithRole)
		case g.SharedWithTenant != nil:
			tenantIDs = append(tenantIDs, *g.SharedWithTenant)
		}
	}

	userProfiles, err := s.profiles.FindUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	roleProfiles, err := s.profiles.FindRolesByIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	tenantProfiles, err := s.profiles.FindTenantsByIDs(ctx, tenantIDs)
	if err != nil {
		return nil, err
	}

	for _, g := range grants {
		switch {
		case g.SharedWithUser != nil:
			entities.Users = append(entities.Users, models.SharedUser{
				ShareID:     g.ID,
				User:        userProfiles[*g.SharedWithUser],
				Permissions: g.Permissions,
				SharedBy:    g.SharedBy,
				ExpiresAt:   g.ExpiresAt,
				IsActive:    g.IsActive,
				Notes:       g.Notes,
			})
		case g.SharedWithRole != nil:
			entities.Roles = append(entities.Roles, models.SharedRole{
				ShareID:     g.ID,
				Role:        roleProfiles[*g.SharedWithRole],
				Permissions: g.Permissions,
				SharedBy:    g.SharedBy,
				ExpiresAt:   g.ExpiresAt,
				IsActive:    g.IsActive,
				Notes:       g.Notes,
			})
		case g.SharedWithTenant != nil:
			entities.Tenants = append(entities.Tenants, models.SharedTenant{
				ShareID:     g.ID,
				Tenant:      tenantProfiles[*g.SharedWithTenant],
				Permissions: g.Permissions,
				SharedBy:    g.SharedBy,
				ExpiresAt:   g.ExpiresAt,
				IsActive:    g.IsActive,
				Notes:       g.Notes,
			})
		}
	}

	return entities, nil
}

func (s *ShareService) publish(ctx context.Context, eventType string, grant *models.ShareGrant) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishShareEvent(ctx, eventType, grant); err != nil {
		log.Printf("Warning: failed to publish %s event for share %s: %v", eventType, grant.ID.Hex(), err)
	}
}
