package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sharing-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ShareRepository owns the shares collection. It is the only writer of
// share grants; the access paths only read from it.
type ShareRepository struct {
	collection *mongo.Collection
}

func NewShareRepository(db *mongo.Database) *ShareRepository {
	return &ShareRepository{
		collection: db.Collection("shares"),
	}
}

// InitializeIndexes creates the shares indexes, including the sparse unique
// compound index that backs upsert-on-reshare semantics.
func (r *ShareRepository) InitializeIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, models.GetShareIndexes())
	if err != nil {
		return fmt.Errorf("failed to create share indexes: %w", err)
	}
	return nil
}

// effectiveClause matches grants that are active and not expired at now.
// expires_at may be absent or null for never-expiring grants.
func effectiveClause(now time.Time) bson.M {
	return bson.M{"$or": []bson.M{
		{"expires_at": bson.M{"$exists": false}},
		{"expires_at": nil},
		{"expires_at": bson.M{"$gt": now}},
	}}
}

// targetClause matches grants addressed to the actor directly, to the
// actor's tenant, or to any role the actor holds.
func targetClause(actor models.Actor) bson.M {
	or := []bson.M{
		{"shared_with_user": actor.UserID},
		{"shared_with_tenant": actor.TenantID},
	}
	if len(actor.Roles) > 0 {
		or = append(or, bson.M{"shared_with_role": bson.M{"$in": actor.Roles}})
	}
	return bson.M{"$or": or}
}

// permissionClause matches grants carrying at least one of the given
// permissions (OR semantics).
func permissionClause(perms []models.Permission) bson.M {
	or := make([]bson.M, 0, len(perms))
	for _, p := range perms {
		or = append(or, bson.M{"permissions." + string(p): true})
	}
	return bson.M{"$or": or}
}

// Upsert creates the grant, or updates the existing one keyed on
// (resource_type, resource_id, shared_with_user, shared_with_role,
// shared_with_tenant). Re-sharing with the same target reactivates and
// overwrites the prior grant instead of duplicating it.
func (r *ShareRepository) Upsert(ctx context.Context, grant *models.ShareGrant) (*models.ShareGrant, error) {
	now := time.Now()

	filter := bson.M{
		"resource_type":      grant.ResourceType,
		"resource_id":        grant.ResourceID,
		"shared_with_user":   grant.SharedWithUser,
		"shared_with_role":   grant.SharedWithRole,
		"shared_with_tenant": grant.SharedWithTenant,
	}

	update := bson.M{
		"$set": bson.M{
			"owner_tenant_id": grant.OwnerTenantID,
			"shared_by":       grant.SharedBy,
			"permissions":     grant.Permissions,
			"expires_at":      grant.ExpiresAt,
			"is_active":       true,
			"notes":           grant.Notes,
			"updated_at":      now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var saved models.ShareGrant
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert share grant: %w", err)
	}

	return &saved, nil
}

// FindByID returns the grant or nil when no document matches.
func (r *ShareRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.ShareGrant, error) {
	var grant models.ShareGrant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&grant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get share grant by ID: %w", err)
	}
	return &grant, nil
}

// FindEffective returns one effective grant for the exact resource that
// targets the actor and carries at least one of the required permissions,
// or nil when none exists.
func (r *ShareRepository) FindEffective(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID, actor models.Actor, perms []models.Permission) (*models.ShareGrant, error) {
	if len(perms) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"resource_type": resourceType,
		"resource_id":   resourceID,
		"is_active":     true,
		"$and": []bson.M{
			effectiveClause(time.Now()),
			targetClause(actor),
			permissionClause(perms),
		},
	}

	var grant models.ShareGrant
	err := r.collection.FindOne(ctx, filter).Decode(&grant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query effective share grant: %w", err)
	}
	return &grant, nil
}

// FindForActor returns the effective grants of one resource type addressed
// to the actor, carrying any of the given permissions, paginated.
func (r *ShareRepository) FindForActor(ctx context.Context, resourceType models.ResourceType, actor models.Actor, perms []models.Permission, page, limit int) ([]*models.ShareGrant, error) {
	if len(perms) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"resource_type": resourceType,
		"is_active":     true,
		"$and": []bson.M{
			effectiveClause(time.Now()),
			targetClause(actor),
			permissionClause(perms),
		},
	}

	return r.findPage(ctx, filter, page, limit)
}

// FindBySharer returns the effective grants one actor has handed out for a
// resource type, paginated. Grants with no target set are skipped.
func (r *ShareRepository) FindBySharer(ctx context.Context, resourceType models.ResourceType, sharerID bson.ObjectID, perms []models.Permission, page, limit int) ([]*models.ShareGrant, error) {
	if len(perms) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"resource_type": resourceType,
		"shared_by":     sharerID,
		"is_active":     true,
		"$and": []bson.M{
			effectiveClause(time.Now()),
			{"$or": []bson.M{
				{"shared_with_user": bson.M{"$ne": nil}},
				{"shared_with_role": bson.M{"$ne": nil}},
				{"shared_with_tenant": bson.M{"$ne": nil}},
			}},
			permissionClause(perms),
		},
	}

	return r.findPage(ctx, filter, page, limit)
}

// FindByResource returns every grant on one resource, optionally keeping
// expired or revoked ones for audit views. userTargetedOnly restricts to
// grants addressed to individual users.
func (r *ShareRepository) FindByResource(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID, userTargetedOnly, includeExpired, includeInactive bool) ([]*models.ShareGrant, error) {
	filter := bson.M{
		"resource_type": resourceType,
		"resource_id":   resourceID,
	}
	if userTargetedOnly {
		filter["shared_with_user"] = bson.M{"$ne": nil}
	}
	if !includeInactive {
		filter["is_active"] = true
	}
	if !includeExpired {
		filter["$and"] = []bson.M{effectiveClause(time.Now())}
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list share grants for resource: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []*models.ShareGrant
	if err = cursor.All(ctx, &grants); err != nil {
		return nil, fmt.Errorf("failed to decode share grants: %w", err)
	}
	return grants, nil
}

// SetActive flips the soft-revocation flag. Returns mongo's matched count
// so callers can distinguish a missing grant.
func (r *ShareRepository) SetActive(ctx context.Context, id bson.ObjectID, active bool) (int64, error) {
	update := bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return 0, fmt.Errorf("failed to update share grant active flag: %w", err)
	}
	return result.MatchedCount, nil
}

// UpdatePermissions overwrites the permission set of one grant.
func (r *ShareRepository) UpdatePermissions(ctx context.Context, id bson.ObjectID, perms models.PermissionSet) (*models.ShareGrant, error) {
	update := bson.M{"$set": bson.M{
		"permissions": perms,
		"updated_at":  time.Now(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var grant models.ShareGrant
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&grant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update share grant permissions: %w", err)
	}
	return &grant, nil
}

// DeactivateByResource revokes every grant on a resource. Used when the
// owning service reports the resource deleted.
func (r *ShareRepository) DeactivateByResource(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID) (int64, error) {
	filter := bson.M{
		"resource_type": resourceType,
		"resource_id":   resourceID,
		"is_active":     true,
	}
	update := bson.M{"$set": bson.M{
		"is_active":  false,
		"updated_at": time.Now(),
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate share grants: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *ShareRepository) findPage(ctx context.Context, filter bson.M, page, limit int) ([]*models.ShareGrant, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
		if page > 1 {
			findOpts.SetSkip(int64((page - 1) * limit))
		}
	}

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list share grants: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []*models.ShareGrant
	if err = cursor.All(ctx, &grants); err != nil {
		return nil, fmt.Errorf("failed to decode share grants: %w", err)
	}
	return grants, nil
}
