package repository

import (
	"context"
	"fmt"
	"log"

	"sharing-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ProfileRepository reads the users, roles and tenants collections to
// expand share targets into display profiles. All three collections are
// owned by other services; this repository is read-only. Profile documents
// are cached briefly in Redis; grants themselves are never cached.
type ProfileRepository struct {
	users   *mongo.Collection
	roles   *mongo.Collection
	tenants *mongo.Collection
	cache   *RedisRepo
}

func NewProfileRepository(db *mongo.Database, cache *RedisRepo) *ProfileRepository {
	return &ProfileRepository{
		users:   db.Collection("users"),
		roles:   db.Collection("roles"),
		tenants: db.Collection("tenants"),
		cache:   cache,
	}
}

// FindUsersByIDs batch-fetches user profiles, returned keyed by ID.
// Missing users are simply absent from the map.
func (r *ProfileRepository) FindUsersByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.UserProfile, error) {
	result := make(map[bson.ObjectID]*models.UserProfile)
	if len(ids) == 0 {
		return result, nil
	}

	missing := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		var cached models.UserProfile
		if r.cache != nil && r.cache.GetStructCached(ctx, userProfileCacheKey(id), &cached) == nil {
			result[id] = &cached
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": missing}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []*models.UserProfile
	if err = cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode user profiles: %w", err)
	}

	for _, p := range profiles {
		result[p.ID] = p
		if r.cache != nil {
			if _, err := r.cache.SaveStructCached(ctx, userProfileCacheKey(p.ID), p); err != nil {
				log.Printf("Warning: failed to cache user profile %s: %v", p.ID.Hex(), err)
			}
		}
	}
	return result, nil
}

// FindRolesByIDs batch-fetches role profiles keyed by ID.
func (r *ProfileRepository) FindRolesByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.RoleProfile, error) {
	result := make(map[bson.ObjectID]*models.RoleProfile)
	if len(ids) == 0 {
		return result, nil
	}

	cursor, err := r.roles.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []*models.RoleProfile
	if err = cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode role profiles: %w", err)
	}

	for _, p := range profiles {
		result[p.ID] = p
	}
	return result, nil
}

// FindTenantsByIDs batch-fetches tenant profiles keyed by ID.
func (r *ProfileRepository) FindTenantsByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.TenantProfile, error) {
	result := make(map[bson.ObjectID]*models.TenantProfile)
	if len(ids) == 0 {
		return result, nil
	}

	cursor, err := r.tenants.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tenant profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []*models.TenantProfile
	if err = cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode tenant profiles: %w", err)
	}

	for _, p := range profiles {
		result[p.ID] = p
	}
	return result, nil
}

func userProfileCacheKey(id bson.ObjectID) string {
	return "user-profile:" + id.Hex()
}
