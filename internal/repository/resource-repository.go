package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sharing-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// populateTargets maps reference field names to the collection they point
// at. Fields not listed here are ignored when a caller asks to populate
// them.
var populateTargets = map[string]string{
	"created_by":     "users",
	"tenant_id":      "tenants",
	"project_id":     "projects",
	"moodboard_id":   "moodboards",
	"size_chart_id":  "size_charts",
	"cover_image_id": "gallery_images",
}

// ResourceRepository reads the resource collections this service can share
// (projects, moodboards, size charts, gallery images). Every shareable type
// has an explicit collection binding; nothing is resolved by name at
// runtime. The repository never writes to these collections; the owning
// services do.
type ResourceRepository struct {
	collections map[models.ResourceType]*mongo.Collection
}

func NewResourceRepository(db *mongo.Database) *ResourceRepository {
	collections := make(map[models.ResourceType]*mongo.Collection)
	for _, rt := range models.AllResourceTypes() {
		collections[rt] = db.Collection(rt.CollectionName())
	}
	return &ResourceRepository{
		collections: collections,
	}
}

func (r *ResourceRepository) collectionFor(resourceType models.ResourceType) (*mongo.Collection, error) {
	coll, ok := r.collections[resourceType]
	if !ok {
		return nil, fmt.Errorf("no collection bound for resource type %q", resourceType)
	}
	return coll, nil
}

// FindOwned returns the resource only when it belongs to the given tenant
// and is not soft-deleted; nil otherwise.
func (r *ResourceRepository) FindOwned(ctx context.Context, resourceType models.ResourceType, id, tenantID bson.ObjectID, populateFields []string) (bson.M, error) {
	filter := bson.M{
		"_id":        id,
		"tenant_id":  tenantID,
		"is_deleted": bson.M{"$ne": true},
	}
	return r.findOne(ctx, resourceType, filter, populateFields)
}

// FindActive returns the resource regardless of owning tenant, excluding
// soft-deleted documents; nil when absent.
func (r *ResourceRepository) FindActive(ctx context.Context, resourceType models.ResourceType, id bson.ObjectID, populateFields []string) (bson.M, error) {
	filter := bson.M{
		"_id":        id,
		"is_deleted": bson.M{"$ne": true},
	}
	return r.findOne(ctx, resourceType, filter, populateFields)
}

// ListOwned returns a page of the tenant's resources, newest first.
func (r *ResourceRepository) ListOwned(ctx context.Context, resourceType models.ResourceType, tenantID bson.ObjectID, page, limit int, populateFields []string) ([]bson.M, error) {
	filter := bson.M{
		"tenant_id":  tenantID,
		"is_deleted": bson.M{"$ne": true},
	}
	return r.findMany(ctx, resourceType, filter, page, limit, populateFields)
}

// FindActiveByIDs resolves share-grant resource references into documents,
// dropping soft-deleted and dangling IDs.
func (r *ResourceRepository) FindActiveByIDs(ctx context.Context, resourceType models.ResourceType, ids []bson.ObjectID, populateFields []string) ([]bson.M, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"_id":        bson.M{"$in": ids},
		"is_deleted": bson.M{"$ne": true},
	}
	return r.findMany(ctx, resourceType, filter, 0, 0, populateFields)
}

func (r *ResourceRepository) findOne(ctx context.Context, resourceType models.ResourceType, filter bson.M, populateFields []string) (bson.M, error) {
	coll, err := r.collectionFor(resourceType)
	if err != nil {
		return nil, err
	}

	if len(populateFields) > 0 {
		docs, err := r.aggregate(ctx, coll, filter, 0, 1, populateFields)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, nil
		}
		return docs[0], nil
	}

	var doc bson.M
	err = coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", resourceType, err)
	}
	return doc, nil
}

func (r *ResourceRepository) findMany(ctx context.Context, resourceType models.ResourceType, filter bson.M, page, limit int, populateFields []string) ([]bson.M, error) {
	coll, err := r.collectionFor(resourceType)
	if err != nil {
		return nil, err
	}

	if len(populateFields) > 0 {
		skip := 0
		if limit > 0 && page > 1 {
			skip = (page - 1) * limit
		}
		return r.aggregate(ctx, coll, filter, skip, limit, populateFields)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
		if page > 1 {
			findOpts.SetSkip(int64((page - 1) * limit))
		}
	}

	cursor, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", resourceType, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s documents: %w", resourceType, err)
	}
	return docs, nil
}

// aggregate runs the find as a pipeline with one $lookup + $unwind per
// populated field, replacing the reference ID with the referenced document.
func (r *ResourceRepository) aggregate(ctx context.Context, coll *mongo.Collection, filter bson.M, skip, limit int, populateFields []string) ([]bson.M, error) {
	pipeline := []bson.M{
		{"$match": filter},
		{"$sort": bson.M{"created_at": -1}},
	}
	if skip > 0 {
		pipeline = append(pipeline, bson.M{"$skip": skip})
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.M{"$limit": limit})
	}

	for _, field := range populateFields {
		from, ok := populateTargets[field]
		if !ok {
			log.Printf("Skipping unknown populate field: %s", field)
			continue
		}
		pipeline = append(pipeline,
			bson.M{"$lookup": bson.M{
				"from":         from,
				"localField":   field,
				"foreignField": "_id",
				"as":           field,
			}},
			bson.M{"$unwind": bson.M{
				"path":                       "$" + field,
				"preserveNullAndEmptyArrays": true,
			}},
		)
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate resources: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode aggregated resources: %w", err)
	}
	return docs, nil
}
