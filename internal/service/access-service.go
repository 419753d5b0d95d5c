package service

import (
	"context"
	"fmt"
	"log"
	"maps"

	"sharing-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ShareStore is the slice of the share repository the services need.
type ShareStore interface {
	Upsert(ctx context.Context, grant *models.ShareGrant) (*models.ShareGrant, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.ShareGrant, error)
	FindEffective(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID, actor models.Actor, perms []models.Permission) (*models.ShareGrant, error)
	FindForActor(ctx context.Context, resourceType models.ResourceType, actor models.Actor, perms []models.Permission, page, limit int) ([]*models.ShareGrant, error)
	FindBySharer(ctx context.Context, resourceType models.ResourceType, sharerID bson.ObjectID, perms []models.Permission, page, limit int) ([]*models.ShareGrant, error)
	FindByResource(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID, userTargetedOnly, includeExpired, includeInactive bool) ([]*models.ShareGrant, error)
	SetActive(ctx context.Context, id bson.ObjectID, active bool) (int64, error)
	UpdatePermissions(ctx context.Context, id bson.ObjectID, perms models.PermissionSet) (*models.ShareGrant, error)
}

// ResourceStore reads the shareable resource collections.
type ResourceStore interface {
	FindOwned(ctx context.Context, resourceType models.ResourceType, id, tenantID bson.ObjectID, populateFields []string) (bson.M, error)
	FindActive(ctx context.Context, resourceType models.ResourceType, id bson.ObjectID, populateFields []string) (bson.M, error)
	ListOwned(ctx context.Context, resourceType models.ResourceType, tenantID bson.ObjectID, page, limit int, populateFields []string) ([]bson.M, error)
	FindActiveByIDs(ctx context.Context, resourceType models.ResourceType, ids []bson.ObjectID, populateFields []string) ([]bson.M, error)
}

// AccessService answers the two questions route handlers ask before
// touching a resource: may this actor do X, and which resources can this
// actor see. It only reads; the ShareService is the writer.
type AccessService struct {
	shares    ShareStore
	resources ResourceStore
}

func NewAccessService(shares ShareStore, resources ResourceStore) *AccessService {
	return &AccessService{
		shares:    shares,
		resources: resources,
	}
}

// ListOptions controls GetAccessibleResources and
// GetResourcesSharedWithOthers.
type ListOptions struct {
	Page           int
	Limit          int
	IncludeOwned   bool
	IncludeShared  bool
	Permissions    []models.Permission
	PopulateFields []string
}

// DefaultListOptions: first page of ten, both halves, read access.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Page:          1,
		Limit:         10,
		IncludeOwned:  true,
		IncludeShared: true,
		Permissions:   []models.Permission{models.PermissionRead},
	}
}

func (o ListOptions) normalized() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if len(o.Permissions) == 0 {
		o.Permissions = []models.Permission{models.PermissionRead}
	}
	return o
}

// HasAccess reports whether the actor may exercise at least one of the
// required permissions on the resource. Tenant ownership grants everything
// without consulting the required permissions; only the shared path is
// permission-filtered.
func (s *AccessService) HasAccess(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID, actor models.Actor, required []models.Permission) (bool, error) {
	owned, err := s.resources.FindOwned(ctx, resourceType, resourceID, actor.TenantID, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check resource ownership: %w", err)
	}
	if owned != nil {
		return true, nil
	}

	grant, err := s.shares.FindEffective(ctx, resourceType, resourceID, actor, required)
	if err != nil {
		return false, fmt.Errorf("failed to check share grants: %w", err)
	}
	return grant != nil, nil
}

// GetAccessibleResources returns the actor's owned and shared resources of
// one type, each annotated with accessType and effective permissions.
// Pagination applies to each half independently before concatenation; a
// full page can therefore hold up to 2*limit documents. Callers depend on
// this, so it stays.
func (s *AccessService) GetAccessibleResources(ctx context.Context, resourceType models.ResourceType, actor models.Actor, opts ListOptions) ([]bson.M, error) {
	opts = opts.normalized()

	results := []bson.M{}

	if opts.IncludeOwned {
		owned, err := s.resources.ListOwned(ctx, resourceType, actor.TenantID, opts.Page, opts.Limit, opts.PopulateFields)
		if err != nil {
			return nil, fmt.Errorf("failed to list owned resources: %w", err)
		}
		for _, doc := range owned {
			results = append(results, annotateOwned(doc))
		}
	}

	if opts.IncludeShared {
		grants, err := s.shares.FindForActor(ctx, resourceType, actor, opts.Permissions, opts.Page, opts.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list share grants: %w", err)
		}

		shared, err := s.resolveGrants(ctx, resourceType, grants, opts.PopulateFields)
		if err != nil {
			return nil, err
		}
		results = append(results, shared...)
	}

	return results, nil
}

// GetAccessibleResourceById returns one annotated resource, or nil when the
// resource does not exist OR the actor may not see it. The two cases are
// indistinguishable on purpose: a denied caller must not learn that a
// tenant-private resource exists. An empty required list means read access.
func (s *AccessService) GetAccessibleResourceById(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID, actor models.Actor, required []models.Permission, populateFields []string) (bson.M, error) {
	if len(required) == 0 {
		required = []models.Permission{models.PermissionRead}
	}

	owned, err := s.resources.FindOwned(ctx, resourceType, resourceID, actor.TenantID, populateFields)
	if err != nil {
		return nil, fmt.Errorf("failed to check resource ownership: %w", err)
	}
	if owned != nil {
		return annotateOwned(owned), nil
	}

	grant, err := s.shares.FindEffective(ctx, resourceType, resourceID, actor, required)
	if err != nil {
		return nil, fmt.Errorf("failed to check share grants: %w", err)
	}
	if grant == nil {
		return nil, nil
	}

	doc, err := s.resources.FindActive(ctx, resourceType, resourceID, populateFields)
	if err != nil {
		return nil, fmt.Errorf("failed to load shared resource: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	return annotateShared(doc, grant), nil
}

// GetResourcesSharedWithOthers is the inverse view: resources the actor
// themself has shared out, one row per grant.
func (s *AccessService) GetResourcesSharedWithOthers(ctx context.Context, resourceType models.ResourceType, actorID bson.ObjectID, opts ListOptions) ([]bson.M, error) {
	opts = opts.normalized()

	results := []bson.M{}

	grants, err := s.shares.FindBySharer(ctx, resourceType, actorID, opts.Permissions, opts.Page, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants shared by actor: %w", err)
	}
	if len(grants) == 0 {
		return results, nil
	}

	ids := make([]bson.ObjectID, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.ResourceID)
	}

	docs, err := s.resources.FindActiveByIDs(ctx, resourceType, ids, opts.PopulateFields)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shared resources: %w", err)
	}

	byID := make(map[bson.ObjectID]bson.M, len(docs))
	for _, doc := range docs {
		if id, ok := doc["_id"].(bson.ObjectID); ok {
			byID[id] = doc
		}
	}

	for _, g := range grants {
		doc, ok := byID[g.ResourceID]
		if !ok {
			// Grant outlived its resource; skip the dangling reference.
			log.Printf("Skipping dangling share grant %s for %s %s", g.ID.Hex(), g.ResourceType, g.ResourceID.Hex())
			continue
		}

		annotated := maps.Clone(doc)
		annotated["id"] = annotated["_id"]
		annotated["accessType"] = models.AccessTypeSharedByMe
		annotated["permissions"] = g.Permissions
		annotated["shareId"] = g.ID
		annotated["sharedWith"] = sharedWithDescriptor(g)
		results = append(results, annotated)
	}

	return results, nil
}

// resolveGrants turns a list of grants into annotated resource documents,
// dropping grants whose resource no longer exists.
func (s *AccessService) resolveGrants(ctx context.Context, resourceType models.ResourceType, grants []*models.ShareGrant, populateFields []string) ([]bson.M, error) {
	if len(grants) == 0 {
		return nil, nil
	}

	ids := make([]bson.ObjectID, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.ResourceID)
	}

	docs, err := s.resources.FindActiveByIDs(ctx, resourceType, ids, populateFields)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shared resources: %w", err)
	}

	byID := make(map[bson.ObjectID]bson.M, len(docs))
	for _, doc := range docs {
		if id, ok := doc["_id"].(bson.ObjectID); ok {
			byID[id] = doc
		}
	}

	var results []bson.M
	for _, g := range grants {
		doc, ok := byID[g.ResourceID]
		if !ok {
			continue
		}
		results = append(results, annotateShared(maps.Clone(doc), g))
	}
	return results, nil
}

func annotateOwned(doc bson.M) bson.M {
	doc["id"] = doc["_id"]
	doc["accessType"] = models.AccessTypeOwner
	doc["permissions"] = models.FullPermissions()
	return doc
}

func annotateShared(doc bson.M, grant *models.ShareGrant) bson.M {
	doc["id"] = doc["_id"]
	doc["accessType"] = models.AccessTypeShared
	doc["permissions"] = grant.Permissions
	doc["sharedBy"] = grant.SharedBy
	doc["shareId"] = grant.ID
	return doc
}

func sharedWithDescriptor(grant *models.ShareGrant) bson.M {
	target := bson.M{}
	if grant.SharedWithUser != nil {
		target["user"] = *grant.SharedWithUser
	}
	if grant.SharedWithRole != nil {
		target["role"] = *grant.SharedWithRole
	}
	if grant.SharedWithTenant != nil {
		target["tenant"] = *grant.SharedWithTenant
	}
	return target
}
