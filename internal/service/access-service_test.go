package service

import (
	"context"
	"slices"
	"time"

	"testing"

	"sharing-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// fakeShareStore keeps grants in memory and mirrors the repository's
// matching rules so the services can be tested without MongoDB.
type fakeShareStore struct {
	grants []*models.ShareGrant
}

func (f *fakeShareStore) matchesActor(g *models.ShareGrant, actor models.Actor) bool {
	if g.SharedWithUser != nil && *g.SharedWithUser == actor.UserID {
		return true
	}
	if g.SharedWithRole != nil && slices.Contains(actor.Roles, *g.SharedWithRole) {
		return true
	}
	if g.SharedWithTenant != nil && *g.SharedWithTenant == actor.TenantID {
		return true
	}
	return false
}

func (f *fakeShareStore) Upsert(ctx context.Context, grant *models.ShareGrant) (*models.ShareGrant, error) {
	now := time.Now()
	for _, g := range f.grants {
		if g.ResourceType != grant.ResourceType || g.ResourceID != grant.ResourceID {
			continue
		}
		if !objectIDPtrEqual(g.SharedWithUser, grant.SharedWithUser) ||
			!objectIDPtrEqual(g.SharedWithRole, grant.SharedWithRole) ||
			!objectIDPtrEqual(g.SharedWithTenant, grant.SharedWithTenant) {
			continue
		}
		g.Permissions = grant.Permissions
		g.ExpiresAt = grant.ExpiresAt
		g.Notes = grant.Notes
		g.SharedBy = grant.SharedBy
		g.IsActive = true
		g.UpdatedAt = now
		copied := *g
		return &copied, nil
	}

	stored := *grant
	stored.ID = bson.NewObjectID()
	stored.IsActive = true
	stored.CreatedAt = now
	stored.UpdatedAt = now
	f.grants = append(f.grants, &stored)
	copied := stored
	return &copied, nil
}

func (f *fakeShareStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.ShareGrant, error) {
	for _, g := range f.grants {
		if g.ID == id {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeShareStore) FindEffective(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID, actor models.Actor, perms []models.Permission) (*models.ShareGrant, error) {
	now := time.Now()
	for _, g := range f.grants {
		if g.ResourceType != resourceType || g.ResourceID != resourceID {
			continue
		}
		if !g.Effective(now) || !f.matchesActor(g, actor) {
			continue
		}
		if !g.Permissions.HasAny(perms) {
			continue
		}
		copied := *g
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeShareStore) FindForActor(ctx context.Context, resourceType models.ResourceType, actor models.Actor, perms []models.Permission, page, limit int) ([]*models.ShareGrant, error) {
	now := time.Now()
	var matched []*models.ShareGrant
	for _, g := range f.grants {
		if g.ResourceType != resourceType || !g.Effective(now) {
			continue
		}
		if !f.matchesActor(g, actor) || !g.Permissions.HasAny(perms) {
			continue
		}
		copied := *g
		matched = append(matched, &copied)
	}
	return paginate(matched, page, limit), nil
}

func (f *fakeShareStore) FindBySharer(ctx context.Context, resourceType models.ResourceType, sharerID bson.ObjectID, perms []models.Permission, page, limit int) ([]*models.ShareGrant, error) {
	now := time.Now()
	var matched []*models.ShareGrant
	for _, g := range f.grants {
		if g.ResourceType != resourceType || g.SharedBy != sharerID {
			continue
		}
		if !g.Effective(now) || !g.Permissions.HasAny(perms) {
			continue
		}
		copied := *g
		matched = append(matched, &copied)
	}
	return paginate(matched, page, limit), nil
}

func (f *fakeShareStore) FindByResource(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID, userTargetedOnly, includeExpired, includeInactive bool) ([]*models.ShareGrant, error) {
	now := time.Now()
	var matched []*models.ShareGrant
	for _, g := range f.grants {
		if g.ResourceType != resourceType || g.ResourceID != resourceID {
			continue
		}
		if userTargetedOnly && g.SharedWithUser == nil {
			continue
		}
		if !includeInactive && !g.IsActive {
			continue
		}
		if !includeExpired && g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
			continue
		}
		copied := *g
		matched = append(matched, &copied)
	}
	return matched, nil
}

func (f *fakeShareStore) SetActive(ctx context.Context, id bson.ObjectID, active bool) (int64, error) {
	for _, g := range f.grants {
		if g.ID == id {
			g.IsActive = active
			g.UpdatedAt = time.Now()
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeShareStore) UpdatePermissions(ctx context.Context, id bson.ObjectID, perms models.PermissionSet) (*models.ShareGrant, error) {
	for _, g := range f.grants {
		if g.ID == id {
			g.Permissions = perms
			g.UpdatedAt = time.Now()
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

// fakeResourceStore holds resource documents per type, keyed by ID.
type fakeResourceStore struct {
	docs map[models.ResourceType]map[bson.ObjectID]bson.M
}

func newFakeResourceStore() *fakeResourceStore {
	return &fakeResourceStore{docs: make(map[models.ResourceType]map[bson.ObjectID]bson.M)}
}

func (f *fakeResourceStore) add(resourceType models.ResourceType, id, tenantID bson.ObjectID) bson.M {
	doc := bson.M{"_id": id, "tenant_id": tenantID, "title": "doc-" + id.Hex()[:6]}
	if f.docs[resourceType] == nil {
		f.docs[resourceType] = make(map[bson.ObjectID]bson.M)
	}
	f.docs[resourceType][id] = doc
	return doc
}

func cloneDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func (f *fakeResourceStore) FindOwned(ctx context.Context, resourceType models.ResourceType, id, tenantID bson.ObjectID, populateFields []string) (bson.M, error) {
	doc, ok := f.docs[resourceType][id]
	if !ok || doc["tenant_id"] != tenantID {
		return nil, nil
	}
	return cloneDoc(doc), nil
}

func (f *fakeResourceStore) FindActive(ctx context.Context, resourceType models.ResourceType, id bson.ObjectID, populateFields []string) (bson.M, error) {
	doc, ok := f.docs[resourceType][id]
	if !ok {
		return nil, nil
	}
	return cloneDoc(doc), nil
}

func (f *fakeResourceStore) ListOwned(ctx context.Context, resourceType models.ResourceType, tenantID bson.ObjectID, page, limit int, populateFields []string) ([]bson.M, error) {
	var out []bson.M
	for _, doc := range f.docs[resourceType] {
		if doc["tenant_id"] == tenantID {
			out = append(out, cloneDoc(doc))
		}
	}
	return paginate(out, page, limit), nil
}

func (f *fakeResourceStore) FindActiveByIDs(ctx context.Context, resourceType models.ResourceType, ids []bson.ObjectID, populateFields []string) ([]bson.M, error) {
	var out []bson.M
	for _, id := range ids {
		if doc, ok := f.docs[resourceType][id]; ok {
			out = append(out, cloneDoc(doc))
		}
	}
	return out, nil
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func objectIDPtrEqual(a, b *bson.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func newTestActor() models.Actor {
	return models.Actor{
		UserID:   bson.NewObjectID(),
		TenantID: bson.NewObjectID(),
		Roles:    []bson.ObjectID{bson.NewObjectID()},
	}
}

func addGrant(store *fakeShareStore, g models.ShareGrant) *models.ShareGrant {
	if g.ID.IsZero() {
		g.ID = bson.NewObjectID()
	}
	now := time.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
		g.UpdatedAt = now
	}
	stored := g
	store.grants = append(store.grants, &stored)
	return &stored
}

func TestHasAccess_TenantOwnershipGrantsEverything(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	resourceID := bson.NewObjectID()
	resources.add(models.ResourceTypeProject, resourceID, actor.TenantID)

	for _, perm := range []models.Permission{models.PermissionRead, models.PermissionEdit, models.PermissionShare, models.PermissionDelete} {
		allowed, err := access.HasAccess(context.Background(), models.ResourceTypeProject, resourceID, actor, []models.Permission{perm})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !allowed {
			t.Errorf("Tenant owner was denied %q", perm)
		}
	}
}

func TestHasAccess_DeniedWithoutOwnershipOrGrant(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	resourceID := bson.NewObjectID()
	resources.add(models.ResourceTypeProject, resourceID, bson.NewObjectID()) // other tenant

	allowed, err := access.HasAccess(context.Background(), models.ResourceTypeProject, resourceID, actor, []models.Permission{models.PermissionRead})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Error("Actor without ownership or grant was allowed")
	}
}

func TestHasAccess_UserGrantPermissionOrSemantics(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	ownerTenant := bson.NewObjectID()
	resourceID := bson.NewObjectID()
	resources.add(models.ResourceTypeMoodboard, resourceID, ownerTenant)

	addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeMoodboard,
		ResourceID:     resourceID,
		SharedBy:       bson.NewObjectID(),
		SharedWithUser: &actor.UserID,
		Permissions:    models.PermissionSet{Delete: true},
		IsActive:       true,
	})

	// One of the requested permissions is enough
	allowed, err := access.HasAccess(context.Background(), models.ResourceTypeMoodboard, resourceID, actor, []models.Permission{models.PermissionEdit, models.PermissionDelete})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !allowed {
		t.Error("Grant holding one of the requested permissions was denied")
	}

	// None of the requested permissions present
	allowed, err = access.HasAccess(context.Background(), models.ResourceTypeMoodboard, resourceID, actor, []models.Permission{models.PermissionRead, models.PermissionShare})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Error("Grant without any requested permission was allowed")
	}
}

func TestHasAccess_ExpiredAndRevokedGrantsDenied(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	resourceID := bson.NewObjectID()
	resources.add(models.ResourceTypeProject, resourceID, bson.NewObjectID())

	expired := time.Now().Add(-time.Minute)
	addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeProject,
		ResourceID:     resourceID,
		SharedWithUser: &actor.UserID,
		Permissions:    models.FullPermissions(),
		IsActive:       true,
		ExpiresAt:      &expired,
	})
	addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeProject,
		ResourceID:     resourceID,
		SharedWithUser: &actor.UserID,
		Permissions:    models.FullPermissions(),
		IsActive:       false,
	})

	allowed, err := access.HasAccess(context.Background(), models.ResourceTypeProject, resourceID, actor, []models.Permission{models.PermissionRead})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Error("Expired or revoked grant still conveyed access")
	}
}

func TestHasAccess_RoleAndTenantGrants(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	roleResource := bson.NewObjectID()
	tenantResource := bson.NewObjectID()
	resources.add(models.ResourceTypeSizeChart, roleResource, bson.NewObjectID())
	resources.add(models.ResourceTypeSizeChart, tenantResource, bson.NewObjectID())

	addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeSizeChart,
		ResourceID:     roleResource,
		SharedWithRole: &actor.Roles[0],
		Permissions:    models.DefaultPermissions(),
		IsActive:       true,
	})
	addGrant(shares, models.ShareGrant{
		ResourceType:     models.ResourceTypeSizeChart,
		ResourceID:       tenantResource,
		SharedWithTenant: &actor.TenantID,
		Permissions:      models.DefaultPermissions(),
		IsActive:         true,
	})

	for name, id := range map[string]bson.ObjectID{"role": roleResource, "tenant": tenantResource} {
		allowed, err := access.HasAccess(context.Background(), models.ResourceTypeSizeChart, id, actor, []models.Permission{models.PermissionRead})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !allowed {
			t.Errorf("%s-targeted grant did not convey access", name)
		}
	}
}

func TestGetAccessibleResourceById_HidesExistence(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	foreignResource := bson.NewObjectID()
	resources.add(models.ResourceTypeProject, foreignResource, bson.NewObjectID())

	// Existing but inaccessible
	doc, err := access.GetAccessibleResourceById(context.Background(), models.ResourceTypeProject, foreignResource, actor, []models.Permission{models.PermissionRead}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc != nil {
		t.Error("Inaccessible resource leaked to the caller")
	}

	// Nonexistent resource looks exactly the same
	doc, err = access.GetAccessibleResourceById(context.Background(), models.ResourceTypeProject, bson.NewObjectID(), actor, []models.Permission{models.PermissionRead}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc != nil {
		t.Error("Nonexistent resource returned a document")
	}
}

func TestGetAccessibleResourceById_EmptyFilterDefaultsToRead(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	resourceID := bson.NewObjectID()
	resources.add(models.ResourceTypeProject, resourceID, bson.NewObjectID())

	addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeProject,
		ResourceID:     resourceID,
		SharedBy:       bson.NewObjectID(),
		SharedWithUser: &actor.UserID,
		Permissions:    models.DefaultPermissions(),
		IsActive:       true,
	})

	// No permission filter means read access, the same default the
	// listing path applies
	doc, err := access.GetAccessibleResourceById(context.Background(), models.ResourceTypeProject, resourceID, actor, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc == nil {
		t.Fatal("Read-granted actor was denied when no permission filter was supplied")
	}
	if doc["accessType"] != models.AccessTypeShared {
		t.Errorf("accessType = %v, expected shared", doc["accessType"])
	}

	// The default must not widen access for actors without any grant
	stranger := newTestActor()
	doc, err = access.GetAccessibleResourceById(context.Background(), models.ResourceTypeProject, resourceID, stranger, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc != nil {
		t.Error("Actor without a grant gained access through the empty filter")
	}
}

func TestGetAccessibleResourceById_OwnedAnnotations(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	resourceID := bson.NewObjectID()
	resources.add(models.ResourceTypeProject, resourceID, actor.TenantID)

	doc, err := access.GetAccessibleResourceById(context.Background(), models.ResourceTypeProject, resourceID, actor, []models.Permission{models.PermissionRead}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc == nil {
		t.Fatal("Owner was denied their own resource")
	}
	if doc["accessType"] != models.AccessTypeOwner {
		t.Errorf("accessType = %v, expected owner", doc["accessType"])
	}
	if perms, ok := doc["permissions"].(models.PermissionSet); !ok || perms != models.FullPermissions() {
		t.Errorf("Owner permissions = %v, expected full set", doc["permissions"])
	}
	if doc["id"] != resourceID {
		t.Errorf("id annotation = %v, expected %v", doc["id"], resourceID)
	}
}

func TestGetAccessibleResourceById_SharedAnnotations(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	sharer := bson.NewObjectID()
	resourceID := bson.NewObjectID()
	resources.add(models.ResourceTypeGalleryImage, resourceID, bson.NewObjectID())

	grant := addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeGalleryImage,
		ResourceID:     resourceID,
		SharedBy:       sharer,
		SharedWithUser: &actor.UserID,
		Permissions:    models.PermissionSet{Read: true, Edit: true},
		IsActive:       true,
	})

	doc, err := access.GetAccessibleResourceById(context.Background(), models.ResourceTypeGalleryImage, resourceID, actor, []models.Permission{models.PermissionRead}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc == nil {
		t.Fatal("Grant holder was denied the shared resource")
	}
	if doc["accessType"] != models.AccessTypeShared {
		t.Errorf("accessType = %v, expected shared", doc["accessType"])
	}
	if doc["sharedBy"] != sharer {
		t.Errorf("sharedBy = %v, expected %v", doc["sharedBy"], sharer)
	}
	if doc["shareId"] != grant.ID {
		t.Errorf("shareId = %v, expected %v", doc["shareId"], grant.ID)
	}
	if perms, ok := doc["permissions"].(models.PermissionSet); !ok || perms != grant.Permissions {
		t.Errorf("permissions = %v, expected the grant's set", doc["permissions"])
	}
}

func TestGetAccessibleResources_CombinesOwnedAndShared(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	resources.add(models.ResourceTypeProject, bson.NewObjectID(), actor.TenantID)

	sharedID := bson.NewObjectID()
	resources.add(models.ResourceTypeProject, sharedID, bson.NewObjectID())
	addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeProject,
		ResourceID:     sharedID,
		SharedWithUser: &actor.UserID,
		Permissions:    models.DefaultPermissions(),
		IsActive:       true,
	})

	results, err := access.GetAccessibleResources(context.Background(), models.ResourceTypeProject, actor, DefaultListOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 resources, got %d", len(results))
	}

	counts := map[any]int{}
	for _, doc := range results {
		counts[doc["accessType"]]++
	}
	if counts[models.AccessTypeOwner] != 1 || counts[models.AccessTypeShared] != 1 {
		t.Errorf("Unexpected access type split: %v", counts)
	}
}

func TestGetAccessibleResources_Toggles(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	resources.add(models.ResourceTypeProject, bson.NewObjectID(), actor.TenantID)

	sharedID := bson.NewObjectID()
	resources.add(models.ResourceTypeProject, sharedID, bson.NewObjectID())
	addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeProject,
		ResourceID:     sharedID,
		SharedWithUser: &actor.UserID,
		Permissions:    models.DefaultPermissions(),
		IsActive:       true,
	})

	opts := DefaultListOptions()
	opts.IncludeShared = false
	results, err := access.GetAccessibleResources(context.Background(), models.ResourceTypeProject, actor, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 1 || results[0]["accessType"] != models.AccessTypeOwner {
		t.Errorf("Owned-only listing returned %v", results)
	}

	opts = DefaultListOptions()
	opts.IncludeOwned = false
	results, err = access.GetAccessibleResources(context.Background(), models.ResourceTypeProject, actor, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 1 || results[0]["accessType"] != models.AccessTypeShared {
		t.Errorf("Shared-only listing returned %v", results)
	}
}

func TestGetAccessibleResources_PaginatesHalvesIndependently(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()
	for range 3 {
		resources.add(models.ResourceTypeProject, bson.NewObjectID(), actor.TenantID)
	}
	for range 3 {
		sharedID := bson.NewObjectID()
		resources.add(models.ResourceTypeProject, sharedID, bson.NewObjectID())
		addGrant(shares, models.ShareGrant{
			ResourceType:   models.ResourceTypeProject,
			ResourceID:     sharedID,
			SharedWithUser: &actor.UserID,
			Permissions:    models.DefaultPermissions(),
			IsActive:       true,
		})
	}

	opts := DefaultListOptions()
	opts.Limit = 2
	results, err := access.GetAccessibleResources(context.Background(), models.ResourceTypeProject, actor, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The limit applies per half, so a full page carries up to 2*limit
	if len(results) != 4 {
		t.Fatalf("Expected 4 resources on the first page, got %d", len(results))
	}

	opts.Page = 2
	results, err = access.GetAccessibleResources(context.Background(), models.ResourceTypeProject, actor, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 resources on the second page, got %d", len(results))
	}
}

func TestListingsReturnEmptySlicesNotNil(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	actor := newTestActor()

	results, err := access.GetAccessibleResources(context.Background(), models.ResourceTypeProject, actor, DefaultListOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if results == nil {
		t.Error("Accessible-resource listing must serialize as [], not null")
	}

	results, err = access.GetResourcesSharedWithOthers(context.Background(), models.ResourceTypeProject, actor.UserID, DefaultListOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if results == nil {
		t.Error("Shared-by-me listing must serialize as [], not null")
	}
}

func TestGetResourcesSharedWithOthers(t *testing.T) {
	shares := &fakeShareStore{}
	resources := newFakeResourceStore()
	access := NewAccessService(shares, resources)

	sharer := bson.NewObjectID()
	targetUser := bson.NewObjectID()
	targetRole := bson.NewObjectID()

	resourceID := bson.NewObjectID()
	resources.add(models.ResourceTypeMoodboard, resourceID, bson.NewObjectID())

	// Two grants on the same resource produce two rows
	addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeMoodboard,
		ResourceID:     resourceID,
		SharedBy:       sharer,
		SharedWithUser: &targetUser,
		Permissions:    models.DefaultPermissions(),
		IsActive:       true,
	})
	addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeMoodboard,
		ResourceID:     resourceID,
		SharedBy:       sharer,
		SharedWithRole: &targetRole,
		Permissions:    models.PermissionSet{Read: true, Edit: true},
		IsActive:       true,
	})

	// A grant whose resource is gone gets skipped
	addGrant(shares, models.ShareGrant{
		ResourceType:   models.ResourceTypeMoodboard,
		ResourceID:     bson.NewObjectID(),
		SharedBy:       sharer,
		SharedWithUser: &targetUser,
		Permissions:    models.DefaultPermissions(),
		IsActive:       true,
	})

	results, err := access.GetResourcesSharedWithOthers(context.Background(), models.ResourceTypeMoodboard, sharer, DefaultListOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(results))
	}

	for _, doc := range results {
		if doc["accessType"] != models.AccessTypeSharedByMe {
			t.Errorf("accessType = %v, expected sharedByMe", doc["accessType"])
		}
		target, ok := doc["sharedWith"].(bson.M)
		if !ok || len(target) != 1 {
			t.Errorf("Unexpected sharedWith descriptor: %v", doc["sharedWith"])
		}
	}
}
