package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ResourceType tags which collection a shared resource lives in. The set is
// closed: adding a new shareable type means adding a tag here plus its
// collection binding in CollectionName.
type ResourceType string

const (
	ResourceTypeProject      ResourceType = "Project"
	ResourceTypeMoodboard    ResourceType = "Moodboard"
	ResourceTypeSizeChart    ResourceType = "SizeChart"
	ResourceTypeGalleryImage ResourceType = "GalleryImage"
)

// AllResourceTypes lists every shareable resource type.
func AllResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceTypeProject,
		ResourceTypeMoodboard,
		ResourceTypeSizeChart,
		ResourceTypeGalleryImage,
	}
}

// ParseResourceType validates a resource type tag coming from the API.
func ParseResourceType(s string) (ResourceType, error) {
	switch ResourceType(s) {
	case ResourceTypeProject, ResourceTypeMoodboard, ResourceTypeSizeChart, ResourceTypeGalleryImage:
		return ResourceType(s), nil
	}
	return "", fmt.Errorf("unknown resource type %q", s)
}

// CollectionName maps the type tag to its MongoDB collection.
func (rt ResourceType) CollectionName() string {
	switch rt {
	case ResourceTypeProject:
		return "projects"
	case ResourceTypeMoodboard:
		return "moodboards"
	case ResourceTypeSizeChart:
		return "size_charts"
	case ResourceTypeGalleryImage:
		return "gallery_images"
	}
	return ""
}

// AccessType values annotated onto resource documents returned by the
// access service. They are part of the response contract the frontend
// consumes.
const (
	AccessTypeOwner      = "owner"
	AccessTypeShared     = "shared"
	AccessTypeSharedByMe = "sharedByMe"
)

// Actor is the authenticated caller: identity, tenant membership and the
// roles held for the current session. It is resolved upstream (gateway
// headers or the auth middleware), never by this service itself.
type Actor struct {
	UserID   bson.ObjectID
	TenantID bson.ObjectID
	Roles    []bson.ObjectID
}

// ParseActor builds an Actor from the gateway header values. Roles is a
// comma-separated list of role object IDs and may be empty.
func ParseActor(userID, tenantID, roles string) (Actor, error) {
	var actor Actor

	uid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return actor, fmt.Errorf("invalid user id: %w", err)
	}
	tid, err := bson.ObjectIDFromHex(tenantID)
	if err != nil {
		return actor, fmt.Errorf("invalid tenant id: %w", err)
	}

	actor.UserID = uid
	actor.TenantID = tid

	if roles != "" {
		for _, raw := range strings.Split(roles, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			rid, err := bson.ObjectIDFromHex(raw)
			if err != nil {
				return actor, fmt.Errorf("invalid role id %q: %w", raw, err)
			}
			actor.Roles = append(actor.Roles, rid)
		}
	}

	return actor, nil
}
