package events

import (
	"encoding/json"
	"math/rand"
	"time"

	"sharing-service/internal/models"
)

type EventType string

const (
	// ShareCreated is published when a resource is shared with a new target
	ShareCreated EventType = "share.created"
	// ShareUpdated is published when an existing grant is re-shared
	ShareUpdated EventType = "share.updated"
	// ShareRevoked is published when a grant is soft-deleted
	ShareRevoked EventType = "share.revoked"
	// SharePermissionsUpdated is published when a grant's permissions change
	SharePermissionsUpdated EventType = "share.permissions_updated"

	// ResourceDeleted is consumed from the resource services; the sharing
	// service deactivates every grant on the deleted resource
	ResourceDeleted EventType = "resource.deleted"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

// ShareEvent carries the grant state other services need to react to
// sharing changes (notifications, activity feeds).
type ShareEvent struct {
	BaseEvent
	ShareID          string               `json:"share_id"`
	ResourceType     string               `json:"resource_type"`
	ResourceID       string               `json:"resource_id"`
	OwnerTenantID    string               `json:"owner_tenant_id,omitempty"`
	SharedBy         string               `json:"shared_by"`
	SharedWithUser   string               `json:"shared_with_user,omitempty"`
	SharedWithRole   string               `json:"shared_with_role,omitempty"`
	SharedWithTenant string               `json:"shared_with_tenant,omitempty"`
	Permissions      models.PermissionSet `json:"permissions"`
	IsActive         bool                 `json:"is_active"`
}

func NewShareEvent(eventType EventType, grant *models.ShareGrant) *ShareEvent {
	event := &ShareEvent{
		BaseEvent: BaseEvent{
			ID:        generateEventID(),
			Type:      eventType,
			Timestamp: time.Now().Unix(),
			Version:   "1.0",
		},
		ShareID:      grant.ID.Hex(),
		ResourceType: string(grant.ResourceType),
		ResourceID:   grant.ResourceID.Hex(),
		SharedBy:     grant.SharedBy.Hex(),
		Permissions:  grant.Permissions,
		IsActive:     grant.IsActive,
	}

	if !grant.OwnerTenantID.IsZero() {
		event.OwnerTenantID = grant.OwnerTenantID.Hex()
	}
	if grant.SharedWithUser != nil {
		event.SharedWithUser = grant.SharedWithUser.Hex()
	}
	if grant.SharedWithRole != nil {
		event.SharedWithRole = grant.SharedWithRole.Hex()
	}
	if grant.SharedWithTenant != nil {
		event.SharedWithTenant = grant.SharedWithTenant.Hex()
	}

	return event
}

func (e *ShareEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ResourceDeletedEvent is the payload the resource services publish when a
// resource is removed.
type ResourceDeletedEvent struct {
	BaseEvent
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	TenantID     string `json:"tenant_id,omitempty"`
}

const eventIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateEventID generates a unique ID for an event
func generateEventID() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = eventIDAlphabet[rand.Intn(len(eventIDAlphabet))]
	}
	return time.Now().Format("20060102150405") + "-" + string(suffix)
}
