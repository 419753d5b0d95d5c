package handlers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"sharing-service/internal/middleware"
	"sharing-service/internal/models"
	"sharing-service/internal/service"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// Counter for share mutations
	shareMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharing_share_mutations_total",
			Help: "Total number of share grant mutations",
		},
		[]string{"action", "resource_type"},
	)

	// Counter for access checks
	accessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharing_access_checks_total",
			Help: "Total number of resource access checks",
		},
		[]string{"resource_type", "result"}, // result: allowed/denied
	)

	// Histogram for resource listing duration
	listDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sharing_resource_list_duration_seconds",
			Help:    "Time spent building accessible-resource lists",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource_type"},
	)
)

type ShareHandler struct {
	shareService  *service.ShareService
	accessService *service.AccessService
}

func NewShareHandler(shareService *service.ShareService, accessService *service.AccessService) *ShareHandler {
	return &ShareHandler{
		shareService:  shareService,
		accessService: accessService,
	}
}

func (h *ShareHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	shareGroup := app.Group("/protected/shares")

	shareGroup.Post("/", h.CreateShare)
	shareGroup.Delete("/:shareId", h.RevokeShare)
	shareGroup.Patch("/:shareId/permissions", h.UpdateSharePermissions)

	shareGroup.Get("/resource/:resourceType/:resourceId/users", h.GetSharedUsers,
		middleware.RequireResourceAccess(h.accessService, models.PermissionShare))
	shareGroup.Get("/resource/:resourceType/:resourceId/entities", h.GetAllSharedEntities,
		middleware.RequireResourceAccess(h.accessService, models.PermissionShare))
}

func (h *ShareHandler) CreateShare(c fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var request struct {
		ResourceType     string                `json:"resourceType"`
		ResourceID       string                `json:"resourceId"`
		SharedWithUser   string                `json:"sharedWithUser"`
		SharedWithRole   string                `json:"sharedWithRole"`
		SharedWithTenant string                `json:"sharedWithTenant"`
		Permissions      *models.PermissionSet `json:"permissions"`
		ExpiresAt        *time.Time            `json:"expiresAt"`
		Notes            string                `json:"notes"`
	}

	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resourceType, err := models.ParseResourceType(request.ResourceType)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource type",
		})
	}

	resourceID, err := bson.ObjectIDFromHex(request.ResourceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource ID format",
		})
	}

	req := service.ShareRequest{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		SharedBy:     actor.UserID,
		Permissions:  request.Permissions,
		ExpiresAt:    request.ExpiresAt,
		Notes:        request.Notes,
	}

	targets := 0
	if request.SharedWithUser != "" {
		id, err := bson.ObjectIDFromHex(request.SharedWithUser)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid sharedWithUser ID format",
			})
		}
		req.SharedWithUser = &id
		targets++
	}
	if request.SharedWithRole != "" {
		id, err := bson.ObjectIDFromHex(request.SharedWithRole)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid sharedWithRole ID format",
			})
		}
		req.SharedWithRole = &id
		targets++
	}
	if request.SharedWithTenant != "" {
		id, err := bson.ObjectIDFromHex(request.SharedWithTenant)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid sharedWithTenant ID format",
			})
		}
		req.SharedWithTenant = &id
		targets++
	}

	if targets != 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Exactly one of sharedWithUser, sharedWithRole or sharedWithTenant is required",
		})
	}

	// The actor needs share rights on the resource. A denied check hides
	// whether the resource exists at all.
	allowed, err := h.accessService.HasAccess(c.Context(), resourceType, resourceID, actor, []models.Permission{models.PermissionShare})
	if err != nil {
		log.Printf("Failed to check share access: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	if !allowed {
		accessChecks.WithLabelValues(string(resourceType), "denied").Inc()
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have permission to share this resource",
		})
	}
	accessChecks.WithLabelValues(string(resourceType), "allowed").Inc()

	grant, err := h.shareService.ShareResource(c.Context(), req)
	if err != nil {
		log.Printf("Failed to share resource: %v", err)

		if errors.Is(err, service.ErrResourceNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Resource not found",
			})
		}
		if errors.Is(err, service.ErrShareTargetRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "A share target is required",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to share resource",
		})
	}

	action := "updated"
	if grant.CreatedAt.Equal(grant.UpdatedAt) {
		action = "created"
	}
	shareMutations.WithLabelValues(action, string(resourceType)).Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": grant,
	})
}

func (h *ShareHandler) RevokeShare(c fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	shareID, err := bson.ObjectIDFromHex(c.Params("shareId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid share ID format",
		})
	}

	grant, err := h.shareService.GetShare(c.Context(), shareID)
	if err != nil {
		log.Printf("Failed to load share %s: %v", shareID.Hex(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	if grant == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Share not found",
		})
	}

	if !h.mayManageShare(c, grant, actor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have permission to revoke this share",
		})
	}

	if err := h.shareService.RevokeShare(c.Context(), shareID, actor.UserID); err != nil {
		if errors.Is(err, service.ErrShareNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Share not found",
			})
		}
		log.Printf("Failed to revoke share %s: %v", shareID.Hex(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to revoke share",
		})
	}

	shareMutations.WithLabelValues("revoked", string(grant.ResourceType)).Inc()

	return c.JSON(fiber.Map{
		"message": "Share revoked",
	})
}

func (h *ShareHandler) UpdateSharePermissions(c fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	shareID, err := bson.ObjectIDFromHex(c.Params("shareId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid share ID format",
		})
	}

	var patch models.PermissionPatch
	if err := c.Bind().Body(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	grant, err := h.shareService.GetShare(c.Context(), shareID)
	if err != nil {
		log.Printf("Failed to load share %s: %v", shareID.Hex(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	if grant == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Share not found",
		})
	}

	if !h.mayManageShare(c, grant, actor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have permission to modify this share",
		})
	}

	updated, err := h.shareService.UpdateSharePermissions(c.Context(), shareID, patch, actor.UserID)
	if err != nil {
		if errors.Is(err, service.ErrShareNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Share not found",
			})
		}
		log.Printf("Failed to update share %s permissions: %v", shareID.Hex(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update share permissions",
		})
	}

	shareMutations.WithLabelValues("permissions_updated", string(grant.ResourceType)).Inc()

	return c.JSON(fiber.Map{
		"data": updated,
	})
}

func (h *ShareHandler) GetSharedUsers(c fiber.Ctx) error {
	resourceType, err := models.ParseResourceType(c.Params("resourceType"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource type",
		})
	}

	resourceID, err := bson.ObjectIDFromHex(c.Params("resourceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource ID format",
		})
	}

	opts := introspectOptionsFromQuery(c)

	users, err := h.shareService.GetSharedUsers(c.Context(), resourceType, resourceID, opts)
	if err != nil {
		log.Printf("Failed to list shared users for %s %s: %v", resourceType, resourceID.Hex(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list shared users",
		})
	}

	return c.JSON(fiber.Map{
		"data": users,
	})
}

func (h *ShareHandler) GetAllSharedEntities(c fiber.Ctx) error {
	resourceType, err := models.ParseResourceType(c.Params("resourceType"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource type",
		})
	}

	resourceID, err := bson.ObjectIDFromHex(c.Params("resourceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource ID format",
		})
	}

	opts := introspectOptionsFromQuery(c)

	entities, err := h.shareService.GetAllSharedEntities(c.Context(), resourceType, resourceID, opts)
	if err != nil {
		log.Printf("Failed to list shared entities for %s %s: %v", resourceType, resourceID.Hex(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list shared entities",
		})
	}

	return c.JSON(fiber.Map{
		"data": entities,
	})
}

func introspectOptionsFromQuery(c fiber.Ctx) service.IntrospectOptions {
	includeExpired, _ := strconv.ParseBool(c.Query("include_expired", "false"))
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive", "false"))
	return service.IntrospectOptions{
		IncludeExpired:  includeExpired,
		IncludeInactive: includeInactive,
	}
}

// mayManageShare allows the grant's creator, or anyone with share rights
// on the underlying resource (owners included).
func (h *ShareHandler) mayManageShare(c fiber.Ctx, grant *models.ShareGrant, actor models.Actor) bool {
	if grant.SharedBy == actor.UserID {
		return true
	}

	allowed, err := h.accessService.HasAccess(c.Context(), grant.ResourceType, grant.ResourceID, actor, []models.Permission{models.PermissionShare})
	if err != nil {
		log.Printf("Failed to check share management access: %v", err)
		return false
	}
	return allowed
}
