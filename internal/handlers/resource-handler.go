package handlers

import (
	"log"
	"strconv"
	"strings"
	"time"

	"sharing-service/internal/config"
	"sharing-service/internal/middleware"
	"sharing-service/internal/models"
	"sharing-service/internal/service"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type ResourceHandler struct {
	accessService *service.AccessService
}

func NewResourceHandler(accessService *service.AccessService) *ResourceHandler {
	return &ResourceHandler{
		accessService: accessService,
	}
}

func (h *ResourceHandler) RegisterRoutes(app *fiber.App) {
	resourceGroup := app.Group("/protected/resources")

	resourceGroup.Get("/:resourceType", h.ListAccessibleResources)
	// shared-by-me has to be registered before the :resourceId wildcard
	resourceGroup.Get("/:resourceType/shared-by-me", h.ListSharedByMe)
	resourceGroup.Get("/:resourceType/:resourceId", h.GetResource)
}

func (h *ResourceHandler) ListAccessibleResources(c fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	resourceType, err := models.ParseResourceType(c.Params("resourceType"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource type",
		})
	}

	opts := listOptionsFromQuery(c)

	start := time.Now()
	resources, err := h.accessService.GetAccessibleResources(c.Context(), resourceType, actor, opts)
	if err != nil {
		log.Printf("Failed to list accessible %s resources for user %s: %v", resourceType, actor.UserID.Hex(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list resources",
		})
	}
	listDuration.WithLabelValues(string(resourceType)).Observe(time.Since(start).Seconds())

	return c.JSON(fiber.Map{
		"data": resources,
		"pagination": fiber.Map{
			"page":  opts.Page,
			"limit": opts.Limit,
		},
	})
}

func (h *ResourceHandler) ListSharedByMe(c fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	resourceType, err := models.ParseResourceType(c.Params("resourceType"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource type",
		})
	}

	opts := listOptionsFromQuery(c)

	resources, err := h.accessService.GetResourcesSharedWithOthers(c.Context(), resourceType, actor.UserID, opts)
	if err != nil {
		log.Printf("Failed to list %s resources shared by user %s: %v", resourceType, actor.UserID.Hex(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list shared resources",
		})
	}

	return c.JSON(fiber.Map{
		"data": resources,
		"pagination": fiber.Map{
			"page":  opts.Page,
			"limit": opts.Limit,
		},
	})
}

func (h *ResourceHandler) GetResource(c fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

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

	permissions := permissionsFromQuery(c)
	populateFields := splitQueryList(c.Query("populate"))

	resource, err := h.accessService.GetAccessibleResourceById(c.Context(), resourceType, resourceID, actor, permissions, populateFields)
	if err != nil {
		log.Printf("Failed to fetch %s %s for user %s: %v", resourceType, resourceID.Hex(), actor.UserID.Hex(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch resource",
		})
	}
	if resource == nil {
		// Denial and absence look identical on purpose.
		accessChecks.WithLabelValues(string(resourceType), "denied").Inc()
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this resource",
		})
	}
	accessChecks.WithLabelValues(string(resourceType), "allowed").Inc()

	return c.JSON(fiber.Map{
		"data": resource,
	})
}

func listOptionsFromQuery(c fiber.Ctx) service.ListOptions {
	opts := service.DefaultListOptions()
	opts.Limit = config.ServiceConfig.DefaultPageLimit

	if page, err := strconv.Atoi(c.Query("page", "1")); err == nil && page > 0 {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit", "")); err == nil && limit > 0 {
		if limit > config.ServiceConfig.MaxPageLimit {
			limit = config.ServiceConfig.MaxPageLimit
		}
		opts.Limit = limit
	}
	if includeOwned, err := strconv.ParseBool(c.Query("include_owned", "true")); err == nil {
		opts.IncludeOwned = includeOwned
	}
	if includeShared, err := strconv.ParseBool(c.Query("include_shared", "true")); err == nil {
		opts.IncludeShared = includeShared
	}
	if perms := permissionsFromQuery(c); len(perms) > 0 {
		opts.Permissions = perms
	}
	opts.PopulateFields = splitQueryList(c.Query("populate"))

	return opts
}

// permissionsFromQuery reads ?permission=read,edit; unknown names are
// silently dropped.
func permissionsFromQuery(c fiber.Ctx) []models.Permission {
	var permissions []models.Permission
	for _, raw := range splitQueryList(c.Query("permission")) {
		if p, ok := models.ParsePermission(raw); ok {
			permissions = append(permissions, p)
		}
	}
	return permissions
}

func splitQueryList(raw string) []string {
	if raw == "" {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
