package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/uae-home-services/service-booking/internal/application"
	"github.com/uae-home-services/service-booking/internal/common/auth"
	"github.com/uae-home-services/service-booking/internal/common/domain"
	"github.com/uae-home-services/service-booking/internal/common/middleware"
	"github.com/uae-home-services/service-booking/internal/common/response"
	offeringDomain "github.com/uae-home-services/service-booking/internal/domain/offering"
)

// OfferingHandler serves the bookable service catalog.
type OfferingHandler struct {
	service *application.OfferingService
}

// NewOfferingHandler creates a new OfferingHandler.
func NewOfferingHandler(service *application.OfferingService) *OfferingHandler {
	return &OfferingHandler{service: service}
}

// RegisterRoutes registers catalog routes. Reads are public; writes need a provider token.
func (h *OfferingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	providerRole := middleware.RequireRole(auth.RoleProvider)

	services := r.Group("/api/v1/services")
	{
		services.GET("", h.ListOfferings)
		services.GET("/:id", h.GetOffering)
		services.POST("", authMW, providerRole, h.CreateOffering)
		services.PUT("/:id", authMW, providerRole, h.UpdateOffering)
		services.DELETE("/:id", authMW, providerRole, h.ArchiveOffering)
	}
}

// ListOfferings handles GET /api/v1/services.
func (h *OfferingHandler) ListOfferings(c *gin.Context) {
	var f offeringDomain.Filter
	f.Page, f.Limit = parsePagination(c)

	if raw := c.Query("category"); raw != "" {
		f.Category = offeringDomain.Category(raw)
		if !f.Category.IsValid() {
			response.BadRequest(c, "invalid category: "+raw)
			return
		}
	}
	if raw := c.Query("emirate"); raw != "" {
		e, ok := domain.ParseEmirate(raw)
		if !ok {
			response.BadRequest(c, "invalid emirate: "+raw)
			return
		}
		f.Emirate = e
	}
	if raw := c.Query("emergency"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "emergency must be true or false")
			return
		}
		f.Emergency = &v
	}
	providerID, err := uuidQuery(c, "provider_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	f.ProviderID = providerID

	result, err := h.service.ListOfferings(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetOffering handles GET /api/v1/services/:id.
func (h *OfferingHandler) GetOffering(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid service ID")
		return
	}

	result, err := h.service.GetOffering(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CreateOffering handles POST /api/v1/services.
func (h *OfferingHandler) CreateOffering(c *gin.Context) {
	providerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.OfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.CreateOffering(c.Request.Context(), providerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateOffering handles PUT /api/v1/services/:id.
func (h *OfferingHandler) UpdateOffering(c *gin.Context) {
	providerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid service ID")
		return
	}

	var req application.OfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.UpdateOffering(c.Request.Context(), providerID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ArchiveOffering handles DELETE /api/v1/services/:id.
func (h *OfferingHandler) ArchiveOffering(c *gin.Context) {
	providerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid service ID")
		return
	}

	if err := h.service.ArchiveOffering(c.Request.Context(), providerID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "service archived"})
}
