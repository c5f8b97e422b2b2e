package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uae-home-services/service-booking/internal/application"
	"github.com/uae-home-services/service-booking/internal/common/auth"
	"github.com/uae-home-services/service-booking/internal/common/middleware"
	"github.com/uae-home-services/service-booking/internal/common/response"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
)

// AdminBookingHandler handles admin HTTP requests for booking management.
type AdminBookingHandler struct {
	service *application.BookingService
	loc     *time.Location
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(service *application.BookingService, loc *time.Location) *AdminBookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AdminBookingHandler{service: service, loc: loc}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.GET("/analytics/bookings", h.BookingAnalytics)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	f, err := h.filter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.ListAllBookings(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// BookingAnalytics handles GET /api/v1/admin/analytics/bookings.
func (h *AdminBookingHandler) BookingAnalytics(c *gin.Context) {
	f, err := h.filter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	analytics, err := h.service.GetAnalytics(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, analytics)
}

// filter extends the common booking query with client, provider and service ids.
func (h *AdminBookingHandler) filter(c *gin.Context) (bookingDomain.Filter, error) {
	f, err := bookingFilter(c, h.loc)
	if err != nil {
		return f, err
	}
	if f.ClientID, err = uuidQuery(c, "client_id"); err != nil {
		return f, err
	}
	if f.ProviderID, err = uuidQuery(c, "provider_id"); err != nil {
		return f, err
	}
	if f.ServiceID, err = uuidQuery(c, "service_id"); err != nil {
		return f, err
	}
	return f, nil
}
