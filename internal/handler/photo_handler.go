package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/uae-home-services/service-booking/internal/application"
	"github.com/uae-home-services/service-booking/internal/common/auth"
	"github.com/uae-home-services/service-booking/internal/common/middleware"
	"github.com/uae-home-services/service-booking/internal/common/response"
)

// PhotoHandler handles HTTP requests for before/after job photos.
type PhotoHandler struct {
	service *application.PhotoService
}

// NewPhotoHandler creates a new PhotoHandler.
func NewPhotoHandler(service *application.PhotoService) *PhotoHandler {
	return &PhotoHandler{service: service}
}

// RegisterRoutes registers all photo routes.
func (h *PhotoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	photos := r.Group("/api/v1/bookings")
	photos.Use(authMW)
	{
		photos.POST("/:id/photo", middleware.RequireRole(auth.RoleProvider), h.UploadPhoto)
		photos.GET("/:id/photos", h.GetBookingPhotos)
	}
}

// UploadPhoto handles POST /api/v1/bookings/:id/photo.
func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	caller, bookingID, ok := callerAndBooking(c)
	if !ok {
		return
	}

	var req application.UploadPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.UploadPhoto(c.Request.Context(), caller.UserID, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetBookingPhotos handles GET /api/v1/bookings/:id/photos?type=before|after.
func (h *PhotoHandler) GetBookingPhotos(c *gin.Context) {
	caller, bookingID, ok := callerAndBooking(c)
	if !ok {
		return
	}

	result, err := h.service.GetBookingPhotos(c.Request.Context(), caller, bookingID, c.Query("type"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
