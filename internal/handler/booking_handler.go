package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/uae-home-services/service-booking/internal/application"
	"github.com/uae-home-services/service-booking/internal/common/auth"
	"github.com/uae-home-services/service-booking/internal/common/domain"
	"github.com/uae-home-services/service-booking/internal/common/middleware"
	"github.com/uae-home-services/service-booking/internal/common/response"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
	loc     *time.Location
}

// NewBookingHandler creates a new BookingHandler. Date filters are read in loc.
func NewBookingHandler(service *application.BookingService, loc *time.Location) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{service: service, loc: loc}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("", middleware.RequireRole(auth.RoleClient), h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/upcoming", middleware.RequireRole(auth.RoleClient, auth.RoleProvider), h.ListUpcoming)
		bookings.GET("/number/:number", h.GetBookingByNumber)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id/status", h.UpdateStatus)
		bookings.POST("/:id/complete", middleware.RequireRole(auth.RoleProvider), h.CompleteBooking)
		bookings.POST("/:id/reschedule", middleware.RequireRole(auth.RoleClient, auth.RoleProvider), h.RescheduleBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.GET("/:id/refund-quote", h.RefundQuote)
		bookings.POST("/:id/feedback", middleware.RequireRole(auth.RoleClient), h.SubmitFeedback)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings. Clients see their own bookings, providers their
// assigned ones and admins everything.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	f, err := bookingFilter(c, h.loc)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.ListMyBookings(c.Request.Context(), caller, f)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ListUpcoming handles GET /api/v1/bookings/upcoming.
func (h *BookingHandler) ListUpcoming(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.ListUpcoming(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	caller, bookingID, ok := callerAndBooking(c)
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), caller, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetBookingByNumber handles GET /api/v1/bookings/number/:number.
func (h *BookingHandler) GetBookingByNumber(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.GetBookingByNumber(c.Request.Context(), caller, c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateStatus handles PATCH /api/v1/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	caller, bookingID, ok := callerAndBooking(c)
	if !ok {
		return
	}

	var req application.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.UpdateStatus(c.Request.Context(), caller, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CompleteBooking handles POST /api/v1/bookings/:id/complete.
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	caller, bookingID, ok := callerAndBooking(c)
	if !ok {
		return
	}

	var req application.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.CompleteBooking(c.Request.Context(), caller, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RescheduleBooking handles POST /api/v1/bookings/:id/reschedule.
func (h *BookingHandler) RescheduleBooking(c *gin.Context) {
	caller, bookingID, ok := callerAndBooking(c)
	if !ok {
		return
	}

	var req application.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.RescheduleBooking(c.Request.Context(), caller, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	caller, bookingID, ok := callerAndBooking(c)
	if !ok {
		return
	}

	var req application.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), caller, bookingID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RefundQuote handles GET /api/v1/bookings/:id/refund-quote.
func (h *BookingHandler) RefundQuote(c *gin.Context) {
	caller, bookingID, ok := callerAndBooking(c)
	if !ok {
		return
	}

	result, err := h.service.GetRefundQuote(c.Request.Context(), caller, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SubmitFeedback handles POST /api/v1/bookings/:id/feedback.
func (h *BookingHandler) SubmitFeedback(c *gin.Context) {
	caller, bookingID, ok := callerAndBooking(c)
	if !ok {
		return
	}

	var req application.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.SubmitFeedback(c.Request.Context(), caller, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func callerFrom(c *gin.Context) (application.Caller, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return application.Caller{}, false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		return application.Caller{}, false
	}
	return application.Caller{UserID: userID, Role: role}, true
}

// callerAndBooking writes the error response itself when it returns false.
func callerAndBooking(c *gin.Context) (application.Caller, uuid.UUID, bool) {
	caller, ok := callerFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return caller, uuid.Nil, false
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return caller, uuid.Nil, false
	}
	return caller, bookingID, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}

// bookingFilter reads status, emirate, from, to and paging from the query string.
// status may be repeated or comma separated; from and to are YYYY-MM-DD in loc.
func bookingFilter(c *gin.Context, loc *time.Location) (bookingDomain.Filter, error) {
	var f bookingDomain.Filter
	f.Page, f.Limit = parsePagination(c)

	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			s, err := bookingDomain.ParseBookingStatus(part)
			if err != nil {
				return f, err
			}
			f.Statuses = append(f.Statuses, s)
		}
	}

	if raw := c.Query("emirate"); raw != "" {
		e, ok := domain.ParseEmirate(raw)
		if !ok {
			return f, domain.NewValidationError("invalid emirate: " + raw)
		}
		f.Emirate = e
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			return f, domain.NewValidationError("from must be YYYY-MM-DD")
		}
		f.ScheduledFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			return f, domain.NewValidationError("to must be YYYY-MM-DD")
		}
		// inclusive of the whole day
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.ScheduledTo = &end
	}
	if f.ScheduledFrom != nil && f.ScheduledTo != nil && f.ScheduledTo.Before(*f.ScheduledFrom) {
		return f, domain.NewValidationError("to must not be before from")
	}

	return f, nil
}

func uuidQuery(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.NewValidationError("invalid " + key)
	}
	return &id, nil
}
