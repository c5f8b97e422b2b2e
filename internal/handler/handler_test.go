package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uae-home-services/service-booking/internal/application"
	"github.com/uae-home-services/service-booking/internal/common/auth"
	"github.com/uae-home-services/service-booking/internal/common/domain"
	"github.com/uae-home-services/service-booking/internal/config"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
	offeringDomain "github.com/uae-home-services/service-booking/internal/domain/offering"
	photoDomain "github.com/uae-home-services/service-booking/internal/domain/photo"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var gst = time.FixedZone("GST", 4*3600)

type clock struct{ now time.Time }

func (c clock) Now() time.Time { return c.now }

type bookingStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*bookingDomain.Booking
}

func (s *bookingStore) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bk, ok := s.byID[id]; ok {
		return bk, nil
	}
	return nil, domain.NewNotFoundError("Booking", id.String())
}

func (s *bookingStore) FindByNumber(_ context.Context, number string) (*bookingDomain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bk := range s.byID {
		if bk.BookingNumber() == number {
			return bk, nil
		}
	}
	return nil, domain.NewNotFoundError("Booking", number)
}

func (s *bookingStore) FindUpcoming(ctx context.Context, f bookingDomain.Filter, from time.Time) ([]*bookingDomain.Booking, error) {
	all, _ := s.FindAll(ctx, f)
	var out []*bookingDomain.Booking
	for _, bk := range all {
		if bk.Status().IsOpen() && !bk.ScheduledAt().Before(from) {
			out = append(out, bk)
		}
	}
	return out, nil
}

func (s *bookingStore) FindByFilter(ctx context.Context, f bookingDomain.Filter) ([]*bookingDomain.Booking, int64, error) {
	all, _ := s.FindAll(ctx, f)
	return all, int64(len(all)), nil
}

func (s *bookingStore) FindAll(_ context.Context, f bookingDomain.Filter) ([]*bookingDomain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range s.byID {
		if f.Matches(bk) {
			out = append(out, bk)
		}
	}
	return out, nil
}

func (s *bookingStore) CountByStatus(context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int64{}
	for _, bk := range s.byID {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (s *bookingStore) Save(_ context.Context, bk *bookingDomain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[bk.ID()] = bk
	return nil
}

func (s *bookingStore) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	return s.Save(ctx, bk)
}

type offeringStore struct {
	byID map[uuid.UUID]*offeringDomain.Offering
}

func (s *offeringStore) FindByID(_ context.Context, id uuid.UUID) (*offeringDomain.Offering, error) {
	if o, ok := s.byID[id]; ok {
		return o, nil
	}
	return nil, domain.NewNotFoundError("Service", id.String())
}

func (s *offeringStore) FindByFilter(_ context.Context, f offeringDomain.Filter) ([]*offeringDomain.Offering, int64, error) {
	var out []*offeringDomain.Offering
	for _, o := range s.byID {
		if o.IsActive() && (f.Category == "" || o.Category() == f.Category) {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (s *offeringStore) Save(_ context.Context, o *offeringDomain.Offering) error {
	s.byID[o.ID()] = o
	return nil
}

func (s *offeringStore) Update(ctx context.Context, o *offeringDomain.Offering) error {
	return s.Save(ctx, o)
}

type photoStore struct {
	items []*photoDomain.BookingPhoto
}

func (s *photoStore) Save(ctx context.Context, p *photoDomain.BookingPhoto, limit int) error {
	same, _ := s.FindByBooking(ctx, p.BookingID(), p.PhotoType())
	if len(same) >= limit {
		return photoDomain.ErrLimitReached
	}
	s.items = append(s.items, p)
	return nil
}

func (s *photoStore) FindByBooking(_ context.Context, bookingID uuid.UUID, kind photoDomain.PhotoType) ([]*photoDomain.BookingPhoto, error) {
	var out []*photoDomain.BookingPhoto
	for _, p := range s.items {
		if p.BookingID() == bookingID && (kind == "" || p.PhotoType() == kind) {
			out = append(out, p)
		}
	}
	return out, nil
}

type testServer struct {
	router   *gin.Engine
	jwt      *auth.JWTManager
	offering *offeringDomain.Offering
	client   uuid.UUID
	provider uuid.UUID
	admin    uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, gst)
	clk := clock{now: now}

	providerID := uuid.New()
	o, err := offeringDomain.NewOffering(providerID, offeringDomain.Fields{
		Category:          offeringDomain.CategoryPlumbing,
		Name:              "Leak repair",
		Amount:            15000,
		EstimatedDuration: 60,
		Emirates:          []domain.Emirate{domain.EmirateDubai},
	}, now.Add(-time.Hour))
	require.NoError(t, err)

	bookings := &bookingStore{byID: map[uuid.UUID]*bookingDomain.Booking{}}
	offerings := &offeringStore{byID: map[uuid.UUID]*offeringDomain.Offering{o.ID(): o}}
	log := zap.NewNop()

	bookingSvc := application.NewBookingService(
		bookings,
		offerings,
		bookingDomain.NewStandardPricingStrategy(bookingDomain.PricingPolicy{CommissionBPS: 1500, VatBPS: 500}),
		bookingDomain.NewRandomNumberGenerator(gst),
		nil,
		clk,
		config.BookingPolicy{MaxReschedules: 2, NumberRetries: 3, Location: gst},
		log,
	)
	offeringSvc := application.NewOfferingService(offerings, clk, log)
	photoSvc := application.NewPhotoService(&photoStore{}, bookings, clk, log)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	r := gin.New()
	NewBookingHandler(bookingSvc, gst).RegisterRoutes(&r.RouterGroup, jwtManager)
	NewPhotoHandler(photoSvc).RegisterRoutes(&r.RouterGroup, jwtManager)
	NewOfferingHandler(offeringSvc).RegisterRoutes(&r.RouterGroup, jwtManager)
	NewAdminBookingHandler(bookingSvc, gst).RegisterRoutes(&r.RouterGroup, jwtManager)

	return &testServer{
		router:   r,
		jwt:      jwtManager,
		offering: o,
		client:   uuid.New(),
		provider: providerID,
		admin:    uuid.New(),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

func (s *testServer) do(t *testing.T, method, path string, userID uuid.UUID, role auth.Role, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, err := s.jwt.GenerateAccessToken(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) createBooking(t *testing.T) application.BookingDTO {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/bookings", s.client, auth.RoleClient, map[string]any{
		"service_id":     s.offering.ID(),
		"scheduled_date": "2025-03-12",
		"scheduled_time": "09:30",
		"location":       map[string]any{"address": "JLT Cluster D", "emirate": "Dubai", "city": "Dubai"},
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	var dto application.BookingDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	return dto
}

func TestCreateBooking_Created(t *testing.T) {
	s := newTestServer(t)
	dto := s.createBooking(t)

	assert.Equal(t, "PENDING", dto.Status)
	assert.Equal(t, s.client, dto.ClientID)
	assert.Equal(t, s.provider, dto.ProviderID)
	assert.Len(t, dto.BookingNumber, 12)
	assert.Equal(t, "UAE-"+dto.BookingNumber, dto.FormattedBookingNumber)
	assert.Equal(t, 60, dto.Duration)
}

func TestCreateBooking_AuthAndRole(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/bookings", uuid.Nil, "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, env = s.do(t, http.MethodPost, "/api/v1/bookings", s.provider, auth.RoleProvider, map[string]any{})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(domain.CodeForbidden), env.Error.Code)
}

func TestCreateBooking_BindError(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/bookings", s.client, auth.RoleClient, map[string]any{
		"scheduled_date": "2025-03-12",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(domain.CodeValidation), env.Error.Code)
}

func TestGetBooking(t *testing.T) {
	s := newTestServer(t)
	dto := s.createBooking(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/bookings/"+dto.ID.String(), s.provider, auth.RoleProvider, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, _ = s.do(t, http.MethodGet, "/api/v1/bookings/"+dto.ID.String(), uuid.New(), auth.RoleClient, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/bookings/not-a-uuid", s.client, auth.RoleClient, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/bookings/"+uuid.NewString(), s.client, auth.RoleClient, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/bookings/number/"+dto.FormattedBookingNumber, s.client, auth.RoleClient, nil)
	assert.Equal(t, http.StatusOK, code)
	var byNumber application.BookingDTO
	require.NoError(t, json.Unmarshal(env.Data, &byNumber))
	assert.Equal(t, dto.ID, byNumber.ID)
}

func TestLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	dto := s.createBooking(t)
	base := "/api/v1/bookings/" + dto.ID.String()

	code, env := s.do(t, http.MethodPatch, base+"/status", s.client, auth.RoleClient, map[string]any{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(domain.CodeForbidden), env.Error.Code)

	code, env = s.do(t, http.MethodPatch, base+"/status", s.provider, auth.RoleProvider, map[string]any{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = s.do(t, http.MethodPatch, base+"/status", s.provider, auth.RoleProvider, map[string]any{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(domain.CodeInvalidTransition), env.Error.Code)

	code, env = s.do(t, http.MethodPatch, base+"/status", s.provider, auth.RoleProvider, map[string]any{"status": "COMPLETED"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(domain.CodeValidation), env.Error.Code)

	code, env = s.do(t, http.MethodGet, base+"/refund-quote", s.client, auth.RoleClient, nil)
	require.Equal(t, http.StatusOK, code)
	var quote application.RefundQuoteDTO
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.True(t, quote.CanBeCancelled)
	assert.Equal(t, int64(0), quote.PenaltyAmount, "more than 24 hours out")

	code, _ = s.do(t, http.MethodPost, base+"/cancel", s.client, auth.RoleClient, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code, "reason is required")

	code, env = s.do(t, http.MethodPost, base+"/cancel", s.client, auth.RoleClient, map[string]any{"reason": "travelling"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var cancelled application.BookingDTO
	require.NoError(t, json.Unmarshal(env.Data, &cancelled))
	assert.Equal(t, "CANCELLED", cancelled.Status)
	require.NotNil(t, cancelled.Cancellation)
	assert.Equal(t, "travelling", cancelled.Cancellation.Reason)
}

func TestRescheduleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	dto := s.createBooking(t)
	path := "/api/v1/bookings/" + dto.ID.String() + "/reschedule"

	code, env := s.do(t, http.MethodPost, path, s.client, auth.RoleClient, map[string]any{
		"new_date": "2025-03-13", "new_time": "11:00", "reason": "meeting",
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var moved application.BookingDTO
	require.NoError(t, json.Unmarshal(env.Data, &moved))
	assert.Equal(t, "2025-03-13", moved.ScheduledDate)
	assert.Equal(t, 1, moved.Rescheduling.Count)

	code, _ = s.do(t, http.MethodPost, path, s.admin, auth.RoleAdmin, map[string]any{
		"new_date": "2025-03-14", "new_time": "11:00", "reason": "admin",
	})
	assert.Equal(t, http.StatusForbidden, code, "admins are not in the reschedule role set")
}

func TestListBookings(t *testing.T) {
	s := newTestServer(t)
	s.createBooking(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/bookings?status=pending", s.client, auth.RoleClient, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.Total)

	code, env = s.do(t, http.MethodGet, "/api/v1/bookings?status=CONFIRMED,COMPLETED", s.client, auth.RoleClient, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(0), env.Meta.Total)

	code, _ = s.do(t, http.MethodGet, "/api/v1/bookings?status=LOST", s.client, auth.RoleClient, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/bookings?from=2025-03-20&to=2025-03-10", s.client, auth.RoleClient, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/bookings/upcoming", s.provider, auth.RoleProvider, nil)
	require.Equal(t, http.StatusOK, code)
	var upcoming []application.BookingDTO
	require.NoError(t, json.Unmarshal(env.Data, &upcoming))
	assert.Len(t, upcoming, 1)
}

func TestPhotos(t *testing.T) {
	s := newTestServer(t)
	dto := s.createBooking(t)
	path := "/api/v1/bookings/" + dto.ID.String() + "/photo"
	body := map[string]any{"photo_type": "before", "photo_url": "https://cdn.example.com/a.jpg"}

	code, env := s.do(t, http.MethodPost, path, s.provider, auth.RoleProvider, body)
	assert.Equal(t, http.StatusConflict, code, "photos are only taken once work has started")
	assert.Equal(t, string(domain.CodeInvalidTransition), env.Error.Code)

	code, _ = s.do(t, http.MethodPost, path, s.client, auth.RoleClient, body)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/bookings/"+dto.ID.String()+"/photos", s.client, auth.RoleClient, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestOfferingRoutes(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/services?category=plumbing", uuid.Nil, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), env.Meta.Total)

	code, _ = s.do(t, http.MethodGet, "/api/v1/services?category=laundry", uuid.Nil, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/services?emergency=maybe", uuid.Nil, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/services/"+s.offering.ID().String(), uuid.Nil, "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := map[string]any{
		"category":           "electrical",
		"name":               "Socket install",
		"amount":             8000,
		"estimated_duration": 45,
		"emirates":           []string{"Dubai", "Sharjah"},
	}
	code, _ = s.do(t, http.MethodPost, "/api/v1/services", uuid.Nil, "", req)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/services", s.provider, auth.RoleProvider, req)
	require.Equal(t, http.StatusCreated, code, env.Error)
	var created application.OfferingDTO
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Socket install", created.Name)

	path := "/api/v1/services/" + created.ID.String()
	code, _ = s.do(t, http.MethodDelete, path, uuid.New(), auth.RoleProvider, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodDelete, path, s.provider, auth.RoleProvider, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	s.createBooking(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/admin/stats/bookings", s.client, auth.RoleClient, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(t, http.MethodGet, "/api/v1/admin/stats/bookings", s.admin, auth.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, code)
	var stats application.BookingStatsDTO
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(1), stats.TotalBookings)
	assert.Equal(t, int64(1), stats.ByStatus["PENDING"])

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/bookings?emirate=dubai&client_id="+s.client.String(), s.admin, auth.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), env.Meta.Total)

	code, _ = s.do(t, http.MethodGet, "/api/v1/admin/bookings?provider_id=nope", s.admin, auth.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/analytics/bookings", s.admin, auth.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, code)
	var analytics bookingDomain.Analytics
	require.NoError(t, json.Unmarshal(env.Data, &analytics))
	assert.Equal(t, int64(1), analytics.TotalBookings)
}
