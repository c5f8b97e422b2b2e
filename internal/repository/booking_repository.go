package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uae-home-services/service-booking/internal/common/database"
	"github.com/uae-home-services/service-booking/internal/common/domain"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
)

const bookingNumberIndex = "idx_bookings_booking_number"

// BookingModel is the GORM model for the bookings table.
// Queryable attributes are columns; nested records are stored as jsonb.
type BookingModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingNumber  string          `gorm:"uniqueIndex:idx_bookings_booking_number;not null;size:12"`
	ClientID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProviderID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	ServiceID      uuid.UUID       `gorm:"type:uuid;index;not null"`
	Status         string          `gorm:"not null;size:20;index"`
	ScheduledDate  string          `gorm:"not null;size:10"`
	ScheduledTime  string          `gorm:"not null;size:5"`
	ScheduledAt    time.Time       `gorm:"not null;index"`
	Duration       int             `gorm:"not null"`
	ActualDuration *int            `gorm:""`
	Emirate        string          `gorm:"not null;size:20;index"`
	IsEmergency    bool            `gorm:"not null;default:false"`
	TotalAmount    int64           `gorm:"not null"`
	Currency       string          `gorm:"not null;size:3;default:'AED'"`
	PaymentStatus  string          `gorm:"not null;size:20"`
	Location       json.RawMessage `gorm:"type:jsonb;not null"`
	Pricing        json.RawMessage `gorm:"type:jsonb;not null"`
	Payment        json.RawMessage `gorm:"type:jsonb;not null"`
	Details        json.RawMessage `gorm:"type:jsonb;not null"`
	Timeline       json.RawMessage `gorm:"type:jsonb;not null"`
	Rescheduling   json.RawMessage `gorm:"type:jsonb;not null"`
	Cancellation   json.RawMessage `gorm:"type:jsonb"`
	Completion     json.RawMessage `gorm:"type:jsonb;not null"`
	Emergency      json.RawMessage `gorm:"type:jsonb;not null"`
	Version        int64           `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db                *gorm.DB
	optimisticLocking bool
}

// NewGormBookingRepository creates a new GormBookingRepository. With
// optimisticLocking set, Update only succeeds against the version it loaded.
func NewGormBookingRepository(db *gorm.DB, optimisticLocking bool) *GormBookingRepository {
	return &GormBookingRepository{db: db, optimisticLocking: optimisticLocking}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByNumber retrieves a booking by its booking number.
func (r *GormBookingRepository) FindByNumber(ctx context.Context, number string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", number)
		}
		return nil, fmt.Errorf("failed to find booking by number: %w", err)
	}
	return toDomainBooking(&model)
}

// FindUpcoming returns open bookings scheduled at or after from, soonest first.
func (r *GormBookingRepository) FindUpcoming(ctx context.Context, f bookingDomain.Filter, from time.Time) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	q := applyBookingFilter(r.db.WithContext(ctx), f).
		Where("status IN ?", []string{string(bookingDomain.StatusPending), string(bookingDomain.StatusConfirmed)}).
		Where("scheduled_at >= ?", from).
		Order("scheduled_at ASC")
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find upcoming bookings: %w", err)
	}
	return toDomainBookings(models)
}

// FindByFilter returns one page of bookings matching f, newest first.
func (r *GormBookingRepository) FindByFilter(ctx context.Context, f bookingDomain.Filter) ([]*bookingDomain.Booking, int64, error) {
	f = f.Normalize()

	var total int64
	if err := applyBookingFilter(r.db.WithContext(ctx).Model(&BookingModel{}), f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (f.Page - 1) * f.Limit
	if err := applyBookingFilter(r.db.WithContext(ctx), f).
		Order("created_at DESC").
		Offset(offset).
		Limit(f.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// FindAll returns every booking matching f without paging.
func (r *GormBookingRepository) FindAll(ctx context.Context, f bookingDomain.Filter) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := applyBookingFilter(r.db.WithContext(ctx), f).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return toDomainBookings(models)
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if database.IsUniqueViolation(err, bookingNumberIndex) {
			return bookingDomain.ErrIdentifierCollision
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking. The caller has already
// called IncrementVersion, so the stored row must still hold Version()-1.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	q := r.db.WithContext(ctx).Model(&BookingModel{}).Where("id = ?", model.ID)
	if r.optimisticLocking {
		q = q.Where("version = ?", bk.Version()-1)
	}
	result := q.Updates(map[string]interface{}{
		"status":          model.Status,
		"scheduled_date":  model.ScheduledDate,
		"scheduled_time":  model.ScheduledTime,
		"scheduled_at":    model.ScheduledAt,
		"duration":        model.Duration,
		"actual_duration": model.ActualDuration,
		"emirate":         model.Emirate,
		"is_emergency":    model.IsEmergency,
		"total_amount":    model.TotalAmount,
		"currency":        model.Currency,
		"payment_status":  model.PaymentStatus,
		"location":        model.Location,
		"pricing":         model.Pricing,
		"payment":         model.Payment,
		"details":         model.Details,
		"timeline":        model.Timeline,
		"rescheduling":    model.Rescheduling,
		"cancellation":    model.Cancellation,
		"completion":      model.Completion,
		"emergency":       model.Emergency,
		"version":         model.Version,
		"updated_at":      model.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		if r.optimisticLocking {
			return bookingDomain.ErrConcurrentModification
		}
		return domain.NewNotFoundError("Booking", model.ID.String())
	}
	return nil
}

func applyBookingFilter(q *gorm.DB, f bookingDomain.Filter) *gorm.DB {
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.Emirate != "" {
		q = q.Where("emirate = ?", string(f.Emirate))
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.ProviderID != nil {
		q = q.Where("provider_id = ?", *f.ProviderID)
	}
	if f.ServiceID != nil {
		q = q.Where("service_id = ?", *f.ServiceID)
	}
	if f.ScheduledFrom != nil {
		q = q.Where("scheduled_at >= ?", *f.ScheduledFrom)
	}
	if f.ScheduledTo != nil {
		q = q.Where("scheduled_at <= ?", *f.ScheduledTo)
	}
	return q
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	var (
		enc encoder
		m   = &BookingModel{
			ID:             bk.ID(),
			BookingNumber:  bk.BookingNumber(),
			ClientID:       bk.ClientID(),
			ProviderID:     bk.ProviderID(),
			ServiceID:      bk.ServiceID(),
			Status:         string(bk.Status()),
			ScheduledDate:  bk.ScheduledDate(),
			ScheduledTime:  bk.ScheduledTime(),
			ScheduledAt:    bk.ScheduledAt(),
			Duration:       bk.Duration(),
			ActualDuration: bk.ActualDuration(),
			Emirate:        string(bk.Location().Emirate),
			IsEmergency:    bk.Emergency().IsEmergency,
			TotalAmount:    bk.Pricing().Total,
			Currency:       bk.Pricing().Currency,
			PaymentStatus:  string(bk.Payment().Status),
			Version:        bk.Version(),
			CreatedAt:      bk.CreatedAt(),
			UpdatedAt:      bk.UpdatedAt(),
		}
	)

	m.Location = enc.marshal("location", bk.Location())
	m.Pricing = enc.marshal("pricing", bk.Pricing())
	m.Payment = enc.marshal("payment", bk.Payment())
	m.Details = enc.marshal("details", bk.Details())
	m.Timeline = enc.marshal("timeline", bk.Timeline())
	m.Rescheduling = enc.marshal("rescheduling", bk.Rescheduling())
	m.Completion = enc.marshal("completion", bk.Completion())
	m.Emergency = enc.marshal("emergency", bk.Emergency())
	if c := bk.Cancellation(); c != nil {
		m.Cancellation = enc.marshal("cancellation", c)
	}
	if enc.err != nil {
		return nil, enc.err
	}
	return m, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	s := bookingDomain.State{
		ID:             m.ID,
		BookingNumber:  m.BookingNumber,
		ClientID:       m.ClientID,
		ProviderID:     m.ProviderID,
		ServiceID:      m.ServiceID,
		Status:         status,
		Slot:           bookingDomain.Slot{Date: m.ScheduledDate, Time: m.ScheduledTime, At: m.ScheduledAt},
		Duration:       m.Duration,
		ActualDuration: m.ActualDuration,
		Version:        m.Version,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}

	var dec decoder
	dec.unmarshal("location", m.Location, &s.Location)
	dec.unmarshal("pricing", m.Pricing, &s.Pricing)
	dec.unmarshal("payment", m.Payment, &s.Payment)
	dec.unmarshal("details", m.Details, &s.Details)
	dec.unmarshal("timeline", m.Timeline, &s.Timeline)
	dec.unmarshal("rescheduling", m.Rescheduling, &s.Rescheduling)
	dec.unmarshal("completion", m.Completion, &s.Completion)
	dec.unmarshal("emergency", m.Emergency, &s.Emergency)
	if len(m.Cancellation) > 0 && string(m.Cancellation) != "null" {
		s.Cancellation = new(bookingDomain.Cancellation)
		dec.unmarshal("cancellation", m.Cancellation, s.Cancellation)
	}
	if dec.err != nil {
		return nil, dec.err
	}

	return bookingDomain.Reconstruct(s), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}

// encoder and decoder keep the first jsonb error so conversions read linearly.
type encoder struct{ err error }

func (e *encoder) marshal(field string, v any) json.RawMessage {
	if e.err != nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		e.err = fmt.Errorf("failed to marshal %s: %w", field, err)
		return nil
	}
	return data
}

type decoder struct{ err error }

func (d *decoder) unmarshal(field string, data json.RawMessage, v any) {
	if d.err != nil || len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		d.err = fmt.Errorf("failed to unmarshal %s: %w", field, err)
	}
}
