package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/uae-home-services/service-booking/internal/common/domain"
	"github.com/uae-home-services/service-booking/internal/common/kafka"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
	offeringDomain "github.com/uae-home-services/service-booking/internal/domain/offering"
	photoDomain "github.com/uae-home-services/service-booking/internal/domain/photo"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// sequenceNumbers hands out the given booking numbers in order, repeating the last one.
type sequenceNumbers struct {
	numbers []string
	calls   int
}

func (g *sequenceNumbers) Generate(time.Time) (string, error) {
	i := g.calls
	if i >= len(g.numbers) {
		i = len(g.numbers) - 1
	}
	g.calls++
	return g.numbers[i], nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, topic string, evt kafka.CloudEvent) error {
	return m.Called(ctx, topic, evt).Error(0)
}

func (m *mockPublisher) publishedTypes() []string {
	var types []string
	for _, call := range m.Calls {
		if call.Method == "PublishEvent" {
			types = append(types, call.Arguments.Get(2).(kafka.CloudEvent).Type)
		}
	}
	return types
}

// memoryBookings is an in-memory BookingRepository with version checks.
type memoryBookings struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*bookingDomain.Booking
	versions map[uuid.UUID]int64
	numbers  map[string]bool
}

func newMemoryBookings() *memoryBookings {
	return &memoryBookings{
		byID:     map[uuid.UUID]*bookingDomain.Booking{},
		versions: map[uuid.UUID]int64{},
		numbers:  map[string]bool{},
	}
}

func (r *memoryBookings) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return bk, nil
}

func (r *memoryBookings) FindByNumber(_ context.Context, number string) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bk := range r.byID {
		if bk.BookingNumber() == number {
			return bk, nil
		}
	}
	return nil, domain.NewNotFoundError("Booking", number)
}

func (r *memoryBookings) matching(f bookingDomain.Filter) []*bookingDomain.Booking {
	var out []*bookingDomain.Booking
	for _, bk := range r.byID {
		if f.Matches(bk) {
			out = append(out, bk)
		}
	}
	return out
}

func (r *memoryBookings) FindUpcoming(_ context.Context, f bookingDomain.Filter, from time.Time) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.matching(f) {
		if bk.Status().IsOpen() && !bk.ScheduledAt().Before(from) {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt().Before(out[j].ScheduledAt()) })
	return out, nil
}

func (r *memoryBookings) FindByFilter(_ context.Context, f bookingDomain.Filter) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(f)
	sort.Slice(all, func(i, j int) bool { return all[i].BookingNumber() > all[j].BookingNumber() })
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *memoryBookings) FindAll(_ context.Context, f bookingDomain.Filter) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matching(f), nil
}

func (r *memoryBookings) CountByStatus(context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, bk := range r.byID {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *memoryBookings) Save(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.numbers[bk.BookingNumber()] {
		return bookingDomain.ErrIdentifierCollision
	}
	r.numbers[bk.BookingNumber()] = true
	r.byID[bk.ID()] = bk
	r.versions[bk.ID()] = bk.Version()
	return nil
}

func (r *memoryBookings) Update(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.versions[bk.ID()] != bk.Version()-1 {
		return bookingDomain.ErrConcurrentModification
	}
	r.byID[bk.ID()] = bk
	r.versions[bk.ID()] = bk.Version()
	return nil
}

type memoryOfferings struct {
	byID map[uuid.UUID]*offeringDomain.Offering
}

func newMemoryOfferings(items ...*offeringDomain.Offering) *memoryOfferings {
	r := &memoryOfferings{byID: map[uuid.UUID]*offeringDomain.Offering{}}
	for _, o := range items {
		r.byID[o.ID()] = o
	}
	return r
}

func (r *memoryOfferings) FindByID(_ context.Context, id uuid.UUID) (*offeringDomain.Offering, error) {
	o, ok := r.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("Service", id.String())
	}
	return o, nil
}

func (r *memoryOfferings) FindByFilter(_ context.Context, f offeringDomain.Filter) ([]*offeringDomain.Offering, int64, error) {
	var out []*offeringDomain.Offering
	for _, o := range r.byID {
		if !o.IsActive() {
			continue
		}
		if f.Category != "" && o.Category() != f.Category {
			continue
		}
		if f.Emirate != "" && !o.ServesEmirate(f.Emirate) {
			continue
		}
		if f.Emergency != nil && o.IsEmergencyService() != *f.Emergency {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (r *memoryOfferings) Save(_ context.Context, o *offeringDomain.Offering) error {
	r.byID[o.ID()] = o
	return nil
}

func (r *memoryOfferings) Update(_ context.Context, o *offeringDomain.Offering) error {
	r.byID[o.ID()] = o
	return nil
}

type memoryPhotos struct {
	items []*photoDomain.BookingPhoto
}

func (r *memoryPhotos) Save(ctx context.Context, p *photoDomain.BookingPhoto, limit int) error {
	same, _ := r.FindByBooking(ctx, p.BookingID(), p.PhotoType())
	if len(same) >= limit {
		return photoDomain.ErrLimitReached
	}
	r.items = append(r.items, p)
	return nil
}

func (r *memoryPhotos) FindByBooking(_ context.Context, bookingID uuid.UUID, kind photoDomain.PhotoType) ([]*photoDomain.BookingPhoto, error) {
	var out []*photoDomain.BookingPhoto
	for _, p := range r.items {
		if p.BookingID() == bookingID && (kind == "" || p.PhotoType() == kind) {
			out = append(out, p)
		}
	}
	return out, nil
}
