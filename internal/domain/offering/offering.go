package offering

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/uae-home-services/service-booking/internal/common/domain"
)

// MinDurationMinutes is the shortest duration a service can advertise.
const MinDurationMinutes = 15

// Category groups catalog entries.
type Category string

const (
	CategoryCleaning    Category = "cleaning"
	CategoryMaintenance Category = "maintenance"
	CategoryElectrical  Category = "electrical"
	CategoryPlumbing    Category = "plumbing"
	CategoryAC          Category = "ac"
	CategoryPainting    Category = "painting"
	CategoryGardening   Category = "gardening"
	CategoryPestControl Category = "pest-control"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryCleaning, CategoryMaintenance, CategoryElectrical, CategoryPlumbing,
		CategoryAC, CategoryPainting, CategoryGardening, CategoryPestControl:
		return true
	}
	return false
}

// PriceType says how the advertised amount is charged.
type PriceType string

const (
	PriceFixed  PriceType = "FIXED"
	PriceHourly PriceType = "HOURLY"
	PriceCustom PriceType = "CUSTOM"
)

// IsValid reports whether p is a known price type.
func (p PriceType) IsValid() bool {
	return p == PriceFixed || p == PriceHourly || p == PriceCustom
}

// Status represents the lifecycle state of a catalog entry.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Discount is a percentage off the service price, optionally time-limited.
type Discount struct {
	Percent    int64      `json:"percent"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// AddOn is an optional (or mandatory) extra offered with the service.
type AddOn struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Required bool   `json:"required"`
}

// Offering is the aggregate root for a provider's catalog entry.
type Offering struct {
	id                uuid.UUID
	providerID        uuid.UUID
	category          Category
	name              string
	description       string
	priceType         PriceType
	amount            int64
	currency          string
	discount          *Discount
	estimatedDuration int
	minimumDuration   int
	emirates          []domain.Emirate
	addOns            []AddOn
	isEmergency       bool
	emergencyFee      int64
	status            Status
	version           int64
	createdAt         time.Time
	updatedAt         time.Time
}

// Fields carries the editable attributes of an offering.
type Fields struct {
	Category          Category
	Name              string
	Description       string
	PriceType         PriceType
	Amount            int64
	Discount          *Discount
	EstimatedDuration int
	MinimumDuration   int
	Emirates          []domain.Emirate
	AddOns            []AddOn
	IsEmergency       bool
	EmergencyFee      int64
}

func (f *Fields) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	if f.PriceType == "" {
		f.PriceType = PriceFixed
	}
	if f.MinimumDuration == 0 {
		f.MinimumDuration = f.EstimatedDuration
	}
	if f.AddOns == nil {
		f.AddOns = []AddOn{}
	}
	if !f.IsEmergency {
		f.EmergencyFee = 0
	}
}

func (f Fields) validate() error {
	if !f.Category.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid category: %s", f.Category))
	}
	if f.Name == "" {
		return domain.NewValidationError("service name is required")
	}
	if utf8.RuneCountInString(f.Name) > 100 {
		return domain.NewValidationError("service name must be at most 100 characters")
	}
	if utf8.RuneCountInString(f.Description) > 2000 {
		return domain.NewValidationError("description must be at most 2000 characters")
	}
	if !f.PriceType.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid price type: %s", f.PriceType))
	}
	if f.Amount <= 0 {
		return domain.NewValidationError("price amount must be positive")
	}
	if f.Discount != nil && (f.Discount.Percent < 0 || f.Discount.Percent > 100) {
		return domain.NewValidationError("discount must be between 0 and 100 percent")
	}
	if f.EstimatedDuration < MinDurationMinutes || f.MinimumDuration < MinDurationMinutes {
		return domain.NewValidationError(fmt.Sprintf("durations must be at least %d minutes", MinDurationMinutes))
	}
	if len(f.Emirates) == 0 {
		return domain.NewValidationError("at least one emirate must be served")
	}
	for _, e := range f.Emirates {
		if !e.IsValid() {
			return domain.NewValidationError(fmt.Sprintf("invalid emirate: %s", e))
		}
	}
	seen := make(map[string]bool, len(f.AddOns))
	for _, a := range f.AddOns {
		if a.ID == "" || a.Name == "" {
			return domain.NewValidationError("add-ons need an id and a name")
		}
		if a.Price < 0 {
			return domain.NewValidationError(fmt.Sprintf("add-on %s has a negative price", a.ID))
		}
		if seen[a.ID] {
			return domain.NewValidationError(fmt.Sprintf("duplicate add-on id: %s", a.ID))
		}
		seen[a.ID] = true
	}
	if f.EmergencyFee < 0 {
		return domain.NewValidationError("emergency fee cannot be negative")
	}
	return nil
}

// NewOffering creates a new active catalog entry for providerID.
func NewOffering(providerID uuid.UUID, f Fields, now time.Time) (*Offering, error) {
	if providerID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	f.normalize()
	if err := f.validate(); err != nil {
		return nil, err
	}

	o := &Offering{
		id:         uuid.New(),
		providerID: providerID,
		currency:   domain.CurrencyAED,
		status:     StatusActive,
		version:    1,
		createdAt:  now,
	}
	o.apply(f, now)
	return o, nil
}

// State is the persisted form of an offering.
type State struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Currency   string
	Status     Status
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Fields
}

// Reconstruct rebuilds an Offering from persistence data (no validation).
func Reconstruct(s State) *Offering {
	o := &Offering{
		id:         s.ID,
		providerID: s.ProviderID,
		currency:   s.Currency,
		status:     s.Status,
		version:    s.Version,
		createdAt:  s.CreatedAt,
	}
	o.apply(s.Fields, s.UpdatedAt)
	return o
}

func (o *Offering) apply(f Fields, now time.Time) {
	o.category = f.Category
	o.name = f.Name
	o.description = f.Description
	o.priceType = f.PriceType
	o.amount = f.Amount
	o.discount = f.Discount
	o.estimatedDuration = f.EstimatedDuration
	o.minimumDuration = f.MinimumDuration
	o.emirates = f.Emirates
	o.addOns = f.AddOns
	o.isEmergency = f.IsEmergency
	o.emergencyFee = f.EmergencyFee
	o.updatedAt = now
}

// --- Getters ---

func (o *Offering) ID() uuid.UUID            { return o.id }
func (o *Offering) ProviderID() uuid.UUID    { return o.providerID }
func (o *Offering) Category() Category       { return o.category }
func (o *Offering) Name() string             { return o.name }
func (o *Offering) Description() string      { return o.description }
func (o *Offering) PriceType() PriceType     { return o.priceType }
func (o *Offering) Amount() int64            { return o.amount }
func (o *Offering) Currency() string         { return o.currency }
func (o *Offering) Discount() *Discount      { return o.discount }
func (o *Offering) EstimatedDuration() int   { return o.estimatedDuration }
func (o *Offering) MinimumDuration() int     { return o.minimumDuration }
func (o *Offering) IsEmergencyService() bool { return o.isEmergency }
func (o *Offering) EmergencyFee() int64      { return o.emergencyFee }
func (o *Offering) Status() Status           { return o.status }
func (o *Offering) Version() int64           { return o.version }
func (o *Offering) CreatedAt() time.Time     { return o.createdAt }
func (o *Offering) UpdatedAt() time.Time     { return o.updatedAt }

// Emirates returns a copy of the served emirates.
func (o *Offering) Emirates() []domain.Emirate {
	return append([]domain.Emirate(nil), o.emirates...)
}

// AddOns returns a copy of the add-on list.
func (o *Offering) AddOns() []AddOn {
	return append([]AddOn{}, o.addOns...)
}

// Fields returns the editable attributes, e.g. for persistence.
func (o *Offering) Fields() Fields {
	return Fields{
		Category:          o.category,
		Name:              o.name,
		Description:       o.description,
		PriceType:         o.priceType,
		Amount:            o.amount,
		Discount:          o.discount,
		EstimatedDuration: o.estimatedDuration,
		MinimumDuration:   o.minimumDuration,
		Emirates:          o.Emirates(),
		AddOns:            o.AddOns(),
		IsEmergency:       o.isEmergency,
		EmergencyFee:      o.emergencyFee,
	}
}

// --- Behavior ---

// IsOwnedBy checks if the offering belongs to the given provider.
func (o *Offering) IsOwnedBy(providerID uuid.UUID) bool {
	return o.providerID == providerID
}

// IsActive returns true if the offering can still be booked.
func (o *Offering) IsActive() bool {
	return o.status == StatusActive
}

// ServesEmirate reports whether the provider works in e.
func (o *Offering) ServesEmirate(e domain.Emirate) bool {
	for _, served := range o.emirates {
		if served == e {
			return true
		}
	}
	return false
}

// DiscountPercentAt returns the discount in force at now, or 0.
func (o *Offering) DiscountPercentAt(now time.Time) int64 {
	if o.discount == nil || o.discount.Percent == 0 {
		return 0
	}
	if o.discount.ValidUntil != nil && now.After(*o.discount.ValidUntil) {
		return 0
	}
	return o.discount.Percent
}

// DiscountedPrice is the amount after the discount in force at now, rounded half-up.
func (o *Offering) DiscountedPrice(now time.Time) int64 {
	pct := o.DiscountPercentAt(now)
	return o.amount - (o.amount*pct+50)/100
}

// ResolveAddOns returns the selected add-ons plus every required one, in
// catalog order. Unknown ids are rejected.
func (o *Offering) ResolveAddOns(selected []string) ([]AddOn, error) {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	resolved := make([]AddOn, 0, len(o.addOns))
	for _, a := range o.addOns {
		if a.Required || want[a.ID] {
			resolved = append(resolved, a)
			delete(want, a.ID)
		}
	}
	for id := range want {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown add-on: %s", id))
	}
	return resolved, nil
}

// Update replaces the editable attributes and bumps the version.
func (o *Offering) Update(f Fields, now time.Time) error {
	if !o.IsActive() {
		return domain.NewConflictError("archived services cannot be edited")
	}
	f.normalize()
	if err := f.validate(); err != nil {
		return err
	}
	o.apply(f, now)
	o.version++
	return nil
}

// Archive takes the offering off the catalog. It reports false when the
// offering was already archived.
func (o *Offering) Archive(now time.Time) bool {
	if o.status == StatusArchived {
		return false
	}
	o.status = StatusArchived
	o.updatedAt = now
	o.version++
	return true
}
