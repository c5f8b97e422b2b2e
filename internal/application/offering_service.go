package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uae-home-services/service-booking/internal/common/domain"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
	offeringDomain "github.com/uae-home-services/service-booking/internal/domain/offering"
)

// OfferingRequest is the request DTO for creating or replacing a catalog entry.
type OfferingRequest struct {
	Category           string         `json:"category" binding:"required"`
	Name               string         `json:"name" binding:"required,max=100"`
	Description        string         `json:"description" binding:"max=2000"`
	PriceType          string         `json:"price_type" binding:"omitempty,oneof=FIXED HOURLY CUSTOM"`
	Amount             int64          `json:"amount" binding:"required,gt=0"`
	DiscountPercent    int64          `json:"discount_percent" binding:"min=0,max=100"`
	DiscountValidUntil *time.Time     `json:"discount_valid_until"`
	EstimatedDuration  int            `json:"estimated_duration" binding:"required,min=15"`
	MinimumDuration    int            `json:"minimum_duration" binding:"omitempty,min=15"`
	Emirates           []string       `json:"emirates" binding:"required,min=1"`
	AddOns             []AddOnRequest `json:"add_ons" binding:"dive"`
	IsEmergency        bool           `json:"is_emergency_service"`
	EmergencyFee       int64          `json:"emergency_fee" binding:"min=0"`
}

// AddOnRequest is one add-on in an OfferingRequest.
type AddOnRequest struct {
	ID       string `json:"id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Price    int64  `json:"price" binding:"min=0"`
	Required bool   `json:"required"`
}

// OfferingDTO is the API response representation of a catalog entry.
type OfferingDTO struct {
	ID                 uuid.UUID                `json:"id"`
	ProviderID         uuid.UUID                `json:"provider_id"`
	Category           string                   `json:"category"`
	Name               string                   `json:"name"`
	Description        string                   `json:"description,omitempty"`
	PriceType          string                   `json:"price_type"`
	Amount             int64                    `json:"amount"`
	DiscountedAmount   int64                    `json:"discounted_amount"`
	Currency           string                   `json:"currency"`
	Discount           *offeringDomain.Discount `json:"discount,omitempty"`
	EstimatedDuration  int                      `json:"estimated_duration"`
	MinimumDuration    int                      `json:"minimum_duration"`
	Emirates           []domain.Emirate         `json:"emirates"`
	AddOns             []offeringDomain.AddOn   `json:"add_ons"`
	IsEmergencyService bool                     `json:"is_emergency_service"`
	EmergencyFee       int64                    `json:"emergency_fee,omitempty"`
	Status             string                   `json:"status"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// OfferingService implements use cases for the service catalog.
type OfferingService struct {
	repo   offeringDomain.Repository
	clock  bookingDomain.Clock
	logger *zap.Logger
}

// NewOfferingService creates a new OfferingService.
func NewOfferingService(repo offeringDomain.Repository, clock bookingDomain.Clock, logger *zap.Logger) *OfferingService {
	return &OfferingService{repo: repo, clock: clock, logger: logger}
}

// CreateOffering adds a catalog entry for the given provider.
func (s *OfferingService) CreateOffering(ctx context.Context, providerID uuid.UUID, req OfferingRequest) (*OfferingDTO, error) {
	now := s.clock.Now()
	o, err := offeringDomain.NewOffering(providerID, req.toFields(), now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save service: %w", err)
	}

	s.logger.Info("service created",
		zap.String("service_id", o.ID().String()),
		zap.String("provider_id", providerID.String()),
		zap.String("category", string(o.Category())),
	)
	return toOfferingDTO(o, now), nil
}

// GetOffering returns a catalog entry. Archived entries stay readable.
func (s *OfferingService) GetOffering(ctx context.Context, id uuid.UUID) (*OfferingDTO, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toOfferingDTO(o, s.clock.Now()), nil
}

// ListOfferings pages active catalog entries.
func (s *OfferingService) ListOfferings(ctx context.Context, f offeringDomain.Filter) (*domain.PaginatedResult[OfferingDTO], error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	items, total, err := s.repo.FindByFilter(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	now := s.clock.Now()
	dtos := make([]OfferingDTO, len(items))
	for i, o := range items {
		dtos[i] = *toOfferingDTO(o, now)
	}
	result := domain.NewPaginatedResult(dtos, total, f.Page, f.Limit)
	return &result, nil
}

// UpdateOffering replaces the editable attributes of a provider's own entry.
func (s *OfferingService) UpdateOffering(ctx context.Context, providerID, id uuid.UUID, req OfferingRequest) (*OfferingDTO, error) {
	o, err := s.owned(ctx, providerID, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := o.Update(req.toFields(), now); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return toOfferingDTO(o, now), nil
}

// ArchiveOffering takes a provider's own entry off the catalog.
func (s *OfferingService) ArchiveOffering(ctx context.Context, providerID, id uuid.UUID) error {
	o, err := s.owned(ctx, providerID, id)
	if err != nil {
		return err
	}
	if !o.Archive(s.clock.Now()) {
		return nil
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return err
	}
	s.logger.Info("service archived", zap.String("service_id", id.String()))
	return nil
}

func (s *OfferingService) owned(ctx context.Context, providerID, id uuid.UUID) (*offeringDomain.Offering, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(providerID) {
		return nil, domain.NewForbiddenError("service does not belong to this provider")
	}
	return o, nil
}

func (r OfferingRequest) toFields() offeringDomain.Fields {
	f := offeringDomain.Fields{
		Category:          offeringDomain.Category(r.Category),
		Name:              r.Name,
		Description:       r.Description,
		PriceType:         offeringDomain.PriceType(r.PriceType),
		Amount:            r.Amount,
		EstimatedDuration: r.EstimatedDuration,
		MinimumDuration:   r.MinimumDuration,
		IsEmergency:       r.IsEmergency,
		EmergencyFee:      r.EmergencyFee,
	}
	if r.DiscountPercent > 0 {
		f.Discount = &offeringDomain.Discount{Percent: r.DiscountPercent, ValidUntil: r.DiscountValidUntil}
	}
	for _, e := range r.Emirates {
		emirate, ok := domain.ParseEmirate(e)
		if !ok {
			emirate = domain.Emirate(e)
		}
		f.Emirates = append(f.Emirates, emirate)
	}
	for _, a := range r.AddOns {
		f.AddOns = append(f.AddOns, offeringDomain.AddOn{ID: a.ID, Name: a.Name, Price: a.Price, Required: a.Required})
	}
	return f
}

func toOfferingDTO(o *offeringDomain.Offering, now time.Time) *OfferingDTO {
	return &OfferingDTO{
		ID:                 o.ID(),
		ProviderID:         o.ProviderID(),
		Category:           string(o.Category()),
		Name:               o.Name(),
		Description:        o.Description(),
		PriceType:          string(o.PriceType()),
		Amount:             o.Amount(),
		DiscountedAmount:   o.DiscountedPrice(now),
		Currency:           o.Currency(),
		Discount:           o.Discount(),
		EstimatedDuration:  o.EstimatedDuration(),
		MinimumDuration:    o.MinimumDuration(),
		Emirates:           o.Emirates(),
		AddOns:             o.AddOns(),
		IsEmergencyService: o.IsEmergencyService(),
		EmergencyFee:       o.EmergencyFee(),
		Status:             string(o.Status()),
		CreatedAt:          o.CreatedAt(),
		UpdatedAt:          o.UpdatedAt(),
	}
}
