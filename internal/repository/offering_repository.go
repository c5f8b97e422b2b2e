package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uae-home-services/service-booking/internal/common/domain"
	offeringDomain "github.com/uae-home-services/service-booking/internal/domain/offering"
)

// OfferingModel is the GORM model for the services table.
type OfferingModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProviderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Category          string          `gorm:"type:varchar(20);not null;index"`
	Name              string          `gorm:"type:varchar(100);not null"`
	Description       string          `gorm:"type:text"`
	PriceType         string          `gorm:"type:varchar(10);not null"`
	Amount            int64           `gorm:"not null"`
	Currency          string          `gorm:"type:varchar(3);not null;default:'AED'"`
	Discount          json.RawMessage `gorm:"type:jsonb"`
	EstimatedDuration int             `gorm:"not null"`
	MinimumDuration   int             `gorm:"not null"`
	Emirates          json.RawMessage `gorm:"type:jsonb;not null"`
	AddOns            json.RawMessage `gorm:"type:jsonb;not null"`
	IsEmergency       bool            `gorm:"not null;default:false"`
	EmergencyFee      int64           `gorm:"not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null;default:'active';index"`
	Version           int64           `gorm:"not null;default:1"`
	CreatedAt         time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt         time.Time       `gorm:"type:timestamptz;not null"`
}

func (OfferingModel) TableName() string { return "services" }

// GormOfferingRepository implements the offering Repository using GORM.
type GormOfferingRepository struct {
	db *gorm.DB
}

func NewGormOfferingRepository(db *gorm.DB) *GormOfferingRepository {
	return &GormOfferingRepository{db: db}
}

func (r *GormOfferingRepository) FindByID(ctx context.Context, id uuid.UUID) (*offeringDomain.Offering, error) {
	var model OfferingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Service", id.String())
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return toOfferingDomain(&model)
}

// FindByFilter pages active services. Emirate matching uses jsonb containment.
func (r *GormOfferingRepository) FindByFilter(ctx context.Context, f offeringDomain.Filter) ([]*offeringDomain.Offering, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("status = ?", string(offeringDomain.StatusActive))
		if f.Category != "" {
			q = q.Where("category = ?", string(f.Category))
		}
		if f.Emirate != "" {
			q = q.Where("emirates @> ?", fmt.Sprintf("[%q]", string(f.Emirate)))
		}
		if f.Emergency != nil {
			q = q.Where("is_emergency = ?", *f.Emergency)
		}
		if f.ProviderID != nil {
			q = q.Where("provider_id = ?", *f.ProviderID)
		}
		return q
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&OfferingModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count services: %w", err)
	}

	var models []OfferingModel
	if err := r.db.WithContext(ctx).Scopes(scope).
		Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list services: %w", err)
	}

	items := make([]*offeringDomain.Offering, len(models))
	for i := range models {
		o, err := toOfferingDomain(&models[i])
		if err != nil {
			return nil, 0, err
		}
		items[i] = o
	}
	return items, total, nil
}

func (r *GormOfferingRepository) Save(ctx context.Context, o *offeringDomain.Offering) error {
	model, err := toOfferingModel(o)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save service: %w", err)
	}
	return nil
}

// Update writes o if the stored row still carries the previous version.
func (r *GormOfferingRepository) Update(ctx context.Context, o *offeringDomain.Offering) error {
	model, err := toOfferingModel(o)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&OfferingModel{}).
		Where("id = ? AND version = ?", model.ID, o.Version()-1).
		Updates(map[string]interface{}{
			"category":           model.Category,
			"name":               model.Name,
			"description":        model.Description,
			"price_type":         model.PriceType,
			"amount":             model.Amount,
			"discount":           model.Discount,
			"estimated_duration": model.EstimatedDuration,
			"minimum_duration":   model.MinimumDuration,
			"emirates":           model.Emirates,
			"add_ons":            model.AddOns,
			"is_emergency":       model.IsEmergency,
			"emergency_fee":      model.EmergencyFee,
			"status":             model.Status,
			"version":            model.Version,
			"updated_at":         model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update service: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("service was modified by another transaction")
	}
	return nil
}

// --- Conversions ---

func toOfferingModel(o *offeringDomain.Offering) (*OfferingModel, error) {
	var enc encoder
	m := &OfferingModel{
		ID:                o.ID(),
		ProviderID:        o.ProviderID(),
		Category:          string(o.Category()),
		Name:              o.Name(),
		Description:       o.Description(),
		PriceType:         string(o.PriceType()),
		Amount:            o.Amount(),
		Currency:          o.Currency(),
		EstimatedDuration: o.EstimatedDuration(),
		MinimumDuration:   o.MinimumDuration(),
		Emirates:          enc.marshal("emirates", o.Emirates()),
		AddOns:            enc.marshal("add_ons", o.AddOns()),
		IsEmergency:       o.IsEmergencyService(),
		EmergencyFee:      o.EmergencyFee(),
		Status:            string(o.Status()),
		Version:           o.Version(),
		CreatedAt:         o.CreatedAt(),
		UpdatedAt:         o.UpdatedAt(),
	}
	if d := o.Discount(); d != nil {
		m.Discount = enc.marshal("discount", d)
	}
	if enc.err != nil {
		return nil, enc.err
	}
	return m, nil
}

func toOfferingDomain(m *OfferingModel) (*offeringDomain.Offering, error) {
	s := offeringDomain.State{
		ID:         m.ID,
		ProviderID: m.ProviderID,
		Currency:   m.Currency,
		Status:     offeringDomain.Status(m.Status),
		Version:    m.Version,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		Fields: offeringDomain.Fields{
			Category:          offeringDomain.Category(m.Category),
			Name:              m.Name,
			Description:       m.Description,
			PriceType:         offeringDomain.PriceType(m.PriceType),
			Amount:            m.Amount,
			EstimatedDuration: m.EstimatedDuration,
			MinimumDuration:   m.MinimumDuration,
			IsEmergency:       m.IsEmergency,
			EmergencyFee:      m.EmergencyFee,
		},
	}

	var dec decoder
	dec.unmarshal("emirates", m.Emirates, &s.Emirates)
	dec.unmarshal("add_ons", m.AddOns, &s.AddOns)
	if len(m.Discount) > 0 && string(m.Discount) != "null" {
		s.Discount = new(offeringDomain.Discount)
		dec.unmarshal("discount", m.Discount, s.Discount)
	}
	if dec.err != nil {
		return nil, dec.err
	}
	return offeringDomain.Reconstruct(s), nil
}
