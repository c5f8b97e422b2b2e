package offering

import (
	"context"

	"github.com/google/uuid"

	"github.com/uae-home-services/service-booking/internal/common/domain"
)

// Filter narrows catalog listings. Only active offerings are listed.
type Filter struct {
	Category   Category
	Emirate    domain.Emirate
	Emergency  *bool
	ProviderID *uuid.UUID
	Page       int
	Limit      int
}

// Repository defines persistence operations for catalog entries.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Offering, error)
	FindByFilter(ctx context.Context, f Filter) ([]*Offering, int64, error)
	Save(ctx context.Context, o *Offering) error
	Update(ctx context.Context, o *Offering) error
}
