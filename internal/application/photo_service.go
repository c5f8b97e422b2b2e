package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uae-home-services/service-booking/internal/common/domain"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
	photoDomain "github.com/uae-home-services/service-booking/internal/domain/photo"
)

// UploadPhotoRequest holds the data to attach a before/after photo.
type UploadPhotoRequest struct {
	PhotoType string `json:"photo_type" binding:"required,oneof=before after"`
	PhotoURL  string `json:"photo_url" binding:"required,url"`
	Caption   string `json:"caption" binding:"max=500"`
}

// PhotoDTO is the API response representation of a booking photo.
type PhotoDTO struct {
	ID         uuid.UUID `json:"id"`
	BookingID  uuid.UUID `json:"booking_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	PhotoType  string    `json:"photo_type"`
	PhotoURL   string    `json:"photo_url"`
	Caption    string    `json:"caption,omitempty"`
	TakenAt    time.Time `json:"taken_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// PhotoService handles booking photo use cases.
type PhotoService struct {
	repo     photoDomain.PhotoRepository
	bookings bookingDomain.BookingRepository
	clock    bookingDomain.Clock
	logger   *zap.Logger
}

// NewPhotoService creates a new PhotoService.
func NewPhotoService(
	repo photoDomain.PhotoRepository,
	bookings bookingDomain.BookingRepository,
	clock bookingDomain.Clock,
	logger *zap.Logger,
) *PhotoService {
	return &PhotoService{repo: repo, bookings: bookings, clock: clock, logger: logger}
}

// UploadPhoto attaches a photo to a booking the provider is working on or has finished.
func (s *PhotoService) UploadPhoto(ctx context.Context, providerID, bookingID uuid.UUID, req UploadPhotoRequest) (*PhotoDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsProvider(providerID) {
		return nil, domain.NewForbiddenError("booking is not assigned to this provider")
	}
	if st := bk.Status(); st != bookingDomain.StatusInProgress && st != bookingDomain.StatusCompleted {
		return nil, domain.NewAppError(domain.CodeInvalidTransition, "photos can only be added once work has started")
	}

	kind := photoDomain.PhotoType(req.PhotoType)
	photo, err := photoDomain.NewBookingPhoto(
		bookingID,
		providerID,
		kind,
		req.PhotoURL,
		req.Caption,
		s.clock.Now(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, photo, photoDomain.MaxPerType); err != nil {
		return nil, err
	}

	s.logger.Info("photo uploaded",
		zap.String("booking_id", bookingID.String()),
		zap.String("photo_type", req.PhotoType),
	)

	return toPhotoDTO(photo), nil
}

// GetBookingPhotos returns a booking's photos to its participants. kind may be
// empty for both before and after photos.
func (s *PhotoService) GetBookingPhotos(ctx context.Context, caller Caller, bookingID uuid.UUID, kind string) ([]*PhotoDTO, error) {
	photoType, err := photoDomain.ParsePhotoType(kind)
	if err != nil {
		return nil, err
	}

	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(bk, caller); err != nil {
		return nil, err
	}

	photos, err := s.repo.FindByBooking(ctx, bookingID, photoType)
	if err != nil {
		return nil, err
	}

	dtos := make([]*PhotoDTO, len(photos))
	for i, p := range photos {
		dtos[i] = toPhotoDTO(p)
	}
	return dtos, nil
}

func toPhotoDTO(p *photoDomain.BookingPhoto) *PhotoDTO {
	return &PhotoDTO{
		ID:         p.ID(),
		BookingID:  p.BookingID(),
		ProviderID: p.ProviderID(),
		PhotoType:  string(p.PhotoType()),
		PhotoURL:   p.PhotoURL(),
		Caption:    p.Caption(),
		TakenAt:    p.TakenAt(),
		CreatedAt:  p.CreatedAt(),
	}
}
