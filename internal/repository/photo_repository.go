package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	photoDomain "github.com/uae-home-services/service-booking/internal/domain/photo"
)

// PhotoModel is the GORM model for the booking_photos table.
type PhotoModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ProviderID uuid.UUID `gorm:"type:uuid;not null"`
	PhotoType  string    `gorm:"type:varchar(10);not null"`
	PhotoURL   string    `gorm:"type:text;not null"`
	Caption    string    `gorm:"type:varchar(500)"`
	TakenAt    time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (PhotoModel) TableName() string { return "booking_photos" }

// GormPhotoRepository implements PhotoRepository using GORM.
type GormPhotoRepository struct {
	db *gorm.DB
}

// NewGormPhotoRepository creates a new GormPhotoRepository.
func NewGormPhotoRepository(db *gorm.DB) *GormPhotoRepository {
	return &GormPhotoRepository{db: db}
}

// Save persists a new booking photo. The booking row is locked for the
// transaction so concurrent uploads see each other's count.
func (r *GormPhotoRepository) Save(ctx context.Context, photo *photoDomain.BookingPhoto, limit int) error {
	model := toPhotoModel(photo)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT 1 FROM bookings WHERE id = ? FOR UPDATE", model.BookingID).Error; err != nil {
			return fmt.Errorf("failed to lock booking: %w", err)
		}

		var n int64
		if err := tx.Model(&PhotoModel{}).Scopes(photosOf(model.BookingID, photo.PhotoType())).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to count photos: %w", err)
		}
		if n >= int64(limit) {
			return photoDomain.ErrLimitReached
		}

		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to save photo: %w", err)
		}
		return nil
	})
}

// FindByBooking returns a booking's photos of the given kind, oldest first.
func (r *GormPhotoRepository) FindByBooking(ctx context.Context, bookingID uuid.UUID, kind photoDomain.PhotoType) ([]*photoDomain.BookingPhoto, error) {
	var models []PhotoModel
	if err := r.db.WithContext(ctx).Scopes(photosOf(bookingID, kind)).Order("taken_at ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}

	photos := make([]*photoDomain.BookingPhoto, len(models))
	for i := range models {
		photos[i] = toPhotoDomain(&models[i])
	}
	return photos, nil
}

func photosOf(bookingID uuid.UUID, kind photoDomain.PhotoType) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("booking_id = ?", bookingID)
		if kind != "" {
			db = db.Where("photo_type = ?", string(kind))
		}
		return db
	}
}

func toPhotoModel(p *photoDomain.BookingPhoto) PhotoModel {
	return PhotoModel{
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

func toPhotoDomain(m *PhotoModel) *photoDomain.BookingPhoto {
	return photoDomain.Reconstruct(
		m.ID,
		m.BookingID,
		m.ProviderID,
		photoDomain.PhotoType(m.PhotoType),
		m.PhotoURL,
		m.Caption,
		m.TakenAt,
		m.CreatedAt,
	)
}
