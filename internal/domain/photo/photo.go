package photo

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/uae-home-services/service-booking/internal/common/domain"
)

// PhotoType tells whether a photo shows the site before or after the job.
type PhotoType string

const (
	PhotoTypeBefore PhotoType = "before"
	PhotoTypeAfter  PhotoType = "after"
)

// MaxPerType caps how many before (or after) photos one booking may carry.
const MaxPerType = 10

// ErrLimitReached is returned when a booking already has MaxPerType photos of a kind.
var ErrLimitReached = domain.NewValidationError(fmt.Sprintf("a booking can hold at most %d photos of each type", MaxPerType))

// IsValid returns true if the photo type is recognized.
func (p PhotoType) IsValid() bool {
	return p == PhotoTypeBefore || p == PhotoTypeAfter
}

// ParsePhotoType accepts "", "before" or "after" in any case. The empty
// string stays empty and means "any".
func ParsePhotoType(raw string) (PhotoType, error) {
	t := PhotoType(strings.ToLower(strings.TrimSpace(raw)))
	if t == "" || t.IsValid() {
		return t, nil
	}
	return "", domain.NewValidationError(fmt.Sprintf("invalid photo type: %s", raw))
}

// BookingPhoto is a provider-uploaded picture attached to a booking.
type BookingPhoto struct {
	id         uuid.UUID
	bookingID  uuid.UUID
	providerID uuid.UUID
	photoType  PhotoType
	photoURL   string
	caption    string
	takenAt    time.Time
	createdAt  time.Time
}

// NewBookingPhoto validates and creates a photo record.
func NewBookingPhoto(bookingID, providerID uuid.UUID, photoType PhotoType, photoURL, caption string, now time.Time) (*BookingPhoto, error) {
	if bookingID == uuid.Nil || providerID == uuid.Nil {
		return nil, domain.NewValidationError("booking and provider are required")
	}
	if !photoType.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid photo type: %s", photoType))
	}
	photoURL = strings.TrimSpace(photoURL)
	if !isWebURL(photoURL) {
		return nil, domain.NewValidationError("photo URL must be an http(s) URL")
	}
	if utf8.RuneCountInString(caption) > 500 {
		return nil, domain.NewValidationError("caption must be at most 500 characters")
	}

	return &BookingPhoto{
		id:         uuid.New(),
		bookingID:  bookingID,
		providerID: providerID,
		photoType:  photoType,
		photoURL:   photoURL,
		caption:    strings.TrimSpace(caption),
		takenAt:    now,
		createdAt:  now,
	}, nil
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Reconstruct rebuilds a BookingPhoto from persistence.
func Reconstruct(id, bookingID, providerID uuid.UUID, photoType PhotoType, photoURL, caption string, takenAt, createdAt time.Time) *BookingPhoto {
	return &BookingPhoto{
		id:         id,
		bookingID:  bookingID,
		providerID: providerID,
		photoType:  photoType,
		photoURL:   photoURL,
		caption:    caption,
		takenAt:    takenAt,
		createdAt:  createdAt,
	}
}

// Getters.
func (p *BookingPhoto) ID() uuid.UUID         { return p.id }
func (p *BookingPhoto) BookingID() uuid.UUID  { return p.bookingID }
func (p *BookingPhoto) ProviderID() uuid.UUID { return p.providerID }
func (p *BookingPhoto) PhotoType() PhotoType  { return p.photoType }
func (p *BookingPhoto) PhotoURL() string      { return p.photoURL }
func (p *BookingPhoto) Caption() string       { return p.caption }
func (p *BookingPhoto) TakenAt() time.Time    { return p.takenAt }
func (p *BookingPhoto) CreatedAt() time.Time  { return p.createdAt }
