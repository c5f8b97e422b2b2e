package domain

import "strings"

// CurrencyAED is the only currency the marketplace settles in.
const CurrencyAED = "AED"

// Emirate is one of the seven UAE emirates used for location filtering.
type Emirate string

const (
	EmirateDubai        Emirate = "Dubai"
	EmirateAbuDhabi     Emirate = "Abu Dhabi"
	EmirateSharjah      Emirate = "Sharjah"
	EmirateAjman        Emirate = "Ajman"
	EmirateUmmAlQuwain  Emirate = "Umm Al Quwain"
	EmirateRasAlKhaimah Emirate = "Ras Al Khaimah"
	EmirateFujairah     Emirate = "Fujairah"
)

// Emirates lists every supported emirate.
var Emirates = []Emirate{
	EmirateDubai,
	EmirateAbuDhabi,
	EmirateSharjah,
	EmirateAjman,
	EmirateUmmAlQuwain,
	EmirateRasAlKhaimah,
	EmirateFujairah,
}

// IsValid returns true if the emirate is one of the seven UAE emirates.
func (e Emirate) IsValid() bool {
	for _, known := range Emirates {
		if e == known {
			return true
		}
	}
	return false
}

// ParseEmirate matches an emirate name case-insensitively.
func ParseEmirate(s string) (Emirate, bool) {
	s = strings.TrimSpace(s)
	for _, known := range Emirates {
		if strings.EqualFold(string(known), s) {
			return known, true
		}
	}
	return "", false
}

// PaginatedResult is a page of items plus the total count.
type PaginatedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginatedResult builds a PaginatedResult and derives the page count.
func NewPaginatedResult[T any](items []T, total int64, page, limit int) PaginatedResult[T] {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	if items == nil {
		items = []T{}
	}
	return PaginatedResult[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
