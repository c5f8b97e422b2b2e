package booking

import (
	"fmt"

	"github.com/uae-home-services/service-booking/internal/common/domain"
)

// Amounts are int64 fils (1 AED = 100 fils). Rates are basis points.

// AddOnPrice is one priced extra captured on the booking.
type AddOnPrice struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// DiscountType distinguishes percentage and fixed discounts.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount is the discount applied when the booking was priced.
type Discount struct {
	Type   DiscountType `json:"type"`
	Value  int64        `json:"value"`
	Code   string       `json:"code,omitempty"`
	Amount int64        `json:"amount"`
}

// PricingSnapshot is the price breakdown fixed at creation. It is never
// recalculated afterwards.
type PricingSnapshot struct {
	ServicePrice int64        `json:"service_price"`
	AddOnsPrices []AddOnPrice `json:"add_ons_prices"`
	Subtotal     int64        `json:"subtotal"`
	PlatformFee  int64        `json:"platform_fee"`
	Commission   int64        `json:"commission"`
	EmergencyFee *int64       `json:"emergency_fee,omitempty"`
	Discount     *Discount    `json:"discount,omitempty"`
	Taxes        int64        `json:"taxes"`
	Total        int64        `json:"total"`
	Currency     string       `json:"currency"`
}

func (p PricingSnapshot) validate() error {
	if p.Currency != domain.CurrencyAED {
		return domain.NewValidationError(fmt.Sprintf("unsupported currency: %s", p.Currency))
	}
	if p.ServicePrice < 0 || p.Subtotal < 0 || p.PlatformFee < 0 || p.Commission < 0 || p.Taxes < 0 || p.Total < 0 {
		return domain.NewValidationError("pricing amounts cannot be negative")
	}
	for _, a := range p.AddOnsPrices {
		if a.Price < 0 {
			return domain.NewValidationError("add-on price cannot be negative")
		}
	}
	return nil
}

// PricingPolicy holds the marketplace rates.
type PricingPolicy struct {
	CommissionBPS  int64
	PlatformFeeBPS int64
	VatBPS         int64
}

// PricingParams holds the inputs for price calculation.
type PricingParams struct {
	ServicePrice    int64
	AddOns          []AddOnPrice
	DiscountPercent int64
	DiscountCode    string
	EmergencyFee    int64
	IsEmergency     bool
}

// PricingStrategy defines the interface for calculating booking prices.
type PricingStrategy interface {
	Calculate(params PricingParams) (PricingSnapshot, error)
}

// StandardPricingStrategy implements the default marketplace pricing.
type StandardPricingStrategy struct {
	policy PricingPolicy
}

// NewStandardPricingStrategy creates a StandardPricingStrategy.
func NewStandardPricingStrategy(policy PricingPolicy) *StandardPricingStrategy {
	return &StandardPricingStrategy{policy: policy}
}

// Calculate builds the snapshot:
//
//	subtotal    = service price + add-ons
//	discount    = service price × discount %
//	platformFee = subtotal × platform fee
//	taxes       = (subtotal − discount + emergency fee + platform fee) × VAT
//	total       = subtotal − discount + emergency fee + platform fee + taxes
//	commission  = (subtotal − discount) × commission, provider side only
func (s *StandardPricingStrategy) Calculate(params PricingParams) (PricingSnapshot, error) {
	if params.ServicePrice <= 0 {
		return PricingSnapshot{}, domain.NewValidationError("service price must be positive")
	}
	if params.DiscountPercent < 0 || params.DiscountPercent > 100 {
		return PricingSnapshot{}, domain.NewValidationError("discount percentage must be between 0 and 100")
	}
	if params.EmergencyFee < 0 {
		return PricingSnapshot{}, domain.NewValidationError("emergency fee cannot be negative")
	}

	addOns := make([]AddOnPrice, 0, len(params.AddOns))
	subtotal := params.ServicePrice
	for _, a := range params.AddOns {
		if a.Price < 0 {
			return PricingSnapshot{}, domain.NewValidationError(fmt.Sprintf("add-on %s has a negative price", a.ID))
		}
		subtotal += a.Price
		addOns = append(addOns, a)
	}

	snap := PricingSnapshot{
		ServicePrice: params.ServicePrice,
		AddOnsPrices: addOns,
		Subtotal:     subtotal,
		Currency:     domain.CurrencyAED,
	}

	var discount int64
	if params.DiscountPercent > 0 {
		discount = percentOf(params.ServicePrice, params.DiscountPercent)
		snap.Discount = &Discount{
			Type:   DiscountPercentage,
			Value:  params.DiscountPercent,
			Code:   params.DiscountCode,
			Amount: discount,
		}
	}

	var emergencyFee int64
	if params.IsEmergency && params.EmergencyFee > 0 {
		emergencyFee = params.EmergencyFee
		snap.EmergencyFee = &emergencyFee
	}

	snap.PlatformFee = ApplyBPS(subtotal, s.policy.PlatformFeeBPS)
	taxable := subtotal - discount + emergencyFee + snap.PlatformFee
	snap.Taxes = ApplyBPS(taxable, s.policy.VatBPS)
	snap.Total = taxable + snap.Taxes
	snap.Commission = ApplyBPS(subtotal-discount, s.policy.CommissionBPS)

	return snap, nil
}

// ApplyBPS returns amount × bps / 10000, rounded half-up.
func ApplyBPS(amount, bps int64) int64 {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*bps + 5000) / 10000
}

func percentOf(amount, pct int64) int64 {
	return (amount*pct + 50) / 100
}
