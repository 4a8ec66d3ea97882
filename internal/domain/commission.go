package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "pending"
	CommissionCredited  CommissionStatus = "credited"
	CommissionPaid      CommissionStatus = "paid"
	CommissionCancelled CommissionStatus = "cancelled"
)

// RateSource records which of the three rate lookups won for a commission.
type RateSource string

const (
	RateSourceProductType RateSource = "product_type"
	RateSourceReferral    RateSource = "referral"
	RateSourceTier        RateSource = "tier"
	RateSourceNone        RateSource = "none"
)

// Commission is one earned-commission row for a (sold line, artist) pair.
// The amount is computed once at creation and never recomputed; later
// settings changes do not touch existing rows.
type Commission struct {
	ID          string           `json:"id"`
	ArtistID    string           `json:"artist_id"`
	OrderLineID string           `json:"order_line_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Rate        decimal.Decimal  `json:"rate"`
	Source      RateSource       `json:"source"`
	Status      CommissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	PaidAt      *time.Time       `json:"paid_at,omitempty"`
}

// CanTransition reports whether the status state machine allows moving from
// s to next. Transitions are monotonic along pending -> credited -> paid;
// cancellation is reachable only from pending.
func (s CommissionStatus) CanTransition(next CommissionStatus) bool {
	switch s {
	case CommissionPending:
		return next == CommissionCredited || next == CommissionCancelled
	case CommissionCredited:
		return next == CommissionPaid
	default:
		return false
	}
}

// SoldLine is the engine's view of one line item of a sale, as delivered by
// the sale event source. The referral code, when present, came from the
// line's checkout metadata.
type SoldLine struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	ProductID     string          `json:"product_id"`
	ProductTypeID string          `json:"product_type_id"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	ReferralCode  string          `json:"referral_code,omitempty"`
	Status        LineStatus      `json:"status"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type LineStatus string

const (
	LineCreated   LineStatus = "created"
	LineFulfilled LineStatus = "fulfilled"
	LineCancelled LineStatus = "cancelled"
)

// GrossTotal returns the line's gross value (unit price times quantity),
// the base the commission percentage is applied to.
func (l *SoldLine) GrossTotal() decimal.Decimal {
	qty := l.Quantity
	if qty < 1 {
		qty = 1
	}
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
}
