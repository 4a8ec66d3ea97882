package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationLegalReview ApplicationStatus = "legal_review"
	ApplicationApproved    ApplicationStatus = "approved"
	ApplicationRejected    ApplicationStatus = "rejected"
)

// Artist is one registered seller account. Wallet and commission figures are
// mutated only by the ledger and settlement code, inside transactions.
type Artist struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	LegalName         string            `json:"legal_name"`
	ApplicationStatus ApplicationStatus `json:"application_status"`
	TierName          string            `json:"tier_name,omitempty"`
	TotalSales        decimal.Decimal   `json:"total_sales"`
	TotalCommission   decimal.Decimal   `json:"total_commission"`
	WalletBalance     decimal.Decimal   `json:"wallet_balance"`
	TierUpdatedAt     *time.Time        `json:"tier_updated_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Earning is only open to approved artists; applications still in review
// produce no commission rows.
func (a *Artist) CanEarn() bool {
	return a.ApplicationStatus == ApplicationApproved
}

// Artwork links an artist to a catalog product. The product ID is the join
// point with sold lines: a line for a product credits the artwork's owner
// unless a referral link redirects attribution.
type Artwork struct {
	ID            string          `json:"id"`
	ArtistID      string          `json:"artist_id"`
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	ProductID     string          `json:"product_id"`
	ProductTypeID string          `json:"product_type_id"`
	Available     bool            `json:"available"`
	CreatedAt     time.Time       `json:"created_at"`
}
