package domain

import "time"

// ReferralLink binds one artist and one product to a shareable code.
// A sale carrying the code is attributed to the link's artist instead of
// the artwork owner.
type ReferralLink struct {
	ID        string    `json:"id"`
	ArtistID  string    `json:"artist_id"`
	ProductID string    `json:"product_id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	TimesUsed int       `json:"times_used"`
	CreatedAt time.Time `json:"created_at"`
}

// IsValid reports whether the link can still attribute a sale of the given
// product at the given instant: unexpired, not yet consumed, right product.
func (l *ReferralLink) IsValid(productID string, now time.Time) bool {
	if l.ProductID != productID {
		return false
	}
	if l.Used {
		return false
	}
	return now.Before(l.ExpiresAt)
}
