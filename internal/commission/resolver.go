package commission

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/domain"
)

// ResolveRate determines the commission percentage for a sold line credited
// to the given artist. Three sources are consulted: the product-type rate,
// the referral-link rate, and the artist's tier rate. The highest of the
// three wins, which deliberately prevents commission stacking. A source that
// does not apply contributes 0; it never disqualifies the line.
//
// Pure function of its inputs plus the settings snapshot; link may be nil.
func ResolveRate(line *domain.SoldLine, link *domain.ReferralLink, artist *domain.Artist, settings *domain.CommissionSettings, now time.Time) (decimal.Decimal, domain.RateSource) {
	productRate := settings.ProductTypeCommissions[line.ProductTypeID]

	var referralRate decimal.Decimal
	if link != nil && link.IsValid(line.ProductID, now) {
		referralRate = settings.ReferralRate
	}

	var tierRate decimal.Decimal
	if artist.TierName != "" {
		tierRate = settings.TierCommissions[artist.TierName]
	}

	// Ties are immaterial: equal rates produce the same amount. The source
	// label follows the first maximum in product/referral/tier order.
	rate, source := productRate, domain.RateSourceProductType
	if referralRate.GreaterThan(rate) {
		rate, source = referralRate, domain.RateSourceReferral
	}
	if tierRate.GreaterThan(rate) {
		rate, source = tierRate, domain.RateSourceTier
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.RateSourceNone
	}
	return rate, source
}

// CommissionAmount applies a percentage rate to the line's gross total,
// rounded to cents.
func CommissionAmount(line *domain.SoldLine, rate decimal.Decimal) decimal.Decimal {
	return line.GrossTotal().Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
}
