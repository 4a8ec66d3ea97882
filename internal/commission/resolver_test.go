package commission

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/domain"
)

func testSettings() *domain.CommissionSettings {
	return &domain.CommissionSettings{
		CommissionPeriodDays: 14,
		ReferralRate:         decimal.NewFromInt(8),
		ProductTypeCommissions: map[string]decimal.Decimal{
			"print": decimal.NewFromInt(5),
		},
		TierCommissions: map[string]decimal.Decimal{
			"Popular": decimal.NewFromInt(10),
		},
	}
}

func TestResolveRateHighestWins(t *testing.T) {
	now := time.Now()
	line := &domain.SoldLine{
		ID:            "line-1",
		ProductID:     "prod-1",
		ProductTypeID: "print",
		UnitPrice:     decimal.NewFromInt(100),
		Quantity:      1,
	}
	link := &domain.ReferralLink{
		ProductID: "prod-1",
		ExpiresAt: now.Add(time.Hour),
	}

	tests := []struct {
		name       string
		artist     domain.Artist
		link       *domain.ReferralLink
		wantRate   int64
		wantSource domain.RateSource
	}{
		{
			name:       "tier beats product type",
			artist:     domain.Artist{TierName: "Popular"},
			wantRate:   10,
			wantSource: domain.RateSourceTier,
		},
		{
			name:       "product type only",
			artist:     domain.Artist{},
			wantRate:   5,
			wantSource: domain.RateSourceProductType,
		},
		{
			name:       "referral beats product type",
			artist:     domain.Artist{},
			link:       link,
			wantRate:   8,
			wantSource: domain.RateSourceReferral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, source := ResolveRate(line, tt.link, &tt.artist, testSettings(), now)
			if !rate.Equal(decimal.NewFromInt(tt.wantRate)) {
				t.Errorf("rate = %s, want %d", rate, tt.wantRate)
			}
			if source != tt.wantSource {
				t.Errorf("source = %s, want %s", source, tt.wantSource)
			}
		})
	}
}

func TestResolveRateAllZero(t *testing.T) {
	line := &domain.SoldLine{
		ID:            "line-1",
		ProductID:     "prod-1",
		ProductTypeID: "sculpture", // no product-type rate configured
		UnitPrice:     decimal.NewFromInt(100),
		Quantity:      1,
	}
	artist := &domain.Artist{} // no tier

	rate, source := ResolveRate(line, nil, artist, testSettings(), time.Now())
	if !rate.IsZero() {
		t.Errorf("rate = %s, want 0", rate)
	}
	if source != domain.RateSourceNone {
		t.Errorf("source = %s, want %s", source, domain.RateSourceNone)
	}
}

func TestResolveRateExpiredLinkContributesNothing(t *testing.T) {
	now := time.Now()
	line := &domain.SoldLine{
		ID:            "line-1",
		ProductID:     "prod-1",
		ProductTypeID: "print",
		UnitPrice:     decimal.NewFromInt(100),
		Quantity:      1,
	}
	expired := &domain.ReferralLink{
		ProductID: "prod-1",
		ExpiresAt: now.Add(-time.Hour),
	}

	rate, source := ResolveRate(line, expired, &domain.Artist{}, testSettings(), now)
	if !rate.Equal(decimal.NewFromInt(5)) {
		t.Errorf("rate = %s, want product-type 5", rate)
	}
	if source != domain.RateSourceProductType {
		t.Errorf("source = %s, want %s", source, domain.RateSourceProductType)
	}
}

func TestCommissionAmount(t *testing.T) {
	// 10% of a $100 line is $10.00.
	line := &domain.SoldLine{UnitPrice: decimal.NewFromInt(50), Quantity: 2}
	amount := CommissionAmount(line, decimal.NewFromInt(10))
	if !amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("amount = %s, want 10", amount)
	}

	// Fractional results round to cents.
	line = &domain.SoldLine{UnitPrice: decimal.NewFromFloat(33.33), Quantity: 1}
	amount = CommissionAmount(line, decimal.NewFromFloat(7.5))
	if !amount.Equal(decimal.NewFromFloat(2.50)) {
		t.Errorf("amount = %s, want 2.50", amount)
	}
}
