package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionSettings is the global configuration singleton. The engine reads
// a fresh snapshot at the start of each operation and never writes it;
// updates arrive only through configuration management.
type CommissionSettings struct {
	// CommissionPeriodDays is the holding period before a pending commission
	// becomes eligible for crediting.
	CommissionPeriodDays int `json:"commission_period_days"`

	ReferralRate decimal.Decimal `json:"referral_rate"`

	// ProductTypeCommissions maps product type ID -> commission percentage.
	ProductTypeCommissions map[string]decimal.Decimal `json:"product_type_commissions"`

	// TierCommissions maps tier name -> commission percentage.
	TierCommissions map[string]decimal.Decimal `json:"tier_commissions"`

	// TierUpdateFrequencyDays gates the reclassification batch: it is a no-op
	// unless this many days have elapsed since LastTierUpdate.
	TierUpdateFrequencyDays int        `json:"tier_update_frequency_days"`
	UsePercentile           bool       `json:"use_percentile"`
	LastTierUpdate          *time.Time `json:"last_tier_update,omitempty"`
}

// HoldingPeriod returns the commission holding period as a duration.
func (s *CommissionSettings) HoldingPeriod() time.Duration {
	return time.Duration(s.CommissionPeriodDays) * 24 * time.Hour
}

// TierUpdateDue reports whether the reclassification batch should run.
func (s *CommissionSettings) TierUpdateDue(now time.Time) bool {
	if s.LastTierUpdate == nil {
		return true
	}
	return now.Sub(*s.LastTierUpdate) >= time.Duration(s.TierUpdateFrequencyDays)*24*time.Hour
}
