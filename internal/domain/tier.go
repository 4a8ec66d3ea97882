package domain

import "github.com/shopspring/decimal"

// TierDefinition is a named commission bracket. Depending on the global
// classification mode, either SalesThreshold (trailing-sales mode) or
// Percentile (rank mode) is consulted; the other is ignored. Level orders
// tiers so a change can be classified as upgrade or downgrade.
type TierDefinition struct {
	Name           string          `json:"name"`
	Level          int             `json:"level"`
	SalesThreshold decimal.Decimal `json:"sales_threshold"`
	Percentile     float64         `json:"percentile"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}
