package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/domain"
)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get reads the settings singleton. A missing row is a configuration error:
// the engine never invents a rate, so callers must abort their batch.
func (r *SettingsRepo) Get() (*domain.CommissionSettings, error) {
	var s domain.CommissionSettings
	var referralRate, productJSON, tierJSON string
	var usePercentile int
	var lastUpdate sql.NullString

	err := r.db.QueryRow(
		`SELECT commission_period_days, referral_rate, product_type_commissions,
		 tier_commissions, tier_update_frequency_days, use_percentile, last_tier_update
		 FROM commission_settings WHERE id = 1`,
	).Scan(
		&s.CommissionPeriodDays, &referralRate, &productJSON, &tierJSON,
		&s.TierUpdateFrequencyDays, &usePercentile, &lastUpdate,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSettingsMissing
	}
	if err != nil {
		return nil, err
	}

	s.ReferralRate = strToDec(referralRate)
	s.UsePercentile = usePercentile == 1
	s.LastTierUpdate = nullTimeToPtr(lastUpdate)

	if err := json.Unmarshal([]byte(productJSON), &s.ProductTypeCommissions); err != nil {
		return nil, fmt.Errorf("decode product type commissions: %w", err)
	}
	if err := json.Unmarshal([]byte(tierJSON), &s.TierCommissions); err != nil {
		return nil, fmt.Errorf("decode tier commissions: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepo) Save(s *domain.CommissionSettings) error {
	productJSON, err := marshalRates(s.ProductTypeCommissions)
	if err != nil {
		return fmt.Errorf("encode product type commissions: %w", err)
	}
	tierJSON, err := marshalRates(s.TierCommissions)
	if err != nil {
		return fmt.Errorf("encode tier commissions: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO commission_settings
		(id, commission_period_days, referral_rate, product_type_commissions,
		 tier_commissions, tier_update_frequency_days, use_percentile, last_tier_update)
		VALUES (1,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			commission_period_days     = excluded.commission_period_days,
			referral_rate              = excluded.referral_rate,
			product_type_commissions   = excluded.product_type_commissions,
			tier_commissions           = excluded.tier_commissions,
			tier_update_frequency_days = excluded.tier_update_frequency_days,
			use_percentile             = excluded.use_percentile,
			last_tier_update           = excluded.last_tier_update`,
		s.CommissionPeriodDays, decToStr(s.ReferralRate), productJSON, tierJSON,
		s.TierUpdateFrequencyDays, boolToInt(s.UsePercentile), ptrToNullTime(s.LastTierUpdate),
	)
	return err
}

func (r *SettingsRepo) SetLastTierUpdate(at time.Time) error {
	res, err := r.db.Exec(
		"UPDATE commission_settings SET last_tier_update = ? WHERE id = 1", timeToStr(at),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSettingsMissing
	}
	return nil
}

func marshalRates(m map[string]decimal.Decimal) (string, error) {
	if m == nil {
		return "{}", nil
	}
	blob, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(blob), nil
}
