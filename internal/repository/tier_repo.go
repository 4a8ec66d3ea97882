package repository

import (
	"database/sql"

	"github.com/atelier/commissions/internal/domain"
)

type TierRepo struct {
	db *sql.DB
}

func NewTierRepo(db *sql.DB) *TierRepo {
	return &TierRepo{db: db}
}

func (r *TierRepo) Upsert(t *domain.TierDefinition) error {
	_, err := r.db.Exec(
		`INSERT INTO tiers (name, level, sales_threshold, percentile, commission_rate)
		VALUES (?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET
			level           = excluded.level,
			sales_threshold = excluded.sales_threshold,
			percentile      = excluded.percentile,
			commission_rate = excluded.commission_rate`,
		t.Name, t.Level, decToStr(t.SalesThreshold), t.Percentile, decToStr(t.CommissionRate),
	)
	return err
}

func (r *TierRepo) GetByName(name string) (*domain.TierDefinition, error) {
	row := r.db.QueryRow(selectTier+" WHERE name = ?", name)
	t, err := scanTier(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return t, err
}

// ListOrdered returns all tier definitions ordered by level ascending.
func (r *TierRepo) ListOrdered() ([]domain.TierDefinition, error) {
	rows, err := r.db.Query(selectTier + " ORDER BY level ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []domain.TierDefinition
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, *t)
	}
	return tiers, rows.Err()
}

func (r *TierRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM tiers").Scan(&count)
	return count, err
}

const selectTier = `SELECT name, level, sales_threshold, percentile, commission_rate FROM tiers`

func scanTier(s rowScanner) (*domain.TierDefinition, error) {
	var t domain.TierDefinition
	var threshold, rate string

	if err := s.Scan(&t.Name, &t.Level, &threshold, &t.Percentile, &rate); err != nil {
		return nil, err
	}

	t.SalesThreshold = strToDec(threshold)
	t.CommissionRate = strToDec(rate)
	return &t, nil
}
