package repository

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/domain"
)

type LineRepo struct {
	db *sql.DB
}

func NewLineRepo(db *sql.DB) *LineRepo {
	return &LineRepo{db: db}
}

// Insert records a sold line as delivered by the sale event source. Redelivery
// of the same line event is a no-op.
func (r *LineRepo) Insert(l *domain.SoldLine) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO sold_lines
		(id, order_id, product_id, product_type_id, unit_price, quantity,
		 referral_code, status, occurred_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		l.ID, l.OrderID, l.ProductID, l.ProductTypeID, decToStr(l.UnitPrice),
		l.Quantity, nullStr(l.ReferralCode), string(l.Status), timeToStr(l.OccurredAt),
	)
	return err
}

func (r *LineRepo) GetByID(id string) (*domain.SoldLine, error) {
	row := r.db.QueryRow(selectLine+" WHERE id = ?", id)
	l, err := scanLine(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return l, err
}

func (r *LineRepo) UpdateStatus(id string, status domain.LineStatus) error {
	res, err := r.db.Exec(
		"UPDATE sold_lines SET status = ? WHERE id = ?", string(status), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FulfilledSalesByArtist aggregates the gross value of fulfilled lines per
// owning artist in a single snapshot query. The tier batch reads this once up
// front so concurrent sales cannot shift an artist's figure mid-ranking.
func (r *LineRepo) FulfilledSalesByArtist() (map[string]decimal.Decimal, error) {
	rows, err := r.db.Query(
		`SELECT a.artist_id, l.unit_price, l.quantity
		 FROM sold_lines l
		 JOIN artworks a ON a.product_id = l.product_id
		 WHERE l.status = ?`,
		string(domain.LineFulfilled),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var artistID, unitPrice string
		var quantity int
		if err := rows.Scan(&artistID, &unitPrice, &quantity); err != nil {
			return nil, err
		}
		if quantity < 1 {
			quantity = 1
		}
		gross := strToDec(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
		totals[artistID] = totals[artistID].Add(gross)
	}
	return totals, rows.Err()
}

const selectLine = `SELECT id, order_id, product_id, product_type_id, unit_price,
	quantity, referral_code, status, occurred_at FROM sold_lines`

func scanLine(s rowScanner) (*domain.SoldLine, error) {
	var l domain.SoldLine
	var unitPrice, status, occurredAt string
	var referralCode sql.NullString

	err := s.Scan(
		&l.ID, &l.OrderID, &l.ProductID, &l.ProductTypeID, &unitPrice,
		&l.Quantity, &referralCode, &status, &occurredAt,
	)
	if err != nil {
		return nil, err
	}

	l.UnitPrice = strToDec(unitPrice)
	if referralCode.Valid {
		l.ReferralCode = referralCode.String
	}
	l.Status = domain.LineStatus(status)
	l.OccurredAt = strToTime(occurredAt)
	return &l, nil
}
