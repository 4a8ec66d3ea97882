package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/domain"
)

type ArtistRepo struct {
	db *sql.DB
}

func NewArtistRepo(db *sql.DB) *ArtistRepo {
	return &ArtistRepo{db: db}
}

func (r *ArtistRepo) Insert(a *domain.Artist) error {
	_, err := r.db.Exec(
		`INSERT INTO artists
		(id, user_id, legal_name, application_status, tier_name, total_sales,
		 total_commission, wallet_balance, tier_updated_at, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.UserID, a.LegalName, string(a.ApplicationStatus), nullStr(a.TierName),
		decToStr(a.TotalSales), decToStr(a.TotalCommission), decToStr(a.WalletBalance),
		ptrToNullTime(a.TierUpdatedAt), timeToStr(a.CreatedAt),
	)
	return err
}

func (r *ArtistRepo) GetByID(id string) (*domain.Artist, error) {
	row := r.db.QueryRow(selectArtist+" WHERE id = ?", id)
	return scanArtistRow(row)
}

// GetByIDTx reads an artist inside an open transaction so wallet adjustments
// see a consistent balance.
func (r *ArtistRepo) GetByIDTx(tx *sql.Tx, id string) (*domain.Artist, error) {
	row := tx.QueryRow(selectArtist+" WHERE id = ?", id)
	return scanArtistRow(row)
}

// ListAll returns every artist ordered by total sales descending with artist
// ID as a stable tiebreak. Percentile classification depends on this order
// being deterministic across runs.
func (r *ArtistRepo) ListAll() ([]domain.Artist, error) {
	rows, err := r.db.Query(selectArtist + " ORDER BY CAST(total_sales AS REAL) DESC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectArtists(rows)
}

func (r *ArtistRepo) UpdateApplicationStatus(id string, status domain.ApplicationStatus) error {
	res, err := r.db.Exec(
		"UPDATE artists SET application_status = ? WHERE id = ?", string(status), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ArtistRepo) UpdateTier(id, tierName string, at time.Time) error {
	_, err := r.db.Exec(
		"UPDATE artists SET tier_name = ?, tier_updated_at = ? WHERE id = ?",
		tierName, timeToStr(at), id,
	)
	return err
}

func (r *ArtistRepo) SetTotalSales(id string, total decimal.Decimal) error {
	_, err := r.db.Exec(
		"UPDATE artists SET total_sales = ? WHERE id = ?", decToStr(total), id,
	)
	return err
}

// AdjustBalancesTx applies deltas to an artist's wallet balance and lifetime
// commission figure inside the caller's transaction. Amounts are stored as
// TEXT, so the arithmetic happens here rather than in SQL; the surrounding
// transaction serializes concurrent adjustments.
func (r *ArtistRepo) AdjustBalancesTx(tx *sql.Tx, id string, walletDelta, commissionDelta decimal.Decimal) error {
	var walletStr, commStr string
	err := tx.QueryRow(
		"SELECT wallet_balance, total_commission FROM artists WHERE id = ?", id,
	).Scan(&walletStr, &commStr)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	wallet := strToDec(walletStr).Add(walletDelta)
	if wallet.IsNegative() {
		return fmt.Errorf("wallet for artist %s would go negative: %w", id, domain.ErrInvalidInput)
	}
	comm := strToDec(commStr).Add(commissionDelta)

	_, err = tx.Exec(
		"UPDATE artists SET wallet_balance = ?, total_commission = ? WHERE id = ?",
		decToStr(wallet), decToStr(comm), id,
	)
	return err
}

func (r *ArtistRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM artists").Scan(&count)
	return count, err
}

// --- scanning ---

const selectArtist = `SELECT id, user_id, legal_name, application_status, tier_name,
	total_sales, total_commission, wallet_balance, tier_updated_at, created_at
	FROM artists`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtist(s rowScanner) (*domain.Artist, error) {
	var a domain.Artist
	var status, totalSales, totalComm, wallet, createdAt string
	var tierName, tierUpdatedAt sql.NullString

	err := s.Scan(
		&a.ID, &a.UserID, &a.LegalName, &status, &tierName,
		&totalSales, &totalComm, &wallet, &tierUpdatedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	a.ApplicationStatus = domain.ApplicationStatus(status)
	if tierName.Valid {
		a.TierName = tierName.String
	}
	a.TotalSales = strToDec(totalSales)
	a.TotalCommission = strToDec(totalComm)
	a.WalletBalance = strToDec(wallet)
	a.TierUpdatedAt = nullTimeToPtr(tierUpdatedAt)
	a.CreatedAt = strToTime(createdAt)
	return &a, nil
}

func scanArtistRow(row *sql.Row) (*domain.Artist, error) {
	a, err := scanArtist(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return a, err
}

func collectArtists(rows *sql.Rows) ([]domain.Artist, error) {
	var artists []domain.Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, *a)
	}
	return artists, rows.Err()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
