package repository

import (
	"database/sql"
	"time"

	"github.com/atelier/commissions/internal/domain"
)

type ReferralRepo struct {
	db *sql.DB
}

func NewReferralRepo(db *sql.DB) *ReferralRepo {
	return &ReferralRepo{db: db}
}

func (r *ReferralRepo) Insert(link *domain.ReferralLink) error {
	_, err := r.db.Exec(
		`INSERT INTO referral_links
		(id, artist_id, product_id, code, expires_at, used, times_used, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		link.ID, link.ArtistID, link.ProductID, link.Code,
		timeToStr(link.ExpiresAt), boolToInt(link.Used), link.TimesUsed,
		timeToStr(link.CreatedAt),
	)
	return err
}

func (r *ReferralRepo) GetByCode(code string) (*domain.ReferralLink, error) {
	row := r.db.QueryRow(selectReferral+" WHERE code = ?", code)
	link, err := scanReferral(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return link, err
}

// GetActiveByPair returns an unexpired, unused link for the (artist, product)
// pair, if one exists. GenerateLink reuses it instead of minting a new code.
func (r *ReferralRepo) GetActiveByPair(artistID, productID string, now time.Time) (*domain.ReferralLink, error) {
	row := r.db.QueryRow(
		selectReferral+` WHERE artist_id = ? AND product_id = ?
		AND used = 0 AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`,
		artistID, productID, timeToStr(now),
	)
	link, err := scanReferral(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return link, err
}

func (r *ReferralRepo) CodeExists(code string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM referral_links WHERE code = ?", code,
	).Scan(&count)
	return count > 0, err
}

// MarkUsed flags a link as consumed and bumps its usage counter.
func (r *ReferralRepo) MarkUsed(id string) error {
	res, err := r.db.Exec(
		"UPDATE referral_links SET used = 1, times_used = times_used + 1 WHERE id = ?", id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReferralRepo) ListByArtist(artistID string) ([]domain.ReferralLink, error) {
	rows, err := r.db.Query(
		selectReferral+" WHERE artist_id = ? ORDER BY created_at DESC", artistID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.ReferralLink
	for rows.Next() {
		link, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

// --- scanning ---

const selectReferral = `SELECT id, artist_id, product_id, code, expires_at, used,
	times_used, created_at FROM referral_links`

func scanReferral(s rowScanner) (*domain.ReferralLink, error) {
	var link domain.ReferralLink
	var expiresAt, createdAt string
	var used int

	err := s.Scan(
		&link.ID, &link.ArtistID, &link.ProductID, &link.Code,
		&expiresAt, &used, &link.TimesUsed, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	link.ExpiresAt = strToTime(expiresAt)
	link.Used = used == 1
	link.CreatedAt = strToTime(createdAt)
	return &link, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
