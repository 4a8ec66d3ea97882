package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/atelier/commissions/internal/domain"
)

type CommissionRepo struct {
	db *sql.DB
}

func NewCommissionRepo(db *sql.DB) *CommissionRepo {
	return &CommissionRepo{db: db}
}

// Insert writes a new commission row. The UNIQUE(order_line_id, artist_id)
// constraint is the idempotency guard: a second insert for the same pair
// reports ErrDuplicate without touching the existing row.
func (r *CommissionRepo) Insert(c *domain.Commission) error {
	res, err := r.db.Exec(
		`INSERT OR IGNORE INTO commissions
		(id, artist_id, order_line_id, amount, rate, source, status, created_at, paid_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.ArtistID, c.OrderLineID, decToStr(c.Amount), decToStr(c.Rate),
		string(c.Source), string(c.Status), timeToStr(c.CreatedAt), ptrToNullTime(c.PaidAt),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

func (r *CommissionRepo) GetByID(id string) (*domain.Commission, error) {
	row := r.db.QueryRow(selectCommission+" WHERE id = ?", id)
	c, err := scanCommission(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return c, err
}

// GetByIDTx re-reads a commission inside an open transaction; status checks
// before a transition must use this snapshot, not an earlier read.
func (r *CommissionRepo) GetByIDTx(tx *sql.Tx, id string) (*domain.Commission, error) {
	row := tx.QueryRow(selectCommission+" WHERE id = ?", id)
	c, err := scanCommission(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return c, err
}

func (r *CommissionRepo) ListByLine(lineID string) ([]domain.Commission, error) {
	rows, err := r.db.Query(selectCommission+" WHERE order_line_id = ?", lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCommissions(rows)
}

// ListSettleable returns pending commissions created at or before the cutoff,
// oldest first, capped at limit. The settlement sweep walks these in batches.
func (r *CommissionRepo) ListSettleable(cutoff time.Time, limit int) ([]domain.Commission, error) {
	rows, err := r.db.Query(
		selectCommission+` WHERE status = ? AND created_at <= ?
		ORDER BY created_at ASC LIMIT ?`,
		string(domain.CommissionPending), timeToStr(cutoff), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCommissions(rows)
}

// ListByArtistStatusTx returns an artist's commissions in the given status,
// read inside the caller's transaction so a payout sees a frozen set.
func (r *CommissionRepo) ListByArtistStatusTx(tx *sql.Tx, artistID string, status domain.CommissionStatus) ([]domain.Commission, error) {
	rows, err := tx.Query(
		selectCommission+" WHERE artist_id = ? AND status = ? ORDER BY created_at ASC",
		artistID, string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCommissions(rows)
}

// UpdateStatusTx moves a commission to the given status inside the caller's
// transaction. The WHERE clause re-checks the expected current status, so a
// row whose state advanced concurrently is left alone and reported as a
// conflict.
func (r *CommissionRepo) UpdateStatusTx(tx *sql.Tx, id string, from, to domain.CommissionStatus, paidAt *time.Time) error {
	res, err := tx.Exec(
		"UPDATE commissions SET status = ?, paid_at = COALESCE(?, paid_at) WHERE id = ? AND status = ?",
		string(to), ptrToNullTime(paidAt), id, string(from),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrStateConflict
	}
	return nil
}

// InsertAuditTx appends an audit row for a credit, payment, or cancellation,
// inside the same transaction as the state change it records.
func (r *CommissionRepo) InsertAuditTx(tx *sql.Tx, commissionID, artistID, action, amount string, at time.Time) error {
	_, err := tx.Exec(
		`INSERT INTO commission_audit (commission_id, artist_id, action, amount, logged_at)
		VALUES (?,?,?,?,?)`,
		commissionID, artistID, action, amount, timeToStr(at),
	)
	return err
}

type CommissionFilter struct {
	ArtistID string
	Status   string
	Page     int
	Limit    int
}

func (r *CommissionRepo) List(f CommissionFilter) ([]domain.Commission, int, error) {
	where, args := buildCommissionWhere(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM commissions"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	q := selectCommission + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	commissions, err := collectCommissions(rows)
	if err != nil {
		return nil, 0, err
	}
	return commissions, total, nil
}

func (r *CommissionRepo) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query("SELECT status, COUNT(*) FROM commissions GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func buildCommissionWhere(f CommissionFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.ArtistID != "" {
		clauses = append(clauses, "artist_id = ?")
		args = append(args, f.ArtistID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// --- scanning ---

const selectCommission = `SELECT id, artist_id, order_line_id, amount, rate, source,
	status, created_at, paid_at FROM commissions`

func scanCommission(s rowScanner) (*domain.Commission, error) {
	var c domain.Commission
	var amount, rate, source, status, createdAt string
	var paidAt sql.NullString

	err := s.Scan(
		&c.ID, &c.ArtistID, &c.OrderLineID, &amount, &rate, &source,
		&status, &createdAt, &paidAt,
	)
	if err != nil {
		return nil, err
	}

	c.Amount = strToDec(amount)
	c.Rate = strToDec(rate)
	c.Source = domain.RateSource(source)
	c.Status = domain.CommissionStatus(status)
	c.CreatedAt = strToTime(createdAt)
	c.PaidAt = nullTimeToPtr(paidAt)
	return &c, nil
}

func collectCommissions(rows *sql.Rows) ([]domain.Commission, error) {
	var commissions []domain.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		commissions = append(commissions, *c)
	}
	return commissions, rows.Err()
}
