// Package settlement advances commissions whose holding period has elapsed
// and drains credited balances on artist payout.
package settlement

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/commission"
	"github.com/atelier/commissions/internal/domain"
	"github.com/atelier/commissions/internal/metrics"
	"github.com/atelier/commissions/internal/notify"
	"github.com/atelier/commissions/internal/repository"
)

const DefaultBatchSize = 100

// SweepResult summarises one settlement sweep.
type SweepResult struct {
	Examined int `json:"examined"`
	Credited int `json:"credited"`
	Skipped  int `json:"skipped"`
	Batches  int `json:"batches"`
}

type Scheduler struct {
	db          *sql.DB
	commissions *repository.CommissionRepo
	artists     *repository.ArtistRepo
	settings    *repository.SettingsRepo
	ledger      *commission.Ledger
	notifier    notify.Notifier
	batchSize   int
	nowFn       func() time.Time
}

func NewScheduler(
	db *sql.DB,
	commissions *repository.CommissionRepo,
	artists *repository.ArtistRepo,
	settings *repository.SettingsRepo,
	ledger *commission.Ledger,
	notifier notify.Notifier,
) *Scheduler {
	return &Scheduler{
		db:          db,
		commissions: commissions,
		artists:     artists,
		settings:    settings,
		ledger:      ledger,
		notifier:    notifier,
		batchSize:   DefaultBatchSize,
		nowFn:       time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (s *Scheduler) SetNowFunc(fn func() time.Time) { s.nowFn = fn }

// SetBatchSize bounds how many commissions one sweep transaction covers.
func (s *Scheduler) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// SweepPendingCommissions credits every pending commission whose holding
// period has elapsed. Work proceeds in bounded batches, each committed in its
// own transaction, so a mid-sweep failure keeps already-settled batches.
// Re-running is safe: committed rows have left the pending state and are not
// picked up again.
func (s *Scheduler) SweepPendingCommissions() (*SweepResult, error) {
	start := s.nowFn()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	cutoff := start.Add(-settings.HoldingPeriod())

	result := &SweepResult{}
	for {
		batch, err := s.commissions.ListSettleable(cutoff, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("list settleable: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		credited, skipped, err := s.creditBatch(batch, start)
		result.Examined += len(batch)
		result.Credited += credited
		result.Skipped += skipped
		result.Batches++
		if err != nil {
			return result, err
		}
		if len(batch) < s.batchSize {
			break
		}
	}

	if result.Examined > 0 {
		log.Printf("[settlement] sweep: examined=%d credited=%d skipped=%d batches=%d",
			result.Examined, result.Credited, result.Skipped, result.Batches)
	}
	return result, nil
}

func (s *Scheduler) creditBatch(batch []domain.Commission, now time.Time) (credited, skipped int, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	var done []*domain.Commission
	for i := range batch {
		c, err := s.ledger.CreditInTx(tx, batch[i].ID, now)
		if err != nil {
			// A row whose state advanced since the list query is skipped;
			// the batch continues.
			if err == domain.ErrStateConflict || err == domain.ErrNotFound {
				skipped++
				continue
			}
			return 0, skipped, fmt.Errorf("credit commission %s: %w", batch[i].ID, err)
		}
		done = append(done, c)
	}

	if err := tx.Commit(); err != nil {
		return 0, skipped, fmt.Errorf("commit batch: %w", err)
	}

	for _, c := range done {
		metrics.CommissionsCredited.Inc()
		s.notifier.CommissionCredited(c.ArtistID, c.Amount)
	}
	return len(done), skipped, nil
}

// PayoutArtist transitions every credited commission for the artist to paid
// in one transaction, returning the total transferred. The transaction
// serializes against concurrent credits for the same artist, so a commission
// credited mid-payout is neither silently excluded nor double-paid.
func (s *Scheduler) PayoutArtist(artistID string) (decimal.Decimal, error) {
	now := s.nowFn()

	tx, err := s.db.Begin()
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	credited, err := s.commissions.ListByArtistStatusTx(tx, artistID, domain.CommissionCredited)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list credited: %w", err)
	}
	if len(credited) == 0 {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	for _, c := range credited {
		if err := s.commissions.UpdateStatusTx(tx, c.ID, domain.CommissionCredited, domain.CommissionPaid, &now); err != nil {
			return decimal.Zero, fmt.Errorf("mark paid %s: %w", c.ID, err)
		}
		if err := s.commissions.InsertAuditTx(tx, c.ID, artistID, "paid", c.Amount.String(), now); err != nil {
			return decimal.Zero, fmt.Errorf("audit payment %s: %w", c.ID, err)
		}
		total = total.Add(c.Amount)
	}

	// Paid means transferred out: the wallet and the running commission
	// figure both drop by the drained total.
	if err := s.artists.AdjustBalancesTx(tx, artistID, total.Neg(), total.Neg()); err != nil {
		return decimal.Zero, fmt.Errorf("drain wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("commit: %w", err)
	}

	metrics.CommissionsPaid.Add(float64(len(credited)))
	s.notifier.CommissionPaid(artistID, total)
	log.Printf("[settlement] payout: artist=%s commissions=%d total=%s", artistID, len(credited), total)
	return total, nil
}
