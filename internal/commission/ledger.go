// Package commission implements the rate resolver and the commission ledger:
// creation of immutable commission rows from sold lines and their movement
// through the pending -> credited -> paid lifecycle.
package commission

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/atelier/commissions/internal/domain"
	"github.com/atelier/commissions/internal/metrics"
	"github.com/atelier/commissions/internal/notify"
	"github.com/atelier/commissions/internal/referral"
	"github.com/atelier/commissions/internal/repository"
)

// Outcome is the typed result of a ledger operation, for callers to
// translate; the ledger itself never raises UI-level errors for the
// skip/duplicate cases.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeDuplicate Outcome = "duplicate"
)

// RecordResult reports what RecordSale did for one sold line.
type RecordResult struct {
	Outcome    Outcome            `json:"outcome"`
	Reason     string             `json:"reason,omitempty"`
	Commission *domain.Commission `json:"commission,omitempty"`
}

// Ledger owns commission row creation and status transitions.
type Ledger struct {
	db          *sql.DB
	commissions *repository.CommissionRepo
	artists     *repository.ArtistRepo
	lines       *repository.LineRepo
	settings    *repository.SettingsRepo
	attribution *referral.Service
	notifier    notify.Notifier
	nowFn       func() time.Time
}

func NewLedger(
	db *sql.DB,
	commissions *repository.CommissionRepo,
	artists *repository.ArtistRepo,
	lines *repository.LineRepo,
	settings *repository.SettingsRepo,
	attribution *referral.Service,
	notifier notify.Notifier,
) *Ledger {
	return &Ledger{
		db:          db,
		commissions: commissions,
		artists:     artists,
		lines:       lines,
		settings:    settings,
		attribution: attribution,
		notifier:    notifier,
		nowFn:       time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (l *Ledger) SetNowFunc(fn func() time.Time) { l.nowFn = fn }

// RecordSale processes a newly created sold line: resolves the attributed
// artist, computes the applicable rate, and writes one pending commission row
// when the rate is nonzero. Safe to call twice for the same line; the second
// call is a duplicate no-op.
func (l *Ledger) RecordSale(line *domain.SoldLine) (*RecordResult, error) {
	settings, err := l.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	line.Status = domain.LineCreated
	if err := l.lines.Insert(line); err != nil {
		return nil, fmt.Errorf("record sold line: %w", err)
	}

	artist, link, err := l.attribution.Resolve(line)
	if err != nil {
		return nil, fmt.Errorf("resolve attribution: %w", err)
	}
	if artist == nil {
		return &RecordResult{Outcome: OutcomeSkipped, Reason: "no artist owns this product"}, nil
	}
	if !artist.CanEarn() {
		return &RecordResult{Outcome: OutcomeSkipped, Reason: "artist application not approved"}, nil
	}

	now := l.nowFn()
	rate, source := ResolveRate(line, link, artist, settings, now)
	if rate.IsZero() {
		// All three sources resolved to 0: no row, to keep zero-value noise
		// out of the ledger.
		return &RecordResult{Outcome: OutcomeSkipped, Reason: "no commission rate applies"}, nil
	}

	c := &domain.Commission{
		ID:          uuid.NewString(),
		ArtistID:    artist.ID,
		OrderLineID: line.ID,
		Amount:      CommissionAmount(line, rate),
		Rate:        rate,
		Source:      source,
		Status:      domain.CommissionPending,
		CreatedAt:   now,
	}
	if err := l.commissions.Insert(c); err != nil {
		if err == domain.ErrDuplicate {
			return &RecordResult{Outcome: OutcomeDuplicate}, nil
		}
		return nil, fmt.Errorf("insert commission: %w", err)
	}

	if link != nil {
		if err := l.attribution.ConsumeLink(link); err != nil {
			log.Printf("[ledger] WARNING: failed to mark referral link %s used: %v", link.ID, err)
		}
	}

	metrics.CommissionsCreated.Inc()
	log.Printf("[ledger] commission %s: %s at %s%% (%s) for artist %s on line %s",
		c.ID, c.Amount, c.Rate, c.Source, c.ArtistID, line.ID)

	return &RecordResult{Outcome: OutcomeCreated, Commission: c}, nil
}

// CancelForReturnedLine cancels every still-pending commission for a
// cancelled or returned line. Commissions already credited or paid stay as
// they are: once funds have advanced past pending there is no clawback.
func (l *Ledger) CancelForReturnedLine(lineID string) (int, error) {
	if err := l.lines.UpdateStatus(lineID, domain.LineCancelled); err != nil && err != domain.ErrNotFound {
		return 0, fmt.Errorf("mark line cancelled: %w", err)
	}

	commissions, err := l.commissions.ListByLine(lineID)
	if err != nil {
		return 0, fmt.Errorf("list commissions for line: %w", err)
	}

	now := l.nowFn()
	cancelled := 0
	tx, err := l.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, c := range commissions {
		if c.Status != domain.CommissionPending {
			continue
		}
		if err := l.commissions.UpdateStatusTx(tx, c.ID, domain.CommissionPending, domain.CommissionCancelled, nil); err != nil {
			if err == domain.ErrStateConflict {
				continue
			}
			return 0, fmt.Errorf("cancel commission %s: %w", c.ID, err)
		}
		if err := l.commissions.InsertAuditTx(tx, c.ID, c.ArtistID, "cancelled", c.Amount.String(), now); err != nil {
			return 0, fmt.Errorf("audit cancel %s: %w", c.ID, err)
		}
		cancelled++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if cancelled > 0 {
		metrics.CommissionsCancelled.Add(float64(cancelled))
		log.Printf("[ledger] cancelled %d pending commission(s) for returned line %s", cancelled, lineID)
	}
	return cancelled, nil
}

// CreditToWallet promotes a pending commission to credited and adds its
// amount to the artist's wallet. Both writes happen in one transaction: a
// crash between them would either lose money or double count on retry.
// Re-invocation on an already-credited commission reports ErrStateConflict
// and leaves the wallet untouched.
func (l *Ledger) CreditToWallet(commissionID string) error {
	now := l.nowFn()

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	c, err := l.CreditInTx(tx, commissionID, now)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	metrics.CommissionsCredited.Inc()
	l.notifier.CommissionCredited(c.ArtistID, c.Amount)
	return nil
}

// CreditInTx performs the credit inside an open transaction so the
// settlement sweep can batch several credits into one commit.
func (l *Ledger) CreditInTx(tx *sql.Tx, commissionID string, now time.Time) (*domain.Commission, error) {
	c, err := l.commissions.GetByIDTx(tx, commissionID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CommissionPending {
		return nil, domain.ErrStateConflict
	}

	if err := l.commissions.UpdateStatusTx(tx, c.ID, domain.CommissionPending, domain.CommissionCredited, &now); err != nil {
		return nil, err
	}
	if err := l.artists.AdjustBalancesTx(tx, c.ArtistID, c.Amount, c.Amount); err != nil {
		return nil, fmt.Errorf("credit wallet for artist %s: %w", c.ArtistID, err)
	}
	if err := l.commissions.InsertAuditTx(tx, c.ID, c.ArtistID, "credited", c.Amount.String(), now); err != nil {
		return nil, fmt.Errorf("audit credit %s: %w", c.ID, err)
	}

	c.Status = domain.CommissionCredited
	c.PaidAt = &now
	return c, nil
}
