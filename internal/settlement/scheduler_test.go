package settlement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/commission"
	"github.com/atelier/commissions/internal/domain"
	"github.com/atelier/commissions/internal/notify"
	"github.com/atelier/commissions/internal/referral"
	"github.com/atelier/commissions/internal/repository"
)

type schedulerFixture struct {
	scheduler   *Scheduler
	ledger      *commission.Ledger
	artists     *repository.ArtistRepo
	commissions *repository.CommissionRepo
	now         time.Time
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	db, err := repository.InitDB(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	artists := repository.NewArtistRepo(db)
	artworks := repository.NewArtworkRepo(db)
	commissions := repository.NewCommissionRepo(db)
	lines := repository.NewLineRepo(db)
	settings := repository.NewSettingsRepo(db)
	referrals := repository.NewReferralRepo(db)

	f := &schedulerFixture{
		artists:     artists,
		commissions: commissions,
		now:         time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}

	attribution := referral.NewService(referrals, artworks, artists)
	f.ledger = commission.NewLedger(db, commissions, artists, lines, settings, attribution, notify.LogNotifier{})
	f.scheduler = NewScheduler(db, commissions, artists, settings, f.ledger, notify.LogNotifier{})
	f.scheduler.SetNowFunc(func() time.Time { return f.now })

	err = settings.Save(&domain.CommissionSettings{
		CommissionPeriodDays: 14,
		ReferralRate:         decimal.NewFromInt(8),
	})
	if err != nil {
		t.Fatalf("save settings: %v", err)
	}

	err = artists.Insert(&domain.Artist{
		ID:                "artist-1",
		UserID:            "user-1",
		LegalName:         "Artist One",
		ApplicationStatus: domain.ApplicationApproved,
		CreatedAt:         f.now.Add(-90 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("insert artist: %v", err)
	}
	return f
}

// addPending inserts a pending commission created the given number of days ago.
func (f *schedulerFixture) addPending(t *testing.T, id string, amount int64, ageDays int) {
	t.Helper()
	err := f.commissions.Insert(&domain.Commission{
		ID:          id,
		ArtistID:    "artist-1",
		OrderLineID: "line-" + id,
		Amount:      decimal.NewFromInt(amount),
		Rate:        decimal.NewFromInt(10),
		Source:      domain.RateSourceTier,
		Status:      domain.CommissionPending,
		CreatedAt:   f.now.Add(-time.Duration(ageDays) * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("insert commission %s: %v", id, err)
	}
}

func (f *schedulerFixture) status(t *testing.T, id string) domain.CommissionStatus {
	t.Helper()
	c, err := f.commissions.GetByID(id)
	if err != nil {
		t.Fatalf("get commission %s: %v", id, err)
	}
	return c.Status
}

func (f *schedulerFixture) wallet(t *testing.T) decimal.Decimal {
	t.Helper()
	a, err := f.artists.GetByID("artist-1")
	if err != nil {
		t.Fatalf("get artist: %v", err)
	}
	return a.WalletBalance
}

func TestSweepRespectsHoldingPeriod(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addPending(t, "old", 10, 20)   // past the 14-day holding period
	f.addPending(t, "fresh", 10, 3)  // still inside it
	f.addPending(t, "edge", 10, 14)  // exactly at the boundary

	res, err := f.scheduler.SweepPendingCommissions()
	if err != nil {
		t.Fatalf("SweepPendingCommissions: %v", err)
	}
	if res.Credited != 2 {
		t.Errorf("credited = %d, want 2", res.Credited)
	}

	if got := f.status(t, "old"); got != domain.CommissionCredited {
		t.Errorf("old status = %s, want credited", got)
	}
	if got := f.status(t, "edge"); got != domain.CommissionCredited {
		t.Errorf("edge status = %s, want credited", got)
	}
	if got := f.status(t, "fresh"); got != domain.CommissionPending {
		t.Errorf("fresh status = %s, want pending", got)
	}
	if got := f.wallet(t); !got.Equal(decimal.NewFromInt(20)) {
		t.Errorf("wallet = %s, want 20", got)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addPending(t, "c1", 25, 20)

	if _, err := f.scheduler.SweepPendingCommissions(); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	res, err := f.scheduler.SweepPendingCommissions()
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if res.Examined != 0 || res.Credited != 0 {
		t.Errorf("second sweep examined=%d credited=%d, want 0/0", res.Examined, res.Credited)
	}
	if got := f.wallet(t); !got.Equal(decimal.NewFromInt(25)) {
		t.Errorf("wallet = %s, want 25 after repeat sweep", got)
	}
}

func TestSweepRunsInBatches(t *testing.T) {
	f := newSchedulerFixture(t)
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		f.addPending(t, id, 10, 20)
	}
	f.scheduler.SetBatchSize(2)

	res, err := f.scheduler.SweepPendingCommissions()
	if err != nil {
		t.Fatalf("SweepPendingCommissions: %v", err)
	}
	if res.Credited != 5 {
		t.Errorf("credited = %d, want 5", res.Credited)
	}
	if res.Batches != 3 {
		t.Errorf("batches = %d, want 3", res.Batches)
	}
	if got := f.wallet(t); !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("wallet = %s, want 50", got)
	}
}

func TestSweepSkipsRowsThatAdvanced(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addPending(t, "c1", 10, 20)
	f.addPending(t, "c2", 10, 20)

	// c1 was credited out of band between the list query and the batch.
	if err := f.ledger.CreditToWallet("c1"); err != nil {
		t.Fatalf("CreditToWallet: %v", err)
	}

	res, err := f.scheduler.SweepPendingCommissions()
	if err != nil {
		t.Fatalf("SweepPendingCommissions: %v", err)
	}
	if res.Credited != 1 {
		t.Errorf("credited = %d, want 1", res.Credited)
	}
	if got := f.wallet(t); !got.Equal(decimal.NewFromInt(20)) {
		t.Errorf("wallet = %s, want 20", got)
	}
}

func TestPayoutArtist(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addPending(t, "c1", 10, 20)
	f.addPending(t, "c2", 15, 20)
	f.addPending(t, "c3", 99, 3) // still pending, must not be paid

	if _, err := f.scheduler.SweepPendingCommissions(); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	total, err := f.scheduler.PayoutArtist("artist-1")
	if err != nil {
		t.Fatalf("PayoutArtist: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(25)) {
		t.Errorf("total = %s, want 25", total)
	}

	if got := f.status(t, "c1"); got != domain.CommissionPaid {
		t.Errorf("c1 status = %s, want paid", got)
	}
	if got := f.status(t, "c2"); got != domain.CommissionPaid {
		t.Errorf("c2 status = %s, want paid", got)
	}
	if got := f.status(t, "c3"); got != domain.CommissionPending {
		t.Errorf("c3 status = %s, want pending", got)
	}
	if got := f.wallet(t); !got.IsZero() {
		t.Errorf("wallet = %s, want 0 after payout", got)
	}

	// Nothing credited remains: a second payout moves no money.
	total, err = f.scheduler.PayoutArtist("artist-1")
	if err != nil {
		t.Fatalf("second PayoutArtist: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("second payout total = %s, want 0", total)
	}
}
