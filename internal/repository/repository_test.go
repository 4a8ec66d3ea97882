package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/domain"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedArtist(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	err := NewArtistRepo(db).Insert(&domain.Artist{
		ID:                id,
		UserID:            "user-" + id,
		LegalName:         "Artist " + id,
		ApplicationStatus: domain.ApplicationApproved,
		CreatedAt:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("insert artist %s: %v", id, err)
	}
}

func TestSettingsGetMissing(t *testing.T) {
	db := testDB(t)

	_, err := NewSettingsRepo(db).Get()
	if !errors.Is(err, domain.ErrSettingsMissing) {
		t.Fatalf("err = %v, want ErrSettingsMissing", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewSettingsRepo(db)

	in := &domain.CommissionSettings{
		CommissionPeriodDays: 14,
		ReferralRate:         decimal.NewFromFloat(8.5),
		ProductTypeCommissions: map[string]decimal.Decimal{
			"print": decimal.NewFromInt(5),
		},
		TierCommissions: map[string]decimal.Decimal{
			"Popular": decimal.NewFromFloat(10.5),
		},
		TierUpdateFrequencyDays: 30,
		UsePercentile:           true,
	}
	if err := repo.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := repo.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.CommissionPeriodDays != 14 {
		t.Errorf("period = %d, want 14", out.CommissionPeriodDays)
	}
	if !out.ReferralRate.Equal(decimal.NewFromFloat(8.5)) {
		t.Errorf("referral rate = %s, want 8.5", out.ReferralRate)
	}
	if rate, ok := out.ProductTypeCommissions["print"]; !ok || !rate.Equal(decimal.NewFromInt(5)) {
		t.Errorf("product-type rates = %v", out.ProductTypeCommissions)
	}
	if rate, ok := out.TierCommissions["Popular"]; !ok || !rate.Equal(decimal.NewFromFloat(10.5)) {
		t.Errorf("tier rates = %v", out.TierCommissions)
	}
	if !out.UsePercentile {
		t.Error("use_percentile lost in round trip")
	}
	if out.LastTierUpdate != nil {
		t.Errorf("last tier update = %v, want nil", out.LastTierUpdate)
	}

	// Save is an upsert on the singleton row.
	in.CommissionPeriodDays = 7
	if err := repo.Save(in); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	out, err = repo.Get()
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if out.CommissionPeriodDays != 7 {
		t.Errorf("period = %d, want 7 after upsert", out.CommissionPeriodDays)
	}
}

func TestCommissionInsertDuplicate(t *testing.T) {
	db := testDB(t)
	seedArtist(t, db, "artist-1")
	repo := NewCommissionRepo(db)

	c := &domain.Commission{
		ID:          "c1",
		ArtistID:    "artist-1",
		OrderLineID: "line-1",
		Amount:      decimal.NewFromInt(10),
		Rate:        decimal.NewFromInt(10),
		Source:      domain.RateSourceTier,
		Status:      domain.CommissionPending,
		CreatedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Insert(c); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Same (line, artist) pair under a new ID must be rejected as a duplicate.
	dup := *c
	dup.ID = "c2"
	if err := repo.Insert(&dup); err != domain.ErrDuplicate {
		t.Fatalf("duplicate insert err = %v, want ErrDuplicate", err)
	}

	// A different artist on the same line is a distinct commission.
	seedArtist(t, db, "artist-2")
	other := *c
	other.ID = "c3"
	other.ArtistID = "artist-2"
	if err := repo.Insert(&other); err != nil {
		t.Fatalf("insert for second artist: %v", err)
	}
}

func TestCommissionUpdateStatusGuard(t *testing.T) {
	db := testDB(t)
	seedArtist(t, db, "artist-1")
	repo := NewCommissionRepo(db)

	err := repo.Insert(&domain.Commission{
		ID:          "c1",
		ArtistID:    "artist-1",
		OrderLineID: "line-1",
		Amount:      decimal.NewFromInt(10),
		Rate:        decimal.NewFromInt(10),
		Source:      domain.RateSourceTier,
		Status:      domain.CommissionPending,
		CreatedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	// Moving from a status the row is not in must not touch it.
	err = repo.UpdateStatusTx(tx, "c1", domain.CommissionCredited, domain.CommissionPaid, nil)
	if err != domain.ErrStateConflict {
		t.Fatalf("err = %v, want ErrStateConflict", err)
	}

	now := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	if err := repo.UpdateStatusTx(tx, "c1", domain.CommissionPending, domain.CommissionCredited, &now); err != nil {
		t.Fatalf("valid transition: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	c, err := repo.GetByID("c1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if c.Status != domain.CommissionCredited {
		t.Errorf("status = %s, want credited", c.Status)
	}
	if c.PaidAt == nil || !c.PaidAt.Equal(now) {
		t.Errorf("paid_at = %v, want %s", c.PaidAt, now)
	}
}

func TestAdjustBalancesRejectsNegativeWallet(t *testing.T) {
	db := testDB(t)
	seedArtist(t, db, "artist-1")
	repo := NewArtistRepo(db)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	err = repo.AdjustBalancesTx(tx, "artist-1", decimal.NewFromInt(-5), decimal.Zero)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}

	if err := repo.AdjustBalancesTx(tx, "artist-1", decimal.NewFromInt(20), decimal.NewFromInt(20)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := repo.AdjustBalancesTx(tx, "artist-1", decimal.NewFromInt(-20), decimal.NewFromInt(-20)); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	a, err := repo.GetByID("artist-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !a.WalletBalance.IsZero() {
		t.Errorf("wallet = %s, want 0", a.WalletBalance)
	}
}

func TestArtistListAllOrdersBySales(t *testing.T) {
	db := testDB(t)
	repo := NewArtistRepo(db)
	for _, id := range []string{"a", "b", "c"} {
		seedArtist(t, db, id)
	}
	repo.SetTotalSales("a", decimal.NewFromInt(100))
	repo.SetTotalSales("b", decimal.NewFromInt(900))
	repo.SetTotalSales("c", decimal.NewFromInt(500))

	artists, err := repo.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	var order []string
	for _, a := range artists {
		order = append(order, a.ID)
	}
	want := []string{"b", "c", "a"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
