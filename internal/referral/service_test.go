package referral

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/domain"
	"github.com/atelier/commissions/internal/repository"
)

type serviceFixture struct {
	svc       *Service
	referrals *repository.ReferralRepo
	artworks  *repository.ArtworkRepo
	artists   *repository.ArtistRepo
	now       time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db, err := repository.InitDB(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &serviceFixture{
		referrals: repository.NewReferralRepo(db),
		artworks:  repository.NewArtworkRepo(db),
		artists:   repository.NewArtistRepo(db),
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.referrals, f.artworks, f.artists)
	f.svc.SetNowFunc(func() time.Time { return f.now })

	for _, id := range []string{"owner", "referrer"} {
		err := f.artists.Insert(&domain.Artist{
			ID:                id,
			UserID:            "user-" + id,
			LegalName:         "Artist " + id,
			ApplicationStatus: domain.ApplicationApproved,
			CreatedAt:         f.now,
		})
		if err != nil {
			t.Fatalf("insert artist %s: %v", id, err)
		}
	}
	err = f.artworks.Insert(&domain.Artwork{
		ID:        "art-1",
		ArtistID:  "owner",
		Title:     "Untitled",
		Price:     decimal.NewFromInt(50),
		ProductID: "prod-1",
		Available: true,
		CreatedAt: f.now,
	})
	if err != nil {
		t.Fatalf("insert artwork: %v", err)
	}
	return f
}

func (f *serviceFixture) line(code string) *domain.SoldLine {
	return &domain.SoldLine{
		ID:           "line-1",
		OrderID:      "order-1",
		ProductID:    "prod-1",
		UnitPrice:    decimal.NewFromInt(50),
		Quantity:     1,
		ReferralCode: code,
		OccurredAt:   f.now,
	}
}

func TestGenerateLink(t *testing.T) {
	f := newServiceFixture(t)

	link, err := f.svc.GenerateLink("referrer", "prod-1")
	if err != nil {
		t.Fatalf("GenerateLink: %v", err)
	}
	if len(link.Code) != codeLength {
		t.Errorf("code %q has length %d, want %d", link.Code, len(link.Code), codeLength)
	}
	if got, want := link.ExpiresAt, f.now.Add(DefaultLinkTTL); !got.Equal(want) {
		t.Errorf("expiry = %s, want %s", got, want)
	}
}

func TestGenerateLinkReusesActiveLink(t *testing.T) {
	f := newServiceFixture(t)

	first, err := f.svc.GenerateLink("referrer", "prod-1")
	if err != nil {
		t.Fatalf("first GenerateLink: %v", err)
	}
	second, err := f.svc.GenerateLink("referrer", "prod-1")
	if err != nil {
		t.Fatalf("second GenerateLink: %v", err)
	}
	if first.Code != second.Code {
		t.Errorf("second call minted a new code %q, want reuse of %q", second.Code, first.Code)
	}

	// A different product gets its own link.
	f.artworks.Insert(&domain.Artwork{
		ID: "art-2", ArtistID: "owner", Title: "Other",
		Price: decimal.NewFromInt(10), ProductID: "prod-2", CreatedAt: f.now,
	})
	other, err := f.svc.GenerateLink("referrer", "prod-2")
	if err != nil {
		t.Fatalf("GenerateLink for prod-2: %v", err)
	}
	if other.Code == first.Code {
		t.Error("link for a different product reused the same code")
	}
}

func TestResolveValidCode(t *testing.T) {
	f := newServiceFixture(t)

	link, err := f.svc.GenerateLink("referrer", "prod-1")
	if err != nil {
		t.Fatalf("GenerateLink: %v", err)
	}

	artist, resolved, err := f.svc.Resolve(f.line(link.Code))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if artist == nil || artist.ID != "referrer" {
		t.Fatalf("artist = %+v, want referrer", artist)
	}
	if resolved == nil || resolved.ID != link.ID {
		t.Fatalf("resolved link = %+v, want %s", resolved, link.ID)
	}

	// Resolve has no side effects: the link stays redeemable.
	stored, err := f.referrals.GetByCode(link.Code)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if stored.Used {
		t.Error("Resolve marked the link used")
	}
}

func TestResolveUnknownCodeFallsBackToOwner(t *testing.T) {
	f := newServiceFixture(t)

	artist, link, err := f.svc.Resolve(f.line("NOSUCHCODE00"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if artist == nil || artist.ID != "owner" {
		t.Fatalf("artist = %+v, want owner", artist)
	}
	if link != nil {
		t.Errorf("link = %+v, want nil on fallback", link)
	}
}

func TestResolveExpiredCodeFallsBackToOwner(t *testing.T) {
	f := newServiceFixture(t)

	link, err := f.svc.GenerateLink("referrer", "prod-1")
	if err != nil {
		t.Fatalf("GenerateLink: %v", err)
	}

	f.now = f.now.Add(DefaultLinkTTL + time.Hour)
	artist, resolved, err := f.svc.Resolve(f.line(link.Code))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if artist == nil || artist.ID != "owner" {
		t.Fatalf("artist = %+v, want owner after expiry", artist)
	}
	if resolved != nil {
		t.Errorf("link = %+v, want nil after expiry", resolved)
	}
}

func TestResolveConsumedCodeFallsBackToOwner(t *testing.T) {
	f := newServiceFixture(t)

	link, err := f.svc.GenerateLink("referrer", "prod-1")
	if err != nil {
		t.Fatalf("GenerateLink: %v", err)
	}
	if err := f.svc.ConsumeLink(link); err != nil {
		t.Fatalf("ConsumeLink: %v", err)
	}

	artist, resolved, err := f.svc.Resolve(f.line(link.Code))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if artist == nil || artist.ID != "owner" {
		t.Fatalf("artist = %+v, want owner for a spent code", artist)
	}
	if resolved != nil {
		t.Errorf("link = %+v, want nil for a spent code", resolved)
	}
}

func TestResolveNoArtworkMeansNoArtist(t *testing.T) {
	f := newServiceFixture(t)

	line := f.line("")
	line.ProductID = "prod-unknown"
	artist, link, err := f.svc.Resolve(line)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if artist != nil {
		t.Errorf("artist = %+v, want nil for an unowned product", artist)
	}
	if link != nil {
		t.Errorf("link = %+v, want nil", link)
	}
}

func TestAttributeSaleConsumesLink(t *testing.T) {
	f := newServiceFixture(t)

	link, err := f.svc.GenerateLink("referrer", "prod-1")
	if err != nil {
		t.Fatalf("GenerateLink: %v", err)
	}

	artist, err := f.svc.AttributeSale(f.line(link.Code))
	if err != nil {
		t.Fatalf("AttributeSale: %v", err)
	}
	if artist == nil || artist.ID != "referrer" {
		t.Fatalf("artist = %+v, want referrer", artist)
	}

	stored, err := f.referrals.GetByCode(link.Code)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if !stored.Used {
		t.Error("link not marked used")
	}
	if stored.TimesUsed != 1 {
		t.Errorf("times used = %d, want 1", stored.TimesUsed)
	}
}
