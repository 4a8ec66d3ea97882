// Package referral generates referral links and resolves which artist a sold
// line should credit.
package referral

import (
	"crypto/rand"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/atelier/commissions/internal/domain"
	"github.com/atelier/commissions/internal/repository"
)

const (
	codeLength = 12
	codeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultLinkTTL is how long a freshly generated link stays redeemable.
	DefaultLinkTTL = 7 * 24 * time.Hour
)

type Service struct {
	referrals *repository.ReferralRepo
	artworks  *repository.ArtworkRepo
	artists   *repository.ArtistRepo
	nowFn     func() time.Time
}

func NewService(referrals *repository.ReferralRepo, artworks *repository.ArtworkRepo, artists *repository.ArtistRepo) *Service {
	return &Service{
		referrals: referrals,
		artworks:  artworks,
		artists:   artists,
		nowFn:     time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (s *Service) SetNowFunc(fn func() time.Time) { s.nowFn = fn }

// GenerateLink returns a shareable referral link for the (artist, product)
// pair. An existing unexpired link is reused; otherwise a new link with a
// globally unique code and the default expiry is created.
func (s *Service) GenerateLink(artistID, productID string) (*domain.ReferralLink, error) {
	now := s.nowFn()

	existing, err := s.referrals.GetActiveByPair(artistID, productID, now)
	if err == nil {
		return existing, nil
	}
	if err != domain.ErrNotFound {
		return nil, fmt.Errorf("look up existing link: %w", err)
	}

	code, err := s.uniqueCode()
	if err != nil {
		return nil, err
	}

	link := &domain.ReferralLink{
		ID:        uuid.NewString(),
		ArtistID:  artistID,
		ProductID: productID,
		Code:      code,
		ExpiresAt: now.Add(DefaultLinkTTL),
		CreatedAt: now,
	}
	if err := s.referrals.Insert(link); err != nil {
		return nil, fmt.Errorf("insert referral link: %w", err)
	}
	return link, nil
}

// Resolve determines the attributed artist for a sold line without side
// effects. A valid referral code wins; an invalid or expired code falls back
// silently to the artist who owns the artwork, since a bad code must never
// block a sale. Returns a nil artist when no artwork matches the product.
func (s *Service) Resolve(line *domain.SoldLine) (*domain.Artist, *domain.ReferralLink, error) {
	now := s.nowFn()

	if line.ReferralCode != "" {
		link, err := s.referrals.GetByCode(line.ReferralCode)
		switch {
		case err == domain.ErrNotFound:
			log.Printf("[referral] unknown code %q on line %s, falling back to owner", line.ReferralCode, line.ID)
		case err != nil:
			return nil, nil, fmt.Errorf("look up referral code: %w", err)
		case link.IsValid(line.ProductID, now):
			artist, err := s.artists.GetByID(link.ArtistID)
			if err != nil {
				return nil, nil, fmt.Errorf("load referring artist: %w", err)
			}
			return artist, link, nil
		default:
			log.Printf("[referral] code %q on line %s is expired or spent, falling back to owner", line.ReferralCode, line.ID)
		}
	}

	artwork, err := s.artworks.GetByProductID(line.ProductID)
	if err == domain.ErrNotFound {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("look up artwork: %w", err)
	}

	artist, err := s.artists.GetByID(artwork.ArtistID)
	if err != nil {
		return nil, nil, fmt.Errorf("load artwork owner: %w", err)
	}
	return artist, nil, nil
}

// AttributeSale resolves the attributed artist and, when a referral link
// applied, marks it used.
func (s *Service) AttributeSale(line *domain.SoldLine) (*domain.Artist, error) {
	artist, link, err := s.Resolve(line)
	if err != nil {
		return nil, err
	}
	if link != nil {
		if err := s.ConsumeLink(link); err != nil {
			return nil, err
		}
	}
	return artist, nil
}

// ConsumeLink marks a link used and bumps its usage counter.
func (s *Service) ConsumeLink(link *domain.ReferralLink) error {
	return s.referrals.MarkUsed(link.ID)
}

// uniqueCode draws random alphanumeric codes until one is free. Collisions
// at 12 characters are vanishingly rare, so the loop almost never repeats.
func (s *Service) uniqueCode() (string, error) {
	for {
		code, err := randomCode(codeLength)
		if err != nil {
			return "", err
		}
		exists, err := s.referrals.CodeExists(code)
		if err != nil {
			return "", fmt.Errorf("check code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeChars[int(b)%len(codeChars)]
	}
	return string(buf), nil
}
