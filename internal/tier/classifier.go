// Package tier classifies artists into commission tiers, either by
// trailing-sales threshold or by percentile rank over the whole population.
package tier

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/domain"
	"github.com/atelier/commissions/internal/metrics"
	"github.com/atelier/commissions/internal/notify"
	"github.com/atelier/commissions/internal/repository"
)

// ClassifyByThreshold selects the tier with the highest sales threshold not
// exceeding the artist's total sales. Returns nil when no tier qualifies.
func ClassifyByThreshold(totalSales decimal.Decimal, tiers []domain.TierDefinition) *domain.TierDefinition {
	var best *domain.TierDefinition
	for i := range tiers {
		t := &tiers[i]
		if t.SalesThreshold.GreaterThan(totalSales) {
			continue
		}
		if best == nil || t.SalesThreshold.GreaterThan(best.SalesThreshold) {
			best = t
		}
	}
	return best
}

// ClassifyByPercentile selects the tier whose percentile cutoff is the
// smallest value at or above the artist's percentile. rank is the artist's
// zero-based position when all artists are ordered by total sales descending
// (artist ID ascending as tiebreak, so equal sales rank deterministically).
func ClassifyByPercentile(rank, population int, tiers []domain.TierDefinition) *domain.TierDefinition {
	if population == 0 {
		return nil
	}
	percentile := float64(rank+1) / float64(population) * 100

	var best *domain.TierDefinition
	for i := range tiers {
		t := &tiers[i]
		if t.Percentile < percentile {
			continue
		}
		if best == nil || t.Percentile < best.Percentile {
			best = t
		}
	}
	return best
}

// Result summarises one reclassification batch.
type Result struct {
	Skipped    bool `json:"skipped"`
	Artists    int  `json:"artists"`
	Updated    int  `json:"updated"`
	Upgrades   int  `json:"upgrades"`
	Downgrades int  `json:"downgrades"`
}

// Service runs the scheduled reclassification batch. Percentile mode is only
// meaningful over the whole population, so this never runs per-sale: totals
// are read in one snapshot query, then every artist is ranked against it.
type Service struct {
	artists  *repository.ArtistRepo
	tiers    *repository.TierRepo
	settings *repository.SettingsRepo
	lines    *repository.LineRepo
	notifier notify.Notifier
	nowFn    func() time.Time
}

func NewService(
	artists *repository.ArtistRepo,
	tiers *repository.TierRepo,
	settings *repository.SettingsRepo,
	lines *repository.LineRepo,
	notifier notify.Notifier,
) *Service {
	return &Service{
		artists:  artists,
		tiers:    tiers,
		settings: settings,
		lines:    lines,
		notifier: notifier,
		nowFn:    time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (s *Service) SetNowFunc(fn func() time.Time) { s.nowFn = fn }

// UpdateAllTiers recomputes every artist's trailing sales from fulfilled
// lines, reclassifies them, and applies only the changed assignments. The
// batch is a no-op until the configured update frequency has elapsed; pass
// force to override the gate (the admin endpoint does).
func (s *Service) UpdateAllTiers(force bool) (*Result, error) {
	now := s.nowFn()

	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !force && !settings.TierUpdateDue(now) {
		log.Printf("[tier] update not due yet (frequency %d days)", settings.TierUpdateFrequencyDays)
		return &Result{Skipped: true}, nil
	}

	tiers, err := s.tiers.ListOrdered()
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("no tier definitions: %w", domain.ErrSettingsMissing)
	}
	levels := make(map[string]int, len(tiers))
	for _, t := range tiers {
		levels[t.Name] = t.Level
	}

	// One snapshot of everyone's fulfilled sales; concurrent credits cannot
	// shift an artist's figure mid-ranking.
	totals, err := s.lines.FulfilledSalesByArtist()
	if err != nil {
		return nil, fmt.Errorf("aggregate fulfilled sales: %w", err)
	}

	artists, err := s.artists.ListAll()
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}

	for i := range artists {
		a := &artists[i]
		a.TotalSales = totals[a.ID]
		if err := s.artists.SetTotalSales(a.ID, a.TotalSales); err != nil {
			return nil, fmt.Errorf("persist total sales for %s: %w", a.ID, err)
		}
	}

	// Rank on the fresh totals: sales descending, artist ID ascending.
	sort.SliceStable(artists, func(i, j int) bool {
		if !artists[i].TotalSales.Equal(artists[j].TotalSales) {
			return artists[i].TotalSales.GreaterThan(artists[j].TotalSales)
		}
		return artists[i].ID < artists[j].ID
	})

	result := &Result{Artists: len(artists)}
	for rank := range artists {
		a := &artists[rank]

		var def *domain.TierDefinition
		if settings.UsePercentile {
			def = ClassifyByPercentile(rank, len(artists), tiers)
		} else {
			def = ClassifyByThreshold(a.TotalSales, tiers)
		}
		if def == nil || def.Name == a.TierName {
			continue
		}

		if err := s.artists.UpdateTier(a.ID, def.Name, now); err != nil {
			return nil, fmt.Errorf("update tier for %s: %w", a.ID, err)
		}

		// An artist with no prior tier counts as an upgrade.
		upgrade := a.TierName == "" || def.Level > levels[a.TierName]
		if upgrade {
			result.Upgrades++
			metrics.TierChanges.WithLabelValues("upgrade").Inc()
		} else {
			result.Downgrades++
			metrics.TierChanges.WithLabelValues("downgrade").Inc()
		}
		result.Updated++
		s.notifier.TierChanged(a, a.TierName, def.Name, upgrade)
		a.TierName = def.Name
	}

	if err := s.settings.SetLastTierUpdate(now); err != nil {
		return nil, fmt.Errorf("record tier update time: %w", err)
	}

	log.Printf("[tier] reclassified %d artist(s): %d updated (%d up, %d down)",
		result.Artists, result.Updated, result.Upgrades, result.Downgrades)
	return result, nil
}
