package cli

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/atelier/commissions/internal/api"
	"github.com/atelier/commissions/internal/domain"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and daily batch schedulers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := seedDefaults(e); err != nil {
		return err
	}

	// Daily schedulers: settlement sweep and the tier batch. The tier batch
	// applies its own frequency gate, so a daily tick is safe.
	go runTicker("settlement sweep", e.cfg.Engine.SweepIntervalDuration(), func() error {
		_, err := e.scheduler.SweepPendingCommissions()
		return err
	})
	go runTicker("tier update", e.cfg.Engine.TierIntervalDuration(), func() error {
		_, err := e.tiers.UpdateAllTiers(false)
		return err
	})

	router := api.NewRouter(api.Deps{
		Artists:        e.artists,
		Artworks:       e.artworks,
		Commissions:    e.commissions,
		Referrals:      e.referrals,
		Lines:          e.lines,
		Ledger:         e.ledger,
		Scheduler:      e.scheduler,
		Tiers:          e.tiers,
		Links:          e.links,
		Notifier:       e.notifier,
		MetricsEnabled: e.cfg.Engine.MetricsEnabled,
	})

	addr := fmt.Sprintf("%s:%d", e.cfg.Server.Host, e.cfg.Server.Port)
	log.Printf("Atelier commission engine")
	log.Printf("Listening on http://%s", addr)
	log.Printf("API base: http://%s/api/v1", addr)

	return http.ListenAndServe(addr, router)
}

func runTicker(name string, interval time.Duration, fn func() error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := fn(); err != nil {
			log.Printf("[scheduler] WARNING: %s failed: %v", name, err)
		}
	}
}

// seedDefaults installs the standard tier set and commission settings on a
// fresh database so the engine is operable out of the box. Existing
// configuration is never touched.
func seedDefaults(e *engine) error {
	count, err := e.tiersRepo.Count()
	if err != nil {
		return fmt.Errorf("count tiers: %w", err)
	}
	if count == 0 {
		log.Println("Database has no tiers, seeding default tier set...")
		defaults := []domain.TierDefinition{
			{Name: "New", Level: 0, SalesThreshold: decimal.Zero, Percentile: 100, CommissionRate: decimal.NewFromInt(5)},
			{Name: "Emerging", Level: 1, SalesThreshold: decimal.NewFromInt(1000), Percentile: 50, CommissionRate: decimal.NewFromFloat(7.5)},
			{Name: "Popular", Level: 2, SalesThreshold: decimal.NewFromInt(5000), Percentile: 20, CommissionRate: decimal.NewFromInt(10)},
			{Name: "Famous", Level: 3, SalesThreshold: decimal.NewFromInt(20000), Percentile: 5, CommissionRate: decimal.NewFromFloat(12.5)},
		}
		for i := range defaults {
			if err := e.tiersRepo.Upsert(&defaults[i]); err != nil {
				return fmt.Errorf("seed tier %s: %w", defaults[i].Name, err)
			}
		}
	}

	if _, err := e.settings.Get(); err == domain.ErrSettingsMissing {
		log.Println("No commission settings found, installing defaults...")
		return e.settings.Save(&domain.CommissionSettings{
			CommissionPeriodDays:   14,
			ReferralRate:           decimal.NewFromInt(10),
			ProductTypeCommissions: map[string]decimal.Decimal{},
			TierCommissions: map[string]decimal.Decimal{
				"New":      decimal.NewFromInt(5),
				"Emerging": decimal.NewFromFloat(7.5),
				"Popular":  decimal.NewFromInt(10),
				"Famous":   decimal.NewFromFloat(12.5),
			},
			TierUpdateFrequencyDays: 30,
		})
	} else if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	return nil
}
