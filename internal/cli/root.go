// Package cli wires the commissiond commands: the long-running server and
// one-shot batch runs for operators.
package cli

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/atelier/commissions/internal/commission"
	"github.com/atelier/commissions/internal/config"
	"github.com/atelier/commissions/internal/notify"
	"github.com/atelier/commissions/internal/referral"
	"github.com/atelier/commissions/internal/repository"
	"github.com/atelier/commissions/internal/settlement"
	"github.com/atelier/commissions/internal/tier"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "commissiond",
	Short: "Artist commission and settlement engine",
	Long: `commissiond computes artist commissions for sold order lines, settles
them through the pending/credited/paid lifecycle, and reclassifies
artist tiers from trailing sales.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "commissiond.toml", "Path to the TOML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// engine bundles the wired services and repositories a command needs.
type engine struct {
	db          *sql.DB
	cfg         config.Config
	artists     *repository.ArtistRepo
	artworks    *repository.ArtworkRepo
	commissions *repository.CommissionRepo
	referrals   *repository.ReferralRepo
	lines       *repository.LineRepo
	tiersRepo   *repository.TierRepo
	settings    *repository.SettingsRepo
	ledger      *commission.Ledger
	scheduler   *settlement.Scheduler
	tiers       *tier.Service
	links       *referral.Service
	notifier    notify.Notifier
}

func openEngine() (*engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log.Printf("[cli] opening database at %s", cfg.Database.Path)
	db, err := repository.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	e := &engine{
		db:          db,
		cfg:         cfg,
		artists:     repository.NewArtistRepo(db),
		artworks:    repository.NewArtworkRepo(db),
		commissions: repository.NewCommissionRepo(db),
		referrals:   repository.NewReferralRepo(db),
		lines:       repository.NewLineRepo(db),
		tiersRepo:   repository.NewTierRepo(db),
		settings:    repository.NewSettingsRepo(db),
		notifier:    notify.LogNotifier{},
	}

	e.links = referral.NewService(e.referrals, e.artworks, e.artists)
	e.ledger = commission.NewLedger(db, e.commissions, e.artists, e.lines, e.settings, e.links, e.notifier)
	e.scheduler = settlement.NewScheduler(db, e.commissions, e.artists, e.settings, e.ledger, e.notifier)
	e.scheduler.SetBatchSize(cfg.Engine.SweepBatchSize)
	e.tiers = tier.NewService(e.artists, e.tiersRepo, e.settings, e.lines, e.notifier)

	return e, nil
}

func (e *engine) Close() {
	e.db.Close()
}
