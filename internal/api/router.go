package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atelier/commissions/internal/commission"
	"github.com/atelier/commissions/internal/notify"
	"github.com/atelier/commissions/internal/referral"
	"github.com/atelier/commissions/internal/repository"
	"github.com/atelier/commissions/internal/settlement"
	"github.com/atelier/commissions/internal/tier"
)

// Deps collects everything the router needs.
type Deps struct {
	Artists     *repository.ArtistRepo
	Artworks    *repository.ArtworkRepo
	Commissions *repository.CommissionRepo
	Referrals   *repository.ReferralRepo
	Lines       *repository.LineRepo
	Ledger      *commission.Ledger
	Scheduler   *settlement.Scheduler
	Tiers       *tier.Service
	Links       *referral.Service
	Notifier    notify.Notifier

	MetricsEnabled bool
}

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(deps Deps) http.Handler {
	h := &Handlers{
		artists:     deps.Artists,
		artworks:    deps.Artworks,
		commissions: deps.Commissions,
		referrals:   deps.Referrals,
		lines:       deps.Lines,
		ledger:      deps.Ledger,
		scheduler:   deps.Scheduler,
		tiers:       deps.Tiers,
		links:       deps.Links,
		notifier:    deps.Notifier,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		// Sale event intake.
		r.Post("/sales/events", h.HandleSaleEvent)

		// Artists.
		r.Post("/artists", h.RegisterArtist)
		r.Get("/artists", h.ListArtists)
		r.Post("/artists/{id}/status", h.UpdateApplicationStatus)
		r.Post("/artists/{id}/artworks", h.AddArtwork)
		r.Get("/artists/{id}/earnings", h.GetArtistEarnings)
		r.Post("/artists/{id}/payout", h.PayoutArtist)

		// Referral links.
		r.Post("/referral-links", h.GenerateReferralLink)

		// Commissions.
		r.Get("/commissions", h.ListCommissions)

		// Admin batches.
		r.Post("/admin/sweep", h.RunSweep)
		r.Post("/admin/retier", h.RunTierUpdate)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}
