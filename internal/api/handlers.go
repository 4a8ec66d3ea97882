package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/commission"
	"github.com/atelier/commissions/internal/domain"
	"github.com/atelier/commissions/internal/notify"
	"github.com/atelier/commissions/internal/referral"
	"github.com/atelier/commissions/internal/repository"
	"github.com/atelier/commissions/internal/settlement"
	"github.com/atelier/commissions/internal/tier"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	artists     *repository.ArtistRepo
	artworks    *repository.ArtworkRepo
	commissions *repository.CommissionRepo
	referrals   *repository.ReferralRepo
	lines       *repository.LineRepo
	ledger      *commission.Ledger
	scheduler   *settlement.Scheduler
	tiers       *tier.Service
	links       *referral.Service
	notifier    notify.Notifier
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- HandleSaleEvent ---

type saleEvent struct {
	Type string          `json:"type"`
	Line domain.SoldLine `json:"line"`
}

// HandleSaleEvent is the entry point for the sale event source: line
// created, fulfilled, and cancelled/returned events.
func (h *Handlers) HandleSaleEvent(w http.ResponseWriter, r *http.Request) {
	var ev saleEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload: "+err.Error())
		return
	}
	if ev.Line.ID == "" {
		writeError(w, http.StatusBadRequest, "line.id is required")
		return
	}

	switch ev.Type {
	case "line_created":
		if ev.Line.OccurredAt.IsZero() {
			ev.Line.OccurredAt = time.Now()
		}
		result, err := h.ledger.RecordSale(&ev.Line)
		if err != nil {
			if errors.Is(err, domain.ErrSettingsMissing) {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)

	case "line_fulfilled":
		if err := h.lines.UpdateStatus(ev.Line.ID, domain.LineFulfilled); err != nil {
			if err == domain.ErrNotFound {
				writeError(w, http.StatusNotFound, "unknown line")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "fulfilled"})

	case "line_cancelled":
		cancelled, err := h.ledger.CancelForReturnedLine(ev.Line.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cancelled_commissions": cancelled})

	default:
		writeError(w, http.StatusBadRequest, "unknown event type: "+ev.Type)
	}
}

// --- Artists ---

type registerArtistRequest struct {
	UserID    string `json:"user_id"`
	LegalName string `json:"legal_name"`
}

func (h *Handlers) RegisterArtist(w http.ResponseWriter, r *http.Request) {
	var req registerArtistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	if req.UserID == "" || req.LegalName == "" {
		writeError(w, http.StatusBadRequest, "user_id and legal_name are required")
		return
	}

	artist := &domain.Artist{
		ID:                uuid.NewString(),
		UserID:            req.UserID,
		LegalName:         req.LegalName,
		ApplicationStatus: domain.ApplicationPending,
		CreatedAt:         time.Now(),
	}
	if err := h.artists.Insert(artist); err != nil {
		writeError(w, http.StatusConflict, "could not register artist: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, artist)
}

type applicationStatusRequest struct {
	Status domain.ApplicationStatus `json:"status"`
}

func (h *Handlers) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req applicationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	switch req.Status {
	case domain.ApplicationPending, domain.ApplicationLegalReview,
		domain.ApplicationApproved, domain.ApplicationRejected:
	default:
		writeError(w, http.StatusBadRequest, "unknown application status")
		return
	}

	if err := h.artists.UpdateApplicationStatus(id, req.Status); err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "artist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	artist, err := h.artists.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.notifier.ApplicationStatusChanged(artist)
	writeJSON(w, http.StatusOK, artist)
}

func (h *Handlers) ListArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := h.artists.ListAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artists": artists, "total": len(artists)})
}

type addArtworkRequest struct {
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	ProductID     string          `json:"product_id"`
	ProductTypeID string          `json:"product_type_id"`
}

func (h *Handlers) AddArtwork(w http.ResponseWriter, r *http.Request) {
	artistID := chi.URLParam(r, "id")
	if _, err := h.artists.GetByID(artistID); err != nil {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}

	var req addArtworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	if req.ProductID == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title and product_id are required")
		return
	}

	artwork := &domain.Artwork{
		ID:            uuid.NewString(),
		ArtistID:      artistID,
		Title:         req.Title,
		Price:         req.Price,
		ProductID:     req.ProductID,
		ProductTypeID: req.ProductTypeID,
		Available:     true,
		CreatedAt:     time.Now(),
	}
	if err := h.artworks.Insert(artwork); err != nil {
		writeError(w, http.StatusConflict, "could not add artwork: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, artwork)
}

// GetArtistEarnings returns the artist row plus commission and referral
// figures for the dashboard.
func (h *Handlers) GetArtistEarnings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	artist, err := h.artists.GetByID(id)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "artist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	commissions, total, err := h.commissions.List(repository.CommissionFilter{ArtistID: id, Limit: 100})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	links, err := h.referrals.ListByArtist(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"artist":           artist,
		"commissions":      commissions,
		"commission_count": total,
		"referral_links":   len(links),
	})
}

// --- Payout ---

func (h *Handlers) PayoutArtist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.artists.GetByID(id); err != nil {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}

	total, err := h.scheduler.PayoutArtist(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artist_id": id, "paid_out": total})
}

// --- Referral links ---

type generateLinkRequest struct {
	ArtistID  string `json:"artist_id"`
	ProductID string `json:"product_id"`
}

func (h *Handlers) GenerateReferralLink(w http.ResponseWriter, r *http.Request) {
	var req generateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	if req.ArtistID == "" || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "artist_id and product_id are required")
		return
	}
	if _, err := h.artists.GetByID(req.ArtistID); err != nil {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}

	link, err := h.links.GenerateLink(req.ArtistID, req.ProductID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// --- Commissions ---

func (h *Handlers) ListCommissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.CommissionFilter{
		ArtistID: q.Get("artist_id"),
		Status:   q.Get("status"),
		Page:     parseIntDefault(q.Get("page"), 1),
		Limit:    parseIntDefault(q.Get("limit"), 50),
	}

	commissions, total, err := h.commissions.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"commissions": commissions,
		"total":       total,
		"page":        filter.Page,
		"limit":       filter.Limit,
	})
}

// --- Admin batches ---

func (h *Handlers) RunSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.SweepPendingCommissions()
	if err != nil {
		if errors.Is(err, domain.ErrSettingsMissing) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) RunTierUpdate(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	result, err := h.tiers.UpdateAllTiers(force)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Dashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	artistCount, err := h.artists.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	statusCounts, err := h.commissions.CountByStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"artists":               artistCount,
		"commissions_by_status": statusCounts,
	})
}
