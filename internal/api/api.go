// Package api exposes the settlement engine over HTTP as a JSON API.
// Handlers stay thin: decode, call the service, map errors to status
// codes. All domain decisions live behind the service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/models"
	"github.com/gigledger/gigledger/internal/service"
	"github.com/gigledger/gigledger/internal/settlement"
	"github.com/gigledger/gigledger/internal/storage"
	"github.com/gigledger/gigledger/internal/validation"
	"github.com/gigledger/gigledger/internal/workflow"
)

// Server holds the HTTP handlers for the deal API.
type Server struct {
	deals *service.DealService
}

// NewServer creates a Server over the given service.
func NewServer(deals *service.DealService) *Server {
	return &Server{deals: deals}
}

// Routes mounts every deal endpoint on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogger)

	r.Route("/deals", func(r chi.Router) {
		r.Post("/", s.createDeal)
		r.Route("/{dealID}", func(r chi.Router) {
			r.Get("/", s.getDeal)
			r.Post("/submit", s.submitDeal)
			r.Post("/activate", s.activateDeal)
			r.Put("/revenue", s.setRevenue)
			r.Post("/cancel", s.cancelDeal)
			r.Post("/approve-all", s.approveAllForParty)
			r.Get("/preview", s.previewSettlement)
			r.Post("/settle", s.settleDeal)
			r.Get("/settlement", s.getSettlement)
			r.Get("/history", s.getHistory)
			r.Get("/participant-stats", s.participantStats)

			r.Post("/participants", s.addParticipant)
			r.Route("/participants/{participantID}", func(r chi.Router) {
				r.Put("/", s.updateParticipantTerms)
				r.Delete("/", s.removeParticipant)
				r.Post("/approve", s.approve)
				r.Post("/request-changes", s.requestChanges)
				r.Post("/decline", s.decline)
				r.Post("/reinvite", s.reinvite)
			})
		})
	})

	r.Get("/events/{eventID}/deal-stats", s.dealStats)
	r.Put("/managers/{managerID}", s.upsertManager)

	return r
}

type errorResponse struct {
	Error      string                 `json:"error"`
	Violations []validation.Violation `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors to HTTP status codes. Validation
// failures carry the full violation list so clients can show every
// problem at once.
func writeError(w http.ResponseWriter, err error) {
	var blocked *workflow.SubmissionBlockedError
	if errors.As(err, &blocked) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      "deal not ready for submission",
			Violations: blocked.Violations,
		})
		return
	}
	var failed *settlement.ValidationFailedError
	if errors.As(err, &failed) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      "deal not eligible for settlement",
			Violations: failed.Violations,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, workflow.ErrUnknownParticipant):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrVersionConflict),
		errors.Is(err, storage.ErrDealNotSettleable),
		errors.Is(err, workflow.ErrDealLocked),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, service.ErrDealNotEditable):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) {
	var payload dealPayload
	if err := decode(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	deal := payload.toModel()
	if err := s.deals.CreateDeal(r.Context(), deal); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dealFromModel(deal))
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := s.deals.GetDeal(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealFromModel(deal))
}

func (s *Server) submitDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := s.deals.SubmitForApproval(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealFromModel(deal))
}

func (s *Server) addParticipant(w http.ResponseWriter, r *http.Request) {
	var payload participantPayload
	if err := decode(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	p := payload.toModel()
	if err := s.deals.AddParticipant(r.Context(), chi.URLParam(r, "dealID"), &p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, participantFromModel(p))
}

func (s *Server) updateParticipantTerms(w http.ResponseWriter, r *http.Request) {
	var payload participantPayload
	if err := decode(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	p := payload.toModel()
	p.ID = chi.URLParam(r, "participantID")
	if err := s.deals.UpdateParticipantTerms(r.Context(), chi.URLParam(r, "dealID"), &p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participantFromModel(p))
}

func (s *Server) removeParticipant(w http.ResponseWriter, r *http.Request) {
	err := s.deals.RemoveParticipant(r.Context(),
		chi.URLParam(r, "dealID"), chi.URLParam(r, "participantID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, dealID, participantID string) (*models.Deal, error)) {
	deal, err := op(r.Context(), chi.URLParam(r, "dealID"), chi.URLParam(r, "participantID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealFromModel(deal))
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.deals.Approve)
}

func (s *Server) requestChanges(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.deals.RequestChanges)
}

func (s *Server) decline(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.deals.Decline)
}

func (s *Server) reinvite(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.deals.Reinvite)
}

func (s *Server) approveAllForParty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PartyID string `json:"party_id"`
	}
	if err := decode(r, &req); err != nil || req.PartyID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "party_id required"})
		return
	}

	deal, approved, err := s.deals.ApproveAllForParty(r.Context(), chi.URLParam(r, "dealID"), req.PartyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Approved int         `json:"approved"`
		Deal     dealPayload `json:"deal"`
	}{Approved: approved, Deal: dealFromModel(deal)})
}

func (s *Server) activateDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := s.deals.Activate(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealFromModel(deal))
}

func (s *Server) setRevenue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TotalRevenue decimal.Decimal `json:"total_revenue"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	deal, err := s.deals.SetRevenue(r.Context(), chi.URLParam(r, "dealID"), req.TotalRevenue)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealFromModel(deal))
}

func (s *Server) cancelDeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CancelledBy string `json:"cancelled_by"`
		Reason      string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	deal, err := s.deals.Cancel(r.Context(), chi.URLParam(r, "dealID"), req.CancelledBy, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealFromModel(deal))
}

func (s *Server) previewSettlement(w http.ResponseWriter, r *http.Request) {
	lines, err := s.deals.Preview(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linesFromModel(lines))
}

func (s *Server) settleDeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SettledBy string `json:"settled_by"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	deal, lines, err := s.deals.Settle(r.Context(), chi.URLParam(r, "dealID"), req.SettledBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Deal  dealPayload             `json:"deal"`
		Lines []settlementLinePayload `json:"lines"`
	}{Deal: dealFromModel(deal), Lines: linesFromModel(lines)})
}

func (s *Server) getSettlement(w http.ResponseWriter, r *http.Request) {
	lines, err := s.deals.SettlementLines(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linesFromModel(lines))
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	events, err := s.deals.History(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) participantStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deals.ParticipantStatsByDeal(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) dealStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deals.DealStats(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) upsertManager(w http.ResponseWriter, r *http.Request) {
	var payload managerPayload
	if err := decode(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	m := models.Manager{
		ID:          chi.URLParam(r, "managerID"),
		Name:        payload.Name,
		DefaultRate: payload.DefaultRate,
	}
	if err := s.deals.UpsertManager(r.Context(), m); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, managerPayload{ID: m.ID, Name: m.Name, DefaultRate: m.DefaultRate})
}
