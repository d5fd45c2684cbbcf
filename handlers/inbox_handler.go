package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"societyAdminAPI/internal/audit"
	"societyAdminAPI/internal/types/inquiry"
	"societyAdminAPI/services"
)

// InboxHandler serves the read-mostly pages: dashboard, inquiries,
// suggestions and the audit trail.
type InboxHandler struct {
	dashboard   *services.DashboardService
	inquiries   *services.InquiryService
	suggestions *services.SuggestionService
	audit       *audit.Recorder
	logger      *zap.Logger
}

func NewInboxHandler(
	dashboard *services.DashboardService,
	inquiries *services.InquiryService,
	suggestions *services.SuggestionService,
	rec *audit.Recorder,
	logger *zap.Logger,
) *InboxHandler {
	return &InboxHandler{
		dashboard:   dashboard,
		inquiries:   inquiries,
		suggestions: suggestions,
		audit:       rec,
		logger:      orNop(logger),
	}
}

func (h *InboxHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	stats, err := h.dashboard.Stats(ctx)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (h *InboxHandler) ListInquiries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	list, err := h.inquiries.List(ctx)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *InboxHandler) UpdateInquiryStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req inquiry.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	in, err := h.inquiries.UpdateStatus(ctx, mux.Vars(r)["id"], req.Status)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, in)
}

func (h *InboxHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	list, err := h.suggestions.List(ctx)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *InboxHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.audit.Recent(ctx, limit)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
