package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"societyAdminAPI/internal/types/unitrequest"
	"societyAdminAPI/services"
)

type UnitRequestHandler struct {
	requests *services.UnitRequestService
	logger   *zap.Logger
}

func NewUnitRequestHandler(requests *services.UnitRequestService, logger *zap.Logger) *UnitRequestHandler {
	return &UnitRequestHandler{requests: requests, logger: orNop(logger)}
}

func (h *UnitRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	list, err := h.requests.List(ctx, unitrequest.Kind(mux.Vars(r)["kind"]))
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *UnitRequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req unitrequest.DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	vars := mux.Vars(r)
	decided, err := h.requests.Decide(ctx, unitrequest.Kind(vars["kind"]), vars["id"], req.Action)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, decided)
}
