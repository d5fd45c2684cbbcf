package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"societyAdminAPI/internal/types/society"
	"societyAdminAPI/services"
)

type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
	logger        *zap.Logger
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, logger: orNop(logger)}
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	views, err := h.subscriptions.List(ctx)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, views)
}

func (h *SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.subscriptions.Toggle)
}

func (h *SubscriptionHandler) Extend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.subscriptions.Extend)
}

func (h *SubscriptionHandler) Reduce(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.subscriptions.Reduce)
}

func (h *SubscriptionHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (society.View, error)) {
	ctx, cancel := requestContext(r)
	defer cancel()

	view, err := fn(ctx, mux.Vars(r)["id"])
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}
