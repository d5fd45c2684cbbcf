package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"societyAdminAPI/internal/types/announcement"
	"societyAdminAPI/services"
)

type AnnouncementHandler struct {
	announcements *services.AnnouncementService
	logger        *zap.Logger
}

func NewAnnouncementHandler(announcements *services.AnnouncementService, logger *zap.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements, logger: orNop(logger)}
}

// List returns broadcast announcements, optionally for ?societyId=.
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	list, err := h.announcements.ListAnnouncements(ctx, r.URL.Query().Get("societyId"))
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *AnnouncementHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req announcement.BroadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	count, err := h.announcements.BroadcastNow(ctx, req)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, announcement.BroadcastResponse{Count: count})
}

func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	id := mux.Vars(r)["id"]
	if err := h.announcements.DeleteAnnouncement(ctx, id); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *AnnouncementHandler) ListScheduled(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	list, err := h.announcements.ListScheduled(ctx)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *AnnouncementHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req announcement.ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	a, err := h.announcements.Schedule(ctx, req)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, a)
}

func (h *AnnouncementHandler) EditScheduled(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req announcement.ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	a, err := h.announcements.Edit(ctx, mux.Vars(r)["id"], req)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, a)
}

func (h *AnnouncementHandler) CancelScheduled(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	a, err := h.announcements.Cancel(ctx, mux.Vars(r)["id"])
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, a)
}
