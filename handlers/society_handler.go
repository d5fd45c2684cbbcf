package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/types/society"
	"societyAdminAPI/services"
)

type SocietyHandler struct {
	societies *services.SocietyService
	logger    *zap.Logger
}

func NewSocietyHandler(societies *services.SocietyService, logger *zap.Logger) *SocietyHandler {
	return &SocietyHandler{societies: societies, logger: orNop(logger)}
}

func (h *SocietyHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	views, err := h.societies.List(ctx)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, views)
}

func (h *SocietyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req society.CreateSocietyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	res, err := h.societies.Create(ctx, req)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, res)
}

func (h *SocietyHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	detail, err := h.societies.Detail(ctx, mux.Vars(r)["id"])
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

func (h *SocietyHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req society.UpdateSocietyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	view, err := h.societies.Update(ctx, mux.Vars(r)["id"], req)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// Delete purges a society. The caller must repeat the id in ?confirm=.
func (h *SocietyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	id := mux.Vars(r)["id"]
	if err := h.societies.Purge(ctx, id, r.URL.Query().Get("confirm")); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *SocietyHandler) RegenerateQR(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	view, err := h.societies.RegenerateQR(ctx, mux.Vars(r)["id"])
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *SocietyHandler) VisitorQR(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "size must be a number")
			return
		}
		size = n
	}

	png, err := h.societies.VisitorQR(ctx, mux.Vars(r)["id"], size)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *SocietyHandler) SetFeature(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req society.SetFeatureRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	if req.Enabled == nil {
		respondWithAppError(w, h.logger, apperr.Validation("enabled is required"))
		return
	}

	vars := mux.Vars(r)
	view, err := h.societies.SetFeature(ctx, vars["id"], vars["feature"], *req.Enabled)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}
