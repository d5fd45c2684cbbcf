package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"societyAdminAPI/internal/apperr"
)

// RequestTimeout bounds the work done for a single request.
var RequestTimeout = 10 * time.Second

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), RequestTimeout)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithAppError maps an error kind to its status code. Client errors
// carry their message; server-side failures are logged and summarised.
func respondWithAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := apperr.HTTPStatus(err)
	switch code {
	case http.StatusBadRequest, http.StatusConflict, http.StatusNotFound:
		respondWithError(w, code, err.Error())
	case http.StatusGatewayTimeout:
		logger.Warn("request timed out", zap.Error(err))
		respondWithError(w, code, "Upstream call timed out")
	case http.StatusBadGateway:
		logger.Error("upstream call failed", zap.Error(err))
		respondWithError(w, code, "Upstream call failed")
	default:
		logger.Error("request failed", zap.Error(err))
		respondWithError(w, code, "Internal server error")
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
