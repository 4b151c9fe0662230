/**
 * @description
 * This file contains the HTTP handler functions for the user-service.
 * Handlers parse incoming requests, call the service layer, and write the JSON response.
 * Internal error detail is logged by the service and never written to the response body.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	goversion "github.com/caarlos0/go-version"
	"github.com/go-chi/chi/v5"

	"github.com/swiftorder/user-service/internal/domain"
)

const (
	msgInvalidUserID       = "Invalid user id"
	msgUserNotFound        = "User not found"
	msgInternalServerError = "Internal server error"
	msgDatabaseUnavailable = "Database unavailable"
)

// CreditChecker is the service capability the credit route depends on.
type CreditChecker interface {
	CheckCredit(ctx context.Context, userID int64) (*domain.CreditDecision, error)
	VersionTag() string
	Ping(ctx context.Context) error
}

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service   CreditChecker
	buildInfo goversion.Info
	logger    *slog.Logger
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service CreditChecker, buildInfo goversion.Info, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, buildInfo: buildInfo, logger: logger}
}

// CreditResponse is the body of a successful credit lookup.
type CreditResponse struct {
	UserID          int64                 `json:"userId"`
	Status          domain.DecisionStatus `json:"status"`
	RemainingCredit json.Number           `json:"remainingCredit"`
	Version         string                `json:"version"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// VersionResponse describes the running build.
type VersionResponse struct {
	Service    string         `json:"service"`
	VersionTag string         `json:"versionTag"`
	Build      goversion.Info `json:"build"`
}

func newCreditResponse(d *domain.CreditDecision) CreditResponse {
	return CreditResponse{
		UserID:          d.UserID,
		Status:          d.Status,
		RemainingCredit: domain.CreditNumber(d.RemainingCredit),
		Version:         d.Version,
	}
}

// handleGetCredit handles GET /users/{userId}/credit.
func (h *Handler) handleGetCredit(w http.ResponseWriter, r *http.Request) {
	userID, err := ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, msgInvalidUserID)
		return
	}

	decision, err := h.service.CheckCredit(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, msgUserNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, msgInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, newCreditResponse(decision))
}

// handleHealth reports liveness only.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the User Store is reachable.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, msgDatabaseUnavailable)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion returns build information and the active version tag.
func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, VersionResponse{
		Service:    "user-service",
		VersionTag: h.service.VersionTag(),
		Build:      h.buildInfo,
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
