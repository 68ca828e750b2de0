/*
handlers.go - HTTP handlers for the loyalty ledger

PURPOSE:
  Exposes the ledger engine over REST. This is the boundary the chat
  transport calls into: it parses requests, delegates to the engine, and
  maps domain errors to HTTP statuses.

ENDPOINTS:
  POST   /api/profiles                   Register a profile (idempotent per chat user)
  GET    /api/profiles/{chatUserID}      Profile snapshot (applies daily rewards first)
  GET    /api/profiles/{chatUserID}/qr   Enrollment QR payload URL
  POST   /api/scans                      Record a scan
  GET    /api/scans?loyalty_id=...       Scan history
  GET    /api/employees/{id}             Directory lookup

REWARD POLICY:
  Daily rewards are applied lazily: every profile read first runs
  ApplyDailyRewards so balances are current. There is no background timer.

ERROR HANDLING:
  - 400: Invalid input
  - 404: EmployeeNotFound / NotRegistered / ProfileNotFound
  - 503: Durable store unavailable
  - 500: Everything else
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/loyalty-ledger/ledger"
	"github.com/warp/loyalty-ledger/qr"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine     *ledger.Engine
	QRBaseHost string
}

// NewHandler creates a handler over the given engine. baseHost roots the
// QR payload URLs.
func NewHandler(engine *ledger.Engine, baseHost string) *Handler {
	return &Handler{Engine: engine, QRBaseHost: baseHost}
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// RegisterProfile registers a chat user against an employee id.
// POST /api/profiles
func (h *Handler) RegisterProfile(w http.ResponseWriter, r *http.Request) {
	var req RegisterProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" || req.ChatUserID == "" {
		writeError(w, http.StatusBadRequest, "employee_id and chat_user_id are required", nil)
		return
	}

	profile, err := h.Engine.RegisterProfile(r.Context(), req.EmployeeID, req.ChatUserID)
	if err != nil {
		writeEngineError(w, "Failed to register profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileDTO(profile))
}

// GetProfile returns the chat user's profile snapshot, applying any pending
// daily reward first.
// GET /api/profiles/{chatUserID}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	chatUserID := chi.URLParam(r, "chatUserID")

	if err := h.Engine.ApplyDailyRewards(r.Context()); err != nil {
		writeEngineError(w, "Failed to apply daily rewards", err)
		return
	}

	profile, err := h.Engine.LookupProfile(r.Context(), chatUserID)
	if err != nil {
		writeEngineError(w, "Failed to look up profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileDTO(profile))
}

// GetQRPayload returns the enrollment QR payload URL for the chat user.
// GET /api/profiles/{chatUserID}/qr
func (h *Handler) GetQRPayload(w http.ResponseWriter, r *http.Request) {
	chatUserID := chi.URLParam(r, "chatUserID")

	if err := h.Engine.ApplyDailyRewards(r.Context()); err != nil {
		writeEngineError(w, "Failed to apply daily rewards", err)
		return
	}

	profile, err := h.Engine.LookupProfile(r.Context(), chatUserID)
	if err != nil {
		writeEngineError(w, "Failed to look up profile", err)
		return
	}

	emp, err := h.Engine.FindEmployee(r.Context(), profile.EmployeeID)
	if err != nil {
		writeEngineError(w, "Failed to resolve employee", err)
		return
	}

	baseHost := h.QRBaseHost
	if base := r.URL.Query().Get("base"); base != "" {
		baseHost = base
	}

	payload, err := qr.EncodePayload(baseHost, *emp, *profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to encode QR payload", err)
		return
	}

	writeJSON(w, http.StatusOK, QRPayloadResponse{URL: payload})
}

// =============================================================================
// SCAN HANDLERS
// =============================================================================

// RecordScan credits a scan to a profile and appends a history record.
// POST /api/scans
func (h *Handler) RecordScan(w http.ResponseWriter, r *http.Request) {
	var req RecordScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.LoyaltyID == "" {
		writeError(w, http.StatusBadRequest, "loyalty_id is required", nil)
		return
	}
	scanType := ledger.ScanType(req.ScanType)
	if scanType == "" {
		scanType = ledger.ScanTypeBot
	}

	profile, err := h.Engine.RecordScan(r.Context(), req.LoyaltyID, scanType)
	if err != nil {
		writeEngineError(w, "Failed to record scan", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileDTO(profile))
}

// ListScans returns the scan history for a loyalty id.
// GET /api/scans?loyalty_id=...
func (h *Handler) ListScans(w http.ResponseWriter, r *http.Request) {
	loyaltyID := r.URL.Query().Get("loyalty_id")
	if loyaltyID == "" {
		writeError(w, http.StatusBadRequest, "loyalty_id query parameter is required", nil)
		return
	}

	events, err := h.Engine.ScanHistory(r.Context(), loyaltyID)
	if err != nil {
		writeEngineError(w, "Failed to load scan history", err)
		return
	}

	writeJSON(w, http.StatusOK, toScanEventDTOs(events))
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// GetEmployee resolves an employee id through the directory.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	emp, err := h.Engine.FindEmployee(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to look up employee", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors to HTTP statuses. Domain not-found
// outcomes are 404; store failures are 503 so callers know to retry.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
