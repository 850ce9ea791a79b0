package httptransport

import (
	"encoding/json"
	"net/http"

	"charak/internal/transport/http/shared"
	dErrors "charak/pkg/domain-errors"
)

type startSessionRequest struct {
	EncounterID string `json:"encounter_id"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
}

type forcePurgeRequest struct {
	Reason string `json:"reason"`
}

type purgeStateResponse struct {
	State     string `json:"state"`
	BufferLen int    `json:"buffer_len"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sessionID, err := h.purge.StartSession(r.Context(), req.EncounterID)
	if err != nil {
		h.logFailure(r, "start purge session", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, startSessionResponse{SessionID: sessionID})
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.purge.EndSession(r.Context()); err != nil {
		h.logFailure(r, "end purge session", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePurgeState(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, purgeStateResponse{
		State:     string(h.purge.State()),
		BufferLen: h.purge.BufferLen(),
	})
}

func (h *Handler) handleForcePurge(w http.ResponseWriter, r *http.Request) {
	var req forcePurgeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	if err := h.purge.ForcePurge(r.Context(), req.Reason); err != nil {
		h.logFailure(r, "force purge", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
