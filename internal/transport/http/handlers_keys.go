package httptransport

import (
	"encoding/json"
	"net/http"

	"charak/internal/keys"
	"charak/internal/transport/http/shared"
	dErrors "charak/pkg/domain-errors"
)

type rotateKeysRequest struct {
	Purpose string `json:"purpose"`
	Reason  string `json:"reason,omitempty"`
}

type sweepKeysResponse struct {
	Swept int `json:"swept"`
}

func (h *Handler) handleListKeys(w http.ResponseWriter, r *http.Request) {
	purpose, err := keys.ParsePurpose(r.URL.Query().Get("purpose"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	list, err := h.keys.List(r.Context(), purpose)
	if err != nil {
		h.logFailure(r, "list keys", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleRotateKeys(w http.ResponseWriter, r *http.Request) {
	var req rotateKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	purpose, err := keys.ParsePurpose(req.Purpose)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	reason := keys.RotationManual
	if req.Reason != "" {
		reason = keys.RotationReason(req.Reason)
	}

	result, err := h.keys.Rotate(r.Context(), purpose, reason)
	if err != nil {
		h.logFailure(r, "rotate keys", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSweepKeys(w http.ResponseWriter, r *http.Request) {
	swept, err := h.keys.SweepExpired(r.Context())
	if err != nil {
		h.logFailure(r, "sweep expired keys", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, sweepKeysResponse{Swept: swept})
}
