package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"charak/internal/custody"
	"charak/internal/transport/http/shared"
	dErrors "charak/pkg/domain-errors"
)

type generateClinicKeyRequest struct {
	KeyType string `json:"key_type"`
	KeySize int    `json:"key_size"`
}

type rotateClinicKeyRequest struct {
	CurrentKeyID string `json:"current_key_id"`
	Reason       string `json:"reason"`
}

type recoveryRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleGenerateClinicKey(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")

	var req generateClinicKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	keyType, err := custody.ParseKeyType(req.KeyType)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	meta, err := h.custody.GenerateAndStoreClinicKey(r.Context(), clinicID, keyType, req.KeySize)
	if err != nil {
		h.logFailure(r, "generate clinic key", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, meta)
}

func (h *Handler) handleRotateClinicKey(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")

	var req rotateClinicKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.custody.RotateClinicKey(r.Context(), clinicID, req.CurrentKeyID, req.Reason)
	if err != nil {
		h.logFailure(r, "rotate clinic key", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRecovery(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")

	var req recoveryRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	result, err := h.custody.PerformRecoveryProcedure(r.Context(), clinicID, req.Reason)
	if err != nil {
		h.logFailure(r, "custody recovery", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetClinicKey(w http.ResponseWriter, r *http.Request) {
	meta, err := h.custody.GetKeyMetadata(r.Context(), chi.URLParam(r, "keyID"))
	if err != nil {
		h.logFailure(r, "get clinic key", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, meta)
}

func (h *Handler) handleListClinicKeys(w http.ResponseWriter, r *http.Request) {
	list, err := h.custody.ListClinicKeys(r.Context(), chi.URLParam(r, "clinicID"))
	if err != nil {
		h.logFailure(r, "list clinic keys", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleAccessHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.custody.AccessHistory(r.Context(), chi.URLParam(r, "keyID"))
	if err != nil {
		h.logFailure(r, "custody access history", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, history)
}
