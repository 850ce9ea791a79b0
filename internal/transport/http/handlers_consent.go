package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"charak/internal/audit"
	"charak/internal/consent"
	"charak/internal/consent/cascade"
	"charak/internal/platform/middleware"
	"charak/internal/transport/http/shared"
	dErrors "charak/pkg/domain-errors"
)

// requestActor resolves the authenticated role to an audit actor. The
// auth middleware guarantees a valid role, so failure here is a wiring
// bug, not caller input.
func (h *Handler) requestActor(r *http.Request) (audit.Actor, error) {
	actor, err := audit.ParseActor(middleware.GetActor(r.Context()))
	if err != nil {
		return "", dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return actor, nil
}

type giveConsentRequest struct {
	Meta map[string]string `json:"meta,omitempty"`
}

type revokeConsentRequest struct {
	Reason string `json:"reason"`
}

type revokeConsentResponse struct {
	Record  consent.Record  `json:"record"`
	Cascade cascade.Summary `json:"cascade"`
}

type revokeFunc func(ctx context.Context, encounterID string, actor audit.Actor, reason string) (consent.Record, cascade.Summary, error)

func (h *Handler) handleGiveConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	encounterID := chi.URLParam(r, "encounterID")

	actor, err := h.requestActor(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req giveConsentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	record, err := h.consents.Give(ctx, encounterID, actor, req.Meta)
	if err != nil {
		h.logFailure(r, "give consent", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleWithdrawConsent(w http.ResponseWriter, r *http.Request) {
	h.revokeConsent(w, r, h.consents.Withdraw, "withdraw consent")
}

func (h *Handler) handleExpireConsent(w http.ResponseWriter, r *http.Request) {
	h.revokeConsent(w, r, h.consents.Expire, "expire consent")
}

func (h *Handler) revokeConsent(w http.ResponseWriter, r *http.Request, revoke revokeFunc, op string) {
	ctx := r.Context()
	encounterID := chi.URLParam(r, "encounterID")

	actor, err := h.requestActor(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req revokeConsentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	record, summary, err := revoke(ctx, encounterID, actor, req.Reason)
	if err != nil {
		h.logFailure(r, op, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, revokeConsentResponse{Record: record, Cascade: summary})
}

func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	record, err := h.consents.Get(r.Context(), chi.URLParam(r, "encounterID"))
	if err != nil {
		h.logFailure(r, "get consent", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleListConsent(w http.ResponseWriter, r *http.Request) {
	records, err := h.consents.List(r.Context())
	if err != nil {
		h.logFailure(r, "list consent", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, records)
}

// logFailure logs a handler failure at the severity its code deserves.
// Caller mistakes are warnings; everything else is an error.
func (h *Handler) logFailure(r *http.Request, op string, err error) {
	ctx := r.Context()
	code := dErrors.CodeOf(err)
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	}
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest, dErrors.CodeNotFound, dErrors.CodeConflict:
		h.logger.WarnContext(ctx, op+" rejected", attrs...)
	default:
		h.logger.ErrorContext(ctx, op+" failed", attrs...)
	}
}
