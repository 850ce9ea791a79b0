package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"charak/internal/transport/http/shared"
)

func (h *Handler) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	result, err := h.verify.VerifyChain(r.Context())
	if err != nil {
		h.logFailure(r, "verify chain", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleVerifyEncounter(w http.ResponseWriter, r *http.Request) {
	result, err := h.verify.VerifyEncounter(r.Context(), chi.URLParam(r, "encounterID"))
	if err != nil {
		h.logFailure(r, "verify encounter", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAnalyzeGaps(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.gaps.AnalyzeGaps(r.Context())
	if err != nil {
		h.logFailure(r, "analyze gaps", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, analysis)
}

func (h *Handler) handleAnalyzeDuplicates(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.verify.AnalyzeDuplicates(r.Context())
	if err != nil {
		h.logFailure(r, "analyze duplicates", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, analysis)
}

func (h *Handler) handleAnalyzeOrder(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.verify.AnalyzeOrder(r.Context())
	if err != nil {
		h.logFailure(r, "analyze order", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, analysis)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListByEncounter(r.Context(), chi.URLParam(r, "encounterID"))
	if err != nil {
		h.logFailure(r, "list audit events", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, events)
}
