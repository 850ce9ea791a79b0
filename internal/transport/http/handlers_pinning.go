package httptransport

import (
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"

	"github.com/go-chi/chi/v5"

	"charak/internal/transport/http/shared"
	dErrors "charak/pkg/domain-errors"
)

type addPinRequest struct {
	Certificate string `json:"certificate"`
}

type rotatePinRequest struct {
	Certificate string `json:"certificate"`
	Reason      string `json:"reason"`
}

type pinSetResponse struct {
	Hostname string   `json:"hostname"`
	Pins     []string `json:"pins"`
}

// parseCertificatePEM decodes a single PEM certificate block from a
// request payload.
func parseCertificatePEM(raw string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "certificate must be a PEM-encoded CERTIFICATE block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse certificate")
	}
	return cert, nil
}

func (h *Handler) handleAddPin(w http.ResponseWriter, r *http.Request) {
	hostname := chi.URLParam(r, "hostname")

	var req addPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cert, err := parseCertificatePEM(req.Certificate)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	meta, err := h.pins.AddPin(r.Context(), hostname, cert)
	if err != nil {
		h.logFailure(r, "add pin", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, meta)
}

func (h *Handler) handleRotatePin(w http.ResponseWriter, r *http.Request) {
	hostname := chi.URLParam(r, "hostname")

	var req rotatePinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cert, err := parseCertificatePEM(req.Certificate)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.pins.RotatePin(r.Context(), hostname, cert, req.Reason)
	if err != nil {
		h.logFailure(r, "rotate pin", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

// handleGetPins returns full metadata by default and the bare pin set
// when ?format=pinset is requested, which is what device provisioning
// consumes.
func (h *Handler) handleGetPins(w http.ResponseWriter, r *http.Request) {
	hostname := chi.URLParam(r, "hostname")

	if r.URL.Query().Get("format") == "pinset" {
		pins, err := h.pins.PinSet(r.Context(), hostname)
		if err != nil {
			h.logFailure(r, "get pin set", err)
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, pinSetResponse{Hostname: hostname, Pins: pins})
		return
	}

	list, err := h.pins.ListPins(r.Context(), hostname)
	if err != nil {
		h.logFailure(r, "list pins", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleBreakTest(w http.ResponseWriter, r *http.Request) {
	result, err := h.pins.BreakTest(r.Context(), chi.URLParam(r, "hostname"))
	if err != nil {
		h.logFailure(r, "pin break test", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePlaybook(w http.ResponseWriter, r *http.Request) {
	hostname := chi.URLParam(r, "hostname")
	q := r.URL.Query()
	steps := h.pins.RotationPlaybook(hostname, q.Get("old"), q.Get("new"))
	shared.WriteJSON(w, http.StatusOK, steps)
}
