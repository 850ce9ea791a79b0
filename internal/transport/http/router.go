// Package httptransport is the thin HTTP layer over the domain
// services. Handlers delegate to services and translate errors; no
// business logic lives here.
package httptransport

import (
	"context"
	"crypto/x509"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"charak/internal/audit"
	"charak/internal/consent"
	"charak/internal/consent/cascade"
	"charak/internal/custody"
	"charak/internal/keys"
	"charak/internal/pinning"
	"charak/internal/platform/metrics"
	"charak/internal/platform/middleware"
	"charak/internal/purge"
)

//go:generate mockgen -source=router.go -destination=mocks/mocks.go -package=mocks

// ConsentService is the consent surface the transport needs.
type ConsentService interface {
	Give(ctx context.Context, encounterID string, actor audit.Actor, meta map[string]string) (consent.Record, error)
	Withdraw(ctx context.Context, encounterID string, actor audit.Actor, reason string) (consent.Record, cascade.Summary, error)
	Expire(ctx context.Context, encounterID string, actor audit.Actor, reason string) (consent.Record, cascade.Summary, error)
	Get(ctx context.Context, encounterID string) (consent.Record, error)
	List(ctx context.Context) ([]consent.Record, error)
}

// AuditService exposes chain verification and forensic analyses.
type AuditService interface {
	VerifyChain(ctx context.Context) (audit.VerificationResult, error)
	VerifyEncounter(ctx context.Context, encounterID string) (audit.VerificationResult, error)
	AnalyzeDuplicates(ctx context.Context) (audit.DuplicateAnalysis, error)
	AnalyzeOrder(ctx context.Context) (audit.OrderAnalysis, error)
}

// GapAnalyzer flags genesis gaps from the marker history.
type GapAnalyzer interface {
	AnalyzeGaps(ctx context.Context) (audit.GapAnalysis, error)
}

// EventLister reads persisted audit events.
type EventLister interface {
	ListByEncounter(ctx context.Context, encounterID string) ([]audit.Event, error)
}

// KeyService is the device key lifecycle surface.
type KeyService interface {
	List(ctx context.Context, purpose keys.Purpose) ([]keys.Metadata, error)
	Rotate(ctx context.Context, purpose keys.Purpose, reason keys.RotationReason) (keys.RotationResult, error)
	SweepExpired(ctx context.Context) (int, error)
}

// CustodyService is the clinic key custody surface.
type CustodyService interface {
	GenerateAndStoreClinicKey(ctx context.Context, clinicID string, keyType custody.KeyType, keySize int) (custody.KeyMetadata, error)
	RotateClinicKey(ctx context.Context, clinicID, currentKeyID, reason string) (custody.RotationResult, error)
	PerformRecoveryProcedure(ctx context.Context, clinicID, reason string) (custody.RecoveryResult, error)
	GetKeyMetadata(ctx context.Context, keyID string) (custody.KeyMetadata, error)
	ListClinicKeys(ctx context.Context, clinicID string) ([]custody.KeyMetadata, error)
	AccessHistory(ctx context.Context, keyID string) ([]custody.AccessEntry, error)
}

// PinService is the certificate pin rotation surface.
type PinService interface {
	AddPin(ctx context.Context, hostname string, cert *x509.Certificate) (pinning.PinMetadata, error)
	RotatePin(ctx context.Context, hostname string, newCert *x509.Certificate, reason string) (pinning.RotationResult, error)
	PinSet(ctx context.Context, hostname string) ([]string, error)
	ListPins(ctx context.Context, hostname string) ([]pinning.PinMetadata, error)
	BreakTest(ctx context.Context, hostname string) (pinning.TestResult, error)
	RotationPlaybook(hostname, oldPin, newPin string) []pinning.PlaybookStep
}

// PurgeService is the ephemeral session surface.
type PurgeService interface {
	StartSession(ctx context.Context, encounterID string) (string, error)
	EndSession(ctx context.Context) error
	ForcePurge(ctx context.Context, reason string) error
	State() purge.State
	BufferLen() int
}

// Handler aggregates the domain services behind the HTTP API.
type Handler struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	jwt     middleware.JWTValidator

	consents ConsentService
	verify   AuditService
	gaps     GapAnalyzer
	events   EventLister
	keys     KeyService
	custody  CustodyService
	pins     PinService
	purge    PurgeService
}

// NewHandler wires the services into a Handler.
func NewHandler(
	logger *slog.Logger,
	m *metrics.Metrics,
	jwt middleware.JWTValidator,
	consents ConsentService,
	verify AuditService,
	gaps GapAnalyzer,
	events EventLister,
	keySvc KeyService,
	custodySvc CustodyService,
	pins PinService,
	purgeSvc PurgeService,
) *Handler {
	return &Handler{
		logger:   logger,
		metrics:  m,
		jwt:      jwt,
		consents: consents,
		verify:   verify,
		gaps:     gaps,
		events:   events,
		keys:     keySvc,
		custody:  custodySvc,
		pins:     pins,
		purge:    purgeSvc,
	}
}

const (
	roleApp    = string(audit.ActorApp)
	roleDoctor = string(audit.ActorDoctor)
	roleAdmin  = string(audit.ActorAdmin)
)

// NewRouter builds the full route tree with the middleware chain.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.DeviceMetadata)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.LatencyMiddleware(h.metrics))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	auth := middleware.RequireAuth(h.jwt, h.logger)
	adminOnly := middleware.RequireRole(h.logger, roleAdmin)
	clinical := middleware.RequireRole(h.logger, roleApp, roleDoctor, roleAdmin)

	r.Group(func(r chi.Router) {
		r.Use(auth, clinical)

		r.Post("/consent/{encounterID}", h.handleGiveConsent)
		r.Post("/consent/{encounterID}/withdraw", h.handleWithdrawConsent)
		r.Get("/consent/{encounterID}", h.handleGetConsent)

		r.Post("/purge/sessions", h.handleStartSession)
		r.Post("/purge/sessions/end", h.handleEndSession)
		r.Get("/purge/state", h.handlePurgeState)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth, adminOnly)

		r.Get("/consent", h.handleListConsent)
		r.Post("/consent/{encounterID}/expire", h.handleExpireConsent)

		r.Get("/audit/verify", h.handleVerifyChain)
		r.Get("/audit/verify/{encounterID}", h.handleVerifyEncounter)
		r.Get("/audit/analysis/gaps", h.handleAnalyzeGaps)
		r.Get("/audit/analysis/duplicates", h.handleAnalyzeDuplicates)
		r.Get("/audit/analysis/order", h.handleAnalyzeOrder)
		r.Get("/audit/events/{encounterID}", h.handleListEvents)

		r.Get("/keys", h.handleListKeys)
		r.Post("/keys/rotate", h.handleRotateKeys)
		r.Post("/keys/sweep", h.handleSweepKeys)

		r.Post("/custody/clinics/{clinicID}/keys", h.handleGenerateClinicKey)
		r.Get("/custody/clinics/{clinicID}/keys", h.handleListClinicKeys)
		r.Post("/custody/clinics/{clinicID}/rotate", h.handleRotateClinicKey)
		r.Post("/custody/clinics/{clinicID}/recovery", h.handleRecovery)
		r.Get("/custody/keys/{keyID}", h.handleGetClinicKey)
		r.Get("/custody/keys/{keyID}/history", h.handleAccessHistory)

		r.Post("/pins/{hostname}", h.handleAddPin)
		r.Post("/pins/{hostname}/rotate", h.handleRotatePin)
		r.Get("/pins/{hostname}", h.handleGetPins)
		r.Post("/pins/{hostname}/break-test", h.handleBreakTest)
		r.Get("/pins/{hostname}/playbook", h.handlePlaybook)

		r.Post("/purge/force", h.handleForcePurge)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
