// Command charakd is the on-device security daemon: it owns the
// hash-chained audit log, the key lifecycle, consent state, clinic key
// custody, certificate pins and the ephemeral purge coordinator, and
// serves the clinic HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"charak/internal/audit"
	"charak/internal/audit/archive"
	"charak/internal/audit/export"
	exportMetrics "charak/internal/audit/export/metrics"
	auditMetrics "charak/internal/audit/metrics"
	"charak/internal/consent"
	"charak/internal/consent/cascade"
	consentMetrics "charak/internal/consent/metrics"
	"charak/internal/custody"
	custodyMetrics "charak/internal/custody/metrics"
	jwttoken "charak/internal/jwt_token"
	"charak/internal/keys"
	"charak/internal/keys/hazard"
	keysMetrics "charak/internal/keys/metrics"
	"charak/internal/pinning"
	"charak/internal/platform/config"
	"charak/internal/platform/httpserver"
	"charak/internal/platform/logger"
	platformMetrics "charak/internal/platform/metrics"
	platformRedis "charak/internal/platform/redis"
	"charak/internal/privacy"
	privacyMetrics "charak/internal/privacy/metrics"
	"charak/internal/purge"
	purgeMetrics "charak/internal/purge/metrics"
	httptransport "charak/internal/transport/http"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("charakd: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	master := []byte(cfg.SealSecret)

	for _, sub := range []string{"keys", "keys-meta", "audit", "markers", "consent", "spool", "custody", "custody-vault", "custody-trail", "pins", "purge", "hazard"} {
		if err := os.MkdirAll(filepath.Join(cfg.DataDir, sub), 0o700); err != nil {
			return err
		}
	}

	// Key lifecycle.
	keystore, err := keys.NewFileKeystore(filepath.Join(cfg.DataDir, "keys"), master)
	if err != nil {
		return err
	}
	keyMeta := keys.NewFileMetadataStore(filepath.Join(cfg.DataDir, "keys-meta"))
	manager := keys.NewManager(keystore, keyMeta, log,
		keys.WithManagerMetrics(keysMetrics.New()))

	// Audit chain. The store may be mirrored into the export pipeline.
	var store audit.Store = audit.NewFileStore(filepath.Join(cfg.DataDir, "audit"))
	markers := audit.NewFileMarkerStore(filepath.Join(cfg.DataDir, "markers"))
	genesis := audit.NewGenesisManager(markers, log)

	group, ctx := errgroup.WithContext(ctx)

	var sinks []export.Publisher
	if cfg.ExportEnabled() {
		kafka, err := export.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.ClinicID)
		if err != nil {
			return err
		}
		sinks = append(sinks, kafka)
	}
	if cfg.ArchiveEnabled() {
		db, err := archive.Open(cfg.ArchiveDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		archiveStore := archive.New(db)
		if err := archiveStore.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, archive.NewPublisher(archiveStore))
	}
	if len(sinks) > 0 {
		publisher := export.NewScrubbingPublisher(
			export.NewFanoutPublisher(sinks...), privacy.NewScrubber())
		worker := export.NewWorker(export.NewRingBuffer(4096), publisher, log,
			export.WithWorkerMetrics(exportMetrics.New()))
		store = export.NewMirrorStore(store, worker)
		group.Go(func() error {
			defer publisher.Close()
			err := worker.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	auditLog := audit.NewLogger(store, manager, log,
		audit.WithLoggerMetrics(auditMetrics.New()))
	manager.AttachAudit(auditLog, genesis)
	verifier := audit.NewVerifier(store, manager, log,
		audit.WithVerifierMarkers(markers))

	chainKey, err := manager.EnsureActiveKey(ctx, keys.PurposeChain)
	if err != nil {
		return err
	}
	// A fresh install gets its genesis marker here; without one, chain
	// rollovers cannot be recorded and gap analysis has no anchor.
	if _, err := genesis.EnsureGenesis(ctx, chainKey.KeyID); err != nil {
		return err
	}
	if _, err := manager.EnsureActiveKey(ctx, keys.PurposeStorage); err != nil {
		return err
	}

	// Hazard checks run on every boot: a wiped keystore or OS change must
	// be caught before the first append.
	hazards := hazard.NewSuite(manager, keystore,
		hazard.NewFileBaselineStore(filepath.Join(cfg.DataDir, "hazard")),
		hazard.StaticProbe{}, log,
		hazard.WithSuiteRecorder(auditLog))
	report, err := hazards.RunChecks(ctx)
	if err != nil {
		return err
	}
	if !report.Healthy {
		if _, err := hazards.Recover(ctx, report); err != nil {
			return err
		}
	}

	// Consent and cascade.
	var queue cascade.Queue = cascade.NewMemoryQueue()
	if cfg.CascadeRedisEnabled() {
		redisClient, err := platformRedis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		queue = cascade.NewRedisQueue(redisClient.Client)
	}
	spoolDir := filepath.Join(cfg.DataDir, "spool")
	canceller := cascade.NewCanceller(queue, cascade.NewFileSpool(spoolDir),
		cascade.NewTaskRegistry(), auditLog, log)
	consents := consent.NewService(
		consent.NewFileStore(filepath.Join(cfg.DataDir, "consent")),
		auditLog, canceller, log,
		consent.WithServiceMetrics(consentMetrics.New()))

	// Clinic key custody.
	vault, err := custody.NewFileVault(filepath.Join(cfg.DataDir, "custody-vault"), master)
	if err != nil {
		return err
	}
	custodySvc := custody.NewService(
		custody.NewFileMetadataStore(filepath.Join(cfg.DataDir, "custody")),
		vault,
		custody.NewFileAccessTrail(filepath.Join(cfg.DataDir, "custody-trail")),
		auditLog, log,
		custody.WithServiceMetrics(custodyMetrics.New()))

	pins := pinning.NewService(pinning.NewFileStore(filepath.Join(cfg.DataDir, "pins")), log)

	// Purge coordinator; an abandoned session from a crash is purged and
	// audited before the API comes up.
	coordinator := purge.NewCoordinator(
		purge.NewFileFlagStore(filepath.Join(cfg.DataDir, "purge")),
		auditLog, log,
		purge.WithCoordinatorMetrics(purgeMetrics.New()))
	if _, recovered, err := coordinator.RecoverAbandoned(ctx); err != nil {
		return err
	} else if recovered {
		log.WarnContext(ctx, "abandoned purge session recovered at startup")
	}

	// Retention sweeps.
	sweeper := privacy.NewSweeper(filepath.Join(cfg.DataDir, "audit"), spoolDir,
		auditLog, log,
		privacy.WithSweeperRetention(cfg.Retention),
		privacy.WithSweeperMetrics(privacyMetrics.New()))
	group.Go(func() error {
		ticker := time.NewTicker(cfg.RetentionPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := sweeper.Sweep(ctx); err != nil {
					log.ErrorContext(ctx, "retention sweep failed", "error", err)
				}
			}
		}
	})

	// Scheduled key rotation: age and access-count thresholds only bite
	// if something checks them.
	group.Go(func() error {
		ticker := time.NewTicker(cfg.RotationPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if rotated, err := manager.RotateDue(ctx); err != nil {
					log.ErrorContext(ctx, "scheduled key rotation failed", "error", err)
				} else if rotated > 0 {
					log.InfoContext(ctx, "scheduled key rotation", "rotated", rotated)
				}
				if _, err := manager.SweepExpired(ctx); err != nil {
					log.ErrorContext(ctx, "retired key sweep failed", "error", err)
				}
			}
		}
	})

	// HTTP API.
	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "charakd", "charak-clinic")
	handler := httptransport.NewHandler(
		log, platformMetrics.New(),
		jwttoken.NewJWTServiceAdapter(jwtSvc),
		consents, verifier, genesis, store,
		manager, custodySvc, pins, coordinator,
	)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	group.Go(func() error {
		log.InfoContext(ctx, "charakd listening", "addr", cfg.Addr, "clinic_id", cfg.ClinicID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		return httpserver.Shutdown(srv, shutdownGrace)
	})

	return group.Wait()
}
