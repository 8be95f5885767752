package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	assethandler "legado/internal/asset/handler"
	assetservice "legado/internal/asset/service"
	assetmemory "legado/internal/asset/store/memory"
	assetpostgres "legado/internal/asset/store/postgres"
	audithandler "legado/internal/audit/handler"
	"legado/internal/escrow/attest"
	escrowhandler "legado/internal/escrow/handler"
	escrowservice "legado/internal/escrow/service"
	escrowmemory "legado/internal/escrow/store/memory"
	escrowpostgres "legado/internal/escrow/store/postgres"
	identitycache "legado/internal/identity/cache"
	identityhandler "legado/internal/identity/handler"
	identityservice "legado/internal/identity/service"
	identitymemory "legado/internal/identity/store/memory"
	identitypostgres "legado/internal/identity/store/postgres"
	jwttoken "legado/internal/jwt_token"
	"legado/internal/platform/config"
	"legado/internal/platform/httpserver"
	kafkaproducer "legado/internal/platform/kafka/producer"
	"legado/internal/platform/logger"
	"legado/internal/platform/metrics"
	"legado/internal/platform/ratelimit"
	platformredis "legado/internal/platform/redis"
	successionhandler "legado/internal/succession/handler"
	successionservice "legado/internal/succession/service"
	successionmemory "legado/internal/succession/store/memory"
	successionpostgres "legado/internal/succession/store/postgres"
	httptransport "legado/internal/transport/http"
	"legado/pkg/domain"
	"legado/pkg/platform/audit"
	auditpublisher "legado/pkg/platform/audit/publisher"
	auditmemory "legado/pkg/platform/audit/store/memory"
	auditpostgres "legado/pkg/platform/audit/store/postgres"
	auditworker "legado/pkg/platform/audit/worker"
	"legado/pkg/platform/tx"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage backend. The memory runner serializes mutations globally, the
	// SQL runner relies on row locks inside real transactions.
	var (
		identityStore identityservice.Store
		assetStore    assetservice.Store
		planStore     successionservice.Store
		escrowStore   escrowservice.Store
		auditStore    audit.Store
		auditOutbox   auditworker.Outbox
		runner        tx.Runner
		health        []httptransport.HealthChecker
	)
	switch cfg.Storage.Mode {
	case config.StoragePostgres:
		db, err := sql.Open("pgx", cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		identityStore = identitypostgres.New(db)
		assetStore = assetpostgres.New(db)
		planStore = successionpostgres.New(db)
		escrowStore = escrowpostgres.New(db)
		pgAudit := auditpostgres.New(db)
		auditStore, auditOutbox = pgAudit, pgAudit
		runner = tx.NewSQL(db)
		health = append(health, httptransport.HealthChecker{
			Name:  "postgres",
			Check: db.PingContext,
		})
	default:
		identityStore = identitymemory.New()
		assetStore = assetmemory.New()
		planStore = successionmemory.New()
		escrowStore = escrowmemory.New()
		memAudit := auditmemory.NewInMemoryStore()
		auditStore, auditOutbox = memAudit, memAudit
		runner = tx.NewExclusive()
	}

	// Optional Redis read cache in front of the identity store.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		identityStore = identitycache.New(identityStore, redisClient.Client, log)
		health = append(health, httptransport.HealthChecker{
			Name:  "redis",
			Check: redisClient.Health,
		})
	}

	recorder := auditpublisher.New(auditStore, auditpublisher.WithLogger(log))

	identitySvc, err := identityservice.New(identityStore, runner, recorder,
		identityservice.WithLogger(log), identityservice.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("build identity service: %w", err)
	}
	assetSvc, err := assetservice.New(assetStore, identityStore, runner, recorder,
		assetservice.WithLogger(log), assetservice.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("build asset service: %w", err)
	}
	successionSvc, err := successionservice.New(planStore, assetStore, identityStore, runner, recorder,
		successionservice.WithLogger(log), successionservice.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("build succession service: %w", err)
	}

	attestorWallets := make([]domain.Wallet, 0, len(cfg.Escrow.AttestorWallets))
	for _, raw := range cfg.Escrow.AttestorWallets {
		wallet, err := domain.ParseWallet(raw)
		if err != nil {
			return fmt.Errorf("attestor wallet %q: %w", raw, err)
		}
		attestorWallets = append(attestorWallets, wallet)
	}
	escrowSvc, err := escrowservice.New(escrowStore, identityStore,
		attest.NewWalletAllowlist(attestorWallets), runner, recorder,
		escrowservice.WithLogger(log), escrowservice.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("build escrow service: %w", err)
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)

	// Request throttling. The redis window holds across replicas; the memory
	// window is per process.
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Limit > 0 {
		if redisClient != nil {
			limiter = ratelimit.NewRedisWindow(redisClient.Client, cfg.RateLimit.Limit, cfg.RateLimit.Window)
		} else {
			limiter = ratelimit.NewSlidingWindow(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   m,
		Validator: jwttoken.NewJWTServiceAdapter(jwtService),
		Sessions:  jwtService,
		Limiter:   limiter,
		Protected: []httptransport.RouteRegistrar{
			identityhandler.New(identitySvc, log),
			assethandler.New(assetSvc, log),
			successionhandler.New(successionSvc, log),
			escrowhandler.New(escrowSvc, log),
		},
		Public: []httptransport.RouteRegistrar{
			audithandler.New(auditStore, log),
		},
		Health: health,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting legado registry", "addr", cfg.Server.Addr, "storage", string(cfg.Storage.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Audit outbox worker; only when brokers are configured.
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkaproducer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer producer.Close()

		worker := auditworker.New(auditOutbox, producer, cfg.Kafka.AuditTopic, log,
			auditworker.WithPollInterval(cfg.Kafka.PollInterval))
		group.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit worker: %w", err)
			}
			// Final drain so committed entries are not stranded in the outbox.
			drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := worker.Drain(drainCtx); err != nil {
				log.Warn("final audit drain failed", "error", err.Error())
			}
			return nil
		})
	}

	return group.Wait()
}
