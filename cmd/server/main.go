// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"velvet/internal/audit"
	"velvet/internal/catalog"
	claimhandler "velvet/internal/claims/handler"
	claimmetrics "velvet/internal/claims/metrics"
	"velvet/internal/claims/ports"
	claimservice "velvet/internal/claims/service"
	claimstore "velvet/internal/claims/store"
	"velvet/internal/evidence"
	evidencehandler "velvet/internal/evidence/handler"
	"velvet/internal/notify"
	notifykafka "velvet/internal/notify/kafka"
	paymenthandler "velvet/internal/payments/handler"
	paymentmetrics "velvet/internal/payments/metrics"
	paymentservice "velvet/internal/payments/service"
	paymentstore "velvet/internal/payments/store"
	"velvet/internal/platform/config"
	"velvet/internal/platform/httpserver"
	"velvet/internal/platform/logger"
	platformredis "velvet/internal/platform/redis"
	"velvet/internal/tokens"
	httptransport "velvet/internal/transport/http"
	"velvet/pkg/platform/middleware/auth"
)

const shutdownTimeout = 10 * time.Second

// evidenceRegistry joins the two evidence ports: the claim engine resolves
// references, the phone flow registers them. Both adapters satisfy it.
type evidenceRegistry interface {
	ports.EvidenceStore
	evidence.Registry
}

// tokenAdapter bridges the JWT service onto the auth middleware port.
type tokenAdapter struct {
	jwt *tokens.JWTService
}

func (a *tokenAdapter) ValidateToken(tokenString string) (*auth.TokenClaims, error) {
	claims, err := a.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.TokenClaims{ActorID: claims.ActorID, Role: claims.Role}, nil
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	health := map[string]func(context.Context) error{}

	// Stores: postgres when configured, in-memory otherwise.
	var (
		claimStore   claimservice.Store
		paymentStore paymentservice.Store
		auditStore   audit.Store
	)
	if cfg.Postgres.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		claimStore = claimstore.NewPostgres(pool)
		paymentStore = paymentstore.NewPostgres(pool)
		auditStore = audit.NewPostgresStore(pool)
		health["postgres"] = pool.Ping
		log.Info("using postgres stores")
	} else {
		claimStore = claimstore.NewInMemory()
		paymentStore = paymentstore.NewInMemory()
		auditStore = audit.NewMemoryStore()
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	// Evidence registry and phone code store: redis when configured.
	var (
		evidenceStore evidenceRegistry
		codeStore     evidence.CodeStore
	)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		redisStore := evidence.NewRedis(redisClient.Client)
		evidenceStore = redisStore
		codeStore = evidence.NewRedisCodeStore(redisClient.Client)
		health["redis"] = redisClient.Health
		log.Info("using redis evidence stores")
	} else {
		memStore := evidence.NewMemoryStore()
		evidenceStore = memStore
		codeStore = evidence.NewMemoryCodeStore()
		log.Warn("REDIS_URL not set, using in-memory evidence stores")
	}

	// Notification sink: kafka when brokers are configured.
	var sink notify.Emitter
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := notifykafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		sink = publisher
		log.Info("publishing notification events to kafka", "brokers", cfg.Kafka.Brokers)
	} else {
		sink = notify.NewMemorySink()
		log.Warn("KAFKA_BROKERS not set, notification events stay in-process")
	}
	worker := notify.NewWorker(sink, 256, log)

	// The in-memory catalog stands in for the platform's venue directory.
	// TODO: swap in the directory service client once its claim-sync API ships.
	cat := catalog.NewMemoryCatalog()

	auditor := audit.NewPublisher(auditStore)

	claims := claimservice.New(claimStore, cat, evidenceStore,
		claimservice.WithLogger(log),
		claimservice.WithNotifier(worker),
		claimservice.WithAuditor(auditor),
		claimservice.WithMetrics(claimmetrics.New()),
	)
	payments := paymentservice.New(paymentStore, cat,
		paymentservice.WithLogger(log),
		paymentservice.WithNotifier(worker),
		paymentservice.WithAuditor(auditor),
		paymentservice.WithMetrics(paymentmetrics.New()),
	)
	phone := evidence.NewPhoneService(codeStore, evidenceStore, evidence.NewLogSender(log),
		evidence.WithPhoneLogger(log),
	)

	jwtService := tokens.NewJWTService(cfg.JWTSigningKey, "velvet", "velvet-api")

	router := httptransport.NewRouter(httptransport.Deps{
		Claims:     claimhandler.New(claims, log),
		Payments:   paymenthandler.New(payments, log),
		Evidence:   evidencehandler.New(phone, log),
		Validator:  &tokenAdapter{jwt: jwtService},
		Logger:     log,
		AdminToken: cfg.AdminToken,
		Health:     health,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("claim engine listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
