package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"clavis/internal/audit"
	"clavis/internal/auth/lockout"
	"clavis/internal/auth/session"
	"clavis/internal/auth/token"
	"clavis/internal/platform/config"
	"clavis/internal/platform/httpserver"
	"clavis/internal/platform/logger"
	"clavis/internal/platform/metrics"
	platformredis "clavis/internal/platform/redis"
	httptransport "clavis/internal/transport/http"
	"clavis/internal/user"
	"clavis/internal/user/store"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "clavis: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.IsProduction())
	m := metrics.New()

	var (
		userStore store.UserStore
		db        *sql.DB
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		userStore = store.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory user store")
		userStore = store.NewInMemory()
	}

	var lockStore lockout.Store
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		lockStore = lockout.NewRedisStore(redisClient.Client)
	} else {
		lockStore = lockout.NewInMemoryStore()
	}

	sinks := []audit.Sink{audit.NewLogSink(log)}
	if len(cfg.Audit.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Audit)
		if err != nil {
			return fmt.Errorf("connect kafka audit sink: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafkaSink.Close(closeCtx)
		}()
		sinks = append(sinks, kafkaSink)
	}
	auditor := audit.NewPublisher(log, m.AuditDropped, sinks...)

	tokens := token.NewService(cfg.JWT)
	sessions := session.New(userStore, tokens, lockout.New(lockStore, log), auditor, log, m)
	users := user.NewService(userStore, auditor, log, m)

	var db4health httptransport.Pinger
	if db != nil {
		db4health = db
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Users:    users,
		Sessions: sessions,
		Verifier: tokens,
		Resolver: userStore,
		DB:       db4health,
		Cookies: httptransport.CookieConfig{
			Path:   cfg.CookiePath,
			Secure: cfg.IsProduction(),
		},
		Logger:  log,
		Metrics: m,
	})
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditor.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting clavis", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
