package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"HeliumRecovery.monitor/internal/agent"
	"HeliumRecovery.monitor/internal/anomaly"
	"HeliumRecovery.monitor/internal/config"
	"HeliumRecovery.monitor/internal/controller"
	"HeliumRecovery.monitor/internal/dispatch"
	"HeliumRecovery.monitor/internal/ingest"
	"HeliumRecovery.monitor/internal/middleware"
	"HeliumRecovery.monitor/internal/realtime"
	"HeliumRecovery.monitor/internal/repository"
	"HeliumRecovery.monitor/internal/routes"
	"HeliumRecovery.monitor/internal/session"
	"HeliumRecovery.monitor/internal/source"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	var cache source.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := source.NewRedisCache(ctx, source.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Printf("⚠️ %v; falling back to the in-process feed cache", err)
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}
	fetcher := source.NewSheetFetcher(source.FetcherConfig{
		URL:     cfg.SheetCSVURL,
		TTL:     cfg.FetchTTL,
		Timeout: cfg.FetchTimeout,
		Retries: 2,
	}, cache, ingest.NewParser(cfg.Columns, cfg.DayFirst))

	dispatchers := dispatch.Multi{dispatch.LogDispatcher{}}
	if cfg.NATSURL != "" {
		natsDispatcher, err := dispatch.NewNATSDispatcher(dispatch.NATSConfig{
			URL:            cfg.NATSURL,
			Name:           "helium-monitor",
			Subject:        cfg.NATSSubject,
			ReconnectWait:  2 * time.Second,
			MaxReconnects:  10,
			ConnectTimeout: 5 * time.Second,
		})
		if err != nil {
			log.Printf("⚠️ Alerts will not be published to NATS: %v", err)
		} else {
			defer natsDispatcher.Close()
			dispatchers = append(dispatchers, natsDispatcher)
		}
	}
	if cfg.AlertWebhookURL != "" {
		dispatchers = append(dispatchers, dispatch.NewWebhookDispatcher(cfg.AlertWebhookURL, 10*time.Second))
	}

	var (
		sink    session.Sink
		history controller.ConsumptionQuerier
	)
	if cfg.InfluxDBURL != "" {
		repo := repository.NewInfluxDBRepository(cfg.InfluxDBURL, cfg.InfluxDBToken, cfg.InfluxDBOrg, cfg.InfluxDBBucket, cfg.VesselName)
		defer repo.Close()
		if err := repo.Health(ctx); err != nil {
			log.Printf("⚠️ %v", err)
		} else if err := repo.EnsureBucket(ctx); err != nil {
			log.Printf("⚠️ Could not prepare bucket %s: %v", cfg.InfluxDBBucket, err)
		} else {
			log.Println("✅ Connected to InfluxDB")
		}
		sink, history = repo, repo
	}

	hub := realtime.NewHub(originChecker(cfg.AllowedOrigins))
	defer hub.Close()

	s := session.New(session.Options{
		Fetcher:     fetcher,
		Evaluator:   anomaly.NewEvaluator(cfg.AlertThreshold),
		Notifier:    dispatch.NewNotifier(dispatchers),
		Sink:        sink,
		Broadcaster: hub,
	})
	if _, err := s.Load(ctx); err != nil {
		log.Printf("⚠️ Initial load failed, will retry on the first request: %v", err)
	}

	var auth func(http.Handler) http.Handler
	if cfg.AuthEnabled() {
		mw, err := middleware.NewJWT(middleware.AuthConfig{
			Secret:   cfg.AuthJWTSecret,
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
		})
		if err != nil {
			return err
		}
		auth = mw
	}

	c := controller.NewMonitorController(s, agent.NewRegistry(s), history)
	router := routes.SetupRouter(c, auth, hub.ServeWS)
	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(middleware.Logging(router))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv)
}

func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}
