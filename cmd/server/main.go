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

	"github.com/dinepos/api/internal/config"
	"github.com/dinepos/api/internal/database"
	"github.com/dinepos/api/internal/docstore"
	"github.com/dinepos/api/internal/events"
	"github.com/dinepos/api/internal/logging"
	"github.com/dinepos/api/internal/router"
	"github.com/dinepos/api/internal/sequence"
	"github.com/dinepos/api/internal/service"
	"github.com/dinepos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		fatal("invalid TIMEZONE", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docs, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fatal("open document store", err)
	}
	defer closeStore()

	var seq sequence.Sequencer = sequence.NewStore(docs)
	if cfg.RedisURL != "" {
		client, err := sequence.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			fatal("connect to redis", err)
		}
		defer client.Close()
		seq = sequence.NewRedis(client)
		slog.Info("order numbers served by redis")
	}

	hub := ws.NewHub(nil)
	var pub events.Publisher = hub
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kafka.Close(); err != nil {
				slog.Error("kafka close", "error", err)
			}
		}()
		pub = events.Multi{hub, kafka}
		slog.Info("publishing order events to kafka", "topic", cfg.KafkaTopic)
	}

	catalog := service.NewCatalogService(docs)
	orders := service.NewOrderService(docs, seq, pub)
	hub.SetFeed(ws.SnapshotFeed(orders, catalog))
	go hub.Run(ctx)

	r := router.New(cfg, router.Deps{
		Accounts:    service.NewAccountService(docs),
		Restaurants: service.NewRestaurantService(docs),
		Catalog:     catalog,
		Orders:      orders,
		QR:          service.MenuQR{BaseURL: cfg.PublicBaseURL},
		Hub:         hub,
		Logger:      logger,
		Location:    loc,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		slog.Info("starting server", "port", cfg.Port, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("http server", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
}

// openStore builds the document store named by STORE_BACKEND. The postgres
// backend is migrated on start and listens for changes made by other
// processes sharing the database.
func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, func(), error) {
	if cfg.StoreBackend == "memory" {
		slog.Warn("using in-memory document store; data is lost on restart")
		return docstore.NewMemory(), func() {}, nil
	}

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("connected to database")

	docs := docstore.NewPostgres(pool)
	go func() {
		if err := docs.Listen(ctx, pool); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("docstore listen stopped", "error", err)
		}
	}()
	return docs, pool.Close, nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
