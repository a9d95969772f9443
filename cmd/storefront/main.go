package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/dkoun25/SportStoreProject/internal/cart"
	"github.com/dkoun25/SportStoreProject/internal/catalog"
	"github.com/dkoun25/SportStoreProject/internal/config"
	"github.com/dkoun25/SportStoreProject/internal/db"
	"github.com/dkoun25/SportStoreProject/internal/events"
	httpapi "github.com/dkoun25/SportStoreProject/internal/http"
	"github.com/dkoun25/SportStoreProject/internal/order"
	"github.com/dkoun25/SportStoreProject/internal/pricing"
	"github.com/dkoun25/SportStoreProject/internal/promo"
)

func main() {
	logger := log.New(os.Stdout, "[storefront] ", log.LstdFlags|log.Lmicroseconds)

	if err := config.LoadDotEnv(); err != nil {
		logger.Printf("WARNING: could not load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	// money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Catalog ---
	products, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatalf("catalog: %v", err)
	}
	logger.Printf("catalog: %d products from %s", products.Len(), cfg.CatalogPath)

	// --- Promo codes ---
	codes := promo.Seed()
	extra, err := promo.ParseCodes(cfg.PromoCodes)
	if err != nil {
		logger.Fatalf("PROMO_CODES: %v", err)
	}
	codes = append(codes, extra...)

	carts := cart.NewStore(pricing.Default())
	promos := promo.NewRegistry(carts, codes...)

	// --- Ledger ---
	store, closeStore, err := openLedger(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("ledger: %v", err)
	}
	defer closeStore()

	// --- AMQP ---
	var publisher order.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		conn, pub, err := openPublisher(cfg.RabbitMQURL)
		if err != nil {
			// checkout never depends on the broker
			logger.Printf("WARNING: events disabled: %v", err)
		} else {
			defer conn.Close()
			defer pub.Close()
			publisher = pub
			logger.Printf("events: publishing to exchange %s", events.EventsExchange)
		}
	}

	orders, err := order.NewService(ctx, carts, promos, store, publisher, logger)
	if err != nil {
		logger.Fatalf("order service: %v", err)
	}

	// --- HTTP ---
	router := httpapi.NewRouter(
		httpapi.NewCartHandler(carts, products, logger),
		httpapi.NewOrderHandler(orders, promos, cfg.RequestTimeout, logger),
		httpapi.RouterOptions{SessionCookie: cfg.SessionCookie},
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("http listening on %s", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errCh:
		logger.Printf("fatal error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	logger.Printf("shutdown complete")
}

func openLedger(ctx context.Context, cfg config.Config, logger *log.Logger) (order.Store, func(), error) {
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
				return nil, nil, err
			}
		}
		conn, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Printf("ledger: postgres")
		return order.NewPostgresStore(conn), func() { closeDB(conn, logger) }, nil

	default:
		fs := order.NewFileStore(cfg.LedgerPath, cfg.LedgerLegacyPath, logger)
		if err := fs.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		logger.Printf("ledger: file %s", fs.Path())
		return fs, func() {}, nil
	}
}

func closeDB(conn *sql.DB, logger *log.Logger) {
	if err := conn.Close(); err != nil {
		logger.Printf("close db: %v", err)
	}
}

func openPublisher(url string) (*amqp.Connection, *events.RabbitPublisher, error) {
	conn, err := events.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	pub, err := events.NewRabbitPublisher(conn, events.PublisherOptions{})
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, pub, nil
}
