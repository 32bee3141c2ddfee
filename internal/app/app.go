package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"BarcodeScanner/internal/analyzer"
	"BarcodeScanner/internal/config"
	"BarcodeScanner/internal/logging"
	"BarcodeScanner/internal/media"
	"BarcodeScanner/internal/server"
	"BarcodeScanner/internal/source"
	"BarcodeScanner/internal/storage"
	"BarcodeScanner/internal/usecase"
)

// Application wires configs to the resolution pipeline and the HTTP
// surface. The store pool and the analyzer client are process-wide and
// shared across requests.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sql.DB
	repo   *storage.PostgresRepository
	server *http.Server
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := storage.NewPostgresRepository(db)

	sourceClient := &http.Client{Timeout: cfg.Sources.Timeout}
	certification := source.NewCertificationAPI(sourceClient, cfg.Sources.CertificationURL,
		baseLogger.With("component", "source.certification"))
	foodFacts := source.NewFoodFactsAPI(sourceClient, cfg.Sources.FoodFactsURL,
		baseLogger.With("component", "source.foodfacts"))
	scrapeRU := source.NewBarcodeListScraper(sourceClient, "barcode-list-ru",
		cfg.Sources.BarcodeListRU, false, baseLogger.With("component", "source.barcode-list-ru"))
	scrapeCom := source.NewBarcodeListScraper(sourceClient, "barcode-list-com",
		cfg.Sources.BarcodeListCom, true, baseLogger.With("component", "source.barcode-list-com"))

	gateway := analyzer.NewOpenAIGateway(cfg.Analyzer, baseLogger.With("component", "analyzer"))
	imageStore := media.NewFileStore(cfg.Media.Dir, cfg.Media.BaseURL,
		baseLogger.With("component", "media"))
	converter := media.NewJPEGConverter(cfg.Media.Quality)

	resolver := usecase.NewResolver(usecase.ResolverDeps{
		Store:        repo,
		Adapters:     []source.Adapter{certification, foodFacts, scrapeRU, scrapeCom},
		Analyzer:     gateway,
		Images:       imageStore,
		Converter:    converter,
		BatchAdapter: certification,
		BatchDelay:   cfg.Batch.Delay,
		Logger:       baseLogger.With("component", "resolver"),
	})

	handler := server.New(resolver, cfg, baseLogger.With("component", "server"))

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		db:     db,
		repo:   repo,
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run migrates the schema and serves HTTP until the context is canceled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.cfg.Server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return a.db.Close()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	}
}
