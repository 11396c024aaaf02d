package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"filter-selector/internal/config"
	generate_excel "filter-selector/internal/service/generate-excel"
	"filter-selector/internal/service/loader"
	"filter-selector/internal/service/selection"
	"filter-selector/internal/storage"
	"filter-selector/internal/storage/memory"
	"filter-selector/internal/storage/redis"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustConfig()

	log := setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, closeCache, err := setupCache(ctx, cfg.Cache, log)
	if err != nil {
		log.Error("failed to init cache", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeCache()

	store := storage.NewSnapshotStore()
	catalogLoader := loader.New(loader.Options{
		SourceURL:    cfg.Catalog.SourceURL,
		FetchTimeout: cfg.Catalog.FetchTimeout,
		MaxBodyBytes: cfg.Catalog.MaxBodyBytes,
		CacheTTL:     cfg.Catalog.CacheTTL,
	}, nil, store, cache, log)

	selectionService := selection.NewService(store)
	genService := generate_excel.NewGenerateService(selectionService)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      routes(*cfg, log, store, catalogLoader, selectionService, genService),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := catalogLoader.WarmStart(gctx); err != nil {
			log.Warn("catalog warm start skipped", slog.String("error", err.Error()))
		}
		// a failed initial load leaves the service not ready until a refresh succeeds
		if _, err := catalogLoader.Load(gctx); err != nil {
			log.Error("initial catalog load failed", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		log.Info("server started", slog.String("address", cfg.Address), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped")
}

// setupCache picks the body cache for warm starts. The returned cache is nil
// for the "none" driver.
func setupCache(ctx context.Context, cfg config.Cache, log *slog.Logger) (loader.Cache, func(), error) {
	switch cfg.Driver {
	case "redis":
		c := redis.New(cfg.RedisAddr, cfg.RedisDB)
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, func() {}, err
		}
		log.Info("using redis catalog cache", slog.String("addr", cfg.RedisAddr))
		return c, func() { _ = c.Close() }, nil
	case "memory":
		c := memory.New()
		return c, func() { _ = c.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

type dualHandler struct {
	coreHandler  slog.Handler
	errorHandler slog.Handler
}

func (h *dualHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.coreHandler.Enabled(ctx, lvl) || h.errorHandler.Enabled(ctx, lvl)
}

func (h *dualHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error

	if h.coreHandler.Enabled(ctx, r.Level) {
		err = h.coreHandler.Handle(ctx, r)
		if err != nil {
			return err
		}
	}

	// errors are also appended to the error file
	if r.Level >= slog.LevelError && h.errorHandler.Enabled(ctx, r.Level) {
		_ = h.errorHandler.Handle(ctx, r.Clone())
	}

	return err
}

func (h *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dualHandler{
		coreHandler:  h.coreHandler.WithAttrs(attrs),
		errorHandler: h.errorHandler.WithAttrs(attrs),
	}
}

func (h *dualHandler) WithGroup(name string) slog.Handler {
	return &dualHandler{
		coreHandler:  h.coreHandler.WithGroup(name),
		errorHandler: h.errorHandler.WithGroup(name),
	}
}

func setupLogger(env string) *slog.Logger {
	level := slog.LevelDebug
	if env == envProd {
		level = slog.LevelInfo
	}

	var coreHandler slog.Handler
	switch env {
	case envDev:
		coreHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	case envLocal, envProd:
		coreHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		coreHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	errorFile, err := os.OpenFile("errors.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		slog.Warn("cannot open error log file", "error", err)
		return slog.New(coreHandler)
	}

	errorHandler := slog.NewTextHandler(errorFile, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	return slog.New(&dualHandler{
		coreHandler:  coreHandler,
		errorHandler: errorHandler,
	})
}
