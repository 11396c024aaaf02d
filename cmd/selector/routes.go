package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"filter-selector/http-server/calculate"
	getcatalog "filter-selector/http-server/catalog/get"
	"filter-selector/http-server/catalog/refresh"
	generate_excel "filter-selector/http-server/generate-report/generate-excel"
	"filter-selector/http-server/health"
	"filter-selector/internal/config"
	generate_excel2 "filter-selector/internal/service/generate-excel"
	"filter-selector/internal/service/loader"
	"filter-selector/internal/service/selection"
	"filter-selector/internal/storage"
)

func routes(cfg config.Config, log *slog.Logger, store *storage.SnapshotStore, catalogLoader *loader.Loader, service *selection.Service, genService *generate_excel2.GenerateExcelService) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", health.Health(store))

	router.Post("/api/calculate", calculate.CalculateSelection(log, service))

	router.Get("/api/catalog", getcatalog.GetCatalog(log, store))
	router.Post("/api/catalog/refresh", refresh.RefreshCatalog(log, catalogLoader))

	router.Post("/api/report/excel", generate_excel.GenerateReportExcel(log, genService))

	mountFrontend(router, cfg.FrontendDir, log)

	return router
}

// mountFrontend serves the built calculator UI with an index.html fallback.
func mountFrontend(router *chi.Mux, frontendDir string, log *slog.Logger) {
	if frontendDir == "" {
		return
	}
	if _, err := os.Stat(frontendDir); err != nil {
		log.Warn("frontend dir not found, serving API only", slog.String("path", frontendDir))
		return
	}

	fileServer := http.FileServer(http.Dir(frontendDir))

	router.Handle("/assets/*", fileServer)
	router.Handle("/js/*", fileServer)
	router.Handle("/css/*", fileServer)
	router.Handle("/img/*", fileServer)

	router.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(frontendDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
		http.ServeFile(w, r, filepath.Join(frontendDir, "index.html"))
	})
}
