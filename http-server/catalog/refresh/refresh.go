package refresh

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"filter-selector/http-server/catalog/get"
	"filter-selector/http-server/response"
	"filter-selector/internal/storage"
)

type CatalogLoader interface {
	Load(ctx context.Context) (*storage.Snapshot, error)
}

// RefreshCatalog reloads the catalog on demand. A failed refresh keeps
// serving the previous snapshot.
func RefreshCatalog(log *slog.Logger, loader CatalogLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.catalog.RefreshCatalog"

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		snap, err := loader.Load(ctx)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		log.Info("catalog refreshed",
			slog.String("op", op),
			slog.Uint64("version", snap.Version),
			slog.Int("records", len(snap.Records)),
		)

		render.JSON(w, r, get.NewResp(snap, false))
	}
}
