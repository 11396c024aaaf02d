package get

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"filter-selector/http-server/response"
	"filter-selector/internal/service/selection"
	"filter-selector/internal/storage"
)

type SnapshotReader interface {
	Current() *storage.Snapshot
}

type Resp struct {
	ID       string                  `json:"id"`
	Version  uint64                  `json:"version"`
	LoadedAt time.Time               `json:"loaded_at"`
	Source   string                  `json:"source"`
	Origin   string                  `json:"origin"`
	Count    int                     `json:"count"`
	Records  []storage.CatalogRecord `json:"records,omitempty"`
}

func NewResp(snap *storage.Snapshot, withRecords bool) Resp {
	resp := Resp{
		ID:       snap.ID.String(),
		Version:  snap.Version,
		LoadedAt: snap.LoadedAt,
		Source:   snap.Source,
		Origin:   snap.Origin,
		Count:    len(snap.Records),
	}
	if withRecords {
		resp.Records = snap.Records
	}
	return resp
}

// GetCatalog returns the current snapshot; ?summary=true omits the records.
func GetCatalog(log *slog.Logger, snapshots SnapshotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.catalog.GetCatalog"

		snap := snapshots.Current()
		if snap == nil {
			response.Error(w, r, log, op, selection.ErrCatalogNotReady)
			return
		}

		summary := r.URL.Query().Get("summary") == "true"
		render.JSON(w, r, NewResp(snap, !summary))
	}
}
