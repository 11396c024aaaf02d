package health

import (
	"net/http"

	"github.com/go-chi/render"
)

type ReadinessChecker interface {
	Ready() bool
}

type Resp struct {
	Status       string `json:"status"`
	CatalogReady bool   `json:"catalog_ready"`
}

// Health always answers 200 while the process serves; catalog_ready tells
// whether calculations can run yet.
func Health(store ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, Resp{Status: "ok", CatalogReady: store.Ready()})
	}
}
