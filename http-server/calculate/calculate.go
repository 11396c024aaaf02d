package calculate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"filter-selector/http-server/response"
	"filter-selector/internal/service/selection"
)

type Calculator interface {
	Calculate(ctx context.Context, q selection.Query) (selection.Result, error)
}

// Request mirrors the calculator form. Empty inputs are omitted or null.
type Request struct {
	SystemType     string   `json:"system_type"`
	RecircRate     *float64 `json:"recirc_rate"`
	Tonnage        *float64 `json:"tonnage"`
	SystemVolume   *float64 `json:"system_volume"`
	ElectricalCost *float64 `json:"electrical_cost"`
}

// Query converts the form into a selection query. A missing electrical cost is
// rejected here because the zero value would be a valid price.
func (req Request) Query() (selection.Query, error) {
	if req.ElectricalCost == nil {
		return selection.Query{}, &selection.InvalidQueryError{Field: selection.FieldElectrical, Reason: "is required"}
	}

	return selection.Query{
		SystemType:         selection.ParseSystemType(req.SystemType),
		RecircRate:         req.RecircRate,
		Tonnage:            req.Tonnage,
		SystemVolume:       req.SystemVolume,
		ElectricalUnitCost: *req.ElectricalCost,
	}, nil
}

// Decode reads a Request body and converts it to a query. ok is false when a
// response has already been written.
func Decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string) (selection.Query, bool) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.With(slog.String("op", op)).Warn("invalid request body", slog.String("error", err.Error()))
		response.BadRequest(w, r, "Invalid JSON")
		return selection.Query{}, false
	}

	q, err := req.Query()
	if err != nil {
		response.Error(w, r, log, op, err)
		return selection.Query{}, false
	}

	return q, true
}

func CalculateSelection(log *slog.Logger, calc Calculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.calculate.CalculateSelection"

		q, ok := Decode(w, r, log, op)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		res, err := calc.Calculate(ctx, q)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		log.Debug("selection calculated",
			slog.String("op", op),
			slog.String("basis", string(res.Basis)),
			slog.Bool("any_match", res.AnyMatch),
		)

		render.JSON(w, r, res)
	}
}
