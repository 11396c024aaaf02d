package selection

import (
	"strconv"

	"filter-selector/internal/storage"
)

type Derivation struct {
	OperatingCost float64
	Documents     []storage.DocRef
}

// Derive computes the annual operating cost at full precision. A record with
// no published electrical usage costs 0.
func Derive(rec storage.CatalogRecord, unitCost float64) Derivation {
	var cost float64
	if rec.ElectricalUsage.Valid {
		cost = rec.ElectricalUsage.Value * unitCost
	}

	var docs []storage.DocRef
	if len(rec.Documents) > 0 {
		docs = make([]storage.DocRef, len(rec.Documents))
		copy(docs, rec.Documents)
	}

	return Derivation{OperatingCost: cost, Documents: docs}
}

// FormatCost renders a cost with two decimals for display.
func FormatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
