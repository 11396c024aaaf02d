package selection

import (
	"fmt"

	"filter-selector/internal/storage"
)

type Selection struct {
	Category             storage.FilterType     `json:"category"`
	Matched              bool                   `json:"matched"`
	DisplayName          string                 `json:"display_name,omitempty"`
	Record               *storage.CatalogRecord `json:"record,omitempty"`
	OperatingCost        float64                `json:"operating_cost"`
	OperatingCostDisplay string                 `json:"operating_cost_display,omitempty"`
	Documents            []storage.DocRef       `json:"documents,omitempty"`
}

type Result struct {
	SnapshotID      string      `json:"snapshot_id,omitempty"`
	SnapshotVersion uint64      `json:"snapshot_version,omitempty"`
	SystemType      SystemType  `json:"system_type"`
	Basis           Basis       `json:"basis"`
	Input           float64     `json:"input"`
	UnitCost        float64     `json:"electrical_cost"`
	Selections      []Selection `json:"selections"`
	AnyMatch        bool        `json:"any_match"`
}

// For returns the slot of one category; unknown categories come back unmatched.
func (r Result) For(category storage.FilterType) Selection {
	for _, s := range r.Selections {
		if s.Category == category {
			return s
		}
	}
	return Selection{Category: category}
}

// Select picks the first matching record per category in catalog order.
// Catalog order is the tie-break: when ranges of two rows of one category
// overlap, the earlier row wins.
func Select(catalog []storage.CatalogRecord, q Query) (Result, error) {
	crit, err := q.Validate()
	if err != nil {
		return Result{}, err
	}

	slots := make(map[storage.FilterType]*storage.CatalogRecord, len(storage.Categories))
	for i := range catalog {
		rec := &catalog[i]
		if !rec.FilterType.Recognized() {
			continue
		}
		if _, filled := slots[rec.FilterType]; filled {
			continue
		}
		if applicableRange(*rec, crit.Basis).Contains(crit.Value) {
			slots[rec.FilterType] = rec
		}
	}

	res := Result{
		SystemType: crit.SystemType,
		Basis:      crit.Basis,
		Input:      crit.Value,
		UnitCost:   crit.UnitCost,
		Selections: make([]Selection, 0, len(storage.Categories)),
	}

	for _, category := range storage.Categories {
		sel := Selection{Category: category}

		if rec, ok := slots[category]; ok {
			chosen := rec.Clone()
			d := Derive(chosen, crit.UnitCost)

			sel.Matched = true
			sel.Record = &chosen
			sel.DisplayName = fmt.Sprintf("%s - %s", chosen.FilterType, chosen.Model)
			sel.OperatingCost = d.OperatingCost
			sel.OperatingCostDisplay = FormatCost(d.OperatingCost)
			sel.Documents = d.Documents
			res.AnyMatch = true
		}

		res.Selections = append(res.Selections, sel)
	}

	return res, nil
}

func applicableRange(rec storage.CatalogRecord, basis Basis) storage.Range {
	switch basis {
	case BasisRecircRate:
		return rec.RecircRate
	case BasisTonnage:
		return rec.Tonnage
	case BasisSystemVolume:
		return rec.LoopVolume
	}
	return storage.Range{}
}
