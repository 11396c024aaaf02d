package selection

import (
	"fmt"
	"math"
	"strings"
)

type SystemType string

const (
	Open   SystemType = "open"
	Closed SystemType = "closed"
)

// ParseSystemType accepts the radio values of the front end, case-insensitively.
func ParseSystemType(s string) SystemType {
	return SystemType(strings.ToLower(strings.TrimSpace(s)))
}

// Basis names the catalog range a query is matched against.
type Basis string

const (
	BasisRecircRate   Basis = "recirc_rate"
	BasisTonnage      Basis = "tonnage"
	BasisSystemVolume Basis = "system_volume"
)

const (
	FieldSystemType   = "system type"
	FieldElectrical   = "electrical cost"
	FieldRecircRate   = "recirc rate"
	FieldTonnage      = "tonnage"
	FieldOpenSizing   = "recirc rate or tonnage"
	FieldSystemVolume = "system volume"
)

// Query is one calculation request. Optional sizing inputs are nil when the
// user left the field empty.
type Query struct {
	SystemType         SystemType `json:"system_type"`
	RecircRate         *float64   `json:"recirc_rate,omitempty"`
	Tonnage            *float64   `json:"tonnage,omitempty"`
	SystemVolume       *float64   `json:"system_volume,omitempty"`
	ElectricalUnitCost float64    `json:"electrical_cost"`
}

func OpenByRecircRate(rate, unitCost float64) Query {
	return Query{SystemType: Open, RecircRate: &rate, ElectricalUnitCost: unitCost}
}

func OpenByTonnage(tons, unitCost float64) Query {
	return Query{SystemType: Open, Tonnage: &tons, ElectricalUnitCost: unitCost}
}

func ClosedByVolume(volume, unitCost float64) Query {
	return Query{SystemType: Closed, SystemVolume: &volume, ElectricalUnitCost: unitCost}
}

// Criteria is a validated query reduced to the single value it matches on.
type Criteria struct {
	SystemType SystemType
	Basis      Basis
	Value      float64
	UnitCost   float64
}

type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

// Validate resolves the query to one matching basis. For an open system with
// both inputs supplied the recirculation rate wins; the two ranges are never
// combined.
func (q Query) Validate() (Criteria, error) {
	if !finite(q.ElectricalUnitCost) || q.ElectricalUnitCost < 0 {
		return Criteria{}, &InvalidQueryError{Field: FieldElectrical, Reason: "must be a number greater than or equal to 0"}
	}

	switch q.SystemType {
	case Open:
		if q.RecircRate == nil && q.Tonnage == nil {
			return Criteria{}, &InvalidQueryError{Field: FieldOpenSizing, Reason: "one of them is required for an open system"}
		}
		if q.RecircRate != nil && !positive(*q.RecircRate) {
			return Criteria{}, &InvalidQueryError{Field: FieldRecircRate, Reason: "must be a positive number"}
		}
		if q.Tonnage != nil && !positive(*q.Tonnage) {
			return Criteria{}, &InvalidQueryError{Field: FieldTonnage, Reason: "must be a positive number"}
		}

		if q.RecircRate != nil {
			return Criteria{SystemType: Open, Basis: BasisRecircRate, Value: *q.RecircRate, UnitCost: q.ElectricalUnitCost}, nil
		}
		return Criteria{SystemType: Open, Basis: BasisTonnage, Value: *q.Tonnage, UnitCost: q.ElectricalUnitCost}, nil

	case Closed:
		if q.SystemVolume == nil || !positive(*q.SystemVolume) {
			return Criteria{}, &InvalidQueryError{Field: FieldSystemVolume, Reason: "must be a positive number for a closed system"}
		}
		return Criteria{SystemType: Closed, Basis: BasisSystemVolume, Value: *q.SystemVolume, UnitCost: q.ElectricalUnitCost}, nil

	default:
		return Criteria{}, &InvalidQueryError{Field: FieldSystemType, Reason: fmt.Sprintf("must be %q or %q, got %q", Open, Closed, q.SystemType)}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return finite(v) && v > 0
}
