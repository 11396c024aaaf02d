package storage

import (
	"encoding/json"
	"math"
)

type FilterType string

const (
	Separator FilterType = "Separator"
	VAF       FilterType = "VAF"
	Vortisand FilterType = "Vortisand"
)

// Categories is the fixed result order.
var Categories = []FilterType{Separator, VAF, Vortisand}

func (f FilterType) Recognized() bool {
	switch f {
	case Separator, VAF, Vortisand:
		return true
	}
	return false
}

// Number is an optional catalog value. A valid Number is always finite.
type Number struct {
	Value float64
	Valid bool
}

func NewNumber(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{Value: v, Valid: true}
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Number{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = NewNumber(v)
	return nil
}

// Range is an inclusive [Min, Max] applicability window.
type Range struct {
	Min Number `json:"min"`
	Max Number `json:"max"`
}

// Bounded reports whether both bounds are present.
func (r Range) Bounded() bool {
	return r.Min.Valid && r.Max.Valid
}

// Contains is false for an unbounded range, whatever v is.
func (r Range) Contains(v float64) bool {
	if !r.Bounded() {
		return false
	}
	return v >= r.Min.Value && v <= r.Max.Value
}

type DocRef struct {
	Link        string `json:"link"`
	Description string `json:"description"`
}

type CatalogRecord struct {
	FilterType      FilterType `json:"filter_type"`
	Model           string     `json:"model"`
	FlowRate        Number     `json:"flow_rate"`
	Filtration      string     `json:"filtration"`
	Description     string     `json:"description"`
	ElectricalUsage Number     `json:"electrical_usage_kwh_per_year"`
	RecircRate      Range      `json:"recirc_rate_range"`
	Tonnage         Range      `json:"tonnage_range"`
	LoopVolume      Range      `json:"loop_volume_range"`
	Documents       []DocRef   `json:"documents"`
}

// Clone returns a copy that shares no slices with r.
func (r CatalogRecord) Clone() CatalogRecord {
	out := r
	if r.Documents != nil {
		out.Documents = make([]DocRef, len(r.Documents))
		copy(out.Documents, r.Documents)
	}
	return out
}
