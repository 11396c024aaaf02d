// Package normalize turns the published catalog sheet into typed records.
//
// Individual cells never fail a load: unparseable numbers become absent values
// and documents without a link are dropped. Only input that has no usable
// header row is rejected with a MalformedCatalogError.
package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"filter-selector/internal/storage"
)

// MaxDocuments is the number of Document N column pairs read per row.
const MaxDocuments = 5

const (
	ColFilterType      = "Filter Type"
	ColModel           = "Model"
	ColFlowRate        = "Flow Rate"
	ColFiltration      = "Filtration"
	ColDescription     = "Description"
	ColElectricalUsage = "Electrical Usage (kWh/yr)"
	ColMinRecircRate   = "Min Recirc Rate"
	ColMaxRecircRate   = "Max Recirc Rate"
	ColTonnageMin      = "Tonnage Min"
	ColTonnageMax      = "Tonnage Max"
	ColLoopMin         = "Loop Min"
	ColLoopMax         = "Loop Max"
)

func DocumentColumn(n int) string { return fmt.Sprintf("Document %d", n) }

func DocumentDescriptionColumn(n int) string { return fmt.Sprintf("Document %d Description", n) }

// KnownColumns lists every column the normalizer reads.
func KnownColumns() []string {
	cols := []string{
		ColFilterType, ColModel, ColFlowRate, ColFiltration, ColDescription,
		ColElectricalUsage, ColMinRecircRate, ColMaxRecircRate,
		ColTonnageMin, ColTonnageMax, ColLoopMin, ColLoopMax,
	}
	for i := 1; i <= MaxDocuments; i++ {
		cols = append(cols, DocumentColumn(i), DocumentDescriptionColumn(i))
	}
	return cols
}

type MalformedCatalogError struct {
	Reason string
	Err    error
}

func (e *MalformedCatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed catalog: %s: %v", e.Reason, e.Err)
	}
	return "malformed catalog: " + e.Reason
}

func (e *MalformedCatalogError) Unwrap() error { return e.Err }

// Row is one data row addressed by column name.
type Row map[string]string

// Parse reads delimited text and normalizes every non-empty data row.
func Parse(r io.Reader) ([]storage.CatalogRecord, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}

	records := make([]storage.CatalogRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record(row))
	}

	return records, nil
}

// ReadRows splits CSV text into rows keyed by canonical column names.
// Columns the header does not carry are simply missing from each Row.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var header []string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, &MalformedCatalogError{Reason: "missing header row"}
		}
		if err != nil {
			return nil, &MalformedCatalogError{Reason: "unreadable header row", Err: err}
		}
		if !blank(rec) {
			header = rec
			break
		}
	}

	index := columnIndex(header)
	if len(index) == 0 {
		return nil, &MalformedCatalogError{
			Reason: fmt.Sprintf("header has none of the catalog columns (got %q)", header),
		}
	}

	var rows []Row
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &MalformedCatalogError{Reason: "unreadable row", Err: err}
		}
		if blank(rec) {
			continue
		}

		row := make(Row, len(index))
		for name, pos := range index {
			if pos < len(rec) {
				row[name] = rec[pos]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Record converts one raw row into a CatalogRecord.
func Record(row Row) storage.CatalogRecord {
	return storage.CatalogRecord{
		FilterType:      storage.FilterType(Text(row[ColFilterType])),
		Model:           Text(row[ColModel]),
		FlowRate:        Numeric(row[ColFlowRate]),
		Filtration:      Text(row[ColFiltration]),
		Description:     Text(row[ColDescription]),
		ElectricalUsage: Numeric(row[ColElectricalUsage]),
		RecircRate: storage.Range{
			Min: Numeric(row[ColMinRecircRate]),
			Max: Numeric(row[ColMaxRecircRate]),
		},
		Tonnage: storage.Range{
			Min: Numeric(row[ColTonnageMin]),
			Max: Numeric(row[ColTonnageMax]),
		},
		LoopVolume: storage.Range{
			Min: Numeric(row[ColLoopMin]),
			Max: Numeric(row[ColLoopMax]),
		},
		Documents: Documents(row),
	}
}

// Numeric strips whitespace and thousands separators before parsing.
// Empty, unparseable and non-finite input is absent.
func Numeric(s string) storage.Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return storage.Number{}
	}

	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return storage.Number{}
	}

	return storage.NewNumber(v)
}

// Documents keeps up to MaxDocuments links in column order. A missing
// description falls back to the column label "Document N".
func Documents(row Row) []storage.DocRef {
	var docs []storage.DocRef
	for i := 1; i <= MaxDocuments; i++ {
		link := strings.TrimSpace(row[DocumentColumn(i)])
		if link == "" {
			continue
		}

		desc := Text(row[DocumentDescriptionColumn(i)])
		if desc == "" {
			desc = DocumentColumn(i)
		}
		docs = append(docs, storage.DocRef{Link: link, Description: desc})
	}
	return docs
}

// Text applies NFKC, drops control characters and trims.
func Text(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if r == '\uFEFF' || (unicode.IsControl(r) && r != '\n' && r != '\t') {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

var canonical = func() map[string]string {
	m := make(map[string]string)
	for _, c := range KnownColumns() {
		m[headerKey(c)] = c
	}
	return m
}()

// headerKey folds case and whitespace so "  filter  type" finds "Filter Type".
func headerKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(Text(s)), " "))
}

// columnIndex maps canonical names to positions. The first occurrence of a
// duplicated header wins.
func columnIndex(header []string) map[string]int {
	index := make(map[string]int)
	for pos, h := range header {
		name, ok := canonical[headerKey(h)]
		if !ok {
			continue
		}
		if _, seen := index[name]; !seen {
			index[name] = pos
		}
	}
	return index
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
