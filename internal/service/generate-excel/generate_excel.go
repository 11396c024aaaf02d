package generate_excel

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"filter-selector/internal/service/selection"
	"filter-selector/internal/storage"
)

const (
	selectionSheet = "Selection"
	documentsSheet = "Documents"
)

type Calculator interface {
	Calculate(ctx context.Context, q selection.Query) (selection.Result, error)
}

type GenerateExcelService struct {
	calc Calculator
}

func NewGenerateService(calc Calculator) *GenerateExcelService {
	return &GenerateExcelService{calc: calc}
}

// GenerateExcel runs the calculation and renders it as an xlsx workbook.
func (g *GenerateExcelService) GenerateExcel(ctx context.Context, q selection.Query) ([]byte, error) {
	const op = "service.generate_excel.GenerateExcel"

	res, err := g.calc.Calculate(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := Render(res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

// Render writes a Selection sheet with one row per category and a Documents
// sheet with one row per reference document.
func Render(res selection.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", selectionSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(documentsSheet); err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	headers := []string{"Category", "Model", "Flow Rate", "Operating Cost", "Filtration", "Description"}
	if err := writeRow(f, selectionSheet, 1, headers); err != nil {
		return nil, err
	}
	f.SetCellStyle(selectionSheet, "A1", cellName(len(headers), 1), headerStyle)

	docHeaders := []string{"Model", "Document", "Link"}
	if err := writeRow(f, documentsSheet, 1, docHeaders); err != nil {
		return nil, err
	}
	f.SetCellStyle(documentsSheet, "A1", cellName(len(docHeaders), 1), headerStyle)

	docRow := 2
	for i, sel := range res.Selections {
		row := i + 2

		if !sel.Matched || sel.Record == nil {
			if err := writeRow(f, selectionSheet, row, []string{
				string(sel.Category), "N/A", "-", "-", "-", "No suitable model found for this type.",
			}); err != nil {
				return nil, err
			}
			continue
		}

		rec := sel.Record
		if err := writeRow(f, selectionSheet, row, []string{
			string(sel.Category),
			orDash(rec.Model),
			numberOrDash(rec.FlowRate),
			sel.OperatingCostDisplay,
			orDash(rec.Filtration),
			orDash(rec.Description),
		}); err != nil {
			return nil, err
		}

		for _, doc := range sel.Documents {
			if err := writeRow(f, documentsSheet, docRow, []string{sel.DisplayName, doc.Description, doc.Link}); err != nil {
				return nil, err
			}
			f.SetCellHyperLink(documentsSheet, cellName(3, docRow), doc.Link, "External")
			docRow++
		}
	}

	if docRow == 2 {
		f.SetCellValue(documentsSheet, "A2", "No documents available for this selection.")
	}

	for _, sheet := range []string{selectionSheet, documentsSheet} {
		f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	f.SetColWidth(selectionSheet, "A", "F", 20)
	f.SetColWidth(documentsSheet, "A", "C", 30)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	for col, v := range values {
		if err := f.SetCellValue(sheet, cellName(col+1, row), v); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, row, err)
		}
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func numberOrDash(n storage.Number) string {
	if !n.Valid {
		return "-"
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}
