package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/history"
	"price-monitor/internal/models"
)

// WriteXLSX writes one sheet per symbol, in order of first appearance.
func WriteXLSX(w io.Writer, records []models.Observation, loc *time.Location) error {
	f, err := buildWorkbook(records, loc)
	if err != nil {
		return apperrors.NewExportError(string(FormatXLSX), err)
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return apperrors.NewExportError(string(FormatXLSX), err)
	}
	return nil
}

func buildWorkbook(records []models.Observation, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()

	symbols := history.DistinctSymbols(records)
	sheets := make(map[string]string, len(symbols))
	next := make(map[string]int, len(symbols))
	used := map[string]bool{}
	keepDefault := false
	for i, sym := range symbols {
		name := SheetName(sym)
		for n := 2; used[strings.ToLower(name)]; n++ {
			base := SheetName(sym)
			if len(base) > 27 {
				base = base[:27]
			}
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[strings.ToLower(name)] = true
		if strings.EqualFold(name, "Sheet1") {
			keepDefault = true
		}
		idx, err := f.NewSheet(name)
		if err != nil {
			f.Close()
			return nil, err
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		header := make([]interface{}, len(Columns))
		for j, c := range Columns {
			header[j] = c
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			f.Close()
			return nil, err
		}
		sheets[sym] = name
		next[sym] = 2
	}

	for _, rec := range records {
		row := RowFor(rec, loc)
		cells := []interface{}{row.Time, row.Symbol, rec.Price, nil,
			row.PriceAbove, row.PriceBelow, row.PercentAbove, row.PercentBelow}
		if rec.ChangePercent != nil {
			cells[3] = *rec.ChangePercent
		}
		cell, err := excelize.CoordinatesToCellName(1, next[rec.Symbol])
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheets[rec.Symbol], cell, &cells); err != nil {
			f.Close()
			return nil, err
		}
		next[rec.Symbol]++
	}

	if len(symbols) > 0 && !keepDefault {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// SheetName makes a symbol safe as a worksheet name: no []:*?/\ and at most
// 31 characters.
func SheetName(symbol string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, symbol)
	if len(name) > 31 {
		name = name[:31]
	}
	if name == "" {
		name = "_"
	}
	return name
}
