// Package export serialises observation history to CSV, XLSX and SQLite.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/models"
	"price-monitor/internal/store"
	"price-monitor/pkg/utils"
)

// Format is an export file format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// Columns are the export headers, in order.
var Columns = []string{"Time", "Symbol", "Price", "% Change", "Price Above", "Price Below", "% Above", "% Below"}

// TimeLayout is how timestamps are written.
const TimeLayout = "2006-01-02 15:04:05"

// ParseFormat accepts a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "sqlite", "db", "sqlite3":
		return FormatSQLite, nil
	}
	return "", apperrors.NewExportError(s, fmt.Errorf("unsupported format"))
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == FormatSQLite {
		return "db"
	}
	return string(f)
}

// Row is one flattened observation.
type Row struct {
	Time         string `csv:"Time"`
	Symbol       string `csv:"Symbol"`
	Price        string `csv:"Price"`
	Change       string `csv:"% Change"`
	PriceAbove   string `csv:"Price Above"`
	PriceBelow   string `csv:"Price Below"`
	PercentAbove string `csv:"% Above"`
	PercentBelow string `csv:"% Below"`
}

// Cells returns the row in column order.
func (r Row) Cells() []string {
	return []string{r.Time, r.Symbol, r.Price, r.Change, r.PriceAbove, r.PriceBelow, r.PercentAbove, r.PercentBelow}
}

// RowFor flattens an observation. An undefined change is left empty.
func RowFor(o models.Observation, loc *time.Location) Row {
	if loc == nil {
		loc = time.Local
	}
	row := Row{
		Time:         o.Timestamp.In(loc).Format(TimeLayout),
		Symbol:       o.Symbol,
		Price:        utils.FormatValue(o.Price),
		PriceAbove:   utils.JoinValues(o.Thresholds.PriceAbove),
		PriceBelow:   utils.JoinValues(o.Thresholds.PriceBelow),
		PercentAbove: utils.JoinValues(o.Thresholds.PercentAbove),
		PercentBelow: utils.JoinValues(o.Thresholds.PercentBelow),
	}
	if o.HasChange() {
		row.Change = utils.FormatValue(*o.ChangePercent)
	}
	return row
}

// Rows flattens records in order.
func Rows(records []models.Observation, loc *time.Location) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = RowFor(r, loc)
	}
	return rows
}

// Save writes records to path in format. SQLite archives are appended to;
// other formats overwrite the file.
func Save(ctx context.Context, path string, format Format, records []models.Observation, loc *time.Location) error {
	if len(records) == 0 {
		return apperrors.NewExportError(string(format), fmt.Errorf("no data to export"))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperrors.NewExportError(string(format), err)
		}
	}

	switch format {
	case FormatSQLite:
		archive, err := store.OpenArchive(path)
		if err != nil {
			return apperrors.NewExportError(string(format), err)
		}
		defer archive.Close()
		if _, err := archive.SaveObservations(ctx, uuid.NewString(), records); err != nil {
			return apperrors.NewExportError(string(format), err)
		}
		return nil
	case FormatCSV, FormatXLSX:
		f, err := os.Create(path)
		if err != nil {
			return apperrors.NewExportError(string(format), err)
		}
		if format == FormatCSV {
			err = WriteCSV(f, records, loc)
		} else {
			err = WriteXLSX(f, records, loc)
		}
		if cerr := f.Close(); err == nil && cerr != nil {
			err = apperrors.NewExportError(string(format), cerr)
		}
		return err
	}
	return apperrors.NewExportError(string(format), fmt.Errorf("unsupported format"))
}

// FileName builds a timestamped export file name.
func FileName(prefix string, format Format, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format("20060102_150405"), format.Extension())
}
