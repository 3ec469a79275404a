package export

import (
	"io"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/models"
)

// WriteCSV writes records as flat rows with a header line.
func WriteCSV(w io.Writer, records []models.Observation, loc *time.Location) error {
	rows := Rows(records, loc)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return apperrors.NewExportError(string(FormatCSV), err)
	}
	return nil
}
