// Package export renders extracted records as downloadable files.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pharmaqc/rx-ocr/extractor"
)

const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"

	ContentTypeJSON = "application/json"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "Ordonnance"
)

var ErrUnknownFormat = errors.New("unknown export format")

// labels are the French column headers, in canonical field order.
var labels = map[extractor.FieldName]string{
	extractor.Date:       "Date",
	extractor.Prescriber: "Prescripteur",
	extractor.Medication: "Médicament",
	extractor.Strength:   "Force",
	extractor.Form:       "Forme",
	extractor.Quantity:   "Quantité",
	extractor.Refills:    "Renouvellements",
	extractor.Directions: "Posologie",
}

// Label returns the French display name of a field.
func Label(f extractor.FieldName) string {
	return labels[f]
}

// Filename returns rx_YYYYMMDD_HHMMSS.<ext> for t.
func Filename(t time.Time, ext string) string {
	return "rx_" + t.Format("20060102_150405") + "." + ext
}

// ContentType returns the MIME type of a format.
func ContentType(format string) (string, error) {
	switch format {
	case FormatJSON:
		return ContentTypeJSON, nil
	case FormatXLSX:
		return ContentTypeXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Render encodes recs in the given format.
func Render(format string, recs []extractor.Record) ([]byte, error) {
	switch format {
	case FormatJSON:
		return JSON(recs)
	case FormatXLSX:
		return XLSX(recs)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// JSON writes a single record as an object and several as an array, with
// every key present and accents left unescaped.
func JSON(recs []extractor.Record) ([]byte, error) {
	var v any = recs
	if len(recs) == 1 {
		v = recs[0]
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX writes one header row of French labels and one row per record.
func XLSX(recs []extractor.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	fields := extractor.Fields()
	for i, field := range fields {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, Label(field))
	}
	for r, rec := range recs {
		for i, field := range fields {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			// Stored as text so "02" or "12/03/2024" are not reinterpreted.
			_ = f.SetCellStr(sheetName, cell, rec.Get(field))
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12) // date
	_ = f.SetColWidth(sheetName, "B", "C", 24) // prescriber, medication
	_ = f.SetColWidth(sheetName, "D", "G", 14) // strength .. refills
	_ = f.SetColWidth(sheetName, "H", "H", 60) // directions

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
