package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pharmaqc/rx-ocr/extractor"
)

var sample = extractor.Record{
	Date:       "12/03/2024",
	Prescriber: "Lavoie",
	Medication: "Amoxicillin",
	Strength:   "500mg",
	Form:       "comprimé",
	Quantity:   "021",
	Refills:    "3",
	Directions: "Prendre un comprimé par jour",
}

func TestFilename(t *testing.T) {
	ts := time.Date(2024, 3, 12, 9, 5, 7, 0, time.UTC)

	if got := Filename(ts, FormatJSON); got != "rx_20240312_090507.json" {
		t.Errorf("Unexpected filename %s", got)
	}
	if got := Filename(ts, FormatXLSX); got != "rx_20240312_090507.xlsx" {
		t.Errorf("Unexpected filename %s", got)
	}
}

func TestContentType(t *testing.T) {
	if ct, _ := ContentType(FormatJSON); ct != ContentTypeJSON {
		t.Errorf("Unexpected JSON content type %s", ct)
	}
	if ct, _ := ContentType(FormatXLSX); ct != ContentTypeXLSX {
		t.Errorf("Unexpected XLSX content type %s", ct)
	}
	if _, err := ContentType("csv"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestJSONSingleRecord(t *testing.T) {
	data, err := JSON([]extractor.Record{sample})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	if !strings.Contains(string(data), `"form": "comprimé"`) {
		t.Errorf("Accents should be written as-is, got %s", data)
	}

	var got extractor.Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Expected an object: %v", err)
	}
	if got != sample {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}

func TestJSONEmptyRecordKeepsAllKeys(t *testing.T) {
	data, err := JSON([]extractor.Record{{}})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(m) != len(extractor.Fields()) {
		t.Errorf("Expected %d keys, got %d", len(extractor.Fields()), len(m))
	}
}

func TestJSONSeveralRecords(t *testing.T) {
	data, err := Render(FormatJSON, []extractor.Record{sample, {}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	var got []extractor.Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Expected an array: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 records, got %d", len(got))
	}
}

func TestXLSX(t *testing.T) {
	data, err := Render(FormatXLSX, []extractor.Record{sample})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != sheetName {
		t.Errorf("Expected a single %s sheet, got %v", sheetName, sheets)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header and one row, got %d rows", len(rows))
	}

	wantHeader := []string{"Date", "Prescripteur", "Médicament", "Force", "Forme", "Quantité", "Renouvellements", "Posologie"}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Errorf("Header %d: expected %s, got %s", i, h, rows[0][i])
		}
	}
	if rows[1][5] != "021" {
		t.Errorf("Quantity should keep its leading zero, got %s", rows[1][5])
	}
	if rows[1][7] != sample.Directions {
		t.Errorf("Unexpected directions cell %q", rows[1][7])
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, err := Render("pdf", []extractor.Record{sample}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}
