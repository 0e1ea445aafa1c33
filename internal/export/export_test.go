package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/policysimplify/internal/models"
)

var base = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

func sampleCards() []*models.Card {
	return []*models.Card{
		{Policy: "low-old", Risk: models.RiskLow, CreatedAt: base},
		{Policy: "high-old", Risk: models.RiskHigh, CreatedAt: base},
		{Policy: "unknown", Risk: "", CreatedAt: base.Add(time.Hour)},
		{Policy: "medium", Risk: models.RiskMedium, CreatedAt: base},
		{Policy: "high-new", Risk: models.RiskHigh, CreatedAt: base.Add(time.Hour), Summary: "- a, \"quoted\"\n- b", SourceType: "Uploaded"},
	}
}

func TestSort(t *testing.T) {
	cards := sampleCards()
	got := Sort(cards)
	want := []string{"high-new", "high-old", "medium", "low-old", "unknown"}
	for i, w := range want {
		if got[i].Policy != w {
			t.Errorf("position %d = %q, want %q", i, got[i].Policy, w)
		}
	}
	if cards[0].Policy != "low-old" {
		t.Error("input slice was reordered")
	}
}

func TestFilterRisk(t *testing.T) {
	tests := []struct {
		risks []string
		want  int
	}{
		{nil, 5},
		{[]string{"High"}, 2},
		{[]string{"high", "LOW"}, 3},
		{[]string{"Critical"}, 0},
	}
	for _, tt := range tests {
		if got := FilterRisk(sampleCards(), tt.risks...); len(got) != tt.want {
			t.Errorf("FilterRisk(%v) = %d cards, want %d", tt.risks, len(got), tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"xlsx", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if FormatXLSX.FileName() != "policy_items.xlsx" || FormatJSON.ContentType() != "application/json" {
		t.Error("unexpected file name or content type")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, Rows(sampleCards(), time.UTC)); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 6 {
		t.Fatalf("got %d records, want 6", len(records))
	}
	if records[0][0] != "Policy" || records[0][6] != "Processed" {
		t.Errorf("header = %v", records[0])
	}
	first := records[1]
	if first[0] != "high-new" || first[1] != "- a, \"quoted\"\n- b" || first[6] != "2025-05-01 10:30" {
		t.Errorf("first row = %q", first)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, Rows(sampleCards(), time.UTC)); err != nil {
		t.Fatal(err)
	}
	var got []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 || got[0]["Policy"] != "high-new" || got[0]["Source Type"] != "Uploaded" {
		t.Errorf("got %v", got)
	}

	buf.Reset()
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "[]\n" {
		t.Errorf("empty JSON = %q", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, Rows(sampleCards(), time.UTC)); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want 6", len(rows))
	}
	if rows[0][1] != "Summary (plain-English)" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[2][0] != "high-old" || rows[2][3] != models.RiskHigh {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, Format("pdf"), nil); err == nil {
		t.Error("expected error")
	}
}
