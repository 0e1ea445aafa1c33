// Package export renders the policy dashboard table as CSV, JSON or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/policysimplify/internal/models"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Columns are the dashboard table headers, in order.
var Columns = []string{
	"Policy",
	"Summary (plain-English)",
	"Checklist (actions)",
	"Risk",
	"Risk explainer",
	"Source Type",
	"Processed",
}

const (
	processedLayout = "2006-01-02 15:04"
	sheetName       = "Policies"
)

// ParseFormat validates a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// FileName returns the download file name for f.
func (f Format) FileName() string {
	return "policy_items." + string(f)
}

// Row is one dashboard table row.
type Row struct {
	Policy        string `json:"Policy"`
	Summary       string `json:"Summary (plain-English)"`
	Checklist     string `json:"Checklist (actions)"`
	Risk          string `json:"Risk"`
	RiskExplainer string `json:"Risk explainer"`
	SourceType    string `json:"Source Type"`
	Processed     string `json:"Processed"`
}

func (r Row) values() []string {
	return []string{r.Policy, r.Summary, r.Checklist, r.Risk, r.RiskExplainer, r.SourceType, r.Processed}
}

func riskRank(risk string) int {
	switch risk {
	case models.RiskHigh:
		return 0
	case models.RiskMedium:
		return 1
	case models.RiskLow:
		return 2
	default:
		return 3
	}
}

// Sort orders cards High, Medium, Low, then anything else, newest first within a risk.
// The input slice is not modified.
func Sort(cards []*models.Card) []*models.Card {
	out := make([]*models.Card, len(cards))
	copy(out, cards)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := riskRank(out[i].Risk), riskRank(out[j].Risk)
		if ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// FilterRisk keeps cards whose risk is one of risks. No risks keeps everything.
func FilterRisk(cards []*models.Card, risks ...string) []*models.Card {
	if len(risks) == 0 {
		return cards
	}
	want := make(map[string]bool, len(risks))
	for _, r := range risks {
		want[strings.ToLower(strings.TrimSpace(r))] = true
	}
	out := make([]*models.Card, 0, len(cards))
	for _, c := range cards {
		if want[strings.ToLower(c.Risk)] {
			out = append(out, c)
		}
	}
	return out
}

// Rows sorts cards and converts them into table rows. Processed times use loc.
func Rows(cards []*models.Card, loc *time.Location) []Row {
	if loc == nil {
		loc = time.Local
	}
	sorted := Sort(cards)
	rows := make([]Row, len(sorted))
	for i, c := range sorted {
		rows[i] = Row{
			Policy:        c.Policy,
			Summary:       c.Summary,
			Checklist:     c.Checklist,
			Risk:          c.Risk,
			RiskExplainer: c.RiskExplainer,
			SourceType:    c.SourceType,
			Processed:     c.CreatedAt.In(loc).Format(processedLayout),
		}
	}
	return rows
}

// Write renders rows to w in format f.
func Write(w io.Writer, f Format, rows []Row) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteCSV writes a header line and one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteXLSX writes rows to a single-sheet workbook with a bold, filtered header row.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		vals := r.values()
		row := make([]interface{}, len(vals))
		for j, v := range vals {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", lastCol, 30); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	if err := f.AutoFilter(sheetName, fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1), nil); err != nil {
		return fmt.Errorf("autofilter: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
