// Package cli provides output helpers for the policysimplify command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/policysimplify/internal/indexer"
	"github.com/hyperjump/policysimplify/internal/models"
	"github.com/hyperjump/policysimplify/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// ParseOutputFormat validates an --output value. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCard writes one policy card, typically the result of an ingest.
func WriteCard(w io.Writer, card *models.Card, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, card)
	}
	writeCardText(w, card, true)
	return nil
}

func writeCardText(w io.Writer, card *models.Card, full bool) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s [%s] | %s | %s\n", card.Policy, card.Risk, card.SourceType,
		card.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "ID: %s | Tenant: %s\n", card.ID, card.Tenant)
	if !full {
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(card.Summary, 200))
		return
	}
	fmt.Fprintf(w, "\nSummary:\n%s\n", card.Summary)
	fmt.Fprintf(w, "\nChecklist:\n%s\n", card.Checklist)
	if card.RiskExplainer != "" {
		fmt.Fprintf(w, "\nRisk:\n%s\n", card.RiskExplainer)
	}
	if len(card.StructuredTasks) > 0 {
		fmt.Fprintln(w, "\nTasks:")
		for _, t := range card.StructuredTasks {
			fmt.Fprintf(w, "  - %s", t.Action)
			if t.Owner != "" {
				fmt.Fprintf(w, " (owner: %s)", t.Owner)
			}
			if t.Due != "" {
				fmt.Fprintf(w, " (due: %s)", t.Due)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)
}

// WriteCards writes a card list with a short summary per card.
func WriteCards(w io.Writer, cards []*models.Card, format OutputFormat) error {
	if format == OutputJSON {
		if cards == nil {
			cards = []*models.Card{}
		}
		return writeJSON(w, cards)
	}
	fmt.Fprintf(w, "\n%d policies\n\n", len(cards))
	for _, c := range cards {
		writeCardText(w, c, false)
	}
	return nil
}

// WriteAnswer writes a question's answer and its sources.
func WriteAnswer(w io.Writer, answer *indexer.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintf(w, "\n%s\n", answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, s := range answer.Sources {
			fmt.Fprintf(w, "  [%d] %s (score %.4f)\n", i+1, s.Source, s.Score)
		}
	}
	fmt.Fprintln(w)
	return nil
}

// WriteBulkResults writes per-row outcomes of a bulk ingest.
func WriteBulkResults(w io.Writer, results []indexer.BulkResult, format OutputFormat) error {
	if format == OutputJSON {
		if results == nil {
			results = []indexer.BulkResult{}
		}
		return writeJSON(w, results)
	}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			fmt.Fprintf(w, "FAIL %s (%s): %s\n", r.Name, r.URL, r.Error)
			continue
		}
		fmt.Fprintf(w, "OK   %s [%s]\n", r.Name, r.Card.Risk)
	}
	fmt.Fprintf(w, "\n%d ingested, %d failed\n", len(results)-failed, failed)
	return nil
}

// WriteEvents writes audit log entries, newest first.
func WriteEvents(w io.Writer, events []*models.Event, format OutputFormat) error {
	if format == OutputJSON {
		if events == nil {
			events = []*models.Event{}
		}
		return writeJSON(w, events)
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s  %-8s %-10s %s\n", e.Timestamp.Local().Format(time.DateTime), e.Tenant, e.Kind, e.Detail)
	}
	return nil
}

// StatusReport is the status command output.
type StatusReport struct {
	*indexer.Status
	StoreName      string `json:"store_name"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
}

// WriteStatus writes index and storage status.
func WriteStatus(w io.Writer, report *StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Store:      %s (%s)\n", report.StoreName, report.Backend)
	fmt.Fprintf(w, "Chunks:     %d\n", report.Documents)
	fmt.Fprintf(w, "Dimensions: %d\n", report.Dimensions)
	fmt.Fprintf(w, "Cards:      %d\n", report.Cards)
	fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(report.DiskUsageBytes))
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
