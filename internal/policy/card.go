package policy

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/policysimplify/internal/models"
)

// Source types recorded on cards.
const (
	SourceUploaded = "Uploaded"
	SourceText     = "Text"
)

// ParseRisk reads the label from the first line of a risk note. High wins over Medium,
// Medium over Low; anything else is Medium.
func ParseRisk(note string) string {
	first := strings.TrimSpace(note)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	first = strings.ToLower(first)
	switch {
	case strings.Contains(first, "high"):
		return models.RiskHigh
	case strings.Contains(first, "medium"):
		return models.RiskMedium
	case strings.Contains(first, "low"):
		return models.RiskLow
	default:
		return models.RiskMedium
	}
}

// CardInput carries the analysis outputs for one policy.
type CardInput struct {
	Tenant     string
	Policy     string
	Summary    string
	Checklist  string
	RiskNote   string
	SourceType string
	SourceID   string
}

// ComposeCard assembles a dashboard card with a fresh ID and timestamp.
func ComposeCard(in CardInput) *models.Card {
	sourceType := in.SourceType
	if sourceType == "" {
		sourceType = SourceUploaded
	}
	return &models.Card{
		ID:              uuid.NewString(),
		Tenant:          in.Tenant,
		Policy:          in.Policy,
		Summary:         in.Summary,
		Checklist:       in.Checklist,
		Risk:            ParseRisk(in.RiskNote),
		RiskExplainer:   strings.TrimSpace(in.RiskNote),
		StructuredTasks: ExtractTasks(in.Checklist),
		SourceType:      sourceType,
		SourceID:        in.SourceID,
		CreatedAt:       time.Now().UTC(),
	}
}
