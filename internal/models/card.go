package models

import "time"

// Risk labels assigned to a policy card.
const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
)

// Task is one actionable checklist item parsed from the generated checklist.
type Task struct {
	Action string `json:"action"`
	Owner  string `json:"owner"`
	Due    string `json:"due"`
}

// Card is the per-policy record shown in the dashboard table.
type Card struct {
	ID              string    `json:"id"`
	Tenant          string    `json:"tenant"`
	Policy          string    `json:"policy"`
	Summary         string    `json:"summary"`
	Checklist       string    `json:"checklist"`
	Risk            string    `json:"risk"`
	RiskExplainer   string    `json:"risk_explainer"`
	StructuredTasks []Task    `json:"structured_tasks"`
	SourceType      string    `json:"source_type"`
	SourceID        string    `json:"source_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Event is a lightweight audit log entry.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Tenant    string    `json:"tenant"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
}
