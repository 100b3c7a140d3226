package dto

import (
	"encoding/json"

	"keeper/internal/insight"
)

type GenerateInsightsRequest struct {
	Persist bool `json:"persist"`
}

// ConsensusRequest optionally overrides the summary derived from stored data.
type ConsensusRequest struct {
	Summary *insight.BusinessSummary `json:"summary,omitempty"`
	Persist bool                     `json:"persist"`
}

type InsightResponse struct {
	ID              string          `json:"id"`
	Type            string          `json:"insight_type"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Source          string          `json:"source"`
	ConfidenceScore float64         `json:"confidence_score"`
	PotentialValue  float64         `json:"potential_value"`
	Evidence        json.RawMessage `json:"evidence"`
	ActionItems     json.RawMessage `json:"action_items"`
	Status          string          `json:"status"`
	CreatedAt       string          `json:"created_at"`
	ExpiresAt       string          `json:"expires_at"`
}
