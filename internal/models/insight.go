package models

import (
	"time"

	"github.com/google/uuid"
)

const InsightStatusNew = "new"

// Insight is a stored finding. Evidence and ActionItems are JSON documents.
type Insight struct {
	ID              uuid.UUID `db:"id"`
	AccountID       uuid.UUID `db:"account_id"`
	Type            string    `db:"insight_type"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	Source          string    `db:"source"`
	ConfidenceScore float64   `db:"confidence_score"`
	PotentialValue  float64   `db:"potential_value"`
	Evidence        []byte    `db:"evidence"`
	ActionItems     []byte    `db:"action_items"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
	ExpiresAt       time.Time `db:"expires_at"`
}
