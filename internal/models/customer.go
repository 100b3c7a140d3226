package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a payments-source customer. ExternalID is unique per account.
type Customer struct {
	ID            uuid.UUID `db:"id"`
	AccountID     uuid.UUID `db:"account_id"`
	ExternalID    string    `db:"external_id"`
	GivenName     string    `db:"given_name"`
	FamilyName    string    `db:"family_name"`
	Email         string    `db:"email"`
	Phone         string    `db:"phone"`
	Embedding     []float32 `db:"embedding"`
	EmbeddingText string    `db:"embedding_text"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}
