package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is one completed payment. Amounts are in cents; CustomerID is
// nil when the payment is not linked to a customer.
type Transaction struct {
	ID          uuid.UUID  `db:"id"`
	AccountID   uuid.UUID  `db:"account_id"`
	CustomerID  *uuid.UUID `db:"customer_id"`
	ExternalID  string     `db:"external_id"`
	AmountCents int64      `db:"amount_cents"`
	TipCents    int64      `db:"tip_cents"`
	Currency    string     `db:"currency"`
	OccurredAt  time.Time  `db:"occurred_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
