package dto

import "time"

type TransactionRequest struct {
	ExternalID         string    `json:"external_id"`
	CustomerExternalID string    `json:"customer_external_id"`
	AmountCents        int64     `json:"amount_cents"`
	TipCents           int64     `json:"tip_cents"`
	Currency           string    `json:"currency"`
	OccurredAt         time.Time `json:"occurred_at"`
}

type IngestTransactionsRequest struct {
	Transactions []TransactionRequest `json:"transactions"`
}
