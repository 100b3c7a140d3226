package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"keeper/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrMissingExternalID = errors.New("external id is required")
	ErrInvalidAmount     = errors.New("amount must not be negative")
)

const defaultCurrency = "USD"

// CustomerInput is one customer as delivered by the payments source.
type CustomerInput struct {
	ExternalID string
	GivenName  string
	FamilyName string
	Email      string
	Phone      string
}

// TransactionInput is one completed payment. CustomerExternalID may be empty
// or refer to a customer that was never ingested; either way the payment is
// stored unlinked.
type TransactionInput struct {
	ExternalID         string
	CustomerExternalID string
	AmountCents        int64
	TipCents           int64
	Currency           string
	OccurredAt         time.Time
}

// IngestService stores customer and payment records for an account.
type IngestService struct {
	accounts     AccountStore
	customers    CustomerStore
	transactions TransactionStore
	logger       *zap.Logger
}

func NewIngestService(accounts AccountStore, customers CustomerStore, transactions TransactionStore, logger *zap.Logger) *IngestService {
	return &IngestService{
		accounts:     accounts,
		customers:    customers,
		transactions: transactions,
		logger:       logger,
	}
}

func (s *IngestService) IngestCustomers(ctx context.Context, accountID uuid.UUID, inputs []CustomerInput) (int, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	records := make([]*models.Customer, 0, len(inputs))
	seen := make(map[string]int, len(inputs))
	for i, in := range inputs {
		externalID := strings.TrimSpace(in.ExternalID)
		if externalID == "" {
			return 0, fmt.Errorf("customer %d: %w", i, ErrMissingExternalID)
		}
		c := &models.Customer{
			ID:         uuid.New(),
			AccountID:  accountID,
			ExternalID: externalID,
			GivenName:  sanitizeUTF8(strings.TrimSpace(in.GivenName)),
			FamilyName: sanitizeUTF8(strings.TrimSpace(in.FamilyName)),
			Email:      sanitizeUTF8(strings.TrimSpace(in.Email)),
			Phone:      sanitizeUTF8(strings.TrimSpace(in.Phone)),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		// a repeated external id keeps its first position and the last values
		if j, ok := seen[externalID]; ok {
			records[j] = c
			continue
		}
		seen[externalID] = len(records)
		records = append(records, c)
	}

	if err := s.customers.UpsertBatch(ctx, records); err != nil {
		return 0, err
	}

	s.logger.Info("Customers ingested", zap.String("account_id", accountID.String()), zap.Int("count", len(records)))
	return len(records), nil
}

func (s *IngestService) IngestTransactions(ctx context.Context, accountID uuid.UUID, inputs []TransactionInput) (int, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return 0, err
	}

	customers, err := s.customers.ListByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to load customers: %w", err)
	}
	byExternalID := make(map[string]uuid.UUID, len(customers))
	for _, c := range customers {
		byExternalID[c.ExternalID] = c.ID
	}

	now := time.Now().UTC()
	records := make([]*models.Transaction, 0, len(inputs))
	seen := make(map[string]int, len(inputs))
	for i, in := range inputs {
		externalID := strings.TrimSpace(in.ExternalID)
		if externalID == "" {
			return 0, fmt.Errorf("transaction %d: %w", i, ErrMissingExternalID)
		}
		if in.AmountCents < 0 || in.TipCents < 0 {
			return 0, fmt.Errorf("transaction %s: %w", externalID, ErrInvalidAmount)
		}

		currency := strings.ToUpper(strings.TrimSpace(in.Currency))
		if currency == "" {
			currency = defaultCurrency
		}

		tx := &models.Transaction{
			ID:          uuid.New(),
			AccountID:   accountID,
			ExternalID:  externalID,
			AmountCents: in.AmountCents,
			TipCents:    in.TipCents,
			Currency:    currency,
			OccurredAt:  in.OccurredAt.UTC(),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if id, ok := byExternalID[in.CustomerExternalID]; ok && in.CustomerExternalID != "" {
			tx.CustomerID = &id
		}
		if j, ok := seen[externalID]; ok {
			records[j] = tx
			continue
		}
		seen[externalID] = len(records)
		records = append(records, tx)
	}

	unlinked := 0
	for _, tx := range records {
		if tx.CustomerID == nil {
			unlinked++
		}
	}

	if err := s.transactions.UpsertBatch(ctx, records); err != nil {
		return 0, err
	}

	s.logger.Info("Transactions ingested",
		zap.String("account_id", accountID.String()),
		zap.Int("count", len(records)),
		zap.Int("unlinked", unlinked),
	)
	return len(records), nil
}
