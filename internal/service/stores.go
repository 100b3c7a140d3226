package service

import (
	"context"
	"time"

	"keeper/internal/models"

	"github.com/google/uuid"
)

// Storage ports. The repository package satisfies them against PostgreSQL.

type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type CustomerStore interface {
	UpsertBatch(ctx context.Context, customers []*models.Customer) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Customer, error)
	ListWithoutEmbedding(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Customer, error)
	ListWithEmbedding(ctx context.Context, accountID uuid.UUID) ([]*models.Customer, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, vec []float32, text string) error
}

type TransactionStore interface {
	UpsertBatch(ctx context.Context, transactions []*models.Transaction) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, since time.Time) ([]*models.Transaction, error)
}

type InsightStore interface {
	CreateBatch(ctx context.Context, insights []*models.Insight) error
	ListActive(ctx context.Context, accountID uuid.UUID, now time.Time) ([]*models.Insight, error)
}
