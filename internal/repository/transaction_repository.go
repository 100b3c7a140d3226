package repository

import (
	"context"
	"fmt"
	"time"

	"keeper/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const transactionUpsertSuffix = `ON CONFLICT (account_id, external_id) DO UPDATE SET
	customer_id = EXCLUDED.customer_id,
	amount_cents = EXCLUDED.amount_cents,
	tip_cents = EXCLUDED.tip_cents,
	currency = EXCLUDED.currency,
	occurred_at = EXCLUDED.occurred_at,
	updated_at = EXCLUDED.updated_at`

type TransactionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertBatch inserts payments or refreshes them, keyed on
// (account_id, external_id). Batches are written in chunks inside one
// transaction; external ids must be unique within the batch.
func (r *TransactionRepository) UpsertBatch(ctx context.Context, transactions []*models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	rows, err := execChunked(ctx, r.db, chunk(transactions, upsertChunkSize), upsertTransactionsQuery)
	if err != nil {
		return fmt.Errorf("failed to upsert transactions: %w", err)
	}
	r.logger.Debug("Transactions upserted", zap.Int64("rows", rows))
	return nil
}

func upsertTransactionsQuery(transactions []*models.Transaction) squirrel.InsertBuilder {
	builder := squirrel.Insert("transactions").
		Columns("id", "account_id", "customer_id", "external_id", "amount_cents", "tip_cents", "currency", "occurred_at", "created_at", "updated_at").
		Suffix(transactionUpsertSuffix).
		PlaceholderFormat(squirrel.Dollar)

	for _, tx := range transactions {
		builder = builder.Values(tx.ID, tx.AccountID, tx.CustomerID, tx.ExternalID, tx.AmountCents, tx.TipCents, tx.Currency, tx.OccurredAt, tx.CreatedAt, tx.UpdatedAt)
	}
	return builder
}

// ListByAccount returns the account's transactions since the given time,
// oldest first. A zero since returns the full history.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, since time.Time) ([]*models.Transaction, error) {
	sql, args, err := transactionsQuery(accountID, since).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.AccountID, &tx.CustomerID, &tx.ExternalID, &tx.AmountCents, &tx.TipCents, &tx.Currency, &tx.OccurredAt, &tx.CreatedAt, &tx.UpdatedAt,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, &tx)
	}

	return transactions, rows.Err()
}

func transactionsQuery(accountID uuid.UUID, since time.Time) squirrel.SelectBuilder {
	query := squirrel.Select("id", "account_id", "customer_id", "external_id", "amount_cents", "tip_cents", "currency", "occurred_at", "created_at", "updated_at").
		From("transactions").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("occurred_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	if !since.IsZero() {
		query = query.Where(squirrel.GtOrEq{"occurred_at": since})
	}
	return query
}
