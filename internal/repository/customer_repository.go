package repository

import (
	"context"
	"fmt"

	"keeper/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var customerColumns = []string{
	"id", "account_id", "external_id", "given_name", "family_name", "email", "phone",
	"embedding", "COALESCE(embedding_text, '')", "created_at", "updated_at",
}

// A changed identity invalidates the stored embedding so the next backfill
// recomputes it.
const customerUpsertSuffix = `ON CONFLICT (account_id, external_id) DO UPDATE SET
	given_name = EXCLUDED.given_name,
	family_name = EXCLUDED.family_name,
	email = EXCLUDED.email,
	phone = EXCLUDED.phone,
	embedding = CASE
		WHEN (customers.given_name, customers.family_name, customers.email, customers.phone)
			IS DISTINCT FROM (EXCLUDED.given_name, EXCLUDED.family_name, EXCLUDED.email, EXCLUDED.phone)
		THEN NULL ELSE customers.embedding END,
	embedding_text = CASE
		WHEN (customers.given_name, customers.family_name, customers.email, customers.phone)
			IS DISTINCT FROM (EXCLUDED.given_name, EXCLUDED.family_name, EXCLUDED.email, EXCLUDED.phone)
		THEN NULL ELSE customers.embedding_text END,
	updated_at = EXCLUDED.updated_at`

type CustomerRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCustomerRepository(db *pgxpool.Pool, logger *zap.Logger) *CustomerRepository {
	return &CustomerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CustomerRepository) Upsert(ctx context.Context, c *models.Customer) error {
	return r.UpsertBatch(ctx, []*models.Customer{c})
}

// UpsertBatch inserts customers or refreshes their identity fields, keyed on
// (account_id, external_id). Batches are written in chunks inside one
// transaction; external ids must be unique within the batch.
func (r *CustomerRepository) UpsertBatch(ctx context.Context, customers []*models.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	rows, err := execChunked(ctx, r.db, chunk(customers, upsertChunkSize), upsertCustomersQuery)
	if err != nil {
		return fmt.Errorf("failed to upsert customers: %w", err)
	}
	r.logger.Debug("Customers upserted", zap.Int64("rows", rows))
	return nil
}

func upsertCustomersQuery(customers []*models.Customer) squirrel.InsertBuilder {
	builder := squirrel.Insert("customers").
		Columns("id", "account_id", "external_id", "given_name", "family_name", "email", "phone", "created_at", "updated_at").
		Suffix(customerUpsertSuffix).
		PlaceholderFormat(squirrel.Dollar)

	for _, c := range customers {
		builder = builder.Values(c.ID, c.AccountID, c.ExternalID, c.GivenName, c.FamilyName, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt)
	}
	return builder
}

func (r *CustomerRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Customer, error) {
	return r.list(ctx, customersQuery(accountID))
}

// ListWithoutEmbedding returns up to limit customers still missing a vector.
// A non-positive limit means no limit.
func (r *CustomerRepository) ListWithoutEmbedding(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Customer, error) {
	query := customersQuery(accountID).Where("embedding IS NULL")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return r.list(ctx, query)
}

func (r *CustomerRepository) ListWithEmbedding(ctx context.Context, accountID uuid.UUID) ([]*models.Customer, error) {
	return r.list(ctx, customersQuery(accountID).Where("embedding IS NOT NULL"))
}

func (r *CustomerRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, vec []float32, text string) error {
	query := squirrel.Update("customers").
		Set("embedding", pgtype.FlatArray[float32](vec)).
		Set("embedding_text", text).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

func customersQuery(accountID uuid.UUID) squirrel.SelectBuilder {
	return squirrel.Select(customerColumns...).
		From("customers").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at ASC", "id ASC").
		PlaceholderFormat(squirrel.Dollar)
}

func (r *CustomerRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Customer, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	return customers, rows.Err()
}

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	var embeddingData pgtype.FlatArray[float32]

	if err := row.Scan(
		&c.ID, &c.AccountID, &c.ExternalID, &c.GivenName, &c.FamilyName, &c.Email, &c.Phone,
		&embeddingData, &c.EmbeddingText, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(embeddingData) > 0 {
		c.Embedding = []float32(embeddingData)
	}
	return &c, nil
}
