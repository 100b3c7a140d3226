package repository

import (
	"fmt"
	"testing"
	"time"

	"keeper/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertCustomersQuery(t *testing.T) {
	account := uuid.New()
	now := time.Now()
	customers := []*models.Customer{
		{ID: uuid.New(), AccountID: account, ExternalID: "sq-1", GivenName: "John", CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), AccountID: account, ExternalID: "sq-2", Email: "j@x.com", CreatedAt: now, UpdatedAt: now},
	}

	sql, args, err := upsertCustomersQuery(customers).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "INSERT INTO customers")
	assert.Contains(t, sql, "ON CONFLICT (account_id, external_id) DO UPDATE")
	assert.Contains(t, sql, "THEN NULL ELSE customers.embedding END")
	assert.Contains(t, sql, "$18")
	assert.NotContains(t, sql, "?")
	assert.Len(t, args, 18)
	assert.Equal(t, "sq-2", args[11])
}

func TestCustomersQuery(t *testing.T) {
	account := uuid.New()

	sql, args, err := customersQuery(account).Where("embedding IS NULL").Limit(50).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "COALESCE(embedding_text, '')")
	assert.Contains(t, sql, "WHERE account_id = $1 AND embedding IS NULL")
	assert.Contains(t, sql, "LIMIT 50")
	assert.Equal(t, []any{account}, args)
}

func TestUpsertTransactionsQuery(t *testing.T) {
	customer := uuid.New()
	account := uuid.New()
	txns := []*models.Transaction{
		{ID: uuid.New(), AccountID: account, ExternalID: "pay-1", CustomerID: &customer, AmountCents: 5000, TipCents: 900},
		{ID: uuid.New(), AccountID: account, ExternalID: "pay-2", AmountCents: 2500},
	}

	sql, args, err := upsertTransactionsQuery(txns).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "ON CONFLICT (account_id, external_id) DO UPDATE")
	assert.NotContains(t, sql, "ON CONFLICT (external_id)")
	assert.Len(t, args, 20)
	assert.Equal(t, int64(900), args[5])
	assert.Nil(t, args[12])
}

func TestTransactionsQuery(t *testing.T) {
	account := uuid.New()

	sql, args, err := transactionsQuery(account, time.Time{}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "occurred_at >=")
	assert.Len(t, args, 1)

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sql, args, err = transactionsQuery(account, since).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "occurred_at >= $2")
	assert.Equal(t, []any{account, since}, args)
}

func TestInsightQueries(t *testing.T) {
	account := uuid.New()
	now := time.Now()

	sql, args, err := createInsightsQuery([]*models.Insight{{ID: uuid.New(), AccountID: account, Status: models.InsightStatusNew}}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "INSERT INTO insights")
	assert.Len(t, args, len(insightColumns))

	sql, args, err = activeInsightsQuery(account, now).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "expires_at > $2")
	assert.Contains(t, sql, "ORDER BY potential_value DESC")
	assert.Equal(t, []any{account, now}, args)
}

func TestChunk(t *testing.T) {
	items := make([]int, 2501)
	for i := range items {
		items[i] = i
	}

	chunks := chunk(items, 1000)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 501)
	assert.Equal(t, 2500, chunks[2][500])

	assert.Empty(t, chunk([]int{}, 1000))
	assert.Len(t, chunk([]int{1, 2}, 0), 1)
}

// A large export must split into statements under PostgreSQL's 65535 bind
// parameter cap.
func TestUpsertChunksStayUnderParameterLimit(t *testing.T) {
	account := uuid.New()
	now := time.Now()

	customers := make([]*models.Customer, 8000)
	for i := range customers {
		customers[i] = &models.Customer{ID: uuid.New(), AccountID: account, ExternalID: fmt.Sprintf("sq-%d", i), CreatedAt: now, UpdatedAt: now}
	}
	chunks := chunk(customers, upsertChunkSize)
	require.Len(t, chunks, 8)
	for _, c := range chunks {
		_, args, err := upsertCustomersQuery(c).ToSql()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(args), 65535)
	}

	txns := make([]*models.Transaction, 8000)
	for i := range txns {
		txns[i] = &models.Transaction{ID: uuid.New(), AccountID: account, ExternalID: fmt.Sprintf("pay-%d", i)}
	}
	for _, c := range chunk(txns, upsertChunkSize) {
		_, args, err := upsertTransactionsQuery(c).ToSql()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(args), 65535)
	}
}
