package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"keeper/internal/dto"
	"keeper/internal/insight"
	"keeper/internal/matching"
	"keeper/internal/models"
	"keeper/internal/repository"
	"keeper/internal/service"
	"keeper/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testAccount = uuid.MustParse("6f1c2a8e-3b1d-4c55-9a0e-7d2f4b1c9e01")

type fakeServices struct {
	err error

	customers []service.CustomerInput
	txns      []service.TransactionInput
	limit     int
	query     matching.Identity
	maxMatch  int
	batch     []matching.Identity
	persist   bool
	override  *insight.BusinessSummary
	records   []*models.Insight
}

func (f *fakeServices) IngestCustomers(_ context.Context, _ uuid.UUID, in []service.CustomerInput) (int, error) {
	f.customers = in
	return len(in), f.err
}

func (f *fakeServices) IngestTransactions(_ context.Context, _ uuid.UUID, in []service.TransactionInput) (int, error) {
	f.txns = in
	return len(in), f.err
}

func (f *fakeServices) BackfillEmbeddings(_ context.Context, _ uuid.UUID, limit int) (service.BackfillResult, error) {
	f.limit = limit
	return service.BackfillResult{Processed: 2, Embedded: 2}, f.err
}

func (f *fakeServices) FindMatches(_ context.Context, _ uuid.UUID, q matching.Identity, maxMatches int) ([]matching.Match, error) {
	f.query, f.maxMatch = q, maxMatches
	if f.err != nil {
		return nil, f.err
	}
	return []matching.Match{{CandidateID: "c1", Score: 0.91, Tier: matching.TierHigh, Reasons: []string{"Same email address"}}}, nil
}

func (f *fakeServices) MatchExternal(_ context.Context, _ uuid.UUID, q []matching.Identity) (*service.ExternalMatchReport, error) {
	f.batch = q
	if f.err != nil {
		return nil, f.err
	}
	return &service.ExternalMatchReport{TotalProcessed: len(q), NoMatches: len(q), Results: []service.ExternalMatch{}}, nil
}

func (f *fakeServices) Generate(_ context.Context, _ uuid.UUID, persist bool) (*service.GenerationReport, error) {
	f.persist = persist
	if f.err != nil {
		return nil, f.err
	}
	return &service.GenerationReport{Insights: []insight.Insight{}, TotalValue: 600}, nil
}

func (f *fakeServices) ListActive(context.Context, uuid.UUID) ([]*models.Insight, error) {
	return f.records, f.err
}

func (f *fakeServices) Run(_ context.Context, _ uuid.UUID, override *insight.BusinessSummary, persist bool) (*service.ConsensusReport, error) {
	f.override, f.persist = override, persist
	if f.err != nil {
		return nil, f.err
	}
	return &service.ConsensusReport{}, nil
}

func newTestApp(f *fakeServices, account string) *fiber.App {
	logger := zap.NewNop()
	ch := NewCustomerHandler(f, f, logger)
	mh := NewMatchHandler(f, logger)
	ih := NewInsightHandler(f, f, logger)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if account != "" {
			c.Locals(middleware.AccountIDKey, account)
		}
		return c.Next()
	})
	app.Post("/customers", ch.IngestCustomers)
	app.Post("/customers/embeddings", ch.BackfillEmbeddings)
	app.Post("/transactions", ch.IngestTransactions)
	app.Post("/matches", mh.FindMatches)
	app.Post("/matches/batch", mh.MatchBatch)
	app.Get("/insights", ih.ListInsights)
	app.Post("/insights/generate", ih.GenerateInsights)
	app.Post("/insights/consensus", ih.RunConsensus)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestCustomerHandler(t *testing.T) {
	f := &fakeServices{}
	app := newTestApp(f, testAccount.String())

	status, body := do(t, app, "POST", "/customers", `{"customers":[{"external_id":"sq-1","given_name":"Sarah","email":"sarah@example.com"}]}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"stored":1}`, string(body))
	require.Len(t, f.customers, 1)
	assert.Equal(t, "Sarah", f.customers[0].GivenName)

	status, _ = do(t, app, "POST", "/customers", `{"customers":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "POST", "/transactions", `{"transactions":[{"external_id":"p-1","amount_cents":5000,"tip_cents":500,"occurred_at":"2024-05-01T10:00:00Z"}]}`)
	assert.Equal(t, fiber.StatusOK, status)
	require.Len(t, f.txns, 1)
	assert.Equal(t, int64(5000), f.txns[0].AmountCents)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), f.txns[0].OccurredAt.UTC())

	status, _ = do(t, app, "POST", "/customers/embeddings", `{"limit":50}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 50, f.limit)

	status, _ = do(t, app, "POST", "/customers/embeddings", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0, f.limit)
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{repository.ErrAccountNotFound, fiber.StatusNotFound},
		{service.ErrMissingExternalID, fiber.StatusBadRequest},
		{service.ErrInvalidAmount, fiber.StatusBadRequest},
		{errors.New("connection reset"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		f := &fakeServices{err: tc.err}
		app := newTestApp(f, testAccount.String())
		status, body := do(t, app, "POST", "/customers", `{"customers":[{"external_id":"sq-1"}]}`)
		assert.Equal(t, tc.want, status, tc.err.Error())
		assert.Contains(t, string(body), `"error"`)
		assert.NotContains(t, string(body), "connection reset")
	}
}

func TestHandlers_Unauthorized(t *testing.T) {
	app := newTestApp(&fakeServices{}, "")
	status, _ := do(t, app, "GET", "/insights", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	app = newTestApp(&fakeServices{}, "not-a-uuid")
	status, _ = do(t, app, "POST", "/insights/generate", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestMatchHandler(t *testing.T) {
	f := &fakeServices{}
	app := newTestApp(f, testAccount.String())

	status, body := do(t, app, "POST", "/matches", `{"given_name":"Sara","email":"sarah@example.com","max_matches":3}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Sara", f.query.GivenName)
	assert.Equal(t, 3, f.maxMatch)

	var matches []dto.MatchResponse
	require.NoError(t, json.Unmarshal(body, &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "high", matches[0].Tier)

	status, _ = do(t, app, "POST", "/matches", `{"max_matches":-1}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "POST", "/matches/batch", `{"identities":[{"email":"a@b.c"},{"phone":"555-0100"}]}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, f.batch, 2)

	status, _ = do(t, app, "POST", "/matches/batch", `{"identities":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestInsightHandler(t *testing.T) {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeServices{records: []*models.Insight{{
		ID:             uuid.New(),
		Type:           insight.CategoryChurnRisk,
		Description:    "High-value customer Sarah hasn't visited in 45 days",
		PotentialValue: 600,
		Status:         models.InsightStatusNew,
		CreatedAt:      created,
		ExpiresAt:      created.AddDate(0, 0, 30),
	}}}
	app := newTestApp(f, testAccount.String())

	status, _ := do(t, app, "POST", "/insights/generate", `{"persist":true}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, f.persist)

	status, body := do(t, app, "GET", "/insights", "")
	require.Equal(t, fiber.StatusOK, status)
	var list []dto.InsightResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, insight.CategoryChurnRisk, list[0].Type)
	assert.JSONEq(t, `{}`, string(list[0].Evidence))
	assert.JSONEq(t, `[]`, string(list[0].ActionItems))
	assert.Equal(t, "2024-07-01T00:00:00Z", list[0].ExpiresAt)

	status, _ = do(t, app, "POST", "/insights/consensus", `{"summary":{"customer_count":80,"tip_rate":30},"persist":false}`)
	assert.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, f.override)
	assert.Equal(t, 80, f.override.CustomerCount)
	assert.False(t, f.persist)

	f.override = nil
	status, _ = do(t, app, "POST", "/insights/consensus", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, f.override)
}
