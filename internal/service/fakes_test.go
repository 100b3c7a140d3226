package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"keeper/internal/matching"
	"keeper/internal/models"
	"keeper/internal/repository"

	"github.com/google/uuid"
)

type memAccounts struct {
	ids map[uuid.UUID]bool
}

func newAccounts(ids ...uuid.UUID) *memAccounts {
	m := &memAccounts{ids: map[uuid.UUID]bool{}}
	for _, id := range ids {
		m.ids[id] = true
	}
	return m
}

func (m *memAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	if !m.ids[id] {
		return nil, fmt.Errorf("%w: %s", repository.ErrAccountNotFound, id)
	}
	return &models.Account{ID: id, BusinessName: "Serenity Spa"}, nil
}

type memCustomers struct {
	mu        sync.Mutex
	rows      []*models.Customer
	updateErr error
}

func (m *memCustomers) UpsertBatch(_ context.Context, customers []*models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, customers...)
	return nil
}

func (m *memCustomers) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*models.Customer, error) {
	return m.filter(accountID, func(*models.Customer) bool { return true }), nil
}

func (m *memCustomers) ListWithoutEmbedding(_ context.Context, accountID uuid.UUID, limit int) ([]*models.Customer, error) {
	out := m.filter(accountID, func(c *models.Customer) bool { return c.Embedding == nil })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memCustomers) ListWithEmbedding(_ context.Context, accountID uuid.UUID) ([]*models.Customer, error) {
	return m.filter(accountID, func(c *models.Customer) bool { return c.Embedding != nil }), nil
}

func (m *memCustomers) UpdateEmbedding(_ context.Context, id uuid.UUID, vec []float32, text string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.ID == id {
			c.Embedding = vec
			c.EmbeddingText = text
			return nil
		}
	}
	return errors.New("no such customer")
}

func (m *memCustomers) filter(accountID uuid.UUID, keep func(*models.Customer) bool) []*models.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Customer
	for _, c := range m.rows {
		if c.AccountID == accountID && keep(c) {
			out = append(out, c)
		}
	}
	return out
}

type memTransactions struct {
	rows []*models.Transaction
}

func (m *memTransactions) UpsertBatch(_ context.Context, txns []*models.Transaction) error {
	m.rows = append(m.rows, txns...)
	return nil
}

func (m *memTransactions) ListByAccount(_ context.Context, accountID uuid.UUID, _ time.Time) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, t := range m.rows {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memInsights struct {
	rows []*models.Insight
	err  error
}

func (m *memInsights) CreateBatch(_ context.Context, insights []*models.Insight) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, insights...)
	return nil
}

func (m *memInsights) ListActive(_ context.Context, accountID uuid.UUID, now time.Time) ([]*models.Insight, error) {
	var out []*models.Insight
	for _, in := range m.rows {
		if in.AccountID == accountID && in.ExpiresAt.After(now) {
			out = append(out, in)
		}
	}
	return out, nil
}

// fakeEmbedder returns the vector registered for an identity's normalized
// text and fails for anything else.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{}}
}

func (f *fakeEmbedder) register(id matching.Identity, vec ...float32) {
	f.vectors[matching.Normalize(id)] = vec
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return nil, errors.New("provider unavailable")
}
