package main

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"keeper/internal/app"
	"keeper/internal/dto"
	"keeper/internal/service"

	"github.com/google/uuid"
)

// Export is the JSON layout accepted by import: the same shape as the ingest
// API request bodies, combined.
type Export struct {
	Customers    []dto.CustomerRequest    `json:"customers"`
	Transactions []dto.TransactionRequest `json:"transactions"`
}

// ImportedFile is one export recorded in the cache.
type ImportedFile struct {
	FilePath   string    `json:"file_path"`
	FileHash   string    `json:"file_hash"`
	AccountID  string    `json:"account_id"`
	ImportedAt time.Time `json:"imported_at"`
}

type CacheData struct {
	ImportedFiles map[string]ImportedFile `json:"imported_files"` // key: absolute file path
}

func importFile(ctx context.Context, a *app.App, accountID uuid.UUID, path string, cache *CacheData, force bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	hash, err := calculateFileHash(abs)
	if err != nil {
		return "", err
	}
	if !force && cache.unchanged(abs, hash, accountID) {
		return fmt.Sprintf("%s: unchanged, skipped", path), nil
	}

	export, err := readExport(abs)
	if err != nil {
		return "", err
	}

	customers, err := a.Ingest.IngestCustomers(ctx, accountID, toCustomerInputs(export.Customers))
	if err != nil {
		return "", err
	}
	txns, err := a.Ingest.IngestTransactions(ctx, accountID, toTransactionInputs(export.Transactions))
	if err != nil {
		return "", err
	}

	cache.ImportedFiles[abs] = ImportedFile{
		FilePath:   abs,
		FileHash:   hash,
		AccountID:  accountID.String(),
		ImportedAt: time.Now().UTC(),
	}
	return fmt.Sprintf("%s: %d customers, %d transactions", path, customers, txns), nil
}

func readExport(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}
	return &export, nil
}

func toCustomerInputs(in []dto.CustomerRequest) []service.CustomerInput {
	out := make([]service.CustomerInput, 0, len(in))
	for _, c := range in {
		out = append(out, service.CustomerInput{
			ExternalID: c.ExternalID,
			GivenName:  c.GivenName,
			FamilyName: c.FamilyName,
			Email:      c.Email,
			Phone:      c.Phone,
		})
	}
	return out
}

func toTransactionInputs(in []dto.TransactionRequest) []service.TransactionInput {
	out := make([]service.TransactionInput, 0, len(in))
	for _, t := range in {
		out = append(out, service.TransactionInput{
			ExternalID:         t.ExternalID,
			CustomerExternalID: t.CustomerExternalID,
			AmountCents:        t.AmountCents,
			TipCents:           t.TipCents,
			Currency:           t.Currency,
			OccurredAt:         t.OccurredAt,
		})
	}
	return out
}

func (c *CacheData) unchanged(path, hash string, accountID uuid.UUID) bool {
	prev, ok := c.ImportedFiles[path]
	return ok && prev.FileHash == hash && prev.AccountID == accountID.String()
}

// loadCache loads the cache of imported files
func loadCache(cacheFile string) (*CacheData, error) {
	cache := &CacheData{
		ImportedFiles: make(map[string]ImportedFile),
	}

	if _, err := os.Stat(cacheFile); os.IsNotExist(err) {
		return cache, nil
	}

	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	if len(data) == 0 {
		return cache, nil
	}

	if err := json.Unmarshal(data, cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if cache.ImportedFiles == nil {
		cache.ImportedFiles = make(map[string]ImportedFile)
	}

	return cache, nil
}

// saveCache saves the cache of imported files
func saveCache(cacheFile string, cache *CacheData) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// calculateFileHash calculates MD5 hash of a file
func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
