package repository

import (
	"context"
	"errors"
	"fmt"

	"keeper/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAccountRepository(db *pgxpool.Pool, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := squirrel.Select("id", "business_name", "created_at", "updated_at").
		From("accounts").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var account models.Account
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&account.ID, &account.BusinessName, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
		}
		return nil, err
	}

	return &account, nil
}
