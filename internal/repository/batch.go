package repository

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL caps a statement at 65535 bind parameters; 1000 rows keeps the
// widest upsert (10 columns) well below it.
const upsertChunkSize = 1000

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// execChunked runs one insert per chunk in a single transaction and returns
// the total rows affected.
func execChunked[T any](ctx context.Context, db *pgxpool.Pool, chunks [][]T, build func([]T) squirrel.InsertBuilder) (int64, error) {
	var total int64
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for _, c := range chunks {
			sql, args, err := build(c).ToSql()
			if err != nil {
				return err
			}
			tag, err := tx.Exec(ctx, sql, args...)
			if err != nil {
				return err
			}
			total += tag.RowsAffected()
		}
		return nil
	})
	return total, err
}
