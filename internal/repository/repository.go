package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool は PostgreSQL 接続プールを生成する
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewPgStore は PostgreSQL バックエンドの Store を返す
func NewPgStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Backend:  "postgres",
		Clients:  NewPgClientRepository(pool),
		Projects: NewPgProjectRepository(pool),
		Updates:  NewPgUpdateRepository(pool),
		Close:    pool.Close,
	}
}
