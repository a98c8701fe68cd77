// Package postgres — реализация repository.Store поверх pgx
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antonvlasov/badgeswap-api/internal/repository"
)

// dbtx покрывает и пул, и открытую транзакцию
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store реализует repository.Store
type Store struct {
	pool *pgxpool.Pool
	db   dbtx
}

// NewStore создает хранилище поверх пула соединений
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

func (s *Store) Posts() repository.PostRepository         { return &postRepo{db: s.db} }
func (s *Store) Offers() repository.OfferRepository       { return &offerRepo{db: s.db} }
func (s *Store) ChatRooms() repository.ChatRoomRepository { return &chatRepo{db: s.db} }
func (s *Store) Users() repository.UserRepository         { return &userRepo{db: s.db} }

// InTx выполняет fn в одной транзакции. Вложенный вызов продолжает
// уже открытую транзакцию
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}
