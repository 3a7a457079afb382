package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stickfinity/server/domain"
)

// ErrOwnerMissing marks a board insert whose owner row does not exist, the
// one referential-integrity failure users can actually run into (a session
// that outlived its account).
var ErrOwnerMissing = errors.New("board owner profile is missing")

// CreateBoard inserts a board.
func (s *Store) CreateBoard(ctx context.Context, b *domain.Board) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO boards (id, name, slug, owner_id, is_public, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		b.ID, b.Name, b.Slug, b.OwnerID, b.IsPublic,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrOwnerMissing
		}
		return fmt.Errorf("insert board: %w", err)
	}
	return s.scanBoardRow(ctx, b)
}

func (s *Store) scanBoardRow(ctx context.Context, b *domain.Board) error {
	row := s.pool.QueryRow(ctx, `SELECT created_at FROM boards WHERE id = $1`, b.ID)
	if err := row.Scan(&b.CreatedAt); err != nil {
		return fmt.Errorf("read back board: %w", err)
	}
	return nil
}

// Board fetches one board by id.
func (s *Store) Board(ctx context.Context, id string) (*domain.Board, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, owner_id, is_public, created_at FROM boards WHERE id = $1`, id)
	var b domain.Board
	if err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.OwnerID, &b.IsPublic, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select board: %w", err)
	}
	return &b, nil
}

// BoardsByOwner lists a user's boards, newest first.
func (s *Store) BoardsByOwner(ctx context.Context, ownerID string) ([]domain.Board, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, slug, owner_id, is_public, created_at
		 FROM boards WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select boards: %w", err)
	}
	defer rows.Close()

	boards := []domain.Board{}
	for rows.Next() {
		var b domain.Board
		if err := rows.Scan(&b.ID, &b.Name, &b.Slug, &b.OwnerID, &b.IsPublic, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// SetBoardPublic flips a board's visibility.
func (s *Store) SetBoardPublic(ctx context.Context, id string, public bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE boards SET is_public = $2 WHERE id = $1`, id, public)
	if err != nil {
		return fmt.Errorf("update board visibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBoard removes a board and, via cascade, its notes and connections.
func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
