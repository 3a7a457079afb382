package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stickfinity/server/domain"
)

// ConnectionsByBoard lists the full connection snapshot for a board.
func (s *Store) ConnectionsByBoard(ctx context.Context, boardID string) ([]*domain.Connection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, board_id, from_note_id, to_note_id, created_at
		 FROM connections WHERE board_id = $1 ORDER BY created_at`, boardID)
	if err != nil {
		return nil, fmt.Errorf("select connections: %w", err)
	}
	defer rows.Close()

	conns := []*domain.Connection{}
	for rows.Next() {
		var c domain.Connection
		if err := rows.Scan(&c.ID, &c.BoardID, &c.FromNoteID, &c.ToNoteID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, &c)
	}
	return conns, rows.Err()
}

// Connection fetches one edge by id.
func (s *Store) Connection(ctx context.Context, id string) (*domain.Connection, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, board_id, from_note_id, to_note_id, created_at FROM connections WHERE id = $1`, id)
	var c domain.Connection
	if err := row.Scan(&c.ID, &c.BoardID, &c.FromNoteID, &c.ToNoteID, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select connection: %w", err)
	}
	return &c, nil
}

// InsertConnection persists an edge under its client-generated id. The
// schema's check constraint backs up the client-side self-loop rejection.
func (s *Store) InsertConnection(ctx context.Context, c *domain.Connection) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO connections (id, board_id, from_note_id, to_note_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		c.ID, c.BoardID, c.FromNoteID, c.ToNoteID,
	)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	return nil
}

// DeleteConnection removes an edge.
func (s *Store) DeleteConnection(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM connections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
