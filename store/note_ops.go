package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/stickfinity/server/domain"
)

// NotePatch is a partial note update as it arrives over the API; nil fields
// are not written.
type NotePatch struct {
	X       *float64        `json:"x"`
	Y       *float64        `json:"y"`
	Color   *domain.Color   `json:"color"`
	Content *domain.Content `json:"content"`
}

// Empty reports whether the patch writes nothing.
func (p NotePatch) Empty() bool {
	return p.X == nil && p.Y == nil && p.Color == nil && p.Content == nil
}

const noteColumns = `id, board_id, author_id, content, color, x, y, created_at, updated_at`

func scanNote(row pgx.Row) (*domain.Note, error) {
	var n domain.Note
	var content []byte
	if err := row.Scan(&n.ID, &n.BoardID, &n.AuthorID, &content, &n.Color, &n.X, &n.Y, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Content = domain.ParseContent(content)
	return &n, nil
}

// NotesByBoard lists the full note snapshot for a board.
func (s *Store) NotesByBoard(ctx context.Context, boardID string) ([]*domain.Note, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE board_id = $1 ORDER BY created_at`, boardID)
	if err != nil {
		return nil, fmt.Errorf("select notes: %w", err)
	}
	defer rows.Close()

	notes := []*domain.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Note fetches one note by id.
func (s *Store) Note(ctx context.Context, id string) (*domain.Note, error) {
	n, err := scanNote(s.pool.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select note: %w", err)
	}
	return n, nil
}

// InsertNote persists a note under the id the client generated and fills in
// the server-side timestamps.
func (s *Store) InsertNote(ctx context.Context, n *domain.Note) error {
	content, err := json.Marshal(n.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO notes (id, board_id, author_id, content, color, x, y)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		n.ID, n.BoardID, n.AuthorID, content, n.Color, n.X, n.Y,
	)
	if err := row.Scan(&n.CreatedAt, &n.UpdatedAt); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// buildNoteUpdate renders the SET clause for a partial update. The id is
// always the final argument.
func buildNoteUpdate(id string, patch NotePatch) (string, []any, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.X != nil {
		add("x", *patch.X)
	}
	if patch.Y != nil {
		add("y", *patch.Y)
	}
	if patch.Color != nil {
		add("color", *patch.Color)
	}
	if patch.Content != nil {
		content, err := json.Marshal(*patch.Content)
		if err != nil {
			return "", nil, fmt.Errorf("encode content: %w", err)
		}
		add("content", content)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE notes SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return query, args, nil
}

// UpdateNote applies a partial update and returns the resulting row, which
// handlers broadcast on the change feed.
func (s *Store) UpdateNote(ctx context.Context, id string, patch NotePatch) (*domain.Note, error) {
	if !patch.Empty() {
		query, args, err := buildNoteUpdate(id, patch)
		if err != nil {
			return nil, err
		}
		tag, err := s.pool.Exec(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("update note: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}
	return s.Note(ctx, id)
}

// DeleteNote removes a note; connections referencing it cascade away.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
