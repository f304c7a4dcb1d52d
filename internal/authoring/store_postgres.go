package authoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-tos/internal/tqs"
)

const dbTimeout = 5 * time.Second

var schema = []string{
	`CREATE TABLE IF NOT EXISTS blueprints (
		id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		author_id   text,
		title       text NOT NULL,
		total_items integer NOT NULL,
		document    jsonb NOT NULL,
		sheet       jsonb,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS blueprints_author_created_idx
		ON blueprints (author_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS blueprint_events (
		id           bigserial PRIMARY KEY,
		blueprint_id uuid NOT NULL REFERENCES blueprints (id) ON DELETE CASCADE,
		author_id    text,
		event_type   text NOT NULL,
		data         jsonb NOT NULL DEFAULT '{}'::jsonb,
		created_at   timestamptz NOT NULL DEFAULT now()
	)`,
}

// PostgresStore is a PostgreSQL-backed BlueprintStore. The blueprint body is
// stored as JSONB; the sheet lives in its own column so edits do not rewrite
// the plan.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed blueprint store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the tables the store needs if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, b *Blueprint) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	doc := *b
	doc.ID = ""
	doc.Sheet = nil
	document, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode blueprint: %w", err)
	}
	sheet, err := encodeSheet(b.Sheet)
	if err != nil {
		return "", err
	}

	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO blueprints (author_id, title, total_items, document, sheet, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $6)
		 RETURNING id::text, created_at, updated_at`,
		nullIfEmpty(b.Input.AuthorID),
		b.Input.Title,
		len(b.Slots),
		string(document),
		sheet,
		createdAt,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("create blueprint: %w", err)
	}
	return b.ID, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Blueprint, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		b        Blueprint
		document []byte
		sheet    []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, document, sheet, created_at, updated_at
		 FROM blueprints
		 WHERE id = $1::uuid`,
		id,
	).Scan(&b.ID, &document, &sheet, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get blueprint: %w", err)
	}

	// Keep the column values; the document copy of these fields is not
	// authoritative.
	rowID, created, updated := b.ID, b.CreatedAt, b.UpdatedAt
	if err := json.Unmarshal(document, &b); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}
	b.ID, b.CreatedAt, b.UpdatedAt = rowID, created, updated

	if len(sheet) > 0 {
		b.Sheet = &tqs.Sheet{}
		if err := json.Unmarshal(sheet, b.Sheet); err != nil {
			return nil, fmt.Errorf("decode sheet: %w", err)
		}
	}
	return &b, nil
}

func (s *PostgresStore) List(ctx context.Context, authorID string) ([]Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, title, author_id, total_items, sheet IS NOT NULL, created_at
		 FROM blueprints
		 WHERE $1 = '' OR author_id = $1
		 ORDER BY created_at DESC, id`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("query blueprints: %w", err)
	}
	defer rows.Close()

	out := []Listing{}
	for rows.Next() {
		var l Listing
		var author *string
		if err := rows.Scan(&l.ID, &l.Title, &author, &l.TotalItems, &l.HasSheet, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blueprint: %w", err)
		}
		if author != nil {
			l.AuthorID = *author
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blueprints: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveSheet(ctx context.Context, id string, sheet *tqs.Sheet) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	data, err := encodeSheet(sheet)
	if err != nil {
		return err
	}
	cmd, err := s.pool.Exec(ctx,
		`UPDATE blueprints
		 SET sheet = $2::jsonb, updated_at = NOW()
		 WHERE id = $1::uuid`,
		id,
		data,
	)
	if err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, `DELETE FROM blueprints WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete blueprint: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// encodeSheet returns nil for a missing sheet so the column stays NULL.
func encodeSheet(sheet *tqs.Sheet) (any, error) {
	if sheet == nil {
		return nil, nil
	}
	data, err := json.Marshal(sheet)
	if err != nil {
		return nil, fmt.Errorf("encode sheet: %w", err)
	}
	return string(data), nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
