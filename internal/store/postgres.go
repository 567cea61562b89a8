package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetopt/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          text PRIMARY KEY,
    name        text,
    fingerprint text NOT NULL,
    status      text NOT NULL,
    objective   bigint NOT NULL DEFAULT 0,
    body        jsonb NOT NULL,
    created_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS runs_fingerprint_idx ON runs (fingerprint, status);
`

// Postgres stores runs as JSONB documents with the queried columns broken
// out.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// EnsureSchema creates the runs table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) SaveRun(ctx context.Context, run model.Run) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, name, fingerprint, status, objective, body, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO UPDATE SET name=$2, fingerprint=$3, status=$4, objective=$5, body=$6`,
		run.ID, nullIfEmpty(run.Name), run.Fingerprint, run.Status, run.Objective, body, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, `SELECT body FROM runs WHERE id=$1`, id))
}

func (p *Postgres) LatestSolved(ctx context.Context, fingerprint string) (model.Run, error) {
	return p.scanOne(p.db.QueryRowContext(ctx,
		`SELECT body FROM runs WHERE fingerprint=$1 AND status=$2 ORDER BY id DESC LIMIT 1`,
		fingerprint, model.StatusSolved))
}

func (p *Postgres) scanOne(row *sql.Row) (model.Run, error) {
	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Run{}, ErrNotFound
		}
		return model.Run{}, err
	}
	return decodeRun(body)
}

// ListRuns pages by id. Run ids are time-ordered UUIDs, so id order is
// creation order. One extra row is read to tell whether another page exists.
func (p *Postgres) ListRuns(ctx context.Context, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	var (
		rows *sql.Rows
		err  error
	)
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT body FROM runs WHERE id > $1 ORDER BY id LIMIT $2`, cursor, limit+1)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT body FROM runs ORDER BY id LIMIT $1`, limit+1)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, "", err
		}
		r, err := decodeRun(body)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	out, next := page(out, limit)
	return out, next, nil
}

// page trims runs, read with one row beyond limit, to limit and returns the
// cursor of the next page, or "" when runs was the last page.
func page(runs []model.Run, limit int) ([]model.Run, string) {
	if len(runs) <= limit {
		return runs, ""
	}
	runs = runs[:limit]
	return runs, runs[limit-1].ID
}

func decodeRun(body []byte) (model.Run, error) {
	var r model.Run
	if err := json.Unmarshal(body, &r); err != nil {
		return model.Run{}, fmt.Errorf("decode run: %w", err)
	}
	return r, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
