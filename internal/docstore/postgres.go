package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dinepos/api/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the LISTEN channel fed by the documents table trigger.
// Payloads are collection paths.
const NotifyChannel = "docstore_changes"

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores documents as JSONB rows in the documents table.
type Postgres struct {
	db    DBTX
	watch *watchers
}

func NewPostgres(db DBTX) *Postgres {
	p := &Postgres{db: db}
	p.watch = newWatchers(p.List)
	return p
}

const getDocument = `SELECT data FROM documents WHERE path = $1`

func (p *Postgres) Get(ctx context.Context, path string) (Document, error) {
	_, id, err := Split(path)
	if err != nil {
		return Document{}, err
	}
	var data []byte
	if err := p.db.QueryRow(ctx, getDocument, path).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, apperr.NotFound("document", path)
		}
		return Document{}, apperr.Backend(fmt.Errorf("get %s: %w", path, err))
	}
	return Document{ID: id, Path: path, Data: data}, nil
}

const upsertDocument = `
INSERT INTO documents (path, collection, id, data)
VALUES ($1, $2, $3, $4)
ON CONFLICT (path) DO UPDATE
SET data = EXCLUDED.data, updated_at = now()`

func (p *Postgres) Set(ctx context.Context, path string, data any) error {
	col, id, err := Split(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if _, err := p.db.Exec(ctx, upsertDocument, path, col, id, json.RawMessage(raw)); err != nil {
		return apperr.Backend(fmt.Errorf("set %s: %w", path, err))
	}
	p.watch.notify(col)
	return nil
}

// uniqueViolation is the Postgres error code for a duplicate key.
const uniqueViolation = "23505"

func (p *Postgres) Insert(ctx context.Context, path string, data any) error {
	col, id, err := Split(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if _, err := p.db.Exec(ctx, insertDocument, path, col, id, json.RawMessage(raw)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert %s: %w", path, apperr.ErrConflict)
		}
		return apperr.Backend(fmt.Errorf("insert %s: %w", path, err))
	}
	p.watch.notify(col)
	return nil
}

const mergeDocument = `UPDATE documents SET data = data || $2, updated_at = now() WHERE path = $1`

func (p *Postgres) Update(ctx context.Context, path string, fields map[string]any) error {
	col, _, err := Split(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tag, err := p.db.Exec(ctx, mergeDocument, path, json.RawMessage(raw))
	if err != nil {
		return apperr.Backend(fmt.Errorf("update %s: %w", path, err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("document", path)
	}
	p.watch.notify(col)
	return nil
}

const deleteDocument = `DELETE FROM documents WHERE path = $1`

func (p *Postgres) Delete(ctx context.Context, path string) error {
	col, _, err := Split(path)
	if err != nil {
		return err
	}
	tag, err := p.db.Exec(ctx, deleteDocument, path)
	if err != nil {
		return apperr.Backend(fmt.Errorf("delete %s: %w", path, err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("document", path)
	}
	p.watch.notify(col)
	return nil
}

const insertDocument = `INSERT INTO documents (path, collection, id, data) VALUES ($1, $2, $3, $4)`

func (p *Postgres) Create(ctx context.Context, collection string, data any) (string, error) {
	if !validCollection(collection) {
		return "", ErrInvalidPath
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", collection, err)
	}
	id := uuid.NewString()
	if _, err := p.db.Exec(ctx, insertDocument, Join(collection, id), collection, id, json.RawMessage(raw)); err != nil {
		return "", apperr.Backend(fmt.Errorf("create in %s: %w", collection, err))
	}
	p.watch.notify(collection)
	return id, nil
}

const listDocuments = `SELECT id, path, data FROM documents WHERE collection = $1 ORDER BY seq`

func (p *Postgres) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := p.db.Query(ctx, listDocuments, collection)
	if err != nil {
		return nil, apperr.Backend(fmt.Errorf("list %s: %w", collection, err))
	}
	return collectDocuments(rows, collection)
}

const whereDocuments = `SELECT id, path, data FROM documents WHERE collection = $1 AND data->>$2 = $3 ORDER BY seq`

func (p *Postgres) Where(ctx context.Context, collection, field, value string) ([]Document, error) {
	rows, err := p.db.Query(ctx, whereDocuments, collection, field, value)
	if err != nil {
		return nil, apperr.Backend(fmt.Errorf("query %s: %w", collection, err))
	}
	return collectDocuments(rows, collection)
}

func collectDocuments(rows pgx.Rows, collection string) ([]Document, error) {
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var (
			d    Document
			data []byte
		)
		if err := rows.Scan(&d.ID, &d.Path, &data); err != nil {
			return nil, apperr.Backend(fmt.Errorf("scan %s: %w", collection, err))
		}
		d.Data = data
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Backend(fmt.Errorf("list %s: %w", collection, err))
	}
	return docs, nil
}

func (p *Postgres) Subscribe(ctx context.Context, collection string, fn func([]Document)) (func(), error) {
	if !validCollection(collection) {
		return nil, ErrInvalidPath
	}
	return p.watch.add(ctx, collection, fn), nil
}

// incrementCounter relies on the row lock taken by ON CONFLICT DO UPDATE:
// concurrent callers serialize on the row and each sees the previous
// caller's committed value.
const incrementCounter = `
INSERT INTO documents (path, collection, id, data)
VALUES ($1, $2, $3, jsonb_build_object($4::text, $5::bigint))
ON CONFLICT (path) DO UPDATE
SET data = documents.data || jsonb_build_object($4::text, COALESCE((documents.data->>$4::text)::bigint, 0) + $5::bigint),
    updated_at = now()
RETURNING (data->>$4::text)::bigint`

func (p *Postgres) Increment(ctx context.Context, path, field string, delta int64) (int64, error) {
	col, id, err := Split(path)
	if err != nil {
		return 0, err
	}
	var next int64
	if err := p.db.QueryRow(ctx, incrementCounter, path, col, id, field, delta).Scan(&next); err != nil {
		return 0, apperr.Backend(fmt.Errorf("increment %s.%s: %w", path, field, err))
	}
	p.watch.notify(col)
	return next, nil
}

// Listen turns NOTIFY messages from other processes into snapshot reloads.
// It reconnects until ctx is cancelled; after a reconnect every subscription
// reloads since notifications may have been missed.
func (p *Postgres) Listen(ctx context.Context, pool *pgxpool.Pool) error {
	for {
		err := p.listenOnce(ctx, pool)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("docstore: listen connection lost", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
		p.watch.notifyAll()
	}
}

func (p *Postgres) listenOnce(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		p.watch.notify(n.Payload)
	}
}
