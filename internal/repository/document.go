package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when no document has the requested id
var ErrNotFound = errors.New("record not found")

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Condition is one equality filter. Empty values are skipped.
type Condition struct {
	Column string
	Value  any
}

// Query selects documents by equality filters, newest or oldest first
type Query struct {
	Where   []Condition
	OrderBy string // a filter column or created_at
	Desc    bool
	Limit   int
}

// documents is a JSON document collection in one table. Filter columns are
// generated from the document, so only id, doc and created_at are written.
type documents[T any] struct {
	db      DBTX
	table   string
	columns map[string]bool
	now     func() time.Time
}

func newDocuments[T any](db DBTX, table string, columns ...string) documents[T] {
	allowed := map[string]bool{"created_at": true}
	for _, c := range columns {
		allowed[c] = true
	}
	return documents[T]{db: db, table: table, columns: allowed, now: time.Now}
}

func (d documents[T]) withTx(tx DBTX) documents[T] {
	d.db = tx
	return d
}

func (d documents[T]) create(ctx context.Context, id string, doc *T) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", d.table, err)
	}
	query := fmt.Sprintf("INSERT INTO %s (id, doc, created_at) VALUES (?, ?, ?)", d.table)
	if _, err := d.db.ExecContext(ctx, query, id, string(data), d.now().UnixNano()); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", d.table, err)
	}
	return nil
}

func (d documents[T]) get(ctx context.Context, id string) (*T, error) {
	var data string
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", d.table)
	err := d.db.QueryRowContext(ctx, query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", d.table, id, err)
	}

	var doc T
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", d.table, id, err)
	}
	return &doc, nil
}

func (d documents[T]) query(ctx context.Context, q Query) ([]T, error) {
	var conditions []string
	var args []any
	for _, c := range q.Where {
		if !d.columns[c.Column] {
			return nil, fmt.Errorf("unknown %s filter column %q", d.table, c.Column)
		}
		if s, ok := c.Value.(string); ok && s == "" {
			continue
		}
		conditions = append(conditions, c.Column+" = ?")
		args = append(args, c.Value)
	}

	query := fmt.Sprintf("SELECT doc FROM %s", d.table)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	order := q.OrderBy
	if order == "" {
		order = "created_at"
	}
	if !d.columns[order] {
		return nil, fmt.Errorf("unknown %s order column %q", d.table, order)
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, rowid %s", order, dir, dir)
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", d.table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", d.table, err)
		}
		var doc T
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", d.table, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", d.table, err)
	}
	return out, nil
}

// merge applies patch to the stored document with JSON merge patch semantics:
// present fields replace, absent fields stay.
func (d documents[T]) merge(ctx context.Context, id string, patch any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode %s patch: %w", d.table, err)
	}
	query := fmt.Sprintf("UPDATE %s SET doc = json_patch(doc, ?) WHERE id = ?", d.table)
	res, err := d.db.ExecContext(ctx, query, string(data), id)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", d.table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", d.table, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// replace overwrites the whole document
func (d documents[T]) replace(ctx context.Context, id string, doc *T) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", d.table, err)
	}
	query := fmt.Sprintf("UPDATE %s SET doc = ? WHERE id = ?", d.table)
	res, err := d.db.ExecContext(ctx, query, string(data), id)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", d.table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", d.table, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
