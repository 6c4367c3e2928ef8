package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"
)

type table struct {
	name   string
	column string
	intID  bool
}

var tables = map[Collection]table{
	Cells:      {name: "cells", column: "value"},
	ColWidths:  {name: "col_widths", column: "width", intID: true},
	RowHeights: {name: "row_heights", column: "height", intID: true},
}

// SQLite is a Store kept in a single sqlite database file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:"
// for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, opError("open", "", path, err)
	}
	// one connection: ":memory:" databases are per connection, and writes
	// are serialized by the Writer anyway
	db.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS cells (id TEXT PRIMARY KEY, value TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS col_widths (id INTEGER PRIMARY KEY, width INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS row_heights (id INTEGER PRIMARY KEY, height INTEGER NOT NULL)`,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, opError("open", "", path, fmt.Errorf("create schema: %w", err))
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, c Collection, id string) (Record, bool, error) {
	t, ok := tables[c]
	if !ok {
		return Record{}, false, opError("get", c, id, ErrUnknownCollection)
	}
	key, err := t.key(id)
	if err != nil {
		return Record{}, false, opError("get", c, id, err)
	}
	var value string
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, t.column, t.name)
	err = s.db.QueryRowContext(ctx, q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, opError("get", c, id, err)
	}
	return Record{ID: id, Value: value}, true, nil
}

func (s *SQLite) Put(ctx context.Context, c Collection, rec Record) error {
	t, ok := tables[c]
	if !ok {
		return opError("put", c, rec.ID, ErrUnknownCollection)
	}
	key, err := t.key(rec.ID)
	if err != nil {
		return opError("put", c, rec.ID, err)
	}
	var value any = rec.Value
	if t.intID {
		n, err := strconv.Atoi(rec.Value)
		if err != nil {
			return opError("put", c, rec.ID, ErrBadRecord)
		}
		value = n
	}
	q := fmt.Sprintf(`INSERT OR REPLACE INTO %s (id, %s) VALUES (?, ?)`, t.name, t.column)
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return opError("put", c, rec.ID, err)
	}
	return nil
}

func (s *SQLite) GetAll(ctx context.Context, c Collection) ([]Record, error) {
	t, ok := tables[c]
	if !ok {
		return nil, opError("getall", c, "", ErrUnknownCollection)
	}
	q := fmt.Sprintf(`SELECT CAST(id AS TEXT), CAST(%s AS TEXT) FROM %s`, t.column, t.name)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, opError("getall", c, "", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Value); err != nil {
			return nil, opError("getall", c, "", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, opError("getall", c, "", err)
	}
	return out, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (t table) key(id string) (any, error) {
	if !t.intID {
		return id, nil
	}
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return nil, ErrBadRecord
	}
	return n, nil
}
