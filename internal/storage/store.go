// Package storage holds the durable side of the grid: cell values, column
// widths and row heights, each kept in its own keyed collection.
package storage

import (
	"context"
	"strconv"
)

// Collection names one of the keyed record sets.
type Collection string

const (
	Cells      Collection = "cells"      // id "row:col", value = cell text
	ColWidths  Collection = "colWidths"  // id column index, value = width
	RowHeights Collection = "rowHeights" // id row index, value = height
)

// Collections lists every collection a Store must serve.
var Collections = []Collection{Cells, ColWidths, RowHeights}

func (c Collection) valid() bool {
	switch c {
	case Cells, ColWidths, RowHeights:
		return true
	}
	return false
}

// Record is one entry of a collection. Size collections keep the size in
// Value as a decimal integer.
type Record struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// SizeRecord builds the record stored for an axis override.
func SizeRecord(index, size int) Record {
	return Record{ID: strconv.Itoa(index), Value: strconv.Itoa(size)}
}

// Size decodes a record written by SizeRecord.
func (r Record) Size() (index, size int, err error) {
	index, err = strconv.Atoi(r.ID)
	if err != nil || index < 0 {
		return 0, 0, ErrBadRecord
	}
	size, err = strconv.Atoi(r.Value)
	if err != nil || size <= 0 {
		return 0, 0, ErrBadRecord
	}
	return index, size, nil
}

// Store is the backing key-value store. Every call may block on I/O and
// may fail independently; implementations must be safe for concurrent use.
type Store interface {
	// Get returns the record with id, or found=false when there is none.
	Get(ctx context.Context, c Collection, id string) (rec Record, found bool, err error)
	// Put inserts or replaces the record keyed by rec.ID.
	Put(ctx context.Context, c Collection, rec Record) error
	// GetAll returns every record of the collection in no particular order.
	GetAll(ctx context.Context, c Collection) ([]Record, error)
	Close() error
}
