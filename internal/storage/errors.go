package storage

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by stores and writers after Close.
var ErrClosed = errors.New("storage closed")

// ErrUnknownCollection indicates a collection name no store serves.
var ErrUnknownCollection = errors.New("unknown collection")

// ErrBadRecord indicates a record whose id or value cannot be decoded.
var ErrBadRecord = errors.New("malformed record")

// Error describes a failed store operation.
type Error struct {
	Op         string // "get", "put", "getall", "open"
	Collection Collection
	ID         string
	Err        error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opError(op string, c Collection, id string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Collection: c, ID: id, Err: err}
}
