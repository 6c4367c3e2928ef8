// Package command implements reversible grid edits and a linear undo
// history.
package command

import (
	"fmt"

	"grider/internal/grid"
)

// Command is a reversible change. Execute and Undo apply their in-memory
// effect before returning; the channel reports when persistence settles.
type Command interface {
	Execute() <-chan error
	Undo() <-chan error
	Describe() string
}

// ValueSetter is satisfied by *cells.Store.
type ValueSetter interface {
	SetValue(row, col int, value string) <-chan error
}

// Swapper is satisfied by *cells.Store.
type Swapper interface {
	ValueSetter
	Swap(row, col int, value string) (before <-chan string, done <-chan error)
}

// Sizer is satisfied by *axis.Manager.
type Sizer interface {
	SetSize(index, size int) <-chan error
}

// EditCell replaces the value of one cell.
type EditCell struct {
	cells  ValueSetter
	Row    int
	Col    int
	Before string
	After  string

	swap    Swapper       // set until the first Execute of an unread edit
	pending <-chan string // old value, until Undo first needs it
}

func NewEditCell(cells ValueSetter, row, col int, before, after string) *EditCell {
	return &EditCell{cells: cells, Row: row, Col: col, Before: before, After: after}
}

// NewUnreadEdit is an edit of a cell whose current value is not known yet.
// Execute reads it from the store in the background before writing.
func NewUnreadEdit(cells Swapper, row, col int, after string) *EditCell {
	return &EditCell{cells: cells, Row: row, Col: col, After: after, swap: cells}
}

func (c *EditCell) Execute() <-chan error {
	if sw := c.swap; sw != nil {
		c.swap = nil
		before, done := sw.Swap(c.Row, c.Col, c.After)
		c.pending = before
		return done
	}
	return c.cells.SetValue(c.Row, c.Col, c.After)
}

// Undo restores Before. For an unread edit it waits for the background
// read if that has not finished.
func (c *EditCell) Undo() <-chan error {
	if c.pending != nil {
		c.Before = <-c.pending
		c.pending = nil
	}
	return c.cells.SetValue(c.Row, c.Col, c.Before)
}

func (c *EditCell) Describe() string {
	return fmt.Sprintf("edit %s", grid.ColRowToName(c.Col, c.Row))
}

// Resize changes the size of one column or row.
type Resize struct {
	axis   Sizer
	Column bool
	Index  int
	Before int
	After  int
}

func ResizeColumn(axis Sizer, col, before, after int) *Resize {
	return &Resize{axis: axis, Column: true, Index: col, Before: before, After: after}
}

func ResizeRow(axis Sizer, row, before, after int) *Resize {
	return &Resize{axis: axis, Index: row, Before: before, After: after}
}

func (c *Resize) Execute() <-chan error { return c.axis.SetSize(c.Index, c.After) }
func (c *Resize) Undo() <-chan error    { return c.axis.SetSize(c.Index, c.Before) }

func (c *Resize) Describe() string {
	if c.Column {
		return fmt.Sprintf("resize column %s", grid.ColToName(c.Index))
	}
	return fmt.Sprintf("resize row %d", c.Index+1)
}
