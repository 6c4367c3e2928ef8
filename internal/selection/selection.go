// Package selection tracks the active cell, row, column or range.
package selection

import (
	"fmt"

	"grider/internal/grid"
)

type Kind int

const (
	Cell Kind = iota
	Row
	Col
	Range
)

func (k Kind) String() string {
	switch k {
	case Cell:
		return "cell"
	case Row:
		return "row"
	case Col:
		return "col"
	case Range:
		return "range"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Mode decides how ExtendTo grows the selection.
type Mode int

const (
	ModeCell Mode = iota
	ModeRow
	ModeCol
)

// Selection is a normalized inclusive rectangle. A Row selection spans every
// column of its row, a Col selection every row of its column.
type Selection struct {
	Kind  Kind
	Start grid.CellRef
	End   grid.CellRef
}

func (s Selection) Range() grid.Range {
	return grid.Range{StartRow: s.Start.Row, EndRow: s.End.Row, StartCol: s.Start.Col, EndCol: s.End.Col}
}

func (s Selection) Contains(row, col int) bool {
	return s.Range().Contains(row, col)
}

func (s Selection) String() string {
	switch s.Kind {
	case Cell:
		return s.Start.String()
	case Row:
		return fmt.Sprintf("row %d", s.Start.Row+1)
	case Col:
		return fmt.Sprintf("column %s", grid.ColToName(s.Start.Col))
	}
	return s.Start.String() + ":" + s.End.String()
}

// Model is the selection state machine. Not safe for concurrent use.
type Model struct {
	rows, cols int
	sel        *Selection
	anchor     grid.CellRef
	focus      grid.CellRef // moving end of the last extension
	mode       Mode
	onChange   func(*Selection)
}

// New returns an empty model over a rows x cols grid. onChange, if set,
// receives the new selection after every change, or nil after Clear.
func New(rows, cols int, onChange func(*Selection)) *Model {
	return &Model{rows: rows, cols: cols, onChange: onChange}
}

// OnChange replaces the change callback.
func (m *Model) OnChange(fn func(*Selection)) {
	m.onChange = fn
}

// Selection returns the current selection, false when there is none.
func (m *Model) Selection() (Selection, bool) {
	if m.sel == nil {
		return Selection{}, false
	}
	return *m.sel, true
}

// Active is the cell single-cell operations act on: the selected cell, or
// the anchor of a row, column or range selection.
func (m *Model) Active() (grid.CellRef, bool) {
	if m.sel == nil {
		return grid.CellRef{}, false
	}
	return m.anchor, true
}

func (m *Model) Anchor() grid.CellRef { return m.anchor }
func (m *Model) Focus() grid.CellRef  { return m.focus }
func (m *Model) Mode() Mode           { return m.mode }

// SetAnchor starts a fresh single-cell selection.
func (m *Model) SetAnchor(row, col int) {
	c := m.clamp(row, col)
	m.anchor, m.focus, m.mode = c, c, ModeCell
	m.set(&Selection{Kind: Cell, Start: c, End: c})
}

// SelectRow selects a whole row and anchors at its first cell.
func (m *Model) SelectRow(row int) {
	c := m.clamp(row, 0)
	m.anchor, m.focus, m.mode = c, c, ModeRow
	m.set(&Selection{Kind: Row, Start: c, End: grid.CellRef{Row: c.Row, Col: m.cols - 1}})
}

// SelectCol selects a whole column and anchors at its first cell.
func (m *Model) SelectCol(col int) {
	c := m.clamp(0, col)
	m.anchor, m.focus, m.mode = c, c, ModeCol
	m.set(&Selection{Kind: Col, Start: c, End: grid.CellRef{Row: m.rows - 1, Col: c.Col}})
}

// ExtendTo grows the selection from the anchor to (row, col) according to
// the current mode. Without a selection it does nothing.
func (m *Model) ExtendTo(row, col int) {
	if m.sel == nil {
		return
	}
	target := m.clamp(row, col)
	m.focus = target
	a := m.anchor
	switch m.mode {
	case ModeRow:
		if target.Row == a.Row {
			m.set(&Selection{Kind: Row, Start: grid.CellRef{Row: a.Row}, End: grid.CellRef{Row: a.Row, Col: m.cols - 1}})
			return
		}
		start, end := grid.Normalize(a, target)
		m.set(&Selection{Kind: Range, Start: grid.CellRef{Row: start.Row}, End: grid.CellRef{Row: end.Row, Col: m.cols - 1}})
	case ModeCol:
		if target.Col == a.Col {
			m.set(&Selection{Kind: Col, Start: grid.CellRef{Col: a.Col}, End: grid.CellRef{Row: m.rows - 1, Col: a.Col}})
			return
		}
		start, end := grid.Normalize(a, target)
		m.set(&Selection{Kind: Range, Start: grid.CellRef{Col: start.Col}, End: grid.CellRef{Row: m.rows - 1, Col: end.Col}})
	default:
		if target == a {
			m.set(&Selection{Kind: Cell, Start: a, End: a})
			return
		}
		start, end := grid.Normalize(a, target)
		m.set(&Selection{Kind: Range, Start: start, End: end})
	}
}

// Move collapses the selection onto the active cell shifted by (dr, dc).
// Without a selection it starts at A1.
func (m *Model) Move(dr, dc int) {
	a, ok := m.Active()
	if !ok {
		m.SetAnchor(0, 0)
		return
	}
	m.SetAnchor(a.Row+dr, a.Col+dc)
}

// Extend moves the free end of the selection by (dr, dc).
func (m *Model) Extend(dr, dc int) {
	if m.sel == nil {
		m.SetAnchor(0, 0)
		return
	}
	m.ExtendTo(m.focus.Row+dr, m.focus.Col+dc)
}

// Clear drops the selection.
func (m *Model) Clear() {
	if m.sel == nil {
		return
	}
	m.sel = nil
	m.mode = ModeCell
	if m.onChange != nil {
		m.onChange(nil)
	}
}

// set installs s and notifies, unless s equals the current selection.
func (m *Model) set(s *Selection) {
	if m.sel != nil && *m.sel == *s {
		return
	}
	m.sel = s
	if m.onChange != nil {
		cp := *s
		m.onChange(&cp)
	}
}

func (m *Model) clamp(row, col int) grid.CellRef {
	return grid.CellRef{
		Row: max(0, min(row, m.rows-1)),
		Col: max(0, min(col, m.cols-1)),
	}
}
