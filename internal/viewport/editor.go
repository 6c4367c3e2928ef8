package viewport

import (
	"grider/internal/command"
	"grider/internal/grid"
)

// editor is the in-cell text editor. While active it receives every key.
type editor struct {
	active   bool
	cell     grid.CellRef
	buf      []rune
	caret    int
	original string
	known    bool // original has been read
	dirty    bool // buf was changed by the user
	session  uint64
}

// Editing reports whether the in-cell editor is open, and on which cell.
func (c *Controller) Editing() (grid.CellRef, bool) {
	return c.ed.cell, c.ed.active
}

// EditText is the editor's current text and caret position.
func (c *Controller) EditText() (string, int) {
	return string(c.ed.buf), c.ed.caret
}

// BeginEdit opens the editor on the active cell with its current value.
func (c *Controller) BeginEdit() {
	c.beginEdit(nil, false)
}

// beginEdit opens the editor on the active cell. With replace the buffer
// starts as initial and the old value is only kept for comparison.
func (c *Controller) beginEdit(initial []rune, replace bool) {
	ref, ok := c.sel.Active()
	if !ok || c.ed.active {
		return
	}
	c.EnsureVisible(ref.Row, ref.Col)
	c.ed.session++
	c.ed = editor{active: true, cell: ref, session: c.ed.session}
	if replace {
		c.ed.buf = append([]rune(nil), initial...)
		c.ed.caret = len(c.ed.buf)
		c.ed.dirty = true
	}
	if v, ok := c.cells.Lookup(ref.Row, ref.Col); ok {
		c.ed.original, c.ed.known = v, true
		if !replace {
			c.ed.buf = []rune(v)
			c.ed.caret = len(c.ed.buf)
		}
	} else {
		session := c.ed.session
		c.resolve(ref, func(v string) {
			if !c.ed.active || c.ed.session != session {
				return
			}
			c.ed.original, c.ed.known = v, true
			if !c.ed.dirty {
				c.ed.buf = []rune(v)
				c.ed.caret = len(c.ed.buf)
			}
			c.RequestDraw()
		})
	}
	c.RequestDraw()
}

// commitEdit closes the editor, records the change as a command when the
// text differs from the stored value, and moves the selection by (dr, dc).
func (c *Controller) commitEdit(dr, dc int) {
	if !c.ed.active {
		return
	}
	ed := c.ed
	c.ed.active = false
	c.ed.buf = nil
	after := string(ed.buf)
	switch {
	case ed.known && after != ed.original:
		c.history.Execute(command.NewEditCell(c.cells, ed.cell.Row, ed.cell.Col, ed.original, after))
	case !ed.known && ed.dirty:
		// the read started by beginEdit has not come back yet
		c.history.Execute(command.NewUnreadEdit(c.cells, ed.cell.Row, ed.cell.Col, after))
	}
	if dr != 0 || dc != 0 {
		c.sel.SetAnchor(ed.cell.Row+dr, ed.cell.Col+dc)
		a, _ := c.sel.Active()
		c.EnsureVisible(a.Row, a.Col)
	}
	c.RequestDraw()
}

// cancelEdit closes the editor and discards the text.
func (c *Controller) cancelEdit() {
	c.ed.active = false
	c.ed.buf = nil
	c.RequestDraw()
}

func (c *Controller) editKey(ev KeyEvent) {
	ed := &c.ed
	switch ev.Key {
	case KeyEnter:
		if ev.Mods.Has(ModShift) {
			c.commitEdit(-1, 0)
		} else {
			c.commitEdit(1, 0)
		}
		return
	case KeyTab:
		c.commitEdit(0, 1)
		return
	case KeyBacktab:
		c.commitEdit(0, -1)
		return
	case KeyUp:
		c.commitEdit(-1, 0)
		return
	case KeyDown:
		c.commitEdit(1, 0)
		return
	case KeyEsc:
		c.cancelEdit()
		return
	case KeyLeft:
		ed.caret = max(0, ed.caret-1)
	case KeyRight:
		ed.caret = min(len(ed.buf), ed.caret+1)
	case KeyHome:
		ed.caret = 0
	case KeyEnd:
		ed.caret = len(ed.buf)
	case KeyBackspace:
		if ed.caret == 0 {
			return
		}
		ed.buf = append(ed.buf[:ed.caret-1], ed.buf[ed.caret:]...)
		ed.caret--
		ed.dirty = true
	case KeyDelete:
		if ed.caret >= len(ed.buf) {
			return
		}
		ed.buf = append(ed.buf[:ed.caret], ed.buf[ed.caret+1:]...)
		ed.dirty = true
	case KeyRune:
		if ev.Mods.Has(ModCtrl) || ev.Mods.Has(ModAlt) || ev.Rune < ' ' {
			return
		}
		ed.buf = append(ed.buf, 0)
		copy(ed.buf[ed.caret+1:], ed.buf[ed.caret:])
		ed.buf[ed.caret] = ev.Rune
		ed.caret++
		ed.dirty = true
	default:
		return
	}
	c.RequestDraw()
}
