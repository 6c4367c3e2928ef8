package viewport

import (
	"grider/internal/command"
	"grider/internal/grid"
	"grider/internal/selection"
)

// Key handles a key press. It reports whether the key was consumed so a
// host can route the rest to its own bindings.
func (c *Controller) Key(ev KeyEvent) bool {
	if c.ed.active {
		c.editKey(ev)
		return true
	}
	shift := ev.Mods.Has(ModShift)
	ctrl := ev.Mods.Has(ModCtrl)

	if ev.Key == KeyRune && ctrl {
		switch ev.Rune {
		case 'z', 'Z':
			if shift || ev.Rune == 'Z' {
				c.history.Redo()
			} else {
				c.history.Undo()
			}
		case 'y', 'Y':
			c.history.Redo()
		default:
			return false
		}
		c.RequestDraw()
		return true
	}

	switch ev.Key {
	case KeyUp:
		c.move(-1, 0, shift)
	case KeyDown:
		c.move(1, 0, shift)
	case KeyLeft:
		c.move(0, -1, shift)
	case KeyRight:
		c.move(0, 1, shift)
	case KeyTab:
		c.move(0, 1, false)
	case KeyBacktab:
		c.move(0, -1, false)
	case KeyPgUp:
		c.move(-c.pageRows(), 0, shift)
	case KeyPgDn:
		c.move(c.pageRows(), 0, shift)
	case KeyHome:
		if ctrl {
			c.GoTo(grid.CellRef{})
			return true
		}
		a, _ := c.sel.Active()
		c.moveTo(a.Row, 0)
	case KeyEnd:
		a, _ := c.sel.Active()
		_, maxCol := c.cells.MaxEdited()
		c.moveTo(a.Row, max(0, maxCol))
	case KeyEnter, KeyF2:
		c.BeginEdit()
	case KeyDelete, KeyBackspace:
		c.clearActive()
	case KeyRune:
		if ctrl || ev.Mods.Has(ModAlt) || ev.Rune < ' ' {
			return false
		}
		if _, ok := c.sel.Active(); !ok {
			return false
		}
		c.beginEdit([]rune{ev.Rune}, true)
	default:
		return false
	}
	return true
}

// move shifts the active cell, or with extend the focus of the selection.
func (c *Controller) move(dr, dc int, extend bool) {
	if extend && c.sel.Mode() == selection.ModeCell {
		c.sel.Extend(dr, dc)
		f := c.sel.Focus()
		c.EnsureVisible(f.Row, f.Col)
	} else {
		c.sel.Move(dr, dc)
		a, _ := c.sel.Active()
		c.EnsureVisible(a.Row, a.Col)
	}
	c.RequestDraw()
}

func (c *Controller) moveTo(row, col int) {
	c.sel.SetAnchor(row, col)
	c.EnsureVisible(row, col)
	c.RequestDraw()
}

// pageRows is the number of rows fully inside the data region.
func (c *Controller) pageRows() int {
	vr := c.exactVisible()
	return max(1, vr.EndRow-vr.StartRow)
}

// clearActive empties the active cell through an undoable edit.
func (c *Controller) clearActive() {
	ref, ok := c.sel.Active()
	if !ok {
		return
	}
	c.resolve(ref, func(before string) {
		if before == "" {
			return
		}
		c.history.Execute(command.NewEditCell(c.cells, ref.Row, ref.Col, before, ""))
		c.RequestDraw()
	})
}
