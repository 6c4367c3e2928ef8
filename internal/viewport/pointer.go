package viewport

import (
	"sync/atomic"
	"time"

	"grider/internal/command"
	"grider/internal/selection"
)

// ----------------------------- Pointer -----------------------------

// resizeHandle reports the column or row whose trailing edge lies within
// the resize threshold of (x, y) in a header band.
func (c *Controller) resizeHandle(x, y int) (col bool, index int, ok bool) {
	hw, hh := c.cfg.HeaderWidth, c.cfg.HeaderHeight
	vr := c.VisibleRange()
	if y >= 0 && y < hh && x >= hw {
		for i := vr.StartCol; i <= vr.EndCol; i++ {
			if abs(x-c.colX(i+1)) < c.cfg.ResizeThreshold {
				return true, i, true
			}
		}
	}
	if x >= 0 && x < hw && y >= hh {
		for i := vr.StartRow; i <= vr.EndRow; i++ {
			if abs(y-c.rowY(i+1)) < c.cfg.ResizeThreshold {
				return false, i, true
			}
		}
	}
	return false, 0, false
}

// CursorAt is the pointer shape for (x, y).
func (c *Controller) CursorAt(x, y int) Cursor {
	switch c.state {
	case InteractionResizingCol:
		return CursorColResize
	case InteractionResizingRow:
		return CursorRowResize
	case InteractionNone:
		if col, _, ok := c.resizeHandle(x, y); ok {
			if col {
				return CursorColResize
			}
			return CursorRowResize
		}
	}
	return CursorDefault
}

// PointerDown starts an interaction. Targets are tried in order: scrollbar,
// resize handle, row header, column header, data region. Shift extends an
// existing selection instead of replacing it.
func (c *Controller) PointerDown(x, y int, mods Mods) {
	if c.ed.active {
		c.commitEdit(0, 0)
	}
	c.stopAutoScroll()
	c.state = InteractionNone
	c.lastX, c.lastY = x, y
	if c.scrollbarDown(x, y) {
		return
	}

	hw, hh := c.cfg.HeaderWidth, c.cfg.HeaderHeight
	_, hasSel := c.sel.Selection()
	extend := mods.Has(ModShift) && hasSel

	if col, i, ok := c.resizeHandle(x, y); ok {
		if col {
			c.state = InteractionResizingCol
			c.drag = dragState{index: i, start: x, orig: c.cols.Size(i)}
		} else {
			c.state = InteractionResizingRow
			c.drag = dragState{index: i, start: y, orig: c.rows.Size(i)}
		}
		return
	}

	switch {
	case x < hw && y >= hh:
		row := c.rowAt(y)
		if row < 0 {
			return
		}
		if extend && c.sel.Mode() == selection.ModeRow {
			c.sel.ExtendTo(row, 0)
		} else {
			c.sel.SelectRow(row)
		}
	case y < hh && x >= hw:
		col := c.colAt(x)
		if col < 0 {
			return
		}
		if extend && c.sel.Mode() == selection.ModeCol {
			c.sel.ExtendTo(0, col)
		} else {
			c.sel.SelectCol(col)
		}
	case x >= hw && y >= hh:
		row, col := c.rowAt(y), c.colAt(x)
		if row < 0 || col < 0 {
			return
		}
		if extend && c.sel.Mode() == selection.ModeCell {
			c.sel.ExtendTo(row, col)
		} else {
			c.sel.SetAnchor(row, col)
		}
	default:
		return
	}
	c.state = InteractionSelecting
	c.RequestDraw()
}

// PointerMove continues the current interaction.
func (c *Controller) PointerMove(x, y int) {
	c.lastX, c.lastY = x, y
	switch c.state {
	case InteractionScrolling:
		c.scrollbarDrag(x, y)
	case InteractionResizingCol:
		c.cols.SetLive(c.drag.index, max(c.cfg.MinSize, c.drag.orig+x-c.drag.start))
		c.RequestDraw()
	case InteractionResizingRow:
		c.rows.SetLive(c.drag.index, max(c.cfg.MinSize, c.drag.orig+y-c.drag.start))
		c.RequestDraw()
	case InteractionSelecting:
		c.extendToPointer(x, y)
		c.updateAutoScroll()
	}
}

// PointerUp ends the interaction. A resize that changed the size becomes
// an undoable command.
func (c *Controller) PointerUp(x, y int) {
	c.stopAutoScroll()
	switch c.state {
	case InteractionResizingCol:
		if size := c.cols.Size(c.drag.index); size != c.drag.orig {
			c.history.Execute(command.ResizeColumn(c.cols, c.drag.index, c.drag.orig, size))
		}
	case InteractionResizingRow:
		if size := c.rows.Size(c.drag.index); size != c.drag.orig {
			c.history.Execute(command.ResizeRow(c.rows, c.drag.index, c.drag.orig, size))
		}
	}
	if c.state != InteractionNone {
		c.RequestDraw()
	}
	c.state = InteractionNone
	c.drag = dragState{}
}

// DoubleClick in the data region opens the editor on the cell.
func (c *Controller) DoubleClick(x, y int) {
	if c.ed.active {
		c.commitEdit(0, 0)
	}
	if x < c.cfg.HeaderWidth || y < c.cfg.HeaderHeight {
		return
	}
	row, col := c.rowAt(y), c.colAt(x)
	if row < 0 || col < 0 {
		return
	}
	c.sel.SetAnchor(row, col)
	c.BeginEdit()
}

// Wheel scrolls by (dx, dy). An open editor is committed first.
func (c *Controller) Wheel(dx, dy int) {
	if c.ed.active {
		c.commitEdit(0, 0)
	}
	if !c.ScrollBy(dx, dy) {
		return
	}
	if c.state == InteractionSelecting {
		c.extendToPointer(c.lastX, c.lastY)
	}
	c.RequestDraw()
}

// extendToPointer extends the selection to the cell under (x, y), pinning
// the pointer to the data region so drags past an edge select the edge cell.
func (c *Controller) extendToPointer(x, y int) {
	d := c.dataRect()
	if d.Empty() {
		return
	}
	x = max(d.Min.X, min(x, d.Max.X-1))
	y = max(d.Min.Y, min(y, d.Max.Y-1))
	c.sel.ExtendTo(c.rowAt(y), c.colAt(x))
}

// ----------------------------- Auto-scroll -----------------------------

// autoScroller posts ticks while a selection drag holds the pointer near an
// edge. At most one tick is queued on the loop at a time.
type autoScroller struct {
	stop    chan struct{}
	pending atomic.Bool
}

func (a *autoScroller) run(tick time.Duration, post func()) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-t.C:
			if a.pending.CompareAndSwap(false, true) {
				post()
			}
		}
	}
}

func (c *Controller) updateAutoScroll() {
	dx, dy := c.autoDelta(c.lastX, c.lastY)
	if dx == 0 && dy == 0 {
		c.stopAutoScroll()
		return
	}
	if c.auto != nil {
		return
	}
	a := &autoScroller{stop: make(chan struct{})}
	c.auto = a
	go a.run(c.cfg.AutoScrollTick, func() {
		c.sched.Post(func() {
			a.pending.Store(false)
			c.autoTick(a)
		})
	})
}

func (c *Controller) stopAutoScroll() {
	if c.auto == nil {
		return
	}
	close(c.auto.stop)
	c.auto = nil
}

// autoTick scrolls toward the pointer and keeps extending the selection,
// even when the pointer itself is not moving.
func (c *Controller) autoTick(a *autoScroller) {
	if c.auto != a || c.state != InteractionSelecting {
		return
	}
	dx, dy := c.autoDelta(c.lastX, c.lastY)
	if dx == 0 && dy == 0 {
		c.stopAutoScroll()
		return
	}
	if c.ScrollBy(dx, dy) {
		c.extendToPointer(c.lastX, c.lastY)
		c.RequestDraw()
	}
}

// autoDelta is the scroll step for a pointer at (x, y). It grows as the
// pointer nears or passes an edge of the data region.
func (c *Controller) autoDelta(x, y int) (dx, dy int) {
	d := c.dataRect()
	right := d.Max.X - c.cfg.ScrollbarSize
	bottom := d.Max.Y - c.cfg.ScrollbarSize
	zone, speed := c.cfg.AutoScrollZone, c.cfg.AutoScrollSpeed
	if zone <= 0 || speed <= 0 {
		return 0, 0
	}
	step := func(depth int) int {
		return max(1, min(2*speed, speed*depth/zone))
	}
	edge := func(p, lo, hi int) int {
		switch {
		case p < lo+zone:
			return -step(lo + zone - p)
		case p >= hi-zone:
			return step(p - (hi - zone) + 1)
		}
		return 0
	}
	switch c.sel.Mode() {
	case selection.ModeRow:
		return 0, edge(y, d.Min.Y, bottom)
	case selection.ModeCol:
		return edge(x, d.Min.X, right), 0
	}
	return edge(x, d.Min.X, right), edge(y, d.Min.Y, bottom)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
