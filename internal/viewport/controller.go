// Package viewport ties the grid engine together: it owns the scroll
// position, turns pointer and key input into selection, resize, scroll and
// edit interactions, and draws the visible part of the grid onto a Surface.
//
// A Controller belongs to one event loop. Every exported method except
// RequestDraw must be called on that loop; background work (store reads,
// auto-scroll ticks, settled commands) comes back through the Scheduler.
package viewport

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"grider/internal/axis"
	"grider/internal/cells"
	"grider/internal/command"
	"grider/internal/grid"
	"grider/internal/selection"
	"grider/internal/storage"
)

// Interaction is the pointer gesture in progress.
type Interaction int

const (
	InteractionNone Interaction = iota
	InteractionSelecting
	InteractionResizingCol
	InteractionResizingRow
	InteractionScrolling
)

func (i Interaction) String() string {
	switch i {
	case InteractionSelecting:
		return "selecting"
	case InteractionResizingCol:
		return "resizing-col"
	case InteractionResizingRow:
		return "resizing-row"
	case InteractionScrolling:
		return "scrolling"
	}
	return "none"
}

// StatusSink receives aggregates of the numeric values in the selection.
type StatusSink interface {
	ShowStats(sel selection.Selection, st cells.Stats)
	ClearStats()
}

// FormulaBar shows the address and raw value of the active cell.
type FormulaBar interface {
	ShowCell(ref grid.CellRef, value string)
	ClearCell()
}

// Persister queues asynchronous writes. *storage.Writer implements it.
type Persister interface {
	Put(c storage.Collection, rec storage.Record) <-chan error
}

// Deps are the collaborators of a Controller. Store, Surface and Scheduler
// are required; a nil Writer keeps every change in memory.
type Deps struct {
	Store     storage.Store
	Writer    Persister
	Surface   Surface
	Scheduler Scheduler
	Log       logrus.FieldLogger
	Status    StatusSink
	Formula   FormulaBar
}

type dragState struct {
	index    int
	last     int // pointer coordinate along the drag axis
	orig     int // size when the drag started
	start    int
	vertical bool
	content  int // content length when a scrollbar drag started
}

type Controller struct {
	cfg     Config
	surf    Surface
	sched   Scheduler
	log     logrus.FieldLogger
	status  StatusSink
	formula FormulaBar

	cols    *axis.Manager
	rows    *axis.Manager
	cells   *cells.Store
	sel     *selection.Model
	history *command.Log

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	scrollX, scrollY int
	state            Interaction
	drag             dragState
	lastX, lastY     int
	auto             *autoScroller
	ed               editor

	statsGen   uint64
	formulaGen uint64

	drawPending   atomic.Bool
	prefetching   atomic.Bool
	prefetchAgain atomic.Bool
}

func New(cfg Config, d Deps) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d.Store == nil || d.Surface == nil || d.Scheduler == nil {
		return nil, errors.New("viewport: store, surface and scheduler are required")
	}
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	out := d.Writer
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:     cfg,
		surf:    d.Surface,
		sched:   d.Scheduler,
		log:     log,
		status:  d.Status,
		formula: d.Formula,
		ctx:     ctx,
		cancel:  cancel,
	}
	c.cols = axis.New(axis.Options{
		Collection:  storage.ColWidths,
		DefaultSize: cfg.DefaultColWidth,
		Header:      cfg.HeaderWidth,
		Count:       cfg.TotalCols,
	}, d.Store, out, log)
	c.rows = axis.New(axis.Options{
		Collection:  storage.RowHeights,
		DefaultSize: cfg.DefaultRowHeight,
		Header:      cfg.HeaderHeight,
		Count:       cfg.TotalRows,
	}, d.Store, out, log)
	c.cells = cells.New(d.Store, out, log)
	c.sel = selection.New(cfg.TotalRows, cfg.TotalCols, c.selectionChanged)
	c.history = command.New(log, command.ObserverFunc(func(e command.Event) {
		c.sched.Post(func() { c.settled(e) })
	}))
	return c, nil
}

// Load applies the persisted column widths, row heights and edit extent.
// Call it before the event loop starts serving the Controller.
func (c *Controller) Load(ctx context.Context) error {
	colSizes, err := c.cols.ReadOverrides(ctx)
	if err != nil {
		return fmt.Errorf("load column widths: %w", err)
	}
	rowSizes, err := c.rows.ReadOverrides(ctx)
	if err != nil {
		return fmt.Errorf("load row heights: %w", err)
	}
	c.cols.Replace(colSizes)
	c.rows.Replace(rowSizes)
	if err := c.cells.LoadExtent(ctx); err != nil {
		return fmt.Errorf("load extent: %w", err)
	}
	c.log.WithFields(logrus.Fields{
		"colWidths":  len(colSizes),
		"rowHeights": len(rowSizes),
	}).Info("grid loaded")
	return nil
}

// Close commits a pending edit, stops timers and waits for queued commands
// to settle. The Writer and Store are closed by their owner afterwards.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	if c.ed.active {
		c.commitEdit(0, 0)
	}
	c.stopAutoScroll()
	c.history.Wait()
	c.closed = true
	c.cancel()
}

func (c *Controller) Config() Config              { return c.cfg }
func (c *Controller) Cells() *cells.Store         { return c.cells }
func (c *Controller) Cols() *axis.Manager         { return c.cols }
func (c *Controller) Rows() *axis.Manager         { return c.rows }
func (c *Controller) Selection() *selection.Model { return c.sel }
func (c *Controller) History() *command.Log       { return c.history }
func (c *Controller) Interaction() Interaction    { return c.state }
func (c *Controller) Scroll() (x, y int)          { return c.scrollX, c.scrollY }

// ----------------------------- Geometry -----------------------------

func (c *Controller) dataRect() image.Rectangle {
	w, h := c.surf.Size()
	return image.Rect(c.cfg.HeaderWidth, c.cfg.HeaderHeight, max(w, c.cfg.HeaderWidth), max(h, c.cfg.HeaderHeight))
}

func (c *Controller) colX(col int) int { return c.cols.Offset(col) - c.scrollX }
func (c *Controller) rowY(row int) int { return c.rows.Offset(row) - c.scrollY }

func (c *Controller) cellRect(row, col int) image.Rectangle {
	x, y := c.colX(col), c.rowY(row)
	return image.Rect(x, y, x+c.cols.Size(col), y+c.rows.Size(row))
}

// colAt maps a surface x to a column, -1 over the row header.
func (c *Controller) colAt(x int) int {
	if x < c.cfg.HeaderWidth {
		return -1
	}
	return c.cols.IndexAt(x + c.scrollX)
}

// rowAt maps a surface y to a row, -1 over the column header.
func (c *Controller) rowAt(y int) int {
	if y < c.cfg.HeaderHeight {
		return -1
	}
	return c.rows.IndexAt(y + c.scrollY)
}

// exactVisible is the range intersecting the data region.
func (c *Controller) exactVisible() grid.Range {
	d := c.dataRect()
	return grid.Range{
		StartRow: max(0, c.rows.IndexAt(d.Min.Y+c.scrollY)),
		EndRow:   max(0, c.rows.IndexAt(max(d.Max.Y-1, d.Min.Y)+c.scrollY)),
		StartCol: max(0, c.cols.IndexAt(d.Min.X+c.scrollX)),
		EndCol:   max(0, c.cols.IndexAt(max(d.Max.X-1, d.Min.X)+c.scrollX)),
	}
}

// VisibleRange is the range drawn each frame: the visible cells plus a
// small trailing buffer.
func (c *Controller) VisibleRange() grid.Range {
	r := c.exactVisible()
	r.EndRow = min(c.cfg.TotalRows-1, r.EndRow+c.cfg.VisibleBuffer)
	r.EndCol = min(c.cfg.TotalCols-1, r.EndCol+c.cfg.VisibleBuffer)
	return r
}

// contentSize is the scrollable extent: one page past the furthest of the
// edit high-water mark, the visible edge and the selection, capped at the
// full grid.
func (c *Controller) contentSize() (w, h int) {
	vw, vh := c.surf.Size()
	vr := c.exactVisible()
	lastRow, lastCol := c.cells.MaxEdited()
	lastRow = max(lastRow, vr.EndRow)
	lastCol = max(lastCol, vr.EndCol)
	if _, ok := c.sel.Active(); ok {
		a, f := c.sel.Anchor(), c.sel.Focus()
		lastRow = max(lastRow, a.Row, f.Row)
		lastCol = max(lastCol, a.Col, f.Col)
	}
	w = min(c.cols.ContentEnd(), c.cols.Offset(lastCol+1)+vw)
	h = min(c.rows.ContentEnd(), c.rows.Offset(lastRow+1)+vh)
	return w, h
}

func (c *Controller) maxScroll() (x, y int) {
	vw, vh := c.surf.Size()
	cw, ch := c.contentSize()
	return max(0, cw-vw), max(0, ch-vh)
}

// ----------------------------- Scrolling -----------------------------

// SetScroll moves the viewport, clamped to the scrollable extent. It
// reports whether the position changed.
func (c *Controller) SetScroll(x, y int) bool {
	mx, my := c.maxScroll()
	x = max(0, min(x, mx))
	y = max(0, min(y, my))
	if x == c.scrollX && y == c.scrollY {
		return false
	}
	c.scrollX, c.scrollY = x, y
	return true
}

// ScrollBy moves the viewport by (dx, dy).
func (c *Controller) ScrollBy(dx, dy int) bool {
	return c.SetScroll(c.scrollX+dx, c.scrollY+dy)
}

// EnsureVisible scrolls the least distance that brings the cell fully into
// the data region.
func (c *Controller) EnsureVisible(row, col int) {
	w, h := c.surf.Size()
	right := w - c.cfg.ScrollbarSize
	bottom := h - c.cfg.ScrollbarSize
	sx, sy := c.scrollX, c.scrollY

	x0 := c.cols.Offset(col)
	x1 := x0 + c.cols.Size(col)
	switch {
	case x0-sx < c.cfg.HeaderWidth:
		sx = x0 - c.cfg.HeaderWidth
	case x1-sx > right:
		sx = min(x1-right, x0-c.cfg.HeaderWidth)
	}
	y0 := c.rows.Offset(row)
	y1 := y0 + c.rows.Size(row)
	switch {
	case y0-sy < c.cfg.HeaderHeight:
		sy = y0 - c.cfg.HeaderHeight
	case y1-sy > bottom:
		sy = min(y1-bottom, y0-c.cfg.HeaderHeight)
	}
	c.SetScroll(sx, sy)
}

// Resize re-clamps the scroll position after the surface changed size.
func (c *Controller) Resize() {
	c.SetScroll(c.scrollX, c.scrollY)
	c.RequestDraw()
}

// GoTo selects a cell and scrolls it into view.
func (c *Controller) GoTo(ref grid.CellRef) {
	if c.ed.active {
		c.commitEdit(0, 0)
	}
	c.sel.SetAnchor(ref.Row, ref.Col)
	c.EnsureVisible(ref.Row, ref.Col)
	c.RequestDraw()
}

// ----------------------------- Scheduling -----------------------------

// RequestDraw schedules one Draw on the loop. Requests made before that
// draw runs collapse into it. Safe from any goroutine.
func (c *Controller) RequestDraw() {
	if !c.drawPending.CompareAndSwap(false, true) {
		return
	}
	c.sched.Post(func() {
		c.drawPending.Store(false)
		c.Draw()
	})
}

// prefetch fills cache gaps for r in the background and asks for another
// draw when new values arrive. At most one prefetch runs at a time.
func (c *Controller) prefetch(r grid.Range) {
	if !c.prefetching.CompareAndSwap(false, true) {
		c.prefetchAgain.Store(true)
		return
	}
	go func() {
		hasNew, err := c.cells.Prefetch(c.ctx, r)
		c.prefetching.Store(false)
		if err != nil && c.ctx.Err() == nil {
			c.log.WithError(err).Warn("prefetch failed")
		}
		if c.prefetchAgain.Swap(false) || hasNew {
			c.RequestDraw()
		}
	}()
}

// resolve calls fn with the value of a cell, immediately when it is known
// and otherwise on the loop once the store answers.
func (c *Controller) resolve(ref grid.CellRef, fn func(string)) {
	if v, ok := c.cells.Lookup(ref.Row, ref.Col); ok {
		fn(v)
		return
	}
	go func() {
		v, err := c.cells.Value(c.ctx, ref.Row, ref.Col)
		if err != nil {
			c.log.WithError(err).WithField("cell", ref.String()).Warn("cell read failed, treating as empty")
		}
		c.sched.Post(func() { fn(v) })
	}()
}

// ----------------------------- Observers -----------------------------

func (c *Controller) selectionChanged(sel *selection.Selection) {
	c.RequestDraw()
	c.refreshFormula()
	c.refreshStats(sel)
}

func (c *Controller) settled(e command.Event) {
	c.RequestDraw()
	c.refreshFormula()
	if sel, ok := c.sel.Selection(); ok {
		c.refreshStats(&sel)
	}
}

func (c *Controller) refreshFormula() {
	if c.formula == nil {
		return
	}
	c.formulaGen++
	ref, ok := c.sel.Active()
	if !ok {
		c.formula.ClearCell()
		return
	}
	gen := c.formulaGen
	c.resolve(ref, func(v string) {
		if gen == c.formulaGen {
			c.formula.ShowCell(ref, v)
		}
	})
}

// refreshStats aggregates the selection in the background. Results that
// arrive after a newer selection are dropped.
func (c *Controller) refreshStats(sel *selection.Selection) {
	if c.status == nil {
		return
	}
	c.statsGen++
	if sel == nil {
		c.status.ClearStats()
		return
	}
	gen := c.statsGen
	s := *sel
	start, end := s.Start, s.End
	if end.Row-start.Row >= c.cfg.StatsRowCap {
		end.Row = start.Row + c.cfg.StatsRowCap - 1
	}
	// nothing past the high-water marks has a value
	maxRow, maxCol := c.cells.MaxEdited()
	end.Row = min(end.Row, maxRow)
	end.Col = min(end.Col, maxCol)
	if end.Row < start.Row || end.Col < start.Col {
		c.status.ShowStats(s, cells.Stats{})
		return
	}
	go func() {
		vals, err := c.cells.RangeValues(c.ctx, start, end)
		if err != nil {
			c.log.WithError(err).Warn("selection statistics incomplete")
		}
		st := cells.Aggregate(vals)
		c.sched.Post(func() {
			if gen == c.statsGen {
				c.status.ShowStats(s, st)
			}
		})
	}()
}

// CopyRange resolves the selected cells up to the edit extent as rows of
// values, for clipboard export. Nothing past the extent has a value, so a
// selection lying wholly beyond it copies nothing.
func (c *Controller) CopyRange(ctx context.Context) ([][]string, error) {
	sel, ok := c.sel.Selection()
	if !ok {
		return nil, nil
	}
	r := sel.Range()
	maxRow, maxCol := c.cells.MaxEdited()
	r.EndRow = min(r.EndRow, maxRow)
	r.EndCol = min(r.EndCol, maxCol)
	return c.cells.RangeGrid(ctx, r)
}
