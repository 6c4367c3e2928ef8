package viewport

import (
	"image"
	"image/color"
	"strconv"

	"grider/internal/grid"
	"grider/internal/selection"
)

var (
	colorBackground  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorGridLine    = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	colorText        = color.RGBA{0x00, 0x00, 0x00, 0xff}
	colorHeaderBg    = color.RGBA{0xf8, 0xf9, 0xfa, 0xff}
	colorHeaderText  = color.RGBA{0x55, 0x55, 0x55, 0xff}
	colorHeaderLine  = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	colorSelectFill  = color.NRGBA{19, 126, 67, 20} // 8%
	colorHeaderMark  = color.NRGBA{19, 126, 67, 77} // 30%
	colorSelectLine  = color.NRGBA{19, 126, 67, 0xff}
	colorFillHandle  = color.RGBA{16, 124, 65, 0xff}
	colorTrack       = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	colorThumb       = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	colorThumbActive = color.RGBA{0x9e, 0x9e, 0x9e, 0xff}
)

// Draw renders one frame and starts a prefetch for cells the cache lacks.
// Hosts normally call RequestDraw instead.
func (c *Controller) Draw() {
	w, h := c.surf.Size()
	if c.closed || w <= 0 || h <= 0 {
		return
	}
	c.SetScroll(c.scrollX, c.scrollY)
	c.surf.SetFont(c.cfg.Font)
	c.surf.Clear(colorBackground)

	vr := c.VisibleRange()
	values := c.cells.VisibleFromCache(vr)
	data := c.dataRect()

	c.surf.PushClip(data)
	c.drawGridLines(vr, data)
	c.drawCells(vr, values)
	sel, hasSel := c.sel.Selection()
	if hasSel {
		c.drawSelection(sel)
	}
	c.surf.PopClip()

	c.drawColumnHeaders(vr, sel, hasSel)
	c.drawRowHeaders(vr, sel, hasSel)
	c.surf.FillRect(image.Rect(0, 0, c.cfg.HeaderWidth, c.cfg.HeaderHeight), colorHeaderBg)
	c.surf.Line(image.Pt(0, c.cfg.HeaderHeight), image.Pt(c.cfg.HeaderWidth, c.cfg.HeaderHeight), colorHeaderLine, 1)
	c.surf.Line(image.Pt(c.cfg.HeaderWidth, 0), image.Pt(c.cfg.HeaderWidth, c.cfg.HeaderHeight), colorHeaderLine, 1)

	c.drawScrollbars()

	if c.ed.active {
		c.drawEditor(data)
	} else {
		c.surf.SetCaret(image.Point{}, false)
	}
	c.surf.Flush()
	c.prefetch(vr)
}

func (c *Controller) hairline() float64 {
	if r := c.surf.PixelRatio(); r > 0 {
		return 1 / r
	}
	return 1
}

// ----------------------------- Data region -----------------------------

func (c *Controller) drawGridLines(vr grid.Range, data image.Rectangle) {
	width := c.hairline()
	for col := vr.StartCol; col <= vr.EndCol; col++ {
		x := c.colX(col + 1)
		c.surf.Line(image.Pt(x, data.Min.Y), image.Pt(x, data.Max.Y), colorGridLine, width)
	}
	for row := vr.StartRow; row <= vr.EndRow; row++ {
		y := c.rowY(row + 1)
		c.surf.Line(image.Pt(data.Min.X, y), image.Pt(data.Max.X, y), colorGridLine, width)
	}
}

// drawCells draws numbers right-aligned inside their cell. Text starts at
// the left edge and may run on into empty cells to its right, including
// text from a cell scrolled out to the left.
func (c *Controller) drawCells(vr grid.Range, values map[string]string) {
	pad := c.cfg.CellPadding
	for row := vr.StartRow; row <= vr.EndRow; row++ {
		if col, v, ok := c.overflowInto(row, vr.StartCol); ok {
			c.drawText(row, col, v, vr, values)
		}
		for col := vr.StartCol; col <= vr.EndCol; col++ {
			v, ok := values[grid.CellKey(row, col)]
			if !ok || c.isEditing(row, col) {
				continue
			}
			if grid.IsNumeric(v) {
				r := c.cellRect(row, col)
				c.surf.PushClip(r)
				c.surf.Text(image.Pt(r.Max.X-pad, (r.Min.Y+r.Max.Y)/2), v, TextStyle{Color: colorText, Align: AlignRight})
				c.surf.PopClip()
				continue
			}
			c.drawText(row, col, v, vr, values)
		}
	}
}

// overflowInto finds the nearest cached cell left of col on row and
// reports it when it holds text long enough to reach col.
func (c *Controller) overflowInto(row, col int) (int, string, bool) {
	for left := col - 1; left >= 0; left-- {
		v, ok := c.cells.Cached(row, left)
		if !ok || v == "" {
			continue
		}
		if grid.IsNumeric(v) || c.isEditing(row, left) {
			return 0, "", false
		}
		if c.surf.MeasureText(v, false)+c.cfg.CellPadding <= c.colX(col)-c.colX(left) {
			return 0, "", false
		}
		return left, v, true
	}
	return 0, "", false
}

// drawText draws left-aligned text for (row, col), clipped to the cell
// and to the empty cells after it.
func (c *Controller) drawText(row, col int, v string, vr grid.Range, values map[string]string) {
	pad := c.cfg.CellPadding
	r := c.cellRect(row, col)
	clip := r
	if c.surf.MeasureText(v, false)+2*pad > r.Dx() {
		for next := col + 1; next <= vr.EndCol; next++ {
			if next >= vr.StartCol {
				if _, full := values[grid.CellKey(row, next)]; full || c.isEditing(row, next) {
					break
				}
			}
			clip.Max.X = c.colX(next + 1)
		}
	}
	c.surf.PushClip(clip)
	c.surf.Text(image.Pt(r.Min.X+pad, (r.Min.Y+r.Max.Y)/2), v, TextStyle{Color: colorText})
	c.surf.PopClip()
}

func (c *Controller) isEditing(row, col int) bool {
	return c.ed.active && c.ed.cell.Row == row && c.ed.cell.Col == col
}

// selectionBox is the surface rectangle covering the selection.
func (c *Controller) selectionBox(sel selection.Selection) image.Rectangle {
	r := sel.Range()
	return image.Rect(c.colX(r.StartCol), c.rowY(r.StartRow), c.colX(r.EndCol+1), c.rowY(r.EndRow+1))
}

// drawSelection fills the selection, leaving the active cell clear for
// multi-cell selections, then outlines it.
func (c *Controller) drawSelection(sel selection.Selection) {
	box := c.selectionBox(sel)
	if sel.Kind == selection.Cell {
		c.surf.FillRect(box, colorSelectFill)
	} else {
		a := c.sel.Anchor()
		for _, r := range subtract(box, c.cellRect(a.Row, a.Col)) {
			c.surf.FillRect(r, colorSelectFill)
		}
	}
	c.surf.StrokeRect(box, colorSelectLine, 2)
	if s := c.cfg.FillHandle; s > 0 {
		p := box.Max
		c.surf.FillRect(image.Rect(p.X-s/2-1, p.Y-s/2-1, p.X+s-s/2-1, p.Y+s-s/2-1), colorFillHandle)
	}
}

// subtract returns up to four rectangles covering r minus hole.
func subtract(r, hole image.Rectangle) []image.Rectangle {
	hole = hole.Intersect(r)
	if hole.Empty() {
		return []image.Rectangle{r}
	}
	var out []image.Rectangle
	add := func(x image.Rectangle) {
		if !x.Empty() {
			out = append(out, x)
		}
	}
	add(image.Rect(r.Min.X, r.Min.Y, r.Max.X, hole.Min.Y))
	add(image.Rect(r.Min.X, hole.Max.Y, r.Max.X, r.Max.Y))
	add(image.Rect(r.Min.X, hole.Min.Y, hole.Min.X, hole.Max.Y))
	add(image.Rect(hole.Max.X, hole.Min.Y, r.Max.X, hole.Max.Y))
	return out
}

// ----------------------------- Headers -----------------------------

func (c *Controller) drawColumnHeaders(vr grid.Range, sel selection.Selection, hasSel bool) {
	w, _ := c.surf.Size()
	hh := c.cfg.HeaderHeight
	band := image.Rect(c.cfg.HeaderWidth, 0, w, hh)
	c.surf.PushClip(band)
	c.surf.FillRect(band, colorHeaderBg)
	sr := sel.Range()
	for col := vr.StartCol; col <= vr.EndCol; col++ {
		x0, x1 := c.colX(col), c.colX(col+1)
		if hasSel && col >= sr.StartCol && col <= sr.EndCol {
			c.surf.FillRect(image.Rect(x0, 0, x1, hh), colorHeaderMark)
			c.surf.Line(image.Pt(x0, hh-1), image.Pt(x1, hh-1), colorSelectLine, 2)
		}
		c.surf.Text(image.Pt((x0+x1)/2, hh/2), grid.ColToName(col), TextStyle{Color: colorHeaderText, Align: AlignCenter, Bold: true})
		c.surf.Line(image.Pt(x1, 0), image.Pt(x1, hh), colorHeaderLine, 1)
	}
	c.surf.PopClip()
	c.surf.Line(image.Pt(band.Min.X, hh), image.Pt(band.Max.X, hh), colorHeaderLine, 1)
}

func (c *Controller) drawRowHeaders(vr grid.Range, sel selection.Selection, hasSel bool) {
	_, h := c.surf.Size()
	hw := c.cfg.HeaderWidth
	band := image.Rect(0, c.cfg.HeaderHeight, hw, h)
	c.surf.PushClip(band)
	c.surf.FillRect(band, colorHeaderBg)
	sr := sel.Range()
	for row := vr.StartRow; row <= vr.EndRow; row++ {
		y0, y1 := c.rowY(row), c.rowY(row+1)
		if hasSel && row >= sr.StartRow && row <= sr.EndRow {
			c.surf.FillRect(image.Rect(0, y0, hw, y1), colorHeaderMark)
			c.surf.Line(image.Pt(hw-1, y0), image.Pt(hw-1, y1), colorSelectLine, 2)
		}
		c.surf.Text(image.Pt(hw/2, (y0+y1)/2), strconv.Itoa(row+1), TextStyle{Color: colorHeaderText, Align: AlignCenter, Bold: true})
		c.surf.Line(image.Pt(0, y1), image.Pt(hw, y1), colorHeaderLine, 1)
	}
	c.surf.PopClip()
	c.surf.Line(image.Pt(hw, band.Min.Y), image.Pt(hw, band.Max.Y), colorHeaderLine, 1)
}

// ----------------------------- Overlays -----------------------------

func (c *Controller) drawScrollbars() {
	v, h := c.scrollbars()
	scrolling := c.state == InteractionScrolling
	if v != nil {
		c.surf.FillRect(v.track, colorTrack)
		thumb := colorThumb
		if scrolling && c.drag.vertical {
			thumb = colorThumbActive
		}
		c.surf.FillRect(v.thumb, thumb)
	}
	if h != nil {
		c.surf.FillRect(h.track, colorTrack)
		thumb := colorThumb
		if scrolling && !c.drag.vertical {
			thumb = colorThumbActive
		}
		c.surf.FillRect(h.thumb, thumb)
	}
}

func (c *Controller) drawEditor(data image.Rectangle) {
	r := c.cellRect(c.ed.cell.Row, c.ed.cell.Col)
	pad := c.cfg.CellPadding
	mid := (r.Min.Y + r.Max.Y) / 2
	c.surf.PushClip(data)
	c.surf.FillRect(r, colorBackground)
	c.surf.StrokeRect(r, colorSelectLine, 2)
	c.surf.PushClip(r)
	c.surf.Text(image.Pt(r.Min.X+pad, mid), string(c.ed.buf), TextStyle{Color: colorText})
	c.surf.PopClip()
	c.surf.PopClip()
	caret := image.Pt(r.Min.X+pad+c.surf.MeasureText(string(c.ed.buf[:c.ed.caret]), false), mid)
	c.surf.SetCaret(caret, caret.In(data))
}
