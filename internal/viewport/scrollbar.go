package viewport

import "image"

// scrollbar is the geometry of one bar for the current frame.
type scrollbar struct {
	track  image.Rectangle
	thumb  image.Rectangle
	travel int // track length minus thumb length
	span   int // content length minus view length
}

// scrollbars returns the vertical and horizontal bars; a bar is nil when the
// content fits.
func (c *Controller) scrollbars() (v, h *scrollbar) {
	vw, vh := c.surf.Size()
	cw, ch := c.contentSize()
	size := c.cfg.ScrollbarSize
	if size <= 0 {
		return nil, nil
	}
	if ch > vh {
		trackLen := vh - size
		thumbLen := max(c.cfg.MinThumb, vh*trackLen/ch)
		v = &scrollbar{
			track:  image.Rect(vw-size, 0, vw, trackLen),
			travel: trackLen - thumbLen,
			span:   ch - vh,
		}
		pos := 0
		if v.travel > 0 {
			pos = c.scrollY * v.travel / v.span
		}
		v.thumb = image.Rect(vw-size, pos, vw, pos+thumbLen)
	}
	if cw > vw {
		trackLen := vw - size
		thumbLen := max(c.cfg.MinThumb, vw*trackLen/cw)
		h = &scrollbar{
			track:  image.Rect(0, vh-size, trackLen, vh),
			travel: trackLen - thumbLen,
			span:   cw - vw,
		}
		pos := 0
		if h.travel > 0 {
			pos = c.scrollX * h.travel / h.span
		}
		h.thumb = image.Rect(pos, vh-size, pos+thumbLen, vh)
	}
	return v, h
}

// scrollbarDown handles a press on either bar. A press on the thumb starts
// a drag; a press elsewhere on the track pages toward the pointer.
func (c *Controller) scrollbarDown(x, y int) bool {
	p := image.Pt(x, y)
	v, h := c.scrollbars()
	vw, vh := c.surf.Size()
	switch {
	case v != nil && p.In(v.thumb):
		c.state = InteractionScrolling
		c.drag = dragState{vertical: true, last: y, content: v.span}
	case h != nil && p.In(h.thumb):
		c.state = InteractionScrolling
		c.drag = dragState{last: x, content: h.span}
	case v != nil && p.In(v.track):
		page := vh - c.cfg.HeaderHeight
		if y < v.thumb.Min.Y {
			page = -page
		}
		c.ScrollBy(0, page)
	case h != nil && p.In(h.track):
		page := vw - c.cfg.HeaderWidth
		if x < h.thumb.Min.X {
			page = -page
		}
		c.ScrollBy(page, 0)
	default:
		return false
	}
	c.RequestDraw()
	return true
}

// scrollbarDrag converts thumb travel to content scroll using the content
// length captured when the drag began.
func (c *Controller) scrollbarDrag(x, y int) {
	v, h := c.scrollbars()
	pos := x
	bar := h
	if c.drag.vertical {
		pos, bar = y, v
	}
	d := pos - c.drag.last
	c.drag.last = pos
	if bar == nil || bar.travel <= 0 || d == 0 {
		return
	}
	delta := d * c.drag.content / bar.travel
	changed := false
	if c.drag.vertical {
		changed = c.ScrollBy(0, delta)
	} else {
		changed = c.ScrollBy(delta, 0)
	}
	if changed {
		c.RequestDraw()
	}
}
