package viewport

import (
	"image"
	"image/color"
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

type Baseline int

const (
	BaselineMiddle Baseline = iota
	BaselineTop
)

// TextStyle controls how Surface.Text anchors a string at its point: Align
// is horizontal, Baseline vertical.
type TextStyle struct {
	Color    color.Color
	Align    Align
	Baseline Baseline
	Bold     bool
}

// Surface is an immediate-mode drawing target. Rectangles are half-open,
// as image.Rectangle defines them. Colors may be translucent.
type Surface interface {
	Size() (w, h int)
	// PixelRatio is device pixels per unit. Hairlines are drawn 1/PixelRatio
	// wide so they stay one device pixel.
	PixelRatio() float64
	SetFont(font string)

	Clear(bg color.Color)
	FillRect(r image.Rectangle, c color.Color)
	StrokeRect(r image.Rectangle, c color.Color, width float64)
	Line(a, b image.Point, c color.Color, width float64)

	// PushClip intersects the clip region with r until the matching PopClip.
	PushClip(r image.Rectangle)
	PopClip()

	Text(p image.Point, s string, st TextStyle)
	MeasureText(s string, bold bool) int

	// SetCaret shows the text caret at p, or hides it when show is false.
	SetCaret(p image.Point, show bool)
	Flush()
}

// Cursor is the pointer shape a host should show.
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorColResize
	CursorRowResize
)

func (c Cursor) String() string {
	switch c {
	case CursorColResize:
		return "col-resize"
	case CursorRowResize:
		return "row-resize"
	}
	return "default"
}
