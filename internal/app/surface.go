package app

import (
	"image"
	"image/color"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"grider/internal/viewport"
)

// Surface draws the grid onto a tcell screen, one unit per character cell.
// The bottom reserved rows belong to the status line and are not part of
// the surface.
type Surface struct {
	screen   tcell.Screen
	reserved int
	clips    []image.Rectangle
	overlay  func()
}

func NewSurface(s tcell.Screen, reserved int) *Surface {
	return &Surface{screen: s, reserved: reserved}
}

// OnFlush registers fn to draw host chrome on top of each frame.
func (s *Surface) OnFlush(fn func()) { s.overlay = fn }

func (s *Surface) Size() (int, int) {
	w, h := s.screen.Size()
	return w, max(0, h-s.reserved)
}

func (s *Surface) PixelRatio() float64 { return 1 }
func (s *Surface) SetFont(string)      {}

func (s *Surface) bounds() image.Rectangle {
	w, h := s.Size()
	r := image.Rect(0, 0, w, h)
	if n := len(s.clips); n > 0 {
		r = r.Intersect(s.clips[n-1])
	}
	return r
}

func (s *Surface) PushClip(r image.Rectangle) {
	s.clips = append(s.clips, s.bounds().Intersect(r))
}

func (s *Surface) PopClip() {
	if n := len(s.clips); n > 0 {
		s.clips = s.clips[:n-1]
	}
}

func (s *Surface) Clear(bg color.Color) {
	s.clips = s.clips[:0]
	st := tcell.StyleDefault.Background(toTcell(bg)).Foreground(tcell.ColorBlack)
	w, h := s.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s.screen.SetContent(x, y, ' ', nil, st)
		}
	}
}

// FillRect recolors the background of every cell in r. Translucent colors
// are blended over the current background; the text stays.
func (s *Surface) FillRect(r image.Rectangle, c color.Color) {
	r = r.Intersect(s.bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			mainc, comb, st, _ := s.screen.GetContent(x, y)
			_, bg, _ := st.Decompose()
			s.screen.SetContent(x, y, mainc, comb, st.Background(blend(bg, c)))
		}
	}
}

// StrokeRect draws the left and right edges of r. A character cell has no
// room for a horizontal rule between rows, so the top and bottom are left
// to the fill.
func (s *Surface) StrokeRect(r image.Rectangle, c color.Color, width float64) {
	edge := tcell.RuneVLine
	if width >= 2 {
		edge = '┃'
	}
	s.vline(r.Min.X, r.Min.Y, r.Max.Y, edge, c)
	s.vline(r.Max.X, r.Min.Y, r.Max.Y, edge, c)
}

// Line draws vertical rules only; horizontal ones would cover a row of text.
func (s *Surface) Line(a, b image.Point, c color.Color, width float64) {
	if a.X != b.X {
		return
	}
	edge := tcell.RuneVLine
	if width >= 2 {
		edge = '┃'
	}
	s.vline(a.X, min(a.Y, b.Y), max(a.Y, b.Y), edge, c)
}

func (s *Surface) vline(x, y0, y1 int, ch rune, c color.Color) {
	b := s.bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	for y := max(y0, b.Min.Y); y < min(y1, b.Max.Y); y++ {
		_, _, st, _ := s.screen.GetContent(x, y)
		s.screen.SetContent(x, y, ch, nil, st.Foreground(toTcell(c)))
	}
}

// Text writes s on row p.Y. Cells keep their background.
func (s *Surface) Text(p image.Point, str string, ts viewport.TextStyle) {
	w := runewidth.StringWidth(str)
	x := p.X
	switch ts.Align {
	case viewport.AlignCenter:
		x -= w / 2
	case viewport.AlignRight:
		x -= w
	}
	b := s.bounds()
	if p.Y < b.Min.Y || p.Y >= b.Max.Y {
		return
	}
	fg := toTcell(ts.Color)
	for _, r := range str {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x >= b.Max.X {
			return
		}
		if x >= b.Min.X && x+rw <= b.Max.X {
			_, _, st, _ := s.screen.GetContent(x, p.Y)
			s.screen.SetContent(x, p.Y, r, nil, st.Foreground(fg).Bold(ts.Bold))
		}
		x += rw
	}
}

func (s *Surface) MeasureText(str string, _ bool) int {
	return runewidth.StringWidth(str)
}

func (s *Surface) SetCaret(p image.Point, show bool) {
	if show {
		s.screen.ShowCursor(p.X, p.Y)
	} else {
		s.screen.HideCursor()
	}
}

func (s *Surface) Flush() {
	if s.overlay != nil {
		s.overlay()
	}
	s.screen.Show()
}

// ----------------------------- Colors -----------------------------

func toTcell(c color.Color) tcell.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return tcell.NewRGBColor(int32(n.R), int32(n.G), int32(n.B))
}

// blend lays top over base by top's alpha.
func blend(base tcell.Color, top color.Color) tcell.Color {
	n := color.NRGBAModel.Convert(top).(color.NRGBA)
	if n.A == 0xff {
		return tcell.NewRGBColor(int32(n.R), int32(n.G), int32(n.B))
	}
	under := colorful.Color{R: 1, G: 1, B: 1}
	if r, g, b := base.RGB(); r >= 0 {
		under = colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	}
	over := colorful.Color{R: float64(n.R) / 255, G: float64(n.G) / 255, B: float64(n.B) / 255}
	out := under.BlendRgb(over, float64(n.A)/255).Clamped()
	r, g, b := out.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
