package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/go-cmp/cmp"

	"grider/internal/grid"
	"grider/internal/storage"
	"grider/internal/viewport"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func rowText(s tcell.SimulationScreen, y int) string {
	cells, w, _ := s.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c.Runes[0])
	}
	return b.String()
}

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want viewport.KeyEvent
		ok   bool
	}{
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), viewport.KeyEvent{Key: viewport.KeyRune, Rune: 'x'}, true},
		{"ctrl+z", tcell.NewEventKey(tcell.KeyCtrlZ, 0, tcell.ModCtrl), viewport.KeyEvent{Key: viewport.KeyRune, Rune: 'z', Mods: viewport.ModCtrl}, true},
		{"ctrl+shift+z", tcell.NewEventKey(tcell.KeyCtrlZ, 0, tcell.ModCtrl|tcell.ModShift), viewport.KeyEvent{Key: viewport.KeyRune, Rune: 'z', Mods: viewport.ModCtrl | viewport.ModShift}, true},
		{"shift+up", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModShift), viewport.KeyEvent{Key: viewport.KeyUp, Mods: viewport.ModShift}, true},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), viewport.KeyEvent{Key: viewport.KeyEnter}, true},
		{"backspace2", tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), viewport.KeyEvent{Key: viewport.KeyBackspace}, true},
		{"backtab", tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModShift), viewport.KeyEvent{Key: viewport.KeyBacktab, Mods: viewport.ModShift}, true},
		{"f9", tcell.NewEventKey(tcell.KeyF9, 0, tcell.ModNone), viewport.KeyEvent{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := translateKey(tt.ev)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestSurfaceReservesStatusLines(t *testing.T) {
	s := newScreen(t, 40, 10)
	surf := NewSurface(s, StatusLines)
	if w, h := surf.Size(); w != 40 || h != 8 {
		t.Errorf("size = %dx%d, want 40x8", w, h)
	}
}

func TestSurfaceTextClipsAndAligns(t *testing.T) {
	s := newScreen(t, 20, 5)
	surf := NewSurface(s, 0)
	surf.Clear(color.White)

	surf.PushClip(image.Rect(2, 0, 8, 5))
	surf.Text(image.Pt(2, 0), "overflowing", viewport.TextStyle{Color: color.Black})
	surf.Text(image.Pt(8, 1), "42", viewport.TextStyle{Color: color.Black, Align: viewport.AlignRight})
	surf.PopClip()
	surf.Text(image.Pt(10, 2), "mid", viewport.TextStyle{Color: color.Black, Align: viewport.AlignCenter})
	surf.Flush()

	if got := rowText(s, 0); got != "  overfl            " {
		t.Errorf("row 0 = %q", got)
	}
	if got := rowText(s, 1); got != "      42            " {
		t.Errorf("row 1 = %q", got)
	}
	if got := rowText(s, 2); got != "         mid        " {
		t.Errorf("row 2 = %q", got)
	}
}

func TestSurfaceMeasuresWideRunes(t *testing.T) {
	surf := NewSurface(newScreen(t, 10, 3), 0)
	if got := surf.MeasureText("日本", false); got != 4 {
		t.Errorf("width = %d, want 4", got)
	}
}

func TestSurfaceFillBlendsTranslucent(t *testing.T) {
	s := newScreen(t, 10, 3)
	surf := NewSurface(s, 0)
	surf.Clear(color.White)
	surf.Text(image.Pt(0, 0), "ab", viewport.TextStyle{Color: color.Black})
	surf.FillRect(image.Rect(0, 0, 2, 1), color.NRGBA{19, 126, 67, 77})

	mainc, _, st, _ := s.GetContent(0, 0)
	if mainc != 'a' {
		t.Errorf("fill replaced text with %q", mainc)
	}
	_, bg, _ := st.Decompose()
	r, g, b := bg.RGB()
	if r == 255 && g == 255 && b == 255 {
		t.Fatal("background unchanged")
	}
	if r == 19 && g == 126 && b == 67 {
		t.Fatal("translucent fill painted opaque")
	}
	if g <= r || g <= b {
		t.Errorf("blend (%d,%d,%d) is not tinted green", r, g, b)
	}
}

func TestSurfaceVerticalLinesOnly(t *testing.T) {
	s := newScreen(t, 6, 3)
	surf := NewSurface(s, 0)
	surf.Clear(color.White)
	surf.Line(image.Pt(0, 1), image.Pt(6, 1), color.Black, 1)
	surf.Line(image.Pt(3, 0), image.Pt(3, 3), color.Black, 1)
	surf.Flush()

	for y := range 3 {
		if got := rowText(s, y); got != "   │  " {
			t.Errorf("row %d = %q", y, got)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four five six", 12)
	want := []string{" one two", " three four", " five six"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	for _, ln := range wrapText(strings.Repeat("x", 30), 10) {
		if runeLen(ln) > 10 {
			t.Errorf("line %q longer than 10", ln)
		}
	}
}

func TestTSV(t *testing.T) {
	got, err := tsv([][]string{{"a", "1"}, {"", "two words"}})
	if err != nil {
		t.Fatal(err)
	}
	if want := "a\t1\n\ttwo words\n"; got != want {
		t.Errorf("tsv = %q, want %q", got, want)
	}
}

func TestRunEditsGoToAndQuits(t *testing.T) {
	s := newScreen(t, 80, 24)
	mem := storage.NewMemory()
	w := storage.NewWriter(mem, nil)
	a, err := New(s, Options{Config: viewport.TerminalConfig(), Store: mem, Writer: w})
	if err != nil {
		t.Fatal(err)
	}

	s.InjectKey(tcell.KeyRune, '5', tcell.ModNone)
	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	s.InjectKey(tcell.KeyCtrlG, 0, tcell.ModCtrl)
	for _, r := range "c5" {
		s.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	s.InjectKey(tcell.KeyRune, '7', tcell.ModNone)
	s.InjectKey(tcell.KeyTab, 0, tcell.ModNone)
	s.InjectKey(tcell.KeyCtrlQ, 0, tcell.ModCtrl)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Ctrl+Q")
	}
	w.Close()

	ctx := context.Background()
	for key, want := range map[string]string{
		grid.CellKey(0, 0): "5",
		grid.CellKey(4, 2): "7",
	} {
		rec, found, err := mem.Get(ctx, storage.Cells, key)
		if err != nil || !found || rec.Value != want {
			t.Errorf("cell %s = %+v, %v, %v; want %q", key, rec, found, err, want)
		}
	}
	if got, _ := a.ctrl.Selection().Active(); got != (grid.CellRef{Row: 4, Col: 3}) {
		t.Errorf("active = %v, want D5", got)
	}
}

func TestGoToRejectsBadAddress(t *testing.T) {
	s := newScreen(t, 80, 24)
	mem := storage.NewMemory()
	a, err := New(s, Options{Config: viewport.TerminalConfig(), Store: mem})
	if err != nil {
		t.Fatal(err)
	}
	a.goTo("ZZZZ1")
	if !strings.Contains(a.message, "no such cell") {
		t.Errorf("message = %q", a.message)
	}
	a.goTo("b3")
	if got, _ := a.ctrl.Selection().Active(); got != (grid.CellRef{Row: 2, Col: 1}) {
		t.Errorf("active = %v, want B3", got)
	}
}

func TestSplashWaitsForLoadOnCancel(t *testing.T) {
	s := newScreen(t, 40, 10)
	ctx, cancel := context.WithCancel(context.Background())
	var finished atomic.Bool
	load := func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}
	time.AfterFunc(20*time.Millisecond, cancel)
	err := Splash(ctx, s, load)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if !finished.Load() {
		t.Error("Splash returned while load was still running")
	}
}

func TestSplashReturnsLoadError(t *testing.T) {
	s := newScreen(t, 40, 10)
	boom := errors.New("boom")
	if err := Splash(context.Background(), s, func(context.Context) error { return boom }); err != boom {
		t.Errorf("err = %v, want boom", err)
	}
}
