package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"image"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"

	"grider/internal/grid"
	"grider/internal/viewport"
)

// ----------------------------- Events / Input -----------------------------

func (a *App) HandleKeyEvent(ev *tcell.EventKey) {
	if a.prompt != nil {
		a.promptKey(ev)
		return
	}
	// help popup swallows keys until it is closed
	if a.HelpVisible {
		if ev.Key() == tcell.KeyEsc || ev.Key() == tcell.KeyF1 || ev.Rune() == '?' {
			a.HelpVisible = false
			a.ctrl.RequestDraw()
		}
		return
	}

	_, editing := a.ctrl.Editing()
	switch ev.Key() {
	case tcell.KeyCtrlQ:
		a.quit = true
		return
	case tcell.KeyF1:
		a.HelpVisible = true
		a.ctrl.RequestDraw()
		return
	case tcell.KeyCtrlG:
		if !editing {
			a.openPrompt("Go to:", "", a.goTo)
			return
		}
	case tcell.KeyCtrlC:
		if !editing {
			a.copySelection()
			return
		}
	}

	if k, ok := translateKey(ev); ok {
		a.message = ""
		a.ctrl.Key(k)
	}
}

// translateKey maps a tcell key to the controller's key model.
func translateKey(ev *tcell.EventKey) (viewport.KeyEvent, bool) {
	var mods viewport.Mods
	m := ev.Modifiers()
	if m&tcell.ModShift != 0 {
		mods |= viewport.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		mods |= viewport.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		mods |= viewport.ModAlt
	}

	keys := map[tcell.Key]viewport.Key{
		tcell.KeyEnter:      viewport.KeyEnter,
		tcell.KeyTab:        viewport.KeyTab,
		tcell.KeyBacktab:    viewport.KeyBacktab,
		tcell.KeyEsc:        viewport.KeyEsc,
		tcell.KeyBackspace:  viewport.KeyBackspace,
		tcell.KeyBackspace2: viewport.KeyBackspace,
		tcell.KeyDelete:     viewport.KeyDelete,
		tcell.KeyUp:         viewport.KeyUp,
		tcell.KeyDown:       viewport.KeyDown,
		tcell.KeyLeft:       viewport.KeyLeft,
		tcell.KeyRight:      viewport.KeyRight,
		tcell.KeyPgUp:       viewport.KeyPgUp,
		tcell.KeyPgDn:       viewport.KeyPgDn,
		tcell.KeyHome:       viewport.KeyHome,
		tcell.KeyEnd:        viewport.KeyEnd,
		tcell.KeyF2:         viewport.KeyF2,
	}
	k := ev.Key()
	if vk, ok := keys[k]; ok {
		if vk == viewport.KeyBackspace || vk == viewport.KeyEnter || vk == viewport.KeyTab {
			// these share codes with Ctrl+H, Ctrl+M and Ctrl+I
			mods &^= viewport.ModCtrl
		}
		return viewport.KeyEvent{Key: vk, Mods: mods}, true
	}
	switch {
	case k == tcell.KeyRune:
		return viewport.KeyEvent{Key: viewport.KeyRune, Rune: ev.Rune(), Mods: mods}, true
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		r := 'a' + rune(k-tcell.KeyCtrlA)
		return viewport.KeyEvent{Key: viewport.KeyRune, Rune: r, Mods: mods | viewport.ModCtrl}, true
	}
	return viewport.KeyEvent{}, false
}

// HandleMouseEvent turns tcell's button-state reports into press, drag and
// release transitions. Two presses on one cell within doubleClickTime make
// a double click.
func (a *App) HandleMouseEvent(ev *tcell.EventMouse) {
	if a.prompt != nil || a.HelpVisible {
		return
	}
	x, y := ev.Position()
	btn := ev.Buttons()
	var mods viewport.Mods
	if ev.Modifiers()&tcell.ModShift != 0 {
		mods |= viewport.ModShift
	}

	switch {
	case btn&tcell.WheelUp != 0:
		a.ctrl.Wheel(0, -3*a.ctrl.Config().DefaultRowHeight)
		return
	case btn&tcell.WheelDown != 0:
		a.ctrl.Wheel(0, 3*a.ctrl.Config().DefaultRowHeight)
		return
	case btn&tcell.WheelLeft != 0:
		a.ctrl.Wheel(-a.ctrl.Config().DefaultColWidth, 0)
		return
	case btn&tcell.WheelRight != 0:
		a.ctrl.Wheel(a.ctrl.Config().DefaultColWidth, 0)
		return
	}

	down := btn&tcell.Button1 != 0
	was := a.buttons&tcell.Button1 != 0
	a.buttons = btn
	switch {
	case down && !was:
		_, h := a.surf.Size()
		if y >= h {
			a.buttons = 0
			return
		}
		now := time.Now()
		p := image.Pt(x, y)
		if now.Sub(a.lastClick) < doubleClickTime && p == a.clickPos {
			a.lastClick = time.Time{}
			a.ctrl.DoubleClick(x, y)
			a.buttons = 0
			return
		}
		a.lastClick, a.clickPos = now, p
		a.message = ""
		a.ctrl.PointerDown(x, y, mods)
	case down && was:
		a.ctrl.PointerMove(x, y)
	case !down && was:
		a.ctrl.PointerUp(x, y)
	}
}

// ----------------------------- Commands -----------------------------

func (a *App) goTo(text string) {
	cfg := a.ctrl.Config()
	ref, ok := grid.ParseAddress(text, cfg.TotalRows, cfg.TotalCols)
	if !ok {
		a.flash("no such cell: " + text)
		return
	}
	a.ctrl.GoTo(ref)
}

// copySelection puts the selected cells on the clipboard as tab-separated
// rows.
func (a *App) copySelection() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := a.ctrl.CopyRange(ctx)
	if err != nil {
		a.log.WithError(err).Warn("copy failed")
		a.flash("copy failed: " + err.Error())
		return
	}
	if len(rows) == 0 {
		return
	}
	text, err := tsv(rows)
	if err == nil {
		err = clipboard.WriteAll(text)
	}
	if err != nil {
		a.log.WithError(err).Warn("clipboard unavailable")
		a.flash("clipboard unavailable")
		return
	}
	a.flash("copied " + a.selText)
}

func tsv(rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}
