package app

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const helpText = `
 Arrows / Tab - move
 Shift+Arrows, Shift+click, drag - extend selection
 Enter / F2 / double click - edit cell
 typing - replace cell
 Delete - clear cell
 Ctrl+Z / Ctrl+Y - undo / redo
 Ctrl+C - copy selection
 Ctrl+G - go to cell
 drag header edge - resize
 PgUp/PgDn/Home/End - jump
 Ctrl+Q - quit
 `

// prompt is a one-line modal input. done runs with the text on Enter.
type prompt struct {
	label string
	buf   []rune
	pos   int
	done  func(string)
}

func (a *App) openPrompt(label, initial string, done func(string)) {
	buf := []rune(initial)
	a.prompt = &prompt{label: label, buf: buf, pos: len(buf), done: done}
	a.ctrl.RequestDraw()
}

func (a *App) promptKey(ev *tcell.EventKey) {
	p := a.prompt
	switch ev.Key() {
	case tcell.KeyEsc:
		a.prompt = nil
	case tcell.KeyEnter:
		a.prompt = nil
		p.done(strings.TrimSpace(string(p.buf)))
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if p.pos > 0 {
			p.buf = append(p.buf[:p.pos-1], p.buf[p.pos:]...)
			p.pos--
		}
	case tcell.KeyDelete:
		if p.pos < len(p.buf) {
			p.buf = append(p.buf[:p.pos], p.buf[p.pos+1:]...)
		}
	case tcell.KeyLeft:
		p.pos = max(0, p.pos-1)
	case tcell.KeyRight:
		p.pos = min(len(p.buf), p.pos+1)
	case tcell.KeyHome:
		p.pos = 0
	case tcell.KeyEnd:
		p.pos = len(p.buf)
	case tcell.KeyRune:
		if len(p.buf) < 64 {
			p.buf = append(p.buf[:p.pos], append([]rune{ev.Rune()}, p.buf[p.pos:]...)...)
			p.pos++
		}
	}
	a.ctrl.RequestDraw()
}

// ----------------------------- Drawing -----------------------------

// drawChrome runs after the grid is drawn, before the frame is shown.
func (a *App) drawChrome() {
	w, h := a.screen.Size()
	if h < StatusLines {
		return
	}
	a.drawStatus(w, h)
	if a.HelpVisible {
		a.drawHelpPopup(helpText)
	}
	if a.prompt != nil {
		a.drawPrompt()
	}
}

func (a *App) drawStatus(w, h int) {
	barStyle := tcell.StyleDefault.Background(tcell.NewRGBColor(0xf8, 0xf9, 0xfa)).Foreground(tcell.NewRGBColor(0x33, 0x33, 0x33))
	addrStyle := barStyle.Bold(true)
	statusStyle := tcell.StyleDefault.Background(tcell.ColorGray).Foreground(tcell.ColorWhite)

	// formula line: address and raw value of the active cell
	y := h - StatusLines
	addr := ""
	if a.hasCell {
		addr = a.cellRef.String()
	}
	printTextFixedWidth(a.screen, 0, y, fmt.Sprintf(" %-6s", addr), addrStyle, 8)
	value := a.cellValue
	if text, _ := a.ctrl.EditText(); isEditing(a) {
		value = text
	}
	if !a.hasCell {
		value = ""
	}
	printTextFixedWidth(a.screen, 8, y, "│ "+value, barStyle, w-8)

	// status line
	mode := "READY"
	if isEditing(a) {
		mode = "EDIT"
	}
	left := fmt.Sprintf(" %s  %s", mode, a.selText)
	if a.hasCell {
		cols, rows := a.ctrl.Cols(), a.ctrl.Rows()
		left += fmt.Sprintf("  w=%d h=%d", cols.Size(a.cellRef.Col), rows.Size(a.cellRef.Row))
	}
	if a.hasStats && a.stats.Count > 0 {
		left += "  " + a.stats.String()
	}
	if a.message != "" {
		left += "  " + a.message
	}
	right := "F1 help "
	printTextFixedWidth(a.screen, 0, y+1, left, statusStyle, w)
	if rw := runewidth.StringWidth(right); runewidth.StringWidth(left)+rw < w {
		printTextFixedWidth(a.screen, w-rw, y+1, right, statusStyle, rw)
	}
}

func isEditing(a *App) bool {
	_, ok := a.ctrl.Editing()
	return ok
}

func (a *App) drawPrompt() {
	s := a.screen
	p := a.prompt
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorReset)

	w, h := s.Size()
	contentW := min(max(30, len(p.label)+len(p.buf)+2), w-4)
	boxW := contentW + 4
	boxH := 3
	left := (w - boxW) / 2
	top := (h - boxH) / 2
	drawBox(s, left, top, boxW, boxH, style)

	x := left + 2
	y := top + 1
	printTextFixedWidth(s, x, y, p.label, style, len(p.label))
	x += len(p.label) + 1

	maxField := max(1, boxW-5-len(p.label))
	start := 0
	if p.pos > maxField {
		start = p.pos - maxField
	}
	end := min(len(p.buf), start+maxField)
	printTextFixedWidth(s, x, y, string(p.buf[start:end]), style, maxField)
	s.ShowCursor(x+p.pos-start, y)
}

func (a *App) drawHelpPopup(help string) {
	s := a.screen
	w, h := s.Size()
	if w < 10 || h < 5 {
		return
	}

	padding := 2
	maxPW := w - 6
	maxPH := h - 4

	innerW := min(maxPW-padding*2, 56)
	innerW = max(innerW, min(30, maxPW-padding*2))

	lines := wrapText(help, innerW)
	if limit := maxPH - padding*2; limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	innerH := max(3, len(lines))

	pw := innerW + padding*2
	ph := innerH + padding*2
	left := (w - pw) / 2
	top := (h - ph) / 2

	style := tcell.StyleDefault.Background(tcell.ColorDefault).Foreground(tcell.ColorWhite)
	drawBox(s, left, top, pw, ph, style)
	vOffset := (ph - padding*2 - innerH) / 2
	for i, ln := range lines {
		printTextFixedWidth(s, left+padding, top+padding+vOffset+i, ln, style, innerW)
	}
}

func drawBox(s tcell.Screen, left, top, bw, bh int, style tcell.Style) {
	for y := top; y < top+bh; y++ {
		for x := left; x < left+bw; x++ {
			s.SetContent(x, y, ' ', nil, style)
		}
	}
	for x := left + 1; x < left+bw-1; x++ {
		s.SetContent(x, top, tcell.RuneHLine, nil, style)
		s.SetContent(x, top+bh-1, tcell.RuneHLine, nil, style)
	}
	for y := top + 1; y < top+bh-1; y++ {
		s.SetContent(left, y, tcell.RuneVLine, nil, style)
		s.SetContent(left+bw-1, y, tcell.RuneVLine, nil, style)
	}
	s.SetContent(left, top, tcell.RuneULCorner, nil, style)
	s.SetContent(left+bw-1, top, tcell.RuneURCorner, nil, style)
	s.SetContent(left, top+bh-1, tcell.RuneLLCorner, nil, style)
	s.SetContent(left+bw-1, top+bh-1, tcell.RuneLRCorner, nil, style)
}

// ----------------------------- Helpers -----------------------------

// printTextFixedWidth writes str into exactly width columns, padding with
// blanks and cutting wide runes that would straddle the edge.
func printTextFixedWidth(s tcell.Screen, x, y int, str string, style tcell.Style, width int) {
	col := 0
	for _, r := range str {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if col+rw > width {
			break
		}
		s.SetContent(x+col, y, r, nil, style)
		col += rw
	}
	for ; col < width; col++ {
		s.SetContent(x+col, y, ' ', nil, style)
	}
}

func wrapText(s string, max int) []string {
	if max <= 2 {
		return []string{s}
	}

	var result []string
	paragraphs := strings.Split(strings.Trim(s, "\n"), "\n")

	for _, para := range paragraphs {
		words := strings.Fields(para)
		if len(words) == 0 {
			result = append(result, "")
			continue
		}

		cur := " "
		for _, w := range words {
			if runeLen(w) > max-1 {
				for _, c := range chunkString(w, max-1) {
					if runeLen(cur) > 1 {
						result = append(result, cur)
					}
					cur = " " + c
				}
				continue
			}
			switch {
			case runeLen(cur) == 1:
				cur += w
			case runeLen(cur)+1+runeLen(w) <= max:
				cur += " " + w
			default:
				result = append(result, cur)
				cur = " " + w
			}
		}
		result = append(result, cur)
	}
	return result
}

func runeLen(s string) int {
	return len([]rune(s))
}

func chunkString(s string, size int) []string {
	r := []rune(s)
	var out []string
	for i := 0; i < len(r); i += size {
		out = append(out, string(r[i:min(i+size, len(r))]))
	}
	return out
}
