package app

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
)

const splashStep = 150 * time.Millisecond

// Splash reveals the title letter by letter while load runs, and returns
// load's result once both are done. When ctx ends first it still waits for
// load to return.
func Splash(ctx context.Context, s tcell.Screen, load func(context.Context) error) error {
	text := []struct {
		char  rune
		color tcell.Color
	}{
		{'G', tcell.ColorWhite},
		{'R', tcell.ColorWhite},
		{'I', tcell.ColorYellow},
		{':', tcell.ColorYellow},
		{'D', tcell.ColorYellow},
		{'E', tcell.ColorWhite},
		{'R', tcell.ColorWhite},
	}

	done := make(chan error, 1)
	go func() { done <- load(ctx) }()

	var (
		err    error
		loaded bool
	)
	tick := time.NewTicker(splashStep)
	defer tick.Stop()
	for reveal := 1; reveal <= len(text) || !loaded; reveal++ {
		width, height := s.Size()
		s.Clear()

		startX := (width - len(text)) / 2
		y := height / 2
		for i := 0; i < min(reveal, len(text)); i++ {
			style := tcell.StyleDefault.Foreground(text[i].color).Bold(true)
			s.SetContent(startX+i, y, text[i].char, nil, style)
		}

		hint := "loading..."
		if loaded {
			hint = "ready"
		}
		printTextFixedWidth(s, (width-len(hint))/2, y+2, hint, tcell.StyleDefault.Foreground(tcell.ColorYellow), len(hint))
		s.Show()

		select {
		case err = <-done:
			loaded = true
			if err != nil {
				return err
			}
			<-tick.C
		case <-tick.C:
		case <-ctx.Done():
			if !loaded {
				// load must not outlive Splash
				<-done
			}
			return ctx.Err()
		}
	}
	return err
}
