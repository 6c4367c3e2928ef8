// Package app hosts the grid in a terminal: it owns the tcell screen and
// event loop and adds the chrome around the grid (status line, help, go-to
// prompt, clipboard).
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"grider/internal/cells"
	"grider/internal/grid"
	"grider/internal/selection"
	"grider/internal/storage"
	"grider/internal/viewport"
)

// StatusLines is the number of screen rows below the grid.
const StatusLines = 2

const doubleClickTime = 400 * time.Millisecond

type Options struct {
	Config viewport.Config
	Store  storage.Store
	Writer *storage.Writer
	Log    logrus.FieldLogger
	// Splash animates the title while the grid loads.
	Splash bool
}

type App struct {
	screen tcell.Screen
	surf   *Surface
	ctrl   *viewport.Controller
	log    logrus.FieldLogger
	splash bool

	// chrome
	cellRef   grid.CellRef
	cellValue string
	hasCell   bool
	selText   string
	stats     cells.Stats
	hasStats  bool
	message   string

	HelpVisible bool
	prompt      *prompt
	quit        bool

	// mouse
	buttons   tcell.ButtonMask
	lastClick time.Time
	clickPos  image.Point
}

func New(s tcell.Screen, opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	a := &App{
		screen: s,
		surf:   NewSurface(s, StatusLines),
		log:    log.WithField("component", "app"),
		splash: opts.Splash,
	}
	d := viewport.Deps{
		Store:     opts.Store,
		Surface:   a.surf,
		Scheduler: screenScheduler{s},
		Log:       log,
		Status:    a,
		Formula:   a,
	}
	if opts.Writer != nil {
		d.Writer = opts.Writer
	}
	ctrl, err := viewport.New(opts.Config, d)
	if err != nil {
		return nil, err
	}
	a.ctrl = ctrl
	a.surf.OnFlush(a.drawChrome)
	return a, nil
}

func (a *App) Controller() *viewport.Controller { return a.ctrl }

// screenScheduler posts closures into the tcell event queue. The loop runs
// them when it reads the interrupt.
type screenScheduler struct {
	s tcell.Screen
}

func (p screenScheduler) Post(fn func()) {
	ev := tcell.NewEventInterrupt(fn)
	if err := p.s.PostEvent(ev); err != nil {
		// queue full: wait off the loop rather than drop
		go p.s.PostEventWait(ev)
	}
}

// Run loads the grid and serves events until the user quits or ctx ends.
// The controller is closed on return, after pending commands settle.
func (a *App) Run(ctx context.Context) error {
	defer a.ctrl.Close()

	load := func(ctx context.Context) error { return a.ctrl.Load(ctx) }
	var err error
	if a.splash {
		err = Splash(ctx, a.screen, load)
	} else {
		err = load(ctx)
	}
	if err != nil {
		return fmt.Errorf("load grid: %w", err)
	}

	a.ctrl.GoTo(grid.CellRef{})
	a.ctrl.Resize()
	stop := context.AfterFunc(ctx, func() {
		screenScheduler{a.screen}.Post(func() { a.quit = true })
	})
	defer stop()

	for !a.quit {
		ev := a.screen.PollEvent()
		if ev == nil {
			return errors.New("screen closed")
		}
		a.handle(ev)
	}
	a.log.Info("quit")
	return nil
}

func (a *App) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventInterrupt:
		if fn, ok := ev.Data().(func()); ok {
			fn()
		}
	case *tcell.EventResize:
		a.screen.Sync()
		a.ctrl.Resize()
	case *tcell.EventKey:
		a.HandleKeyEvent(ev)
	case *tcell.EventMouse:
		a.HandleMouseEvent(ev)
	}
}

// ----------------------------- Collaborators -----------------------------

func (a *App) ShowStats(sel selection.Selection, st cells.Stats) {
	a.selText, a.stats, a.hasStats = sel.String(), st, true
	a.ctrl.RequestDraw()
}

func (a *App) ClearStats() {
	a.selText, a.hasStats = "", false
	a.ctrl.RequestDraw()
}

func (a *App) ShowCell(ref grid.CellRef, value string) {
	a.cellRef, a.cellValue, a.hasCell = ref, value, true
	a.ctrl.RequestDraw()
}

func (a *App) ClearCell() {
	a.hasCell = false
	a.ctrl.RequestDraw()
}

// flash shows msg on the status line until the next one.
func (a *App) flash(msg string) {
	a.message = msg
	a.ctrl.RequestDraw()
}
