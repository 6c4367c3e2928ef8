package viewport

// Mods is a set of modifier keys held during an event.
type Mods uint8

const (
	ModShift Mods = 1 << iota
	ModCtrl
	ModAlt
)

func (m Mods) Has(o Mods) bool { return m&o != 0 }

type Key int

const (
	KeyRune Key = iota
	KeyEnter
	KeyTab
	KeyBacktab
	KeyEsc
	KeyBackspace
	KeyDelete
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyPgUp
	KeyPgDn
	KeyHome
	KeyEnd
	KeyF2
)

// KeyEvent is a key press. Rune is set for KeyRune. Control chords arrive
// as KeyRune with ModCtrl, e.g. Ctrl+Z is {KeyRune, 'z', ModCtrl}.
type KeyEvent struct {
	Key  Key
	Rune rune
	Mods Mods
}

// Scheduler runs functions on the event loop that owns the Controller.
// Post must be safe to call from any goroutine and must not run fn inline.
type Scheduler interface {
	Post(fn func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(fn func())

func (f SchedulerFunc) Post(fn func()) { f(fn) }
