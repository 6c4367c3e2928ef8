package command

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Op says which history operation produced an Event.
type Op int

const (
	OpExecute Op = iota
	OpUndo
	OpRedo
)

func (o Op) String() string {
	switch o {
	case OpExecute:
		return "execute"
	case OpUndo:
		return "undo"
	case OpRedo:
		return "redo"
	}
	return "unknown"
}

// Event is emitted once per executed, undone or redone command, after its
// persistence has settled. Err is the store's result; the in-memory change
// stands either way.
type Event struct {
	Op      Op
	Command Command
	Err     error
}

// Observer is told about every settled command. Settled runs on a
// background goroutine.
type Observer interface {
	Settled(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Settled(e Event) { f(e) }

// Log is a linear undo/redo history. Stack bookkeeping happens at call
// time; it does not wait for persistence. Not safe for concurrent use.
type Log struct {
	log  logrus.FieldLogger
	obs  Observer
	undo []Command
	redo []Command
	wg   sync.WaitGroup
}

func New(log logrus.FieldLogger, obs Observer) *Log {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Log{log: log.WithField("component", "history"), obs: obs}
}

// Execute runs c, pushes it onto the undo stack and discards the redo
// stack.
func (l *Log) Execute(c Command) {
	ch := c.Execute()
	l.undo = append(l.undo, c)
	l.redo = l.redo[:0]
	l.settle(OpExecute, c, ch)
}

// Undo reverts the most recent command. It reports false, and logs, when
// there is nothing to undo.
func (l *Log) Undo() bool {
	if len(l.undo) == 0 {
		l.log.Info("nothing to undo")
		return false
	}
	c := l.undo[len(l.undo)-1]
	l.undo = l.undo[:len(l.undo)-1]
	ch := c.Undo()
	l.redo = append(l.redo, c)
	l.settle(OpUndo, c, ch)
	return true
}

// Redo re-applies the most recently undone command.
func (l *Log) Redo() bool {
	if len(l.redo) == 0 {
		l.log.Info("nothing to redo")
		return false
	}
	c := l.redo[len(l.redo)-1]
	l.redo = l.redo[:len(l.redo)-1]
	ch := c.Execute()
	l.undo = append(l.undo, c)
	l.settle(OpRedo, c, ch)
	return true
}

func (l *Log) CanUndo() bool { return len(l.undo) > 0 }
func (l *Log) CanRedo() bool { return len(l.redo) > 0 }

// Wait blocks until every pending command has settled.
func (l *Log) Wait() {
	l.wg.Wait()
}

func (l *Log) settle(op Op, c Command, ch <-chan error) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		err := <-ch
		if err != nil {
			l.log.WithError(err).WithFields(logrus.Fields{
				"op":      op.String(),
				"command": c.Describe(),
			}).Warn("command not persisted")
		}
		if l.obs != nil {
			l.obs.Settled(Event{Op: op, Command: c, Err: err})
		}
	}()
}
