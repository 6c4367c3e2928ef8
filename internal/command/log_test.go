package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"grider/internal/axis"
	"grider/internal/cells"
	"grider/internal/storage"
)

type fixture struct {
	mem    *storage.Memory
	writer *storage.Writer
	cells  *cells.Store
	cols   *axis.Manager
	rows   *axis.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storage.NewMemory()
	w := storage.NewWriter(mem, nil)
	t.Cleanup(w.Close)
	return &fixture{
		mem:    mem,
		writer: w,
		cells:  cells.New(mem, w, nil),
		cols:   axis.New(axis.Options{Collection: storage.ColWidths, DefaultSize: 100, Header: 50, Count: 500}, mem, w, nil),
		rows:   axis.New(axis.Options{Collection: storage.RowHeights, DefaultSize: 25, Header: 30, Count: 1000}, mem, w, nil),
	}
}

type snapshot struct {
	A1, B2 string
	ColC   int
	Row4   int
}

func (f *fixture) snapshot() snapshot {
	a1, _ := f.cells.Cached(0, 0)
	b2, _ := f.cells.Cached(1, 1)
	return snapshot{A1: a1, B2: b2, ColC: f.cols.Size(2), Row4: f.rows.Size(3)}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Settled(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Op
	for _, e := range r.events {
		out = append(out, e.Op)
	}
	return out
}

func TestUndoRedoRoundTrip(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	l := New(nil, rec)

	l.Execute(NewEditCell(f.cells, 0, 0, "", "10"))
	l.Execute(ResizeColumn(f.cols, 2, 100, 180))
	l.Execute(ResizeRow(f.rows, 3, 25, 60))
	l.Execute(NewEditCell(f.cells, 1, 1, "", "hi"))
	after := f.snapshot()
	want := snapshot{A1: "10", B2: "hi", ColC: 180, Row4: 60}
	if diff := cmp.Diff(want, after); diff != "" {
		t.Fatalf("after execute (-want +got):\n%s", diff)
	}

	for i := 0; i < 4; i++ {
		if !l.Undo() {
			t.Fatalf("undo %d reported nothing to undo", i)
		}
	}
	if diff := cmp.Diff(snapshot{ColC: 100, Row4: 25}, f.snapshot()); diff != "" {
		t.Errorf("after undo (-want +got):\n%s", diff)
	}
	for i := 0; i < 4; i++ {
		l.Redo()
	}
	if diff := cmp.Diff(after, f.snapshot()); diff != "" {
		t.Errorf("after redo (-want +got):\n%s", diff)
	}

	l.Wait()
	f.writer.Close()
	stored, _, _ := f.mem.Get(context.Background(), storage.ColWidths, "2")
	if stored.Value != "180" {
		t.Errorf("persisted width %q", stored.Value)
	}
	if n := len(rec.ops()); n != 12 {
		t.Errorf("observer saw %d events; expected one per operation", n)
	}
}

func TestExecuteClearsRedo(t *testing.T) {
	f := newFixture(t)
	l := New(nil, nil)
	l.Execute(NewEditCell(f.cells, 0, 0, "", "a"))
	l.Undo()
	if !l.CanRedo() {
		t.Fatal("expected redo after undo")
	}
	l.Execute(NewEditCell(f.cells, 0, 0, "", "b"))
	if l.CanRedo() {
		t.Error("a fresh command must discard the redo branch")
	}
	if l.Redo() {
		t.Error("Redo succeeded on an empty stack")
	}
	if v, _ := f.cells.Cached(0, 0); v != "b" {
		t.Errorf("A1 = %q", v)
	}
}

func TestNothingToUndoIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	l := New(logger, nil)
	if l.Undo() || l.Redo() {
		t.Fatal("empty history reported work")
	}
	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries", len(entries))
	}
	if entries[0].Message != "nothing to undo" || entries[1].Message != "nothing to redo" {
		t.Errorf("messages %q, %q", entries[0].Message, entries[1].Message)
	}
	if entries[0].Level != logrus.InfoLevel {
		t.Errorf("level %v", entries[0].Level)
	}
}

type failingSetter struct{ err error }

func (f failingSetter) SetValue(int, int, string) <-chan error { return storage.Done(f.err) }

func TestFailedPersistIsReported(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rec := &recorder{}
	l := New(logger, rec)
	boom := errors.New("disk")
	l.Execute(NewEditCell(failingSetter{boom}, 4, 0, "", "x"))
	l.Wait()

	if !l.CanUndo() {
		t.Error("a command whose write failed must still be undoable")
	}
	if len(rec.events) != 1 || !errors.Is(rec.events[0].Err, boom) {
		t.Errorf("events %+v", rec.events)
	}
	last := hook.LastEntry()
	if last == nil || last.Level != logrus.WarnLevel || last.Data["command"] != "edit A5" {
		t.Errorf("unexpected log entry %+v", last)
	}
}

func TestEventOrderFollowsOperations(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	l := New(nil, rec)
	l.Execute(NewEditCell(f.cells, 0, 0, "", "1"))
	l.Wait()
	l.Undo()
	l.Wait()
	l.Redo()
	l.Wait()
	if diff := cmp.Diff([]Op{OpExecute, OpUndo, OpRedo}, rec.ops()); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestUnreadEditUndoRestoresStoredValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.mem.Put(ctx, storage.Cells, storage.Record{ID: "1:1", Value: "old"}); err != nil {
		t.Fatal(err)
	}
	l := New(nil, nil)

	l.Execute(NewUnreadEdit(f.cells, 1, 1, "new"))
	if got := f.snapshot().B2; got != "new" {
		t.Fatalf("B2 = %q after execute, want new", got)
	}
	l.Undo()
	if got := f.snapshot().B2; got != "old" {
		t.Errorf("B2 = %q after undo, want old", got)
	}
	l.Redo()
	l.Wait()
	rec, _, err := f.mem.Get(ctx, storage.Cells, "1:1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Value != "new" {
		t.Errorf("stored B2 = %q after redo, want new", rec.Value)
	}
}
