package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// failingStore rejects every Put and records the order of attempts.
type failingStore struct {
	*Memory
	mu    sync.Mutex
	seen  []string
	block chan struct{}
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) Put(ctx context.Context, c Collection, rec Record) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.seen = append(f.seen, rec.ID)
	f.mu.Unlock()
	return errDiskFull
}

func TestWriterLastWriteWins(t *testing.T) {
	mem := NewMemory()
	w := NewWriter(mem, nil)
	var last <-chan error
	for _, v := range []string{"a", "b", "c", "d"} {
		last = w.Put(Cells, Record{ID: "1:1", Value: v})
	}
	if err := Wait(context.Background(), last); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec, _, _ := mem.Get(context.Background(), Cells, "1:1")
	if rec.Value != "d" {
		t.Errorf("got %q; expected the last queued value", rec.Value)
	}
	w.Close()
}

func TestWriterCloseDrains(t *testing.T) {
	mem := NewMemory()
	w := NewWriter(mem, nil)
	for i := 0; i < 50; i++ {
		w.Put(ColWidths, SizeRecord(i, 30+i))
	}
	w.Close()
	if n := mem.Len(ColWidths); n != 50 {
		t.Errorf("after Close %d records persisted; expected 50", n)
	}
	if err := <-w.Put(ColWidths, SizeRecord(1, 10)); !errors.Is(err, ErrClosed) {
		t.Errorf("Put after Close = %v", err)
	}
	// a second Close must not hang
	w.Close()
}

func TestWriterReportsFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	st := &failingStore{Memory: NewMemory(), block: make(chan struct{})}
	w := NewWriter(st, logger)
	defer w.Close()

	first := w.Put(Cells, Record{ID: "0:0", Value: "x"})
	second := w.Put(Cells, Record{ID: "0:1", Value: "y"})
	close(st.block)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Wait(ctx, first); !errors.Is(err, errDiskFull) {
		t.Errorf("first = %v", err)
	}
	if err := Wait(ctx, second); !errors.Is(err, errDiskFull) {
		t.Errorf("second = %v", err)
	}

	st.mu.Lock()
	order := append([]string(nil), st.seen...)
	st.mu.Unlock()
	if len(order) != 2 || order[0] != "0:0" || order[1] != "0:1" {
		t.Errorf("writes ran as %v; expected FIFO", order)
	}

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries; expected 2", len(entries))
	}
	if entries[0].Level != logrus.WarnLevel || entries[0].Data["id"] != "0:0" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

func TestWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, make(chan error)); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v", err)
	}
	if err := Wait(context.Background(), Done(nil)); err != nil {
		t.Errorf("Wait(Done(nil)) = %v", err)
	}
}
