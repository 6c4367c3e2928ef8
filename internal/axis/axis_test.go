package axis

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"grider/internal/storage"
)

func newCols(t *testing.T) (*Manager, *storage.Memory, *storage.Writer) {
	t.Helper()
	mem := storage.NewMemory()
	w := storage.NewWriter(mem, nil)
	t.Cleanup(w.Close)
	m := New(Options{Collection: storage.ColWidths, DefaultSize: 100, Header: 50, Count: 500}, mem, w, nil)
	return m, mem, w
}

func TestOffsetsAndSizes(t *testing.T) {
	m, _, _ := newCols(t)
	m.SetSize(2, 40)
	m.SetSize(3, 250)
	m.SetSize(10, 1)
	m.SetSize(499, 30)

	testCases := []struct {
		index  int
		offset int
	}{
		{0, 50},
		{1, 150},
		{2, 250},
		{3, 290},
		{4, 540},
		{10, 1140},
		{11, 1141},
		{500, 50 + 500*100 - 60 + 150 - 99 - 70},
	}
	for _, tc := range testCases {
		if got := m.Offset(tc.index); got != tc.offset {
			t.Errorf("Offset(%d) = %d; expected %d", tc.index, got, tc.offset)
		}
	}
	if m.ContentEnd() != m.Offset(500) {
		t.Errorf("ContentEnd = %d", m.ContentEnd())
	}

	for i := 0; i < m.Count(); i++ {
		if d := m.Offset(i+1) - m.Offset(i); d != m.Size(i) {
			t.Fatalf("Offset(%d)-Offset(%d) = %d; Size = %d", i+1, i, d, m.Size(i))
		}
	}
}

func TestIndexAtInvertsOffset(t *testing.T) {
	m, _, _ := newCols(t)
	for i := 0; i < 500; i += 7 {
		m.SetSize(i, 20+(i*37)%300)
	}
	m.SetSize(3, 1)
	for i := 0; i < m.Count(); i++ {
		start, size := m.Offset(i), m.Size(i)
		if got := m.IndexAt(start); got != i {
			t.Fatalf("IndexAt(Offset(%d)) = %d", i, got)
		}
		if got := m.IndexAt(start + size - 1); got != i {
			t.Fatalf("IndexAt(end of %d) = %d", i, got)
		}
	}
	if got := m.IndexAt(49); got != -1 {
		t.Errorf("IndexAt inside header = %d; expected -1", got)
	}
	if got := m.IndexAt(m.ContentEnd() + 1000); got != 499 {
		t.Errorf("IndexAt past content = %d; expected clamp to 499", got)
	}
}

func TestIndexAtUniform(t *testing.T) {
	m := New(Options{Collection: storage.RowHeights, DefaultSize: 25, Header: 30, Count: 100000}, nil, nil, nil)
	testCases := []struct{ pos, index int }{
		{0, -1},
		{29, -1},
		{30, 0},
		{54, 0},
		{55, 1},
		{67, 1},
		{30 + 25*99999, 99999},
		{10_000_000, 99999},
	}
	for _, tc := range testCases {
		if got := m.IndexAt(tc.pos); got != tc.index {
			t.Errorf("IndexAt(%d) = %d; expected %d", tc.pos, got, tc.index)
		}
	}
}

func TestSetSizeIdempotent(t *testing.T) {
	m, mem, _ := newCols(t)
	ctx := context.Background()
	if err := storage.Wait(ctx, m.SetSize(4, 180)); err != nil {
		t.Fatal(err)
	}
	once, _ := mem.GetAll(ctx, storage.ColWidths)
	if err := storage.Wait(ctx, m.SetSize(4, 180)); err != nil {
		t.Fatal(err)
	}
	twice, _ := mem.GetAll(ctx, storage.ColWidths)
	if m.Size(4) != 180 {
		t.Errorf("Size(4) = %d", m.Size(4))
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second SetSize changed the store (-once +twice):\n%s", diff)
	}
}

func TestSetSizeBackToDefault(t *testing.T) {
	m, mem, _ := newCols(t)
	ctx := context.Background()
	m.SetSize(6, 300)
	if err := storage.Wait(ctx, m.SetSize(6, 100)); err != nil {
		t.Fatal(err)
	}
	if len(m.Overrides()) != 0 {
		t.Errorf("override kept for default size: %v", m.Overrides())
	}
	rec, found, _ := mem.Get(ctx, storage.ColWidths, "6")
	if !found || rec.Value != "100" {
		t.Errorf("persisted %+v, %v; expected the default to overwrite the old width", rec, found)
	}
}

func TestSetLiveDoesNotPersist(t *testing.T) {
	m, mem, w := newCols(t)
	m.SetLive(1, 222)
	if m.Size(1) != 222 || m.Offset(2) != 50+100+222 {
		t.Errorf("live size not applied: size %d offset %d", m.Size(1), m.Offset(2))
	}
	w.Close()
	if n := mem.Len(storage.ColWidths); n != 0 {
		t.Errorf("SetLive persisted %d records", n)
	}
}

func TestSetSizeRejectsInvalid(t *testing.T) {
	m, _, _ := newCols(t)
	if err := <-m.SetSize(1, 0); err == nil {
		t.Error("expected an error for size 0")
	}
	if m.Size(1) != 100 {
		t.Errorf("invalid size applied: %d", m.Size(1))
	}
}

type brokenStore struct{ storage.Store }

func (brokenStore) GetAll(context.Context, storage.Collection) ([]storage.Record, error) {
	return nil, errors.New("unreachable")
}

func TestLoadOverrides(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	for _, rec := range []storage.Record{
		storage.SizeRecord(3, 40),
		storage.SizeRecord(8, 100), // equal to the default
		storage.SizeRecord(900, 60),
		{ID: "x", Value: "12"},
	} {
		mem.Put(ctx, storage.ColWidths, rec)
	}
	m := New(Options{Collection: storage.ColWidths, DefaultSize: 100, Header: 50, Count: 500}, mem, nil, nil)
	before := m.Offset(10)
	if err := m.LoadOverrides(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[int]int{3: 40}, m.Overrides()); diff != "" {
		t.Errorf("overrides mismatch (-want +got):\n%s", diff)
	}
	if got := m.Offset(10); got != before-60 {
		t.Errorf("Offset(10) = %d after load; cached value not invalidated", got)
	}

	broken := New(Options{Collection: storage.RowHeights, DefaultSize: 25, Count: 10}, brokenStore{}, nil, nil)
	if err := broken.LoadOverrides(ctx); err == nil {
		t.Error("expected load error")
	}
}
