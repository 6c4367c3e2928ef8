package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "grid.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": db,
	}
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
}

func TestStoreGetPut(t *testing.T) {
	ctx := context.Background()
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, found, err := st.Get(ctx, Cells, "0:0"); err != nil || found {
				t.Fatalf("Get on empty store = found %v, err %v", found, err)
			}
			if err := st.Put(ctx, Cells, Record{ID: "0:0", Value: "hello"}); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := st.Put(ctx, Cells, Record{ID: "0:0", Value: "world"}); err != nil {
				t.Fatalf("Put: %v", err)
			}
			rec, found, err := st.Get(ctx, Cells, "0:0")
			if err != nil || !found {
				t.Fatalf("Get = found %v, err %v", found, err)
			}
			if rec.Value != "world" {
				t.Errorf("got %q; expected last write to win", rec.Value)
			}

			if err := st.Put(ctx, ColWidths, SizeRecord(3, 140)); err != nil {
				t.Fatalf("Put width: %v", err)
			}
			if err := st.Put(ctx, RowHeights, SizeRecord(7, 40)); err != nil {
				t.Fatalf("Put height: %v", err)
			}
			all, err := st.GetAll(ctx, ColWidths)
			if err != nil {
				t.Fatalf("GetAll: %v", err)
			}
			if diff := cmp.Diff([]Record{{ID: "3", Value: "140"}}, all); diff != "" {
				t.Errorf("GetAll(ColWidths) mismatch (-want +got):\n%s", diff)
			}
			idx, size, err := all[0].Size()
			if err != nil || idx != 3 || size != 140 {
				t.Errorf("Size() = (%d, %d, %v)", idx, size, err)
			}
		})
	}
}

func TestStoreSizeRecordIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				if err := st.Put(ctx, RowHeights, SizeRecord(2, 60)); err != nil {
					t.Fatalf("Put: %v", err)
				}
			}
			all, err := st.GetAll(ctx, RowHeights)
			if err != nil {
				t.Fatalf("GetAll: %v", err)
			}
			if diff := cmp.Diff([]Record{SizeRecord(2, 60)}, all); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := st.Put(ctx, Collection("sheets"), Record{ID: "x"})
			if !errors.Is(err, ErrUnknownCollection) {
				t.Errorf("Put to unknown collection = %v", err)
			}
			var serr *Error
			if !errors.As(err, &serr) || serr.Op != "put" {
				t.Errorf("expected *Error with op put, got %#v", err)
			}
			if name != "sqlite" {
				return
			}
			if err := st.Put(ctx, ColWidths, Record{ID: "-1", Value: "10"}); !errors.Is(err, ErrBadRecord) {
				t.Errorf("negative index = %v", err)
			}
		})
	}
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	m.Close()
	if err := m.Put(context.Background(), Cells, Record{ID: "1:1", Value: "a"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Put after Close = %v", err)
	}
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "grid.db")
	db, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Put(ctx, Cells, Record{ID: "4:2", Value: "kept"}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	rec, found, err := db.Get(ctx, Cells, "4:2")
	if err != nil || !found || rec.Value != "kept" {
		t.Errorf("after reopen got %+v, %v, %v", rec, found, err)
	}
}
