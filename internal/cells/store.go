// Package cells caches cell values over a storage.Store.
package cells

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"grider/internal/grid"
	"grider/internal/storage"
)

// DefaultFetchLimit bounds concurrent store reads per range or prefetch.
const DefaultFetchLimit = 8

// Persister queues an asynchronous write. *storage.Writer implements it.
type Persister interface {
	Put(c storage.Collection, rec storage.Record) <-chan error
}

// Store is the in-memory view of the grid's cells. The cache is
// authoritative for the session; the backing store is filled in behind it.
// Safe for concurrent use: prefetches complete on background goroutines.
type Store struct {
	store storage.Store
	out   Persister
	log   logrus.FieldLogger
	limit int

	group singleflight.Group

	mu     sync.Mutex
	cache  map[string]string   // includes explicit "" after a clear
	misses map[string]struct{} // read from the store and found empty
	maxRow int
	maxCol int
}

func New(store storage.Store, out Persister, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		store:  store,
		out:    out,
		log:    log.WithField("component", "cells"),
		limit:  DefaultFetchLimit,
		cache:  map[string]string{},
		misses: map[string]struct{}{},
		maxRow: -1,
		maxCol: -1,
	}
}

// Cached returns the cached value without touching the store.
func (s *Store) Cached(row, col int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache[grid.CellKey(row, col)]
	return v, ok
}

// Lookup is like Cached but also resolves cells already read from the store
// and found empty. ok is false only when the store has not been asked.
func (s *Store) Lookup(row, col int) (string, bool) {
	key := grid.CellKey(row, col)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache[key]; ok {
		return v, true
	}
	_, missed := s.misses[key]
	return "", missed
}

// Value returns the cell's value, reading through to the store on a cache
// miss. Concurrent misses on one key share a single store read.
func (s *Store) Value(ctx context.Context, row, col int) (string, error) {
	key := grid.CellKey(row, col)
	s.mu.Lock()
	v, ok := s.cache[key]
	_, missed := s.misses[key]
	s.mu.Unlock()
	if ok {
		return v, nil
	}
	if missed {
		return "", nil
	}
	v, _, err := s.fetch(ctx, key)
	return v, err
}

// fetch reads key from the store. fresh reports whether a non-empty value
// was added to the cache.
func (s *Store) fetch(ctx context.Context, key string) (value string, fresh bool, err error) {
	type result struct {
		value string
		fresh bool
	}
	res, err, _ := s.group.Do(key, func() (any, error) {
		rec, found, err := s.store.Get(ctx, storage.Cells, key)
		if err != nil {
			return result{}, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		// a write that raced the read wins
		if v, ok := s.cache[key]; ok {
			return result{value: v}, nil
		}
		if !found || rec.Value == "" {
			s.misses[key] = struct{}{}
			return result{}, nil
		}
		s.cache[key] = rec.Value
		return result{value: rec.Value, fresh: true}, nil
	})
	if err != nil {
		s.log.WithError(err).WithField("id", key).Warn("cell read failed")
		return "", false, err
	}
	r := res.(result)
	return r.value, r.fresh, nil
}

// SetValue writes the cache synchronously and queues the write. An empty
// value clears the cell; the store keeps an empty record for it.
func (s *Store) SetValue(row, col int, value string) <-chan error {
	key := grid.CellKey(row, col)
	s.mu.Lock()
	s.cache[key] = value
	delete(s.misses, key)
	if value != "" {
		s.maxRow = max(s.maxRow, row)
		s.maxCol = max(s.maxCol, col)
	}
	s.mu.Unlock()
	if s.out == nil {
		return storage.Done(nil)
	}
	return s.out.Put(storage.Cells, storage.Record{ID: key, Value: value})
}

// Swap writes value like SetValue for a cell whose current value has not
// been read. The store is read off the caller's goroutine first, then the
// write is queued; before receives the old value once the write is queued,
// and done reports the write's result.
func (s *Store) Swap(row, col int, value string) (before <-chan string, done <-chan error) {
	key := grid.CellKey(row, col)
	s.mu.Lock()
	s.cache[key] = value
	delete(s.misses, key)
	if value != "" {
		s.maxRow = max(s.maxRow, row)
		s.maxCol = max(s.maxCol, col)
	}
	s.mu.Unlock()

	old := make(chan string, 1)
	res := make(chan error, 1)
	go func() {
		rec, _, err := s.store.Get(context.Background(), storage.Cells, key)
		if err != nil {
			s.log.WithError(err).WithField("id", key).Warn("cell read failed, treating as empty")
		}
		ch := storage.Done(nil)
		if s.out != nil {
			ch = s.out.Put(storage.Cells, storage.Record{ID: key, Value: value})
		}
		old <- rec.Value
		res <- <-ch
	}()
	return old, res
}

// RangeValues returns the non-empty values inside the rectangle spanned by
// start and end, in row-major order. Callers cap tall ranges.
func (s *Store) RangeValues(ctx context.Context, start, end grid.CellRef) ([]string, error) {
	start, end = grid.Normalize(start, end)
	rows, err := s.RangeGrid(ctx, grid.Range{StartRow: start.Row, EndRow: end.Row, StartCol: start.Col, EndCol: end.Col})
	if err != nil {
		return nil, err
	}
	var out []string
	for _, row := range rows {
		for _, v := range row {
			if v != "" {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// RangeGrid resolves every cell of r, empty ones included, as rows.
func (s *Store) RangeGrid(ctx context.Context, r grid.Range) ([][]string, error) {
	if r.Empty() {
		return nil, nil
	}
	width := r.EndCol - r.StartCol + 1
	out := make([][]string, r.EndRow-r.StartRow+1)
	for i := range out {
		out[i] = make([]string, width)
	}
	var g errgroup.Group
	g.SetLimit(s.limit)
	for row := r.StartRow; row <= r.EndRow; row++ {
		for col := r.StartCol; col <= r.EndCol; col++ {
			if v, ok := s.Cached(row, col); ok {
				out[row-r.StartRow][col-r.StartCol] = v
				continue
			}
			g.Go(func() error {
				v, err := s.Value(ctx, row, col)
				out[row-r.StartRow][col-r.StartCol] = v
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// VisibleFromCache returns the cached non-empty values inside r keyed by
// grid.CellKey. It never blocks on the store.
func (s *Store) VisibleFromCache(r grid.Range) map[string]string {
	out := map[string]string{}
	if r.Empty() {
		return out
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cache) < r.Cells() {
		for key, v := range s.cache {
			if v == "" {
				continue
			}
			row, col, ok := grid.ParseCellKey(key)
			if ok && r.Contains(row, col) {
				out[key] = v
			}
		}
		return out
	}
	for row := r.StartRow; row <= r.EndRow; row++ {
		for col := r.StartCol; col <= r.EndCol; col++ {
			key := grid.CellKey(row, col)
			if v := s.cache[key]; v != "" {
				out[key] = v
			}
		}
	}
	return out
}

// Prefetch fills the cache for every cell of r not yet read. hasNew reports
// whether any non-empty value arrived, meaning a redraw is worthwhile.
func (s *Store) Prefetch(ctx context.Context, r grid.Range) (hasNew bool, err error) {
	if r.Empty() {
		return false, nil
	}
	var missing []string
	s.mu.Lock()
	for row := r.StartRow; row <= r.EndRow; row++ {
		for col := r.StartCol; col <= r.EndCol; col++ {
			key := grid.CellKey(row, col)
			if _, ok := s.cache[key]; ok {
				continue
			}
			if _, ok := s.misses[key]; ok {
				continue
			}
			missing = append(missing, key)
		}
	}
	s.mu.Unlock()
	if len(missing) == 0 {
		return false, nil
	}

	var (
		g     errgroup.Group
		mu    sync.Mutex
		fresh bool
	)
	g.SetLimit(s.limit)
	for _, key := range missing {
		g.Go(func() error {
			_, ok, err := s.fetch(ctx, key)
			if ok {
				mu.Lock()
				fresh = true
				mu.Unlock()
			}
			return err
		})
	}
	err = g.Wait()
	return fresh, err
}

// MaxEdited returns the high-water marks of non-empty writes, -1 when none.
func (s *Store) MaxEdited() (row, col int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxRow, s.maxCol
}

// LoadExtent raises the high-water marks to cover every non-empty cell in
// the backing store.
func (s *Store) LoadExtent(ctx context.Context) error {
	recs, err := s.store.GetAll(ctx, storage.Cells)
	if err != nil {
		return err
	}
	maxRow, maxCol := -1, -1
	for _, rec := range recs {
		if rec.Value == "" {
			continue
		}
		row, col, ok := grid.ParseCellKey(rec.ID)
		if !ok {
			continue
		}
		maxRow = max(maxRow, row)
		maxCol = max(maxCol, col)
	}
	s.mu.Lock()
	s.maxRow = max(s.maxRow, maxRow)
	s.maxCol = max(s.maxCol, maxCol)
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{"row": maxRow, "col": maxCol}).Debug("extent loaded")
	return nil
}
