// Package axis maps row or column indices to sizes and pixel offsets.
//
// An axis has a uniform default size and a sparse set of per-index
// overrides. Offsets are derived from the default plus the accumulated
// drift of the overrides before the index, so lookups cost O(log n) in the
// number of overrides rather than in the index.
package axis

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"grider/internal/storage"
)

// Persister queues an asynchronous write. *storage.Writer implements it.
type Persister interface {
	Put(c storage.Collection, rec storage.Record) <-chan error
}

// Manager is one axis. It is not safe for concurrent use; the owning event
// loop is the only caller.
type Manager struct {
	coll   storage.Collection
	def    int
	header int
	count  int

	overrides map[int]int
	keys      []int // sorted override indices
	drift     []int // drift[k] = sum of (size - def) over keys[:k]
	offsets   map[int]int

	store storage.Store
	out   Persister
	log   logrus.FieldLogger
}

// Options configures a Manager.
type Options struct {
	Collection  storage.Collection // ColWidths or RowHeights
	DefaultSize int
	Header      int // size of the header band before index 0
	Count       int // number of indices on the axis
}

func New(opts Options, store storage.Store, out Persister, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Manager{
		coll:      opts.Collection,
		def:       opts.DefaultSize,
		header:    opts.Header,
		count:     opts.Count,
		overrides: map[int]int{},
		offsets:   map[int]int{},
		store:     store,
		out:       out,
		log:       log.WithField("axis", string(opts.Collection)),
	}
	m.rebuild()
	return m
}

func (m *Manager) Count() int       { return m.count }
func (m *Manager) DefaultSize() int { return m.def }
func (m *Manager) Header() int      { return m.header }

// Size returns the override for i, or the default size. i is not bounds
// checked.
func (m *Manager) Size(i int) int {
	if s, ok := m.overrides[i]; ok {
		return s
	}
	return m.def
}

// SetSize records size for index i and queues it for persistence. The
// in-memory value is updated before SetSize returns; the channel reports the
// store's result.
func (m *Manager) SetSize(i, size int) <-chan error {
	if size <= 0 || i < 0 {
		return storage.Done(fmt.Errorf("axis %s: invalid size %d at %d", m.coll, size, i))
	}
	m.SetLive(i, size)
	if m.out == nil {
		return storage.Done(nil)
	}
	return m.out.Put(m.coll, storage.SizeRecord(i, size))
}

// SetLive changes the size of i without persisting it. Used while a resize
// drag is in progress.
func (m *Manager) SetLive(i, size int) {
	if size <= 0 || i < 0 {
		return
	}
	cur, had := m.overrides[i]
	switch {
	case size == m.def && !had:
		return
	case size == m.def:
		delete(m.overrides, i)
	case had && cur == size:
		return
	default:
		m.overrides[i] = size
	}
	m.rebuild()
}

// Offset returns the leading edge of index i, header included.
// Offset(Count()) is the end of the content.
func (m *Manager) Offset(i int) int {
	if off, ok := m.offsets[i]; ok {
		return off
	}
	k := sort.SearchInts(m.keys, i) // overrides strictly before i
	off := m.header + i*m.def + m.drift[k]
	m.offsets[i] = off
	return off
}

// ContentEnd is the trailing edge of the last index.
func (m *Manager) ContentEnd() int {
	return m.Offset(m.count)
}

// IndexAt returns the index whose span contains pos. Positions inside the
// header band give -1; positions past the content clamp to the last index.
func (m *Manager) IndexAt(pos int) int {
	if pos < m.header || m.count == 0 {
		return -1
	}
	if m.def > 0 && len(m.keys) == 0 {
		return min((pos-m.header)/m.def, m.count-1)
	}
	// largest i in [0, count) with Offset(i) <= pos
	i := sort.Search(m.count, func(i int) bool { return m.Offset(i) > pos })
	return max(i-1, 0)
}

// Overrides returns a copy of the current override map.
func (m *Manager) Overrides() map[int]int {
	out := make(map[int]int, len(m.overrides))
	for k, v := range m.overrides {
		out[k] = v
	}
	return out
}

// ReadOverrides scans the persisted sizes without touching the manager, so
// it may run off the event loop. Malformed records are skipped.
func (m *Manager) ReadOverrides(ctx context.Context) (map[int]int, error) {
	if m.store == nil {
		return map[int]int{}, nil
	}
	recs, err := m.store.GetAll(ctx, m.coll)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(recs))
	for _, rec := range recs {
		idx, size, err := rec.Size()
		if err != nil {
			m.log.WithField("id", rec.ID).Warn("skipping malformed size record")
			continue
		}
		if idx >= m.count {
			continue
		}
		out[idx] = size
	}
	return out, nil
}

// Replace swaps in a new override map, dropping entries equal to the
// default.
func (m *Manager) Replace(overrides map[int]int) {
	m.overrides = make(map[int]int, len(overrides))
	for i, s := range overrides {
		if s > 0 && s != m.def {
			m.overrides[i] = s
		}
	}
	m.rebuild()
	m.log.WithField("overrides", len(m.overrides)).Debug("overrides loaded")
}

// LoadOverrides reads and applies the persisted sizes in one step.
func (m *Manager) LoadOverrides(ctx context.Context) error {
	ov, err := m.ReadOverrides(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", m.coll, err)
	}
	m.Replace(ov)
	return nil
}

func (m *Manager) rebuild() {
	m.keys = m.keys[:0]
	for i := range m.overrides {
		m.keys = append(m.keys, i)
	}
	sort.Ints(m.keys)
	m.drift = make([]int, len(m.keys)+1)
	for k, i := range m.keys {
		m.drift[k+1] = m.drift[k] + m.overrides[i] - m.def
	}
	clear(m.offsets)
}
