package storage

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultWriteTimeout bounds a single queued Put.
const DefaultWriteTimeout = 5 * time.Second

type job struct {
	c    Collection
	rec  Record
	done chan error
}

// Writer persists records in the background. A single goroutine drains the
// queue in submission order, so the last Put for a key is the one that
// sticks.
type Writer struct {
	store   Store
	log     logrus.FieldLogger
	timeout time.Duration

	mu     sync.Mutex
	queue  []job
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func NewWriter(store Store, log logrus.FieldLogger) *Writer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	w := &Writer{
		store:   store,
		log:     log,
		timeout: DefaultWriteTimeout,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Put queues rec for c. The returned channel yields the store's result
// exactly once and is then closed.
func (w *Writer) Put(c Collection, rec Record) <-chan error {
	ch := make(chan error, 1)
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		ch <- opError("put", c, rec.ID, ErrClosed)
		close(ch)
		return ch
	}
	w.queue = append(w.queue, job{c: c, rec: rec, done: ch})
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return ch
}

// Close stops accepting writes and blocks until the queue is drained.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		<-w.wake
		for {
			w.mu.Lock()
			if len(w.queue) == 0 {
				closed := w.closed
				w.mu.Unlock()
				if closed {
					return
				}
				break
			}
			j := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()

			w.write(j)
		}
	}
}

func (w *Writer) write(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	err := w.store.Put(ctx, j.c, j.rec)
	cancel()
	if err != nil {
		w.log.WithError(err).WithFields(logrus.Fields{
			"collection": j.c,
			"id":         j.rec.ID,
		}).Warn("persist failed, keeping in-memory value")
	}
	j.done <- err
	close(j.done)
}

// Wait blocks until ch delivers its result or ctx ends.
func Wait(ctx context.Context, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns an already-settled result channel carrying err.
func Done(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}
