package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerClosed is returned by Do after Close.
var ErrWorkerClosed = errors.New("db: worker closed")

type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker runs transactions on a fixed set of writer goroutines. With one
// writer (always the case for SQLite) every transaction is serialised.
type Worker struct {
	db   *sql.DB
	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewWorker(db *sql.DB) *Worker {
	return NewWorkerPool(db, 1)
}

func NewWorkerPool(db *sql.DB, writers int) *Worker {
	if writers <= 0 {
		writers = 1
	}
	w := &Worker{
		db:   db,
		jobs: make(chan job, 256),
	}
	w.wg.Add(writers)
	for i := 0; i < writers; i++ {
		go w.loop()
	}
	return w
}

// Close stops accepting jobs, lets the writers finish what is queued and
// waits for them. It is safe to call more than once.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)
	j := job{ctx: ctx, fn: fn, ch: ch}

	if err := w.enqueue(ctx, j); err != nil {
		return err
	}

	// If ctx expires first the writer still finishes the transaction and the
	// result is dropped into the buffered ch.
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue holds the read lock across the send so Close cannot close jobs
// underneath it.
func (w *Worker) enqueue(ctx context.Context, j job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWorkerClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case w.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()

	for j := range w.jobs {
		j.ch <- w.run(j)
	}
}

func (w *Worker) run(j job) (err error) {
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}

	// A panicking TxFn must not take the writer goroutine down with it.
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("tx panic: %v", r)
		}
	}()

	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
