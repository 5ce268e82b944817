package logstore

import (
	"context"
	"log"
	"strings"
	"time"
)

const (
	maxBatchSize  = 100
	queueCapacity = 1024
	displayLimit  = 1000 // console output only, stored values are untruncated
)

// Writer drains queued log entries in the background and commits them to the
// store in batches, keeping request handling decoupled from disk I/O.
//
// Producers call Log, which never blocks and never fails. A single consumer
// goroutine (Run) owns the draining side. On shutdown Run performs a final
// drain pass so that no queued entry is lost.
type Writer struct {
	store      *Store
	queue      chan Entry
	done       chan struct{}
	flushEvery time.Duration
}

func NewWriter(store *Store) *Writer {
	return &Writer{
		store:      store,
		queue:      make(chan Entry, queueCapacity),
		done:       make(chan struct{}),
		flushEvery: time.Second,
	}
}

// Log stamps the current UTC time and queues an entry. It returns
// immediately; if the queue is full the entry is dropped with a console line
// rather than slowing the caller.
func (w *Writer) Log(userID int64, eventType EventType, prompt, response string) {
	e := Entry{
		Timestamp: time.Now().UTC().Format(TimeLayout),
		UserID:    userID,
		EventType: eventType,
		Prompt:    prompt,
		Response:  response,
	}
	select {
	case w.queue <- e:
	default:
		log.Printf("log queue full, dropping %s entry for user %d", eventType, userID)
	}
}

// Run is the writer loop. It blocks until an entry arrives, gathers up to
// maxBatchSize additional already-queued entries into one batch, persists it,
// then pauses for flushEvery to coalesce bursts. When ctx is cancelled it
// drains whatever is still queued and exits. Callers wait for completion via
// Wait.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case first := <-w.queue:
			w.flush(w.collect([]Entry{first}, maxBatchSize+1))
		}

		select {
		case <-ctx.Done():
			w.drain()
			return
		case <-time.After(w.flushEvery):
		}
	}
}

// Wait blocks until the final drain has completed.
func (w *Writer) Wait() {
	<-w.done
}

// collect grows batch with whatever is already queued, without blocking,
// up to limit entries total.
func (w *Writer) collect(batch []Entry, limit int) []Entry {
	for len(batch) < limit {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
		default:
			return batch
		}
	}
	return batch
}

// drain empties the queue in chunks of up to maxBatchSize, persisting each
// one. Runs after the shutdown signal has been observed.
func (w *Writer) drain() {
	for {
		batch := w.collect(nil, maxBatchSize)
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
	}
}

// flush prints one console line per entry and commits the batch. A storage
// error drops the batch: the log is best-effort telemetry and a failed batch
// is not retried.
func (w *Writer) flush(batch []Entry) {
	for _, e := range batch {
		log.Printf("[%s] [%s] user_id=%d prompt=%q response=%q",
			e.Timestamp, strings.ToUpper(string(e.EventType)), e.UserID,
			truncate(e.Prompt), truncate(e.Response))
	}
	if err := w.store.InsertBatch(context.Background(), batch); err != nil {
		log.Printf("failed to write log batch (%d entries dropped): %v", len(batch), err)
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > displayLimit {
		return string(r[:displayLimit]) + "..."
	}
	return s
}
