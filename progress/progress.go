// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package progress aggregates byte-count deltas from concurrent workers into a
// single running total.
//
// Workers never share a position: each one sends the number of bytes it
// processed since its last report over a bounded channel. A single consumer
// folds the deltas into a total and forwards it to a Sink.
package progress

import (
	"sync"
)

// FlushEvery is the number of chunks a Reporter accumulates before sending a
// delta.
const FlushEvery = 100

// Sink displays progress.
type Sink interface {
	// Set is called with the running total of processed bytes.
	Set(total uint64)
	// Finish is called once, after the last Set.
	Finish()
}

// Bounded is a Sink that can display the expected total of a run.
type Bounded interface {
	Sink
	// SetMax is called with the expected total before any Set.
	SetMax(max uint64)
}

// Announce tells sink the expected total, if it is a Bounded sink.
func Announce(sink Sink, max uint64) {
	if b, ok := sink.(Bounded); ok {
		b.SetMax(max)
	}
}

// Tracker owns the progress channel and its consumer.
type Tracker struct {
	ch   chan uint64
	done chan struct{}

	closeOnce sync.Once
	total     uint64
}

// Start launches a Tracker whose channel holds up to capacity pending deltas.
// Producers block once the channel is full.
//
// If sink is nil, deltas are drained and counted, but not displayed.
func Start(sink Sink, capacity int) *Tracker {
	if capacity < 1 {
		capacity = 1
	}
	t := &Tracker{
		ch:   make(chan uint64, capacity),
		done: make(chan struct{}),
	}
	go t.consume(sink)
	return t
}

func (t *Tracker) consume(sink Sink) {
	defer close(t.done)

	for delta := range t.ch {
		t.total += delta
		if sink != nil {
			sink.Set(t.total)
		}
	}
	if sink != nil {
		sink.Finish()
	}
}

// Reporter returns a new Reporter feeding this Tracker. Each worker should use
// its own Reporter.
func (t *Tracker) Reporter() *Reporter { return &Reporter{ch: t.ch} }

// Close closes the channel, waits for the consumer to drain it and returns the
// total number of reported bytes.
//
// Close must only be called once every Reporter has been flushed and is no
// longer in use.
func (t *Tracker) Close() uint64 {
	t.closeOnce.Do(func() { close(t.ch) })
	<-t.done
	return t.total
}

// Reporter batches the progress of a single worker.
//
// A nil *Reporter is valid and discards everything.
type Reporter struct {
	ch      chan<- uint64
	pending uint64
	chunks  int
}

// Add records n processed bytes, one chunk's worth.
func (r *Reporter) Add(n int) {
	if r == nil {
		return
	}
	r.pending += uint64(n)
	if r.chunks++; r.chunks >= FlushEvery {
		r.Flush()
	}
}

// Flush sends any pending bytes.
func (r *Reporter) Flush() {
	if r == nil || r.pending == 0 {
		r.reset()
		return
	}
	r.ch <- r.pending
	r.reset()
}

func (r *Reporter) reset() {
	if r != nil {
		r.pending, r.chunks = 0, 0
	}
}
