// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// DefaultSize is the default number of events the queue can hold.
const DefaultSize = 40

var (
	// ErrTimeout is returned by Get when no event arrived in time.
	ErrTimeout = errors.New("event queue: timeout")
	// ErrClosed is returned by Get once the queue is closed and empty.
	ErrClosed = errors.New("event queue: closed")
)

// Queue is a bounded FIFO of events with any number of producers and
// a single consumer.
// Producers (edge handlers) never block: Put either stores the event or
// fails immediately, and the caller discards it.
// The consumer waits in Get for at most a given timeout.
type Queue struct {
	c       chan Event    // Buffered channel holding queued events
	done    chan struct{} // Closed when the queue is closed
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Int64 // Number of events rejected by Put
	clk     clock.Clock
}

// NewQueue creates a queue holding up to size events.
// If clk is nil, the wall clock is used for Get timeouts.
func NewQueue(size int, clk clock.Clock) (*Queue, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid queue size %d", size)
	}
	if clk == nil {
		clk = clock.New()
	}
	q := new(Queue)
	q.c = make(chan Event, size)
	q.done = make(chan struct{})
	q.clk = clk
	return q, nil
}

// Put attempts to append the event to the queue. It returns false
// if the queue is full or closed. Put is safe to call from edge
// handlers: it does not block or allocate.
func (q *Queue) Put(e Event) bool {
	if q.closed.Load() {
		q.dropped.Inc()
		return false
	}
	select {
	case q.c <- e:
		return true
	default:
		q.dropped.Inc()
		return false
	}
}

// Get returns the oldest queued event, waiting up to timeout for one
// to arrive. ErrTimeout is returned if the wait expires, the context
// error if ctx is done, and ErrClosed if the queue has been closed and
// all remaining events have been consumed.
func (q *Queue) Get(ctx context.Context, timeout time.Duration) (Event, error) {
	// Take any ready event first so that a closed queue is drained.
	select {
	case e := <-q.c:
		return e, nil
	default:
	}
	if q.closed.Load() {
		return Event{}, ErrClosed
	}
	t := q.clk.Timer(timeout)
	defer t.Stop()
	select {
	case e := <-q.c:
		return e, nil
	case <-t.C:
		return Event{}, ErrTimeout
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-q.done:
		select {
		case e := <-q.c:
			return e, nil
		default:
			return Event{}, ErrClosed
		}
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.c)
}

// Cap returns the capacity of the queue.
func (q *Queue) Cap() int {
	return cap(q.c)
}

// Dropped returns the number of events that Put has rejected.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops the queue accepting new events and wakes the consumer.
// Events already queued can still be retrieved.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.closed.Store(true)
		close(q.done)
	})
}
