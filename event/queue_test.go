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
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"
)

func TestNewQueue(t *testing.T) {
	_, err := NewQueue(0, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewQueue(-3, nil)
	test.That(t, err, test.ShouldNotBeNil)

	q, err := NewQueue(DefaultSize, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.Cap(), test.ShouldEqual, 40)
	test.That(t, q.Len(), test.ShouldEqual, 0)
}

func TestQueueOrder(t *testing.T) {
	q, err := NewQueue(4, nil)
	test.That(t, err, test.ShouldBeNil)
	in := []Event{NewStep(CW), NewButton(true), NewStep(CCW), NewButton(false)}
	for _, e := range in {
		test.That(t, q.Put(e), test.ShouldBeTrue)
	}
	for _, want := range in {
		got, err := q.Get(context.Background(), time.Second)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldResemble, want)
	}
}

func TestQueueFull(t *testing.T) {
	const size = 5
	q, err := NewQueue(size, nil)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < size; i++ {
		test.That(t, q.Put(NewStep(CW)), test.ShouldBeTrue)
	}
	for i := 0; i < 3; i++ {
		test.That(t, q.Put(NewStep(CCW)), test.ShouldBeFalse)
		test.That(t, q.Len(), test.ShouldEqual, size)
	}
	test.That(t, q.Dropped(), test.ShouldEqual, int64(3))
	// The rejected events must not have displaced the queued ones.
	for i := 0; i < size; i++ {
		e, err := q.Get(context.Background(), time.Second)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, e.Direction(), test.ShouldEqual, CW)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	const size = 16
	q, err := NewQueue(size, nil)
	test.That(t, err, test.ShouldBeNil)
	var wg sync.WaitGroup
	var over atomic.Bool
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Put(NewStep(CW))
				if q.Len() > size {
					over.Store(true)
				}
			}
		}()
	}
	wg.Wait()
	test.That(t, over.Load(), test.ShouldBeFalse)
	test.That(t, q.Len(), test.ShouldEqual, size)
	test.That(t, q.Dropped(), test.ShouldEqual, int64(400-size))
}

func TestQueueTimeout(t *testing.T) {
	mock := clock.NewMock()
	q, err := NewQueue(2, mock)
	test.That(t, err, test.ShouldBeNil)

	done := make(chan error, 1)
	go func() {
		_, err := q.Get(context.Background(), time.Second)
		done <- err
	}()
	var got error
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		mock.Add(time.Second)
		select {
		case got = <-done:
		default:
		}
		test.That(tb, got, test.ShouldNotBeNil)
	})
	test.That(t, errors.Is(got, ErrTimeout), test.ShouldBeTrue)
}

func TestQueueWakesConsumer(t *testing.T) {
	q, err := NewQueue(2, nil)
	test.That(t, err, test.ShouldBeNil)
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Put(NewButton(true))
	}()
	e, err := q.Get(context.Background(), 5*time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.Kind(), test.ShouldEqual, Button)
	test.That(t, e.State(), test.ShouldBeTrue)
}

func TestQueueCancel(t *testing.T) {
	q, err := NewQueue(2, nil)
	test.That(t, err, test.ShouldBeNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Get(ctx, time.Hour)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrTimeout), test.ShouldBeFalse)
}

func TestQueueClose(t *testing.T) {
	q, err := NewQueue(3, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.Put(NewStep(CW)), test.ShouldBeTrue)
	q.Close()
	q.Close()
	test.That(t, q.Put(NewStep(CW)), test.ShouldBeFalse)
	test.That(t, q.Dropped(), test.ShouldEqual, int64(1))

	e, err := q.Get(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e, test.ShouldResemble, NewStep(CW))
	_, err = q.Get(context.Background(), time.Second)
	test.That(t, errors.Is(err, ErrClosed), test.ShouldBeTrue)
}

func TestEventString(t *testing.T) {
	test.That(t, NewStep(CW).String(), test.ShouldEqual, "step(+1)")
	test.That(t, NewStep(CCW).String(), test.ShouldEqual, "step(-1)")
	test.That(t, NewButton(true).String(), test.ShouldEqual, "button(true)")
	test.That(t, NewButton(false).Direction(), test.ShouldEqual, Direction(0))
}
