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

package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	test.That(t, c.Start(State{}), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual, "\033[2J\033[HButton state: 0 | Encoder value: 0")

	buf.Reset()
	test.That(t, c.Report(State{Counter: -12, Latch: true}), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual, "\rButton state: 1 | Encoder value: -12\033[K")
}

func TestConsoleFlush(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriterSize(&buf, 4096)
	c := NewConsole(w)
	test.That(t, c.Report(State{Counter: 3}), test.ShouldBeNil)
	// Nothing may be left buffered after a report.
	test.That(t, w.Buffered(), test.ShouldEqual, 0)
	test.That(t, buf.String(), test.ShouldEqual, "\rButton state: 0 | Encoder value: 3\033[K")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

type countReporter struct {
	n      int
	starts int
}

func (c *countReporter) Start(State) error {
	c.starts++
	return nil
}

func (c *countReporter) Report(State) error {
	c.n++
	return nil
}

func TestMulti(t *testing.T) {
	cnt := &countReporter{}
	m := Multi{NewConsole(failWriter{}), cnt}
	err := m.Report(State{Counter: 1})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "broken pipe")
	test.That(t, cnt.n, test.ShouldEqual, 1)

	test.That(t, m.Start(State{}), test.ShouldNotBeNil)
	test.That(t, cnt.starts, test.ShouldEqual, 1)

	test.That(t, Multi{cnt}.Report(State{}), test.ShouldBeNil)
	test.That(t, cnt.n, test.ShouldEqual, 2)
}

func TestLog(t *testing.T) {
	logger, logs := golog.NewObservedTestLogger(t)
	l := NewLog(logger)
	test.That(t, l.Start(State{}), test.ShouldBeNil)
	test.That(t, l.Report(State{Counter: 7, Latch: true}), test.ShouldBeNil)
	test.That(t, len(logs.FilterMessageSnippet("initial state").All()), test.ShouldEqual, 1)
	entries := logs.FilterMessage("state").All()
	test.That(t, len(entries), test.ShouldEqual, 1)
	test.That(t, entries[0].ContextMap()["counter"], test.ShouldEqual, int64(7))
	test.That(t, entries[0].ContextMap()["latch"], test.ShouldEqual, true)
}

func TestStateString(t *testing.T) {
	test.That(t, State{Counter: 2, Latch: true}.String(), test.ShouldEqual, "counter=2,latch=true")
}

func TestImage(t *testing.T) {
	im := NewImage(0)
	test.That(t, im.detents, test.ShouldEqual, 20)
	test.That(t, im.Report(State{Counter: -3, Latch: true}), test.ShouldBeNil)
	test.That(t, im.State(), test.ShouldResemble, State{Counter: -3, Latch: true})
	test.That(t, im.angle(-3), test.ShouldAlmostEqual, im.angle(17))
	test.That(t, im.angle(20), test.ShouldAlmostEqual, 0.0)

	img := im.Render()
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, imageSize)
	// The centre shows the latch colour.
	r, g, _, _ := img.At(imageSize/2, imageSize/2).RGBA()
	test.That(t, g, test.ShouldBeGreaterThan, r)
}

func TestServer(t *testing.T) {
	im := NewImage(24)
	test.That(t, im.Report(State{Counter: 5}), test.ShouldBeNil)
	s := NewServer(im, func() Stats { return Stats{Queued: 1, Dropped: 2, Faults: 3} }, golog.NewTestLogger(t))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/state.json")
	test.That(t, err, test.ShouldBeNil)
	defer resp.Body.Close()
	var got map[string]interface{}
	test.That(t, json.NewDecoder(resp.Body).Decode(&got), test.ShouldBeNil)
	test.That(t, got["counter"], test.ShouldEqual, 5.0)
	test.That(t, got["latch"], test.ShouldEqual, false)
	test.That(t, got["dropped"], test.ShouldEqual, 2.0)
	test.That(t, got["faults"], test.ShouldEqual, 3.0)

	resp2, err := http.Get(ts.URL + "/state.png")
	test.That(t, err, test.ShouldBeNil)
	defer resp2.Body.Close()
	test.That(t, resp2.Header.Get("Content-Type"), test.ShouldEqual, "image/png")
	img, err := png.Decode(resp2.Body)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, imageSize)
}
