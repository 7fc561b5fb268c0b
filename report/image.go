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
	"image"
	"math"
	"sync"

	"github.com/fogleman/gg"
)

const imageSize = 400

// Image keeps the latest state and renders it as a knob dial.
// The pointer moves one detent per encoder step, and the centre
// is green when the button latch is set, red otherwise.
type Image struct {
	mu      sync.Mutex
	state   State
	detents int
}

// NewImage creates an image reporter for a knob with the given
// number of detents per revolution.
func NewImage(detents int) *Image {
	if detents <= 0 {
		detents = 20
	}
	return &Image{detents: detents}
}

// Report records the state for the next render.
func (im *Image) Report(s State) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.state = s
	return nil
}

// State returns the last reported state.
func (im *Image) State() State {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.state
}

// Render draws the dial for the last reported state.
func (im *Image) Render() image.Image {
	s := im.State()
	c := gg.NewContext(imageSize, imageSize)
	c.SetRGB(1, 1, 1)
	c.Clear()
	mid := float64(imageSize) / 2
	r := mid * 0.85
	c.SetRGB(0.2, 0.2, 0.2)
	c.SetLineWidth(4)
	c.DrawCircle(mid, mid, r)
	c.Stroke()
	c.SetLineWidth(2)
	for i := 0; i < im.detents; i++ {
		drawRadial(c, mid, im.angle(i), r-12, r)
	}
	c.Stroke()
	c.SetRGB(0, 0, 1)
	c.SetLineWidth(8)
	drawRadial(c, mid, im.angle(s.Counter), 0, r-24)
	c.Stroke()
	if s.Latch {
		c.SetRGB(0, 0.8, 0)
	} else {
		c.SetRGB(0.8, 0, 0)
	}
	c.DrawCircle(mid, mid, r*0.15)
	c.Fill()
	return c.Image()
}

// angle returns the clockwise angle from the top for the position.
func (im *Image) angle(pos int) float64 {
	p := pos % im.detents
	if p < 0 {
		p += im.detents
	}
	return float64(p) * 2 * math.Pi / float64(im.detents)
}

func drawRadial(c *gg.Context, mid, radians, from, to float64) {
	sin, cos := math.Sin(radians), math.Cos(radians)
	c.DrawLine(mid+from*sin, mid-from*cos, mid+to*sin, mid-to*cos)
}
