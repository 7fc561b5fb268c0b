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

// HTTP server for the knob state

package report

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net"
	"net/http"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// Stats are pipeline counters published alongside the state.
type Stats struct {
	Queued  int   `json:"queued"`
	Dropped int64 `json:"dropped"`
	Faults  int64 `json:"faults"`
}

// Server publishes the state of an Image reporter:
//
//	/state.png   the rendered dial
//	/state.json  the state and pipeline counters
type Server struct {
	img    *Image
	stats  func() Stats
	logger golog.Logger
	srv    *http.Server
}

// NewServer creates a status server. stats may be nil.
func NewServer(img *Image, stats func() Stats, logger golog.Logger) *Server {
	s := &Server{img: img, stats: stats, logger: logger}
	s.srv = &http.Server{Handler: s.Handler()}
	return s
}

// Handler returns the HTTP handler for the server's pages.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/state.png", s.serveImage)
	mux.HandleFunc("/state.json", s.serveJSON)
	return mux
}

// Start listens on the port and serves requests in the background.
func (s *Server) Start(port int) error {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.Wrapf(err, "status server port %d", port)
	}
	s.logger.Infow("starting status server", "addr", l.Addr().String())
	go func() {
		if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("status server", "error", err)
		}
	}()
	return nil
}

// Close shuts the server down.
func (s *Server) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, s.img.Render()); err != nil {
		s.logger.Debugw("error writing image", "error", err)
	}
}

func (s *Server) serveJSON(w http.ResponseWriter, r *http.Request) {
	st := s.img.State()
	resp := struct {
		Counter int  `json:"counter"`
		Latch   bool `json:"latch"`
		Stats
	}{Counter: st.Counter, Latch: st.Latch}
	if s.stats != nil {
		resp.Stats = s.stats()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Debugw("error writing json", "error", err)
	}
}
