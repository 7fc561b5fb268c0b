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

// Rotary knob program

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/utils"
	"golang.org/x/term"

	"github.com/aamcrae/rotary/io"
	"github.com/aamcrae/rotary/knob"
	"github.com/aamcrae/rotary/logging"
	"github.com/aamcrae/rotary/report"
)

var configFile = flag.String("config", "", "Configuration file")
var driver = flag.String("driver", "", "GPIO driver (sysfs, cdev, periph, sim)")
var port = flag.Int("port", -1, "Status server port, 0 to disable")
var verbose = flag.Bool("v", false, "Log debug messages")

func main() {
	flag.Parse()
	cfg, err := knob.ParseConfig(*configFile)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *port >= 0 {
		cfg.Port = *port
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	// The console reporter owns the terminal line.
	console := term.IsTerminal(int(os.Stdout.Fd()))
	level := cfg.LogLevel
	if console {
		level = logging.ConsoleLevel(level, cfg.LogFile)
	}
	logger, err := logging.New("rotary", level, cfg.LogFile)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer utils.UncheckedErrorFunc(logger.Sync)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, console, logger); err != nil {
		logger.Fatalw("rotary failed", "error", err)
	}
}

func run(ctx context.Context, cfg *knob.Config, console bool, logger golog.Logger) error {
	b, err := io.Open(cfg.Driver, cfg.Chip)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warnw("closing gpio", "error", err)
		}
	}()

	var rep report.Multi
	if console {
		rep = append(rep, report.NewConsole(os.Stdout))
	} else {
		rep = append(rep, report.NewLog(logger))
	}
	var img *report.Image
	if cfg.Port > 0 {
		img = report.NewImage(cfg.Detents)
		rep = append(rep, img)
	}
	k, err := knob.New(b, knob.DefaultPins, cfg, rep, logger)
	if err != nil {
		return err
	}
	if img != nil {
		srv := report.NewServer(img, k.Stats, logger)
		if err := srv.Start(cfg.Port); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			utils.UncheckedError(srv.Close(sctx))
		}()
	}
	logger.Infow("rotary started", "driver", cfg.Driver, "queue", cfg.Queue, "timeout", cfg.Timeout)
	err = k.Run(ctx)
	if console {
		os.Stdout.WriteString("\n")
	}
	logger.Infow("rotary stopped", "stats", k.Stats())
	return err
}
