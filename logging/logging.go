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

// Package logging builds the program logger.
package logging

import (
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for log files.
const (
	maxSize    = 10 // Megabytes
	maxBackups = 3
)

// encoderConfig returns the console encoder settings used for all output.
func encoderConfig(color bool) zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}

// New returns a logger at the named level ("debug", "info", "warn"...).
// If file is set, the log is written to that file and rotated
// when it grows, otherwise it goes to stderr.
func New(name, level, file string) (golog.Logger, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	var ws zapcore.WriteSyncer
	var enc zapcore.Encoder
	if file != "" {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		})
		enc = zapcore.NewConsoleEncoder(encoderConfig(false))
	} else {
		ws = zapcore.Lock(os.Stderr)
		enc = zapcore.NewConsoleEncoder(encoderConfig(true))
	}
	core := zapcore.NewCore(enc, ws, lvl)
	return zap.New(core, zap.ErrorOutput(zapcore.Lock(os.Stderr))).Sugar().Named(name), nil
}

// ConsoleLevel returns the level to use while a reporter redraws a
// line on the terminal. Logging to stderr below error would break that
// line, so the level is raised. A log file keeps the level given.
func ConsoleLevel(level, file string) string {
	var l zapcore.Level
	if file != "" || l.UnmarshalText([]byte(level)) != nil {
		return level
	}
	if l < zapcore.ErrorLevel {
		return zapcore.ErrorLevel.String()
	}
	return level
}
