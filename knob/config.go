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

package knob

import (
	"strconv"
	"time"

	"github.com/aamcrae/config"
	"github.com/pkg/errors"

	"github.com/aamcrae/rotary/event"
	"github.com/aamcrae/rotary/io"
)

// Config holds the knob configuration.
type Config struct {
	Queue      int           // Event queue capacity
	Timeout    time.Duration // Consumer idle timeout
	Indicators bool          // Drive the direction LEDs
	Driver     string        // GPIO binding, one of io.Drivers
	Chip       string        // GPIO chip for the cdev binding
	LogLevel   string
	LogFile    string // Rolling log file, empty for stderr
	Port       int    // Status server port, 0 to disable
	Detents    int    // Detents per revolution shown on the dial
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Queue:      event.DefaultSize,
		Timeout:    DefaultTimeout,
		Indicators: true,
		Driver:     "sysfs",
		Chip:       "gpiochip0",
		LogLevel:   "info",
		Detents:    20,
	}
}

// ParseConfig reads a configuration file. Missing sections and
// entries keep their default values. An empty name returns the defaults.
// Each entry takes exactly one value. Comments must be on their own line.
// Sample config:
//
//	[pipeline]
//	# Event queue capacity
//	queue=40
//	timeout=1s
//	# Show the step direction on the LEDs
//	indicators=on
//	[gpio]
//	# sysfs, cdev, periph or sim
//	driver=cdev
//	chip=gpiochip0
//	[log]
//	level=info
//	file=/var/log/rotary.log
//	[http]
//	# Status server, 0 disables
//	port=8080
//	detents=20
func ParseConfig(file string) (*Config, error) {
	c := DefaultConfig()
	if file == "" {
		return c, nil
	}
	conf, err := config.ParseFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", file)
	}
	if s := conf.GetSection("pipeline"); s != nil {
		if err := parseInt(s, "queue", &c.Queue); err != nil {
			return nil, err
		}
		if err := parseDuration(s, "timeout", &c.Timeout); err != nil {
			return nil, err
		}
		if err := parseBool(s, "indicators", &c.Indicators); err != nil {
			return nil, err
		}
	}
	if s := conf.GetSection("gpio"); s != nil {
		if err := parseString(s, "driver", &c.Driver); err != nil {
			return nil, err
		}
		if err := parseString(s, "chip", &c.Chip); err != nil {
			return nil, err
		}
	}
	if s := conf.GetSection("log"); s != nil {
		if err := parseString(s, "level", &c.LogLevel); err != nil {
			return nil, err
		}
		if err := parseString(s, "file", &c.LogFile); err != nil {
			return nil, err
		}
	}
	if s := conf.GetSection("http"); s != nil {
		if err := parseInt(s, "port", &c.Port); err != nil {
			return nil, err
		}
		if err := parseInt(s, "detents", &c.Detents); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", file)
	}
	return c, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Queue <= 0 {
		return errors.Errorf("queue: invalid size %d", c.Queue)
	}
	if c.Timeout <= 0 {
		return errors.Errorf("timeout: invalid duration %s", c.Timeout)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port: invalid port %d", c.Port)
	}
	if c.Detents <= 0 {
		return errors.Errorf("detents: invalid count %d", c.Detents)
	}
	for _, d := range io.Drivers {
		if d == c.Driver {
			return nil
		}
	}
	return errors.Errorf("driver: unknown driver %q", c.Driver)
}

// arg returns the single value of key. An absent key is not an error,
// but a key with no value, several values or duplicate entries is.
func arg(s *config.Section, key string) (string, bool, error) {
	if !s.Has(key) {
		return "", false, nil
	}
	a, err := s.GetArg(key)
	if err != nil {
		return "", false, errors.Wrap(err, key)
	}
	return a, true, nil
}

func parseString(s *config.Section, key string, v *string) error {
	a, ok, err := arg(s, key)
	if ok {
		*v = a
	}
	return err
}

func parseInt(s *config.Section, key string, v *int) error {
	a, ok, err := arg(s, key)
	if !ok {
		return err
	}
	n, err := strconv.Atoi(a)
	if err != nil {
		return errors.Wrap(err, key)
	}
	*v = n
	return nil
}

func parseDuration(s *config.Section, key string, v *time.Duration) error {
	a, ok, err := arg(s, key)
	if !ok {
		return err
	}
	d, err := time.ParseDuration(a)
	if err != nil {
		return errors.Wrap(err, key)
	}
	*v = d
	return nil
}

func parseBool(s *config.Section, key string, v *bool) error {
	a, ok, err := arg(s, key)
	if !ok {
		return err
	}
	switch a {
	case "on", "true", "yes", "1":
		*v = true
	case "off", "false", "no", "0":
		*v = false
	default:
		return errors.Errorf("%s: invalid value %q", key, a)
	}
	return nil
}
