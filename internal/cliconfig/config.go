package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/conthread/pkg/log"
	"github.com/bft-labs/conthread/pkg/worker"
)

// Config holds CLI configuration for the conthread daemon.
type Config struct {
	Workers          int
	Priority         int
	Interval         time.Duration
	InitDelay        time.Duration
	RunFor           time.Duration
	MaxThreads       int
	NativePriorities bool

	MetricsAddr string
	LogLevel    string
	WatchConfig bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Workers:   2,
		Priority:  int(worker.NormPriority),
		Interval:  time.Second,
		InitDelay: 500 * time.Millisecond,
		LogLevel:  "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if !worker.Priority(c.Priority).Valid() {
		return fmt.Errorf("priority %d out of range [%d, %d]",
			c.Priority, worker.MinPriority, worker.CriticalPriority)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.InitDelay < 0 {
		return fmt.Errorf("init delay must not be negative")
	}
	if c.RunFor < 0 {
		return fmt.Errorf("run-for must not be negative")
	}
	if c.MaxThreads < 0 {
		return fmt.Errorf("max threads must not be negative")
	}
	if c.MaxThreads > 0 && c.MaxThreads < c.Workers {
		return fmt.Errorf("max threads (%d) below worker count (%d)", c.MaxThreads, c.Workers)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
