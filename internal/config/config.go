// Package config loads benchmark scenario files for stateit-bench.
package config

import (
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Scenario describes one benchmark run.
type Scenario struct {
	// Stores is the number of independent stores to drive.
	Stores int

	// Writers is the number of concurrent writer goroutines.
	Writers int

	// SetsPerWriter is the number of mutations each writer issues.
	SetsPerWriter int

	// Listeners is the number of full-state listeners per store.
	Listeners int

	// SelectorListeners is the number of selector subscriptions per store.
	SelectorListeners int

	// PayloadKeys is the number of keys in each store's state map.
	PayloadKeys int

	// MetricsAddr, when set, serves Prometheus metrics during the run.
	MetricsAddr string
}

// Default returns the standard scenario.
func Default() Scenario {
	return Scenario{
		Stores:            8,
		Writers:           16,
		SetsPerWriter:     10000,
		Listeners:         4,
		SelectorListeners: 4,
		PayloadKeys:       8,
	}
}

// Load parses a scenario file, falling back to defaults for omitted
// fields. An empty path returns the default scenario.
func Load(path string) (Scenario, error) {
	sc := Default()
	if path == "" {
		return sc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}

	var raw struct {
		Stores            *int   `toml:"stores"`
		Writers           *int   `toml:"writers"`
		SetsPerWriter     *int   `toml:"sets_per_writer"`
		Listeners         *int   `toml:"listeners"`
		SelectorListeners *int   `toml:"selector_listeners"`
		PayloadKeys       *int   `toml:"payload_keys"`
		MetricsAddr       string `toml:"metrics_addr"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}

	if raw.Stores != nil {
		sc.Stores = *raw.Stores
	}
	if raw.Writers != nil {
		sc.Writers = *raw.Writers
	}
	if raw.SetsPerWriter != nil {
		sc.SetsPerWriter = *raw.SetsPerWriter
	}
	if raw.Listeners != nil {
		sc.Listeners = *raw.Listeners
	}
	if raw.SelectorListeners != nil {
		sc.SelectorListeners = *raw.SelectorListeners
	}
	if raw.PayloadKeys != nil {
		sc.PayloadKeys = *raw.PayloadKeys
	}
	sc.MetricsAddr = raw.MetricsAddr

	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Validate checks that all counts are usable.
func (s Scenario) Validate() error {
	switch {
	case s.Stores < 1:
		return errors.New("scenario: stores must be at least 1")
	case s.Writers < 1:
		return errors.New("scenario: writers must be at least 1")
	case s.SetsPerWriter < 1:
		return errors.New("scenario: sets_per_writer must be at least 1")
	case s.Listeners < 0 || s.SelectorListeners < 0:
		return errors.New("scenario: listener counts must not be negative")
	case s.PayloadKeys < 1:
		return errors.New("scenario: payload_keys must be at least 1")
	}
	return nil
}
