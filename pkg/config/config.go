// Package config provides the unified configuration system for Tessera's
// batch re-chunking pipeline. It defines a single Config structure shared by
// the CLI and the pipeline, organized into logical sections:
//
//   - Squash: the thresholds and execution mode of the re-chunking core
//   - Memory: the shared memory ceiling guarded by the admission gate
//   - Pipeline: channel capacities and read batching
//   - Logging: zap logger settings
//   - Observability: tracing
//
// Example usage:
//
//	cfg := config.New("rechunk")
//	cfg.Squash.MinRows = 100_000
//	cfg.Memory.LimitBytes = 512 << 20
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// Squash execution modes.
const (
	// ModeEager concatenates synchronously on the producing stage.
	ModeEager = "eager"
	// ModeDeferred collects cheaply on the producing stage and
	// concatenates on a later one.
	ModeDeferred = "deferred"
)

// Config is the single unified configuration structure for a re-chunking
// run.
type Config struct {
	// Name identifies the pipeline instance
	Name string `yaml:"name" json:"name"`

	// Squash controls the re-chunking core
	Squash SquashConfig `yaml:"squash" json:"squash"`

	// Memory controls the admission gate
	Memory MemoryConfig `yaml:"memory" json:"memory"`

	// Pipeline controls stage wiring
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`

	// Logging controls the zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Observability controls tracing
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SquashConfig contains the thresholds and mode of the re-chunking core.
type SquashConfig struct {
	// MinRows is the minimum row count before a flush; 0 disables the
	// row condition
	MinRows uint64 `yaml:"min_rows" json:"min_rows"`
	// MinBytes is the minimum byte size before a flush; 0 disables the
	// byte condition. With both at zero every batch passes through.
	MinBytes uint64 `yaml:"min_bytes" json:"min_bytes"`
	// Mode selects eager or deferred squashing
	Mode string `yaml:"mode" json:"mode"`
}

// MemoryConfig contains the admission gate settings.
type MemoryConfig struct {
	// LimitBytes is the hard ceiling; 0 means unbounded
	LimitBytes int64 `yaml:"limit_bytes" json:"limit_bytes"`
	// UseSystemTracker guards against real process memory instead of a
	// query-scoped budget
	UseSystemTracker bool `yaml:"use_system_tracker" json:"use_system_tracker"`
	// PollInterval is the re-check interval for trackers that cannot
	// signal releases
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// PipelineConfig contains stage wiring settings.
type PipelineConfig struct {
	// ChannelCapacity is the payload channel buffer between stages
	ChannelCapacity int `yaml:"channel_capacity" json:"channel_capacity"`
	// ReadBatchRows is how many input rows the source packs per batch
	ReadBatchRows int `yaml:"read_batch_rows" json:"read_batch_rows"`
}

// LoggingConfig contains zap logger settings.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Encoding    string `yaml:"encoding" json:"encoding"`
	Development bool   `yaml:"development" json:"development"`
}

// ObservabilityConfig contains tracing settings.
type ObservabilityConfig struct {
	EnableTracing bool    `yaml:"enable_tracing" json:"enable_tracing"`
	SamplingRate  float64 `yaml:"sampling_rate" json:"sampling_rate"`
	ServiceName   string  `yaml:"service_name" json:"service_name"`
}

// New returns a Config with production defaults for the given pipeline name.
func New(name string) *Config {
	return &Config{
		Name: name,
		Squash: SquashConfig{
			MinRows:  65536,
			MinBytes: 16 << 20,
			Mode:     ModeDeferred,
		},
		Memory: MemoryConfig{
			LimitBytes:   0,
			PollInterval: 10 * time.Millisecond,
		},
		Pipeline: PipelineConfig{
			ChannelCapacity: 4,
			ReadBatchRows:   4096,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Observability: ObservabilityConfig{
			SamplingRate: 1.0,
			ServiceName:  "tessera",
		},
	}
}

// Validate checks the configuration and fills in defaults for zero values
// that have no meaningful zero semantics.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config: name is required")
	}
	switch c.Squash.Mode {
	case ModeEager, ModeDeferred:
	case "":
		c.Squash.Mode = ModeDeferred
	default:
		return fmt.Errorf("config: unknown squash mode %q", c.Squash.Mode)
	}
	if c.Memory.LimitBytes < 0 {
		return fmt.Errorf("config: memory limit_bytes must be >= 0")
	}
	if c.Memory.PollInterval <= 0 {
		c.Memory.PollInterval = 10 * time.Millisecond
	}
	if c.Pipeline.ChannelCapacity <= 0 {
		c.Pipeline.ChannelCapacity = 4
	}
	if c.Pipeline.ReadBatchRows <= 0 {
		c.Pipeline.ReadBatchRows = 4096
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "json"
	}
	return nil
}
