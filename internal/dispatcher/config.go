package dispatcher

import "time"

const (
	DefaultWorkers          = 1
	DefaultBatchSize        = 100
	DefaultTaskTimeout      = 30 * time.Second
	DefaultFailureThreshold = 10
	DefaultMemoryThreshold  = 0.70
)

// Config controls the dispatch mode and its limits
type Config struct {
	Concurrent       bool
	Workers          int
	BatchSize        int
	TaskTimeout      time.Duration
	FailureThreshold int
	MemoryThreshold  float64 // fraction of system memory, 0-1
	BatchDelay       time.Duration
}

// DefaultConfig returns the sequential default configuration
func DefaultConfig() Config {
	return Config{
		Workers:          DefaultWorkers,
		BatchSize:        DefaultBatchSize,
		TaskTimeout:      DefaultTaskTimeout,
		FailureThreshold: DefaultFailureThreshold,
		MemoryThreshold:  DefaultMemoryThreshold,
	}
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = DefaultTaskTimeout
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.MemoryThreshold <= 0 || c.MemoryThreshold > 1 {
		c.MemoryThreshold = DefaultMemoryThreshold
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	return c
}
