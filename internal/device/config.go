package device

import (
	"time"

	"github.com/danmuck/g2ctl/internal/state"
)

// Config tunes the worker and transport waits.
type Config struct {
	// RequestTimeout bounds one request/response exchange.
	RequestTimeout time.Duration
	// TaskTimeout bounds a single worker task, queueing included.
	TaskTimeout time.Duration
	// InitTimeout bounds Initialize, which issues many requests and pages
	// through both entry catalogs.
	InitTimeout time.Duration
	// QueueDepth is the number of tasks that may wait for the worker.
	QueueDepth int
	// DumpDir receives captures of sections that fail to decode.
	DumpDir string
	// Catalog provides module indicator metadata for LED and meter maps.
	Catalog state.VisualCatalog
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout: 5 * time.Second,
		TaskTimeout:    10 * time.Second,
		InitTimeout:    2 * time.Minute,
		QueueDepth:     64,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = def.TaskTimeout
	}
	if c.InitTimeout <= 0 {
		c.InitTimeout = def.InitTimeout
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = def.QueueDepth
	}
	return c
}
