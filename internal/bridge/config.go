package bridge

import "time"

// Config holds the bridge's immutable per-process settings.
type Config struct {
	CLIPath   string
	ModelPath string
	ModelLib  string
	Device    string
	// ModelName is advertised in /v1/models and in every chunk.
	ModelName string

	// Timeout bounds each child's wall-clock lifetime.
	Timeout time.Duration
	// Pace is the delay between successive streamed tokens.
	Pace time.Duration
	// ChunkSize is the read size used on the child's output.
	ChunkSize int

	// MaxConcurrent bounds running children; 0 means unlimited.
	MaxConcurrent int
	// QueueWait is how long Admit waits for a free slot.
	QueueWait time.Duration
}

const defaultChunkSize = 64

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.Pace < 0 {
		c.Pace = 0
	}
	if c.QueueWait <= 0 {
		c.QueueWait = 30 * time.Second
	}
	return c
}
