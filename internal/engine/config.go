package engine

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// CompactionThreshold is the byte-counter level that triggers compaction.
const CompactionThreshold = 1 << 20 // 1 MiB

// Config holds the store's tunables. Zero value is not directly usable;
// build one with newConfig plus Options, which is what Open does.
type Config struct {
	fs                  afero.Fs
	logger              *zap.Logger
	compactionThreshold int64
}

// Option configures a Store at Open time.
type Option func(*Config)

// WithFs overrides the filesystem the store reads and writes through.
// Defaults to afero.NewOsFs(). Tests typically pass afero.NewMemMapFs().
func WithFs(fs afero.Fs) Option {
	return func(c *Config) { c.fs = fs }
}

// WithLogger overrides the store's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) { c.logger = logger }
}

// WithCompactionThreshold overrides the byte-counter level that triggers
// compaction. Defaults to CompactionThreshold.
func WithCompactionThreshold(bytes int64) Option {
	return func(c *Config) { c.compactionThreshold = bytes }
}

func newConfig(opts ...Option) Config {
	c := Config{
		fs:                  afero.NewOsFs(),
		logger:              zap.NewNop(),
		compactionThreshold: CompactionThreshold,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
