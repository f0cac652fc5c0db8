package config

import (
	"fmt"
)

// Config holds the dimensions and runtime settings for a single attention
// head pipeline. Dim is the embedding width (C) fed into the head, HeadDim
// is the projected query/key/value width (H). The two are independent.
type Config struct {
	Dim        int
	HeadDim    int
	ContextLen int
	Seed       int64

	LogLevel  string
	LogFormat string

	MetricsAddr string
	LongbowAddr string
}

func Default() Config {
	return Config{
		Dim:        32,
		HeadDim:    16,
		ContextLen: 8,
		Seed:       1337,
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

func (c *Config) Validate() error {
	if c.Dim <= 0 {
		return fmt.Errorf("invalid dim: %d (must be positive)", c.Dim)
	}
	if c.HeadDim <= 0 {
		return fmt.Errorf("invalid head_dim: %d (must be positive)", c.HeadDim)
	}
	if c.ContextLen <= 0 {
		return fmt.Errorf("invalid context_len: %d (must be positive)", c.ContextLen)
	}
	return nil
}
