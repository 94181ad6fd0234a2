package ida

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// MaxShares is the largest number of shares a dispersal can have. Share ids
// are the nonzero elements of GF(2^8).
const MaxShares = 255

var (
	// ErrConfiguration reports an invalid (n, k) pair.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrInsufficientShares is returned when fewer than k shares are supplied.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrInconsistentShares is returned when shares cannot come from the same dispersal.
	ErrInconsistentShares = errors.New("inconsistent shares")
	// ErrInvalidShare is returned when a share record cannot be parsed.
	ErrInvalidShare = errors.New("invalid share")
)

// Config holds the dispersal parameters.
type Config struct {
	// Shares is n, the number of shares produced by Encode.
	Shares int `json:"shares"`
	// Threshold is k, the number of shares Decode needs.
	Threshold int `json:"threshold"`
	// Workers bounds the goroutines used by Encode and Decode.
	// Zero or less means runtime.GOMAXPROCS(0).
	Workers int `json:"workers,omitempty"`
}

func (c *Config) Validate() error {
	if c.Shares < 1 {
		return fmt.Errorf("%w: shares must be at least 1, got %d", ErrConfiguration, c.Shares)
	}
	if c.Shares > MaxShares {
		return fmt.Errorf("%w: shares cannot exceed %d, got %d", ErrConfiguration, MaxShares, c.Shares)
	}
	if c.Threshold < 1 {
		return fmt.Errorf("%w: threshold must be at least 1, got %d", ErrConfiguration, c.Threshold)
	}
	if c.Threshold > c.Shares {
		return fmt.Errorf("%w: threshold (%d) cannot be greater than shares (%d)", ErrConfiguration, c.Threshold, c.Shares)
	}
	return nil
}

// Option customizes a Codec.
type Option func(*Codec)

// WithLogger sets the logger used for debug records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithWorkers overrides Config.Workers.
func WithWorkers(n int) Option {
	return func(c *Codec) {
		c.workers = n
	}
}

func defaultWorkers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}
