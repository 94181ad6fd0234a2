package ida

import (
	"bytes"
	"log/slog"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantError string
	}{
		{
			name:   "Valid config",
			config: Config{Shares: 5, Threshold: 3},
		},
		{
			name:   "Replication",
			config: Config{Shares: 3, Threshold: 1},
		},
		{
			name:   "Maximum shares",
			config: Config{Shares: 255, Threshold: 255},
		},
		{
			name:      "Zero shares",
			config:    Config{Shares: 0, Threshold: 1},
			wantError: "shares must be at least 1",
		},
		{
			name:      "Zero threshold",
			config:    Config{Shares: 5, Threshold: 0},
			wantError: "threshold must be at least 1",
		},
		{
			name:      "Threshold greater than shares",
			config:    Config{Shares: 3, Threshold: 5},
			wantError: "cannot be greater than shares",
		},
		{
			name:      "Shares exceeds maximum",
			config:    Config{Shares: 256, Threshold: 100},
			wantError: "cannot exceed 255",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestOptions(t *testing.T) {
	c, err := New(Config{Shares: 3, Threshold: 2})
	require.NoError(t, err)
	assert.Equal(t, runtime.GOMAXPROCS(0), c.workers)
	assert.Equal(t, 3, c.Shares())
	assert.Equal(t, 2, c.Threshold())

	c, err = New(Config{Shares: 3, Threshold: 2, Workers: 8}, WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, 2, c.workers)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, err = New(Config{Shares: 3, Threshold: 2}, WithLogger(logger), WithLogger(nil))
	require.NoError(t, err)

	shares := c.Encode([]byte("logged"))
	_, err = c.Decode(shares[1:])
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "encoded dispersal")
	assert.Contains(t, buf.String(), "decoded dispersal")
}
