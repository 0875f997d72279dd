// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("127.0.0.1", 1234)

	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, uint16(1234), cfg.Port)

	// Dialer should be set to *net.Dialer
	_, ok := cfg.Dialer.(*net.Dialer)
	assert.True(t, ok, "Dialer should be *net.Dialer")

	// ErrClassifier should use errclass by default
	assert.Equal(t, "", cfg.ErrClassifier.Classify(nil))
	assert.Equal(t, "ETIMEDOUT", cfg.ErrClassifier.Classify(context.DeadlineExceeded))

	// Logger should default to a no-op SLogger
	assert.NotNil(t, cfg.Logger)

	// TimeNow should be set and return a valid time
	now := cfg.TimeNow()
	assert.False(t, now.IsZero())

	assert.Equal(t, LittleEndian, cfg.Endian)
	assert.Equal(t, uint(4), cfg.AddrSize)
}
