// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dial connects using cfg.Dialer and wraps a failure as [ErrConnect].
func TestDial(t *testing.T) {
	tests := []struct {
		// name describes what this test case verifies.
		name string

		// dialer is the mock dialer to use.
		dialer *netstub.FuncDialer

		// wantErr indicates whether we expect an error.
		wantErr bool
	}{
		{
			name: "successful connect",
			dialer: &netstub.FuncDialer{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					conn := newMinimalConn()
					conn.CloseFunc = func() error { return nil }
					return conn, nil
				},
			},
			wantErr: false,
		},

		{
			name: "dial error",
			dialer: &netstub.FuncDialer{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					return nil, errors.New("connection refused")
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("127.0.0.1", 1234)
			cfg.Dialer = tt.dialer

			conn, err := dial(context.Background(), cfg)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, conn)
				var connectErr *ErrConnect
				require.ErrorAs(t, err, &connectErr)
				assert.Equal(t, "127.0.0.1", connectErr.Host)
				assert.Equal(t, uint16(1234), connectErr.Port)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, conn)
			conn.Close()
		})
	}
}

// dial propagates the caller's context to the dialer.
func TestDialContextTransparency(t *testing.T) {
	cfg := NewConfig("127.0.0.1", 1234)
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.New("should not reach here")
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	time.Sleep(10 * time.Millisecond)
	defer cancel()

	_, err := dial(ctx, cfg)
	require.Error(t, err)
}

// dial emits connectStart/connectDone log events.
func TestDialLogging(t *testing.T) {
	logger, records := newCapturingLogger()

	cfg := NewConfig("127.0.0.1", 1234)
	cfg.Logger = logger
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			conn := newMinimalConn()
			conn.CloseFunc = func() error { return nil }
			return conn, nil
		},
	}

	conn, err := dial(context.Background(), cfg)
	require.NoError(t, err)
	conn.Close()

	require.Len(t, *records, 2)
	assert.Equal(t, "connectStart", (*records)[0].Message)
	assert.Equal(t, "connectDone", (*records)[1].Message)
}
