// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"net"
	"time"
)

// Config holds common configuration for connecting to a gdbstub.
//
// Pass this to [Connect] to pre-wire dependencies. All fields have
// sensible defaults set by [NewConfig] and are safe to override before
// calling [Connect].
type Config struct {
	// Host is the gdbstub's TCP host, set by [NewConfig] from its argument.
	Host string

	// Port is the gdbstub's TCP port, set by [NewConfig] from its argument.
	Port uint16

	// Dialer is used by [Connect] to establish the TCP connection.
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// Logger receives structured logs from every component.
	//
	// Set by [NewConfig] to [DefaultSLogger].
	Logger SLogger

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time

	// Endian is the target's byte order, used when decoding register
	// and memory values.
	//
	// Set by [NewConfig] to [LittleEndian].
	Endian Endian

	// AddrSize is the target's address size in bytes, used when
	// formatting addresses in RSP commands.
	//
	// Set by [NewConfig] to 4.
	AddrSize uint
}

// NewConfig creates a [*Config] for the gdbstub listening at host:port,
// with sensible defaults for everything else.
func NewConfig(host string, port uint16) *Config {
	return &Config{
		Host:          host,
		Port:          port,
		Dialer:        &net.Dialer{},
		ErrClassifier: DefaultErrClassifier,
		Logger:        DefaultSLogger(),
		TimeNow:       time.Now,
		Endian:        LittleEndian,
		AddrSize:      4,
	}
}
