//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
//

package monk

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/safeconn"
)

// Dialer abstracts the [*net.Dialer] behavior.
//
// By depending on an abstract implementation, [dial] allows for unit
// testing and for using alternative dialers (e.g. one that enforces a
// connect timeout or resolves through a proxy).
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// dial connects to cfg.Host:cfg.Port over TCP, logging the attempt and
// its outcome, and wrapping a failure as [ErrConnect].
func dial(ctx context.Context, cfg *Config) (net.Conn, error) {
	address := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	t0 := cfg.TimeNow()
	deadline, _ := ctx.Deadline()
	logConnectStart(cfg.Logger, address, t0, deadline)
	conn, err := cfg.Dialer.DialContext(ctx, "tcp", address)
	logConnectDone(cfg.Logger, cfg.ErrClassifier, address, t0, cfg.TimeNow(), deadline, conn, err)
	if err != nil {
		return nil, &ErrConnect{Host: cfg.Host, Port: cfg.Port, Err: err}
	}
	return conn, nil
}

func logConnectStart(logger SLogger, address string, t0, deadline time.Time) {
	logger.Info(
		"connectStart",
		slog.Time("deadline", deadline),
		slog.String("protocol", "tcp"),
		slog.String("remoteAddr", address),
		slog.Time("t0", t0),
	)
}

func logConnectDone(
	logger SLogger, classifier ErrClassifier, address string,
	t0, t, deadline time.Time, conn net.Conn, err error) {
	logger.Info(
		"connectDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", classifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", "tcp"),
		slog.String("remoteAddr", address),
		slog.Time("t0", t0),
		slog.Time("t", t),
	)
}
