// SPDX-License-Identifier: GPL-3.0-or-later

// Package monk provides programmatic debug control of a remote target CPU
// reached through the GDB Remote Serial Protocol (RSP).
//
// # Core Abstraction
//
// Three layers compose to form the public surface:
//
//   - [PacketIO]: a framed, checksummed, acknowledged duplex byte channel to a
//     gdbstub over a TCP connection. Two background goroutines (sender,
//     receiver) move bytes; stop-reply packets are routed to a separate queue
//     from data packets.
//   - [RspTarget]: a stateful controller over one [PacketIO]. It serializes
//     RSP commands, tracks run/stop state, negotiates features, discovers the
//     register layout, and arbitrates breakpoints against the asynchronous
//     stop-event stream. [RspTarget] implements [Backend].
//   - [CallbackManager]: per-address, per-event-kind registries of user
//     callbacks layered over a [Backend]. First registration at an address
//     installs a breakpoint; last removal removes it. Callbacks run on
//     short-lived goroutines, strictly ordered and never concurrent with each
//     other or with the next stop event.
//
// [Target] composes a [Backend] and a [CallbackManager] into the single
// object most callers want: reads, writes, run/stop/step, and hook
// installation.
//
// # Connecting
//
//	cfg := monk.NewConfig("127.0.0.1", 1234)
//	ctx := context.Background()
//	tgt, err := monk.ConnectTarget(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer tgt.Shutdown(ctx)
//
//	h, _ := tgt.OnExecute(ctx, 0x4000, func(addr uint64) {
//		fmt.Printf("hit breakpoint at %#x\n", addr)
//	})
//	defer tgt.RemoveCallback(ctx, h)
//
// # Concurrency
//
// Exactly three long-lived goroutines exist per connection: the [PacketIO]
// reader, the [PacketIO] writer, and the [RspTarget] stop-event loop. Each
// callback invocation runs on its own short-lived goroutine, which the
// [CallbackManager] joins before starting the next — this is what keeps a
// callback from being mistaken for the event goroutine by [RspTarget]'s
// thread-ownership guard, and it is also why execution commands
// ([RspTarget.CmdContinue], [RspTarget.CmdStep], [RspTarget.CmdStop]) fail
// with [ErrNotOwningThread] when called from inside a callback.
//
// Only the goroutine that called [Connect] (the owner) and the stop-event
// loop may call execution commands; only the owner may call
// [RspTarget.Close].
//
// # Observability
//
// All components support structured logging via [SLogger] (compatible with
// [log/slog]). By default, logging is disabled — set [Config.Logger] to a
// custom [*slog.Logger] to enable it. Error classification is configurable
// via [ErrClassifier]; the default classifies OS-level socket errors.
//
// Protocol checkpoints (packet send/recv, execution commands,
// unrecognized stops, callback registration, breakpoint re-arm) emit
// [slog.LevelDebug] records; lock acquisition is not logged. Only the
// TCP connect emits [slog.LevelInfo] records, a connectStart/connectDone
// pair carrying t0, t, err, and errClass. [NewSpanID] returns an ID a
// caller can attach to [Config.Logger] to correlate every log line from
// one [RspTarget] connection; the package does not attach one itself.
//
// # Design Boundaries
//
// This package does not resolve symbols from DWARF/JSON debug files, read
// target-OS process lists, implement high-level callback subclasses, load
// configuration from files, or provide a CLI. [Struct] and [StructLayout]
// give a caller who already has field offsets (from whatever symbol source
// it chooses) a way to read and write named, possibly bitfield, struct
// members through a [Backend].
package monk
