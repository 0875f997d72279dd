// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"context"
	"encoding/hex"
	"strings"
	"time"
)

// readRegisterByName is the internal entry point execution commands use
// to read "pc" without going through the public [Backend] signature.
func (rt *RspTarget) readRegisterByName(ctx context.Context, name string) (uint64, error) {
	return rt.GetReg(ctx, name)
}

// GetReg implements [Backend] via the RSP "p" command.
func (rt *RspTarget) GetReg(ctx context.Context, name string) (uint64, error) {
	desc, err := rt.layout.lookup(name)
	if err != nil {
		return 0, err
	}

	rt.rspLock.Lock()
	rt.pio.Send([]byte("p" + hexval(uint64(desc.Index), 1)))
	reply, ok := rt.pio.Recv(2 * time.Second)
	rt.rspLock.Unlock()

	if !ok || len(reply) == 0 || strings.HasPrefix(string(reply), "E") {
		return 0, &ErrRegisterRead{Name: name, Err: &ErrUnexpectedReply{Command: "p", Reply: string(reply)}}
	}

	val, err := byteOrderInt(string(reply), rt.endian)
	if err != nil {
		return 0, &ErrRegisterRead{Name: name, Err: err}
	}
	return val, nil
}

// WriteReg implements [Backend] via the RSP "P" command.
func (rt *RspTarget) WriteReg(ctx context.Context, name string, val uint64) error {
	desc, err := rt.layout.lookup(name)
	if err != nil {
		return err
	}

	rt.rspLock.Lock()
	rt.pio.Send([]byte("P" + hexval(uint64(desc.Index), 1) + "=" + hexval(val, int(desc.SizeBytes)*2)))
	reply, ok := rt.pio.Recv(2 * time.Second)
	rt.rspLock.Unlock()

	if !ok || string(reply) != "OK" {
		return &ErrUnexpectedReply{Command: "P", Reply: string(reply)}
	}
	return nil
}

// readMemory issues "m<addr>,<size>" and hex-decodes the reply into raw
// bytes in memory order.
func (rt *RspTarget) readMemory(addr uint64, size uint) ([]byte, error) {
	rt.rspLock.Lock()
	rt.pio.Send([]byte("m" + hexAddr(addr, rt.addrSize) + "," + hexval(uint64(size), 1)))
	reply, ok := rt.pio.Recv(2 * time.Second)
	rt.rspLock.Unlock()

	if !ok || len(reply) == 0 || strings.HasPrefix(string(reply), "E") {
		return nil, &ErrUnexpectedReply{Command: "m", Reply: string(reply)}
	}
	raw, err := hex.DecodeString(string(reply))
	if err != nil {
		return nil, &ErrUnexpectedReply{Command: "m", Reply: string(reply)}
	}
	return raw, nil
}

// writeMemory issues "M<addr>,<size>,<hex-val padded to size*2 digits>".
func (rt *RspTarget) writeMemory(addr uint64, val uint64, size uint) error {
	rt.rspLock.Lock()
	rt.pio.Send([]byte("M" + hexAddr(addr, rt.addrSize) + "," + hexval(uint64(size), 1) + "," + hexval(val, int(size)*2)))
	reply, ok := rt.pio.Recv(2 * time.Second)
	rt.rspLock.Unlock()

	if !ok || string(reply) != "OK" {
		return &ErrMemoryWrite{Addr: addr, Size: size, Err: &ErrUnexpectedReply{Command: "M", Reply: string(reply)}}
	}
	return nil
}

// ReadUint8 implements [Backend].
func (rt *RspTarget) ReadUint8(ctx context.Context, addr uint64) (uint8, error) {
	raw, err := rt.readMemory(addr, 1)
	if err != nil {
		return 0, err
	}
	return uint8(decodeBytes(raw, rt.endian)), nil
}

// ReadUint16 implements [Backend].
func (rt *RspTarget) ReadUint16(ctx context.Context, addr uint64) (uint16, error) {
	raw, err := rt.readMemory(addr, 2)
	if err != nil {
		return 0, err
	}
	return uint16(decodeBytes(raw, rt.endian)), nil
}

// ReadUint32 implements [Backend].
func (rt *RspTarget) ReadUint32(ctx context.Context, addr uint64) (uint32, error) {
	raw, err := rt.readMemory(addr, 4)
	if err != nil {
		return 0, err
	}
	return uint32(decodeBytes(raw, rt.endian)), nil
}

// ReadUint64 implements [Backend].
func (rt *RspTarget) ReadUint64(ctx context.Context, addr uint64) (uint64, error) {
	raw, err := rt.readMemory(addr, 8)
	if err != nil {
		return 0, err
	}
	return decodeBytes(raw, rt.endian), nil
}

// WriteUint8 implements [Backend].
func (rt *RspTarget) WriteUint8(ctx context.Context, addr uint64, val uint8) error {
	return rt.writeMemory(addr, uint64(val), 1)
}

// WriteUint16 implements [Backend].
func (rt *RspTarget) WriteUint16(ctx context.Context, addr uint64, val uint16) error {
	return rt.writeMemory(addr, uint64(val), 2)
}

// WriteUint32 implements [Backend].
func (rt *RspTarget) WriteUint32(ctx context.Context, addr uint64, val uint32) error {
	return rt.writeMemory(addr, uint64(val), 4)
}

// WriteUint64 implements [Backend].
func (rt *RspTarget) WriteUint64(ctx context.Context, addr uint64, val uint64) error {
	return rt.writeMemory(addr, val, 8)
}
