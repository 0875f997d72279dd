// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetForwardsToBackend(t *testing.T) {
	backend := &fakeBackend{}
	target := NewTarget(backend, nil)
	ctx := context.Background()

	h, err := target.OnRead(ctx, 0x1000, 0, func(uint64) {})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x1000}, backend.setReadCalls)

	require.NoError(t, target.RemoveCallback(ctx, h))
	assert.Equal(t, []uint64{0x1000}, backend.delReadCalls)
}

// RemoveCallback swallows breakpoint-remove failures from the backend,
// since the façade's contract ("this hook no longer fires") holds
// regardless of whether the stub's remove call reports success.
func TestTargetSuppressesBreakpointRemoveError(t *testing.T) {
	backend := &failingRemoveBackend{fakeBackend: &fakeBackend{}}
	target := NewTarget(backend, nil)
	ctx := context.Background()

	h, err := target.OnExecute(ctx, 0x2000, func(uint64) {})
	require.NoError(t, err)

	err = target.RemoveCallback(ctx, h)
	assert.NoError(t, err)
}

type failingRemoveBackend struct {
	*fakeBackend
}

func (b *failingRemoveBackend) DelExecBreakpoint(ctx context.Context, addr uint64) error {
	return &ErrBreakpointRemove{Kind: BreakpointSWExec, Addr: addr, Err: assertErrorSentinel}
}

var assertErrorSentinel = &ErrUnexpectedReply{Command: "z0", Reply: "E01"}

func TestTargetShutdownDelegatesToBackend(t *testing.T) {
	backend := &fakeBackend{}
	target := NewTarget(backend, nil)
	require.NoError(t, target.Shutdown(context.Background()))
}
