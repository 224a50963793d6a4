package machine_test

import (
	"testing"

	"github.com/lumen-lang/lumen/lang/machine"
	"github.com/stretchr/testify/require"
)

func TestPoolGetReleaseRoundTrip(t *testing.T) {
	p := machine.NewPool()

	h := p.Get(10)
	space := h.Space()
	require.Len(t, space, 10)
	space[0] = machine.String("marker")
	h.Release()

	h2 := p.Get(10)
	require.Len(t, h2.Space(), 10)
	h2.Release()
}

func TestPoolZeroSizeIsNoop(t *testing.T) {
	p := machine.NewPool()
	h := p.Get(0)
	require.Nil(t, h.Space())
	h.Release() // must not panic on an empty handle
}

func TestPoolReleaseClearsReferences(t *testing.T) {
	p := machine.NewPool()

	h := p.Get(4)
	space := h.Space()
	space[0] = machine.String("should not leak")
	h.Release()

	// Rent enough buffers of the same size class to make reuse of the
	// released backing array overwhelmingly likely, then confirm no stale
	// value survived the release.
	for i := 0; i < 8; i++ {
		h2 := p.Get(4)
		for _, v := range h2.Space() {
			require.Nil(t, v)
		}
		h2.Release()
	}
}

func TestPoolSizeClassesDoNotCollide(t *testing.T) {
	p := machine.NewPool()

	small := p.Get(8)
	require.Len(t, small.Space(), 8)
	small.Release()

	large := p.Get(200)
	require.Len(t, large.Space(), 200)
	large.Release()
}
