package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolOversizedRequestBypassesPool(t *testing.T) {
	p := NewPool()

	h := p.Get(maxPoolSize + 1)
	require.Len(t, h.Space(), maxPoolSize+1)
	require.Nil(t, h.bucket, "an oversized request must not be assigned a bucket")
	h.Release() // must not panic, and must not populate any bucket

	require.Empty(t, p.buckets)
}

func TestPoolBucketRetentionIsBounded(t *testing.T) {
	p := NewPool()

	// Release far more buffers of one size class than maxPooledPerBucket
	// allows; the bucket must never retain more than the bound.
	const n = maxPooledPerBucket * 4
	handles := make([]Handle, n)
	for i := range handles {
		handles[i] = p.Get(16)
	}
	for i := range handles {
		handles[i].Release()
	}

	b := p.bucketFor(16)
	require.LessOrEqual(t, len(b.free), maxPooledPerBucket)
}
