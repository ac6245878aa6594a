package busx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paneruntime/workbench/internal/busx"
	"github.com/paneruntime/workbench/internal/events"
)

func envelope(seq uint64) events.Envelope {
	return events.Envelope{
		Source: events.SourceFilesystem,
		Seq:    seq,
		Event:  events.WorktreeRegistered{},
	}
}

func TestBusFIFOPerSubscriber(t *testing.T) {
	b := busx.New()
	sub := b.Subscribe(busx.Unbounded())

	for i := uint64(0); i < 5; i++ {
		b.Post(envelope(i))
	}

	for i := uint64(0); i < 5; i++ {
		env, ok := sub.TryRecv()
		require.True(t, ok)
		require.Equal(t, i, env.Seq)
	}
}

// TestBusBackpressure matches spec §8 scenario 7: BufferingNewest(4),
// 10 posts without draining -> dropped sums to 6, buffer holds the newest
// 4 envelopes (7..10, 0-indexed here as 6..9) in FIFO order.
func TestBusBackpressure(t *testing.T) {
	b := busx.New()
	sub := b.Subscribe(busx.BufferingNewest(4))

	var totalDropped uint32
	for i := uint64(0); i < 10; i++ {
		report := b.Post(envelope(i))
		totalDropped += report.Dropped
		require.EqualValues(t, 1, report.Delivered)
	}
	require.EqualValues(t, 6, totalDropped)

	var got []uint64
	for {
		env, ok := sub.TryRecv()
		if !ok {
			break
		}
		got = append(got, env.Seq)
	}
	require.Equal(t, []uint64{6, 7, 8, 9}, got)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	b := busx.New()
	sub := b.Subscribe(busx.Unbounded())
	sub.Cancel()

	report := b.Post(envelope(0))
	require.Zero(t, report.Delivered)
	require.Zero(t, b.SubscriberCount())
}

func TestBusMultipleSubscribersIndependent(t *testing.T) {
	b := busx.New()
	a := b.Subscribe(busx.Unbounded())
	c := b.Subscribe(busx.BufferingNewest(1))

	b.Post(envelope(1))
	b.Post(envelope(2))

	envA, ok := a.TryRecv()
	require.True(t, ok)
	require.EqualValues(t, 1, envA.Seq)

	envC, ok := c.TryRecv()
	require.True(t, ok)
	require.EqualValues(t, 2, envC.Seq) // only the newest survived the cap-1 buffer
}
