package mpcnet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMockSendReceive(t *testing.T) {
	net := NewMockNetwork(2)
	ctx := context.Background()

	require.NoError(t, net[0].Send(ctx, 1, 1, []byte("hello")))
	got, err := net[1].Receive(ctx, 0, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestMockRoundMismatch(t *testing.T) {
	net := NewMockNetwork(2)
	ctx := context.Background()

	require.NoError(t, net[0].Send(ctx, 1, 5, []byte("late")))
	_, err := net[1].Receive(ctx, 0, 4)
	require.ErrorIs(t, err, ErrRoundMismatch)
}

func TestMockReceiveTimeout(t *testing.T) {
	net := NewMockNetwork(2)
	net[1].SetTimeout(20 * time.Millisecond)

	_, err := net[1].Receive(context.Background(), 0, 1)
	require.ErrorIs(t, err, ErrPeerTimeout)
}

func TestMockRejectsSelfAndOutOfRange(t *testing.T) {
	net := NewMockNetwork(2)
	ctx := context.Background()

	require.Error(t, net[0].Send(ctx, 0, 1, nil))
	require.Error(t, net[0].Send(ctx, 5, 1, nil))
	_, err := net[0].Receive(ctx, 0, 1)
	require.Error(t, err)
}
