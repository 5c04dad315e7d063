package mpcnet

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type mockMessage struct {
	round   uint64
	payload []byte
}

// MockTransport is an in-memory Transport for tests and local simulation.
// All parties live in one process and exchange messages over buffered
// channels, one channel per ordered peer pair.
type MockTransport struct {
	id      int
	n       int
	inbox   []chan mockMessage // indexed by sender
	outbox  [][]chan mockMessage
	delay   time.Duration
	timeout time.Duration
}

// NewMockNetwork wires up n fully connected in-memory transports.
func NewMockNetwork(n int) []*MockTransport {
	// boxes[s][r] carries messages from party s to party r.
	boxes := make([][]chan mockMessage, n)
	for s := 0; s < n; s++ {
		boxes[s] = make([]chan mockMessage, n)
		for r := 0; r < n; r++ {
			boxes[s][r] = make(chan mockMessage, 64)
		}
	}
	ts := make([]*MockTransport, n)
	for i := 0; i < n; i++ {
		inbox := make([]chan mockMessage, n)
		for s := 0; s < n; s++ {
			inbox[s] = boxes[s][i]
		}
		ts[i] = &MockTransport{
			id:      i,
			n:       n,
			inbox:   inbox,
			outbox:  boxes,
			timeout: 10 * time.Second,
		}
	}
	return ts
}

// SetDelay makes every Send from this party sleep first, to exercise the
// property that message timing below the timeout never changes results.
func (t *MockTransport) SetDelay(d time.Duration) { t.delay = d }

// SetTimeout overrides the receive timeout.
func (t *MockTransport) SetTimeout(d time.Duration) { t.timeout = d }

func (t *MockTransport) PartyID() int    { return t.id }
func (t *MockTransport) NumParties() int { return t.n }

func (t *MockTransport) Send(ctx context.Context, to int, round uint64, payload []byte) error {
	if to < 0 || to >= t.n || to == t.id {
		return errors.Errorf("mpcnet: invalid receiver %d", to)
	}
	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	select {
	case t.outbox[t.id][to] <- mockMessage{round: round, payload: cp}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *MockTransport) Receive(ctx context.Context, from int, round uint64) ([]byte, error) {
	if from < 0 || from >= t.n || from == t.id {
		return nil, errors.Errorf("mpcnet: invalid sender %d", from)
	}
	select {
	case msg := <-t.inbox[from]:
		if msg.round != round {
			return nil, errors.Wrapf(ErrRoundMismatch, "party %d: got round %d from %d, want %d", t.id, msg.round, from, round)
		}
		return msg.payload, nil
	case <-time.After(t.timeout):
		return nil, errors.Wrapf(ErrPeerTimeout, "party %d: waiting for party %d round %d", t.id, from, round)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *MockTransport) Close() error { return nil }
