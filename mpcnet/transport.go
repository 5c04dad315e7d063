// Package mpcnet is the network collaborator boundary of the protocol
// engine: ordered, authenticated point-to-point message delivery between
// parties. The core treats it as fail-stop; retries and reconnects belong
// below this interface.
package mpcnet

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrPeerTimeout is returned when an expected peer message does not
	// arrive within the configured round timeout.
	ErrPeerTimeout = errors.New("mpcnet: peer timeout")

	// ErrRoundMismatch signals a protocol violation: a received message is
	// tagged with a round sequence number the receiver is not waiting for.
	ErrRoundMismatch = errors.New("mpcnet: round sequence mismatch")
)

// Transport delivers ordered messages between a fixed set of parties.
// Every message carries the sender's round sequence number so replays and
// reordering are unambiguous; Receive fails with ErrRoundMismatch when the
// next message from a peer belongs to a different round.
type Transport interface {
	PartyID() int
	NumParties() int

	// Send delivers payload to party `to`, tagged with the given round.
	Send(ctx context.Context, to int, round uint64, payload []byte) error

	// Receive blocks until the next message from party `from` arrives and
	// checks it against the expected round.
	Receive(ctx context.Context, from int, round uint64) ([]byte, error)

	Close() error
}
