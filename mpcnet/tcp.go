package mpcnet

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// TCPTransport connects the party mesh over plain TCP. Each ordered peer
// pair shares one connection; TCP ordering plus the round sequence tag give
// the ordered delivery the protocol requires. Authentication of the links
// is assumed from the deployment (private network, mTLS terminator, ...).
type TCPTransport struct {
	id      int
	n       int
	timeout time.Duration

	mu    sync.Mutex
	conns []net.Conn // indexed by peer id
	ln    net.Listener
}

// frame layout: round uint64 | length uint32 | payload
const frameHeaderLen = 12

// DialTCP establishes the full mesh described by cfg. Parties dial every
// lower-indexed peer and accept from every higher-indexed one, so exactly
// one connection exists per pair. The first bytes on a fresh connection are
// the dialer's id, which pins each accepted socket to a peer.
func DialTCP(ctx context.Context, cfg *PartyConfig) (*TCPTransport, error) {
	n := cfg.NumParties()
	t := &TCPTransport{
		id:      cfg.ID,
		n:       n,
		timeout: cfg.Timeout(),
		conns:   make([]net.Conn, n),
	}

	addrs := make(map[int]string, len(cfg.Peers))
	for _, p := range cfg.Peers {
		addrs[p.ID] = p.Address
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.ID < n-1 {
		ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.Bind)
		if err != nil {
			return nil, errors.Wrap(err, "mpcnet: listen")
		}
		t.ln = ln
		expected := n - 1 - cfg.ID
		g.Go(func() error {
			for i := 0; i < expected; i++ {
				conn, err := ln.Accept()
				if err != nil {
					return errors.Wrap(err, "mpcnet: accept")
				}
				var hello [4]byte
				conn.SetReadDeadline(time.Now().Add(t.timeout))
				if _, err := io.ReadFull(conn, hello[:]); err != nil {
					conn.Close()
					return errors.Wrap(err, "mpcnet: handshake read")
				}
				conn.SetReadDeadline(time.Time{})
				peer := int(binary.BigEndian.Uint32(hello[:]))
				if peer <= cfg.ID || peer >= n {
					conn.Close()
					return errors.Errorf("mpcnet: unexpected handshake from party %d", peer)
				}
				t.mu.Lock()
				dup := t.conns[peer] != nil
				if !dup {
					t.conns[peer] = conn
				}
				t.mu.Unlock()
				if dup {
					conn.Close()
					return errors.Errorf("mpcnet: duplicate connection from party %d", peer)
				}
			}
			return nil
		})
	}

	for peer := 0; peer < cfg.ID; peer++ {
		peer := peer
		g.Go(func() error {
			d := net.Dialer{Timeout: t.timeout}
			var conn net.Conn
			var err error
			// the peer's listener may come up after us
			for deadline := time.Now().Add(t.timeout); time.Now().Before(deadline); {
				conn, err = d.DialContext(ctx, "tcp", addrs[peer])
				if err == nil {
					break
				}
				select {
				case <-time.After(100 * time.Millisecond):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if conn == nil {
				return errors.Wrapf(err, "mpcnet: dialing party %d", peer)
			}
			var hello [4]byte
			binary.BigEndian.PutUint32(hello[:], uint32(cfg.ID))
			if _, err := conn.Write(hello[:]); err != nil {
				conn.Close()
				return errors.Wrap(err, "mpcnet: handshake write")
			}
			t.mu.Lock()
			t.conns[peer] = conn
			t.mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func (t *TCPTransport) PartyID() int    { return t.id }
func (t *TCPTransport) NumParties() int { return t.n }

func (t *TCPTransport) conn(peer int) (net.Conn, error) {
	if peer < 0 || peer >= t.n || peer == t.id {
		return nil, errors.Errorf("mpcnet: invalid peer %d", peer)
	}
	t.mu.Lock()
	conn := t.conns[peer]
	t.mu.Unlock()
	if conn == nil {
		return nil, errors.Errorf("mpcnet: no connection to party %d", peer)
	}
	return conn, nil
}

func (t *TCPTransport) Send(ctx context.Context, to int, round uint64, payload []byte) error {
	conn, err := t.conn(to)
	if err != nil {
		return err
	}
	header := make([]byte, frameHeaderLen)
	binary.BigEndian.PutUint64(header[0:8], round)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(payload)))
	conn.SetWriteDeadline(time.Now().Add(t.timeout))
	if _, err := conn.Write(header); err != nil {
		return errors.Wrapf(err, "mpcnet: send header to party %d", to)
	}
	if _, err := conn.Write(payload); err != nil {
		return errors.Wrapf(err, "mpcnet: send payload to party %d", to)
	}
	return nil
}

func (t *TCPTransport) Receive(ctx context.Context, from int, round uint64) ([]byte, error) {
	conn, err := t.conn(from)
	if err != nil {
		return nil, err
	}
	conn.SetReadDeadline(time.Now().Add(t.timeout))
	header := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(conn, header); err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return nil, errors.Wrapf(ErrPeerTimeout, "party %d: waiting for party %d round %d", t.id, from, round)
		}
		return nil, errors.Wrapf(err, "mpcnet: receive header from party %d", from)
	}
	got := binary.BigEndian.Uint64(header[0:8])
	if got != round {
		return nil, errors.Wrapf(ErrRoundMismatch, "party %d: got round %d from %d, want %d", t.id, got, from, round)
	}
	payload := make([]byte, binary.BigEndian.Uint32(header[8:12]))
	if _, err := io.ReadFull(conn, payload); err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return nil, errors.Wrapf(ErrPeerTimeout, "party %d: waiting for party %d round %d", t.id, from, round)
		}
		return nil, errors.Wrapf(err, "mpcnet: receive payload from party %d", from)
	}
	return payload, nil
}

func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ln != nil {
		t.ln.Close()
	}
	for i, c := range t.conns {
		if c != nil {
			c.Close()
			t.conns[i] = nil
		}
	}
	return nil
}
