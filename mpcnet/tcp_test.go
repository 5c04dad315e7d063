package mpcnet

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// freePorts reserves n distinct loopback ports. Racy in principle, fine
// for a test that binds them again immediately.
func freePorts(t *testing.T, n int) []string {
	t.Helper()
	addrs := make([]string, n)
	for i := 0; i < n; i++ {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addrs[i] = ln.Addr().String()
		defer ln.Close()
	}
	return addrs
}

func meshConfigs(addrs []string) []*PartyConfig {
	n := len(addrs)
	cfgs := make([]*PartyConfig, n)
	for i := 0; i < n; i++ {
		cfg := &PartyConfig{ID: i, Bind: addrs[i], TimeoutMS: 5000}
		for j := 0; j < n; j++ {
			if j != i {
				cfg.Peers = append(cfg.Peers, PeerConfig{ID: j, Address: addrs[j]})
			}
		}
		cfgs[i] = cfg
	}
	return cfgs
}

func dialMesh(t *testing.T, cfgs []*PartyConfig) []*TCPTransport {
	t.Helper()
	n := len(cfgs)
	transports := make([]*TCPTransport, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			tr, err := DialTCP(ctx, cfgs[i])
			transports[i] = tr
			return err
		})
	}
	require.NoError(t, g.Wait())
	return transports
}

func TestTCPMeshExchange(t *testing.T) {
	addrs := freePorts(t, 3)
	transports := dialMesh(t, meshConfigs(addrs))
	defer func() {
		for _, tr := range transports {
			tr.Close()
		}
	}()

	// every party sends its id to every peer in round 1
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 3; i++ {
		i := i
		g.Go(func() error {
			for j := 0; j < 3; j++ {
				if j == i {
					continue
				}
				if err := transports[i].Send(ctx, j, 1, []byte{byte(i)}); err != nil {
					return err
				}
			}
			for j := 0; j < 3; j++ {
				if j == i {
					continue
				}
				data, err := transports[i].Receive(ctx, j, 1)
				if err != nil {
					return err
				}
				if len(data) != 1 || data[0] != byte(j) {
					return fmt.Errorf("party %d: bad payload from %d: %v", i, j, data)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestTCPRoundMismatch(t *testing.T) {
	addrs := freePorts(t, 2)
	transports := dialMesh(t, meshConfigs(addrs))
	defer func() {
		for _, tr := range transports {
			tr.Close()
		}
	}()

	ctx := context.Background()
	require.NoError(t, transports[0].Send(ctx, 1, 7, []byte("x")))
	_, err := transports[1].Receive(ctx, 0, 6)
	require.ErrorIs(t, err, ErrRoundMismatch)
}

func TestTCPReceiveTimeout(t *testing.T) {
	addrs := freePorts(t, 2)
	cfgs := meshConfigs(addrs)
	for _, cfg := range cfgs {
		cfg.TimeoutMS = 100
	}
	transports := dialMesh(t, cfgs)
	defer func() {
		for _, tr := range transports {
			tr.Close()
		}
	}()

	_, err := transports[1].Receive(context.Background(), 0, 1)
	require.ErrorIs(t, err, ErrPeerTimeout)
}

func TestTCPLargeFrame(t *testing.T) {
	addrs := freePorts(t, 2)
	transports := dialMesh(t, meshConfigs(addrs))
	defer func() {
		for _, tr := range transports {
			tr.Close()
		}
	}()

	payload := make([]byte, 1<<20)
	for i := range payload {
		payload[i] = byte(i)
	}
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return transports[0].Send(ctx, 1, 3, payload) })
	var got []byte
	g.Go(func() error {
		var err error
		got, err = transports[1].Receive(ctx, 0, 3)
		return err
	})
	require.NoError(t, g.Wait())
	require.Equal(t, payload, got)
}
