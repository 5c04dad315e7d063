package mpc

import (
	"context"
	"io"
	"sort"
	"sync"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/collabzk/co-groth16/mpcnet"
)

// Driver is the capability set a secure-computation backend must provide:
// secure multiplication, shared randomness, and opening. The circuit
// evaluator and proof assembler depend only on this contract; swapping
// backends never changes their code. Linear operations live as package
// functions (Add, MulPublic, FFT, MSMG1, ...) and need no driver.
type Driver interface {
	PartyID() int
	NumParties() int
	Threshold() int

	// PromotePublic deterministically turns a public constant into a valid
	// share of it, identically at every party. No randomness, no messages.
	PromotePublic(v fr.Element) Share

	// AddPublic adds a public constant to a share. Local.
	AddPublic(a Share, v fr.Element) Share

	// MulVec computes shares of the pairwise products a[i]*b[i] in exactly
	// one communication round, regardless of vector length. This is the
	// unit of "one MPC round".
	MulVec(ctx context.Context, a, b []Share) ([]Share, error)

	// RandShares produces n shares of unknown, uniformly random values,
	// used for proof blinding. Backends may serve these from pre-generated
	// correlated randomness; per-invocation interaction is not required
	// beyond setup or batched refills.
	RandShares(ctx context.Context, n int) ([]Share, error)

	// Open reconstructs a shared value in one exchange. Redundant share
	// material is cross-checked; disagreement fails with ErrOpenMismatch.
	Open(ctx context.Context, s Share) (fr.Element, error)
	OpenVec(ctx context.Context, s []Share) ([]fr.Element, error)

	// OpenG1Vec and OpenG2 reconstruct shared group elements, used for the
	// final combination of proof elements.
	OpenG1Vec(ctx context.Context, ps []G1Share) ([]curve.G1Affine, error)
	OpenG2(ctx context.Context, p G2Share) (curve.G2Affine, error)

	// Rounds reports how many message-bearing rounds this driver has
	// issued, for round-count regression tests.
	Rounds() int
}

// Scheme is the offline half of a protocol: dealer-side splitting and
// reconstruction, with no network attached. Used by the witness splitter
// and by verification tooling.
type Scheme interface {
	// Validate checks a party-count/threshold combination, failing with
	// ErrInvalidThreshold before anything else runs.
	Validate(n, t int) error

	// Split shares one value among n parties. Fresh randomness must be
	// drawn from rng on every call.
	Split(v fr.Element, n, t int, rng io.Reader) ([]Share, error)

	// Reconstruct recovers the secret from the shares of the given
	// parties (party index -> share). Fails with ErrInsufficientShares
	// below the threshold and ErrInconsistentShares when redundant share
	// material disagrees.
	Reconstruct(shares map[int]Share, n, t int) (fr.Element, error)
}

// Config carries the per-process protocol parameters a backend needs at
// construction time.
type Config struct {
	PartyID    int
	NumParties int
	Threshold  int

	// Rng sources local secret randomness. crypto/rand in production,
	// injectable for reproducible tests.
	Rng io.Reader
}

// Protocol couples a scheme with its online driver constructor under the
// registry name used by the --protocol flag.
type Protocol struct {
	Name      string
	Scheme    Scheme
	NewDriver func(ctx context.Context, transport mpcnet.Transport, cfg Config) (Driver, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Protocol{}
)

// Register installs a protocol backend. Called from backend package init.
func Register(p Protocol) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[p.Name]; dup {
		panic("mpc: duplicate protocol " + p.Name)
	}
	registry[p.Name] = p
}

// Lookup resolves a protocol selector string. Unknown names fail with
// ErrUnsupportedProtocol; callers resolve before touching the network.
func Lookup(name string) (Protocol, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[name]
	if !ok {
		return Protocol{}, errors.Wrapf(ErrUnsupportedProtocol, "%q (supported: %v)", name, protocolNames())
	}
	return p, nil
}

func protocolNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
