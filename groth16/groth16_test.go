package groth16

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/collabzk/co-groth16/mpc"
	"github.com/collabzk/co-groth16/mpc/rep3"
	"github.com/collabzk/co-groth16/mpc/shamir"
	"github.com/collabzk/co-groth16/mpcnet"
	"github.com/collabzk/co-groth16/r1cs"
)

func term(wire int, coeff uint64) r1cs.Term {
	var t r1cs.Term
	t.Wire = wire
	t.Coeff.SetUint64(coeff)
	return t
}

// cubicCircuit encodes x^3 + x + 5 = y.
// Wires: 0 constant, 1 y (public), 2 x, 3 x^2, 4 x^3.
func cubicCircuit() *r1cs.R1CS {
	return &r1cs.R1CS{
		NbWires:  5,
		NbPublic: 1,
		Constraints: []r1cs.Constraint{
			{L: []r1cs.Term{term(2, 1)}, R: []r1cs.Term{term(2, 1)}, O: []r1cs.Term{term(3, 1)}},
			{L: []r1cs.Term{term(3, 1)}, R: []r1cs.Term{term(2, 1)}, O: []r1cs.Term{term(4, 1)}},
			{L: []r1cs.Term{term(4, 1), term(2, 1), term(0, 5)}, R: []r1cs.Term{term(0, 1)}, O: []r1cs.Term{term(1, 1)}},
		},
	}
}

func cubicWitness(x uint64) []fr.Element {
	w := make([]fr.Element, 5)
	w[0].SetOne()
	w[2].SetUint64(x)
	var five fr.Element
	five.SetUint64(5)
	w[3].Mul(&w[2], &w[2])
	w[4].Mul(&w[3], &w[2])
	w[1].Add(&w[4], &w[2]).Add(&w[1], &five)
	return w
}

// dealShares splits the covered witness prefix into per-party share
// vectors of full wire length.
func dealShares(t *testing.T, proto mpc.Protocol, n, threshold, nbWires int, plain []fr.Element, covered int) [][]mpc.Share {
	t.Helper()
	perParty := make([][]mpc.Share, n)
	for i := range perParty {
		perParty[i] = make([]mpc.Share, nbWires)
	}
	for k := 0; k < covered; k++ {
		shares, err := proto.Scheme.Split(plain[k], n, threshold, rand.Reader)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			perParty[i][k] = shares[i]
		}
	}
	return perParty
}

// proveSession splits the witness prefix, runs every party of a proving
// session over an in-memory network and returns the per-party proofs.
func proveSession(t *testing.T, proto mpc.Protocol, n, threshold int, cs *r1cs.R1CS, pk *ProvingKey, plain []fr.Element, covered int) []*Proof {
	t.Helper()
	perParty := dealShares(t, proto, n, threshold, cs.NbWires, plain, covered)

	net := mpcnet.NewMockNetwork(n)
	proofs := make([]*Proof, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			drv, err := proto.NewDriver(ctx, net[i], mpc.Config{
				PartyID: i, NumParties: n, Threshold: threshold, Rng: rand.Reader,
			})
			if err != nil {
				return err
			}
			proof, err := NewProver(drv, pk).Prove(ctx, cs, perParty[i], covered)
			proofs[i] = proof
			return err
		})
	}
	require.NoError(t, g.Wait())
	return proofs
}

func rep3Protocol() mpc.Protocol {
	return mpc.Protocol{Name: "rep3", Scheme: rep3.Scheme{}, NewDriver: rep3.NewDriver}
}

func shamirProtocol() mpc.Protocol {
	return mpc.Protocol{Name: "shamir", Scheme: shamir.Scheme{}, NewDriver: shamir.NewDriver}
}

func TestCollaborativeProofRep3(t *testing.T) {
	cs := cubicCircuit()
	pk, vk, err := Setup(cs, rand.Reader)
	require.NoError(t, err)

	plain := cubicWitness(3)
	proofs := proveSession(t, rep3Protocol(), 3, 1, cs, pk, plain, cs.NbWires)

	// every party assembles the identical proof
	for i := 1; i < 3; i++ {
		require.True(t, proofs[0].Ar.Equal(&proofs[i].Ar))
		require.True(t, proofs[0].Bs.Equal(&proofs[i].Bs))
		require.True(t, proofs[0].Krs.Equal(&proofs[i].Krs))
	}

	public := []fr.Element{plain[1]}
	require.NoError(t, Verify(proofs[0], vk, public))
}

func TestCollaborativeProofShamir(t *testing.T) {
	cs := cubicCircuit()
	pk, vk, err := Setup(cs, rand.Reader)
	require.NoError(t, err)

	plain := cubicWitness(7)
	proofs := proveSession(t, shamirProtocol(), 3, 1, cs, pk, plain, cs.NbWires)

	public := []fr.Element{plain[1]}
	require.NoError(t, Verify(proofs[0], vk, public))
}

func TestProveFromInputSharesOnly(t *testing.T) {
	cs := cubicCircuit()
	pk, vk, err := Setup(cs, rand.Reader)
	require.NoError(t, err)

	plain := cubicWitness(11)
	covered := r1cs.MinimalCover(cs)
	require.Equal(t, 3, covered)
	proofs := proveSession(t, rep3Protocol(), 3, 1, cs, pk, plain, covered)

	public := []fr.Element{plain[1]}
	require.NoError(t, Verify(proofs[0], vk, public))
}

func TestVerifyRejectsWrongPublicInput(t *testing.T) {
	cs := cubicCircuit()
	pk, vk, err := Setup(cs, rand.Reader)
	require.NoError(t, err)

	plain := cubicWitness(3)
	proofs := proveSession(t, rep3Protocol(), 3, 1, cs, pk, plain, cs.NbWires)

	var wrong fr.Element
	wrong.SetUint64(36)
	require.ErrorIs(t, Verify(proofs[0], vk, []fr.Element{wrong}), ErrInvalidProof)
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	cs := cubicCircuit()
	pk, vk, err := Setup(cs, rand.Reader)
	require.NoError(t, err)

	plain := cubicWitness(3)
	proofs := proveSession(t, rep3Protocol(), 3, 1, cs, pk, plain, cs.NbWires)

	tampered := *proofs[0]
	tampered.Ar = tampered.Krs
	require.ErrorIs(t, Verify(&tampered, vk, []fr.Element{plain[1]}), ErrInvalidProof)
}

func TestVerifyRejectsWrongInputCount(t *testing.T) {
	cs := cubicCircuit()
	_, vk, err := Setup(cs, rand.Reader)
	require.NoError(t, err)
	require.ErrorIs(t, Verify(&Proof{}, vk, nil), mpc.ErrSizeMismatch)
}

func TestProofJSONRoundTrip(t *testing.T) {
	cs := cubicCircuit()
	pk, vk, err := Setup(cs, rand.Reader)
	require.NoError(t, err)

	plain := cubicWitness(5)
	proofs := proveSession(t, rep3Protocol(), 3, 1, cs, pk, plain, cs.NbWires)

	data, err := json.Marshal(proofs[0])
	require.NoError(t, err)
	var back Proof
	require.NoError(t, json.Unmarshal(data, &back))
	require.True(t, back.Ar.Equal(&proofs[0].Ar))
	require.True(t, back.Bs.Equal(&proofs[0].Bs))
	require.True(t, back.Krs.Equal(&proofs[0].Krs))
	require.NoError(t, Verify(&back, vk, []fr.Element{plain[1]}))
}

func TestKeySerializationRoundTrip(t *testing.T) {
	cs := cubicCircuit()
	pk, vk, err := Setup(cs, rand.Reader)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = pk.WriteTo(&buf)
	require.NoError(t, err)
	var pkBack ProvingKey
	_, err = pkBack.ReadFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, pk.DomainSize, pkBack.DomainSize)
	require.Equal(t, pk.G1.A, pkBack.G1.A)
	require.Equal(t, pk.G2.B, pkBack.G2.B)

	dir := t.TempDir()
	vkPath := filepath.Join(dir, "vk.bin")
	require.NoError(t, SaveKey(vkPath, vk))
	var vkBack VerifyingKey
	require.NoError(t, LoadKey(vkPath, &vkBack))
	require.Equal(t, vk.G1.K, vkBack.G1.K)
	require.True(t, vk.G2.Gamma.Equal(&vkBack.G2.Gamma))

	// the reloaded proving key still proves
	plain := cubicWitness(4)
	proofs := proveSession(t, rep3Protocol(), 3, 1, cs, &pkBack, plain, cs.NbWires)
	require.NoError(t, Verify(proofs[0], &vkBack, []fr.Element{plain[1]}))
}

func TestCollaborativeProofWithSlowParty(t *testing.T) {
	cs := cubicCircuit()
	pk, vk, err := Setup(cs, rand.Reader)
	require.NoError(t, err)

	plain := cubicWitness(9)
	perParty := dealShares(t, rep3Protocol(), 3, 1, cs.NbWires, plain, cs.NbWires)

	net := mpcnet.NewMockNetwork(3)
	net[1].SetDelay(15 * time.Millisecond)

	proofs := make([]*Proof, 3)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 3; i++ {
		i := i
		g.Go(func() error {
			drv, err := rep3.NewDriver(ctx, net[i], mpc.Config{
				PartyID: i, NumParties: 3, Threshold: 1, Rng: rand.Reader,
			})
			if err != nil {
				return err
			}
			proof, err := NewProver(drv, pk).Prove(ctx, cs, perParty[i], cs.NbWires)
			proofs[i] = proof
			return err
		})
	}
	require.NoError(t, g.Wait())

	// a slow party shifts timing only; the serialized proofs stay
	// byte-identical
	blobs := make([][]byte, 3)
	for i := range proofs {
		blobs[i], err = json.Marshal(proofs[i])
		require.NoError(t, err)
	}
	require.Equal(t, blobs[0], blobs[1])
	require.Equal(t, blobs[0], blobs[2])
	require.NoError(t, Verify(proofs[0], vk, []fr.Element{plain[1]}))
}

func TestProverRejectsOversizedCircuit(t *testing.T) {
	cs := cubicCircuit()
	pk, _, err := Setup(cs, rand.Reader)
	require.NoError(t, err)

	// same wire counts, but more constraints than the key's domain holds
	oversized := cubicCircuit()
	for len(oversized.Constraints) <= int(pk.DomainSize) {
		oversized.Constraints = append(oversized.Constraints, oversized.Constraints[0])
	}

	plain := cubicWitness(3)
	perParty := dealShares(t, rep3Protocol(), 3, 1, cs.NbWires, plain, cs.NbWires)

	net := mpcnet.NewMockNetwork(3)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 3; i++ {
		i := i
		g.Go(func() error {
			drv, err := rep3.NewDriver(ctx, net[i], mpc.Config{
				PartyID: i, NumParties: 3, Threshold: 1, Rng: rand.Reader,
			})
			if err != nil {
				return err
			}
			_, err = NewProver(drv, pk).Prove(ctx, oversized, perParty[i], oversized.NbWires)
			return err
		})
	}
	require.ErrorIs(t, g.Wait(), mpc.ErrSizeMismatch)
}

func TestProverRejectsMismatchedKey(t *testing.T) {
	cs := cubicCircuit()
	pk, _, err := Setup(cs, rand.Reader)
	require.NoError(t, err)
	pk.NbWires = 99

	net := mpcnet.NewMockNetwork(3)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 3; i++ {
		i := i
		g.Go(func() error {
			drv, err := rep3.NewDriver(ctx, net[i], mpc.Config{
				PartyID: i, NumParties: 3, Threshold: 1, Rng: rand.Reader,
			})
			if err != nil {
				return err
			}
			_, err = NewProver(drv, pk).Prove(ctx, cs, make([]mpc.Share, cs.NbWires), cs.NbWires)
			return err
		})
	}
	require.ErrorIs(t, g.Wait(), mpc.ErrSizeMismatch)
}
