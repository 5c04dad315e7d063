package r1cs

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/collabzk/co-groth16/mpc"
	"github.com/collabzk/co-groth16/mpc/rep3"
	"github.com/collabzk/co-groth16/mpcnet"
)

func term(wire int, coeff uint64) Term {
	var t Term
	t.Wire = wire
	t.Coeff.SetUint64(coeff)
	return t
}

// cubicCircuit encodes x^3 + x + 5 = y.
// Wires: 0 constant, 1 y (public), 2 x, 3 x^2, 4 x^3.
func cubicCircuit() *R1CS {
	return &R1CS{
		NbWires:  5,
		NbPublic: 1,
		Constraints: []Constraint{
			{L: []Term{term(2, 1)}, R: []Term{term(2, 1)}, O: []Term{term(3, 1)}},
			{L: []Term{term(3, 1)}, R: []Term{term(2, 1)}, O: []Term{term(4, 1)}},
			{L: []Term{term(4, 1), term(2, 1), term(0, 5)}, R: []Term{term(0, 1)}, O: []Term{term(1, 1)}},
		},
	}
}

// cubicWitness returns the full assignment for x.
func cubicWitness(t *testing.T, x uint64) []fr.Element {
	t.Helper()
	cs := cubicCircuit()
	w := make([]fr.Element, cs.NbWires)
	w[0].SetOne()
	w[2].SetUint64(x)
	// y = x^3 + x + 5
	var five fr.Element
	five.SetUint64(5)
	w[3].Mul(&w[2], &w[2])
	w[4].Mul(&w[3], &w[2])
	w[1].Add(&w[4], &w[2]).Add(&w[1], &five)
	return w
}

func TestIsSatisfied(t *testing.T) {
	cs := cubicCircuit()
	w := cubicWitness(t, 3)
	require.NoError(t, cs.IsSatisfied(w))

	w[2].SetUint64(4) // x no longer matches y
	err := cs.IsSatisfied(w)
	require.ErrorIs(t, err, ErrConstraintUnsatisfied)
}

func TestValidateRejectsBadWire(t *testing.T) {
	cs := cubicCircuit()
	cs.Constraints[0].L[0].Wire = 99
	require.Error(t, cs.Validate())
}

func TestJSONRoundTrip(t *testing.T) {
	cs := cubicCircuit()
	data, err := json.Marshal(cs)
	require.NoError(t, err)

	var back R1CS
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, cs.NbWires, back.NbWires)
	require.Equal(t, cs.NbPublic, back.NbPublic)
	require.Equal(t, cs.Constraints, back.Constraints)
}

func TestSolveCompletesWitness(t *testing.T) {
	cs := cubicCircuit()
	want := cubicWitness(t, 6)

	w := make([]fr.Element, cs.NbWires)
	copy(w, want[:3])
	require.NoError(t, Solve(cs, w, 3))
	require.Equal(t, want, w)
}

func TestMinimalCover(t *testing.T) {
	cs := cubicCircuit()
	// x^2 and x^3 derive from x; y is public and always covered
	require.Equal(t, 3, MinimalCover(cs))
}

func TestSolveFailsWithoutDefiningConstraint(t *testing.T) {
	cs := cubicCircuit()
	w := make([]fr.Element, cs.NbWires)
	w[0].SetOne()
	err := Solve(cs, w, 2) // x itself is missing
	require.ErrorIs(t, err, ErrConstraintUnsatisfied)
}

// evaluateShared runs the evaluator at all three parties over an
// in-memory network and reconstructs the derived wires.
func evaluateShared(t *testing.T, cs *R1CS, plain []fr.Element, covered int) ([]fr.Element, []int) {
	t.Helper()
	perParty := make([][]mpc.Share, 3)
	for i := range perParty {
		perParty[i] = make([]mpc.Share, cs.NbWires)
	}
	for k := 0; k < covered; k++ {
		shares, err := rep3.Scheme{}.Split(plain[k], 3, 1, rand.Reader)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			perParty[i][k] = shares[i]
		}
	}

	net := mpcnet.NewMockNetwork(3)
	rounds := make([]int, 3)
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
			if err := Evaluate(ctx, drv, cs, perParty[i], covered); err != nil {
				return err
			}
			rounds[i] = drv.Rounds()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	out := make([]fr.Element, cs.NbWires)
	for k := 0; k < cs.NbWires; k++ {
		all := map[int]mpc.Share{0: perParty[0][k], 1: perParty[1][k], 2: perParty[2][k]}
		v, err := rep3.Scheme{}.Reconstruct(all, 3, 1)
		require.NoError(t, err)
		out[k] = v
	}
	return out, rounds
}

func TestEvaluateDerivesWires(t *testing.T) {
	cs := cubicCircuit()
	want := cubicWitness(t, 3)

	got, _ := evaluateShared(t, cs, want, 3)
	for k := range want {
		require.True(t, got[k].Equal(&want[k]), "wire %d", k)
	}
}

func TestEvaluateFullCoverageIsFree(t *testing.T) {
	cs := cubicCircuit()
	w := cubicWitness(t, 2)
	_, rounds := evaluateShared(t, cs, w, cs.NbWires)
	for _, r := range rounds {
		require.Equal(t, 1, r, "only the driver seed exchange may communicate")
	}
}

// wideCircuit multiplies m independent pairs and then the first two
// products: depth 2 regardless of m.
func wideCircuit(m int) *R1CS {
	cs := &R1CS{NbWires: 1 + 2*m + m + 1, NbPublic: 0}
	for k := 0; k < m; k++ {
		cs.Constraints = append(cs.Constraints, Constraint{
			L: []Term{term(1+2*k, 1)},
			R: []Term{term(2+2*k, 1)},
			O: []Term{term(1+2*m+k, 1)},
		})
	}
	cs.Constraints = append(cs.Constraints, Constraint{
		L: []Term{term(1+2*m, 1)},
		R: []Term{term(1+2*m+1, 1)},
		O: []Term{term(cs.NbWires - 1, 1)},
	})
	return cs
}

func TestEvaluateRoundsTrackDepthNotWidth(t *testing.T) {
	for _, m := range []int{2, 16} {
		cs := wideCircuit(m)
		plain := make([]fr.Element, cs.NbWires)
		plain[0].SetOne()
		for k := 0; k < 2*m; k++ {
			plain[1+k].SetUint64(uint64(k + 3))
		}
		covered := 1 + 2*m
		require.NoError(t, Solve(cs, plain, covered))

		got, rounds := evaluateShared(t, cs, plain, covered)
		for k := range plain {
			require.True(t, got[k].Equal(&plain[k]), "m=%d wire %d", m, k)
		}
		// seed exchange plus one round per layer
		for _, r := range rounds {
			require.Equal(t, 3, r, "m=%d", m)
		}
	}
}
