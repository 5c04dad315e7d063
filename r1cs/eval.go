package r1cs

import (
	"context"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/logger"
	"github.com/pkg/errors"

	"github.com/collabzk/co-groth16/mpc"
)

// ErrConstraintUnsatisfied marks a witness (or share vector) that the
// constraint system rejects, or an evaluation that cannot make progress.
var ErrConstraintUnsatisfied = errors.New("r1cs: constraint unsatisfied")

// defining reports whether a constraint can derive a new wire given the
// current knowledge: every L and R wire known, and O a single term with a
// nonzero coefficient on a still-unknown wire.
func defining(c *Constraint, known []bool) (wire int, ok bool) {
	if len(c.O) != 1 || known[c.O[0].Wire] || c.O[0].Coeff.IsZero() {
		return 0, false
	}
	for _, t := range c.L {
		if !known[t.Wire] {
			return 0, false
		}
	}
	for _, t := range c.R {
		if !known[t.Wire] {
			return 0, false
		}
	}
	return c.O[0].Wire, true
}

// Evaluate derives shares for every wire of the constraint system. shares
// must have length NbWires with valid shares in the first covered entries;
// the rest are filled in. Constraints are grouped into layers by data
// dependency and each layer costs a single secure-multiplication round, so
// the round count tracks the multiplicative depth of the circuit, not its
// width. If covered == NbWires there is nothing to derive and the call is
// free of communication.
func Evaluate(ctx context.Context, drv mpc.Driver, cs *R1CS, shares []mpc.Share, covered int) error {
	if len(shares) != cs.NbWires {
		return errors.Wrapf(mpc.ErrSizeMismatch, "evaluate: %d shares, %d wires", len(shares), cs.NbWires)
	}
	if covered < cs.NbPublic+1 || covered > cs.NbWires {
		return errors.Errorf("r1cs: covered wire count %d out of range [%d, %d]", covered, cs.NbPublic+1, cs.NbWires)
	}
	if covered == cs.NbWires {
		return nil
	}

	log := logger.Logger().With().Str("component", "evaluator").Logger()

	known := make([]bool, cs.NbWires)
	for i := 0; i < covered; i++ {
		known[i] = true
	}
	remaining := covered

	pending := make([]int, 0, len(cs.Constraints))
	for i := range cs.Constraints {
		pending = append(pending, i)
	}

	layers := 0
	for remaining < cs.NbWires {
		// collect the next layer: every constraint that is defining right now
		var layerIdx []int
		var next []int
		for _, ci := range pending {
			if _, ok := defining(&cs.Constraints[ci], known); ok {
				layerIdx = append(layerIdx, ci)
			} else {
				next = append(next, ci)
			}
		}
		if len(layerIdx) == 0 {
			return errors.Wrapf(ErrConstraintUnsatisfied, "no constraint defines the %d remaining wires", cs.NbWires-remaining)
		}

		as := make([]mpc.Share, len(layerIdx))
		bs := make([]mpc.Share, len(layerIdx))
		for k, ci := range layerIdx {
			as[k] = evalShareLC(drv, cs.Constraints[ci].L, shares)
			bs[k] = evalShareLC(drv, cs.Constraints[ci].R, shares)
		}
		prods, err := drv.MulVec(ctx, as, bs)
		if err != nil {
			return err
		}
		for k, ci := range layerIdx {
			o := cs.Constraints[ci].O[0]
			var inv fr.Element
			inv.Inverse(&o.Coeff)
			shares[o.Wire] = mpc.MulPublic(prods[k], &inv)
			if !known[o.Wire] {
				known[o.Wire] = true
				remaining++
			}
		}
		pending = next
		layers++
	}
	log.Debug().Int("layers", layers).Int("derived", cs.NbWires-covered).Msg("wire derivation complete")
	return nil
}

// evalShareLC resolves a linear combination over shares. Terms on the
// constant wire are public and enter through the backend's public
// addition instead of the shared constant.
func evalShareLC(drv mpc.Driver, lc []Term, w []mpc.Share) mpc.Share {
	var acc mpc.Share
	var pub fr.Element
	for _, t := range lc {
		if t.Wire == 0 {
			pub.Add(&pub, &t.Coeff)
			continue
		}
		mpc.MulAddPublic(&acc, w[t.Wire], &t.Coeff)
	}
	if !pub.IsZero() {
		acc = drv.AddPublic(acc, pub)
	}
	return acc
}

// Solve is the plain-field counterpart of Evaluate, used by the dealer and
// by tests to complete a witness from its input prefix.
func Solve(cs *R1CS, w []fr.Element, covered int) error {
	if len(w) != cs.NbWires {
		return errors.Wrapf(mpc.ErrSizeMismatch, "solve: %d values, %d wires", len(w), cs.NbWires)
	}
	known := make([]bool, cs.NbWires)
	for i := 0; i < covered; i++ {
		known[i] = true
	}
	remaining := covered
	for remaining < cs.NbWires {
		progressed := false
		for ci := range cs.Constraints {
			wire, ok := defining(&cs.Constraints[ci], known)
			if !ok {
				continue
			}
			c := &cs.Constraints[ci]
			l := evalPlainLC(c.L, w)
			r := evalPlainLC(c.R, w)
			l.Mul(&l, &r)
			var inv fr.Element
			inv.Inverse(&c.O[0].Coeff)
			w[wire].Mul(&l, &inv)
			known[wire] = true
			remaining++
			progressed = true
		}
		if !progressed {
			return errors.Wrapf(ErrConstraintUnsatisfied, "no constraint defines the %d remaining wires", cs.NbWires-remaining)
		}
	}
	return nil
}

// MinimalCover returns the smallest wire prefix from which the evaluator
// can derive the rest of the witness. The splitter uses it for the
// inputs-only mode; sharing any longer prefix also works.
func MinimalCover(cs *R1CS) int {
	lo, hi := cs.NbPublic+1, cs.NbWires
	for lo < hi {
		mid := (lo + hi) / 2
		if coverFeasible(cs, mid) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func coverFeasible(cs *R1CS, covered int) bool {
	known := make([]bool, cs.NbWires)
	for i := 0; i < covered; i++ {
		known[i] = true
	}
	remaining := covered
	for remaining < cs.NbWires {
		progressed := false
		for ci := range cs.Constraints {
			if wire, ok := defining(&cs.Constraints[ci], known); ok {
				known[wire] = true
				remaining++
				progressed = true
			}
		}
		if !progressed {
			return false
		}
	}
	return true
}
