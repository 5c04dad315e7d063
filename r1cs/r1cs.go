// Package r1cs models the constraint system: a fixed set of rank-1
// constraints <L,w> * <R,w> = <O,w> over the BN254 scalar field, relating
// the constant wire, public wires and private wires. The artifact is
// immutable once loaded and identical across parties by construction.
package r1cs

import (
	"encoding/json"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/collabzk/co-groth16/mpc"
)

// Term is one sparse matrix entry: Coeff * w[Wire].
type Term struct {
	Wire  int
	Coeff fr.Element
}

// Constraint is one row of the three matrices.
type Constraint struct {
	L []Term
	R []Term
	O []Term
}

// R1CS is the full constraint system. Wire 0 is the constant 1; wires
// 1..NbPublic are the public inputs; the rest are private.
type R1CS struct {
	NbWires     int
	NbPublic    int
	Constraints []Constraint
}

func (cs *R1CS) NbConstraints() int { return len(cs.Constraints) }

// Validate checks structural sanity; failures are startup-time fatal.
func (cs *R1CS) Validate() error {
	if cs.NbWires < 1 {
		return errors.New("r1cs: no wires")
	}
	if cs.NbPublic < 0 || cs.NbPublic >= cs.NbWires {
		return errors.Errorf("r1cs: %d public wires out of %d total", cs.NbPublic, cs.NbWires)
	}
	for i, c := range cs.Constraints {
		for _, lc := range [][]Term{c.L, c.R, c.O} {
			for _, t := range lc {
				if t.Wire < 0 || t.Wire >= cs.NbWires {
					return errors.Errorf("r1cs: constraint %d references wire %d of %d", i, t.Wire, cs.NbWires)
				}
			}
		}
	}
	return nil
}

// IsSatisfied checks a plain witness against every constraint. Dealer and
// test-side only; parties never see plain witnesses.
func (cs *R1CS) IsSatisfied(w []fr.Element) error {
	if len(w) != cs.NbWires {
		return errors.Wrapf(mpc.ErrSizeMismatch, "witness has %d wires, constraint system has %d", len(w), cs.NbWires)
	}
	for i, c := range cs.Constraints {
		l := evalPlainLC(c.L, w)
		r := evalPlainLC(c.R, w)
		o := evalPlainLC(c.O, w)
		l.Mul(&l, &r)
		if !l.Equal(&o) {
			return errors.Wrapf(ErrConstraintUnsatisfied, "constraint %d", i)
		}
	}
	return nil
}

func evalPlainLC(lc []Term, w []fr.Element) fr.Element {
	var acc, t fr.Element
	for _, term := range lc {
		t.Mul(&term.Coeff, &w[term.Wire])
		acc.Add(&acc, &t)
	}
	return acc
}

// JSON artifact form: coefficients as decimal strings.

type termJSON struct {
	Wire  int    `json:"wire"`
	Coeff string `json:"coeff"`
}

type constraintJSON struct {
	L []termJSON `json:"l"`
	R []termJSON `json:"r"`
	O []termJSON `json:"o"`
}

type r1csJSON struct {
	NbWires     int              `json:"n_wires"`
	NbPublic    int              `json:"n_public"`
	Constraints []constraintJSON `json:"constraints"`
}

func (cs *R1CS) MarshalJSON() ([]byte, error) {
	out := r1csJSON{
		NbWires:     cs.NbWires,
		NbPublic:    cs.NbPublic,
		Constraints: make([]constraintJSON, len(cs.Constraints)),
	}
	conv := func(lc []Term) []termJSON {
		ts := make([]termJSON, len(lc))
		for i, t := range lc {
			ts[i] = termJSON{Wire: t.Wire, Coeff: t.Coeff.String()}
		}
		return ts
	}
	for i, c := range cs.Constraints {
		out.Constraints[i] = constraintJSON{L: conv(c.L), R: conv(c.R), O: conv(c.O)}
	}
	return json.Marshal(out)
}

func (cs *R1CS) UnmarshalJSON(data []byte) error {
	var in r1csJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "r1cs: parsing json")
	}
	conv := func(ts []termJSON) ([]Term, error) {
		lc := make([]Term, len(ts))
		for i, t := range ts {
			lc[i].Wire = t.Wire
			if _, err := lc[i].Coeff.SetString(t.Coeff); err != nil {
				return nil, errors.Wrapf(err, "r1cs: bad coefficient %q", t.Coeff)
			}
		}
		return lc, nil
	}
	cs.NbWires = in.NbWires
	cs.NbPublic = in.NbPublic
	cs.Constraints = make([]Constraint, len(in.Constraints))
	for i, c := range in.Constraints {
		var err error
		if cs.Constraints[i].L, err = conv(c.L); err != nil {
			return err
		}
		if cs.Constraints[i].R, err = conv(c.R); err != nil {
			return err
		}
		if cs.Constraints[i].O, err = conv(c.O); err != nil {
			return err
		}
	}
	return cs.Validate()
}

// Load reads and validates an r1cs artifact.
func Load(path string) (*R1CS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "r1cs: reading file")
	}
	var cs R1CS
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

// Save writes the artifact.
func (cs *R1CS) Save(path string) error {
	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "r1cs: encoding json")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "r1cs: writing file")
}
