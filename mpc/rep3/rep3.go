// Package rep3 implements the replicated three-party sharing backend:
// a secret x is split into x0+x1+x2 and party i holds the pair
// (x_i, x_{i+1}). Honest-majority, semi-honest, threshold fixed at 1.
// Multiplication costs one message to the previous party; shared
// randomness is free after a one-time pairwise seed exchange.
package rep3

import (
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/collabzk/co-groth16/mpc"
)

const NumParties = 3

// Scheme is the dealer-side splitter/reconstructor.
type Scheme struct{}

func (Scheme) Validate(n, t int) error {
	if n != NumParties || t != 1 {
		return errors.Wrapf(mpc.ErrInvalidThreshold, "rep3 requires n=3, t=1 (got n=%d, t=%d)", n, t)
	}
	return nil
}

func (s Scheme) Split(v fr.Element, n, t int, rng io.Reader) ([]mpc.Share, error) {
	if err := s.Validate(n, t); err != nil {
		return nil, err
	}
	var x [3]fr.Element
	if err := randElement(&x[0], rng); err != nil {
		return nil, err
	}
	if err := randElement(&x[1], rng); err != nil {
		return nil, err
	}
	x[2].Sub(&v, &x[0]).Sub(&x[2], &x[1])

	shares := make([]mpc.Share, 3)
	for i := 0; i < 3; i++ {
		shares[i].A = x[i]
		shares[i].B = x[(i+1)%3]
	}
	return shares, nil
}

func (s Scheme) Reconstruct(shares map[int]mpc.Share, n, t int) (fr.Element, error) {
	var zero fr.Element
	if err := s.Validate(n, t); err != nil {
		return zero, err
	}
	// Each party contributes two of the three addends; any two parties
	// cover all of them, and overlaps must agree.
	var comp [3]fr.Element
	var have [3]bool
	set := func(idx int, v fr.Element) error {
		if have[idx] && !comp[idx].Equal(&v) {
			return errors.Wrapf(mpc.ErrInconsistentShares, "replicated component %d disagrees", idx)
		}
		comp[idx] = v
		have[idx] = true
		return nil
	}
	for id, sh := range shares {
		if id < 0 || id >= 3 {
			return zero, errors.Wrapf(mpc.ErrInconsistentShares, "party index %d out of range", id)
		}
		if err := set(id, sh.A); err != nil {
			return zero, err
		}
		if err := set((id+1)%3, sh.B); err != nil {
			return zero, err
		}
	}
	if !have[0] || !have[1] || !have[2] {
		return zero, errors.Wrapf(mpc.ErrInsufficientShares, "%d of 3 parties present", len(shares))
	}
	var v fr.Element
	v.Add(&comp[0], &comp[1]).Add(&v, &comp[2])
	return v, nil
}

func randElement(z *fr.Element, rng io.Reader) error {
	var buf [fr.Bytes + 16]byte
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return errors.Wrap(err, "rep3: drawing randomness")
	}
	z.SetBytes(buf[:])
	return nil
}
