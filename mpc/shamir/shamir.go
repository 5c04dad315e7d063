// Package shamir implements the general (n, t) Shamir backend: a secret is
// the constant term of a random degree-t polynomial and party i holds the
// evaluation at x = i+1. Any t+1 shares reconstruct; any t shares are
// information-theoretically independent of the secret. Secure
// multiplication uses one degree-reduction resharing round, which needs
// 2t+1 <= n.
package shamir

import (
	"io"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/collabzk/co-groth16/mpc"
)

// Scheme is the dealer-side splitter/reconstructor.
type Scheme struct{}

func (Scheme) Validate(n, t int) error {
	if n < 2 {
		return errors.Wrapf(mpc.ErrInvalidThreshold, "shamir needs at least 2 parties (got %d)", n)
	}
	if t < 1 || t >= n {
		return errors.Wrapf(mpc.ErrInvalidThreshold, "shamir needs 1 <= t < n (got n=%d, t=%d)", n, t)
	}
	return nil
}

func (s Scheme) Split(v fr.Element, n, t int, rng io.Reader) ([]mpc.Share, error) {
	if err := s.Validate(n, t); err != nil {
		return nil, err
	}
	coeffs, err := randomPoly(v, t, rng)
	if err != nil {
		return nil, err
	}
	shares := make([]mpc.Share, n)
	for i := 0; i < n; i++ {
		shares[i].A = evalPoly(coeffs, partyPoint(i))
	}
	return shares, nil
}

func (s Scheme) Reconstruct(shares map[int]mpc.Share, n, t int) (fr.Element, error) {
	var zero fr.Element
	if err := s.Validate(n, t); err != nil {
		return zero, err
	}
	if len(shares) < t+1 {
		return zero, errors.Wrapf(mpc.ErrInsufficientShares, "%d shares, threshold %d", len(shares), t)
	}
	ids := sortedIDs(shares)
	base := ids[:t+1]
	xs := make([]fr.Element, len(base))
	ys := make([]fr.Element, len(base))
	for i, id := range base {
		xs[i] = partyPoint(id)
		ys[i] = shares[id].A
	}
	// redundant shares must lie on the interpolated polynomial
	for _, id := range ids[t+1:] {
		at := partyPoint(id)
		want := interpolateAt(xs, ys, at)
		got := shares[id].A
		if !want.Equal(&got) {
			return zero, errors.Wrapf(mpc.ErrInconsistentShares, "share of party %d off the degree-%d polynomial", id, t)
		}
	}
	var x0 fr.Element
	return interpolateAt(xs, ys, x0), nil
}

// partyPoint maps a zero-based party index to its evaluation point i+1.
func partyPoint(id int) fr.Element {
	var x fr.Element
	x.SetUint64(uint64(id + 1))
	return x
}

func randomPoly(secret fr.Element, t int, rng io.Reader) ([]fr.Element, error) {
	coeffs := make([]fr.Element, t+1)
	coeffs[0] = secret
	var buf [fr.Bytes + 16]byte
	for i := 1; i <= t; i++ {
		if _, err := io.ReadFull(rng, buf[:]); err != nil {
			return nil, errors.Wrap(err, "shamir: drawing randomness")
		}
		coeffs[i].SetBytes(buf[:])
	}
	return coeffs, nil
}

func evalPoly(coeffs []fr.Element, x fr.Element) fr.Element {
	var y fr.Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		y.Mul(&y, &x).Add(&y, &coeffs[i])
	}
	return y
}

// interpolateAt evaluates the unique polynomial through (xs, ys) at x.
func interpolateAt(xs, ys []fr.Element, x fr.Element) fr.Element {
	var acc fr.Element
	for j := range xs {
		num := ys[j]
		var den fr.Element
		den.SetOne()
		for m := range xs {
			if m == j {
				continue
			}
			var d fr.Element
			d.Sub(&x, &xs[m])
			num.Mul(&num, &d)
			d.Sub(&xs[j], &xs[m])
			den.Mul(&den, &d)
		}
		den.Inverse(&den)
		num.Mul(&num, &den)
		acc.Add(&acc, &num)
	}
	return acc
}

// lagrangeWeights returns the weights w_j such that p(x) = sum w_j p(x_j)
// for any polynomial of degree < len(xs).
func lagrangeWeights(xs []fr.Element, x fr.Element) []fr.Element {
	ws := make([]fr.Element, len(xs))
	for j := range xs {
		var num, den fr.Element
		num.SetOne()
		den.SetOne()
		for m := range xs {
			if m == j {
				continue
			}
			var d fr.Element
			d.Sub(&x, &xs[m])
			num.Mul(&num, &d)
			d.Sub(&xs[j], &xs[m])
			den.Mul(&den, &d)
		}
		den.Inverse(&den)
		ws[j].Mul(&num, &den)
	}
	return ws
}

// lagrangeAtZero returns the weights w_j such that p(0) = sum w_j p(x_j)
// for the given evaluation points.
func lagrangeAtZero(xs []fr.Element) []fr.Element {
	ws := make([]fr.Element, len(xs))
	for j := range xs {
		var num, den fr.Element
		num.SetOne()
		den.SetOne()
		for m := range xs {
			if m == j {
				continue
			}
			num.Mul(&num, &xs[m])
			var d fr.Element
			d.Sub(&xs[m], &xs[j])
			den.Mul(&den, &d)
		}
		den.Inverse(&den)
		ws[j].Mul(&num, &den)
	}
	return ws
}

func sortedIDs(shares map[int]mpc.Share) []int {
	ids := make([]int, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
