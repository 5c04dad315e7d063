// Package mpc defines the secret-sharing primitives and the protocol
// backend abstraction the circuit evaluator and proof assembler are built
// on. A backend exposes the interactive operations (secure multiplication,
// shared randomness, opening); everything linear stays local and is
// implemented here, componentwise over the share representation.
package mpc

import (
	"math/big"
	"runtime"

	"github.com/consensys/gnark-crypto/ecc"
	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	"github.com/pkg/errors"
)

// Share is one party's fragment of a field element. Backends give the two
// components their meaning: replicated sharing stores the pair
// (x_i, x_{i+1}); Shamir stores the polynomial evaluation in A and leaves
// B zero. Both representations are linear in each component, which is what
// lets all the helpers below run without communication.
type Share struct {
	A fr.Element
	B fr.Element
}

// G1Share and G2Share are shares of group elements, produced by scalar
// operations of public key material against field shares.
type G1Share struct {
	A curve.G1Jac
	B curve.G1Jac
}

type G2Share struct {
	A curve.G2Jac
	B curve.G2Jac
}

// Add returns a+b. Local.
func Add(a, b Share) Share {
	var z Share
	z.A.Add(&a.A, &b.A)
	z.B.Add(&a.B, &b.B)
	return z
}

// Sub returns a-b. Local.
func Sub(a, b Share) Share {
	var z Share
	z.A.Sub(&a.A, &b.A)
	z.B.Sub(&a.B, &b.B)
	return z
}

// MulPublic returns k*a for a public scalar k. Local.
func MulPublic(a Share, k *fr.Element) Share {
	var z Share
	z.A.Mul(&a.A, k)
	z.B.Mul(&a.B, k)
	return z
}

// MulAddPublic sets acc += k*a. Local.
func MulAddPublic(acc *Share, a Share, k *fr.Element) {
	var t fr.Element
	t.Mul(&a.A, k)
	acc.A.Add(&acc.A, &t)
	t.Mul(&a.B, k)
	acc.B.Add(&acc.B, &t)
}

// split copies a share vector into its component vectors.
func split(v []Share) ([]fr.Element, []fr.Element) {
	a := make([]fr.Element, len(v))
	b := make([]fr.Element, len(v))
	for i := range v {
		a[i] = v[i].A
		b[i] = v[i].B
	}
	return a, b
}

func merge(a, b []fr.Element) []Share {
	v := make([]Share, len(a))
	for i := range a {
		v[i].A = a[i]
		v[i].B = b[i]
	}
	return v
}

// FFT transforms a share vector in place on the given domain. The
// transform is linear, so applying it componentwise preserves the share
// invariant; no communication happens.
func FFT(domain *fft.Domain, v []Share, coset bool) {
	a, b := split(v)
	if coset {
		domain.FFT(a, fft.DIF, fft.OnCoset())
		domain.FFT(b, fft.DIF, fft.OnCoset())
	} else {
		domain.FFT(a, fft.DIF)
		domain.FFT(b, fft.DIF)
	}
	fft.BitReverse(a)
	fft.BitReverse(b)
	copy(v, merge(a, b))
}

// FFTInverse is the inverse transform, same locality argument as FFT.
func FFTInverse(domain *fft.Domain, v []Share, coset bool) {
	a, b := split(v)
	if coset {
		domain.FFTInverse(a, fft.DIF, fft.OnCoset())
		domain.FFTInverse(b, fft.DIF, fft.OnCoset())
	} else {
		domain.FFTInverse(a, fft.DIF)
		domain.FFTInverse(b, fft.DIF)
	}
	fft.BitReverse(a)
	fft.BitReverse(b)
	copy(v, merge(a, b))
}

// MSMG1 multi-exponentiates public G1 points by share scalars, yielding a
// share of the combined group element. Local.
func MSMG1(points []curve.G1Affine, scalars []Share) (G1Share, error) {
	var z G1Share
	if len(points) != len(scalars) {
		return z, errors.Wrapf(ErrSizeMismatch, "msm: %d points, %d scalars", len(points), len(scalars))
	}
	a, b := split(scalars)
	cfg := ecc.MultiExpConfig{NbTasks: runtime.NumCPU()}
	if _, err := z.A.MultiExp(points, a, cfg); err != nil {
		return z, err
	}
	if _, err := z.B.MultiExp(points, b, cfg); err != nil {
		return z, err
	}
	return z, nil
}

// MSMG2 is MSMG1 over G2.
func MSMG2(points []curve.G2Affine, scalars []Share) (G2Share, error) {
	var z G2Share
	if len(points) != len(scalars) {
		return z, errors.Wrapf(ErrSizeMismatch, "msm: %d points, %d scalars", len(points), len(scalars))
	}
	a, b := split(scalars)
	cfg := ecc.MultiExpConfig{NbTasks: runtime.NumCPU()}
	if _, err := z.A.MultiExp(points, a, cfg); err != nil {
		return z, err
	}
	if _, err := z.B.MultiExp(points, b, cfg); err != nil {
		return z, err
	}
	return z, nil
}

// ScalarMulG1 multiplies a public point by a share scalar. Local.
func ScalarMulG1(p curve.G1Affine, s Share) G1Share {
	var z G1Share
	var pj curve.G1Jac
	pj.FromAffine(&p)
	z.A.ScalarMultiplication(&pj, s.A.BigInt(new(big.Int)))
	z.B.ScalarMultiplication(&pj, s.B.BigInt(new(big.Int)))
	return z
}

// ScalarMulG2 is ScalarMulG1 over G2.
func ScalarMulG2(p curve.G2Affine, s Share) G2Share {
	var z G2Share
	var pj curve.G2Jac
	pj.FromAffine(&p)
	z.A.ScalarMultiplication(&pj, s.A.BigInt(new(big.Int)))
	z.B.ScalarMultiplication(&pj, s.B.BigInt(new(big.Int)))
	return z
}

// AddG1 returns a+b. Local.
func AddG1(a, b G1Share) G1Share {
	var z G1Share
	z.A.Set(&a.A).AddAssign(&b.A)
	z.B.Set(&a.B).AddAssign(&b.B)
	return z
}

// SubG1 returns a-b. Local.
func SubG1(a, b G1Share) G1Share {
	var z G1Share
	z.A.Set(&a.A).SubAssign(&b.A)
	z.B.Set(&a.B).SubAssign(&b.B)
	return z
}

// AddG2 returns a+b. Local.
func AddG2(a, b G2Share) G2Share {
	var z G2Share
	z.A.Set(&a.A).AddAssign(&b.A)
	z.B.Set(&a.B).AddAssign(&b.B)
	return z
}
