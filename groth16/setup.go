package groth16

import (
	"io"
	"math/big"
	"time"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	"github.com/consensys/gnark/logger"
	"github.com/pkg/errors"

	"github.com/collabzk/co-groth16/r1cs"
)

// Setup runs the circuit-specific trusted setup and returns the key pair.
// The toxic scalars are drawn from rng and discarded; every participant of
// a later proving session must use keys from the same setup run.
func Setup(cs *r1cs.R1CS, rng io.Reader) (*ProvingKey, *VerifyingKey, error) {
	log := logger.Logger().With().Str("component", "setup").Logger()
	start := time.Now()

	if err := cs.Validate(); err != nil {
		return nil, nil, err
	}
	domain := fft.NewDomain(uint64(cs.NbConstraints()))
	n := int(domain.Cardinality)

	tau, err := randScalar(rng)
	if err != nil {
		return nil, nil, err
	}
	alpha, err := randScalar(rng)
	if err != nil {
		return nil, nil, err
	}
	beta, err := randScalar(rng)
	if err != nil {
		return nil, nil, err
	}
	gamma, err := randScalar(rng)
	if err != nil {
		return nil, nil, err
	}
	delta, err := randScalar(rng)
	if err != nil {
		return nil, nil, err
	}

	// u_k(tau), v_k(tau), w_k(tau) via the Lagrange basis evaluated at tau
	lag := lagrangeAt(domain, tau)
	uAt := make([]fr.Element, cs.NbWires)
	vAt := make([]fr.Element, cs.NbWires)
	wAt := make([]fr.Element, cs.NbWires)
	var t fr.Element
	for i, c := range cs.Constraints {
		for _, term := range c.L {
			t.Mul(&term.Coeff, &lag[i])
			uAt[term.Wire].Add(&uAt[term.Wire], &t)
		}
		for _, term := range c.R {
			t.Mul(&term.Coeff, &lag[i])
			vAt[term.Wire].Add(&vAt[term.Wire], &t)
		}
		for _, term := range c.O {
			t.Mul(&term.Coeff, &lag[i])
			wAt[term.Wire].Add(&wAt[term.Wire], &t)
		}
	}

	var gammaInv, deltaInv fr.Element
	gammaInv.Inverse(&gamma)
	deltaInv.Inverse(&delta)

	// (beta*u_k + alpha*v_k + w_k), scaled by 1/gamma for public wires and
	// 1/delta for private ones
	nbPub := cs.NbPublic + 1
	kPub := make([]fr.Element, nbPub)
	kPriv := make([]fr.Element, cs.NbWires-nbPub)
	for k := 0; k < cs.NbWires; k++ {
		var v fr.Element
		v.Mul(&beta, &uAt[k])
		t.Mul(&alpha, &vAt[k])
		v.Add(&v, &t).Add(&v, &wAt[k])
		if k < nbPub {
			kPub[k].Mul(&v, &gammaInv)
		} else {
			kPriv[k-nbPub].Mul(&v, &deltaInv)
		}
	}

	// tau^i * t(tau)/delta for the quotient commitment, degree up to n-2
	var zt, taui, one fr.Element
	one.SetOne()
	zt.Exp(tau, big.NewInt(int64(n))).Sub(&zt, &one)
	zScalars := make([]fr.Element, n-1)
	taui.SetOne()
	zt.Mul(&zt, &deltaInv)
	for i := 0; i < n-1; i++ {
		zScalars[i].Mul(&zt, &taui)
		taui.Mul(&taui, &tau)
	}

	_, _, g1, g2 := curve.Generators()

	pk := &ProvingKey{
		DomainSize: uint64(n),
		NbWires:    uint64(cs.NbWires),
		NbPublic:   uint64(cs.NbPublic),
	}
	singles := curve.BatchScalarMultiplicationG1(&g1, []fr.Element{alpha, beta, delta})
	pk.G1.Alpha, pk.G1.Beta, pk.G1.Delta = singles[0], singles[1], singles[2]
	pk.G1.A = curve.BatchScalarMultiplicationG1(&g1, uAt)
	pk.G1.B = curve.BatchScalarMultiplicationG1(&g1, vAt)
	pk.G1.K = curve.BatchScalarMultiplicationG1(&g1, kPriv)
	pk.G1.Z = curve.BatchScalarMultiplicationG1(&g1, zScalars)
	singlesG2 := curve.BatchScalarMultiplicationG2(&g2, []fr.Element{beta, delta})
	pk.G2.Beta, pk.G2.Delta = singlesG2[0], singlesG2[1]
	pk.G2.B = curve.BatchScalarMultiplicationG2(&g2, vAt)

	vk := &VerifyingKey{}
	vk.G1.Alpha = pk.G1.Alpha
	vk.G1.K = curve.BatchScalarMultiplicationG1(&g1, kPub)
	singlesG2 = curve.BatchScalarMultiplicationG2(&g2, []fr.Element{beta, gamma, delta})
	vk.G2.Beta, vk.G2.Gamma, vk.G2.Delta = singlesG2[0], singlesG2[1], singlesG2[2]

	log.Info().
		Int("constraints", cs.NbConstraints()).
		Int("domain", n).
		Str("took", time.Since(start).String()).
		Msg("trusted setup complete")
	return pk, vk, nil
}

// lagrangeAt evaluates all Lagrange basis polynomials of the domain at x:
// L_i(x) = w^i (x^n - 1) / (n (x - w^i)).
func lagrangeAt(domain *fft.Domain, x fr.Element) []fr.Element {
	n := int(domain.Cardinality)
	dens := make([]fr.Element, n)
	var wi fr.Element
	wi.SetOne()
	for i := 0; i < n; i++ {
		dens[i].Sub(&x, &wi)
		wi.Mul(&wi, &domain.Generator)
	}
	invs := fr.BatchInvert(dens)

	var zh, one fr.Element
	one.SetOne()
	zh.Exp(x, big.NewInt(int64(n))).Sub(&zh, &one)
	zh.Mul(&zh, &domain.CardinalityInv)

	lag := make([]fr.Element, n)
	wi.SetOne()
	for i := 0; i < n; i++ {
		lag[i].Mul(&zh, &wi).Mul(&lag[i], &invs[i])
		wi.Mul(&wi, &domain.Generator)
	}
	return lag
}

func randScalar(rng io.Reader) (fr.Element, error) {
	var z fr.Element
	var buf [fr.Bytes + 16]byte
	for z.IsZero() {
		if _, err := io.ReadFull(rng, buf[:]); err != nil {
			return z, errors.Wrap(err, "groth16: drawing setup randomness")
		}
		z.SetBytes(buf[:])
	}
	return z, nil
}
