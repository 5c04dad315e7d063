package groth16

import (
	"context"
	"math/big"
	"time"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	"github.com/consensys/gnark/logger"
	"github.com/pkg/errors"

	"github.com/collabzk/co-groth16/mpc"
	"github.com/collabzk/co-groth16/r1cs"
)

// Prover assembles a Groth16 proof from witness shares. All parties run
// the same code in lockstep; linear proof arithmetic (FFTs, MSMs) is local
// and only the quotient products, the blinding product r*s and the final
// proof elements touch the network.
type Prover struct {
	drv mpc.Driver
	pk  *ProvingKey
}

func NewProver(drv mpc.Driver, pk *ProvingKey) *Prover {
	return &Prover{drv: drv, pk: pk}
}

// Prove derives the uncovered wires, computes the quotient polynomial and
// combines everything into proof elements, which are opened at the end.
// shares must hold valid shares for the first covered wires.
func (p *Prover) Prove(ctx context.Context, cs *r1cs.R1CS, shares []mpc.Share, covered int) (*Proof, error) {
	log := logger.Logger().With().Str("component", "prover").Int("party", p.drv.PartyID()).Logger()
	start := time.Now()

	if uint64(cs.NbWires) != p.pk.NbWires || uint64(cs.NbPublic) != p.pk.NbPublic {
		return nil, errors.Wrapf(mpc.ErrSizeMismatch,
			"constraint system (%d wires, %d public) does not match proving key (%d, %d)",
			cs.NbWires, cs.NbPublic, p.pk.NbWires, p.pk.NbPublic)
	}
	if uint64(len(cs.Constraints)) > p.pk.DomainSize {
		return nil, errors.Wrapf(mpc.ErrSizeMismatch,
			"%d constraints exceed the proving key domain (size %d)",
			len(cs.Constraints), p.pk.DomainSize)
	}
	if len(shares) != cs.NbWires {
		return nil, errors.Wrapf(mpc.ErrSizeMismatch, "prove: %d shares, %d wires", len(shares), cs.NbWires)
	}

	// wire 0 carries the public constant 1; pin its canonical sharing so
	// every linear combination sees the exact constant
	var one fr.Element
	one.SetOne()
	shares[0] = p.drv.PromotePublic(one)

	if err := r1cs.Evaluate(ctx, p.drv, cs, shares, covered); err != nil {
		return nil, err
	}

	// r and s blind the proof; fresh unknown randomness every session
	blind, err := p.drv.RandShares(ctx, 2)
	if err != nil {
		return nil, err
	}
	r, s := blind[0], blind[1]

	hCoeffs, rs, err := p.quotient(ctx, cs, shares, r, s)
	if err != nil {
		return nil, err
	}

	// A - alpha and B1 - beta; the public alpha/beta terms are attached
	// after opening
	aPartial, err := mpc.MSMG1(p.pk.G1.A, shares)
	if err != nil {
		return nil, err
	}
	aPartial = mpc.AddG1(aPartial, mpc.ScalarMulG1(p.pk.G1.Delta, r))

	b1Partial, err := mpc.MSMG1(p.pk.G1.B, shares)
	if err != nil {
		return nil, err
	}
	b1Partial = mpc.AddG1(b1Partial, mpc.ScalarMulG1(p.pk.G1.Delta, s))

	b2Partial, err := mpc.MSMG2(p.pk.G2.B, shares)
	if err != nil {
		return nil, err
	}
	b2Partial = mpc.AddG2(b2Partial, mpc.ScalarMulG2(p.pk.G2.Delta, s))

	opened, err := p.drv.OpenG1Vec(ctx, []mpc.G1Share{aPartial, b1Partial})
	if err != nil {
		return nil, err
	}
	ar := addAffineG1(opened[0], p.pk.G1.Alpha)
	b1 := addAffineG1(opened[1], p.pk.G1.Beta)

	b2Open, err := p.drv.OpenG2(ctx, b2Partial)
	if err != nil {
		return nil, err
	}
	bs := addAffineG2(b2Open, p.pk.G2.Beta)

	// C = sum_priv w_k K_k + h(tau) t(tau)/delta + s*A + r*B1 - r*s*delta
	nbPub := cs.NbPublic + 1
	krs, err := mpc.MSMG1(p.pk.G1.K, shares[nbPub:])
	if err != nil {
		return nil, err
	}
	hMsm, err := mpc.MSMG1(p.pk.G1.Z, hCoeffs)
	if err != nil {
		return nil, err
	}
	krs = mpc.AddG1(krs, hMsm)
	krs = mpc.AddG1(krs, mpc.ScalarMulG1(ar, s))
	krs = mpc.AddG1(krs, mpc.ScalarMulG1(b1, r))
	krs = mpc.SubG1(krs, mpc.ScalarMulG1(p.pk.G1.Delta, rs))

	krsOpen, err := p.drv.OpenG1Vec(ctx, []mpc.G1Share{krs})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("rounds", p.drv.Rounds()).
		Str("took", time.Since(start).String()).
		Msg("proof assembled")
	return &Proof{Ar: ar, Bs: bs, Krs: krsOpen[0]}, nil
}

// quotient computes shares of the coefficients of h = (a*b - c)/t on the
// evaluation domain, via the coset trick: t is the constant g^n - 1 there.
// The r*s product rides in the same multiplication batch, so the whole
// quotient costs a single round.
func (p *Prover) quotient(ctx context.Context, cs *r1cs.R1CS, shares []mpc.Share, r, s mpc.Share) ([]mpc.Share, mpc.Share, error) {
	domain := fft.NewDomain(p.pk.DomainSize)
	n := int(domain.Cardinality)

	aEv := make([]mpc.Share, n)
	bEv := make([]mpc.Share, n)
	cEv := make([]mpc.Share, n)
	for i, c := range cs.Constraints {
		aEv[i] = lincomb(c.L, shares)
		bEv[i] = lincomb(c.R, shares)
		cEv[i] = lincomb(c.O, shares)
	}

	mpc.FFTInverse(domain, aEv, false)
	mpc.FFT(domain, aEv, true)
	mpc.FFTInverse(domain, bEv, false)
	mpc.FFT(domain, bEv, true)
	mpc.FFTInverse(domain, cEv, false)
	mpc.FFT(domain, cEv, true)

	mulA := append(aEv, r)
	mulB := append(bEv, s)
	prods, err := p.drv.MulVec(ctx, mulA, mulB)
	if err != nil {
		return nil, mpc.Share{}, err
	}
	rs := prods[n]

	// t on the coset is the constant g^n - 1
	var tCoset, one fr.Element
	one.SetOne()
	tCoset.Exp(domain.FrMultiplicativeGen, big.NewInt(int64(n))).Sub(&tCoset, &one)
	tCoset.Inverse(&tCoset)

	h := make([]mpc.Share, n)
	for i := 0; i < n; i++ {
		h[i] = mpc.MulPublic(mpc.Sub(prods[i], cEv[i]), &tCoset)
	}
	mpc.FFTInverse(domain, h, true)
	// deg h <= n-2, drop the top coefficient to match the key
	return h[:n-1], rs, nil
}

func lincomb(lc []r1cs.Term, w []mpc.Share) mpc.Share {
	var acc mpc.Share
	for _, t := range lc {
		mpc.MulAddPublic(&acc, w[t.Wire], &t.Coeff)
	}
	return acc
}

func addAffineG1(a, b curve.G1Affine) curve.G1Affine {
	var j curve.G1Jac
	j.FromAffine(&a)
	j.AddMixed(&b)
	var out curve.G1Affine
	out.FromJacobian(&j)
	return out
}

func addAffineG2(a, b curve.G2Affine) curve.G2Affine {
	var j curve.G2Jac
	j.FromAffine(&a)
	j.AddMixed(&b)
	var out curve.G2Affine
	out.FromJacobian(&j)
	return out
}
