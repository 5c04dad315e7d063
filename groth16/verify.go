package groth16

import (
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/logger"
	"github.com/pkg/errors"

	"github.com/collabzk/co-groth16/mpc"
)

// ErrInvalidProof is returned when the pairing check rejects.
var ErrInvalidProof = errors.New("groth16: invalid proof")

// Verify checks a proof against the verifying key and the public inputs
// (excluding the constant wire). Plain single-machine operation.
func Verify(proof *Proof, vk *VerifyingKey, publicInputs []fr.Element) error {
	log := logger.Logger().With().Str("component", "verifier").Logger()
	start := time.Now()

	if len(publicInputs)+1 != len(vk.G1.K) {
		return errors.Wrapf(mpc.ErrSizeMismatch, "%d public inputs, verifying key expects %d", len(publicInputs), len(vk.G1.K)-1)
	}

	// ic = K_0 + sum_k pub_k K_k
	var icJac curve.G1Jac
	icJac.FromAffine(&vk.G1.K[0])
	if len(publicInputs) > 0 {
		var acc curve.G1Jac
		if _, err := acc.MultiExp(vk.G1.K[1:], publicInputs, ecc.MultiExpConfig{}); err != nil {
			return err
		}
		icJac.AddAssign(&acc)
	}
	var ic curve.G1Affine
	ic.FromJacobian(&icJac)

	// e(A, B) == e(alpha, beta) e(ic, gamma) e(C, delta)
	var negAlpha, negIC, negKrs curve.G1Affine
	negAlpha.Neg(&vk.G1.Alpha)
	negIC.Neg(&ic)
	negKrs.Neg(&proof.Krs)
	ok, err := curve.PairingCheck(
		[]curve.G1Affine{proof.Ar, negAlpha, negIC, negKrs},
		[]curve.G2Affine{proof.Bs, vk.G2.Beta, vk.G2.Gamma, vk.G2.Delta},
	)
	if err != nil {
		return errors.Wrap(err, "groth16: pairing check")
	}
	if !ok {
		return ErrInvalidProof
	}
	log.Info().Str("took", time.Since(start).String()).Msg("proof verified")
	return nil
}
