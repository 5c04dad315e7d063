// Package groth16 holds the proving pipeline: trusted setup over an r1cs
// artifact, the multi-party prover that assembles a proof from witness
// shares, and the plain single-machine verifier. Proofs produced here are
// standard Groth16 proofs over BN254; nothing about the multi-party origin
// is visible to a verifier.
package groth16

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/pkg/errors"
)

// ProvingKey is the per-circuit prover material. The G1.K slice covers the
// private wires only; G1.Z holds the powers tau^i * t(tau)/delta used for
// the quotient commitment.
type ProvingKey struct {
	DomainSize uint64
	NbWires    uint64
	NbPublic   uint64

	G1 struct {
		Alpha, Beta, Delta curve.G1Affine
		A                  []curve.G1Affine
		B                  []curve.G1Affine
		K                  []curve.G1Affine
		Z                  []curve.G1Affine
	}
	G2 struct {
		Beta, Delta curve.G2Affine
		B           []curve.G2Affine
	}
}

// VerifyingKey is the public counterpart; G1.K covers the constant wire
// and the public wires.
type VerifyingKey struct {
	G1 struct {
		Alpha curve.G1Affine
		K     []curve.G1Affine
	}
	G2 struct {
		Beta, Gamma, Delta curve.G2Affine
	}
}

func (pk *ProvingKey) WriteTo(w io.Writer) (int64, error) {
	var header [3]uint64
	header[0] = pk.DomainSize
	header[1] = pk.NbWires
	header[2] = pk.NbPublic
	if err := binary.Write(w, binary.BigEndian, header[:]); err != nil {
		return 0, errors.Wrap(err, "groth16: writing proving key header")
	}
	enc := curve.NewEncoder(w)
	for _, v := range []interface{}{
		&pk.G1.Alpha, &pk.G1.Beta, &pk.G1.Delta,
		pk.G1.A, pk.G1.B, pk.G1.K, pk.G1.Z,
		&pk.G2.Beta, &pk.G2.Delta, pk.G2.B,
	} {
		if err := enc.Encode(v); err != nil {
			return enc.BytesWritten(), errors.Wrap(err, "groth16: writing proving key")
		}
	}
	return 24 + enc.BytesWritten(), nil
}

func (pk *ProvingKey) ReadFrom(r io.Reader) (int64, error) {
	var header [3]uint64
	if err := binary.Read(r, binary.BigEndian, header[:]); err != nil {
		return 0, errors.Wrap(err, "groth16: reading proving key header")
	}
	pk.DomainSize = header[0]
	pk.NbWires = header[1]
	pk.NbPublic = header[2]
	dec := curve.NewDecoder(r)
	for _, v := range []interface{}{
		&pk.G1.Alpha, &pk.G1.Beta, &pk.G1.Delta,
		&pk.G1.A, &pk.G1.B, &pk.G1.K, &pk.G1.Z,
		&pk.G2.Beta, &pk.G2.Delta, &pk.G2.B,
	} {
		if err := dec.Decode(v); err != nil {
			return dec.BytesRead(), errors.Wrap(err, "groth16: reading proving key")
		}
	}
	return 24 + dec.BytesRead(), nil
}

func (vk *VerifyingKey) WriteTo(w io.Writer) (int64, error) {
	enc := curve.NewEncoder(w)
	for _, v := range []interface{}{
		&vk.G1.Alpha, vk.G1.K,
		&vk.G2.Beta, &vk.G2.Gamma, &vk.G2.Delta,
	} {
		if err := enc.Encode(v); err != nil {
			return enc.BytesWritten(), errors.Wrap(err, "groth16: writing verifying key")
		}
	}
	return enc.BytesWritten(), nil
}

func (vk *VerifyingKey) ReadFrom(r io.Reader) (int64, error) {
	dec := curve.NewDecoder(r)
	for _, v := range []interface{}{
		&vk.G1.Alpha, &vk.G1.K,
		&vk.G2.Beta, &vk.G2.Gamma, &vk.G2.Delta,
	} {
		if err := dec.Decode(v); err != nil {
			return dec.BytesRead(), errors.Wrap(err, "groth16: reading verifying key")
		}
	}
	return dec.BytesRead(), nil
}

// SaveKey writes a key artifact through a buffered writer.
func SaveKey(path string, key io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "groth16: creating key file")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := key.WriteTo(w); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "groth16: flushing key file")
}

// LoadKey reads a key artifact.
func LoadKey(path string, key io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "groth16: opening key file")
	}
	defer f.Close()
	_, err = key.ReadFrom(bufio.NewReader(f))
	return err
}
