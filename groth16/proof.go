package groth16

import (
	"encoding/json"
	"os"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Proof is a standard Groth16 proof over BN254. A proof assembled by a
// proving session is indistinguishable from one produced by a single
// machine holding the full witness.
type Proof struct {
	Ar  curve.G1Affine
	Bs  curve.G2Affine
	Krs curve.G1Affine
}

type proofJSON struct {
	PiA hexutil.Bytes `json:"pi_a"`
	PiB hexutil.Bytes `json:"pi_b"`
	PiC hexutil.Bytes `json:"pi_c"`
}

func (p *Proof) MarshalJSON() ([]byte, error) {
	a := p.Ar.Bytes()
	b := p.Bs.Bytes()
	c := p.Krs.Bytes()
	return json.Marshal(proofJSON{PiA: a[:], PiB: b[:], PiC: c[:]})
}

func (p *Proof) UnmarshalJSON(data []byte) error {
	var in proofJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "groth16: parsing proof json")
	}
	if _, err := p.Ar.SetBytes(in.PiA); err != nil {
		return errors.Wrap(err, "groth16: decoding pi_a")
	}
	if _, err := p.Bs.SetBytes(in.PiB); err != nil {
		return errors.Wrap(err, "groth16: decoding pi_b")
	}
	if _, err := p.Krs.SetBytes(in.PiC); err != nil {
		return errors.Wrap(err, "groth16: decoding pi_c")
	}
	return nil
}

// Save writes the proof artifact as JSON.
func (p *Proof) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "groth16: encoding proof")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "groth16: writing proof file")
}

// LoadProof reads a proof artifact.
func LoadProof(path string) (*Proof, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "groth16: reading proof file")
	}
	var p Proof
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
