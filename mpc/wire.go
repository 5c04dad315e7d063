package mpc

import (
	"bytes"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
)

// Round payload codecs shared by the backends. Everything on the wire is
// either a vector of field elements or a vector of curve points, encoded
// with the curve's own canonical encoder.

func EncodeFrVec(v []fr.Element) ([]byte, error) {
	var buf bytes.Buffer
	enc := curve.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "mpc: encoding field vector")
	}
	return buf.Bytes(), nil
}

func DecodeFrVec(data []byte) ([]fr.Element, error) {
	dec := curve.NewDecoder(bytes.NewReader(data))
	var v []fr.Element
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "mpc: decoding field vector")
	}
	return v, nil
}

func EncodeG1Vec(v []curve.G1Affine) ([]byte, error) {
	var buf bytes.Buffer
	enc := curve.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "mpc: encoding G1 vector")
	}
	return buf.Bytes(), nil
}

func DecodeG1Vec(data []byte) ([]curve.G1Affine, error) {
	dec := curve.NewDecoder(bytes.NewReader(data))
	var v []curve.G1Affine
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "mpc: decoding G1 vector")
	}
	return v, nil
}

func EncodeG2Vec(v []curve.G2Affine) ([]byte, error) {
	var buf bytes.Buffer
	enc := curve.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "mpc: encoding G2 vector")
	}
	return buf.Bytes(), nil
}

func DecodeG2Vec(data []byte) ([]curve.G2Affine, error) {
	dec := curve.NewDecoder(bytes.NewReader(data))
	var v []curve.G2Affine
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "mpc: decoding G2 vector")
	}
	return v, nil
}
