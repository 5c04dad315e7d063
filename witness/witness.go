// Package witness handles the trusted-dealer side: loading a plain
// witness, splitting it into per-party share files and extracting the
// public inputs. The plain witness only ever exists on the dealer machine;
// parties consume share files and never see it.
package witness

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
)

// Witness is the plain wire assignment, wire 0 first.
type Witness struct {
	NbPublic int
	Values   []fr.Element
}

type witnessJSON struct {
	NbPublic int      `json:"n_public"`
	Values   []string `json:"values"`
}

func (w *Witness) MarshalJSON() ([]byte, error) {
	out := witnessJSON{NbPublic: w.NbPublic, Values: make([]string, len(w.Values))}
	for i := range w.Values {
		out.Values[i] = w.Values[i].String()
	}
	return json.Marshal(out)
}

func (w *Witness) UnmarshalJSON(data []byte) error {
	var in witnessJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "witness: parsing json")
	}
	w.NbPublic = in.NbPublic
	w.Values = make([]fr.Element, len(in.Values))
	for i, s := range in.Values {
		if _, err := w.Values[i].SetString(s); err != nil {
			return errors.Wrapf(err, "witness: bad value %q at wire %d", s, i)
		}
	}
	return nil
}

// Load reads a plain witness artifact.
func Load(path string) (*Witness, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "witness: reading file")
	}
	var w Witness
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if len(w.Values) == 0 || !isOne(w.Values[0]) {
		return nil, errors.New("witness: wire 0 must be the constant 1")
	}
	if w.NbPublic < 0 || w.NbPublic >= len(w.Values) {
		return nil, errors.Errorf("witness: %d public wires out of %d values", w.NbPublic, len(w.Values))
	}
	return &w, nil
}

// Save writes the plain witness. Dealer-side tooling and tests only.
func (w *Witness) Save(path string) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return errors.Wrap(err, "witness: encoding json")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "witness: writing file")
}

// PublicInputs returns the public wire values, constant excluded.
func (w *Witness) PublicInputs() []fr.Element {
	out := make([]fr.Element, w.NbPublic)
	copy(out, w.Values[1:w.NbPublic+1])
	return out
}

func isOne(v fr.Element) bool {
	var one fr.Element
	one.SetOne()
	return v.Equal(&one)
}

// SavePublicInputs writes the public inputs artifact handed to verifiers.
func SavePublicInputs(path string, inputs []fr.Element) error {
	vals := make([]string, len(inputs))
	for i := range inputs {
		vals[i] = inputs[i].String()
	}
	data, err := json.MarshalIndent(vals, "", "  ")
	if err != nil {
		return errors.Wrap(err, "witness: encoding public inputs")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "witness: writing public inputs")
}

// LoadPublicInputs reads the public inputs artifact.
func LoadPublicInputs(path string) ([]fr.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "witness: reading public inputs")
	}
	var vals []string
	if err := json.Unmarshal(data, &vals); err != nil {
		return nil, errors.Wrap(err, "witness: parsing public inputs")
	}
	out := make([]fr.Element, len(vals))
	for i, s := range vals {
		if _, err := out[i].SetString(s); err != nil {
			return nil, errors.Wrapf(err, "witness: bad public input %q", s)
		}
	}
	return out, nil
}

// SharePath names the share file of one party for a witness stem.
func SharePath(stem string, party int) string {
	return fmt.Sprintf("%s.%d.shared", stem, party)
}

// PublicPath names the public inputs file for a witness stem.
func PublicPath(stem string) string {
	return stem + ".public.json"
}
