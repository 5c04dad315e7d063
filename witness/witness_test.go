package witness

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/collabzk/co-groth16/mpc"
	"github.com/collabzk/co-groth16/mpc/rep3"
	"github.com/collabzk/co-groth16/mpc/shamir"
)

func testWitness() *Witness {
	w := &Witness{NbPublic: 1, Values: make([]fr.Element, 5)}
	w.Values[0].SetOne()
	w.Values[1].SetUint64(35)
	w.Values[2].SetUint64(3)
	w.Values[3].SetUint64(9)
	w.Values[4].SetUint64(27)
	return w
}

func TestWitnessJSONRoundTrip(t *testing.T) {
	w := testWitness()
	path := filepath.Join(t.TempDir(), "witness.json")
	require.NoError(t, w.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, w.NbPublic, back.NbPublic)
	require.Equal(t, w.Values, back.Values)
}

func TestLoadRejectsBadConstantWire(t *testing.T) {
	w := testWitness()
	w.Values[0].SetUint64(2)
	path := filepath.Join(t.TempDir(), "witness.json")
	require.NoError(t, w.Save(path))
	_, err := Load(path)
	require.Error(t, err)
}

func TestSplitReconstructRoundTrip(t *testing.T) {
	w := testWitness()
	for _, tc := range []struct {
		protocol string
		scheme   mpc.Scheme
		n, t     int
	}{
		{"rep3", rep3.Scheme{}, 3, 1},
		{"shamir", shamir.Scheme{}, 5, 2},
	} {
		files, err := Split(w, tc.protocol, tc.scheme, tc.n, tc.t, len(w.Values), rand.Reader)
		require.NoError(t, err)
		require.Len(t, files, tc.n)

		got, err := Reconstruct(files, tc.scheme)
		require.NoError(t, err)
		require.Equal(t, w.Values, got, tc.protocol)
	}
}

func TestSplitPartialCover(t *testing.T) {
	w := testWitness()
	files, err := Split(w, "rep3", rep3.Scheme{}, 3, 1, 3, rand.Reader)
	require.NoError(t, err)
	for _, f := range files {
		require.Equal(t, 3, f.Covered)
		require.Equal(t, 5, f.NbWires)
		require.Len(t, f.Shares, 3)
	}
	got, err := Reconstruct(files, rep3.Scheme{})
	require.NoError(t, err)
	require.Equal(t, w.Values[:3], got)
}

func TestSplitRejectsShortCover(t *testing.T) {
	w := testWitness()
	// the cover must include the constant and all public wires
	_, err := Split(w, "rep3", rep3.Scheme{}, 3, 1, 1, rand.Reader)
	require.Error(t, err)
}

func TestShareFileRoundTrip(t *testing.T) {
	w := testWitness()
	files, err := Split(w, "rep3", rep3.Scheme{}, 3, 1, len(w.Values), rand.Reader)
	require.NoError(t, err)

	dir := t.TempDir()
	stem := filepath.Join(dir, "witness")
	for _, sf := range files {
		require.NoError(t, sf.Save(SharePath(stem, sf.PartyID)))
	}

	loaded := make([]*ShareFile, 3)
	for i := range loaded {
		sf, err := LoadShareFile(SharePath(stem, i))
		require.NoError(t, err)
		require.Equal(t, "rep3", sf.Protocol)
		require.Equal(t, i, sf.PartyID)
		require.Equal(t, 3, sf.NumParties)
		require.Equal(t, 1, sf.Threshold)
		loaded[i] = sf
	}
	got, err := Reconstruct(loaded, rep3.Scheme{})
	require.NoError(t, err)
	require.Equal(t, w.Values, got)
}

func TestShareFileRejectsOversizedProtocolName(t *testing.T) {
	// corrupt header claims a terabyte-scale protocol name; the decoder
	// must refuse before allocating
	var buf bytes.Buffer
	header := []uint64{shareFileMagic, 1 << 40, 0, 3, 1, 5, 5}
	require.NoError(t, binary.Write(&buf, binary.BigEndian, header))

	var sf ShareFile
	_, err := sf.ReadFrom(&buf)
	require.Error(t, err)
}

func TestReconstructRejectsMixedSessions(t *testing.T) {
	w := testWitness()
	a, err := Split(w, "rep3", rep3.Scheme{}, 3, 1, 5, rand.Reader)
	require.NoError(t, err)
	b, err := Split(w, "rep3", rep3.Scheme{}, 3, 1, 3, rand.Reader)
	require.NoError(t, err)

	_, err = Reconstruct([]*ShareFile{a[0], b[1]}, rep3.Scheme{})
	require.ErrorIs(t, err, mpc.ErrInconsistentShares)
}

func TestPublicInputsRoundTrip(t *testing.T) {
	w := testWitness()
	path := PublicPath(filepath.Join(t.TempDir(), "witness"))
	require.NoError(t, SavePublicInputs(path, w.PublicInputs()))

	got, err := LoadPublicInputs(path)
	require.NoError(t, err)
	require.Equal(t, w.PublicInputs(), got)
}
