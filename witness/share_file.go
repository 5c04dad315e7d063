package witness

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/collabzk/co-groth16/mpc"
)

const (
	shareFileMagic = 0x435a5348 // "CZSH"

	// maxProtocolName bounds the header length field so a corrupt file
	// cannot drive a huge allocation.
	maxProtocolName = 64
)

// ShareFile is one party's slice of a split witness, plus the session
// parameters every party must agree on. Covered records how many leading
// wires the file holds shares for; the evaluator derives the rest.
type ShareFile struct {
	Protocol   string
	PartyID    int
	NumParties int
	Threshold  int
	NbWires    int
	Covered    int
	Shares     []mpc.Share
}

// Split shares the first covered wires of a witness under the given
// scheme and builds one share file per party.
func Split(w *Witness, protocol string, scheme mpc.Scheme, n, t, covered int, rng io.Reader) ([]*ShareFile, error) {
	if err := scheme.Validate(n, t); err != nil {
		return nil, err
	}
	if covered < w.NbPublic+1 || covered > len(w.Values) {
		return nil, errors.Errorf("witness: covered wire count %d out of range [%d, %d]", covered, w.NbPublic+1, len(w.Values))
	}
	files := make([]*ShareFile, n)
	for i := 0; i < n; i++ {
		files[i] = &ShareFile{
			Protocol:   protocol,
			PartyID:    i,
			NumParties: n,
			Threshold:  t,
			NbWires:    len(w.Values),
			Covered:    covered,
			Shares:     make([]mpc.Share, covered),
		}
	}
	for k := 0; k < covered; k++ {
		shares, err := scheme.Split(w.Values[k], n, t, rng)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			files[i].Shares[k] = shares[i]
		}
	}
	return files, nil
}

// Reconstruct merges share files back into the covered witness prefix.
// Tooling and test helper; parties never call this.
func Reconstruct(files []*ShareFile, scheme mpc.Scheme) ([]fr.Element, error) {
	if len(files) == 0 {
		return nil, errors.Wrap(mpc.ErrInsufficientShares, "no share files")
	}
	ref := files[0]
	for _, f := range files[1:] {
		if f.Protocol != ref.Protocol || f.NumParties != ref.NumParties ||
			f.Threshold != ref.Threshold || f.Covered != ref.Covered {
			return nil, errors.Wrap(mpc.ErrInconsistentShares, "share files from different sessions")
		}
	}
	out := make([]fr.Element, ref.Covered)
	for k := 0; k < ref.Covered; k++ {
		byParty := make(map[int]mpc.Share, len(files))
		for _, f := range files {
			byParty[f.PartyID] = f.Shares[k]
		}
		v, err := scheme.Reconstruct(byParty, ref.NumParties, ref.Threshold)
		if err != nil {
			return nil, errors.Wrapf(err, "wire %d", k)
		}
		out[k] = v
	}
	return out, nil
}

func (sf *ShareFile) WriteTo(w io.Writer) (int64, error) {
	proto := []byte(sf.Protocol)
	header := []uint64{
		shareFileMagic,
		uint64(len(proto)),
		uint64(sf.PartyID),
		uint64(sf.NumParties),
		uint64(sf.Threshold),
		uint64(sf.NbWires),
		uint64(sf.Covered),
	}
	if err := binary.Write(w, binary.BigEndian, header); err != nil {
		return 0, errors.Wrap(err, "witness: writing share file header")
	}
	if _, err := w.Write(proto); err != nil {
		return 0, errors.Wrap(err, "witness: writing share file header")
	}
	written := int64(8*len(header) + len(proto))

	a := make(fr.Vector, len(sf.Shares))
	b := make(fr.Vector, len(sf.Shares))
	for i, s := range sf.Shares {
		a[i] = s.A
		b[i] = s.B
	}
	n, err := a.WriteTo(w)
	written += n
	if err != nil {
		return written, errors.Wrap(err, "witness: writing shares")
	}
	n, err = b.WriteTo(w)
	written += n
	return written, errors.Wrap(err, "witness: writing shares")
}

func (sf *ShareFile) ReadFrom(r io.Reader) (int64, error) {
	var header [7]uint64
	if err := binary.Read(r, binary.BigEndian, header[:]); err != nil {
		return 0, errors.Wrap(err, "witness: reading share file header")
	}
	if header[0] != shareFileMagic {
		return 0, errors.New("witness: not a share file")
	}
	if header[1] > maxProtocolName {
		return 0, errors.Errorf("witness: protocol name length %d exceeds %d", header[1], maxProtocolName)
	}
	proto := make([]byte, header[1])
	if _, err := io.ReadFull(r, proto); err != nil {
		return 0, errors.Wrap(err, "witness: reading share file header")
	}
	sf.Protocol = string(proto)
	sf.PartyID = int(header[2])
	sf.NumParties = int(header[3])
	sf.Threshold = int(header[4])
	sf.NbWires = int(header[5])
	sf.Covered = int(header[6])
	read := int64(56 + len(proto))

	var a, b fr.Vector
	n, err := a.ReadFrom(r)
	read += n
	if err != nil {
		return read, errors.Wrap(err, "witness: reading shares")
	}
	n, err = b.ReadFrom(r)
	read += n
	if err != nil {
		return read, errors.Wrap(err, "witness: reading shares")
	}
	if len(a) != sf.Covered || len(b) != sf.Covered {
		return read, errors.Wrapf(mpc.ErrSizeMismatch, "share file covers %d wires but holds %d", sf.Covered, len(a))
	}
	sf.Shares = make([]mpc.Share, sf.Covered)
	for i := range sf.Shares {
		sf.Shares[i].A = a[i]
		sf.Shares[i].B = b[i]
	}
	return read, nil
}

// Save writes the share file artifact.
func (sf *ShareFile) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "witness: creating share file")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := sf.WriteTo(w); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "witness: flushing share file")
}

// LoadShareFile reads one party's share file.
func LoadShareFile(path string) (*ShareFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "witness: opening share file")
	}
	defer f.Close()
	var sf ShareFile
	if _, err := sf.ReadFrom(bufio.NewReader(f)); err != nil {
		return nil, err
	}
	return &sf, nil
}
