package rep3

import (
	"context"
	"encoding/binary"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/collabzk/co-groth16/mpc"
	"github.com/collabzk/co-groth16/mpcnet"
)

func init() {
	mpc.Register(mpc.Protocol{
		Name:      "rep3",
		Scheme:    Scheme{},
		NewDriver: NewDriver,
	})
}

// Driver is the online rep3 backend. After the seed exchange, party i
// holds the PRF keys (k_i, k_{i+1}); correlated randomness (zero sharings
// for multiplication, random sharings for blinding) is derived locally
// from a counter every party advances in lockstep.
type Driver struct {
	transport mpcnet.Transport
	id        int

	keyOwn  [32]byte // k_i, also sent to party i-1
	keyNext [32]byte // k_{i+1}, received from party i+1

	seq    uint64 // round sequence number, tags every message
	ctr    uint64 // PRF counter
	rounds int
}

// NewDriver exchanges PRF seeds with the neighbors: party i sends its key
// to party i-1, so that afterwards party i holds (k_i, k_{i+1}). This is
// the only setup interaction of the backend.
func NewDriver(ctx context.Context, transport mpcnet.Transport, cfg mpc.Config) (mpc.Driver, error) {
	if err := (Scheme{}).Validate(cfg.NumParties, cfg.Threshold); err != nil {
		return nil, err
	}
	if transport.NumParties() != NumParties {
		return nil, errors.Wrapf(mpc.ErrSizeMismatch, "rep3 transport has %d parties", transport.NumParties())
	}
	d := &Driver{
		transport: transport,
		id:        cfg.PartyID,
	}
	if _, err := cfg.Rng.Read(d.keyOwn[:]); err != nil {
		return nil, errors.Wrap(err, "rep3: sampling prf seed")
	}
	round := d.nextRound()
	if err := transport.Send(ctx, d.prev(), round, d.keyOwn[:]); err != nil {
		return nil, err
	}
	key, err := transport.Receive(ctx, d.next(), round)
	if err != nil {
		return nil, err
	}
	if len(key) != len(d.keyNext) {
		return nil, errors.Wrapf(mpc.ErrSizeMismatch, "rep3: seed message has %d bytes", len(key))
	}
	copy(d.keyNext[:], key)
	return d, nil
}

func (d *Driver) PartyID() int    { return d.id }
func (d *Driver) NumParties() int { return NumParties }
func (d *Driver) Threshold() int  { return 1 }
func (d *Driver) Rounds() int     { return d.rounds }

func (d *Driver) next() int { return (d.id + 1) % 3 }
func (d *Driver) prev() int { return (d.id + 2) % 3 }

func (d *Driver) nextRound() uint64 {
	d.seq++
	d.rounds++
	return d.seq
}

func (d *Driver) PromotePublic(v fr.Element) mpc.Share {
	// deterministic sharing v = v + 0 + 0
	var s mpc.Share
	if d.id == 0 {
		s.A = v
	}
	if d.id == 2 {
		s.B = v
	}
	return s
}

func (d *Driver) AddPublic(a mpc.Share, v fr.Element) mpc.Share {
	if d.id == 0 {
		a.A.Add(&a.A, &v)
	}
	if d.id == 2 {
		a.B.Add(&a.B, &v)
	}
	return a
}

// prf expands one of the pairwise seeds into a field element. The domain
// byte separates zero-sharing material from random-sharing material.
func prf(key *[32]byte, domain byte, ctr uint64) fr.Element {
	h, err := blake2b.New512(key[:])
	if err != nil {
		panic(err) // key size is fixed and valid
	}
	var msg [9]byte
	msg[0] = domain
	binary.BigEndian.PutUint64(msg[1:], ctr)
	h.Write(msg[:])
	sum := h.Sum(nil)
	var z fr.Element
	z.SetBytes(sum[:48])
	return z
}

const (
	domainZero = 0x00
	domainRand = 0x01
)

// zeroShare returns this party's addend alpha_i of a fresh sharing of
// zero: alpha_i = F(k_i) - F(k_{i+1}); the three addends telescope to 0.
func (d *Driver) zeroShare(ctr uint64) fr.Element {
	a := prf(&d.keyOwn, domainZero, ctr)
	b := prf(&d.keyNext, domainZero, ctr)
	a.Sub(&a, &b)
	return a
}

func (d *Driver) RandShares(ctx context.Context, n int) ([]mpc.Share, error) {
	// r_j = F(k_j); party i can evaluate exactly the two components it is
	// supposed to hold. No interaction.
	out := make([]mpc.Share, n)
	for i := range out {
		ctr := d.ctr
		d.ctr++
		out[i].A = prf(&d.keyOwn, domainRand, ctr)
		out[i].B = prf(&d.keyNext, domainRand, ctr)
	}
	return out, nil
}

func (d *Driver) MulVec(ctx context.Context, a, b []mpc.Share) ([]mpc.Share, error) {
	if len(a) != len(b) {
		return nil, errors.Wrapf(mpc.ErrSizeMismatch, "mulvec: %d vs %d", len(a), len(b))
	}
	// z_i = a_i b_i + a_i b_{i+1} + a_{i+1} b_i + alpha_i is an additive
	// share of the product; re-replicate by sending it to party i-1.
	z := make([]fr.Element, len(a))
	var t fr.Element
	for k := range a {
		z[k].Mul(&a[k].A, &b[k].A)
		t.Mul(&a[k].A, &b[k].B)
		z[k].Add(&z[k], &t)
		t.Mul(&a[k].B, &b[k].A)
		z[k].Add(&z[k], &t)
		alpha := d.zeroShare(d.ctr)
		d.ctr++
		z[k].Add(&z[k], &alpha)
	}

	payload, err := mpc.EncodeFrVec(z)
	if err != nil {
		return nil, err
	}
	round := d.nextRound()
	if err := d.transport.Send(ctx, d.prev(), round, payload); err != nil {
		return nil, err
	}
	data, err := d.transport.Receive(ctx, d.next(), round)
	if err != nil {
		return nil, err
	}
	zNext, err := mpc.DecodeFrVec(data)
	if err != nil {
		return nil, err
	}
	if len(zNext) != len(z) {
		return nil, errors.Wrapf(mpc.ErrSizeMismatch, "mulvec: peer sent %d elements, want %d", len(zNext), len(z))
	}
	out := make([]mpc.Share, len(z))
	for k := range z {
		out[k].A = z[k]
		out[k].B = zNext[k]
	}
	return out, nil
}

func (d *Driver) Open(ctx context.Context, s mpc.Share) (fr.Element, error) {
	vs, err := d.OpenVec(ctx, []mpc.Share{s})
	if err != nil {
		return fr.Element{}, err
	}
	return vs[0], nil
}

// OpenVec sends this party's replicated pair to both peers and
// cross-checks every component against its redundant copy before summing.
func (d *Driver) OpenVec(ctx context.Context, s []mpc.Share) ([]fr.Element, error) {
	m := len(s)
	mine := make([]fr.Element, 2*m)
	for k := range s {
		mine[2*k] = s[k].A
		mine[2*k+1] = s[k].B
	}
	fromNext, fromPrev, err := d.exchangeAll(ctx, mine)
	if err != nil {
		return nil, err
	}
	if len(fromNext) != 2*m || len(fromPrev) != 2*m {
		return nil, errors.Wrap(mpc.ErrSizeMismatch, "open: short peer message")
	}
	out := make([]fr.Element, m)
	for k := 0; k < m; k++ {
		xi, xi1 := s[k].A, s[k].B
		// next party holds (x_{i+1}, x_{i+2}); prev holds (x_{i+2}, x_i)
		nA, nB := fromNext[2*k], fromNext[2*k+1]
		pA, pB := fromPrev[2*k], fromPrev[2*k+1]
		if !xi1.Equal(&nA) || !xi.Equal(&pB) || !nB.Equal(&pA) {
			return nil, errors.Wrapf(mpc.ErrOpenMismatch, "replicated components disagree at index %d", k)
		}
		out[k].Add(&xi, &xi1).Add(&out[k], &nB)
	}
	return out, nil
}

func (d *Driver) OpenG1Vec(ctx context.Context, ps []mpc.G1Share) ([]curve.G1Affine, error) {
	m := len(ps)
	jac := make([]curve.G1Jac, 2*m)
	for k := range ps {
		jac[2*k] = ps[k].A
		jac[2*k+1] = ps[k].B
	}
	mine := curve.BatchJacobianToAffineG1(jac)
	payload, err := mpc.EncodeG1Vec(mine)
	if err != nil {
		return nil, err
	}
	round := d.nextRound()
	if err := d.sendBoth(ctx, round, payload); err != nil {
		return nil, err
	}
	nextData, prevData, err := d.recvBoth(ctx, round)
	if err != nil {
		return nil, err
	}
	fromNext, err := mpc.DecodeG1Vec(nextData)
	if err != nil {
		return nil, err
	}
	fromPrev, err := mpc.DecodeG1Vec(prevData)
	if err != nil {
		return nil, err
	}
	if len(fromNext) != 2*m || len(fromPrev) != 2*m {
		return nil, errors.Wrap(mpc.ErrSizeMismatch, "open: short peer message")
	}
	out := make([]curve.G1Affine, m)
	for k := 0; k < m; k++ {
		if !mine[2*k+1].Equal(&fromNext[2*k]) || !mine[2*k].Equal(&fromPrev[2*k+1]) || !fromNext[2*k+1].Equal(&fromPrev[2*k]) {
			return nil, errors.Wrapf(mpc.ErrOpenMismatch, "replicated G1 components disagree at index %d", k)
		}
		var acc curve.G1Jac
		acc.FromAffine(&mine[2*k])
		var t curve.G1Jac
		t.FromAffine(&mine[2*k+1])
		acc.AddAssign(&t)
		t.FromAffine(&fromNext[2*k+1])
		acc.AddAssign(&t)
		out[k].FromJacobian(&acc)
	}
	return out, nil
}

func (d *Driver) OpenG2(ctx context.Context, p mpc.G2Share) (curve.G2Affine, error) {
	var mine [2]curve.G2Affine
	mine[0].FromJacobian(&p.A)
	mine[1].FromJacobian(&p.B)
	payload, err := mpc.EncodeG2Vec(mine[:])
	if err != nil {
		return curve.G2Affine{}, err
	}
	round := d.nextRound()
	if err := d.sendBoth(ctx, round, payload); err != nil {
		return curve.G2Affine{}, err
	}
	nextData, prevData, err := d.recvBoth(ctx, round)
	if err != nil {
		return curve.G2Affine{}, err
	}
	fromNext, err := mpc.DecodeG2Vec(nextData)
	if err != nil {
		return curve.G2Affine{}, err
	}
	fromPrev, err := mpc.DecodeG2Vec(prevData)
	if err != nil {
		return curve.G2Affine{}, err
	}
	if len(fromNext) != 2 || len(fromPrev) != 2 {
		return curve.G2Affine{}, errors.Wrap(mpc.ErrSizeMismatch, "open: short peer message")
	}
	if !mine[1].Equal(&fromNext[0]) || !mine[0].Equal(&fromPrev[1]) || !fromNext[1].Equal(&fromPrev[0]) {
		return curve.G2Affine{}, errors.Wrap(mpc.ErrOpenMismatch, "replicated G2 components disagree")
	}
	var acc, t curve.G2Jac
	acc.FromAffine(&mine[0])
	t.FromAffine(&mine[1])
	acc.AddAssign(&t)
	t.FromAffine(&fromNext[1])
	acc.AddAssign(&t)
	var out curve.G2Affine
	out.FromJacobian(&acc)
	return out, nil
}

// exchangeAll ships a field vector to both peers and collects theirs.
func (d *Driver) exchangeAll(ctx context.Context, mine []fr.Element) (fromNext, fromPrev []fr.Element, err error) {
	payload, err := mpc.EncodeFrVec(mine)
	if err != nil {
		return nil, nil, err
	}
	round := d.nextRound()
	if err := d.sendBoth(ctx, round, payload); err != nil {
		return nil, nil, err
	}
	nextData, prevData, err := d.recvBoth(ctx, round)
	if err != nil {
		return nil, nil, err
	}
	if fromNext, err = mpc.DecodeFrVec(nextData); err != nil {
		return nil, nil, err
	}
	if fromPrev, err = mpc.DecodeFrVec(prevData); err != nil {
		return nil, nil, err
	}
	return fromNext, fromPrev, nil
}

func (d *Driver) sendBoth(ctx context.Context, round uint64, payload []byte) error {
	if err := d.transport.Send(ctx, d.next(), round, payload); err != nil {
		return err
	}
	return d.transport.Send(ctx, d.prev(), round, payload)
}

func (d *Driver) recvBoth(ctx context.Context, round uint64) (fromNext, fromPrev []byte, err error) {
	if fromNext, err = d.transport.Receive(ctx, d.next(), round); err != nil {
		return nil, nil, err
	}
	if fromPrev, err = d.transport.Receive(ctx, d.prev(), round); err != nil {
		return nil, nil, err
	}
	return fromNext, fromPrev, nil
}
