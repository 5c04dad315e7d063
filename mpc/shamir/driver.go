package shamir

import (
	"context"
	"io"
	"math/big"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/collabzk/co-groth16/mpc"
	"github.com/collabzk/co-groth16/mpcnet"
)

func init() {
	mpc.Register(mpc.Protocol{
		Name:      "shamir",
		Scheme:    Scheme{},
		NewDriver: NewDriver,
	})
}

// randPoolBatch is how many random sharings one refill round produces.
const randPoolBatch = 128

// Driver is the online Shamir backend. Multiplication raises the sharing
// degree to 2t and immediately reduces it back with a resharing round, so
// the driver requires an honest majority: 2t+1 <= n.
type Driver struct {
	transport mpcnet.Transport
	id        int
	n         int
	t         int
	rng       io.Reader

	// Lagrange weights: wAll at zero over all n points (degree <= n-1,
	// used for degree-2t recombination), wRec at zero over the first t+1
	// points (open reconstruction), wCheck[j] predicting party t+1+j's
	// point from the first t+1, so opens cross-check every contribution.
	wAll   []fr.Element
	wRec   []fr.Element
	wCheck [][]fr.Element

	pool   []mpc.Share
	seq    uint64
	rounds int
}

func NewDriver(ctx context.Context, transport mpcnet.Transport, cfg mpc.Config) (mpc.Driver, error) {
	if err := (Scheme{}).Validate(cfg.NumParties, cfg.Threshold); err != nil {
		return nil, err
	}
	if 2*cfg.Threshold+1 > cfg.NumParties {
		return nil, errors.Wrapf(mpc.ErrInvalidThreshold,
			"shamir multiplication needs 2t+1 <= n (got n=%d, t=%d)", cfg.NumParties, cfg.Threshold)
	}
	if transport.NumParties() != cfg.NumParties {
		return nil, errors.Wrapf(mpc.ErrSizeMismatch, "transport has %d parties, config says %d", transport.NumParties(), cfg.NumParties)
	}
	n, t := cfg.NumParties, cfg.Threshold
	xs := make([]fr.Element, n)
	for i := 0; i < n; i++ {
		xs[i] = partyPoint(i)
	}
	checks := make([][]fr.Element, n-t-1)
	for j := t + 1; j < n; j++ {
		checks[j-t-1] = lagrangeWeights(xs[:t+1], xs[j])
	}
	d := &Driver{
		transport: transport,
		id:        cfg.PartyID,
		n:         n,
		t:         t,
		rng:       cfg.Rng,
		wAll:      lagrangeAtZero(xs),
		wRec:      lagrangeAtZero(xs[:t+1]),
		wCheck:    checks,
	}
	return d, nil
}

func (d *Driver) PartyID() int    { return d.id }
func (d *Driver) NumParties() int { return d.n }
func (d *Driver) Threshold() int  { return d.t }
func (d *Driver) Rounds() int     { return d.rounds }

func (d *Driver) nextRound() uint64 {
	d.seq++
	d.rounds++
	return d.seq
}

func (d *Driver) PromotePublic(v fr.Element) mpc.Share {
	// the constant polynomial: every party's evaluation is v
	return mpc.Share{A: v}
}

func (d *Driver) AddPublic(a mpc.Share, v fr.Element) mpc.Share {
	a.A.Add(&a.A, &v)
	return a
}

// exchange sends perPeer[j] to party j and returns what every party sent
// here, with this party's own entry filled in locally.
func (d *Driver) exchange(ctx context.Context, round uint64, perPeer [][]fr.Element) ([][]fr.Element, error) {
	g, gctx := errgroup.WithContext(ctx)
	for j := 0; j < d.n; j++ {
		if j == d.id {
			continue
		}
		j := j
		payload, err := mpc.EncodeFrVec(perPeer[j])
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			return d.transport.Send(gctx, j, round, payload)
		})
	}
	recv := make([][]fr.Element, d.n)
	recv[d.id] = perPeer[d.id]
	for j := 0; j < d.n; j++ {
		if j == d.id {
			continue
		}
		data, err := d.transport.Receive(ctx, j, round)
		if err != nil {
			return nil, err
		}
		if recv[j], err = mpc.DecodeFrVec(data); err != nil {
			return nil, err
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return recv, nil
}

// broadcast sends the same vector to every peer and collects all vectors.
func (d *Driver) broadcast(ctx context.Context, round uint64, mine []fr.Element) ([][]fr.Element, error) {
	perPeer := make([][]fr.Element, d.n)
	for j := range perPeer {
		perPeer[j] = mine
	}
	return d.exchange(ctx, round, perPeer)
}

func (d *Driver) MulVec(ctx context.Context, a, b []mpc.Share) ([]mpc.Share, error) {
	if len(a) != len(b) {
		return nil, errors.Wrapf(mpc.ErrSizeMismatch, "mulvec: %d vs %d", len(a), len(b))
	}
	m := len(a)
	// local products are a valid degree-2t sharing; reshare every product
	// under a fresh degree-t polynomial to reduce the degree again
	perPeer := make([][]fr.Element, d.n)
	for j := range perPeer {
		perPeer[j] = make([]fr.Element, m)
	}
	for k := 0; k < m; k++ {
		var prod fr.Element
		prod.Mul(&a[k].A, &b[k].A)
		coeffs, err := randomPoly(prod, d.t, d.rng)
		if err != nil {
			return nil, err
		}
		for j := 0; j < d.n; j++ {
			perPeer[j][k] = evalPoly(coeffs, partyPoint(j))
		}
	}
	recv, err := d.exchange(ctx, d.nextRound(), perPeer)
	if err != nil {
		return nil, err
	}
	// recombine: sum_j wAll_j * [d_j] is a degree-t sharing of the product
	out := make([]mpc.Share, m)
	var t fr.Element
	for j := 0; j < d.n; j++ {
		if len(recv[j]) != m {
			return nil, errors.Wrapf(mpc.ErrSizeMismatch, "mulvec: party %d sent %d elements, want %d", j, len(recv[j]), m)
		}
		for k := 0; k < m; k++ {
			t.Mul(&d.wAll[j], &recv[j][k])
			out[k].A.Add(&out[k].A, &t)
		}
	}
	return out, nil
}

// RandShares serves blinding randomness from a pooled batch: every party
// contributes a random sharing and the pool entry is their sum, so any
// n-1 colluding parties still miss one addend. Refills cost one round.
func (d *Driver) RandShares(ctx context.Context, n int) ([]mpc.Share, error) {
	for len(d.pool) < n {
		if err := d.refillPool(ctx, randPoolBatch); err != nil {
			return nil, err
		}
	}
	out := d.pool[:n]
	d.pool = d.pool[n:]
	return out, nil
}

func (d *Driver) refillPool(ctx context.Context, batch int) error {
	perPeer := make([][]fr.Element, d.n)
	for j := range perPeer {
		perPeer[j] = make([]fr.Element, batch)
	}
	var buf [fr.Bytes + 16]byte
	for k := 0; k < batch; k++ {
		var secret fr.Element
		if _, err := io.ReadFull(d.rng, buf[:]); err != nil {
			return errors.Wrap(err, "shamir: drawing randomness")
		}
		secret.SetBytes(buf[:])
		coeffs, err := randomPoly(secret, d.t, d.rng)
		if err != nil {
			return err
		}
		for j := 0; j < d.n; j++ {
			perPeer[j][k] = evalPoly(coeffs, partyPoint(j))
		}
	}
	recv, err := d.exchange(ctx, d.nextRound(), perPeer)
	if err != nil {
		return err
	}
	for k := 0; k < batch; k++ {
		var s mpc.Share
		for j := 0; j < d.n; j++ {
			if len(recv[j]) != batch {
				return errors.Wrapf(mpc.ErrSizeMismatch, "rand refill: party %d sent %d elements", j, len(recv[j]))
			}
			s.A.Add(&s.A, &recv[j][k])
		}
		d.pool = append(d.pool, s)
	}
	return nil
}

func (d *Driver) Open(ctx context.Context, s mpc.Share) (fr.Element, error) {
	vs, err := d.OpenVec(ctx, []mpc.Share{s})
	if err != nil {
		return fr.Element{}, err
	}
	return vs[0], nil
}

func (d *Driver) OpenVec(ctx context.Context, s []mpc.Share) ([]fr.Element, error) {
	m := len(s)
	mine := make([]fr.Element, m)
	for k := range s {
		mine[k] = s[k].A
	}
	recv, err := d.broadcast(ctx, d.nextRound(), mine)
	if err != nil {
		return nil, err
	}
	for j := 0; j < d.n; j++ {
		if len(recv[j]) != m {
			return nil, errors.Wrapf(mpc.ErrSizeMismatch, "open: party %d sent %d elements", j, len(recv[j]))
		}
	}
	out := make([]fr.Element, m)
	var acc, pred, t fr.Element
	for k := 0; k < m; k++ {
		acc.SetZero()
		for j := 0; j <= d.t; j++ {
			t.Mul(&d.wRec[j], &recv[j][k])
			acc.Add(&acc, &t)
		}
		// every remaining point must lie on the degree-t polynomial
		// interpolated from the first t+1
		for j := d.t + 1; j < d.n; j++ {
			pred.SetZero()
			for i, w := range d.wCheck[j-d.t-1] {
				t.Mul(&w, &recv[i][k])
				pred.Add(&pred, &t)
			}
			if !pred.Equal(&recv[j][k]) {
				return nil, errors.Wrapf(mpc.ErrOpenMismatch, "party %d share off the degree-%d polynomial at index %d", j, d.t, k)
			}
		}
		out[k] = acc
	}
	return out, nil
}

func (d *Driver) OpenG1Vec(ctx context.Context, ps []mpc.G1Share) ([]curve.G1Affine, error) {
	m := len(ps)
	jac := make([]curve.G1Jac, m)
	for k := range ps {
		jac[k] = ps[k].A
	}
	mine := curve.BatchJacobianToAffineG1(jac)
	payload, err := mpc.EncodeG1Vec(mine)
	if err != nil {
		return nil, err
	}
	round := d.nextRound()
	g, gctx := errgroup.WithContext(ctx)
	for j := 0; j < d.n; j++ {
		if j == d.id {
			continue
		}
		j := j
		g.Go(func() error { return d.transport.Send(gctx, j, round, payload) })
	}
	recv := make([][]curve.G1Affine, d.n)
	recv[d.id] = mine
	for j := 0; j < d.n; j++ {
		if j == d.id {
			continue
		}
		data, err := d.transport.Receive(ctx, j, round)
		if err != nil {
			return nil, err
		}
		if recv[j], err = mpc.DecodeG1Vec(data); err != nil {
			return nil, err
		}
		if len(recv[j]) != m {
			return nil, errors.Wrapf(mpc.ErrSizeMismatch, "open: party %d sent %d points", j, len(recv[j]))
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]curve.G1Affine, m)
	for k := 0; k < m; k++ {
		for j := d.t + 1; j < d.n; j++ {
			pred := d.combineG1(recv, k, d.wCheck[j-d.t-1])
			if !pred.Equal(&recv[j][k]) {
				return nil, errors.Wrapf(mpc.ErrOpenMismatch, "party %d G1 point off the degree-%d polynomial at index %d", j, d.t, k)
			}
		}
		out[k] = d.combineG1(recv, k, d.wRec)
	}
	return out, nil
}

// combineG1 interpolates in the exponent over the first t+1 parties with
// the given weights.
func (d *Driver) combineG1(recv [][]curve.G1Affine, k int, ws []fr.Element) curve.G1Affine {
	var acc curve.G1Jac
	var t curve.G1Jac
	for i := range ws {
		t.FromAffine(&recv[i][k])
		t.ScalarMultiplication(&t, ws[i].BigInt(new(big.Int)))
		acc.AddAssign(&t)
	}
	var out curve.G1Affine
	out.FromJacobian(&acc)
	return out
}

func (d *Driver) OpenG2(ctx context.Context, p mpc.G2Share) (curve.G2Affine, error) {
	var mine [1]curve.G2Affine
	mine[0].FromJacobian(&p.A)
	payload, err := mpc.EncodeG2Vec(mine[:])
	if err != nil {
		return curve.G2Affine{}, err
	}
	round := d.nextRound()
	g, gctx := errgroup.WithContext(ctx)
	for j := 0; j < d.n; j++ {
		if j == d.id {
			continue
		}
		j := j
		g.Go(func() error { return d.transport.Send(gctx, j, round, payload) })
	}
	recv := make([]curve.G2Affine, d.n)
	recv[d.id] = mine[0]
	for j := 0; j < d.n; j++ {
		if j == d.id {
			continue
		}
		data, err := d.transport.Receive(ctx, j, round)
		if err != nil {
			return curve.G2Affine{}, err
		}
		pts, err := mpc.DecodeG2Vec(data)
		if err != nil {
			return curve.G2Affine{}, err
		}
		if len(pts) != 1 {
			return curve.G2Affine{}, errors.Wrapf(mpc.ErrSizeMismatch, "open: party %d sent %d points", j, len(pts))
		}
		recv[j] = pts[0]
	}
	if err := g.Wait(); err != nil {
		return curve.G2Affine{}, err
	}
	for j := d.t + 1; j < d.n; j++ {
		pred := combineG2(recv, d.wCheck[j-d.t-1])
		if !pred.Equal(&recv[j]) {
			return curve.G2Affine{}, errors.Wrapf(mpc.ErrOpenMismatch, "party %d G2 point off the degree-%d polynomial", j, d.t)
		}
	}
	return combineG2(recv, d.wRec), nil
}

func combineG2(recv []curve.G2Affine, ws []fr.Element) curve.G2Affine {
	var acc, t curve.G2Jac
	for i := range ws {
		t.FromAffine(&recv[i])
		t.ScalarMultiplication(&t, ws[i].BigInt(new(big.Int)))
		acc.AddAssign(&t)
	}
	var out curve.G2Affine
	out.FromJacobian(&acc)
	return out
}
