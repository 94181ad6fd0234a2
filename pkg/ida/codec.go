// Package ida implements Rabin's Information Dispersal Algorithm over GF(2^8).
//
// Encode splits data into n shares such that any k of them reconstruct it.
// Each k-byte chunk of the input is read as the coefficients of a polynomial
// of degree k-1, and share x stores that polynomial evaluated at x. Decode
// inverts the k x k Vandermonde matrix of the chosen share ids to map the
// evaluations back to coefficients.
//
// The scheme provides redundancy only. Shares are neither encrypted nor
// authenticated.
package ida

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Davincible/rabinida/pkg/gf256"
	"github.com/Davincible/rabinida/pkg/matrix"
	"golang.org/x/sync/errgroup"
)

// ErrSingularMatrix is returned when the chosen share ids do not give an
// invertible decode matrix. It is the same value as matrix.ErrSingular.
var ErrSingularMatrix = matrix.ErrSingular

// minChunksPerWorker keeps Decode from fanning out on small inputs.
const minChunksPerWorker = 4096

// Codec encodes and decodes dispersals with fixed n and k. A Codec holds no
// mutable state and is safe for concurrent use.
type Codec struct {
	n, k    int
	workers int
	logger  *slog.Logger
}

// New validates cfg and returns a Codec.
func New(cfg Config, opts ...Option) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Codec{
		n:       cfg.Shares,
		k:       cfg.Threshold,
		workers: cfg.Workers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.workers = defaultWorkers(c.workers)

	return c, nil
}

// Shares returns n.
func (c *Codec) Shares() int { return c.n }

// Threshold returns k.
func (c *Codec) Threshold() int { return c.k }

// Encode returns the n shares of data, with ids 1..n in order.
func (c *Codec) Encode(data []byte) []Share {
	start := time.Now()
	length := uint64(len(data))
	size := BodySize(length, c.k)

	shares := make([]Share, c.n)
	var g errgroup.Group
	g.SetLimit(c.workers)
	for i := range shares {
		i := i
		g.Go(func() error {
			x := byte(i + 1)
			shares[i] = Share{
				ID:     x,
				Length: length,
				Body:   evaluate(data, c.k, x, size),
			}
			return nil
		})
	}
	g.Wait()

	c.logger.Debug("encoded dispersal",
		"shares", c.n,
		"threshold", c.k,
		"length", length,
		"body_size", size,
		"elapsed", time.Since(start))

	return shares
}

// evaluate computes one share body: for each k-byte chunk, the polynomial
// whose j-th coefficient is chunk[j], evaluated at x with Horner's rule.
// A short final chunk behaves as if zero padded.
func evaluate(data []byte, k int, x byte, size int) []byte {
	body := make([]byte, size)
	for i := range body {
		lo := i * k
		hi := min(lo+k, len(data))

		var acc byte
		for j := hi - 1; j >= lo; j-- {
			acc = gf256.Add(gf256.Mul(acc, x), data[j])
		}
		body[i] = acc
	}
	return body
}

// Decode reconstructs the original data from at least k shares. The first k
// shares are used; which k are supplied does not affect the result.
func (c *Codec) Decode(shares []Share) ([]byte, error) {
	start := time.Now()

	if len(shares) < c.k {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientShares, len(shares), c.k)
	}
	if err := c.checkShares(shares); err != nil {
		return nil, err
	}

	chosen := shares[:c.k]
	nodes := make([]byte, c.k)
	for i, s := range chosen {
		nodes[i] = s.ID
	}

	dec, err := matrix.Vandermonde(nodes, c.k).Invert()
	if err != nil {
		return nil, fmt.Errorf("failed to build decode matrix: %w", err)
	}

	length := int(chosen[0].Length)
	out := make([]byte, length)
	chunks := len(chosen[0].Body)

	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, span := range partition(chunks, c.workers, minChunksPerWorker) {
		span := span
		g.Go(func() error {
			c.reconstruct(dec, chosen, out, span[0], span[1])
			return nil
		})
	}
	g.Wait()

	c.logger.Debug("decoded dispersal",
		"threshold", c.k,
		"supplied", len(shares),
		"length", length,
		"elapsed", time.Since(start))

	return out, nil
}

// reconstruct fills out for chunks [lo, hi). Output byte i*k+j is row j of
// the decode matrix applied to the i-th body byte of every chosen share.
// Indices past the original length are padding and are skipped.
func (c *Codec) reconstruct(dec *matrix.Matrix, chosen []Share, out []byte, lo, hi int) {
	for i := lo; i < hi; i++ {
		for j := 0; j < c.k; j++ {
			idx := i*c.k + j
			if idx >= len(out) {
				break
			}

			var v byte
			for x, coeff := range dec.Row(j) {
				v = gf256.Add(v, gf256.Mul(coeff, chosen[x].Body[i]))
			}
			out[idx] = v
		}
	}
}

// checkShares rejects share sets that cannot come from one dispersal of this
// codec, then rejects duplicate ids.
func (c *Codec) checkShares(shares []Share) error {
	first := shares[0]
	if first.Length > uint64(math.MaxInt) {
		return fmt.Errorf("%w: length %d does not fit in memory", ErrInvalidShare, first.Length)
	}
	want := BodySize(first.Length, c.k)

	for i, s := range shares {
		if s.ID == 0 || int(s.ID) > c.n {
			return fmt.Errorf("%w: share %d has id %d outside 1..%d", ErrInconsistentShares, i, s.ID, c.n)
		}
		if s.Length != first.Length {
			return fmt.Errorf("%w: share %d has length %d, share 0 has %d", ErrInconsistentShares, i, s.Length, first.Length)
		}
		if len(s.Body) != want {
			return fmt.Errorf("%w: share %d body is %d bytes, want %d", ErrInconsistentShares, i, len(s.Body), want)
		}
	}

	var seen [256]bool
	for _, s := range shares {
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate share id %d", ErrSingularMatrix, s.ID)
		}
		seen[s.ID] = true
	}

	return nil
}

// partition splits [0, total) into at most workers contiguous spans of at
// least minSpan items each.
func partition(total, workers, minSpan int) [][2]int {
	if total == 0 {
		return nil
	}
	span := max((total+workers-1)/workers, minSpan)

	spans := make([][2]int, 0, (total+span-1)/span)
	for lo := 0; lo < total; lo += span {
		spans = append(spans, [2]int{lo, min(lo+span, total)})
	}
	return spans
}
