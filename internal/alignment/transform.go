package alignment

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"orbsim/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// minSample is the number of correspondences that determine a homography.
const minSample = 4

// collinearEps is the distance in pixels below which three sample points
// count as lying on one line.
const collinearEps = 1e-3

// ErrNoModel is returned when no homography could be estimated.
var ErrNoModel = errors.New("no homography model")

// RANSACOptions controls the robust homography fit.
type RANSACOptions struct {
	Threshold     float64 `json:"threshold"`      // Max reprojection error in destination pixels
	MaxIterations int     `json:"max_iterations"` // Hard cap on sampled hypotheses
	Confidence    float64 `json:"confidence"`     // Target probability of an outlier-free sample
	Seed          int64   `json:"seed"`           // Sampler seed
}

// DefaultRANSACOptions returns the reference fit parameters.
func DefaultRANSACOptions() RANSACOptions {
	return RANSACOptions{
		Threshold:     6.0,
		MaxIterations: 2000,
		Confidence:    0.995,
		Seed:          1,
	}
}

// ComputeHomographyRANSAC estimates the homography mapping src onto dst and
// returns it together with the indices of the supporting correspondences in
// ascending order.
func ComputeHomographyRANSAC(src, dst []geometry.Point2D, opts RANSACOptions) (geometry.Homography, []int, error) {
	if len(src) != len(dst) {
		return geometry.Homography{}, nil, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	n := len(src)
	if n < minSample {
		return geometry.Homography{}, nil, fmt.Errorf("need at least %d points, got %d: %w", minSample, n, ErrNoModel)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultRANSACOptions().MaxIterations
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	sample := make([]int, minSample)
	sampleSrc := make([]geometry.Point2D, minSample)
	sampleDst := make([]geometry.Point2D, minSample)

	var best geometry.Homography
	var bestInliers []int
	bound := opts.MaxIterations

	for iter := 0; iter < bound; iter++ {
		drawSample(rng, n, sample)
		for i, idx := range sample {
			sampleSrc[i] = src[idx]
			sampleDst[i] = dst[idx]
		}
		if degenerateSample(sampleSrc) || degenerateSample(sampleDst) {
			continue
		}

		h, err := computeHomographyDLT(sampleSrc, sampleDst)
		if err != nil {
			continue
		}

		inliers := consensus(h, src, dst, opts.Threshold)
		if len(inliers) > len(bestInliers) {
			best = h
			bestInliers = inliers
			bound = min(opts.MaxIterations, adaptiveBound(len(inliers), n, opts.Confidence, iter+1))
		}
	}

	if len(bestInliers) < minSample {
		return geometry.Homography{}, nil, fmt.Errorf("RANSAC found %d inliers: %w", len(bestInliers), ErrNoModel)
	}

	// Least-squares refit over the consensus set, kept only when it does not
	// lose support.
	inlierSrc := make([]geometry.Point2D, len(bestInliers))
	inlierDst := make([]geometry.Point2D, len(bestInliers))
	for i, idx := range bestInliers {
		inlierSrc[i] = src[idx]
		inlierDst[i] = dst[idx]
	}
	if refit, err := computeHomographyLeastSquares(inlierSrc, inlierDst); err == nil {
		if refitInliers := consensus(refit, src, dst, opts.Threshold); len(refitInliers) >= len(bestInliers) {
			best = refit
			bestInliers = refitInliers
		}
	}

	return best, bestInliers, nil
}

// drawSample fills sample with distinct indices in [0, n).
func drawSample(rng *rand.Rand, n int, sample []int) {
	for i := range sample {
	retry:
		for {
			idx := rng.Intn(n)
			for _, prev := range sample[:i] {
				if prev == idx {
					continue retry
				}
			}
			sample[i] = idx
			break
		}
	}
}

// degenerateSample reports whether any three of the four points are
// collinear, which leaves the homography underdetermined.
func degenerateSample(pts []geometry.Point2D) bool {
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				if geometry.Collinear(pts[i], pts[j], pts[k], collinearEps) {
					return true
				}
			}
		}
	}
	return false
}

// consensus returns the indices whose reprojection error is within threshold.
func consensus(h geometry.Homography, src, dst []geometry.Point2D, threshold float64) []int {
	var inliers []int
	for i := range src {
		p, ok := h.Apply(src[i])
		if !ok {
			continue
		}
		if p.Distance(dst[i]) <= threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// adaptiveBound returns the number of iterations needed to draw one
// all-inlier sample with the given confidence at the observed inlier ratio.
func adaptiveBound(inliers, n int, confidence float64, done int) int {
	if confidence <= 0 || confidence >= 1 {
		return math.MaxInt
	}
	w := float64(inliers) / float64(n)
	p := math.Pow(w, minSample)
	if p >= 1 {
		return done
	}
	if p <= 0 {
		return math.MaxInt
	}
	k := math.Log(1-confidence) / math.Log(1-p)
	if math.IsInf(k, 0) || math.IsNaN(k) || k > float64(math.MaxInt32) {
		return math.MaxInt
	}
	return max(done, int(math.Ceil(k)))
}

// normalization returns the similarity that moves the centroid of pts to
// the origin and scales their mean distance to sqrt(2).
func normalization(pts []geometry.Point2D) (geometry.Homography, bool) {
	c := geometry.Centroid(pts)
	d := geometry.MeanDistance(pts, c)
	if d < 1e-12 {
		return geometry.Homography{}, false
	}
	s := math.Sqrt2 / d
	scale := geometry.Homography{s, 0, 0, 0, s, 0, 0, 0, 1}
	return scale.Compose(geometry.TranslationHomography(-c.X, -c.Y)), true
}

func transformAll(h geometry.Homography, pts []geometry.Point2D) []geometry.Point2D {
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i], _ = h.Apply(p)
	}
	return out
}

// fillDLT writes the two equations of correspondence i into a and b,
// fixing h8 = 1.
func fillDLT(a *mat.Dense, b *mat.VecDense, i int, s, d geometry.Point2D) {
	x, y := s.X, s.Y
	u, v := d.X, d.Y

	// u = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
	a.Set(i*2, 0, x)
	a.Set(i*2, 1, y)
	a.Set(i*2, 2, 1)
	a.Set(i*2, 6, -u*x)
	a.Set(i*2, 7, -u*y)
	b.SetVec(i*2, u)

	// v = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
	a.Set(i*2+1, 3, x)
	a.Set(i*2+1, 4, y)
	a.Set(i*2+1, 5, 1)
	a.Set(i*2+1, 6, -v*x)
	a.Set(i*2+1, 7, -v*y)
	b.SetVec(i*2+1, v)
}

// computeHomographyDLT solves the homography from exactly 4 point pairs.
func computeHomographyDLT(src, dst []geometry.Point2D) (geometry.Homography, error) {
	if len(src) != minSample || len(dst) != minSample {
		return geometry.Homography{}, fmt.Errorf("need exactly %d points", minSample)
	}
	return solveNormalized(src, dst, func(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
		var params mat.VecDense
		if err := params.SolveVec(a, b); err != nil {
			return nil, err
		}
		return &params, nil
	})
}

// computeHomographyLeastSquares fits a homography to n >= 4 pairs using QR.
func computeHomographyLeastSquares(src, dst []geometry.Point2D) (geometry.Homography, error) {
	if len(src) < minSample || len(src) != len(dst) {
		return geometry.Homography{}, fmt.Errorf("need at least %d points", minSample)
	}
	return solveNormalized(src, dst, func(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
		var qr mat.QR
		qr.Factorize(a)
		var params mat.VecDense
		if err := qr.SolveVecTo(&params, false, b); err != nil {
			return nil, err
		}
		return &params, nil
	})
}

type linearSolver func(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error)

// solveNormalized runs the DLT on Hartley-normalised points and maps the
// solution back to pixel coordinates.
func solveNormalized(src, dst []geometry.Point2D, solve linearSolver) (geometry.Homography, error) {
	ts, ok := normalization(src)
	if !ok {
		return geometry.Homography{}, fmt.Errorf("degenerate source points")
	}
	td, ok := normalization(dst)
	if !ok {
		return geometry.Homography{}, fmt.Errorf("degenerate destination points")
	}
	tdInv, ok := td.Inverse()
	if !ok {
		return geometry.Homography{}, fmt.Errorf("degenerate destination points")
	}

	ns := transformAll(ts, src)
	nd := transformAll(td, dst)

	n := len(ns)
	a := mat.NewDense(n*2, 8, nil)
	b := mat.NewVecDense(n*2, nil)
	for i := 0; i < n; i++ {
		fillDLT(a, b, i, ns[i], nd[i])
	}

	params, err := solve(a, b)
	if err != nil {
		return geometry.Homography{}, fmt.Errorf("solve homography: %w", err)
	}

	var hn geometry.Homography
	for i := 0; i < 8; i++ {
		hn[i] = params.AtVec(i)
		if math.IsNaN(hn[i]) || math.IsInf(hn[i], 0) {
			return geometry.Homography{}, fmt.Errorf("homography solution is not finite")
		}
	}
	hn[8] = 1

	h := tdInv.Compose(hn).Compose(ts).Normalize()
	if math.Abs(h.Determinant()) < 1e-12 {
		return geometry.Homography{}, fmt.Errorf("singular homography")
	}
	return h, nil
}

// ReprojectionError returns the mean distance between h(src[i]) and dst[i].
// Points mapped to infinity count as infinite error.
func ReprojectionError(src, dst []geometry.Point2D, h geometry.Homography) float64 {
	if len(src) != len(dst) || len(src) == 0 {
		return math.Inf(1)
	}

	var total float64
	for i := range src {
		p, ok := h.Apply(src[i])
		if !ok {
			return math.Inf(1)
		}
		total += p.Distance(dst[i])
	}
	return total / float64(len(src))
}
