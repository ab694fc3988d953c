package alignment

import (
	"math"
	"math/rand"
	"testing"

	"orbsim/internal/features"
	"orbsim/internal/match"
	"orbsim/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knownHomography is a mild perspective warp.
var knownHomography = geometry.Homography{
	1.05, 0.08, 12,
	-0.04, 0.97, -7,
	0.0002, -0.0001, 1,
}

func gridPoints(n int, seed int64) []geometry.Point2D {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]geometry.Point2D, n)
	for i := range pts {
		pts[i] = geometry.NewPoint2D(rng.Float64()*400, rng.Float64()*300)
	}
	return pts
}

func project(t *testing.T, h geometry.Homography, pts []geometry.Point2D) []geometry.Point2D {
	t.Helper()
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		q, ok := h.Apply(p)
		require.True(t, ok)
		out[i] = q
	}
	return out
}

func TestComputeHomographyRANSACExact(t *testing.T) {
	src := gridPoints(40, 1)
	dst := project(t, knownHomography, src)

	h, inliers, err := ComputeHomographyRANSAC(src, dst, DefaultRANSACOptions())
	require.NoError(t, err)
	assert.Len(t, inliers, 40)
	assert.Less(t, ReprojectionError(src, dst, h), 1e-6)
	for i := range h {
		assert.InDelta(t, knownHomography[i], h[i], 1e-6)
	}
}

func TestComputeHomographyRANSACWithOutliers(t *testing.T) {
	src := gridPoints(100, 2)
	dst := project(t, knownHomography, src)

	rng := rand.New(rand.NewSource(3))
	outliers := map[int]bool{}
	for len(outliers) < 30 {
		i := rng.Intn(len(dst))
		outliers[i] = true
	}
	for i := range outliers {
		dst[i] = dst[i].Add(geometry.NewPoint2D(50+rng.Float64()*100, -60-rng.Float64()*100))
	}

	h, inliers, err := ComputeHomographyRANSAC(src, dst, DefaultRANSACOptions())
	require.NoError(t, err)
	assert.Len(t, inliers, 70)
	for _, i := range inliers {
		assert.False(t, outliers[i], "outlier %d accepted", i)
	}

	inSrc := make([]geometry.Point2D, 0, len(inliers))
	inDst := make([]geometry.Point2D, 0, len(inliers))
	for _, i := range inliers {
		inSrc = append(inSrc, src[i])
		inDst = append(inDst, dst[i])
	}
	assert.Less(t, ReprojectionError(inSrc, inDst, h), 0.01)
}

func TestComputeHomographyRANSACTooFewPoints(t *testing.T) {
	src := gridPoints(3, 4)
	_, _, err := ComputeHomographyRANSAC(src, src, DefaultRANSACOptions())
	assert.ErrorIs(t, err, ErrNoModel)

	_, _, err = ComputeHomographyRANSAC(src, src[:2], DefaultRANSACOptions())
	assert.Error(t, err)
}

func TestComputeHomographyRANSACCollinear(t *testing.T) {
	src := make([]geometry.Point2D, 20)
	for i := range src {
		src[i] = geometry.NewPoint2D(float64(i)*10, float64(i)*5+3)
	}
	_, _, err := ComputeHomographyRANSAC(src, src, DefaultRANSACOptions())
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestComputeHomographyRANSACDeterministic(t *testing.T) {
	src := gridPoints(60, 5)
	dst := project(t, knownHomography, src)
	for i := 0; i < 20; i++ {
		dst[i*3] = dst[i*3].Add(geometry.NewPoint2D(80, 80))
	}

	h1, in1, err := ComputeHomographyRANSAC(src, dst, DefaultRANSACOptions())
	require.NoError(t, err)
	h2, in2, err := ComputeHomographyRANSAC(src, dst, DefaultRANSACOptions())
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, in1, in2)
}

func TestAdaptiveBound(t *testing.T) {
	assert.Equal(t, 7, adaptiveBound(50, 50, 0.995, 7))
	all := adaptiveBound(40, 50, 0.995, 1)
	half := adaptiveBound(25, 50, 0.995, 1)
	assert.Greater(t, half, all)
	assert.Equal(t, 83, half)
}

func keypointsAt(pts []geometry.Point2D) []features.Keypoint {
	kps := make([]features.Keypoint, len(pts))
	for i, p := range pts {
		kps[i] = features.Keypoint{Pt: p, Size: 31}
	}
	return kps
}

func TestFilterMatchesFewerThanFour(t *testing.T) {
	pts := gridPoints(3, 6)
	kps := keypointsAt(pts)
	matches := []match.Match{{QueryIdx: 0, TrainIdx: 0, Distance: 0}, {QueryIdx: 1, TrainIdx: 1, Distance: 0}, {QueryIdx: 2, TrainIdx: 2, Distance: 0}}

	r := FilterMatches(kps, kps, matches, DefaultRANSACOptions())
	assert.False(t, r.Found)
	assert.Zero(t, r.Count())
	assert.NotNil(t, r.Inliers)
	assert.Equal(t, geometry.IdentityHomography(), r.Homography)
}

func TestFilterMatchesTranslation(t *testing.T) {
	src := gridPoints(30, 7)
	dst := project(t, geometry.TranslationHomography(25, -10), src)
	kp1, kp2 := keypointsAt(src), keypointsAt(dst)

	matches := make([]match.Match, 0, len(src))
	for i := range src {
		matches = append(matches, match.Match{QueryIdx: i, TrainIdx: i, Distance: i})
	}
	// Break four correspondences.
	matches[4].TrainIdx, matches[5].TrainIdx = matches[5].TrainIdx, matches[4].TrainIdx
	matches[9].TrainIdx = 20
	matches[20].TrainIdx = 9

	r := FilterMatches(kp1, kp2, matches, DefaultRANSACOptions())
	require.True(t, r.Found)
	assert.Equal(t, 26, r.Count())
	for _, m := range r.Inliers {
		assert.Equal(t, m.QueryIdx, m.TrainIdx)
	}
	p, ok := r.Homography.Apply(geometry.NewPoint2D(0, 0))
	require.True(t, ok)
	assert.InDelta(t, 25, p.X, 1e-6)
	assert.InDelta(t, -10, p.Y, 1e-6)
}

func TestNormalizationCentresAndScales(t *testing.T) {
	pts := []geometry.Point2D{{X: 10, Y: 10}, {X: 14, Y: 10}, {X: 14, Y: 14}, {X: 10, Y: 14}}
	h, ok := normalization(pts)
	require.True(t, ok)

	out := transformAll(h, pts)
	c := geometry.Centroid(out)
	assert.InDelta(t, 0, c.X, 1e-9)
	assert.InDelta(t, 0, c.Y, 1e-9)
	assert.InDelta(t, math.Sqrt2, geometry.MeanDistance(out, c), 1e-9)

	_, ok = normalization([]geometry.Point2D{{X: 3, Y: 3}, {X: 3, Y: 3}})
	assert.False(t, ok)
}
