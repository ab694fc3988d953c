package similarity

import (
	"testing"

	orbimage "orbsim/internal/image"

	"github.com/stretchr/testify/assert"
)

func TestAggregateFormula(t *testing.T) {
	s := Aggregate([]ChannelStats{
		{Channel: orbimage.Blue, Keypoints1: 100, Keypoints2: 100, Inliers: 40},
		{Channel: orbimage.Green, Keypoints1: 100, Keypoints2: 100, Inliers: 30},
		{Channel: orbimage.Red, Keypoints1: 100, Keypoints2: 100, Inliers: 20},
	})
	assert.True(t, s.Determinable)
	assert.Equal(t, 90, s.TotalInliers)
	assert.Equal(t, 600, s.TotalKeypoints)
	assert.InDelta(t, 30.0, s.Percent, 1e-9)
	assert.Equal(t, "30.00%", s.String())
}

func TestAggregateOrderIndependent(t *testing.T) {
	a := ChannelStats{Channel: orbimage.Blue, Keypoints1: 80, Keypoints2: 120, Inliers: 17}
	b := ChannelStats{Channel: orbimage.Green, Keypoints1: 33, Keypoints2: 41, Inliers: 9}
	c := ChannelStats{Channel: orbimage.Red, Keypoints1: 0, Keypoints2: 12}

	assert.Equal(t, Aggregate([]ChannelStats{a, b, c}), Aggregate([]ChannelStats{c, a, b}))
}

func TestAggregateUndeterminable(t *testing.T) {
	cases := map[string][]ChannelStats{
		"no channels":  nil,
		"no keypoints": {{Channel: orbimage.Blue}},
		"no inliers":   {{Channel: orbimage.Blue, Keypoints1: 50, Keypoints2: 50, Matches: 3}},
	}
	for name, stats := range cases {
		t.Run(name, func(t *testing.T) {
			s := Aggregate(stats)
			assert.False(t, s.Determinable)
			assert.Zero(t, s.Percent)
			assert.Equal(t, "undeterminable", s.String())
		})
	}
}

func TestAggregateCanExceedHundred(t *testing.T) {
	// The percentage is reported unclamped: 40 / ((40 + 20) / 2) * 100.
	s := Aggregate([]ChannelStats{{Keypoints1: 40, Keypoints2: 20, Inliers: 40}})
	assert.True(t, s.Determinable)
	assert.InDelta(t, 133.333, s.Percent, 1e-3)
}
