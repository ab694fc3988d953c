package match

import (
	"math/rand"
	"testing"

	"orbsim/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomDescriptors(n int, seed int64) []features.Descriptor {
	rng := rand.New(rand.NewSource(seed))
	descs := make([]features.Descriptor, n)
	for i := range descs {
		for w := range descs[i] {
			descs[i][w] = rng.Uint64()
		}
	}
	return descs
}

func TestBruteForceEmpty(t *testing.T) {
	descs := randomDescriptors(3, 1)
	assert.Empty(t, BruteForce(nil, descs))
	assert.Empty(t, BruteForce(descs, nil))
	assert.NotNil(t, BruteForce(nil, nil))
}

func TestBruteForceIdentity(t *testing.T) {
	descs := randomDescriptors(50, 2)
	matches := BruteForce(descs, descs)
	require.Len(t, matches, 50)
	for _, m := range matches {
		assert.Equal(t, m.QueryIdx, m.TrainIdx)
		assert.Zero(t, m.Distance)
	}
	// All distances tie at zero, so query order decides.
	for i, m := range matches {
		assert.Equal(t, i, m.QueryIdx)
	}
}

func TestBruteForceCrossCheck(t *testing.T) {
	var a0, b0, b1 features.Descriptor
	b0[0] = 0b1   // distance 1 from a0
	b1[0] = 0b111 // distance 3 from a0

	a1 := b1
	a1[1] = 1 // distance 1 from b1, 2 from b0

	matches := BruteForce([]features.Descriptor{a0, a1}, []features.Descriptor{b0, b1})
	require.Len(t, matches, 2)
	assert.Equal(t, Match{QueryIdx: 0, TrainIdx: 0, Distance: 1}, matches[0])
	assert.Equal(t, Match{QueryIdx: 1, TrainIdx: 1, Distance: 1}, matches[1])
}

func TestBruteForceRejectsOneSidedNearest(t *testing.T) {
	var q0, q1, t0 features.Descriptor
	q1[0] = 0b11 // both queries prefer t0, t0 prefers q0
	t0[0] = 0b1

	q0 = t0
	matches := BruteForce([]features.Descriptor{q0, q1}, []features.Descriptor{t0})
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].QueryIdx)
}

func TestBruteForceUniqueAndSorted(t *testing.T) {
	query := randomDescriptors(120, 3)
	train := randomDescriptors(90, 4)
	// Plant near copies so some matches are clearly better than others.
	for i := 0; i < 30; i++ {
		train[i] = query[i*2]
		train[i][0] ^= uint64(i)
	}

	matches := BruteForce(query, train)
	require.NotEmpty(t, matches)
	assert.True(t, Unique(matches))
	assert.LessOrEqual(t, len(matches), 90)
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i-1].Distance, matches[i].Distance)
	}
}

func TestUnique(t *testing.T) {
	assert.True(t, Unique([]Match{{0, 1, 0}, {1, 0, 0}}))
	assert.False(t, Unique([]Match{{0, 1, 0}, {0, 2, 0}}))
	assert.False(t, Unique([]Match{{0, 1, 0}, {2, 1, 0}}))
}

func TestSortByDistanceStableOnQuery(t *testing.T) {
	m := []Match{{QueryIdx: 5, Distance: 3}, {QueryIdx: 2, Distance: 3}, {QueryIdx: 9, Distance: 1}}
	SortByDistance(m)
	assert.Equal(t, []int{9, 2, 5}, []int{m[0].QueryIdx, m[1].QueryIdx, m[2].QueryIdx})
}
