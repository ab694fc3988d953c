// Package match pairs binary descriptors between two images.
package match

import (
	"sort"

	"orbsim/internal/features"
)

// Match pairs descriptor QueryIdx of the first set with TrainIdx of the
// second set.
type Match struct {
	QueryIdx int `json:"query_idx"`
	TrainIdx int `json:"train_idx"`
	Distance int `json:"distance"` // Hamming distance in bits
}

// BruteForce matches every query descriptor against every train descriptor
// and keeps only mutual nearest neighbours: (i, j) is accepted when j is
// the closest train descriptor to i and i is the closest query descriptor
// to j. On equal distances the lower index wins. The result is sorted by
// ascending distance, then by query index.
func BruteForce(query, train []features.Descriptor) []Match {
	if len(query) == 0 || len(train) == 0 {
		return []Match{}
	}

	bestTrain := make([]int, len(query))
	bestTrainDist := make([]int, len(query))
	bestQuery := make([]int, len(train))
	bestQueryDist := make([]int, len(train))
	for j := range bestQueryDist {
		bestQueryDist[j] = features.DescriptorBits + 1
	}

	for i, q := range query {
		bestTrainDist[i] = features.DescriptorBits + 1
		for j, d := range train {
			dist := q.Distance(d)
			if dist < bestTrainDist[i] {
				bestTrainDist[i] = dist
				bestTrain[i] = j
			}
			if dist < bestQueryDist[j] {
				bestQueryDist[j] = dist
				bestQuery[j] = i
			}
		}
	}

	matches := make([]Match, 0, min(len(query), len(train)))
	for i, j := range bestTrain {
		if bestQuery[j] == i {
			matches = append(matches, Match{QueryIdx: i, TrainIdx: j, Distance: bestTrainDist[i]})
		}
	}

	SortByDistance(matches)
	return matches
}

// SortByDistance orders matches by ascending distance, ties by query index.
func SortByDistance(matches []Match) {
	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Distance != matches[b].Distance {
			return matches[a].Distance < matches[b].Distance
		}
		return matches[a].QueryIdx < matches[b].QueryIdx
	})
}

// Unique reports whether no query or train index appears twice.
func Unique(matches []Match) bool {
	queries := make(map[int]bool, len(matches))
	trains := make(map[int]bool, len(matches))
	for _, m := range matches {
		if queries[m.QueryIdx] || trains[m.TrainIdx] {
			return false
		}
		queries[m.QueryIdx] = true
		trains[m.TrainIdx] = true
	}
	return true
}
