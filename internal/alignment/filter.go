// Package alignment filters descriptor matches down to the ones consistent
// with a single planar homography.
package alignment

import (
	"orbsim/internal/features"
	"orbsim/internal/match"
	"orbsim/pkg/geometry"
)

// Result holds the geometrically consistent subset of a match list.
// Homography is the identity when Found is false.
type Result struct {
	Inliers    []match.Match
	Homography geometry.Homography
	Found      bool
}

// Count returns the number of inliers.
func (r Result) Count() int {
	return len(r.Inliers)
}

// FilterMatches keeps the matches whose keypoints agree with the homography
// best supported by the match list. Inliers keep the order of matches.
// Fewer than four matches, or no valid hypothesis, yield an empty result.
func FilterMatches(kp1, kp2 []features.Keypoint, matches []match.Match, opts RANSACOptions) Result {
	empty := Result{Inliers: []match.Match{}, Homography: geometry.IdentityHomography()}
	if len(matches) < minSample {
		return empty
	}

	src := make([]geometry.Point2D, 0, len(matches))
	dst := make([]geometry.Point2D, 0, len(matches))
	valid := make([]match.Match, 0, len(matches))
	for _, m := range matches {
		if m.QueryIdx < 0 || m.QueryIdx >= len(kp1) || m.TrainIdx < 0 || m.TrainIdx >= len(kp2) {
			continue
		}
		src = append(src, kp1[m.QueryIdx].Pt)
		dst = append(dst, kp2[m.TrainIdx].Pt)
		valid = append(valid, m)
	}

	h, idx, err := ComputeHomographyRANSAC(src, dst, opts)
	if err != nil {
		return empty
	}

	inliers := make([]match.Match, len(idx))
	for i, j := range idx {
		inliers[i] = valid[j]
	}
	return Result{Inliers: inliers, Homography: h, Found: true}
}
