// Package features detects keypoints and computes binary descriptors on
// single-channel intensity grids.
package features

import (
	"image"

	"orbsim/pkg/geometry"

	"github.com/steakknife/hamming"
)

// DescriptorBits is the length of every descriptor in bits.
const DescriptorBits = 256

// Keypoint is a detected location in level-0 pixel coordinates.
type Keypoint struct {
	Pt       geometry.Point2D `json:"pt"`
	Size     float64          `json:"size"`     // Diameter of the described patch
	Angle    float64          `json:"angle"`    // Orientation in degrees, [0, 360)
	Response float64          `json:"response"` // Corner strength used for ranking
	Octave   int              `json:"octave"`   // Pyramid level the point was found on
}

// Descriptor is a 256-bit binary feature vector, least significant bit first.
type Descriptor [DescriptorBits / 64]uint64

// Distance returns the Hamming distance between two descriptors.
func (d Descriptor) Distance(other Descriptor) int {
	dist := 0
	for i := range d {
		dist += hamming.Uint64(d[i], other[i])
	}
	return dist
}

// DescriptorFromBytes packs 32 bytes (OpenCV row layout) into a Descriptor.
func DescriptorFromBytes(b []byte) Descriptor {
	var d Descriptor
	for i := 0; i < len(b) && i < DescriptorBits/8; i++ {
		for bit := 0; bit < 8; bit++ {
			if b[i]&(1<<uint(bit)) != 0 {
				n := i*8 + bit
				d[n/64] |= 1 << (uint(n) % 64)
			}
		}
	}
	return d
}

// Detector finds keypoints and their descriptors on one intensity grid.
// The returned slices have equal length; a grid without detectable
// features yields two empty slices and a nil error.
type Detector interface {
	Detect(grid *image.Gray, maxFeatures int) ([]Keypoint, []Descriptor, error)
}
