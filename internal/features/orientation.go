package features

import (
	"image"
	"math"
)

// circularExtent returns, for each row offset v in [0, radius], the half
// width of a symmetric digital disc of the given radius.
func circularExtent(radius int) []int {
	umax := make([]int, radius+2)
	vmax := int(math.Floor(float64(radius)*math.Sqrt2/2 + 1))
	vmin := int(math.Ceil(float64(radius) * math.Sqrt2 / 2))
	for v := 0; v <= vmax && v <= radius; v++ {
		umax[v] = int(math.Round(math.Sqrt(float64(radius*radius - v*v))))
	}
	// Make the disc symmetric under transposition.
	for v, v0 := radius, 0; v >= vmin; v-- {
		for umax[v0] == umax[v0+1] {
			v0++
		}
		umax[v] = v0
		v0++
	}
	return umax[:radius+1]
}

// intensityCentroidAngle returns the orientation, in radians, of the
// vector from (x, y) to the intensity centroid of the surrounding disc.
func intensityCentroidAngle(img *image.Gray, x, y int, umax []int) float64 {
	radius := len(umax) - 1
	s := img.Stride
	center := y*s + x

	var m01, m10 int
	for u := -radius; u <= radius; u++ {
		m10 += u * int(img.Pix[center+u])
	}
	for v := 1; v <= radius; v++ {
		var vSum int
		d := umax[v]
		for u := -d; u <= d; u++ {
			plus := int(img.Pix[center+u+v*s])
			minus := int(img.Pix[center+u-v*s])
			vSum += plus - minus
			m10 += u * (plus + minus)
		}
		m01 += v * vSum
	}
	return math.Atan2(float64(m01), float64(m10))
}
