package features

import (
	"image"
	"math"
	"math/rand"
)

// patternSeed fixes the BRIEF sampling pattern so descriptors are
// reproducible across runs and processes.
const patternSeed = 0x0b51f

const (
	blurKernelSize = 7
	blurSigma      = 2.0
)

// samplePair is one binary intensity test relative to the keypoint.
type samplePair struct {
	X0, Y0, X1, Y1 int
}

// newSamplePattern draws DescriptorBits test pairs uniformly from a square
// of the given half width.
func newSamplePattern(halfWidth int) []samplePair {
	rng := rand.New(rand.NewSource(patternSeed))
	span := 2*halfWidth + 1
	pattern := make([]samplePair, DescriptorBits)
	for i := range pattern {
		pattern[i] = samplePair{
			X0: rng.Intn(span) - halfWidth,
			Y0: rng.Intn(span) - halfWidth,
			X1: rng.Intn(span) - halfWidth,
			Y1: rng.Intn(span) - halfWidth,
		}
	}
	return pattern
}

// steeredBRIEF computes the descriptor of the keypoint at (x, y) on the
// smoothed level image, with the pattern rotated by angle radians.
func steeredBRIEF(smoothed *image.Gray, x, y int, angle float64, pattern []samplePair) Descriptor {
	cosA, sinA := math.Cos(angle), math.Sin(angle)
	value := func(px, py int) uint8 {
		rx := int(math.Round(float64(px)*cosA - float64(py)*sinA))
		ry := int(math.Round(float64(px)*sinA + float64(py)*cosA))
		return grayAtClamped(smoothed, x+rx, y+ry)
	}

	var d Descriptor
	for i, p := range pattern {
		if value(p.X0, p.Y0) < value(p.X1, p.Y1) {
			d[i/64] |= 1 << (uint(i) % 64)
		}
	}
	return d
}

// grayAtClamped reads a pixel with coordinates clamped to the image.
func grayAtClamped(img *image.Gray, x, y int) uint8 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	x = min(max(x, 0), w-1)
	y = min(max(y, 0), h-1)
	return img.Pix[y*img.Stride+x]
}

// gaussianKernel returns a normalised 1D Gaussian of odd size.
func gaussianKernel(size int, sigma float64) []float64 {
	k := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// reflect101 maps an out-of-range index back inside [0, n) by mirroring
// around the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// gaussianBlur smooths img with a separable Gaussian.
func gaussianBlur(img *image.Gray, size int, sigma float64) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	k := gaussianKernel(size, sigma)
	half := size / 2

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * float64(row[reflect101(x+i-half, w)])
			}
			tmp[y*w+x] = acc
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * tmp[reflect101(y+i-half, h)*w+x]
			}
			out.Pix[y*out.Stride+x] = uint8(math.Min(255, math.Max(0, math.Round(acc))))
		}
	}
	return out
}
