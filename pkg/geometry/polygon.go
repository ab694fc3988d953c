package geometry

import "math"

// Rect is an axis-aligned rectangle in floating point coordinates.
type Rect struct {
	Min, Max Point2D
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// BoundingBox returns the smallest rectangle containing points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	r := Rect{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

// ProjectQuad maps the corners of a width x height image through h, in
// clockwise order starting at the origin. It fails when a corner lands at
// infinity.
func ProjectQuad(h Homography, width, height float64) ([]Point2D, bool) {
	corners := []Point2D{{0, 0}, {width, 0}, {width, height}, {0, height}}
	out := make([]Point2D, len(corners))
	for i, c := range corners {
		p, ok := h.Apply(c)
		if !ok {
			return nil, false
		}
		out[i] = p
	}
	return out, true
}

// IsConvex returns true if the polygon vertices form a convex polygon.
// The polygon is assumed to be simple (non-self-intersecting).
func IsConvex(polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	var sign int
	for i := 0; i < n; i++ {
		cross := crossProduct(polygon[i], polygon[(i+1)%n], polygon[(i+2)%n])
		if cross == 0 {
			continue
		}
		current := 1
		if cross < 0 {
			current = -1
		}
		if sign == 0 {
			sign = current
		} else if current != sign {
			return false
		}
	}
	return sign != 0
}

// PolygonArea returns the unsigned area enclosed by polygon (shoelace).
func PolygonArea(polygon []Point2D) float64 {
	var sum float64
	n := len(polygon)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += polygon[i].X*polygon[j].Y - polygon[j].X*polygon[i].Y
	}
	return math.Abs(sum) / 2
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
