package image

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Channel identifies one colour plane of a decoded image.
type Channel int

const (
	Blue Channel = iota
	Green
	Red
)

func (c Channel) String() string {
	switch c {
	case Blue:
		return "blue"
	case Green:
		return "green"
	case Red:
		return "red"
	default:
		return "unknown"
	}
}

// ChannelOrder is the fixed order in which Split emits channel grids.
type ChannelOrder [3]Channel

// DefaultChannelOrder matches the BGR plane order of OpenCV-style decoders.
var DefaultChannelOrder = ChannelOrder{Blue, Green, Red}

// String returns the order as a three-letter code such as "BGR".
func (o ChannelOrder) String() string {
	var b strings.Builder
	for _, c := range o {
		b.WriteString(strings.ToUpper(c.String()[:1]))
	}
	return b.String()
}

// ParseChannelOrder parses a permutation of "B", "G" and "R".
func ParseChannelOrder(s string) (ChannelOrder, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 3 {
		return ChannelOrder{}, fmt.Errorf("channel order %q: want three letters", s)
	}

	var order ChannelOrder
	seen := make(map[Channel]bool, 3)
	for i, r := range s {
		var c Channel
		switch r {
		case 'B':
			c = Blue
		case 'G':
			c = Green
		case 'R':
			c = Red
		default:
			return ChannelOrder{}, fmt.Errorf("channel order %q: unknown channel %q", s, r)
		}
		if seen[c] {
			return ChannelOrder{}, fmt.Errorf("channel order %q: duplicate channel %q", s, r)
		}
		seen[c] = true
		order[i] = c
	}
	return order, nil
}

// Split decomposes img into one intensity grid per channel in order.
// Grey images are replicated into every channel and alpha is discarded.
// A nil image yields nil.
func Split(img image.Image, order ChannelOrder) []*image.Gray {
	if img == nil {
		return nil
	}

	bounds := img.Bounds()
	rect := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	planes := [3]*image.Gray{
		Blue:  image.NewGray(rect),
		Green: image.NewGray(rect),
		Red:   image.NewGray(rect),
	}

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < rect.Dy(); y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := src.Pix[off : off+rect.Dx()]
			for _, p := range planes {
				copy(p.Pix[y*p.Stride:], row)
			}
		}
	case *image.NRGBA:
		for y := 0; y < rect.Dy(); y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < rect.Dx(); x++ {
				i := off + x*4
				d := y*rect.Dx() + x
				planes[Red].Pix[d] = src.Pix[i]
				planes[Green].Pix[d] = src.Pix[i+1]
				planes[Blue].Pix[d] = src.Pix[i+2]
			}
		}
	default:
		for y := 0; y < rect.Dy(); y++ {
			for x := 0; x < rect.Dx(); x++ {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				d := y*rect.Dx() + x
				planes[Red].Pix[d] = c.R
				planes[Green].Pix[d] = c.G
				planes[Blue].Pix[d] = c.B
			}
		}
	}

	// Each grid is owned by exactly one caller; repeated channels get a copy.
	grids := make([]*image.Gray, len(order))
	used := make(map[Channel]bool, len(order))
	for i, c := range order {
		if used[c] {
			grids[i] = cloneGray(planes[c])
			continue
		}
		used[c] = true
		grids[i] = planes[c]
	}
	return grids
}

func cloneGray(g *image.Gray) *image.Gray {
	out := image.NewGray(g.Rect)
	copy(out.Pix, g.Pix)
	return out
}
