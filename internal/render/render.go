// Package render draws the side-by-side comparison composite.
package render

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"orbsim/internal/features"
	"orbsim/internal/match"
	"orbsim/pkg/colorutil"
	"orbsim/pkg/geometry"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Options configures the composite.
type Options struct {
	MaxDrawnMatches int     // Inliers drawn, in the given order (<= 0 draws none)
	DrawKeypoints   bool    // Outline every keypoint of both images
	KeypointRadius  float64 // Radius of keypoint and endpoint circles
	LineWidth       float64 // Correspondence line width
	Caption         string  // Optional text in the top-left corner
	JPEGQuality     int     // Quality used by Save for .jpg/.jpeg

	// Outline is a polygon in second-image coordinates, typically the first
	// image's border projected through the fitted homography.
	Outline []geometry.Point2D
}

// DefaultOptions returns the default rendering options.
func DefaultOptions() Options {
	return Options{
		MaxDrawnMatches: 30,
		DrawKeypoints:   true,
		KeypointRadius:  3,
		LineWidth:       1.5,
		JPEGQuality:     92,
	}
}

// Render places img1 and img2 side by side on a black canvas of size
// (w1+w2, max(h1, h2)) and connects the first MaxDrawnMatches inliers.
// Keypoint coordinates are relative to each image's top-left corner.
// Matches referring to missing keypoints are skipped.
func Render(img1, img2 image.Image, kp1, kp2 []features.Keypoint, inliers []match.Match, opts Options) *image.RGBA {
	b1, b2 := bounds(img1), bounds(img2)
	w := b1.Dx() + b2.Dx()
	h := max(b1.Dy(), b2.Dy())
	offset := float64(b1.Dx())

	dc := gg.NewContext(max(w, 1), max(h, 1))
	dc.SetColor(colorutil.Black)
	dc.Clear()

	if img1 != nil {
		dc.DrawImage(img1, -b1.Min.X, -b1.Min.Y)
	}
	if img2 != nil {
		dc.DrawImage(img2, b1.Dx()-b2.Min.X, -b2.Min.Y)
	}

	if opts.DrawKeypoints {
		dc.SetColor(colorutil.KeypointColor())
		dc.SetLineWidth(1)
		for _, kp := range kp1 {
			dc.DrawCircle(kp.Pt.X, kp.Pt.Y, opts.KeypointRadius)
			dc.Stroke()
		}
		for _, kp := range kp2 {
			dc.DrawCircle(kp.Pt.X+offset, kp.Pt.Y, opts.KeypointRadius)
			dc.Stroke()
		}
	}

	if len(opts.Outline) >= 3 {
		dc.SetColor(colorutil.Yellow)
		dc.SetLineWidth(2)
		for i, p := range opts.Outline {
			if i == 0 {
				dc.MoveTo(p.X+offset, p.Y)
			} else {
				dc.LineTo(p.X+offset, p.Y)
			}
		}
		dc.ClosePath()
		dc.Stroke()
	}

	drawn := 0
	for _, m := range inliers {
		if drawn >= opts.MaxDrawnMatches {
			break
		}
		if m.QueryIdx < 0 || m.QueryIdx >= len(kp1) || m.TrainIdx < 0 || m.TrainIdx >= len(kp2) {
			continue
		}
		p := kp1[m.QueryIdx].Pt
		q := kp2[m.TrainIdx].Pt
		q.X += offset

		dc.SetColor(colorutil.MatchColor(drawn))
		dc.SetLineWidth(opts.LineWidth)
		dc.DrawLine(p.X, p.Y, q.X, q.Y)
		dc.Stroke()
		dc.DrawCircle(p.X, p.Y, opts.KeypointRadius)
		dc.Fill()
		dc.DrawCircle(q.X, q.Y, opts.KeypointRadius)
		dc.Fill()
		drawn++
	}

	if opts.Caption != "" {
		drawCaption(dc, opts.Caption)
	}

	return toRGBA(dc.Image())
}

// drawCaption writes text on a dark band in the top-left corner.
func drawCaption(dc *gg.Context, text string) {
	dc.SetFontFace(basicfont.Face7x13)
	tw, th := dc.MeasureString(text)
	const pad = 4
	dc.SetRGBA(0, 0, 0, 0.6)
	dc.DrawRectangle(0, 0, tw+2*pad, th+2*pad)
	dc.Fill()
	dc.SetColor(colorutil.White)
	dc.DrawStringAnchored(text, pad, pad, 0, 1)
}

func bounds(img image.Image) image.Rectangle {
	if img == nil {
		return image.Rectangle{}
	}
	return img.Bounds()
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// Save writes img to path as PNG or JPEG depending on the extension.
func Save(path string, img image.Image, opts Options) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		if err := gg.SavePNG(path, img); err != nil {
			return fmt.Errorf("save composite %s: %w", path, err)
		}
	case ".jpg", ".jpeg":
		quality := opts.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = DefaultOptions().JPEGQuality
		}
		if err := gg.SaveJPG(path, img, quality); err != nil {
			return fmt.Errorf("save composite %s: %w", path, err)
		}
	default:
		return fmt.Errorf("save composite %s: unsupported extension %q", path, filepath.Ext(path))
	}
	return nil
}
