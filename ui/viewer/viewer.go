// Package viewer shows the comparison composite in a Fyne window.
package viewer

import (
	"errors"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const appID = "org.orbsim.viewer"

// maxInitialSide bounds the initial window size in either dimension.
const maxInitialSide = 1400

// Show opens a window titled title displaying img with status below it,
// and blocks until the window is closed. Escape or Q also close it.
func Show(title string, img image.Image, status string) error {
	if img == nil {
		return errors.New("viewer: no image to show")
	}

	a := app.NewWithID(appID)
	a.Settings().SetTheme(&Theme{})
	w := a.NewWindow(title)

	picture := canvas.NewImageFromImage(img)
	picture.FillMode = canvas.ImageFillContain
	picture.ScaleMode = canvas.ImageScaleFastest

	label := widget.NewLabel(status)
	w.SetContent(container.NewBorder(nil, container.NewPadded(label), nil, nil, picture))
	w.Resize(initialSize(img.Bounds()))

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyEscape, fyne.KeyQ:
			w.Close()
		}
	})

	w.ShowAndRun()
	return nil
}

// initialSize fits the image within maxInitialSide, keeping its aspect.
func initialSize(b image.Rectangle) fyne.Size {
	w, h := float32(b.Dx()), float32(b.Dy())
	if w <= 0 || h <= 0 {
		return fyne.NewSize(400, 300)
	}
	if scale := float32(maxInitialSide) / max(w, h); scale < 1 {
		w *= scale
		h *= scale
	}
	// Room for the status label.
	return fyne.NewSize(w, h+40)
}
