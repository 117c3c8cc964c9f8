package status

import (
	"fmt"
	"image"

	"github.com/jypelle/mkbdstatus/internal/images"
	"github.com/jypelle/mkbdstatus/internal/srv/canvas"
)

type Policy string

const (
	TEXT_POLICY       Policy = "text"
	IMAGE_SWAP_POLICY Policy = "image_swap"
	DUAL_ICON_POLICY  Policy = "dual_icon"
)

const chargingText = "Charging..."

// Renderer maps a StatusState onto the children it created on a screen.
// Each Render leaves exactly one status visual shown.
type Renderer interface {
	// Build creates the children. attach registers an image as an animated
	// widget.
	Build(root *canvas.Screen, attach func(img *canvas.Image))
	Render(state StatusState)
	Greet(text string)
}

func NewRenderer(policy Policy) (Renderer, error) {
	switch policy {
	case TEXT_POLICY:
		return &TextRenderer{}, nil
	case IMAGE_SWAP_POLICY:
		return &ImageSwapRenderer{}, nil
	case DUAL_ICON_POLICY:
		return &DualIconRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown status policy %q", policy)
}

// BatteryText is the on-battery caption.
func BatteryText(level int) string {
	return fmt.Sprintf("Battery: %d%%", level)
}

// TextRenderer shows a single centered label.
type TextRenderer struct {
	label *canvas.Label
}

func (r *TextRenderer) Build(root *canvas.Screen, attach func(img *canvas.Image)) {
	r.label = root.CreateLabel()
	r.label.Align(canvas.ALIGN_CENTER, 0, 0)
}

func (r *TextRenderer) Render(state StatusState) {
	if r.label == nil {
		return
	}
	if state.UsbConnected {
		r.label.SetText(chargingText)
	} else {
		r.label.SetText(BatteryText(state.BatteryLevel))
	}
}

func (r *TextRenderer) Greet(text string) {
	if r.label == nil {
		return
	}
	r.label.SetText(text)
}

// ImageSwapRenderer shows the full-screen splash while powered over USB and
// the battery caption otherwise.
type ImageSwapRenderer struct {
	label  *canvas.Label
	splash *canvas.Image
}

func (r *ImageSwapRenderer) Build(root *canvas.Screen, attach func(img *canvas.Image)) {
	r.splash = root.CreateImage()
	r.splash.SetSource(images.SplashImage)
	r.splash.Align(canvas.ALIGN_CENTER, 0, 0)
	r.splash.Hide()

	r.label = root.CreateLabel()
	r.label.Align(canvas.ALIGN_CENTER, 0, 0)
}

func (r *ImageSwapRenderer) Render(state StatusState) {
	if r.label == nil {
		return
	}
	if state.UsbConnected {
		r.label.Hide()
		r.splash.Show()
	} else {
		r.label.SetText(BatteryText(state.BatteryLevel))
		r.splash.Hide()
		r.label.Show()
	}
}

func (r *ImageSwapRenderer) Greet(text string) {
	if r.label == nil {
		return
	}
	r.label.SetText(text)
	r.splash.Hide()
	r.label.Show()
}

// DualIconRenderer swaps a USB and a battery icon, prints the level next to
// the battery and keeps an animated battery indicator in the top right
// corner.
type DualIconRenderer struct {
	usbIcon     *canvas.Image
	batteryIcon *canvas.Image
	label       *canvas.Label
	indicator   *canvas.Image
}

func (r *DualIconRenderer) Build(root *canvas.Screen, attach func(img *canvas.Image)) {
	r.usbIcon = newIcon(root, images.UsbImage)
	r.batteryIcon = newIcon(root, images.BatteryImage)

	r.label = root.CreateLabel()
	r.label.Align(canvas.ALIGN_CENTER, 14, 0)

	r.indicator = root.CreateImage()
	r.indicator.Align(canvas.ALIGN_TOP_RIGHT, -2, 2)
	attach(r.indicator)
}

func newIcon(root *canvas.Screen, src image.Image) *canvas.Image {
	icon := root.CreateImage()
	icon.SetSource(src)
	icon.Align(canvas.ALIGN_CENTER, -20, 0)
	icon.Hide()
	return icon
}

func (r *DualIconRenderer) Render(state StatusState) {
	if r.label == nil {
		return
	}
	if state.UsbConnected {
		r.batteryIcon.Hide()
		r.label.Hide()
		r.usbIcon.Show()
	} else {
		r.usbIcon.Hide()
		r.label.SetText(fmt.Sprintf("%d%%", state.BatteryLevel))
		r.batteryIcon.Show()
		r.label.Show()
	}
}

func (r *DualIconRenderer) Greet(text string) {
	if r.label == nil {
		return
	}
	r.usbIcon.Hide()
	r.batteryIcon.Hide()
	r.label.SetText(text)
	r.label.Show()
}
