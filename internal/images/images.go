package images

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/hajimehoshi/bitmapfont/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	ScreenWidth  = 128
	ScreenHeight = 64
)

var battery0 = Bitmap{Width: 16, Height: 8, Data: []byte{
	0x00, 0x00, 0x7F, 0xFE, 0x40, 0x02, 0x40, 0x02,
	0x40, 0x02, 0x40, 0x02, 0x7F, 0xFE, 0x00, 0x00,
}}

var battery25 = Bitmap{Width: 16, Height: 8, Data: []byte{
	0x00, 0x00, 0x7F, 0xFE, 0x40, 0x02, 0x43, 0x02,
	0x43, 0x02, 0x40, 0x02, 0x7F, 0xFE, 0x00, 0x00,
}}

var battery50 = Bitmap{Width: 16, Height: 8, Data: []byte{
	0x00, 0x00, 0x7F, 0xFE, 0x40, 0x02, 0x47, 0x82,
	0x47, 0x82, 0x40, 0x02, 0x7F, 0xFE, 0x00, 0x00,
}}

var battery100 = Bitmap{Width: 16, Height: 8, Data: []byte{
	0x00, 0x00, 0x7F, 0xFE, 0x40, 0x02, 0x4F, 0xE2,
	0x4F, 0xE2, 0x40, 0x02, 0x7F, 0xFE, 0x00, 0x00,
}}

var usbPlug = Bitmap{Width: 16, Height: 8, Data: []byte{
	0x01, 0x80, 0x03, 0xC0, 0x21, 0x84, 0x7F, 0xFE,
	0x21, 0x84, 0x01, 0x80, 0x03, 0xC0, 0x01, 0x80,
}}

var (
	// BatteryFrames is the charging animation, cycled in order.
	BatteryFrames []image.Image

	// BatteryFullImage is shown when the animation is idle.
	BatteryFullImage image.Image

	BatteryImage image.Image
	UsbImage     image.Image

	// SplashImage is the full-screen picture of the image_swap policy.
	SplashImage image.Image
)

func init() {
	BatteryFrames = []image.Image{
		battery0.Alpha(),
		battery25.Alpha(),
		battery50.Alpha(),
		battery100.Alpha(),
	}
	BatteryFullImage = BatteryFrames[len(BatteryFrames)-1]
	BatteryImage = battery100.Alpha()
	UsbImage = usbPlug.Alpha()
	SplashImage = newSplash("MKBD P1")
}

// newSplash draws a framed title as a full-screen alpha mask.
func newSplash(title string) image.Image {
	img := image.NewAlpha(image.Rect(0, 0, ScreenWidth, ScreenHeight))
	opaque := image.NewUniform(color.Alpha{A: 0xff})

	frame := []image.Rectangle{
		image.Rect(2, 2, ScreenWidth-2, 3),
		image.Rect(2, ScreenHeight-3, ScreenWidth-2, ScreenHeight-2),
		image.Rect(2, 2, 3, ScreenHeight-2),
		image.Rect(ScreenWidth-3, 2, ScreenWidth-2, ScreenHeight-2),
	}
	for _, r := range frame {
		draw.Draw(img, r, opaque, image.Point{}, draw.Src)
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  opaque,
		Face: bitmapfont.Face,
		Dot:  fixed.P((ScreenWidth-len(title)*6)/2, ScreenHeight/2+4),
	}
	d.DrawString(title)

	draw.DrawMask(img, usbPlug.Alpha().Bounds().Add(image.Pt((ScreenWidth-16)/2, ScreenHeight/2+10)),
		opaque, image.Point{}, usbPlug.Alpha(), image.Point{}, draw.Over)
	return img
}
