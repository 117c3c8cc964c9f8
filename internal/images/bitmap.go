package images

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"
)

// Bitmap is a packed 1-bit image: one bit per pixel, most significant bit
// first, every row padded to a whole byte. A set bit is an opaque pixel.
type Bitmap struct {
	Width  int
	Height int
	Data   []byte
}

func (b Bitmap) Stride() int {
	return (b.Width + 7) / 8
}

// Alpha expands the bitmap into an alpha mask usable with draw.DrawMask.
func (b Bitmap) Alpha() *image.Alpha {
	img := image.NewAlpha(image.Rect(0, 0, b.Width, b.Height))
	stride := b.Stride()
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			idx := y*stride + x/8
			if idx >= len(b.Data) {
				continue
			}
			if b.Data[idx]&(0x80>>uint(x%8)) != 0 {
				img.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}
	return img
}

// Pack converts any image to a Bitmap: pixels brighter than mid-grey and not
// transparent become set bits.
func Pack(img image.Image) Bitmap {
	bounds := img.Bounds()
	b := Bitmap{Width: bounds.Dx(), Height: bounds.Dy()}
	stride := b.Stride()
	b.Data = make([]byte, stride*b.Height)

	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			r, g, bl, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if a < 0x8000 {
				continue
			}
			// ITU-R 601 luma on 16-bit channels
			luma := (299*r + 587*g + 114*bl) / 1000
			if luma >= 0x8000 {
				b.Data[y*stride+x/8] |= 0x80 >> uint(x%8)
			}
		}
	}
	return b
}

// WriteGoSource writes b as a Go variable declaration of type images.Bitmap.
func WriteGoSource(w io.Writer, pkg string, varName string, b Bitmap) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// Code generated by mkbdstatus convert. DO NOT EDIT.\n\n")
	fmt.Fprintf(&sb, "package %s\n\n", pkg)
	if pkg != "images" {
		fmt.Fprintf(&sb, "import \"github.com/jypelle/mkbdstatus/internal/images\"\n\n")
		fmt.Fprintf(&sb, "var %s = images.Bitmap{\n", varName)
	} else {
		fmt.Fprintf(&sb, "var %s = Bitmap{\n", varName)
	}
	fmt.Fprintf(&sb, "\tWidth:  %d,\n", b.Width)
	fmt.Fprintf(&sb, "\tHeight: %d,\n", b.Height)
	fmt.Fprintf(&sb, "\tData: []byte{\n")
	for i := 0; i < len(b.Data); i += 16 {
		end := i + 16
		if end > len(b.Data) {
			end = len(b.Data)
		}
		hexValues := make([]string, 0, end-i)
		for _, v := range b.Data[i:end] {
			hexValues = append(hexValues, fmt.Sprintf("0x%02x", v))
		}
		fmt.Fprintf(&sb, "\t\t%s,\n", strings.Join(hexValues, ", "))
	}
	fmt.Fprintf(&sb, "\t},\n}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
