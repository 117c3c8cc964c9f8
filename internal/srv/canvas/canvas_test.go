package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	frames []image.Image
}

func (r *recordingSink) ShowImage(img image.Image) {
	r.frames = append(r.frames, img)
}

func square(size int) *image.Alpha {
	img := image.NewAlpha(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetAlpha(x, y, color.Alpha{A: 0xff})
		}
	}
	return img
}

func lit(img *image.RGBA, x, y int) bool {
	return img.RGBAAt(x, y).R == 255
}

func TestCommitOnlyWhenDirty(t *testing.T) {
	s := NewScreen(128, 64)
	sink := &recordingSink{}

	require.True(t, s.Commit(sink))
	require.False(t, s.Commit(sink))

	l := s.CreateLabel()
	l.SetText("Battery: 42%")
	require.True(t, s.Commit(sink))

	l.SetText("Battery: 42%")
	assert.False(t, s.IsDirty())
	assert.Len(t, sink.frames, 2)
}

func TestImageAlignment(t *testing.T) {
	s := NewScreen(128, 64)
	i := s.CreateImage()
	i.SetSource(square(4))

	i.Align(ALIGN_TOP_RIGHT, -2, 2)
	img := s.Draw()
	assert.True(t, lit(img, 122, 2))
	assert.True(t, lit(img, 125, 5))
	assert.False(t, lit(img, 126, 2))
	assert.False(t, lit(img, 121, 2))

	i.Align(ALIGN_CENTER, 0, 0)
	img = s.Draw()
	assert.True(t, lit(img, 62, 30))
	assert.False(t, lit(img, 122, 2))
}

func TestHiddenObjectsAreNotPainted(t *testing.T) {
	s := NewScreen(32, 32)
	i := s.CreateImage()
	i.SetSource(square(32))
	assert.True(t, lit(s.Draw(), 10, 10))

	i.Hide()
	assert.False(t, i.Visible())
	assert.False(t, lit(s.Draw(), 10, 10))

	sink := &recordingSink{}
	s.Commit(sink)
	i.Hide()
	assert.False(t, s.IsDirty())
}

func TestLabelPaintsGlyphs(t *testing.T) {
	s := NewScreen(128, 64)
	l := s.CreateLabel()
	l.SetText("Charging...")
	l.Align(ALIGN_CENTER, 0, 0)

	img := s.Draw()
	count := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 128; x++ {
			if lit(img, x, y) {
				count++
			}
		}
	}
	assert.Greater(t, count, 0)
	assert.Equal(t, "Charging...", l.Text())
}
