package canvas

import (
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/bitmapfont/v2"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type Align int

const (
	ALIGN_CENTER Align = iota
	ALIGN_TOP_LEFT
	ALIGN_TOP_MID
	ALIGN_TOP_RIGHT
	ALIGN_BOTTOM_LEFT
	ALIGN_BOTTOM_MID
	ALIGN_BOTTOM_RIGHT
	ALIGN_LEFT_MID
	ALIGN_RIGHT_MID
)

var foreground = image.NewUniform(color.RGBA{255, 255, 255, 255})
var background = image.NewUniform(color.RGBA{0, 0, 0, 255})

// Sink receives a full frame each time a dirty screen is committed.
type Sink interface {
	ShowImage(img image.Image)
}

type object interface {
	size() image.Point
	placement() (Align, image.Point, bool)
	paint(dst draw.Image, at image.Point)
}

// Screen is the root drawable. Children are painted in creation order.
type Screen struct {
	lock    sync.RWMutex
	width   int
	height  int
	objects []object
	dirty   bool
}

func NewScreen(width, height int) *Screen {
	return &Screen{width: width, height: height, dirty: true}
}

func (s *Screen) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

func (s *Screen) CreateLabel() *Label {
	s.lock.Lock()
	defer s.lock.Unlock()

	l := &Label{base: base{screen: s}}
	s.objects = append(s.objects, l)
	s.dirty = true
	return l
}

func (s *Screen) CreateImage() *Image {
	s.lock.Lock()
	defer s.lock.Unlock()

	i := &Image{base: base{screen: s}}
	s.objects = append(s.objects, i)
	s.dirty = true
	return i
}

func (s *Screen) IsDirty() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.dirty
}

// Draw composes every visible child onto a fresh frame.
func (s *Screen) Draw() *image.RGBA {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.draw()
}

func (s *Screen) draw() *image.RGBA {
	img := image.NewRGBA(s.Bounds())
	draw.Draw(img, img.Bounds(), background, image.Point{}, draw.Src)

	for _, o := range s.objects {
		align, offset, visible := o.placement()
		if !visible {
			continue
		}
		o.paint(img, s.position(o.size(), align, offset))
	}
	return img
}

// Commit hands the frame to sink when something changed since the last
// commit. It reports whether a frame was sent.
func (s *Screen) Commit(sink Sink) bool {
	s.lock.Lock()
	if !s.dirty || sink == nil {
		s.lock.Unlock()
		return false
	}
	img := s.draw()
	s.dirty = false
	s.lock.Unlock()

	sink.ShowImage(img)
	return true
}

func (s *Screen) invalidate() {
	s.dirty = true
}

func (s *Screen) position(size image.Point, align Align, offset image.Point) image.Point {
	var x, y int
	switch align {
	case ALIGN_TOP_LEFT, ALIGN_LEFT_MID, ALIGN_BOTTOM_LEFT:
		x = 0
	case ALIGN_TOP_RIGHT, ALIGN_RIGHT_MID, ALIGN_BOTTOM_RIGHT:
		x = s.width - size.X
	default:
		x = (s.width - size.X) / 2
	}
	switch align {
	case ALIGN_TOP_LEFT, ALIGN_TOP_MID, ALIGN_TOP_RIGHT:
		y = 0
	case ALIGN_BOTTOM_LEFT, ALIGN_BOTTOM_MID, ALIGN_BOTTOM_RIGHT:
		y = s.height - size.Y
	default:
		y = (s.height - size.Y) / 2
	}
	return image.Pt(x, y).Add(offset)
}

type base struct {
	screen *Screen
	align  Align
	offset image.Point
	hidden bool
}

func (b *base) placement() (Align, image.Point, bool) {
	return b.align, b.offset, !b.hidden
}

func (b *base) Align(align Align, dx, dy int) {
	b.screen.lock.Lock()
	defer b.screen.lock.Unlock()
	b.align = align
	b.offset = image.Pt(dx, dy)
	b.screen.invalidate()
}

func (b *base) Show() {
	b.setHidden(false)
}

func (b *base) Hide() {
	b.setHidden(true)
}

func (b *base) Visible() bool {
	b.screen.lock.RLock()
	defer b.screen.lock.RUnlock()
	return !b.hidden
}

func (b *base) setHidden(hidden bool) {
	b.screen.lock.Lock()
	defer b.screen.lock.Unlock()
	if b.hidden != hidden {
		b.hidden = hidden
		b.screen.invalidate()
	}
}

// Label draws one line of text with the bitmap font.
type Label struct {
	base
	text string
}

func (l *Label) SetText(text string) {
	l.screen.lock.Lock()
	defer l.screen.lock.Unlock()
	if l.text != text {
		l.text = text
		l.screen.invalidate()
	}
}

func (l *Label) Text() string {
	l.screen.lock.RLock()
	defer l.screen.lock.RUnlock()
	return l.text
}

func (l *Label) size() image.Point {
	width := font.MeasureString(bitmapfont.Face, l.text).Ceil()
	return image.Pt(width, bitmapfont.Face.Metrics().Height.Ceil())
}

func (l *Label) paint(dst draw.Image, at image.Point) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  foreground,
		Face: bitmapfont.Face,
		Dot:  fixed.Point26_6{X: fixed.I(at.X), Y: fixed.I(at.Y) + bitmapfont.Face.Metrics().Ascent},
	}
	d.DrawString(l.text)
}

// Image draws its source as a mask in the foreground colour, so 1-bit
// alpha assets and full colour images both work.
type Image struct {
	base
	src image.Image
}

func (i *Image) SetSource(src image.Image) {
	i.screen.lock.Lock()
	defer i.screen.lock.Unlock()
	if i.src != src {
		i.src = src
		i.screen.invalidate()
	}
}

func (i *Image) Source() image.Image {
	i.screen.lock.RLock()
	defer i.screen.lock.RUnlock()
	return i.src
}

func (i *Image) size() image.Point {
	if i.src == nil {
		return image.Point{}
	}
	return i.src.Bounds().Size()
}

func (i *Image) paint(dst draw.Image, at image.Point) {
	if i.src == nil {
		return
	}
	r := image.Rectangle{Min: at, Max: at.Add(i.src.Bounds().Size())}
	if _, isMask := i.src.(*image.Alpha); isMask {
		draw.DrawMask(dst, r, foreground, image.Point{}, i.src, i.src.Bounds().Min, draw.Over)
		return
	}
	draw.Draw(dst, r, i.src, i.src.Bounds().Min, draw.Over)
}
