package device

import (
	"image"
	"image/color"
	"syscall"

	"gioui.org/app"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"github.com/sirupsen/logrus"
)

var black = color.NRGBA{A: 255}

type windowSimulator struct {
	display *Display
	window  *app.Window
}

func newWindowSimulator(display *Display) (simulator, error) {
	return &windowSimulator{display: display}, nil
}

func (s *windowSimulator) start() error {
	s.window = app.NewWindow(app.Title("mkbdstatus"), app.Size(unit.Px(256), unit.Px(128)), app.MinSize(unit.Px(128), unit.Px(64)))
	go func() {
		if err := s.gioloop(); err != nil {
			logrus.Errorf("Simulation window failed: %v", err)
		}
		// Closing the window stops the server
		syscall.Kill(syscall.Getpid(), syscall.SIGINT)
	}()
	go app.Main()
	return nil
}

// invalidate only schedules a frame, the window reads the image back.
func (s *windowSimulator) invalidate(img image.Image, on bool) {
	s.window.Invalidate()
}

func (s *windowSimulator) close() {
	s.window.Close()
}

func (s *windowSimulator) gioloop() error {
	var ops op.Ops
	for {
		e := <-s.window.Events()
		switch e := e.(type) {
		case system.DestroyEvent:
			return e.Err
		case system.FrameEvent:
			gtx := layout.NewContext(&ops, e)

			lastImg, on := s.display.LastImage()

			paint.Fill(gtx.Ops, black)
			if on && lastImg != nil {
				img := widget.Image{Src: paint.NewImageOp(lastImg), Fit: widget.Contain}
				img.Layout(gtx)
			}
			e.Frame(gtx.Ops)
		}
	}
}
