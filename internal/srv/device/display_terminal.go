package device

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
)

// Two pixel rows per terminal cell: the upper one is the foreground of '▀',
// the lower one its background.
const halfBlock = '▀'

var (
	pixelOn  = tcell.ColorWhite
	pixelOff = tcell.ColorBlack
)

type terminalSimulator struct {
	display     *Display
	screen      tcell.Screen
	logFilename string
	logFile     *os.File
	quit        chan struct{}
}

// newTerminalSimulator draws on screen, or on the controlling terminal when
// screen is nil.
func newTerminalSimulator(display *Display, screen tcell.Screen, logFilename string) (*terminalSimulator, error) {
	if screen == nil {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("unable to open terminal: %w", err)
		}
	}
	return &terminalSimulator{
		display:     display,
		screen:      screen,
		logFilename: logFilename,
		quit:        make(chan struct{}),
	}, nil
}

func (s *terminalSimulator) start() error {
	if err := s.screen.Init(); err != nil {
		return fmt.Errorf("unable to init terminal: %w", err)
	}

	// The screen owns the terminal, logs go to a file
	if s.logFilename != "" {
		logFile, err := os.OpenFile(s.logFilename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0660)
		if err != nil {
			logrus.Warnf("Unable to open log file %s: %v", s.logFilename, err)
		} else {
			s.logFile = logFile
			logrus.SetOutput(logFile)
		}
	}

	s.screen.SetStyle(tcell.StyleDefault.Background(pixelOff))
	s.screen.Clear()
	s.invalidate(s.display.LastImage())

	go s.eventLoop()
	return nil
}

func (s *terminalSimulator) eventLoop() {
	for {
		ev := s.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventResize:
			s.screen.Sync()
			s.invalidate(s.display.LastImage())
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				logrus.Infof("Terminal simulation closed by user")
				syscall.Kill(syscall.Getpid(), syscall.SIGINT)
			}
		}
		select {
		case <-s.quit:
			return
		default:
		}
	}
}

func (s *terminalSimulator) invalidate(img image.Image, on bool) {
	if !on {
		img = nil
	}
	drawHalfBlocks(s.screen, img)
	s.screen.Show()
}

func (s *terminalSimulator) close() {
	close(s.quit)
	s.screen.Fini()
	if s.logFile != nil {
		logrus.SetOutput(os.Stderr)
		s.logFile.Close()
	}
}

// drawHalfBlocks paints img at the top left corner of screen. A nil img
// blanks the panel area.
func drawHalfBlocks(screen tcell.Screen, img image.Image) {
	width, height := 128, 64
	if img != nil {
		width, height = img.Bounds().Dx(), img.Bounds().Dy()
	}
	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x++ {
			top := isLit(img, x, y)
			bottom := y+1 < height && isLit(img, x, y+1)
			screen.SetContent(x, y/2, halfBlock, nil, cellStyle(top, bottom))
		}
	}
}

func cellStyle(top, bottom bool) tcell.Style {
	fg, bg := pixelOff, pixelOff
	if top {
		fg = pixelOn
	}
	if bottom {
		bg = pixelOn
	}
	return tcell.StyleDefault.Foreground(fg).Background(bg)
}

func isLit(img image.Image, x, y int) bool {
	if img == nil {
		return false
	}
	origin := img.Bounds().Min
	gray := color.GrayModel.Convert(img.At(origin.X+x, origin.Y+y)).(color.Gray)
	return gray.Y >= 0x80
}
