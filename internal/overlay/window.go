package overlay

import (
	"gocv.io/x/gocv"
)

// KeyNone is returned by PollKey when no key was pressed
const KeyNone = -1

// Display shows frames and reports key presses
type Display interface {
	Show(img gocv.Mat)
	PollKey() int
	Close() error
}

// Window is a HighGUI window
type Window struct {
	win *gocv.Window
}

// NewWindow opens a window with the given title
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show displays img
func (w *Window) Show(img gocv.Mat) {
	w.win.IMShow(img)
}

// PollKey waits one millisecond for a key and returns its low byte, or KeyNone
func (w *Window) PollKey() int {
	key := w.win.WaitKey(1)
	if key < 0 {
		return KeyNone
	}
	return key & 0xFF
}

// Close destroys the window
func (w *Window) Close() error {
	return w.win.Close()
}

// Headless discards frames; used when no display is available
type Headless struct{}

func (Headless) Show(gocv.Mat) {}
func (Headless) PollKey() int  { return KeyNone }
func (Headless) Close() error  { return nil }
