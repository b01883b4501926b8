package terminal

import (
	"errors"
	"fmt"
	"io"
	"sync"

	fluid "github.com/esimov/mac-fluid/fluid-solver"
	"github.com/nsf/termbox-go"
)

// ErrClosed is returned by Accept once the user has quit the view.
var ErrClosed = errors.New("terminal: view closed")

// ramp orders glyphs from empty to dense.
var ramp = []rune(" .:-=+*#%@")

const tracerGlyph = '•'

// Click is a left mouse click translated into world coordinates.
type Click struct {
	X, Y float64
}

// Terminal draws the density of each frame as ASCII art. Esc or q closes it.
type Terminal struct {
	mu       sync.Mutex
	backbuf  []termbox.Cell
	bbw, bbh int
	logfile  io.Writer

	// extent of the last frame in world units, used to map clicks
	worldW, worldH float64
	clicks         []Click

	done    chan struct{}
	once    sync.Once
	stopped chan struct{}
}

// New returns a terminal view. Mouse clicks are logged to logfile.
func New(logfile io.Writer) *Terminal {
	if logfile == nil {
		logfile = io.Discard
	}
	return &Terminal{
		logfile: logfile,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Open takes over the terminal and starts listening for input.
func (t *Terminal) Open() error {
	if err := termbox.Init(); err != nil {
		return err
	}
	termbox.SetInputMode(termbox.InputEsc | termbox.InputMouse)
	t.reallocBackBuffer(termbox.Size())

	go t.poll()
	return nil
}

// Close stops the input loop and restores the terminal.
func (t *Terminal) Close() {
	t.quit()
	termbox.Interrupt()
	<-t.stopped
	termbox.Close()
}

// Done is closed when the user quits the view.
func (t *Terminal) Done() <-chan struct{} {
	return t.done
}

func (t *Terminal) quit() {
	t.once.Do(func() { close(t.done) })
}

// poll runs until Close interrupts it. Quitting only closes done.
func (t *Terminal) poll() {
	defer close(t.stopped)
	for {
		switch ev := termbox.PollEvent(); ev.Type {
		case termbox.EventKey:
			if ev.Key == termbox.KeyEsc || ev.Ch == 'q' {
				t.quit()
			}
		case termbox.EventMouse:
			if ev.Key == termbox.MouseLeft {
				t.click(ev.MouseX, ev.MouseY)
			}
		case termbox.EventResize:
			t.reallocBackBuffer(ev.Width, ev.Height)
		case termbox.EventInterrupt:
			return
		}
	}
}

func (t *Terminal) reallocBackBuffer(w, h int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.bbw, t.bbh = w, h
	t.backbuf = make([]termbox.Cell, w*h)
}

func (t *Terminal) click(mx, my int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bbw == 0 || t.bbh == 0 || t.worldW == 0 {
		return
	}
	c := Click{
		X: (float64(mx) + 0.5) / float64(t.bbw) * t.worldW,
		Y: (float64(t.bbh-1-my) + 0.5) / float64(t.bbh) * t.worldH,
	}
	t.clicks = append(t.clicks, c)
	fmt.Fprintf(t.logfile, "X:%d \t Y:%d \t world:(%.3f, %.3f)\n", mx, my, c.X, c.Y)
}

// Clicks drains the clicks received since the last call.
func (t *Terminal) Clicks() []Click {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.clicks
	t.clicks = nil
	return c
}

// Accept draws f, stretched over the whole terminal.
func (t *Terminal) Accept(f *fluid.Frame) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if f.Width == 0 || f.Height == 0 {
		return nil
	}
	short := float64(min(f.Width, f.Height))
	t.worldW, t.worldH = float64(f.Width)/short, float64(f.Height)/short

	for cy := 0; cy < t.bbh; cy++ {
		for cx := 0; cx < t.bbw; cx++ {
			x, y := cellAt(cx, cy, t.bbw, t.bbh, f.Width, f.Height)
			t.backbuf[cx+cy*t.bbw] = termbox.Cell{
				Ch: glyph(f.DensityAt(x, y)),
				Fg: termbox.ColorWhite,
				Bg: termbox.ColorDefault,
			}
		}
	}
	for _, p := range f.Tracers {
		cx := int(p.X / t.worldW * float64(t.bbw))
		cy := t.bbh - 1 - int(p.Y/t.worldH*float64(t.bbh))
		if cx >= 0 && cx < t.bbw && cy >= 0 && cy < t.bbh {
			t.backbuf[cx+cy*t.bbw] = termbox.Cell{Ch: tracerGlyph, Fg: termbox.ColorYellow}
		}
	}

	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	copy(termbox.CellBuffer(), t.backbuf)
	return termbox.Flush()
}

// cellAt maps the terminal cell (cx, cy) of a bbw x bbh screen onto a grid of
// w x h cells. Row 0 of the grid is at the bottom of the screen.
func cellAt(cx, cy, bbw, bbh, w, h int) (int, int) {
	x := cx * w / bbw
	y := (bbh - 1 - cy) * h / bbh
	return x, y
}

// glyph picks the ASCII shade for a density, clamped to [0, 1].
func glyph(d float64) rune {
	if !(d > 0) {
		return ramp[0]
	}
	if d >= 1 {
		return ramp[len(ramp)-1]
	}
	return ramp[int(d*float64(len(ramp)-1)+0.5)]
}
