// Package views draws the experiment in a terminal and reads the participant's keys.
package views

import (
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"attblink/internal/geometry"
	"attblink/internal/trial"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
)

const (
	promptText   = "Type the two digits you saw, in order:"
	rejectText   = "Only the digits 0-9 are accepted."
	practiceText = "Practice trial"
	finishText   = "Thank you, the experiment is over. Press any key to exit."
)

var (
	distractorStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	targetStyle     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	textStyle       = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	correctStyle    = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	wrongStyle      = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// Terminal is the tcell presenter. Drawing happens on the session goroutine; a
// single poller goroutine forwards typed runes on Keys.
type Terminal struct {
	screen tcell.Screen
	radius float64
	sound  *Sound
	log    *zap.Logger

	keys      chan rune
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	responses [2]rune
}

// NewTerminal initialises screen. radius is the polygon radius in stimulus units and
// is scaled to fit the window. sound may be nil.
func NewTerminal(screen tcell.Screen, radius float64, sound *Sound, log *zap.Logger) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault)
	screen.HideCursor()
	screen.Clear()
	screen.Show()

	return &Terminal{
		screen: screen,
		radius: radius,
		sound:  sound,
		log:    log,
		keys:   make(chan rune, 16),
		done:   make(chan struct{}),
	}, nil
}

// Keys delivers every key typed, as a rune. It is closed when the poller stops.
func (t *Terminal) Keys() <-chan rune { return t.keys }

// Listen starts the event poller. interrupt is called on Esc or Ctrl+C.
func (t *Terminal) Listen(interrupt func()) {
	go func() {
		defer close(t.keys)
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
					t.log.Info("Interrupted from the keyboard")
					interrupt()
					continue
				}
				key := keyRune(ev)
				select {
				case t.keys <- key:
				case <-t.done:
					return
				default:
					t.log.Debug("Key dropped, input buffer full", zap.String("key", string(key)))
				}
			case *tcell.EventResize:
				t.screen.Sync()
			}
		}
	}()
}

// keyRune turns a key event into the rune handed to the runner. Control keys such as
// Enter or Tab keep their control code so they can be rejected like any other
// non-digit; keys with no character at all become utf8.RuneError.
func keyRune(ev *tcell.EventKey) rune {
	switch {
	case ev.Key() == tcell.KeyRune:
		return ev.Rune()
	case ev.Key() < tcell.KeyRune:
		return rune(ev.Key())
	default:
		return utf8.RuneError
	}
}

// Close restores the terminal and stops the poller.
func (t *Terminal) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
		t.screen.Fini()
	})
}

func (t *Terminal) ShowFixation(practice bool) {
	t.screen.Clear()
	w, h := t.screen.Size()
	if practice {
		t.drawCentered(1, practiceText, textStyle)
	}
	t.screen.SetContent(w/2, h/2, '+', nil, targetStyle)
	t.screen.Show()
}

func (t *Terminal) ShowFrame(frame trial.Frame) {
	t.screen.Clear()
	w, h := t.screen.Size()
	for _, s := range frame.Symbols {
		x, y := CellFor(s.Vertex, t.radius, w, h)
		style := distractorStyle
		if s.Target {
			style = targetStyle
		}
		t.drawText(x, y, s.Text, style)
	}
	t.screen.Show()
}

func (t *Terminal) Clear() {
	t.screen.Clear()
	t.screen.Show()
}

func (t *Terminal) PromptResponse() {
	t.mu.Lock()
	t.responses = [2]rune{'_', '_'}
	t.mu.Unlock()

	t.screen.Clear()
	t.drawPrompt()
	t.screen.Show()
}

func (t *Terminal) ShowResponse(slot int, key rune) {
	t.mu.Lock()
	if slot >= 0 && slot < len(t.responses) {
		t.responses[slot] = key
	}
	t.mu.Unlock()

	t.screen.Clear()
	t.drawPrompt()
	t.screen.Show()
}

func (t *Terminal) RejectKey(key rune) {
	_, h := t.screen.Size()
	t.clearLine(h/2 + 2)
	t.drawCentered(h/2+2, rejectText, wrongStyle)
	t.screen.Show()
}

func (t *Terminal) ShowFeedback(correct [2]bool) {
	_, h := t.screen.Size()
	t.clearLine(h/2 + 2)
	for i, ok := range correct {
		text, style := fmt.Sprintf("Digit %d: incorrect", i+1), wrongStyle
		if ok {
			text, style = fmt.Sprintf("Digit %d: correct", i+1), correctStyle
		}
		t.drawCentered(h/2+2+i, text, style)
	}
	t.screen.Show()

	if t.sound != nil {
		t.sound.Feedback(correct)
	}
}

func (t *Terminal) Finish() {
	t.screen.Clear()
	_, h := t.screen.Size()
	t.drawCentered(h/2, finishText, textStyle)
	t.screen.Show()
}

func (t *Terminal) drawPrompt() {
	_, h := t.screen.Size()
	t.mu.Lock()
	answer := fmt.Sprintf("%c %c", t.responses[0], t.responses[1])
	t.mu.Unlock()
	t.drawCentered(h/2-1, promptText, textStyle)
	t.drawCentered(h/2, answer, targetStyle)
}

func (t *Terminal) drawCentered(y int, text string, style tcell.Style) {
	w, _ := t.screen.Size()
	t.drawText((w-len([]rune(text)))/2, y, text, style)
}

func (t *Terminal) drawText(x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		t.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (t *Terminal) clearLine(y int) {
	w, _ := t.screen.Size()
	for x := 0; x < w; x++ {
		t.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault)
	}
}

// CellFor maps a polygon vertex onto a w by h cell grid centred on the window. Cells
// are about twice as tall as wide, so columns are stretched by two, and y grows
// downwards on screen.
func CellFor(v geometry.Vertex, radius float64, w, h int) (int, int) {
	cx, cy := w/2, h/2
	if radius <= 0 {
		return cx, cy
	}
	scale := math.Min(float64(w/2-2)/(2*radius), float64(h/2-1)/radius)
	if scale < 0 {
		scale = 0
	}
	x := cx + int(math.Round(2*scale*v.X))
	y := cy - int(math.Round(scale*v.Y))
	return x, y
}
