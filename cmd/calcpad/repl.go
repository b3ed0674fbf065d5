package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"nickandperla.net/calcpad/internal/composer"
	"nickandperla.net/calcpad/internal/eval"
	"nickandperla.net/calcpad/internal/session"
	"nickandperla.net/calcpad/pkg/calcpad"
)

// Alt+key function shortcuts: Alt+key sends ESC (0x1b) followed by the key byte
var altKeyFunctions = map[byte]string{
	's': "sin",  // Alt+s
	'c': "cos",  // Alt+c
	't': "tan",  // Alt+t
	'S': "asin", // Alt+S (Alt+Shift+s)
	'C': "acos", // Alt+C (Alt+Shift+c)
	'T': "atan", // Alt+T (Alt+Shift+t)
	'l': "ln",   // Alt+l
	'L': "log",  // Alt+L (Alt+Shift+l)
	'2': "log2", // Alt+2
	'r': "sqrt", // Alt+r
	'e': "exp",  // Alt+e
	'a': "abs",  // Alt+a
	'!': "fact", // Alt+! (Alt+Shift+1)
}

// historyRows is how many entries 'h' lists.
const historyRows = 10

func printBanner(w io.Writer) {
	lines := []string{
		"calcpad (Ctrl+D to exit)",
		"",
		"Keys:",
		"  0-9 . + - * / ^ % ( )   compose",
		"  Enter or =              evaluate",
		"  Backspace               delete     Esc Esc or c  clear",
		"  Up/Down                 browse history      h  list history",
		"  m / M / Ctrl+L          memory add / subtract / clear",
		"  d                       toggle deg/rad      n  toggle notation",
		"  [ / ]                   fewer/more decimal places",
		"",
		"Functions (use Alt+key):",
		"  Alt+s sin   Alt+c cos   Alt+t tan   Alt+S asin  Alt+C acos  Alt+T atan",
		"  Alt+l ln    Alt+L log   Alt+2 log2  Alt+r sqrt  Alt+e exp   Alt+a abs",
		"  Alt+! fact",
		"",
	}
	for _, l := range lines {
		fmt.Fprint(w, l, "\r\n")
	}
}

func runREPL(ctx context.Context, runtime *calcpad.Runtime) {
	fd := int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set raw mode: %v\n", err)
		if err := runLines(ctx, runtime, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
		}
		return
	}
	defer term.Restore(fd, oldState)

	newKeypad(runtime.Session(), os.Stdout).run(ctx, os.Stdin)
}

// keypad drives a session from raw key bytes and keeps one status line
// redrawn in place.
type keypad struct {
	s       *session.Session
	mu      sync.Mutex // guards out
	out     io.Writer
	histPos int // -1 when not browsing history
}

func newKeypad(s *session.Session, out io.Writer) *keypad {
	return &keypad{s: s, out: out, histPos: -1}
}

// run reads keys until Ctrl+D, Ctrl+C or end of input, then waits for
// in-flight evaluations.
func (k *keypad) run(ctx context.Context, in io.Reader) {
	printBanner(k.out)
	k.redraw()

	r := bufio.NewReader(in)
	for {
		b, err := r.ReadByte()
		if err != nil {
			k.finish()
			return
		}

		browsing := false
		switch b {
		case 0x04, 0x03: // Ctrl+D, Ctrl+C
			k.finish()
			return

		case '\r', '\n', calcpad.KeySubmit:
			k.submit(ctx)

		case 0x7f, 0x08: // Backspace (DEL or BS)
			k.s.Backspace()

		case 0x0c: // Ctrl+L
			k.report(k.s.MemoryClear(ctx))

		case 0x1b: // ESC - Alt+key, arrow key or a second ESC
			next, err := r.ReadByte()
			if err != nil {
				k.finish()
				return
			}
			switch next {
			case 0x1b:
				k.s.Clear()
			case '[':
				arrow, err := r.ReadByte()
				if err != nil {
					k.finish()
					return
				}
				switch arrow {
				case 'A': // Up arrow - older entry
					browsing = k.browse(1)
				case 'B': // Down arrow - newer entry
					browsing = k.browse(-1)
				}
			default:
				if name, ok := altKeyFunctions[next]; ok {
					k.s.Function(name)
				}
			}

		case 'c':
			k.s.Clear()
		case 'h':
			k.showHistory()
		case 'm':
			k.report(k.s.MemoryAdd(ctx))
		case 'M':
			k.report(k.s.MemorySubtract(ctx))
		case 'd':
			mode := eval.Degrees
			if k.s.Config().AngleMode == eval.Degrees {
				mode = eval.Radians
			}
			k.report(k.s.SetAngleMode(ctx, string(mode)))
		case 'n':
			n := eval.Standard
			if k.s.Config().Notation == eval.Standard {
				n = eval.Scientific
			}
			k.report(k.s.SetNotation(ctx, string(n)))
		case '[':
			k.report(k.s.SetDecimalPlaces(ctx, k.s.Config().DecimalPlaces-1))
		case ']':
			k.report(k.s.SetDecimalPlaces(ctx, k.s.Config().DecimalPlaces+1))

		default:
			if actions, err := calcpad.ParseKeys(string(b)); err == nil && len(actions) == 1 {
				k.report(k.s.Press(ctx, actions[0]))
			}
		}

		if !browsing {
			k.histPos = -1
		}
		k.redraw()
	}
}

// submit evaluates in the background and redraws when the answer lands.
// Answers overtaken by further edits are dropped silently.
func (k *keypad) submit(ctx context.Context) {
	err := k.s.SubmitAsync(ctx, func(err error) {
		if errors.Is(err, session.ErrStale) {
			return
		}
		k.redraw()
	})
	k.report(err)
}

// browse moves through cached history by step, newest first. Moving past
// the newest entry clears the buffer.
func (k *keypad) browse(step int) bool {
	pos := k.histPos + step
	if pos < 0 {
		k.s.Clear()
		return false
	}
	if err := k.s.SelectHistory(pos); err != nil {
		return k.histPos >= 0
	}
	k.histPos = pos
	return true
}

func (k *keypad) showHistory() {
	history := k.s.History()
	cfg := k.s.Config()

	k.mu.Lock()
	defer k.mu.Unlock()
	fmt.Fprint(k.out, "\r\x1b[K")
	if len(history) == 0 {
		fmt.Fprint(k.out, "  (no history)\r\n")
		return
	}
	if len(history) > historyRows {
		history = history[:historyRows]
	}
	for i, e := range history {
		fmt.Fprintf(k.out, "  %2d  %s = %s\r\n", i+1, e.Expression, eval.FormatSettings(e.Result, cfg))
	}
}

// report prints errors that the display does not already show.
func (k *keypad) report(err error) {
	if err == nil || composer.IsStructural(err) {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	fmt.Fprintf(k.out, "\r\x1b[K! %v\r\n", err)
}

func (k *keypad) redraw() {
	line := render(k.s)
	k.mu.Lock()
	defer k.mu.Unlock()
	fmt.Fprintf(k.out, "\r\x1b[K%s", line)
}

func (k *keypad) finish() {
	k.s.Close()
	k.redraw()
	k.mu.Lock()
	fmt.Fprint(k.out, "\r\n")
	k.mu.Unlock()
}

// render formats the status line: settings, memory and the display.
func render(s *session.Session) string {
	cfg := s.Config()
	st := s.State()

	var line string
	switch {
	case strings.HasPrefix(st.Display, composer.ErrorPrefix):
		line = st.Buffer + "  " + st.Display
	case st.Phase() == composer.Result:
		line = "= " + st.Display
	case st.Buffer == "":
		line = composer.ZeroDisplay
	default:
		line = st.Buffer
	}
	return fmt.Sprintf("[%s %d %s M=%s] %s",
		cfg.AngleMode, cfg.DecimalPlaces, notationLabel(cfg.Notation),
		eval.FormatSettings(s.Memory(), cfg), line)
}

func notationLabel(n eval.Notation) string {
	if n == eval.Scientific {
		return "sci"
	}
	return "std"
}

// runLines handles non-TTY input: each line is a key script, and the
// display is printed after it.
func runLines(ctx context.Context, runtime *calcpad.Runtime, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		actions, err := calcpad.ParseKeys(line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		for _, a := range actions {
			if err := runtime.Press(ctx, a); err != nil {
				break
			}
		}
		fmt.Fprintln(out, runtime.Display())
	}
	return scanner.Err()
}
