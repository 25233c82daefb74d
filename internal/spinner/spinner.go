// Package spinner shows progress of long-running searches on a terminal.
package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 100 * time.Millisecond

// Enabled reports whether w is an interactive terminal.
func Enabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start animates message on w together with the elapsed time until the
// returned function is called. The line is cleared on stop. When w is not a
// terminal nothing is drawn.
func Start(w io.Writer, message string) (stop func()) {
	if !Enabled(w) {
		return func() {}
	}
	return run(w, message)
}

func run(w io.Writer, message string) func() {
	done := make(chan struct{})
	cleared := make(chan struct{})
	var once sync.Once
	start := time.Now()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		width := 0
		for i := 0; ; i++ {
			select {
			case <-done:
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", width)) //nolint:errcheck
				close(cleared)
				return
			case <-ticker.C:
				line := fmt.Sprintf("%s %s (%s)", frames[i%len(frames)], message, time.Since(start).Truncate(time.Second))
				width = max(width, runewidth.StringWidth(line))
				fmt.Fprintf(w, "\r%s", line) //nolint:errcheck
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(done)
		})
		<-cleared
	}
}
