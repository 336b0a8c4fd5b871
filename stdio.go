package fifolink

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	stdioLock sync.RWMutex
	stdout    io.Writer = os.Stdout
	stdin     io.Reader = os.Stdin
)

// SetStdout registers the process wide character output used by Printf and
// Println. A nil writer restores os.Stdout.
func SetStdout(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	stdioLock.Lock()
	stdout = w
	stdioLock.Unlock()
}

// SetStdin registers the process wide character input. A nil reader
// restores os.Stdin.
func SetStdin(r io.Reader) {
	if r == nil {
		r = os.Stdin
	}
	stdioLock.Lock()
	stdin = r
	stdioLock.Unlock()
}

func Stdout() io.Writer {
	stdioLock.RLock()
	defer stdioLock.RUnlock()
	return stdout
}

func Stdin() io.Reader {
	stdioLock.RLock()
	defer stdioLock.RUnlock()
	return stdin
}

func Printf(format string, a ...interface{}) (int, error) {
	return fmt.Fprintf(Stdout(), format, a...)
}

func Println(a ...interface{}) (int, error) {
	return fmt.Fprintln(Stdout(), a...)
}
