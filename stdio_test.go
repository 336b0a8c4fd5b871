package fifolink

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestStdioHooks(t *testing.T) {
	var out bytes.Buffer
	SetStdout(&out)
	defer SetStdout(nil)

	Println("rxf", "low")
	Printf("%02x", 0xa5)
	assertString(t, out.String(), "rxf low\na5")

	in := strings.NewReader("input")
	SetStdin(in)
	if Stdin() != in {
		t.Error("stdin not registered")
	}

	SetStdin(nil)
	SetStdout(nil)
	if Stdin() != os.Stdin || Stdout() != os.Stdout {
		t.Error("nil did not restore the os streams")
	}
}
