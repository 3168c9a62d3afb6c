package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	frames := []string{
		"login,ana,secreta",
		"consultarTurno",
		"eleccionJugador,3,5",
		"",
		"fallo,no son parejas",
	}

	var buf bytes.Buffer
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame(%q): %v", f, err)
		}
	}

	for _, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if got != want {
			t.Errorf("ReadFrame = %q, want %q", got, want)
		}
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, strings.Repeat("x", MaxFrameSize+1))
	if err == nil {
		t.Fatal("expected error for oversized frame")
	}
	if buf.Len() != 0 {
		t.Errorf("oversized frame wrote %d bytes, want 0", buf.Len())
	}
}

func TestReadFrameEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("ReadFrame on empty stream = %v, want io.EOF", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	// Length prefix announces 10 bytes, only 3 follow.
	_, err := ReadFrame(bytes.NewReader([]byte{0, 10, 'a', 'b', 'c'}))
	if err != io.ErrUnexpectedEOF {
		t.Errorf("ReadFrame on truncated payload = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestParseBuild(t *testing.T) {
	tests := []struct {
		frame string
		cmd   string
		args  []string
	}{
		{"login,ana,clave", "login", []string{"ana", "clave"}},
		{"consultarTurno", "consultarTurno", nil},
		{"eleccionJugador,8,5", "eleccionJugador", []string{"8", "5"}},
	}

	for _, tt := range tests {
		cmd, args := Parse(tt.frame)
		if cmd != tt.cmd {
			t.Errorf("Parse(%q) cmd = %q, want %q", tt.frame, cmd, tt.cmd)
		}
		if len(args) != len(tt.args) {
			t.Errorf("Parse(%q) args = %v, want %v", tt.frame, args, tt.args)
			continue
		}
		for i := range args {
			if args[i] != tt.args[i] {
				t.Errorf("Parse(%q) args = %v, want %v", tt.frame, args, tt.args)
			}
		}
		if got := Build(cmd, args...); got != tt.frame {
			t.Errorf("Build(%q, %v) = %q, want %q", cmd, args, got, tt.frame)
		}
	}
}
