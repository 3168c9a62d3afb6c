// Package protocol implements the wire format shared by the Concéntrese
// server and its clients: UTF-8 strings framed by a 2-byte big-endian
// length prefix, with comma-separated fields inside each frame.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Client commands.
const (
	CmdLogin     = "login"
	CmdQueryTurn = "consultarTurno"
	CmdPlay      = "eleccionJugador"
	CmdStats     = "pedirDatosJugador"
	CmdWinner    = "pedirGanador"
)

// Server replies and pushes.
const (
	LoginOK      = "valido"
	LoginInvalid = "invalido"
	LoginTaken   = "yaConectado"
	PlayHit      = "acerto"
	PlayMiss     = "fallo"
	PushPrompt   = "pedirCoordenadas"
	PushTurn     = "siguienteTurno"
	PushGameOver = "juegoTerminado"
	PushReset    = "juegoReiniciado"
)

// MaxFrameSize is the largest payload a frame can carry. The 2-byte
// length prefix caps it; anything larger is a protocol violation.
const MaxFrameSize = 0xFFFF

// WriteFrame writes one length-prefixed frame. The prefix and payload go
// out in a single Write so concurrent writers cannot interleave halves.
func WriteFrame(w io.Writer, s string) error {
	if len(s) > MaxFrameSize {
		return fmt.Errorf("frame too large: %d bytes exceeds max %d", len(s), MaxFrameSize)
	}
	buf := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(buf, uint16(len(s)))
	copy(buf[2:], s)
	if _, err := w.Write(buf); err != nil {
		return err
	}
	return nil
}

// ReadFrame reads one length-prefixed frame. io.EOF from the length read
// means the peer closed the connection cleanly.
func ReadFrame(r io.Reader) (string, error) {
	lenBuf := make([]byte, 2)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lenBuf)
	if n == 0 {
		return "", nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", err
	}
	return string(payload), nil
}

// Parse splits a frame into its command and arguments.
func Parse(frame string) (cmd string, args []string) {
	parts := strings.Split(frame, ",")
	return parts[0], parts[1:]
}

// Build joins a command and its arguments into a frame payload.
func Build(cmd string, args ...string) string {
	if len(args) == 0 {
		return cmd
	}
	return cmd + "," + strings.Join(args, ",")
}
