package game

import (
	"net"
	"testing"

	"go.uber.org/zap"

	"concentrese/internal/concentrese/protocol"
)

func TestListenerServesLoginOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	c := newTestCoordinator()
	l := NewListener(ln.Addr().String(), c, testCreds(), zap.NewNop())
	go l.Serve(ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if got := login(t, conn, "ana", "clave1"); got != 1 {
		t.Errorf("turn = %d, want 1", got)
	}

	writeFrame(t, conn, protocol.CmdQueryTurn)
	expectFrame(t, conn, "1")
}

func TestListenerRejectsBusyAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	l := NewListener(ln.Addr().String(), newTestCoordinator(), testCreds(), zap.NewNop())
	if err := l.ListenAndServe(); err == nil {
		t.Error("ListenAndServe on a busy address succeeded, want error")
	}
}
