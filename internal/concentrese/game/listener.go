package game

import (
	"errors"
	"net"

	"go.uber.org/zap"
)

// Listener accepts client connections and hands each one to a Session.
type Listener struct {
	addr  string
	coord *Coordinator
	creds Credentials
	log   *zap.Logger
}

func NewListener(addr string, coord *Coordinator, creds Credentials, logger *zap.Logger) *Listener {
	return &Listener{addr: addr, coord: coord, creds: creds, log: logger}
}

// ListenAndServe opens the TCP endpoint and serves until the listener is
// closed or fails permanently.
func (l *Listener) ListenAndServe() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	l.log.Info("servidor activo", zap.String("addr", ln.Addr().String()))
	return l.Serve(ln)
}

// Serve runs the accept loop on an existing listener. A transient accept
// failure is logged and the loop continues; a closed listener ends it.
func (l *Listener) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			l.log.Warn("accept fallido", zap.Error(err))
			continue
		}

		l.log.Info("nueva conexion", zap.String("addr", conn.RemoteAddr().String()))
		s := NewSession(conn, l.coord, l.creds, l.log)
		l.coord.Register(s)
		go s.Run()
	}
}
