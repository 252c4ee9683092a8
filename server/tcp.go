package server

import (
	"context"
	"net"
)

// tcpConn frames by read call: whatever one Read returns is one request.
type tcpConn struct {
	conn net.Conn
	buf  []byte
}

func newTCPConn(conn net.Conn, maxFrame int) *tcpConn {
	return &tcpConn{conn: conn, buf: make([]byte, maxFrame)}
}

func (c *tcpConn) ReadFrame(ctx context.Context) ([]byte, error) {
	n, err := c.conn.Read(c.buf)
	if n > 0 {
		return append([]byte(nil), c.buf[:n]...), nil
	}
	if err == nil {
		return nil, ctx.Err()
	}
	return nil, err
}

func (c *tcpConn) WriteFrame(ctx context.Context, b []byte) error {
	_, err := c.conn.Write(b)
	return err
}

// Serve accepts TCP clients on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go func() {
			defer conn.Close()
			// Unblocks the pending Read on shutdown.
			stop := context.AfterFunc(ctx, func() { conn.Close() })
			defer stop()
			if err := s.handleConnection(ctx, newTCPConn(conn, s.cfg.Server.MaxFrame), "tcp"); err != nil && ctx.Err() == nil {
				s.log.WithError(err).WithField("remote", conn.RemoteAddr().String()).Info("connection closed")
			}
		}()
	}
}
