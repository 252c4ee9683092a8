package server

import (
	"context"
	"net/http"

	"nhooyr.io/websocket"
)

// wsConn carries one request per binary websocket message.
type wsConn struct {
	c *websocket.Conn
}

func (c *wsConn) ReadFrame(ctx context.Context) ([]byte, error) {
	_, b, err := c.c.Read(ctx)
	return b, err
}

func (c *wsConn) WriteFrame(ctx context.Context, b []byte) error {
	return c.c.Write(ctx, websocket.MessageBinary, b)
}

func (s *Server) onConnection(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.Server.OriginPatterns,
	})
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "")
	c.SetReadLimit(int64(s.cfg.Server.MaxFrame))

	if err := s.handleConnection(r.Context(), &wsConn{c: c}, "ws"); err != nil {
		s.log.WithError(err).Info("websocket closed")
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}
