package server

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/eikrt/dimensioner/world"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

// frameConn carries one request or one response per frame.
type frameConn interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, b []byte) error
}

// handleConnection runs the request/response loop for one client until the
// stream closes. Undecodable requests get no reply; the client is expected to
// time out and retry.
func (s *Server) handleConnection(ctx context.Context, conn frameConn, transport string) error {
	log := s.log.WithFields(logrus.Fields{
		"conn":      ksuid.New().String(),
		"transport": transport,
	})
	sub := &subscriber{ticks: make(chan uint64, 1)}
	s.addSubscriber(sub)
	defer s.removeSubscriber(sub)

	log.Debug("connected")
	defer log.Debug("disconnected")

	for {
		b, err := conn.ReadFrame(ctx)
		if err != nil {
			if closedStream(err) {
				return nil
			}
			return err
		}

		var cd world.ClientData
		if err := cd.UnmarshalBinary(b); err != nil {
			log.WithError(err).WithField("bytes", len(b)).Warn("dropping undecodable request")
			continue
		}

		after, queued := s.submit(cd)
		if !queued {
			log.WithField("action", cd.Action.Type).Warn("intent queue full, dropping intent")
		}
		if _, err := sub.await(ctx, after); err != nil {
			return err
		}

		frame, err := s.frame(&cd)
		if err != nil {
			return err
		}
		if len(frame) > s.cfg.Server.MaxFrame {
			log.WithField("bytes", len(frame)).Warn("response exceeds max frame")
		}
		if err := conn.WriteFrame(ctx, frame); err != nil {
			return err
		}
	}
}

func closedStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway
}
