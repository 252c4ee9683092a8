package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/eikrt/dimensioner/world"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
)

// maxResponse bounds how much a single response may accumulate before the
// exchange gives up.
const maxResponse = 1 << 20

const readChunk = 65536

// Conn is a client connection speaking the request/response protocol over TCP.
type Conn struct {
	conn net.Conn
	log  *logrus.Entry
}

func Dial(ctx context.Context, addr string, log *logrus.Logger) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Conn{
		conn: conn,
		log:  log.WithField("conn", ksuid.New().String()),
	}, nil
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

// Exchange sends cd and waits for the chunk the server answers with. A large
// chunk may arrive over several reads, so reads accumulate until the bytes
// decode. The server never answers a request it cannot decode; give ctx a
// deadline.
func (c *Conn) Exchange(ctx context.Context, cd world.ClientData) (*world.Chunk, error) {
	req, err := cd.MarshalBinary()
	if err != nil {
		return nil, err
	}

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { c.conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := c.conn.Write(req); err != nil {
		return nil, err
	}

	var resp []byte
	buf := make([]byte, readChunk)
	for reads := 1; ; reads++ {
		n, err := c.conn.Read(buf)
		resp = append(resp, buf[:n]...)
		if n > 0 {
			var chunk world.Chunk
			if derr := chunk.UnmarshalBinary(resp); derr == nil {
				if reads > 1 {
					c.log.WithFields(logrus.Fields{"reads": reads, "bytes": len(resp)}).Debug("response spanned reads")
				}
				return &chunk, nil
			} else if !errors.Is(derr, world.ErrMalformed) || len(resp) > maxResponse {
				return nil, fmt.Errorf("decode response: %w", derr)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
	}
}
