package client

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/eikrt/dimensioner/server"
	"github.com/eikrt/dimensioner/utils"
	"github.com/eikrt/dimensioner/world"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// splitServer answers every request with chunk, written in two halves.
func splitServer(t *testing.T, chunk *world.Chunk) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	resp, err := chunk.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 65536)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
			conn.Write(resp[:len(resp)/2])
			time.Sleep(20 * time.Millisecond)
			conn.Write(resp[len(resp)/2:])
		}
	}()
	return ln.Addr().String()
}

func TestExchangeAccumulatesReads(t *testing.T) {
	r := world.DefaultRules()
	chunk := world.NewChunk(world.CCoords{X: 2, Y: 3}, 7, 4)
	for i := 0; i < 40; i++ {
		chunk.Entities = append(chunk.Entities, world.NewCattle(world.EntityID(i), world.NewCoords(float32(i), 1, 0), &r))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, splitServer(t, chunk), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got, err := c.Exchange(ctx, world.NewClientData(world.NewPlayer(1, world.NewCoords(1, 1, 0), &r), world.ActionContent{}, world.DataChunk))
	if err != nil {
		t.Fatal(err)
	}
	if got.Coords != chunk.Coords || len(got.Entities) != 40 {
		t.Fatalf("expected the whole chunk, got %v with %d entities", got.Coords, len(got.Entities))
	}
}

func TestExchangeHonoursDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			io.Copy(io.Discard, conn)
			conn.Close()
		}
	}()

	r := world.DefaultRules()
	c, err := Dial(context.Background(), ln.Addr().String(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := c.Exchange(ctx, world.NewClientData(world.NewPlayer(1, world.NewCoords(1, 1, 0), &r), world.ActionContent{}, world.DataChunk)); err == nil {
		t.Fatalf("expected a silent server to time out the exchange")
	}
}

func TestCameraFollow(t *testing.T) {
	cam := Camera{Coords: world.NewCoords(0, 0, 0)}
	cam.Follow(world.NewCoords(10, 20, 3), 0.5, 1e-3)
	if cam.Coords != world.NewCoords(5, 10, 3) {
		t.Fatalf("expected halfway, got %v", cam.Coords)
	}
	cam.Follow(world.NewCoords(5, 10.0001, 3), 0.5, 1e-3)
	if cam.Coords != world.NewCoords(5, 10.0001, 3) {
		t.Fatalf("expected a snap onto the target, got %v", cam.Coords)
	}
}

func TestHeadingMatchesLaunchDirection(t *testing.T) {
	if h := Heading(0, -1); !utils.AlmostEqual(float64(h), 0, 1e-6) {
		t.Fatalf("expected 0 for negative y, got %v", h)
	}
	if h := Heading(1, 0); !utils.AlmostEqual(float64(h), 1.5707963, 1e-6) {
		t.Fatalf("expected pi/2 for positive x, got %v", h)
	}
}

func TestSessionStep(t *testing.T) {
	cfg := utils.DefaultConfig()
	cfg.World.WorldSize = 4
	cfg.World.ChunkSize = 4
	cfg.Server.TickRate = 200
	r := cfg.Rules()

	s, err := server.NewServer(cfg, world.NewEmptyWorld(r), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go s.Simulate(ctx)
	go s.Serve(ctx, ln)

	conn, err := Dial(ctx, ln.Addr().String(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	sess := NewSession(conn, r, world.NewPlayer(3, world.NewCoords(10, 10, 0), &r), cfg.Math.Float64EqualityThreshold)
	msgs, state, err := sess.Step(ctx, world.ActionContent{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	// Chunk (0,0) sits in the corner, so only three neighbours are in bounds.
	if len(msgs) != 4 {
		t.Fatalf("expected 4 chunks in view, got %d", len(msgs))
	}
	if !state.OK || state.Player == nil || state.Player.Index != 3 {
		t.Fatalf("expected the avatar back, got %+v", state)
	}
	if len(msgs[0].News.Newscast) != 1 {
		t.Fatalf("expected a poverty headline for a one-coin chunk, got %q", msgs[0].News.Newscast)
	}

	sess.Move(world.NewCoords(80, 10, 0))
	msgs, state, err = sess.Step(ctx, world.ActionContent{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Chunk.Coords != (world.CCoords{X: 1}) || !state.OK {
		t.Fatalf("expected the avatar in chunk (1,0), got %v ok=%v", msgs[0].Chunk.Coords, state.OK)
	}
}
