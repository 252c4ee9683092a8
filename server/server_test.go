package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eikrt/dimensioner/client"
	"github.com/eikrt/dimensioner/utils"
	"github.com/eikrt/dimensioner/world"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func testConfig() *utils.Config {
	cfg := utils.DefaultConfig()
	cfg.World.WorldSize = 4
	cfg.World.ChunkSize = 4
	cfg.Server.TickRate = 200
	return cfg
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// startServer runs a server over an empty world on a loopback port.
func startServer(t *testing.T, cfg *utils.Config) (*Server, string) {
	t.Helper()
	s, err := NewServer(cfg, world.NewEmptyWorld(cfg.Rules()), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go s.Simulate(ctx)
	go s.Serve(ctx, ln)
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	return s, ln.Addr().String()
}

func dial(t *testing.T, addr string) *client.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := client.Dial(ctx, addr, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func exchange(t *testing.T, c *client.Conn, cd world.ClientData) *world.Chunk {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	chunk, err := c.Exchange(ctx, cd)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	return chunk
}

func TestExchangeReturnsRequestedChunk(t *testing.T) {
	cfg := testConfig()
	_, addr := startServer(t, cfg)
	r := cfg.Rules()

	p := world.NewPlayer(7, world.NewCoords(70, 10, 0), &r)
	chunk := exchange(t, dial(t, addr), world.NewClientData(p, world.ActionContent{}, world.DataChunk))

	if chunk.Coords != (world.CCoords{X: 1}) {
		t.Fatalf("expected chunk (1,0), got %v", chunk.Coords)
	}
	if chunk.Find(7) == nil {
		t.Fatalf("expected the submitted avatar in the response")
	}
}

func TestOutOfBoundsFallsBackToOrigin(t *testing.T) {
	cfg := testConfig()
	s, addr := startServer(t, cfg)
	r := cfg.Rules()

	p := world.NewPlayer(7, world.NewCoords(-50, 10, 0), &r)
	chunk := exchange(t, dial(t, addr), world.NewClientData(p, world.ActionContent{Type: world.ConstructCannon}, world.DataChunk))

	if chunk.Coords != (world.CCoords{}) {
		t.Fatalf("expected origin chunk, got %v", chunk.Coords)
	}
	s.worldMu.Lock()
	defer s.worldMu.Unlock()
	s.world.ForEachEntity(func(c *world.Chunk, e *world.Entity) {
		t.Fatalf("expected untouched world, found %d in %v", e.Index, c.Coords)
	})
}

func TestConstructCannonOverTheWire(t *testing.T) {
	cfg := testConfig()
	_, addr := startServer(t, cfg)
	r := cfg.Rules()

	p := world.NewPlayer(7, world.NewCoords(20, 20, 0), &r)
	chunk := exchange(t, dial(t, addr), world.NewClientData(p, world.ActionContent{Type: world.ConstructCannon, Ang: 0.75}, world.DataRefresh))

	var cannons []world.Entity
	for _, e := range chunk.Entities {
		if e.Type == world.Cannon {
			cannons = append(cannons, e)
		}
	}
	if len(cannons) != 1 || cannons[0].Ang != 0.75 {
		t.Fatalf("expected one cannon at angle 0.75, got %+v", cannons)
	}
}

func readChunk(t *testing.T, conn net.Conn) *world.Chunk {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp []byte
	buf := make([]byte, 65536)
	for {
		n, err := conn.Read(buf)
		resp = append(resp, buf[:n]...)
		var c world.Chunk
		if c.UnmarshalBinary(resp) == nil {
			return &c
		}
		if err != nil {
			t.Fatalf("read response: %v", err)
		}
	}
}

func TestGarbageGetsNoReply(t *testing.T) {
	cfg := testConfig()
	_, addr := startServer(t, cfg)
	r := cfg.Rules()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("definitely not a request")); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var ne net.Error
	if _, err := conn.Read(make([]byte, 16)); !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("expected no reply to garbage, got %v", err)
	}

	p := world.NewPlayer(7, world.NewCoords(10, 10, 0), &r)
	cd := world.NewClientData(p, world.ActionContent{}, world.DataChunk)
	b, _ := cd.MarshalBinary()
	if _, err := conn.Write(b); err != nil {
		t.Fatal(err)
	}
	if c := readChunk(t, conn); c.Find(7) == nil {
		t.Fatalf("expected the connection to keep serving after garbage")
	}
}

func TestWebsocketExchange(t *testing.T) {
	cfg := testConfig()
	s, _ := startServer(t, cfg)
	r := cfg.Rules()

	hs := httptest.NewServer(s)
	defer hs.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http")+"/", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	p := world.NewPlayer(9, world.NewCoords(200, 140, 0), &r)
	cd := world.NewClientData(p, world.ActionContent{}, world.DataChunk)
	b, _ := cd.MarshalBinary()
	if err := ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
		t.Fatal(err)
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.BinaryMessage {
		t.Fatalf("expected a binary message, got type %d", typ)
	}
	var chunk world.Chunk
	if err := chunk.UnmarshalBinary(msg); err != nil {
		t.Fatal(err)
	}
	if chunk.Coords != (world.CCoords{X: 3, Y: 2}) || chunk.Find(9) == nil {
		t.Fatalf("expected avatar in chunk (3,2), got %v", chunk.Coords)
	}
}

func TestPublishReplacesStaleTick(t *testing.T) {
	s, err := NewServer(testConfig(), world.NewEmptyWorld(testConfig().Rules()), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	sub := &subscriber{ticks: make(chan uint64, 1)}
	s.addSubscriber(sub)

	s.publish(1)
	s.publish(2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := sub.await(ctx, 1)
	if err != nil || got != 2 {
		t.Fatalf("expected tick 2, got %d %v", got, err)
	}

	s.removeSubscriber(sub)
	s.publish(3)
	ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := sub.await(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected removed subscriber to hear nothing, got %v", err)
	}
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.Server.IntentQueue = 1
	s, err := NewServer(cfg, world.NewEmptyWorld(cfg.Rules()), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	r := cfg.Rules()

	cd := world.NewClientData(world.NewPlayer(1, world.NewCoords(1, 1, 0), &r), world.ActionContent{}, world.DataChunk)
	if _, ok := s.submit(cd); !ok {
		t.Fatalf("expected first intent to be queued")
	}
	if _, ok := s.submit(cd); ok {
		t.Fatalf("expected second intent to be dropped")
	}

	s.onTick()
	if len(s.intents) != 0 {
		t.Fatalf("expected the tick to drain the queue")
	}
	if s.world.Time != 1 {
		t.Fatalf("expected one tick, got %d", s.world.Time)
	}
}

func TestFrameKeyTracksTickAndContent(t *testing.T) {
	c := world.NewChunk(world.CCoords{X: 1}, 1, 0)
	a := frameKey(c, 5)
	if frameKey(c, 6) == a {
		t.Fatalf("expected a new key per tick")
	}
	c.Hash = 42
	b := frameKey(c, 5)
	if b == a {
		t.Fatalf("expected a new key per hash")
	}
	c.Observed = !c.Observed
	if frameKey(c, 5) == b {
		t.Fatalf("expected a new key when the observed flag flips")
	}
}

func TestCachedFrameTracksObserved(t *testing.T) {
	frames, err := newFrameCache(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer frames.close()

	c := world.NewChunk(world.CCoords{}, 0, 0)
	c.Rehash()
	if _, err := frames.encode(c, 1); err != nil {
		t.Fatal(err)
	}
	frames.cache.Wait()

	c.Observed = true
	b, err := frames.encode(c, 1)
	if err != nil {
		t.Fatal(err)
	}
	var got world.Chunk
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	if !got.Observed {
		t.Fatalf("expected the frame to carry the current observed flag")
	}
}
