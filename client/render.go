package client

import (
	"context"
	"math"

	"github.com/eikrt/dimensioner/utils"
	"github.com/eikrt/dimensioner/world"
)

// RenderMsg is one chunk ready for drawing together with its headlines.
type RenderMsg struct {
	Chunk *world.Chunk
	News  world.News
}

func NewRenderMsg(c *world.Chunk) RenderMsg {
	return RenderMsg{Chunk: c, News: c.InquireNews()}
}

type Camera struct {
	Coords world.Coords
	Zoom   float64
}

// Follow moves the camera a fraction rate of the way to target, snapping
// onto it once the remaining distance is below threshold.
func (c *Camera) Follow(target world.Coords, rate, threshold float64) {
	if utils.AlmostEqual(c.Coords.Dist(target), 0, threshold) {
		c.Coords = target
		return
	}
	lerp := func(a, b world.Floored) world.Floored {
		return a + world.Floored(float64(b-a)*rate)
	}
	c.Coords = world.Coords{
		X: lerp(c.Coords.X, target.X),
		Y: lerp(c.Coords.Y, target.Y),
		Z: target.Z,
	}
}

// MainMsg is the per-frame state a front end draws from.
type MainMsg struct {
	Camera Camera
	Player *world.Entity
	OK     bool
}

// Session drives a single avatar: it submits the avatar with an action, keeps
// the camera on it and collects the chunks in view.
type Session struct {
	conn      *Conn
	rules     world.Rules
	player    world.Entity
	camera    Camera
	threshold float64
}

func NewSession(conn *Conn, rules world.Rules, player world.Entity, threshold float64) *Session {
	return &Session{
		conn:      conn,
		rules:     rules,
		player:    player,
		camera:    Camera{Coords: player.Coords, Zoom: 1},
		threshold: threshold,
	}
}

// Move sets the avatar position the next step submits.
func (s *Session) Move(to world.Coords) {
	s.player.Coords = to
	s.player.CCoords = s.rules.ChunkOf(to)
}

// Step submits the avatar with action, then fetches the avatar's chunk and
// radius chunks around it. OK reports whether the server placed the avatar
// where the client thinks it is.
func (s *Session) Step(ctx context.Context, action world.ActionContent, radius int32) ([]RenderMsg, MainMsg, error) {
	cd := world.NewClientData(s.player, action, world.DataChunk)
	home, err := s.conn.Exchange(ctx, cd)
	if err != nil {
		return nil, MainMsg{}, err
	}
	msgs := []RenderMsg{NewRenderMsg(home)}

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			cc := world.CCoords{X: s.player.CCoords.X + dx, Y: s.player.CCoords.Y + dy}
			if (dx == 0 && dy == 0) || !s.rules.InBounds(cc) {
				continue
			}
			view := world.NewClientData(s.player, world.ActionContent{Type: world.Refresh}, world.DataRefresh)
			view.CCoords = cc
			c, err := s.conn.Exchange(ctx, view)
			if err != nil {
				return nil, MainMsg{}, err
			}
			msgs = append(msgs, NewRenderMsg(c))
		}
	}

	s.camera.Follow(s.player.Coords, 0.5, s.threshold)
	state := MainMsg{Camera: s.camera}
	if e := home.Find(s.player.Index); e != nil {
		p := *e
		state.Player = &p
		state.OK = p.Coords.Equal(s.player.Coords)
	}
	return msgs, state, nil
}

// Heading turns a screen-space direction into the angle the server expects,
// where 0 points towards negative y.
func Heading(dx, dy float64) float32 {
	return float32(math.Atan2(dx, -dy))
}
