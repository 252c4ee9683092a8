package server

import (
	"context"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/eikrt/dimensioner/utils"
	"github.com/eikrt/dimensioner/world"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

// subscriber is notified with the tick number after every published tick.
type subscriber struct {
	ticks chan uint64
}

type Server struct {
	cfg *utils.Config
	log *logrus.Logger

	// worldMu guards world. Ticks, intent submission and frame encoding all
	// take it; nothing holds it across network I/O.
	worldMu deadlock.Mutex
	world   *world.World
	// intents is only sent to while worldMu is held, so the tick sees a
	// stable length when it drains.
	intents chan world.ClientData

	subscribers map[*subscriber]struct{}
	mu          sync.RWMutex

	frames   *frameCache
	serveMux http.ServeMux
	period   time.Duration
}

func NewServer(cfg *utils.Config, w *world.World, log *logrus.Logger) (*Server, error) {
	frames, err := newFrameCache(cfg.Server.CacheMaxCost)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:         cfg,
		log:         log,
		world:       w,
		intents:     make(chan world.ClientData, cfg.Server.IntentQueue),
		subscribers: make(map[*subscriber]struct{}),
		frames:      frames,
		period:      time.Second / time.Duration(cfg.Server.TickRate),
	}

	s.serveMux.HandleFunc("/", s.onConnection)
	s.serveMux.HandleFunc("/debug/pprof/", pprof.Index)
	s.serveMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	s.serveMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	s.serveMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	s.serveMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return s, nil
}

// Simulate runs the tick loop until ctx is done.
func (s *Server) Simulate(ctx context.Context) {
	tick := time.NewTicker(s.period)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			s.onTick()
		case <-ctx.Done():
			return
		}
	}
}

// onTick applies the queued intents, advances the world one step and
// publishes the new tick number.
func (s *Server) onTick() {
	start := time.Now()

	s.worldMu.Lock()
	applied := 0
	for len(s.intents) > 0 {
		cd := <-s.intents
		if s.world.ApplyIntent(&cd) {
			applied++
		}
	}
	s.world.Resolve(1)
	s.world.ResolveBetween(1)
	now := s.world.Time
	s.worldMu.Unlock()

	s.publish(now)

	if took := time.Since(start); took > s.period {
		s.log.WithFields(logrus.Fields{
			"tick":    now,
			"took":    took,
			"intents": applied,
		}).Debug("tick overran")
	}
}

func (s *Server) addSubscriber(sub *subscriber) {
	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeSubscriber(sub *subscriber) {
	s.mu.Lock()
	delete(s.subscribers, sub)
	s.mu.Unlock()
}

// publish never blocks: a subscriber that has not picked up the previous
// tick gets it replaced by the newer one.
func (s *Server) publish(tick uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subscribers {
		select {
		case sub.ticks <- tick:
			continue
		default:
		}
		select {
		case <-sub.ticks:
		default:
		}
		select {
		case sub.ticks <- tick:
		default:
		}
	}
}

// await blocks until a tick later than after has been published.
func (sub *subscriber) await(ctx context.Context, after uint64) (uint64, error) {
	for {
		select {
		case tick := <-sub.ticks:
			if tick > after {
				return tick, nil
			}
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// submit marks the requested chunk observed and queues cd for the next tick.
// It returns the tick the world was at, so the response can wait for the
// tick that applies cd.
func (s *Server) submit(cd world.ClientData) (uint64, bool) {
	s.worldMu.Lock()
	defer s.worldMu.Unlock()
	s.world.Observe(cd.CCoords)
	select {
	case s.intents <- cd:
		return s.world.Time, true
	default:
		return s.world.Time, false
	}
}

// frame encodes the chunk cd asks for, or the origin chunk when cd points
// outside the world.
func (s *Server) frame(cd *world.ClientData) ([]byte, error) {
	s.worldMu.Lock()
	defer s.worldMu.Unlock()
	c := s.world.FetchChunk(cd.CCoords)
	if cd.DataType == world.DataRefresh {
		c.Rehash()
		return c.MarshalBinary()
	}
	return s.frames.encode(c, s.world.Time)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.serveMux.ServeHTTP(w, r)
}

// Close releases the frame cache. Call it after every connection is done.
func (s *Server) Close() {
	s.frames.close()
}
