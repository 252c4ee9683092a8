package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/eikrt/dimensioner/utils"
	"github.com/eikrt/dimensioner/worldgen"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ListenAndServe runs the tick loop, the TCP listener and, when configured,
// the websocket listener until ctx is done or one of them fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return err
	}
	s.log.Infof("Listening on tcp://%v", ln.Addr())

	var wl net.Listener
	if addr := s.cfg.Server.WSAddr; addr != "" {
		if wl, err = net.Listen("tcp", addr); err != nil {
			ln.Close()
			return err
		}
		s.log.Infof("Listening on http://%v", wl.Addr())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Simulate(ctx)
		return nil
	})
	g.Go(func() error {
		return s.Serve(ctx, ln)
	})
	if wl != nil {
		hs := &http.Server{
			Handler:           s,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		g.Go(func() error {
			if err := hs.Serve(wl); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdown)
		})
	}
	return g.Wait()
}

// Run is the server entry point. args are the command line arguments with
// the program or subcommand name first.
func Run(args []string) error {
	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := flags.String("config", "config.toml", "path to the TOML config")
	addr := flags.String("addr", "", "TCP listen address, overrides the config")
	if len(args) > 0 {
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
	}

	cfg, err := utils.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	deadlock.Opts.Disable = !cfg.Server.DetectDeadlocks
	deadlock.Opts.LogBuf = log.WriterLevel(logrus.ErrorLevel)

	rules := cfg.Rules()
	var heightmap image.Image
	if cfg.World.Heightmap != "" {
		heightmap, err = worldgen.LoadHeightmap(cfg.World.Heightmap)
		if err != nil {
			return err
		}
	}
	start := time.Now()
	w := worldgen.Generate(cfg.World.Seed, rules, heightmap)
	log.WithFields(logrus.Fields{
		"seed":   cfg.World.Seed,
		"chunks": len(w.Chunks),
		"took":   time.Since(start),
	}).Info("world generated")

	server, err := NewServer(cfg, w, log)
	if err != nil {
		return fmt.Errorf("new server: %w", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := server.ListenAndServe(ctx); err != nil {
		return err
	}
	log.Info("terminating")
	return nil
}
