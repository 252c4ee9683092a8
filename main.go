package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/eikrt/dimensioner/client"
	"github.com/eikrt/dimensioner/server"
	"github.com/eikrt/dimensioner/utils"
	"github.com/eikrt/dimensioner/world"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetReportCaller(true)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: dimensioner server|probe [flags]")
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "server":
		err = server.Run(os.Args[1:])
	case "probe":
		err = probe(log, os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		log.Fatal(err)
	}
}

// probe sends one request for an avatar at (x, y) and prints what comes back.
func probe(log *logrus.Logger, args []string) error {
	flags := flag.NewFlagSet("probe", flag.ContinueOnError)
	configPath := flags.String("config", "config.toml", "path to the TOML config")
	addr := flags.String("addr", "", "server address, defaults to the configured one")
	x := flags.Float64("x", 0, "avatar x in world units")
	y := flags.Float64("y", 0, "avatar y in world units")
	id := flags.Uint64("id", 1, "avatar entity id")
	timeout := flags.Duration("timeout", 2*time.Second, "how long to wait for a reply")
	dump := flags.Bool("dump", false, "dump the whole chunk")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := utils.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr == "" {
		*addr = cfg.Server.Addr
	}
	rules := cfg.Rules()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	conn, err := client.Dial(ctx, *addr, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	player := world.NewPlayer(world.EntityID(*id), world.NewCoords(float32(*x), float32(*y), 0), &rules)
	chunk, err := conn.Exchange(ctx, world.NewClientData(player, world.ActionContent{Type: world.Refresh}, world.DataRefresh))
	if err != nil {
		return err
	}

	msg := client.NewRenderMsg(chunk)
	log.WithFields(logrus.Fields{
		"chunk":    fmt.Sprintf("%d,%d", chunk.Coords.X, chunk.Coords.Y),
		"tiles":    len(chunk.Tiles),
		"entities": len(chunk.Entities),
		"hash":     fmt.Sprintf("%016x", chunk.Hash),
		"timezone": chunk.Timezone,
	}).Info("chunk received")
	for _, headline := range msg.News.Newscast {
		log.Info(headline)
	}
	if *dump {
		spew.Fdump(os.Stdout, chunk)
	}
	return nil
}
