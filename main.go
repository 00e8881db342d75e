package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	camera "github.com/mpoegel/sequoia-uplink/pkg/camera"
)

var debug = flag.Bool("debug", false, "enable debug logging")

func main() {
	flag.Parse()
	args := flag.Args()

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if len(args) < 1 {
		fmt.Println("missing command: [stream, probe]")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		slog.Info("stopping")
		cancel()
	}()

	var err error
	switch args[0] {
	case "stream":
		err = camera.Run(ctx, args[1:])
	case "probe":
		err = camera.Probe(ctx, args[1:])
	default:
		err = fmt.Errorf("unknown command: %s", args[0])
	}
	cancel()

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}
