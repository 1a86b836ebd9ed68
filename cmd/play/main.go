package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	playcmd "github.com/louisbranch/cardguess/internal/cmd/play"
)

// main plays an interactive session on the terminal.
func main() {
	cfg, err := playcmd.ParseConfig(flag.CommandLine, os.Args[1:], os.Environ())
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[PLAY] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := playcmd.Run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("play: %v", err)
	}
}
