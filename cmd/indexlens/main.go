package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&showCmd{}, "")
	commander.Register(&printCmd{}, "")
	commander.Register(&watchCmd{}, "")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flag.NArg() == 0 {
		// Interactive table is the default experience.
		os.Exit(int((&showCmd{}).Execute(ctx, flag.CommandLine)))
	}
	os.Exit(int(commander.Execute(ctx)))
}
