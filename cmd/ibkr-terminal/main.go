package main

import (
	"fmt"
	"os"

	"ibkr-terminal/internal/broker"
	"ibkr-terminal/internal/cli"
	"ibkr-terminal/internal/config"
	"ibkr-terminal/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	// The live gateway connection plugs in behind these interfaces; the
	// paper broker keeps the terminal usable without one.
	app := cli.NewApp(cfg, logger, broker.NewPaperBroker(), broker.NewPaperFeed())
	defer app.Close()

	if err := cli.NewRootCmd(app).Execute(); err != nil {
		os.Exit(1)
	}
}
