package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"market-scanner/internal/cli"
	"market-scanner/internal/config"
	"market-scanner/internal/logging"
)

func main() {
	// The config directory flag has to be known before the command tree is
	// built, since the App wires its dependencies from the loaded config.
	fs := pflag.NewFlagSet("scanner", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	configDir := fs.String("config", "", "config directory")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
