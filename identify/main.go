//go:build linux || darwin
// +build linux darwin

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"pd-ident-core/utils"
)

func main() {
	var (
		cfgPath  = flag.String("config", "identify.yml", "Run configuration YAML file")
		iface    = flag.String("iface", "", "SocketCAN interface name (overrides config)")
		logLevel = flag.String("log", "", "trace|debug|info|warn|error|critical (overrides config)")
	)
	flag.Parse()

	cfg, err := LoadConfig(*cfgPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *iface != "" {
		cfg.Interface = *iface
	}
	if *logLevel != "" {
		cfg.Log = *logLevel
	}

	log := utils.NewFileLogger("identify.log", utils.ParseLevel(cfg.Log), true)
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, cfg, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	defer runner.Close()

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
