// cmd/paxcounter/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tamzrod/paxcounter/internal/config"
	"github.com/tamzrod/paxcounter/internal/device"
	"github.com/tamzrod/paxcounter/internal/restart"
	"github.com/tamzrod/paxcounter/internal/trigger"
)

func main() {
	verbose := flag.Bool("v", false, "log every channel hop")
	flag.Usage = func() {
		log.Printf("usage: paxcounter [-v] <config.yaml>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	cfgPath := flag.Arg(0)

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)
	if *verbose {
		cfg.Device.Verbose = true
	}

	// --------------------
	// Wire the device
	// --------------------

	var closeAll func() error
	restarter := restart.Exec{Before: func() {
		if closeAll != nil {
			if err := closeAll(); err != nil {
				log.Printf("close before restart failed: %v", err)
			}
		}
	}}

	trig := trigger.New()

	runner, closeFn, err := device.Assemble(cfg, restarter, trig, os.Stdout)
	if err != nil {
		log.Fatalf("device assemble failed (config=%s): %v", cfgPath, err)
	}
	closeAll = closeFn

	// SIGUSR1 stands in for the hardware button.
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	go func() {
		for range usr1 {
			trig.Fire()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("paxcounter starting (device=%s radio=%s capture=%s mode=%s)",
		cfg.Device.Name, cfg.Radio.Backend, cfg.Capture.Backend, cfg.Scan.CounterMode)

	runErr := runner.Run(ctx)

	if err := closeAll(); err != nil {
		log.Printf("close failed: %v", err)
	}
	if runErr != nil {
		log.Fatalf("device stopped: %v", runErr)
	}
	log.Printf("paxcounter stopped")
}
