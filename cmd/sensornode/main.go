// cmd/sensornode/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tamzrod/sensor-node/internal/config"
	"github.com/tamzrod/sensor-node/internal/logutil"
	"github.com/tamzrod/sensor-node/internal/node"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: sensornode <config.yaml>")
	}

	cfgPath := os.Args[1]

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

	// --------------------
	// Build node
	// --------------------

	lf := logutil.NewFactory(cfg.Node.Debug)

	n, closeNode, err := node.Build(cfg, lf)
	if err != nil {
		log.Fatalf("node build failed: %v", err)
	}
	defer closeNode()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Boot + control loop (single thread of control)
	// --------------------

	if err := n.Boot(ctx); err != nil {
		log.Printf("boot failed: %v", err)
		return
	}

	if err := n.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("control loop stopped: %v", err)
	}
}
