// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Command synapsenet runs a single SynapseNet node: it loads a YAML
// node configuration, opens its store and ANN index, joins the gossip
// overlay (announcing itself and discovering peers over mDNS), and
// serves Prometheus metrics while the gossip event loop runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	synapsenet "github.com/synapsenet/core"
	"github.com/synapsenet/core/config"
	"github.com/synapsenet/core/gossip"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "synapsenet:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a node YAML config (defaults built in if empty)")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve /metrics on")
	flag.Parse()

	cfg := config.DefaultNode()
	if *configPath != "" {
		loaded, err := config.LoadNode(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if cfg.Node.ID == "" {
		cfg.Node.ID = "synapsenet-node"
	}

	transport := newLoopbackTransport()
	node, err := synapsenet.New(cfg, transport)
	if err != nil {
		return fmt.Errorf("construct node: %w", err)
	}
	defer node.Close()
	transport.register(cfg.Node.ID, func(topic string, payload []byte) {
		_ = node.Gossip.HandleMessage(cfg.Node.ID, topic, payload)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mdnsServer, err := gossip.Announce(cfg.Node.ID, cfg.P2P.Port, "")
	if err != nil {
		node.Log.Warn("mdns announce failed", "err", err)
	} else {
		defer mdnsServer.Shutdown()
	}
	go func() {
		_ = gossip.Browse(ctx, "", func(peer gossip.DiscoveredPeer) {
			node.Log.Info("discovered peer", "instance", peer.Instance, "addresses", peer.Addresses)
		})
	}()

	go node.Gossip.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(node.Metrics.Registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			node.Log.Error("metrics server failed", "err", err)
		}
	}()

	node.Log.Info("node started", "id", cfg.Node.ID, "port", cfg.P2P.Port, "metrics_addr", *metricsAddr)
	<-ctx.Done()
	node.Log.Info("shutting down")
	return server.Close()
}
