package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sonirico/cablekit"
	"github.com/sonirico/cablekit/cable"
)

func main() {
	var (
		url        string
		channel    string
		configPath string
		activePing time.Duration
	)
	flag.StringVar(&url, "url", "", "ActionCable server URL, e.g. wss://example.com/cable")
	flag.StringVar(&channel, "channel", "", "channel name to subscribe to")
	flag.StringVar(&configPath, "c", "", "optional YAML config file providing action_cable.url")
	flag.DurationVar(&activePing, "ping-interval", 0, "if set, also send WebSocket-level pings at this interval")
	flag.Parse()

	if channel == "" {
		fmt.Fprintln(os.Stderr, "missing -channel")
		os.Exit(1)
	}

	zlog, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer zlog.Sync()
	logger := cablekit.NewZapLogger(zlog)

	var source cable.URLSource
	var config cablekit.ConfigLookup
	if url != "" {
		source = cable.StaticURL(url)
	} else if configPath != "" {
		cfg, err := cablekit.LoadYAMLConfig(configPath)
		if err != nil {
			log.Fatalf("cannot load config: %v", err)
		}
		config = cfg
		source = cable.StaticURL("")
	} else {
		source = cable.StaticURL("")
	}

	consumer := cable.NewConsumerFromConfig(source, config, logger, cable.ConsumerOptions{
		ActiveKeepAliveInterval: activePing,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Println("shutting down...")
		cancel()
	}()

	if !consumer.Connect(ctx) {
		log.Fatalf("cannot start connection")
	}

	sub, err := consumer.Subscriptions().Create(channel, cable.Callbacks{
		Initialized: func() {
			log.Printf("subscription to %q initialized", channel)
		},
		Connected: func() {
			log.Printf("subscription to %q confirmed", channel)
		},
		Disconnected: func(info cable.DisconnectedInfo) {
			log.Printf("disconnected, will reconnect=%t", info.WillAttemptReconnect)
		},
		Rejected: func() {
			log.Printf("subscription to %q rejected", channel)
		},
		Received: func(message json.RawMessage) {
			fmt.Println(string(message))
		},
	})
	if err != nil {
		log.Fatalf("cannot create subscription: %v", err)
	}

	<-ctx.Done()
	sub.Unsubscribe()
	consumer.Disconnect()
}
