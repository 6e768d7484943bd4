package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"viaduct/internal/bridge"
	"viaduct/internal/logging"
	"viaduct/source/kafka"

	_ "viaduct/sink/kafka"
	_ "viaduct/sink/stdout"
)

func main() {
	cfgPath := flag.String("config", "bridge.yml", "bridge config file")
	flag.Parse()

	logging.InitFromEnv()
	kafka.Register("sarama", kafka.NewSaramaClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := bridge.Bootstrap(*cfgPath)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	if err := r.Run(ctx); err != nil {
		log.Fatalf("bridge: %v", err)
	}
}
