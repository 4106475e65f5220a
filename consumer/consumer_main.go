package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-file-hub/config"
	"github.com/tnqbao/gau-file-hub/consumer/worker"
	infraPkg "github.com/tnqbao/gau-file-hub/infra"
)

func main() {
	err := godotenv.Load("../staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	indexConsumer := worker.NewIndexConsumer(infra.RabbitMQ.Channel, infra, cfg.EnvConfig)
	if err := indexConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start Index consumer: %v", err)
		log.Fatalf("Failed to start Index consumer: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel()
	infra.RabbitMQ.Close()

	infra.Logger.InfoWithContextf(ctx, "Consumer exited properly")
	_ = infra.Logger.Shutdown(context.Background())
}
