package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-file-hub/config"
	"github.com/tnqbao/gau-file-hub/http/controller"
	routes "github.com/tnqbao/gau-file-hub/http/route"
	infraPkg "github.com/tnqbao/gau-file-hub/infra"
	"github.com/tnqbao/gau-file-hub/repository"
)

func main() {
	err := godotenv.Load("staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)
	defer infra.Logger.Shutdown(context.Background())

	shutdownTelemetry, err := infraPkg.InitTelemetry(context.Background(), cfg.EnvConfig)
	if err != nil {
		log.Printf("Telemetry disabled: %v", err)
	}
	if shutdownTelemetry != nil {
		defer shutdownTelemetry(context.Background())
	}

	ctrl := controller.NewController(cfg, infra, repo)

	router := routes.SetupRouter(ctrl)

	log.Println("HTTP Server started on :8080")
	if err := router.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
