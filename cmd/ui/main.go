package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"ciasx/internal"
	"ciasx/internal/config"
	"ciasx/internal/container"
	"ciasx/ui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewDefaultLogger()

	c, err := container.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer c.Shutdown()

	app, err := ui.NewApp(c.Service, ui.Config{}, logger)
	if err != nil {
		log.Fatal("Failed to create UI app:", err)
	}

	logger.Info("starting CIAS-X report viewer on http://localhost:%s", cfg.Server.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, app.Handler()))
}
