package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ciasx/internal"
	"ciasx/internal/api"
	"ciasx/internal/config"
	"ciasx/internal/container"
	"ciasx/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown()

	if appConfig.Server.GinMode != "" {
		gin.SetMode(appConfig.Server.GinMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// runs started over HTTP stop with the server
	api.RegisterRoutes(router, api.NewRunHandler(ctx, appContainer.Service, logger), appContainer.SSEHub)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(appContainer.Registry, promhttp.HandlerOpts{})))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	reports, err := ui.NewApp(appContainer.Service, ui.Config{Prefix: "/ui"}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize report UI: %v", err)
	}
	router.Any("/ui/*path", gin.WrapH(http.StripPrefix("/ui", reports.Handler())))

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			logger.Info("profiling server starting on :%s", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				logger.Error("pprof server failed: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting CIAS-X server on port %s", appConfig.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed: %v", err)
	}
}
