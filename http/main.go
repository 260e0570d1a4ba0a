package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tnqbao/gau-asset-service/config"
	"github.com/tnqbao/gau-asset-service/http/controller"
	routes "github.com/tnqbao/gau-asset-service/http/route"
	infraPkg "github.com/tnqbao/gau-asset-service/infra"
	"github.com/tnqbao/gau-asset-service/repository"
	"github.com/tnqbao/gau-asset-service/service"
)

func main() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)
	services := service.InitServices(cfg, infra, repo)

	ctrl := controller.NewController(cfg, infra, repo, services)
	router := routes.SetupRouter(ctrl)

	server := &http.Server{
		Addr:    ":" + cfg.EnvConfig.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP Server started on :%s", cfg.EnvConfig.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	infra.Logger.InfoWithContextf(ctx, "Shutting down server...")
	if err := server.Shutdown(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Server forced to shutdown: %v", err)
	}
	// let in-flight activity and webhook deliveries settle
	services.Background.Wait()
	infra.Close(ctx)
	log.Println("Server exited properly")
}
