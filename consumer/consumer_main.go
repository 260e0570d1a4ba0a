package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tnqbao/gau-asset-service/config"
	"github.com/tnqbao/gau-asset-service/consumer/worker"
	infraPkg "github.com/tnqbao/gau-asset-service/infra"
	"github.com/tnqbao/gau-asset-service/repository"
	"github.com/tnqbao/gau-asset-service/service"
)

func main() {
	err := godotenv.Load("../.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	if infra.RabbitMQ == nil {
		log.Fatal("RABBITMQ_HOST is not configured; the consumer has nothing to do")
	}
	repo := repository.InitRepository(infra)
	services := service.InitServices(cfg, infra, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	purgeConsumer := worker.NewUserPurgeConsumer(infra.RabbitMQ.Channel, services.Users, infra.Logger)
	if err := purgeConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start user purge consumer: %v", err)
		log.Fatalf("Failed to start user purge consumer: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel()

	services.Background.Wait()
	infra.Logger.InfoWithContextf(ctx, "Consumer exited properly")
	infra.Close(context.Background())
}
