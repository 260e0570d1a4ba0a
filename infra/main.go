package infra

import (
	"context"
	"fmt"
	"log"

	"github.com/tnqbao/gau-asset-service/config"
	"github.com/tnqbao/gau-asset-service/infra/produce"
	"github.com/tnqbao/gau-asset-service/infra/storage"
)

type Infra struct {
	Postgres             *PostgresClient
	Mongo                *MongoClient
	Redis                *RedisClient
	Logger               *LoggerClient
	Telemetry            *Telemetry
	RabbitMQ             *RabbitMQClient
	AuthorizationService *AuthorizationService
	Produce              *produce.Produce
	Storage              storage.ObjectStore
	// LocalStore is set only when the local backend is active; it serves /files and /public.
	LocalStore *storage.LocalStore
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}
	ctx := context.Background()

	telemetry, err := InitTelemetry(ctx, cfg.EnvConfig)
	if err != nil {
		log.Printf("Warning: telemetry disabled: %v", err)
		telemetry = &Telemetry{}
	}

	logger := InitLoggerClient(cfg.EnvConfig)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	postgres := InitPostgresClient(cfg.EnvConfig)
	if postgres == nil {
		panic("Failed to initialize Postgres service")
	}

	// optional collaborators
	mongo := InitMongoClient(cfg.EnvConfig)
	redis := InitRedisClient(cfg.EnvConfig)
	rabbitMQ := InitRabbitMQClient(cfg.EnvConfig)
	authorizationService := InitAuthorizationService(cfg.EnvConfig)

	var produceService *produce.Produce
	if rabbitMQ != nil {
		produceService = produce.InitProduce(rabbitMQ.Channel)
	}

	store, err := storage.NewObjectStore(ctx, cfg.EnvConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize object store: %v", err))
	}
	localStore, _ := store.(*storage.LocalStore)
	if redis != nil {
		store = storage.NewCachedStore(store, redis)
	}
	logger.InfoWithContextf(ctx, "[Infra] Object store backend: %s", store.Name())

	infraInstance = &Infra{
		Postgres:             postgres,
		Mongo:                mongo,
		Redis:                redis,
		Logger:               logger,
		Telemetry:            telemetry,
		RabbitMQ:             rabbitMQ,
		AuthorizationService: authorizationService,
		Produce:              produceService,
		Storage:              store,
		LocalStore:           localStore,
	}

	return infraInstance
}

func (i *Infra) Close(ctx context.Context) {
	if i.RabbitMQ != nil {
		_ = i.RabbitMQ.Close()
	}
	if i.Mongo != nil {
		_ = i.Mongo.Close(ctx)
	}
	if i.Redis != nil {
		_ = i.Redis.Client.Close()
	}
	_ = i.Telemetry.Shutdown(ctx)
	_ = i.Logger.Shutdown(ctx)
}
