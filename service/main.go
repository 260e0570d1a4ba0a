package service

import (
	"context"

	"github.com/tnqbao/gau-asset-service/config"
	"github.com/tnqbao/gau-asset-service/infra"
	"github.com/tnqbao/gau-asset-service/repository"
)

type Services struct {
	Assets     *AssetService
	Users      *UserService
	Analytics  *AnalyticsService
	Webhooks   *WebhookDispatcher
	Background *BackgroundRunner
}

func InitServices(cfg *config.Config, infra *infra.Infra, repo *repository.Repository) *Services {
	env := cfg.EnvConfig
	logger := infra.Logger

	background := NewBackgroundRunner(logger)
	activity := NewActivityRecorder(repo.ActivityRepo, logger)
	webhooks := NewWebhookDispatcher(WebhookConfig{
		Secret:       env.Webhook.Secret,
		Destinations: env.Webhook.Destinations,
	}, logger)

	sinks := []Notifier{webhooks}
	var purgeJobs PurgePublisher
	if infra.Produce != nil {
		sinks = append(sinks, infra.Produce.AssetEventService)
		purgeJobs = infra.Produce.UserJobService
	}

	assets := NewAssetService(AssetServiceDeps{
		Assets:       repo.AssetRepo,
		Principals:   repo.UserRepo,
		Store:        infra.Storage,
		Activity:     activity,
		Notifier:     NewMultiNotifier(logger, sinks...),
		Background:   background,
		Logger:       logger,
		SignedURLTTL: env.SignedURLTTL,
	})

	users := NewUserService(UserServiceDeps{
		Users:      repo.UserRepo,
		Assets:     assets,
		Activities: repo.ActivityRepo,
		Activity:   activity,
		PurgeJobs:  purgeJobs,
		Background: background,
		Logger:     logger,
	})

	logger.InfoWithContextf(context.Background(), "[Service] Webhook destinations: %d", len(webhooks.Destinations()))

	return &Services{
		Assets:     assets,
		Users:      users,
		Analytics:  NewAnalyticsService(repo.AssetRepo, repo.ActivityRepo, logger),
		Webhooks:   webhooks,
		Background: background,
	}
}
