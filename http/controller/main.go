package controller

import (
	"github.com/tnqbao/gau-asset-service/config"
	"github.com/tnqbao/gau-asset-service/infra"
	"github.com/tnqbao/gau-asset-service/repository"
	"github.com/tnqbao/gau-asset-service/service"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Service    *service.Services
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository, services *service.Services) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}
	if services == nil {
		panic("Failed to initialize Services")
	}
	return &Controller{
		Config:     config,
		Infra:      infra,
		Repository: repo,
		Service:    services,
	}
}
