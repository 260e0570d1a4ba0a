package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-asset-service/http/controller"
)

type Middlewares struct {
	CORSMiddleware             gin.HandlerFunc
	AuthMiddleware             gin.HandlerFunc
	WebhookSignatureMiddleware gin.HandlerFunc
}

func NewMiddlewares(ctrl *controller.Controller) (*Middlewares, error) {
	cors := CORSMiddleware(ctrl.Config.EnvConfig)
	auth := AuthMiddleware(ctrl.Infra.AuthorizationService, ctrl.Service.Users, ctrl.Config.EnvConfig)
	webhook := WebhookSignatureMiddleware(ctrl.Config.EnvConfig.Webhook.Secret)

	return &Middlewares{
		CORSMiddleware:             cors,
		AuthMiddleware:             auth,
		WebhookSignatureMiddleware: webhook,
	}, nil
}
