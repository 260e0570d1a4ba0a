package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-asset-service/http/controller"
	middlewares "github.com/tnqbao/gau-asset-service/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}
	r.Use(middles.CORSMiddleware)

	r.GET("/health", ctrl.Health)

	// local backend only; both answer 404 otherwise
	r.GET("/files/*key", ctrl.ServeSignedFile)
	r.GET("/public/*key", ctrl.ServePublicFile)

	apiRoutes := r.Group("/api/v1")
	{
		apiRoutes.GET("/public/shared/:id", ctrl.GetSharedAsset)
		apiRoutes.POST("/webhooks/verify", middles.WebhookSignatureMiddleware, ctrl.VerifyWebhook)

		authed := apiRoutes.Group("")
		authed.Use(middles.AuthMiddleware)

		assetRoutes := authed.Group("/assets")
		{
			assetRoutes.POST("", ctrl.UploadAsset)
			assetRoutes.GET("", ctrl.ListAssets)
			assetRoutes.GET("/shared", ctrl.ListSharedAssets)
			assetRoutes.GET("/:id", ctrl.GetAsset)
			assetRoutes.GET("/:id/download", ctrl.GetAssetDownloadURL)
			assetRoutes.GET("/:id/view", ctrl.GetAssetViewURL)
			assetRoutes.PATCH("/:id", ctrl.UpdateAsset)
			assetRoutes.DELETE("/:id", ctrl.DeleteAsset)
			assetRoutes.POST("/:id/share", ctrl.ShareAsset)
		}

		userRoutes := authed.Group("/users")
		{
			userRoutes.GET("/me", ctrl.GetMe)
			userRoutes.GET("", ctrl.ListUsers)
			userRoutes.PUT("/:id/role", ctrl.ChangeUserRole)
			userRoutes.DELETE("/:id", ctrl.DeleteUser)
		}

		analyticsRoutes := authed.Group("/analytics")
		{
			analyticsRoutes.GET("/me", ctrl.GetMyAnalytics)
			analyticsRoutes.GET("/global", ctrl.GetGlobalAnalytics)
		}
	}
	return r
}
