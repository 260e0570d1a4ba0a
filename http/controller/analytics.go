package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-asset-service/utils"
)

func (ctrl *Controller) GetMyAnalytics(c *gin.Context) {
	identity, ok := ctrl.identity(c, "Analytics")
	if !ok {
		return
	}

	summary, err := ctrl.Service.Analytics.ForUser(c.Request.Context(), identity)
	if err != nil {
		ctrl.respondError(c, "Analytics", err)
		return
	}
	utils.JSON200(c, gin.H{"analytics": summary})
}

func (ctrl *Controller) GetGlobalAnalytics(c *gin.Context) {
	identity, ok := ctrl.identity(c, "Analytics")
	if !ok {
		return
	}

	summary, err := ctrl.Service.Analytics.Global(c.Request.Context(), identity)
	if err != nil {
		ctrl.respondError(c, "Analytics", err)
		return
	}
	utils.JSON200(c, gin.H{"analytics": summary})
}
