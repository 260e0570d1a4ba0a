package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-asset-service/utils"
)

func (ctrl *Controller) Health(c *gin.Context) {
	backend := ""
	if ctrl.Infra.Storage != nil {
		backend = ctrl.Infra.Storage.Name()
	}
	utils.JSON200(c, gin.H{"status": "ok", "storage": backend})
}
