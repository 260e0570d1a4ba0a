package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-asset-service/http/controller/dto"
	"github.com/tnqbao/gau-asset-service/utils"
)

func (ctrl *Controller) GetMe(c *gin.Context) {
	identity, ok := ctrl.identity(c, "User")
	if !ok {
		return
	}

	user, err := ctrl.Service.Users.Get(c.Request.Context(), identity.UserID)
	if err != nil {
		ctrl.respondError(c, "User", err)
		return
	}
	utils.JSON200(c, gin.H{"user": user})
}

func (ctrl *Controller) ListUsers(c *gin.Context) {
	identity, ok := ctrl.identity(c, "User")
	if !ok {
		return
	}

	users, err := ctrl.Service.Users.List(c.Request.Context(), identity)
	if err != nil {
		ctrl.respondError(c, "User", err)
		return
	}
	utils.JSON200(c, gin.H{"users": users, "count": len(users)})
}

func (ctrl *Controller) ChangeUserRole(c *gin.Context) {
	identity, ok := ctrl.identity(c, "User")
	if !ok {
		return
	}
	userID, ok := ctrl.pathUUID(c, "User", "id")
	if !ok {
		return
	}

	var req dto.ChangeRoleRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "role is required")
		return
	}

	user, err := ctrl.Service.Users.ChangeRole(c.Request.Context(), identity, userID, req.Role)
	if err != nil {
		ctrl.respondError(c, "User", err)
		return
	}
	utils.JSON200(c, gin.H{"user": user})
}

func (ctrl *Controller) DeleteUser(c *gin.Context) {
	identity, ok := ctrl.identity(c, "User")
	if !ok {
		return
	}
	userID, ok := ctrl.pathUUID(c, "User", "id")
	if !ok {
		return
	}

	queued, err := ctrl.Service.Users.RequestDeletion(c.Request.Context(), identity, userID)
	if err != nil {
		ctrl.respondError(c, "User", err)
		return
	}
	if queued {
		c.JSON(http.StatusAccepted, gin.H{"message": "User deletion queued", "id": userID})
		return
	}
	utils.JSON200(c, gin.H{"message": "User deleted", "id": userID})
}
