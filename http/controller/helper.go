package controller

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tnqbao/gau-asset-service/policy"
	"github.com/tnqbao/gau-asset-service/service"
	"github.com/tnqbao/gau-asset-service/utils"
)

// respondError maps service error kinds onto HTTP statuses. Storage causes
// are logged but never written to the response.
func (ctrl *Controller) respondError(c *gin.Context, component string, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, service.ErrNotFound):
		utils.JSON404(c, "Resource not found")
	case errors.Is(err, service.ErrForbidden):
		utils.JSON403(c, "Forbidden: you don't have permission to perform this action")
	case errors.Is(err, service.ErrInvalidInput):
		utils.JSON400(c, strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": "))
	case errors.Is(err, service.ErrStorageFailure):
		ctrl.Infra.Logger.ErrorWithContextf(ctx, errors.Unwrap(err), "[%s] %v: %v", component, err, errors.Unwrap(err))
		utils.JSON502(c, err.Error())
	default:
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[%s] Unexpected error: %v", component, err)
		utils.JSON500(c, "Internal server error")
	}
}

func (ctrl *Controller) identity(c *gin.Context, component string) (policy.Identity, bool) {
	identity, err := utils.GetIdentityFromContext(c)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[%s] identity not found in context", component)
		utils.JSON401(c, "Unauthorized: identity not found")
		return policy.Identity{}, false
	}
	return identity, true
}

func (ctrl *Controller) pathUUID(c *gin.Context, component, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(c.Request.Context(), "[%s] Invalid %s format: %v", component, name, err)
		utils.JSON400(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}
