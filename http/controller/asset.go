package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-asset-service/http/controller/dto"
	"github.com/tnqbao/gau-asset-service/policy"
	"github.com/tnqbao/gau-asset-service/service"
	"github.com/tnqbao/gau-asset-service/utils"
)

func (ctrl *Controller) UploadAsset(c *gin.Context) {
	ctx := c.Request.Context()
	identity, ok := ctrl.identity(c, "Asset")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Asset] Failed to get file from form data: %v", err)
		utils.JSON400(c, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Asset] Failed to open uploaded file: %v", err)
		utils.JSON400(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Asset] Uploading '%s' (%d bytes) for %s", fileHeader.Filename, fileHeader.Size, identity.UserID)

	asset, err := ctrl.Service.Assets.Upload(ctx, identity, service.UploadInput{
		Content:     file,
		Size:        fileHeader.Size,
		Filename:    fileHeader.Filename,
		MimeType:    fileHeader.Header.Get("Content-Type"),
		Tags:        c.PostForm("tags"),
		Description: c.PostForm("description"),
	})
	if err != nil {
		ctrl.respondError(c, "Asset", err)
		return
	}

	utils.JSON201(c, gin.H{"asset": asset})
}

func (ctrl *Controller) ListAssets(c *gin.Context) {
	identity, ok := ctrl.identity(c, "Asset")
	if !ok {
		return
	}

	var query dto.ListAssetsQueryDTO
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.JSON400(c, "Invalid query parameters")
		return
	}

	ctrl.listAssets(c, identity, service.ListQuery{Scope: query.Scope, AssetType: query.Type})
}

func (ctrl *Controller) ListSharedAssets(c *gin.Context) {
	identity, ok := ctrl.identity(c, "Asset")
	if !ok {
		return
	}
	ctrl.listAssets(c, identity, service.ListQuery{Scope: "shared", AssetType: c.Query("type")})
}

func (ctrl *Controller) listAssets(c *gin.Context, identity policy.Identity, query service.ListQuery) {
	assets, err := ctrl.Service.Assets.List(c.Request.Context(), identity, query)
	if err != nil {
		ctrl.respondError(c, "Asset", err)
		return
	}
	utils.JSON200(c, gin.H{"assets": assets, "count": len(assets)})
}

func (ctrl *Controller) GetAsset(c *gin.Context) {
	identity, ok := ctrl.identity(c, "Asset")
	if !ok {
		return
	}
	id, ok := ctrl.pathUUID(c, "Asset", "id")
	if !ok {
		return
	}

	asset, err := ctrl.Service.Assets.Get(c.Request.Context(), identity, id)
	if err != nil {
		ctrl.respondError(c, "Asset", err)
		return
	}
	utils.JSON200(c, gin.H{"asset": asset})
}

func (ctrl *Controller) GetAssetDownloadURL(c *gin.Context) {
	ctrl.issueAssetURL(c, true)
}

func (ctrl *Controller) GetAssetViewURL(c *gin.Context) {
	ctrl.issueAssetURL(c, false)
}

func (ctrl *Controller) issueAssetURL(c *gin.Context, download bool) {
	identity, ok := ctrl.identity(c, "Asset")
	if !ok {
		return
	}
	id, ok := ctrl.pathUUID(c, "Asset", "id")
	if !ok {
		return
	}

	var (
		access *service.SignedAccess
		err    error
	)
	if download {
		access, err = ctrl.Service.Assets.IssueDownloadURL(c.Request.Context(), identity, id)
	} else {
		access, err = ctrl.Service.Assets.IssueViewURL(c.Request.Context(), identity, id)
	}
	if err != nil {
		ctrl.respondError(c, "Asset", err)
		return
	}
	utils.JSON200(c, gin.H{"url": access.URL, "expires_at": access.ExpiresAt, "asset": access.Asset})
}

func (ctrl *Controller) UpdateAsset(c *gin.Context) {
	identity, ok := ctrl.identity(c, "Asset")
	if !ok {
		return
	}
	id, ok := ctrl.pathUUID(c, "Asset", "id")
	if !ok {
		return
	}

	var req dto.UpdateAssetRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(c.Request.Context(), "[Asset] Invalid update body: %v", err)
		utils.JSON400(c, "Invalid request body")
		return
	}

	asset, err := ctrl.Service.Assets.UpdateMetadata(c.Request.Context(), identity, id, service.MetadataPatch{
		Tags:        req.Tags,
		Description: req.Description,
	})
	if err != nil {
		ctrl.respondError(c, "Asset", err)
		return
	}
	utils.JSON200(c, gin.H{"asset": asset})
}

func (ctrl *Controller) DeleteAsset(c *gin.Context) {
	identity, ok := ctrl.identity(c, "Asset")
	if !ok {
		return
	}
	id, ok := ctrl.pathUUID(c, "Asset", "id")
	if !ok {
		return
	}

	if err := ctrl.Service.Assets.Delete(c.Request.Context(), identity, id); err != nil {
		ctrl.respondError(c, "Asset", err)
		return
	}
	utils.JSON200(c, gin.H{"message": "Asset deleted", "id": id})
}

func (ctrl *Controller) ShareAsset(c *gin.Context) {
	identity, ok := ctrl.identity(c, "Asset")
	if !ok {
		return
	}
	id, ok := ctrl.pathUUID(c, "Asset", "id")
	if !ok {
		return
	}

	asset, err := ctrl.Service.Assets.Share(c.Request.Context(), identity, id)
	if err != nil {
		ctrl.respondError(c, "Asset", err)
		return
	}
	utils.JSON200(c, gin.H{"asset": asset, "shared_url": asset.SharedURL})
}

// GetSharedAsset needs no identity.
func (ctrl *Controller) GetSharedAsset(c *gin.Context) {
	id, ok := ctrl.pathUUID(c, "Shared", "id")
	if !ok {
		return
	}

	access, err := ctrl.Service.Assets.GetShared(c.Request.Context(), id)
	if err != nil {
		ctrl.respondError(c, "Shared", err)
		return
	}
	utils.JSON200(c, gin.H{"asset": access.Asset, "url": access.URL, "expires_at": access.ExpiresAt})
}
