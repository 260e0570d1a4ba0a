package controller

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-asset-service/infra/storage"
	"github.com/tnqbao/gau-asset-service/utils"
)

// ServeSignedFile serves local-backend blobs behind URLs issued by
// LocalStore.SignedURL.
func (ctrl *Controller) ServeSignedFile(c *gin.Context) {
	local := ctrl.Infra.LocalStore
	if local == nil {
		utils.JSON404(c, "Not found")
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")

	if err := local.VerifySignedURL(key, c.Request.URL.Query()); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(c.Request.Context(), "[File] Rejected signed URL for %s: %v", key, err)
		if errors.Is(err, storage.ErrURLExpired) {
			utils.JSON403(c, "Link expired")
			return
		}
		utils.JSON403(c, "Invalid signature")
		return
	}
	ctrl.serveLocalFile(c, key, c.Query("download"))
}

func (ctrl *Controller) ServePublicFile(c *gin.Context) {
	local := ctrl.Infra.LocalStore
	if local == nil {
		utils.JSON404(c, "Not found")
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !local.IsPublic(key) {
		utils.JSON404(c, "Not found")
		return
	}
	ctrl.serveLocalFile(c, key, "")
}

func (ctrl *Controller) serveLocalFile(c *gin.Context, key, downloadName string) {
	file, err := ctrl.Infra.LocalStore.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
			utils.JSON404(c, "Not found")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[File] Failed to open %s: %v", key, err)
		utils.JSON500(c, "Failed to read file")
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[File] Failed to stat %s: %v", key, err)
		utils.JSON500(c, "Failed to read file")
		return
	}

	name := path.Base(key)
	if downloadName != "" {
		name = downloadName
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": downloadName}))
	}
	ctrl.Infra.Logger.DebugWithContextf(c.Request.Context(), "[File] Serving %s (%d bytes)", key, info.Size())
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}
