package storage

import (
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/kennygrant/sanitize"

	"github.com/tnqbao/gau-asset-service/entity"
)

// BuildObjectKey combines the owner id, a random suffix and the sanitized
// original name, e.g. "<owner>/<uuid>-photo.jpg".
func BuildObjectKey(ownerID, originalName string) string {
	name := sanitize.Name(path.Base(strings.ReplaceAll(originalName, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		name = "file"
	}
	owner := sanitize.Name(ownerID)
	if owner == "" {
		owner = "anonymous"
	}
	return fmt.Sprintf("%s/%s-%s", owner, uuid.NewString(), name)
}

// Classify maps a MIME type to an asset category.
func Classify(mimeType string) entity.AssetType {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return entity.AssetTypeImage
	case strings.HasPrefix(mt, "video/"):
		return entity.AssetTypeVideo
	case strings.HasPrefix(mt, "audio/"):
		return entity.AssetTypeAudio
	case strings.Contains(mt, "pdf"),
		strings.Contains(mt, "document"),
		strings.Contains(mt, "msword"),
		strings.Contains(mt, "text"):
		return entity.AssetTypeDocument
	default:
		return entity.AssetTypeOther
	}
}

func contentDisposition(downloadName string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": downloadName})
}
