package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetadmin/internal/files"
)

// POST /api/files (multipart, поле file), ключ ответа кладётся в значение file/image поля
func UploadFileHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		if storage.Blob == nil {
			abortErrors(c, http.StatusInternalServerError, ferr(ErrInternal, "", "blob store not configured"))
			return
		}
		file, hdr, err := c.Request.FormFile("file")
		if err != nil {
			abortErrors(c, http.StatusBadRequest, ferr(ErrRequired, "file", "multipart file not found (field name 'file')"))
			return
		}
		defer file.Close()

		obj, err := storage.Blob.Put(files.NameFromHeader(hdr), file)
		if err != nil {
			loggerFrom(c, storage).Error("file store failed", zap.Error(err))
			abortErrors(c, http.StatusInternalServerError, ferr(ErrInternal, "file", "store error"))
			return
		}
		loggerFrom(c, storage).Info("file stored", zap.String("key", obj.Key), zap.Int64("size", obj.Size))
		c.JSON(http.StatusCreated, obj)
	}
}

// GET /api/files/*key
func DownloadFileHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		if storage.Blob == nil {
			abortErrors(c, http.StatusInternalServerError, ferr(ErrInternal, "", "blob store not configured"))
			return
		}
		key := strings.TrimPrefix(c.Param("key"), "/")
		rc, err := storage.Blob.Open(key)
		if err != nil {
			writeError(c, storage, err)
			return
		}
		defer rc.Close()

		name := path.Base(key)
		ct := mime.TypeByExtension(path.Ext(name))
		if ct == "" {
			ct = "application/octet-stream"
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Header("Content-Type", ct)
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, rc); err != nil {
			loggerFrom(c, storage).Warn("file download interrupted", zap.String("key", key), zap.Error(err))
		}
	}
}
