package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// moduleParam: id модуля из пути (id или имя без учёта регистра); 404, если нет
func moduleParam(c *gin.Context, storage *Storage, raw string) (string, bool) {
	id, ok := storage.Catalog.NormalizeModuleID(raw)
	if !ok {
		abortErrors(c, http.StatusNotFound, ferr(ErrUnknownModule, "module", "Module '"+raw+"' not found"))
		return "", false
	}
	return id, true
}
