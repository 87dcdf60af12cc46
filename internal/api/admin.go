package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetadmin/internal/catalog"
)

// POST /api/admin/reload: перечитать каталог и справочники; блокирующие замечания линтера
// отменяют замену.
func AdminReloadHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		if storage.Reload == nil {
			abortErrors(c, http.StatusNotImplemented, ferr(ErrInternal, "", "reload is not configured"))
			return
		}
		storage.reloadMu.Lock()
		defer storage.reloadMu.Unlock()

		modules, dirs, err := storage.Reload(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{ferr("catalog_load", "", err.Error())}})
			return
		}

		issues := catalog.Lint(modules)
		if catalog.HasBlocking(issues) {
			c.JSON(http.StatusBadRequest, gin.H{
				"errors": []FieldError{ferr("catalog_blocking_issues", "", "catalog has blocking issues")},
				"issues": issues,
				"hint":   "fix catalog and retry",
			})
			return
		}

		// атомарная замена
		storage.Catalog.Replace(modules)
		if dirs != nil && storage.Reference != nil {
			storage.Reference.Replace(dirs)
		}
		loggerFrom(c, storage).Info("catalog reloaded", zap.Int("modules", len(modules)), zap.Int("issues", len(issues)))

		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"modules":     len(modules),
			"directories": len(dirs),
			"issues":      issues,
		})
	}
}
