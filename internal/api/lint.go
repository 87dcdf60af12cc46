package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assetadmin/internal/catalog"
)

// GET /api/admin/lint: замечания по текущему каталогу
func LintHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		issues := catalog.Lint(storage.Catalog.Modules())
		if issues == nil {
			issues = []catalog.Issue{}
		}
		c.JSON(http.StatusOK, gin.H{
			"issues":   issues,
			"blocking": catalog.HasBlocking(issues),
		})
	}
}
