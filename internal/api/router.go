package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assetadmin/internal/metrics"
)

// NewRouter собирает gin-движок; apiToken пустой, /api без авторизации
func NewRouter(storage *Storage, apiToken string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(storage.logger()), metrics.Middleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := r.Group("/api", BearerAuth(apiToken))
	{
		apiGroup.GET("/meta", MetaListHandler(storage))

		// каталог
		apiGroup.GET("/modules", ModulesHandler(storage))
		apiGroup.GET("/modules/:module", ModuleHandler(storage))
		apiGroup.GET("/modules/:module/sections", SectionsHandler(storage))
		apiGroup.GET("/modules/:module/resolve", ResolveHandler(storage))
		apiGroup.GET("/modules/:module/structure", StructureHandler(storage))
		apiGroup.GET("/sections/:section/fields", FieldsHandler(storage))

		// справочники
		apiGroup.GET("/reference/:name", ReferenceHandler(storage))
		apiGroup.GET("/regions/:country", RegionsHandler(storage))

		// маппинги
		apiGroup.GET("/scope-mappings", ListMappingsHandler(storage))
		apiGroup.POST("/scope-mappings", CreateMappingHandler(storage))
		apiGroup.GET("/scope-mappings/:id", GetMappingHandler(storage))
		apiGroup.PUT("/scope-mappings/:id", UpdateMappingHandler(storage))
		apiGroup.DELETE("/scope-mappings/:id", DeleteMappingHandler(storage))

		// записи
		apiGroup.GET("/records", ListRecordsHandler(storage))
		apiGroup.POST("/records", CreateRecordHandler(storage))
		apiGroup.GET("/records/:id", GetRecordHandler(storage))
		apiGroup.PUT("/records/:id", UpdateRecordHandler(storage))
		apiGroup.DELETE("/records/:id", DeleteRecordHandler(storage))

		// формы
		apiGroup.POST("/forms", StartFormHandler(storage))
		apiGroup.GET("/forms/:id", GetFormHandler(storage))
		apiGroup.PUT("/forms/:id/dimensions/:dimension", SetDimensionHandler(storage))
		apiGroup.PUT("/forms/:id/general", SetGeneralHandler(storage))
		apiGroup.PUT("/forms/:id/values", SetValuesHandler(storage))
		apiGroup.POST("/forms/:id/next", NextHandler(storage))
		apiGroup.POST("/forms/:id/back", BackHandler(storage))
		apiGroup.POST("/forms/:id/submit", SubmitHandler(storage))
		apiGroup.DELETE("/forms/:id", CloseFormHandler(storage))

		// файлы
		apiGroup.POST("/files", UploadFileHandler(storage))
		apiGroup.GET("/files/*key", DownloadFileHandler(storage))

		// админка
		apiGroup.POST("/admin/reload", AdminReloadHandler(storage))
		apiGroup.GET("/admin/lint", LintHandler(storage))
	}
	return r
}
