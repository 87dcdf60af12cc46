package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetadmin/internal/catalog"
	"assetadmin/internal/scope"
)

type mappingInput struct {
	ModuleID  string `json:"moduleId"`
	CompanyID string `json:"companyId"`
	scope.Dimensions
	Active           *bool    `json:"isActive"`
	SelectedFieldIDs []string `json:"selectedFieldIds"`
}

// validateMapping: модуль существует, компания задана, все поля принадлежат модулю.
func validateMapping(storage *Storage, in mappingInput) (scope.Mapping, []FieldError) {
	var errs []FieldError
	m := scope.Mapping{CompanyID: strings.TrimSpace(in.CompanyID), Active: true}
	if in.Active != nil {
		m.Active = *in.Active
	}
	if m.CompanyID == "" {
		errs = append(errs, ferr(ErrRequired, "companyId", "Field 'companyId' is required"))
	}
	moduleID, ok := storage.Catalog.NormalizeModuleID(in.ModuleID)
	if !ok {
		errs = append(errs, ferr(ErrUnknownModule, "moduleId", fmt.Sprintf("Module '%s' not found", in.ModuleID)))
		return m, errs
	}
	m.ModuleID = moduleID

	known, _ := storage.Catalog.FieldIDs(moduleID)
	seen := map[string]struct{}{}
	m.SelectedFieldIDs = make([]string, 0, len(in.SelectedFieldIDs))
	for _, id := range in.SelectedFieldIDs {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := known[id]; !ok {
			errs = append(errs, ferr(ErrUnknownField, "selectedFieldIds", fmt.Sprintf("Field '%s' does not belong to module '%s'", id, moduleID)))
			continue
		}
		m.SelectedFieldIDs = append(m.SelectedFieldIDs, id)
	}
	for _, dim := range scope.All {
		m.Dimensions = m.Dimensions.With(dim, in.Dimensions.Get(dim))
	}
	return m, errs
}

// GET /api/scope-mappings?company=&module=
func ListMappingsHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, err := storage.Store.ListScopeMappings(c.Request.Context(), strings.TrimSpace(c.Query("company")))
		if err != nil {
			writeError(c, storage, err)
			return
		}
		module := strings.TrimSpace(c.Query("module"))
		if module != "" {
			if id, ok := storage.Catalog.NormalizeModuleID(module); ok {
				module = id
			}
		}
		out := make([]scope.Mapping, 0, len(all))
		for _, m := range all {
			if module != "" && m.ModuleID != module {
				continue
			}
			out = append(out, m)
		}
		c.Header("X-Total-Count", fmt.Sprint(len(out)))
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/scope-mappings/:id
func GetMappingHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := storage.Store.GetScopeMapping(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, storage, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

// POST /api/scope-mappings
func CreateMappingHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in mappingInput
		if err := c.ShouldBindJSON(&in); err != nil {
			abortErrors(c, http.StatusBadRequest, ferr(ErrInvalidJSON, "", "Invalid JSON"))
			return
		}
		m, errs := validateMapping(storage, in)
		if len(errs) > 0 {
			abortErrors(c, http.StatusBadRequest, errs...)
			return
		}
		out, err := storage.Store.CreateScopeMapping(c.Request.Context(), m)
		if err != nil {
			writeError(c, storage, err)
			return
		}
		loggerFrom(c, storage).Info("scope mapping created",
			zap.String("mapping_id", out.ID), zap.String("module_id", out.ModuleID), zap.String("company_id", out.CompanyID))
		c.JSON(http.StatusCreated, out)
	}
}

// PUT /api/scope-mappings/:id
func UpdateMappingHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in mappingInput
		if err := c.ShouldBindJSON(&in); err != nil {
			abortErrors(c, http.StatusBadRequest, ferr(ErrInvalidJSON, "", "Invalid JSON"))
			return
		}
		m, errs := validateMapping(storage, in)
		if len(errs) > 0 {
			abortErrors(c, http.StatusBadRequest, errs...)
			return
		}
		out, err := storage.Store.UpdateScopeMapping(c.Request.Context(), c.Param("id"), m)
		if err != nil {
			writeError(c, storage, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// DELETE /api/scope-mappings/:id
func DeleteMappingHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := storage.Store.DeleteScopeMapping(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, storage, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// dimensionsFromQuery понимает countryId/country, propertyTypeId/property_type и т.п.
func dimensionsFromQuery(c *gin.Context) scope.Dimensions {
	var d scope.Dimensions
	for key, vals := range c.Request.URL.Query() {
		dim, err := scope.ParseDimension(key)
		if err != nil || len(vals) == 0 {
			continue
		}
		d = d.With(dim, vals[0])
	}
	return d
}

// GET /api/modules/:module/resolve?company=&countryId=...
// Ошибка чтения маппингов тут возвращается как есть: fail-open, решение клиента.
func ResolveHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		moduleID, ok := moduleParam(c, storage, c.Param("module"))
		if !ok {
			return
		}
		company := strings.TrimSpace(c.Query("company"))
		if company == "" {
			abortErrors(c, http.StatusBadRequest, ferr(ErrRequired, "company", "Query parameter 'company' is required"))
			return
		}
		mappings, err := storage.Store.ListScopeMappings(c.Request.Context(), company)
		if err != nil {
			writeError(c, storage, err)
			return
		}
		c.JSON(http.StatusOK, scope.Resolve(mappings, moduleID, dimensionsFromQuery(c)))
	}
}

// GET /api/modules/:module/structure?company=&countryId=...: видимая структура
func StructureHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		moduleID, ok := moduleParam(c, storage, c.Param("module"))
		if !ok {
			return
		}
		full, err := catalog.LoadStructure(c.Request.Context(), storage.Catalog, moduleID)
		if err != nil {
			writeError(c, storage, err)
			return
		}
		sel := storage.Resolver.Resolve(c.Request.Context(), strings.TrimSpace(c.Query("company")), moduleID, dimensionsFromQuery(c))
		c.JSON(http.StatusOK, gin.H{
			"selection": sel,
			"sections":  catalog.FilterStructure(full, sel.FieldIDs, sel.Unrestricted),
		})
	}
}
