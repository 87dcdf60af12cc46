package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetadmin/internal/catalog"
	"assetadmin/internal/scope"
	"assetadmin/internal/store"
	"assetadmin/internal/submit"
)

// recordInput: тело POST/PUT /api/records; значения проходят тот же конвейер, что и форма
type recordInput struct {
	ModuleID  string `json:"moduleId"`
	CompanyID string `json:"companyId"`
	scope.Dimensions
	Status  string         `json:"status"`
	Region  string         `json:"region"`
	Values  map[string]any `json:"values"`
	Version int64          `json:"version"`
}

// coerceValues приводит значения видимых полей к их типам; прочие ключи идут как есть.
func coerceValues(st catalog.Structure, raw map[string]any) (catalog.Values, []FieldError) {
	type fieldKind struct {
		t    catalog.FieldType
		opts []catalog.Option
	}
	types := map[string]fieldKind{}
	for _, sec := range st {
		for _, f := range sec.Fields {
			types[f.Key] = fieldKind{f.Type, catalog.ClosedOptions(f)}
			for _, ef := range catalog.ExtraFields(f) {
				types[ef.Key] = fieldKind{ef.Type, ef.Options}
			}
		}
	}
	ks := make([]string, 0, len(raw))
	for k := range raw {
		ks = append(ks, k)
	}
	sort.Strings(ks)

	var errs []FieldError
	out := make(catalog.Values, len(raw))
	for _, k := range ks {
		v := raw[k]
		var (
			val catalog.Value
			err error
		)
		if sp, ok := types[k]; ok {
			val, err = catalog.CoerceOption(sp.t, v, sp.opts)
		} else {
			val, err = catalog.FromAny(v)
		}
		if err != nil {
			errs = append(errs, ferr(ErrTypeMismatch, k, fmt.Sprintf("Field '%s' %v", k, err)))
			continue
		}
		if !val.IsNull() {
			out[k] = val
		}
	}
	return out, errs
}

// normalizeRecord: видимая структура по измерениям → приведение → submit.Normalize
func normalizeRecord(c *gin.Context, storage *Storage, in recordInput) (submit.Payload, bool) {
	ctx := c.Request.Context()
	moduleID, ok := storage.Catalog.NormalizeModuleID(in.ModuleID)
	if !ok {
		abortErrors(c, http.StatusBadRequest, ferr(ErrUnknownModule, "moduleId", fmt.Sprintf("Module '%s' not found", in.ModuleID)))
		return submit.Payload{}, false
	}
	company := strings.TrimSpace(in.CompanyID)
	if company == "" {
		abortErrors(c, http.StatusBadRequest, ferr(ErrRequired, "companyId", "Field 'companyId' is required"))
		return submit.Payload{}, false
	}
	var dims scope.Dimensions
	for _, dim := range scope.All {
		dims = dims.With(dim, in.Dimensions.Get(dim))
	}

	full, err := catalog.LoadStructure(ctx, storage.Catalog, moduleID)
	if err != nil {
		writeError(c, storage, err)
		return submit.Payload{}, false
	}
	sel := storage.Resolver.Resolve(ctx, company, moduleID, dims)
	visible := catalog.FilterStructure(full, sel.FieldIDs, sel.Unrestricted)

	vals, errs := coerceValues(visible, in.Values)
	if len(errs) > 0 {
		abortErrors(c, http.StatusBadRequest, errs...)
		return submit.Payload{}, false
	}

	mappings, err := storage.Store.ListScopeMappings(ctx, company)
	if err != nil {
		loggerFrom(c, storage).Warn("scope mappings unavailable, record saved without mapping", zap.Error(err))
	}
	var names scope.Dimensions
	for _, dim := range scope.All {
		names = names.With(dim, storage.DimensionName(dim, dims.Get(dim)))
	}

	p, err := submit.Normalize(submit.Input{
		ModuleID:       moduleID,
		CompanyID:      company,
		Values:         vals,
		Structure:      visible,
		Dimensions:     dims,
		DimensionNames: names,
		Status:         in.Status,
		Region:         in.Region,
		Mappings:       mappings,
	})
	if err != nil {
		writeError(c, storage, err)
		return submit.Payload{}, false
	}
	return p, true
}

// POST /api/records
func CreateRecordHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in recordInput
		if err := c.ShouldBindJSON(&in); err != nil {
			abortErrors(c, http.StatusBadRequest, ferr(ErrInvalidJSON, "", "Invalid JSON"))
			return
		}
		p, ok := normalizeRecord(c, storage, in)
		if !ok {
			return
		}
		rec, err := storage.Store.CreateRecord(c.Request.Context(), p, actor(c))
		if err != nil {
			writeError(c, storage, err)
			return
		}
		c.Header("ETag", fmt.Sprintf(`"%d"`, rec.Version))
		c.JSON(http.StatusCreated, rec)
	}
}

// GET /api/records
func ListRecordsHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		lp := store.ParseListParams(c.Request.URL.Query())
		if lp.ModuleID != "" {
			if id, ok := storage.Catalog.NormalizeModuleID(lp.ModuleID); ok {
				lp.ModuleID = id
			}
		}
		page, total, err := storage.Store.ListRecords(c.Request.Context(), lp)
		if err != nil {
			writeError(c, storage, err)
			return
		}
		if page == nil {
			page = []store.Record{}
		}
		c.Header("X-Total-Count", strconv.Itoa(total))
		c.JSON(http.StatusOK, page)
	}
}

// GET /api/records/:id
func GetRecordHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := storage.Store.GetRecord(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, storage, err)
			return
		}
		c.Header("ETag", fmt.Sprintf(`"%d"`, rec.Version))
		c.JSON(http.StatusOK, rec)
	}
}

// PUT /api/records/:id: версия из If-Match или body.version; без версии, без проверки
func UpdateRecordHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in recordInput
		if err := c.ShouldBindJSON(&in); err != nil {
			abortErrors(c, http.StatusBadRequest, ferr(ErrInvalidJSON, "", "Invalid JSON"))
			return
		}
		expVer := readExpectedVersion(c, in.Version)
		p, ok := normalizeRecord(c, storage, in)
		if !ok {
			return
		}
		rec, err := storage.Store.UpdateRecord(c.Request.Context(), c.Param("id"), expVer, p, actor(c))
		if errors.Is(err, store.ErrVersionConflict) {
			abortErrors(c, http.StatusConflict, ferr(ErrVersionConflict, "version", fmt.Sprintf("version %d is stale", expVer)))
			return
		}
		if err != nil {
			writeError(c, storage, err)
			return
		}
		c.Header("ETag", fmt.Sprintf(`"%d"`, rec.Version))
		c.JSON(http.StatusOK, rec)
	}
}

// DELETE /api/records/:id: мягкое удаление
func DeleteRecordHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := storage.Store.DeleteRecord(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, storage, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// readExpectedVersion читает ожидаемую версию из If-Match (допускаем "3", "\"3\"", W/"3") либо из тела.
func readExpectedVersion(c *gin.Context, bodyVersion int64) int64 {
	ifMatch := strings.TrimSpace(c.GetHeader("If-Match"))
	if ifMatch != "" {
		ifMatch = strings.TrimPrefix(ifMatch, "W/")
		ifMatch = strings.Trim(ifMatch, `"'`)
		if v, err := strconv.ParseInt(ifMatch, 10, 64); err == nil {
			return v
		}
	}
	if bodyVersion > 0 {
		return bodyVersion
	}
	return 0
}
