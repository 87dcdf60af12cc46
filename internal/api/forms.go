package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetadmin/internal/form"
	"assetadmin/internal/scope"
)

type startFormReq struct {
	ModuleID  string `json:"moduleId"`
	CompanyID string `json:"companyId"`
	RecordID  string `json:"recordId"`
	ViewOnly  bool   `json:"viewOnly"`
}

type formResp struct {
	ID string `json:"id"`
	form.View
}

func respondForm(c *gin.Context, status int, id string, st form.State) {
	c.JSON(status, formResp{ID: id, View: form.Render(st)})
}

// respondFormErr: ошибка шага возвращается вместе со снимком формы
func respondFormErr(c *gin.Context, storage *Storage, id string, st form.State, err error) {
	if err == nil {
		respondForm(c, http.StatusOK, id, st)
		return
	}
	status, fe := classify(err)
	if status >= 500 {
		loggerFrom(c, storage).Error("form operation failed", zap.String("session_id", id), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"errors": []FieldError{fe}, "form": formResp{ID: id, View: form.Render(st)}})
}

func session(c *gin.Context, storage *Storage) (*form.Controller, bool) {
	ctrl, err := storage.Sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, storage, err)
		return nil, false
	}
	return ctrl, true
}

// POST /api/forms
func StartFormHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startFormReq
		if err := c.ShouldBindJSON(&req); err != nil {
			abortErrors(c, http.StatusBadRequest, ferr(ErrInvalidJSON, "", "Invalid JSON"))
			return
		}
		opts := form.StartOptions{CompanyID: strings.TrimSpace(req.CompanyID), RecordID: strings.TrimSpace(req.RecordID), ViewOnly: req.ViewOnly}
		if req.ModuleID != "" {
			id, ok := moduleParam(c, storage, req.ModuleID)
			if !ok {
				return
			}
			opts.ModuleID = id
		} else if opts.RecordID == "" {
			abortErrors(c, http.StatusBadRequest, ferr(ErrRequired, "moduleId", "Field 'moduleId' is required"))
			return
		}
		if opts.CompanyID == "" && opts.RecordID == "" {
			abortErrors(c, http.StatusBadRequest, ferr(ErrRequired, "companyId", "Field 'companyId' is required"))
			return
		}

		id, st, err := storage.Sessions.Open(c.Request.Context(), opts)
		if err != nil {
			writeError(c, storage, err)
			return
		}
		loggerFrom(c, storage).Info("form opened",
			zap.String("session_id", id), zap.String("module_id", st.ModuleID), zap.Bool("view_only", st.ViewOnly))
		respondForm(c, http.StatusCreated, id, st)
	}
}

// GET /api/forms/:id
func GetFormHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, ok := session(c, storage)
		if !ok {
			return
		}
		respondForm(c, http.StatusOK, c.Param("id"), ctrl.State())
	}
}

type dimensionReq struct {
	Value string `json:"value"`
}

// PUT /api/forms/:id/dimensions/:dimension
func SetDimensionHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		dim, err := scope.ParseDimension(c.Param("dimension"))
		if err != nil {
			abortErrors(c, http.StatusBadRequest, ferr(ErrUnknownField, "dimension", err.Error()))
			return
		}
		var req dimensionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			abortErrors(c, http.StatusBadRequest, ferr(ErrInvalidJSON, "", "Invalid JSON"))
			return
		}
		ctrl, ok := session(c, storage)
		if !ok {
			return
		}
		st, err := ctrl.ChangeDimension(c.Request.Context(), dim, req.Value)
		respondFormErr(c, storage, c.Param("id"), st, err)
	}
}

type generalReq struct {
	Status *string `json:"status"`
	Region *string `json:"region"`
}

// PUT /api/forms/:id/general
func SetGeneralHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generalReq
		if err := c.ShouldBindJSON(&req); err != nil {
			abortErrors(c, http.StatusBadRequest, ferr(ErrInvalidJSON, "", "Invalid JSON"))
			return
		}
		ctrl, ok := session(c, storage)
		if !ok {
			return
		}
		st, err := ctrl.SetGeneral(req.Status, req.Region)
		respondFormErr(c, storage, c.Param("id"), st, err)
	}
}

// PUT /api/forms/:id/values: {"key": value, ...}; null удаляет значение
func SetValuesHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req map[string]any
		if err := c.ShouldBindJSON(&req); err != nil {
			abortErrors(c, http.StatusBadRequest, ferr(ErrInvalidJSON, "", "Invalid JSON"))
			return
		}
		ctrl, ok := session(c, storage)
		if !ok {
			return
		}
		st, err := ctrl.SetValues(req)
		respondFormErr(c, storage, c.Param("id"), st, err)
	}
}

// POST /api/forms/:id/next
func NextHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, ok := session(c, storage)
		if !ok {
			return
		}
		st, err := ctrl.Next(c.Request.Context())
		respondFormErr(c, storage, c.Param("id"), st, err)
	}
}

// POST /api/forms/:id/back
func BackHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, ok := session(c, storage)
		if !ok {
			return
		}
		st, err := ctrl.Back()
		respondFormErr(c, storage, c.Param("id"), st, err)
	}
}

// POST /api/forms/:id/submit: при успехе сессия закрывается и возвращается запись
func SubmitHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		ctrl, ok := session(c, storage)
		if !ok {
			return
		}
		rec, err := ctrl.Submit(c.Request.Context(), actor(c))
		if err != nil {
			respondFormErr(c, storage, id, ctrl.State(), err)
			return
		}
		_ = storage.Sessions.Close(id)
		status := http.StatusCreated
		if rec.Version > 1 {
			status = http.StatusOK
		}
		c.JSON(status, rec)
	}
}

// DELETE /api/forms/:id
func CloseFormHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := storage.Sessions.Close(c.Param("id")); err != nil {
			writeError(c, storage, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
