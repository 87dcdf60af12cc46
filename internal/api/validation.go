package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetadmin/internal/catalog"
	"assetadmin/internal/files"
	"assetadmin/internal/form"
	"assetadmin/internal/store"
	"assetadmin/internal/submit"
)

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Коды ошибок
const (
	ErrRequired        = "required"
	ErrTypeMismatch    = "type_mismatch"
	ErrInvalidJSON     = "invalid_json"
	ErrNotFound        = "not_found"
	ErrUnknownField    = "unknown_field"
	ErrUnknownModule   = "unknown_module"
	ErrVersionConflict = "version_conflict"
	ErrWrongPhase      = "wrong_phase"
	ErrReadOnly        = "read_only"
	ErrUpstream        = "upstream_error"
	ErrInternal        = "internal_error"
)

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}

func abortErrors(c *gin.Context, status int, errs ...FieldError) {
	c.AbortWithStatusJSON(status, gin.H{"errors": errs})
}

// classify переводит ошибку слоя ниже в HTTP-статус и FieldError
func classify(err error) (int, FieldError) {
	var (
		verr *submit.ValidationError
		cerr *catalog.CoerceError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ferr(string(verr.Kind), verr.Field, verr.Error())
	case errors.As(err, &cerr):
		return http.StatusBadRequest, ferr(ErrTypeMismatch, cerr.Key, cerr.Error())
	case errors.Is(err, store.ErrVersionConflict):
		return http.StatusConflict, ferr(ErrVersionConflict, "version", err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, form.ErrSessionNotFound), errors.Is(err, files.ErrNotFound):
		return http.StatusNotFound, ferr(ErrNotFound, "", err.Error())
	case errors.Is(err, catalog.ErrModuleNotFound), errors.Is(err, catalog.ErrSectionNotFound):
		return http.StatusNotFound, ferr(ErrUnknownModule, "", err.Error())
	case errors.Is(err, form.ErrUnknownField):
		return http.StatusBadRequest, ferr(ErrUnknownField, "", err.Error())
	case errors.Is(err, form.ErrReadOnly):
		return http.StatusConflict, ferr(ErrReadOnly, "", err.Error())
	case errors.Is(err, form.ErrWrongPhase), errors.Is(err, form.ErrNoModule):
		return http.StatusConflict, ferr(ErrWrongPhase, "", err.Error())
	case errors.Is(err, files.ErrInvalidKey):
		return http.StatusBadRequest, ferr(ErrTypeMismatch, "key", err.Error())
	}
	return http.StatusBadGateway, ferr(ErrUpstream, "", err.Error())
}

func writeError(c *gin.Context, storage *Storage, err error) {
	status, fe := classify(err)
	if status >= 500 {
		loggerFrom(c, storage).Error("request failed", zap.Error(err))
	}
	abortErrors(c, status, fe)
}
