package api

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"assetadmin/internal/catalog"
	"assetadmin/internal/files"
	"assetadmin/internal/form"
	"assetadmin/internal/logging"
	"assetadmin/internal/reference"
	"assetadmin/internal/scope"
	"assetadmin/internal/store"
)

// ReloadFunc перечитывает каталог и справочники (из файлов или из внешнего сервиса)
type ReloadFunc func(ctx context.Context) ([]*catalog.Module, map[string]reference.Directory, error)

// Storage: всё, чем пользуются обработчики
type Storage struct {
	Catalog   *catalog.Catalog
	Reference *reference.Catalog
	Store     store.Store
	// Resolver: для форм (fail-open); ручка /resolve читает маппинги напрямую
	Resolver scope.FieldResolver
	Sessions *form.Sessions
	Blob     files.BlobStore
	Reload   ReloadFunc

	DateFormat string
	Log        *zap.Logger

	reloadMu sync.Mutex
}

func (s *Storage) logger() *zap.Logger { return logging.OrNop(s.Log) }

// DimensionName: имя значения измерения из справочников (для правила «задано по id или имени»)
func (s *Storage) DimensionName(dim scope.Dimension, id string) string {
	if s.Reference == nil {
		return ""
	}
	return s.Reference.DimensionName(string(dim), id)
}
