package scope

import (
	"context"

	"go.uber.org/zap"

	"assetadmin/internal/logging"
	"assetadmin/internal/metrics"
)

// Source: чтение маппингов компании (хранилище или внешний сервис)
type Source interface {
	ListScopeMappings(ctx context.Context, companyID string) ([]Mapping, error)
}

// RemoteSource: серверный эквивалент Resolve
type RemoteSource interface {
	ResolveSelection(ctx context.Context, companyID, moduleID string, q Dimensions) (Selection, error)
}

// FieldResolver: то, чем пользуется контроллер формы. Ошибок не возвращает:
// сбой чтения трактуется как «без ограничений».
type FieldResolver interface {
	Resolve(ctx context.Context, companyID, moduleID string, q Dimensions) Selection
}

// Resolver читает маппинги при каждом вызове (без кэша между модулями)
// и объединяет их локально.
type Resolver struct {
	src Source
	log *zap.Logger
}

func NewResolver(src Source, log *zap.Logger) *Resolver {
	return &Resolver{src: src, log: logging.OrNop(log)}
}

func (r *Resolver) Resolve(ctx context.Context, companyID, moduleID string, q Dimensions) Selection {
	mappings, err := r.src.ListScopeMappings(ctx, companyID)
	if err != nil {
		// частичные данные в Resolve не отдаём
		return failOpen(r.log, moduleID, err)
	}
	sel := Resolve(mappings, moduleID, q)
	observe(sel)
	return sel
}

// RemoteResolver делегирует объединение внешнему сервису с той же политикой fail-open.
type RemoteResolver struct {
	src RemoteSource
	log *zap.Logger
}

func NewRemoteResolver(src RemoteSource, log *zap.Logger) *RemoteResolver {
	return &RemoteResolver{src: src, log: logging.OrNop(log)}
}

func (r *RemoteResolver) Resolve(ctx context.Context, companyID, moduleID string, q Dimensions) Selection {
	sel, err := r.src.ResolveSelection(ctx, companyID, moduleID, q)
	if err != nil {
		return failOpen(r.log, moduleID, err)
	}
	if !sel.Unrestricted && len(sel.FieldIDs) == 0 {
		// пустой ответ сервиса = ограничений нет
		sel = Unrestricted(ReasonEmptySelection)
	}
	observe(sel)
	return sel
}

func failOpen(log *zap.Logger, moduleID string, err error) Selection {
	log.Warn("field selection fetch failed, showing all fields",
		zap.String("module_id", moduleID), zap.Error(err))
	metrics.ObserveResolution(metrics.OutcomeFailOpen)
	return Unrestricted(ReasonFetchFailed)
}

func observe(sel Selection) {
	if sel.Unrestricted {
		metrics.ObserveResolution(metrics.OutcomeUnrestricted)
		return
	}
	metrics.ObserveResolution(metrics.OutcomeRestricted)
}
