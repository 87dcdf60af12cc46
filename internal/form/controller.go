package form

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"assetadmin/internal/catalog"
	"assetadmin/internal/logging"
	"assetadmin/internal/metrics"
	"assetadmin/internal/reference"
	"assetadmin/internal/scope"
	"assetadmin/internal/store"
	"assetadmin/internal/submit"
)

// RegionLookup: best-effort поиск регионов страны
type RegionLookup interface {
	ListRegions(ctx context.Context, country string) ([]reference.Region, error)
}

// DimensionNamer возвращает отображаемое имя значения измерения (пусто, неизвестно)
type DimensionNamer func(dim scope.Dimension, id string) string

// Deps: внешние коллабораторы контроллера
type Deps struct {
	Catalog  catalog.Source
	Resolver scope.FieldResolver
	// Mappings: для привязки записи к маппингу при отправке; nil, без привязки
	Mappings scope.Source
	Regions  RegionLookup
	Records  store.Records
	Names    DimensionNamer
	Log      *zap.Logger
}

// Controller владеет одной формой. Состояние меняется только через Reduce;
// внешние вызовы выполняются вне блокировки, их результаты приходят событиями.
type Controller struct {
	deps Deps
	log  *zap.Logger

	mu      sync.Mutex
	st      State
	pending int
	settled chan struct{}
}

func NewController(deps Deps) *Controller {
	settled := make(chan struct{})
	close(settled)
	return &Controller{deps: deps, log: logging.OrNop(deps.Log), settled: settled}
}

// dispatch применяет событие под блокировкой
func (c *Controller) dispatch(ev any) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatchLocked(ev)
}

func (c *Controller) dispatchLocked(ev any) (State, error) {
	next, err := Reduce(c.st, ev)
	c.st = next
	return next, err
}

// State: копия текущего состояния
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

func (c *Controller) begin() {
	if c.pending == 0 {
		c.settled = make(chan struct{})
	}
	c.pending++
}

func (c *Controller) done() {
	c.pending--
	if c.pending == 0 {
		close(c.settled)
	}
}

// dispatchSettled применяет ev, когда нет запросов в полёте. Проверка pending и
// применение идут под одной блокировкой.
func (c *Controller) dispatchSettled(ctx context.Context, ev any) (State, error) {
	for {
		if err := c.awaitSettled(ctx); err != nil {
			return c.State(), err
		}
		c.mu.Lock()
		if c.pending == 0 {
			st, err := c.dispatchLocked(ev)
			c.mu.Unlock()
			return st, err
		}
		c.mu.Unlock()
	}
}

// awaitSettled ждёт завершения всех запросов разрешения и регионов
func (c *Controller) awaitSettled(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.pending == 0 {
			c.mu.Unlock()
			return nil
		}
		ch := c.settled
		c.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// StartOptions: что открыть
type StartOptions struct {
	ModuleID  string
	CompanyID string
	// RecordID: редактирование (или просмотр) существующей записи
	RecordID string
	ViewOnly bool
}

// Start загружает структуру модуля и выполняет первое разрешение набора полей.
func (c *Controller) Start(ctx context.Context, opts StartOptions) (State, error) {
	load := LoadRequested{ModuleID: opts.ModuleID, CompanyID: opts.CompanyID, ViewOnly: opts.ViewOnly}

	if opts.RecordID != "" {
		if c.deps.Records == nil {
			return c.State(), errors.New("records store not configured")
		}
		rec, err := c.deps.Records.GetRecord(ctx, opts.RecordID)
		if err != nil {
			return c.State(), fmt.Errorf("load record %s: %w", opts.RecordID, err)
		}
		if load.ModuleID == "" {
			load.ModuleID = rec.ModuleID
		}
		if load.CompanyID == "" {
			load.CompanyID = rec.CompanyID
		}
		load.RecordID = rec.ID
		load.Version = rec.Version
		load.Values = catalog.ValuesFromMap(rec.Attributes)
		load.Dimensions = rec.Dimensions
		load.Status = rec.Status
		load.Region = rec.Region
	}
	if load.ModuleID == "" {
		return c.State(), ErrNoModule
	}

	if _, err := c.dispatch(load); err != nil {
		return c.State(), err
	}

	full, err := catalog.LoadStructure(ctx, c.deps.Catalog, load.ModuleID)
	c.mu.Lock()
	st, _ := c.dispatchLocked(StructureLoaded{ModuleID: load.ModuleID, Structure: full, Err: err})
	if err != nil {
		c.mu.Unlock()
		c.log.Error("structure load failed", zap.String("module_id", load.ModuleID), zap.Error(err))
		return st, fmt.Errorf("load structure of %s: %w", load.ModuleID, err)
	}
	req := c.selectionRequestLocked()
	country := c.regionRequestLocked(st.Dimensions.CountryID)
	c.mu.Unlock()

	c.fetchSelection(ctx, req)
	c.fetchRegions(ctx, country)
	return c.State(), nil
}

// ChangeDimension меняет одно измерение и пересчитывает структуру по объединённому кортежу.
// Возвращается после того, как ответ применён (или признан устаревшим).
// Запросы попадают в pending под той же блокировкой, что и DimensionChanged.
func (c *Controller) ChangeDimension(ctx context.Context, dim scope.Dimension, value string) (State, error) {
	c.mu.Lock()
	st, err := c.dispatchLocked(DimensionChanged{Dimension: dim, Value: value})
	if err != nil {
		c.mu.Unlock()
		return st, err
	}
	req := c.selectionRequestLocked()
	country := ""
	if dim == scope.Country {
		country = c.regionRequestLocked(st.Dimensions.CountryID)
	}
	c.mu.Unlock()

	c.fetchRegions(ctx, country)
	c.fetchSelection(ctx, req)
	return c.State(), nil
}

// selectionRequest: снимок для запроса разрешения (Seq уже увеличен редьюсером)
type selectionRequest struct {
	SelectionResolved
	company string
	dims    scope.Dimensions
}

func (c *Controller) selectionRequestLocked() selectionRequest {
	c.begin()
	return selectionRequest{
		SelectionResolved: SelectionResolved{ModuleID: c.st.ModuleID, Seq: c.st.Seq},
		company:           c.st.CompanyID,
		dims:              c.st.Dimensions,
	}
}

// regionRequestLocked регистрирует поиск регионов; пустая строка, искать нечего
func (c *Controller) regionRequestLocked(country string) string {
	if country == "" || c.deps.Regions == nil {
		return ""
	}
	c.begin()
	return country
}

// fetchSelection выполняет запрос вне блокировки и применяет ответ
func (c *Controller) fetchSelection(ctx context.Context, r selectionRequest) {
	req := r.SelectionResolved
	if c.deps.Resolver == nil {
		req.Selection = scope.Unrestricted(scope.ReasonNoMatch)
	} else {
		req.Selection = c.deps.Resolver.Resolve(ctx, r.company, req.ModuleID, r.dims)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	before := c.st.Seq
	_, _ = c.dispatchLocked(req)
	if req.Seq != before {
		c.log.Debug("stale field selection dropped",
			zap.String("module_id", req.ModuleID), zap.Uint64("seq", req.Seq), zap.Uint64("current", before))
	}
	c.done()
}

// fetchRegions: ошибка поиска не блокирует, список просто пуст
func (c *Controller) fetchRegions(ctx context.Context, country string) {
	if country == "" {
		return
	}
	lookup := country
	if c.deps.Names != nil {
		if n := c.deps.Names(scope.Country, country); n != "" {
			lookup = n
		}
	}
	regions, err := c.deps.Regions.ListRegions(ctx, lookup)
	if err != nil {
		c.log.Warn("region lookup failed", zap.String("country", lookup), zap.Error(err))
		regions = nil
	}
	names := make([]string, 0, len(regions))
	for _, r := range regions {
		names = append(names, r.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.dispatchLocked(RegionsLoaded{Country: country, Regions: names})
	c.done()
}

// SetValue задаёт значение видимого поля (или подполя file/image)
func (c *Controller) SetValue(key string, value any) (State, error) {
	return c.dispatch(ValueSet{Key: key, Value: value})
}

// SetValues применяет пакет целиком или не применяет ничего. Ключи идут по порядку,
// так что ошибка всегда про первый по алфавиту плохой ключ.
func (c *Controller) SetValues(values map[string]any) (State, error) {
	ks := make([]string, 0, len(values))
	for k := range values {
		ks = append(ks, k)
	}
	sort.Strings(ks)

	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.st
	for _, k := range ks {
		var err error
		if next, err = Reduce(next, ValueSet{Key: k, Value: values[k]}); err != nil {
			return c.st, err
		}
	}
	c.st = next
	return c.st, nil
}

func (c *Controller) SetGeneral(status, region *string) (State, error) {
	return c.dispatch(GeneralSet{Status: status, Region: region})
}

// Next дожидается незавершённых запросов и переходит вперёд с проверкой шага.
func (c *Controller) Next(ctx context.Context) (State, error) {
	return c.dispatchSettled(ctx, NextRequested{})
}

func (c *Controller) Back() (State, error) {
	return c.dispatch(BackRequested{})
}

// Submit проверяет, нормализует и сохраняет запись. Ошибка валидации возвращает форму
// на шаг с проблемным полем, ошибка сохранения, в ReadyToSubmit.
func (c *Controller) Submit(ctx context.Context, actor string) (store.Record, error) {
	st, err := c.dispatchSettled(ctx, SubmitStarted{})
	if err != nil {
		return store.Record{}, err
	}
	log := c.log.With(zap.String("module_id", st.ModuleID), zap.String("company_id", st.CompanyID))

	in := submit.Input{
		ModuleID:   st.ModuleID,
		CompanyID:  st.CompanyID,
		Values:     st.Values,
		Structure:  st.Structure,
		Dimensions: st.Dimensions,
		Status:     st.Status,
		Region:     st.Region,
	}
	if c.deps.Names != nil {
		for _, dim := range scope.All {
			in.DimensionNames = in.DimensionNames.With(dim, c.deps.Names(dim, st.Dimensions.Get(dim)))
		}
	}
	if c.deps.Mappings != nil {
		mappings, err := c.deps.Mappings.ListScopeMappings(ctx, st.CompanyID)
		if err != nil {
			log.Warn("scope mappings unavailable, record saved without mapping", zap.Error(err))
		}
		in.Mappings = mappings
	}

	payload, err := submit.Normalize(in)
	if err != nil {
		var verr *submit.ValidationError
		if errors.As(err, &verr) {
			metrics.ObserveSubmission("invalid")
			_, _ = c.dispatch(SubmitInvalid{Err: verr})
			return store.Record{}, err
		}
		metrics.ObserveSubmission("failed")
		_, _ = c.dispatch(SubmitFailed{Err: err})
		return store.Record{}, err
	}

	if c.deps.Records == nil {
		err := errors.New("records store not configured")
		_, _ = c.dispatch(SubmitFailed{Err: err})
		return store.Record{}, err
	}
	var rec store.Record
	if st.RecordID != "" {
		rec, err = c.deps.Records.UpdateRecord(ctx, st.RecordID, st.RecordVersion, payload, actor)
	} else {
		rec, err = c.deps.Records.CreateRecord(ctx, payload, actor)
	}
	if err != nil {
		log.Error("record submission failed", zap.Error(err))
		metrics.ObserveSubmission("failed")
		_, _ = c.dispatch(SubmitFailed{Err: fmt.Errorf("save record: %w", err)})
		return store.Record{}, err
	}

	metrics.ObserveSubmission("ok")
	log.Info("record submitted", zap.String("record_id", rec.ID), zap.String("scope_mapping_id", rec.ScopeMappingID))
	_, _ = c.dispatch(SubmitSucceeded{})
	return rec, nil
}

// Close возвращает контроллер в Idle; запросы в полёте будут отброшены.
func (c *Controller) Close() {
	_, _ = c.dispatch(Reset{})
}
