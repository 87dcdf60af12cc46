package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	ErrModuleNotFound  = errors.New("module not found")
	ErrSectionNotFound = errors.New("section not found")
)

// Source: чтение каталога (локально или через внешний сервис данных)
type Source interface {
	ListModules(ctx context.Context) ([]ModuleDefinition, error)
	ListSections(ctx context.Context, moduleID string) ([]Section, error)
	ListFields(ctx context.Context, sectionID string) ([]FieldDefinition, error)
}

// Catalog: неизменяемые справочные данные в памяти; целиком заменяется через Replace.
type Catalog struct {
	mu       sync.RWMutex
	modules  map[string]*Module
	sections map[string]SectionFields
	order    []string
}

func New(modules []*Module) *Catalog {
	c := &Catalog{}
	c.Replace(modules)
	return c
}

// Replace атомарно подменяет содержимое (admin reload)
func (c *Catalog) Replace(modules []*Module) {
	byID := make(map[string]*Module, len(modules))
	sections := map[string]SectionFields{}
	order := make([]string, 0, len(modules))
	for _, m := range modules {
		if m == nil {
			continue
		}
		secs := m.Sections.Clone()
		sort.SliceStable(secs, func(i, j int) bool { return secs[i].Order < secs[j].Order })
		mm := &Module{ModuleDefinition: m.ModuleDefinition, Sections: secs}
		byID[m.ID] = mm
		order = append(order, m.ID)
		for _, s := range secs {
			sections[s.ID] = s
		}
	}

	c.mu.Lock()
	c.modules = byID
	c.sections = sections
	c.order = order
	c.mu.Unlock()
}

// Modules возвращает копию модулей (для линтера и мета-ручек)
func (c *Catalog) Modules() []*Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Module, 0, len(c.order))
	for _, id := range c.order {
		m := c.modules[id]
		out = append(out, &Module{ModuleDefinition: m.ModuleDefinition, Sections: m.Sections.Clone()})
	}
	return out
}

// NormalizeModuleID находит модуль по id или имени без учёта регистра.
func (c *Catalog) NormalizeModuleID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.modules[raw]; ok {
		return raw, true
	}
	for id, m := range c.modules {
		if strings.EqualFold(id, raw) || strings.EqualFold(m.Name, raw) {
			return id, true
		}
	}
	return "", false
}

func (c *Catalog) ListModules(_ context.Context) ([]ModuleDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ModuleDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.modules[id].ModuleDefinition)
	}
	return out, nil
}

func (c *Catalog) ListSections(_ context.Context, moduleID string) ([]Section, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[moduleID]
	if !ok {
		return nil, ErrModuleNotFound
	}
	out := make([]Section, 0, len(m.Sections))
	for _, s := range m.Sections {
		out = append(out, s.Section)
	}
	return out, nil
}

func (c *Catalog) ListFields(_ context.Context, sectionID string) ([]FieldDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sections[sectionID]
	if !ok {
		return nil, ErrSectionNotFound
	}
	return append([]FieldDefinition(nil), s.Fields...), nil
}

// FieldIDs: множество id всех полей модуля
func (c *Catalog) FieldIDs(moduleID string) (map[string]struct{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[moduleID]
	if !ok {
		return nil, false
	}
	out := map[string]struct{}{}
	for _, s := range m.Sections {
		for _, f := range s.Fields {
			out[f.ID] = struct{}{}
		}
	}
	return out, true
}

// LoadStructure собирает полное (нефильтрованное) дерево модуля: секции, затем поля
// каждой секции. Неактивные поля отбрасываются.
func LoadStructure(ctx context.Context, src Source, moduleID string) (Structure, error) {
	sections, err := src.ListSections(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })

	out := make(Structure, 0, len(sections))
	for _, s := range sections {
		fields, err := src.ListFields(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		active := make([]FieldDefinition, 0, len(fields))
		for _, f := range fields {
			if f.Active {
				active = append(active, f)
			}
		}
		out = append(out, SectionFields{Section: s, Fields: active})
	}
	return out, nil
}

// Snapshot читает весь каталог из источника (для зеркала внешнего сервиса).
// Неактивные поля сохраняются: их отсев, дело LoadStructure.
func Snapshot(ctx context.Context, src Source) ([]*Module, error) {
	defs, err := src.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Module, 0, len(defs))
	for _, d := range defs {
		sections, err := src.ListSections(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		m := &Module{ModuleDefinition: d, Sections: make(Structure, 0, len(sections))}
		for _, s := range sections {
			fields, err := src.ListFields(ctx, s.ID)
			if err != nil {
				return nil, err
			}
			m.Sections = append(m.Sections, SectionFields{Section: s, Fields: fields})
		}
		out = append(out, m)
	}
	return out, nil
}
