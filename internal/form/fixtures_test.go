package form

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"assetadmin/internal/catalog"
	"assetadmin/internal/reference"
	"assetadmin/internal/scope"
	"assetadmin/internal/store"
	"assetadmin/internal/submit"
)

const moduleID = "premises"

func testCatalog() *catalog.Catalog {
	return catalog.New([]*catalog.Module{{
		ModuleDefinition: catalog.ModuleDefinition{ID: moduleID, Name: "Premises"},
		Sections: catalog.Structure{
			{Section: catalog.Section{ID: "gen", ModuleID: moduleID, Name: "General", Order: 1}, Fields: []catalog.FieldDefinition{
				{ID: "f.name", SectionID: "gen", Key: "premisesName", Label: "Premises name", Type: catalog.TypeText, Active: true},
				{ID: "f.state", SectionID: "gen", Key: "state", Label: "State", Type: catalog.TypeDropdown, Active: true},
				{ID: "f.furnished", SectionID: "gen", Key: "furnished", Label: "Furnished", Type: catalog.TypeCheckbox, Active: true},
			}},
			{Section: catalog.Section{ID: "lease", ModuleID: moduleID, Name: "Lease", Order: 2}, Fields: []catalog.FieldDefinition{
				{ID: "f.rent", SectionID: "lease", Key: "annualRent", Label: "Annual rent", Type: catalog.TypeText, Active: true},
				{ID: "f.agreement", SectionID: "lease", Key: "leaseAgreement", Label: "Lease agreement", Type: catalog.TypeFile,
					Placeholder: `JSON:{"reminder":true}`, Active: true},
			}},
		},
	}})
}

func testReference() *reference.Catalog {
	return reference.NewCatalog(map[string]reference.Directory{
		reference.Countries: {Name: reference.Countries, Items: []reference.Item{
			{Code: "AE", Name: "United Arab Emirates", Regions: []string{"Dubai", "Sharjah"}},
			{Code: "QA", Name: "Qatar"},
		}},
	})
}

var fullDims = scope.Dimensions{CountryID: "QA", PropertyTypeID: "COMMERCIAL", PremisesTypeID: "OFFICE", AreaID: "DT"}

type env struct {
	store *store.Memory
	ref   *reference.Catalog
	deps  Deps
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mem := store.NewMemory()
	ref := testReference()
	return &env{
		store: mem,
		ref:   ref,
		deps: Deps{
			Catalog:  testCatalog(),
			Resolver: scope.NewResolver(mem, nil),
			Mappings: mem,
			Regions:  ref,
			Records:  mem,
			Names:    func(d scope.Dimension, id string) string { return ref.DimensionName(string(d), id) },
		},
	}
}

func (e *env) addMapping(t *testing.T, d scope.Dimensions, fields ...string) scope.Mapping {
	t.Helper()
	m, err := e.store.CreateScopeMapping(context.Background(), scope.Mapping{
		ModuleID: moduleID, CompanyID: "c1", Dimensions: d, Active: true, SelectedFieldIDs: fields,
	})
	require.NoError(t, err)
	return m
}

// setDims проставляет измерения по одному, как это делает пользователь
func setDims(t *testing.T, c *Controller, d scope.Dimensions) State {
	t.Helper()
	var st State
	for _, dim := range scope.All {
		var err error
		st, err = c.ChangeDimension(context.Background(), dim, d.Get(dim))
		require.NoError(t, err)
	}
	return st
}

func keys(s catalog.Structure) []string {
	var out []string
	for _, sec := range s {
		for _, f := range sec.Fields {
			out = append(out, f.Key)
		}
	}
	return out
}

// gatedResolver задерживает ответ для запросов без propertyType, пока не закрыт release
type gatedResolver struct {
	inner   scope.FieldResolver
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (g *gatedResolver) Resolve(ctx context.Context, company, module string, q scope.Dimensions) scope.Selection {
	if q.CountryID != "" && q.PropertyTypeID == "" {
		g.once.Do(func() { close(g.started) })
		<-g.release
	}
	return g.inner.Resolve(ctx, company, module, q)
}

// flakyRecords падает на первом создании записи
type flakyRecords struct {
	*store.Memory
	failures int
}

func (f *flakyRecords) CreateRecord(ctx context.Context, p submit.Payload, actor string) (store.Record, error) {
	if f.failures > 0 {
		f.failures--
		return store.Record{}, errors.New("upstream unavailable")
	}
	return f.Memory.CreateRecord(ctx, p, actor)
}

type failingSource struct{}

func (failingSource) ListScopeMappings(context.Context, string) ([]scope.Mapping, error) {
	return nil, errors.New("timeout")
}

type failingRegions struct{}

func (failingRegions) ListRegions(context.Context, string) ([]reference.Region, error) {
	return nil, errors.New("lookup down")
}
