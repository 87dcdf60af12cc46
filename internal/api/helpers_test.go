package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"assetadmin/internal/catalog"
	"assetadmin/internal/files"
	"assetadmin/internal/form"
	"assetadmin/internal/reference"
	"assetadmin/internal/scope"
	"assetadmin/internal/store"
)

const testCatalogSrc = `
module Premises

section "General Info" order=1
  premisesName: text label="Premises name"
  usage: dropdown[OFFICE, VILLA] label="Usage"

section Lease order=2
  annualRent: text label="Annual rent"
  furnished: checkbox label="Furnished"
`

type testEnv struct {
	router  *gin.Engine
	storage *Storage
	store   *store.Memory
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mods, err := catalog.Parse(strings.NewReader(testCatalogSrc), "test")
	require.NoError(t, err)
	cat := catalog.New(mods)
	ref := reference.NewCatalog(map[string]reference.Directory{
		reference.Countries: {Name: reference.Countries, Items: []reference.Item{
			{Code: "AE", Name: "United Arab Emirates", Regions: []string{"Dubai"}},
			{Code: "QA", Name: "Qatar"},
		}},
	})
	mem := store.NewMemory()
	resolver := scope.NewResolver(mem, nil)

	storage := &Storage{
		Catalog:   cat,
		Reference: ref,
		Store:     mem,
		Resolver:  resolver,
		Blob:      files.NewLocal(t.TempDir()),
		Reload: func(context.Context) ([]*catalog.Module, map[string]reference.Directory, error) {
			return mods, nil, nil
		},
		DateFormat: "2006-01-02",
	}
	storage.Sessions = form.NewSessions(form.Deps{
		Catalog:  cat,
		Resolver: resolver,
		Mappings: mem,
		Regions:  ref,
		Records:  mem,
		Names:    storage.DimensionName,
	}, 0)

	return &testEnv{router: NewRouter(storage, token), storage: storage, store: mem}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorsBody struct {
	Errors []FieldError `json:"errors"`
}

func firstError(t *testing.T, w *httptest.ResponseRecorder) FieldError {
	t.Helper()
	body := decode[errorsBody](t, w)
	require.NotEmpty(t, body.Errors, w.Body.String())
	return body.Errors[0]
}

func dims(country string) map[string]any {
	return map[string]any{
		"countryId": country, "propertyTypeId": "COMMERCIAL", "premisesTypeId": "OFFICE", "areaId": "DT",
	}
}

func recordBody(values map[string]any) map[string]any {
	b := dims("QA")
	b["moduleId"] = "premises"
	b["companyId"] = "c1"
	b["values"] = values
	return b
}
