package pg

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"assetadmin/internal/scope"
	"assetadmin/internal/store"
	"assetadmin/internal/submit"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("assetadmin"),
		postgres.WithUsername("assetadmin"),
		postgres.WithPassword("assetadmin"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := Open(ctx, dsn, Pool{MaxOpen: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, ApplyDDL(ctx, db, DDL(), nil))
	// повторное применение ничего не ломает
	require.NoError(t, ApplyDDL(ctx, db, DDL(), nil))
	return db
}

func payload(name, city string, attrs map[string]any) submit.Payload {
	return submit.Payload{
		ModuleID:   "premises",
		CompanyID:  "c1",
		Dimensions: scope.Dimensions{CountryID: "AE", AreaID: "DT"},
		Name:       name,
		City:       city,
		Status:     submit.StatusActive,
		Usage:      submit.UsageOffice,
		Attributes: attrs,
		Lease:      submit.LeaseDetail{AnnualRent: 1000, PaymentFrequency: "YEARLY"},
	}
}

func TestStoreRecords(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openTestDB(t))

	rec, err := s.CreateRecord(ctx, payload("Tower", "Dubai", map[string]any{
		"floor": "3", "amenities": []string{"LIFT"}, "furnished": true,
	}), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version)

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tower", got.Name)
	assert.Equal(t, "AE", got.CountryID)
	assert.Equal(t, "3", got.Attributes["floor"])
	assert.Equal(t, []any{"LIFT"}, got.Attributes["amenities"])
	assert.Equal(t, true, got.Attributes["furnished"])
	assert.Equal(t, float64(1000), got.Lease.AnnualRent)
	assert.Equal(t, "alice", got.CreatedBy)

	_, err = s.UpdateRecord(ctx, rec.ID, 7, payload("X", "Y", nil), "bob")
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	_, err = s.UpdateRecord(ctx, "missing", 1, payload("X", "Y", nil), "bob")
	assert.ErrorIs(t, err, store.ErrNotFound)

	upd, err := s.UpdateRecord(ctx, rec.ID, 1, payload("Tower 2", "Dubai", map[string]any{}), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), upd.Version)
	assert.Equal(t, "bob", upd.UpdatedBy)

	require.NoError(t, s.DeleteRecord(ctx, rec.ID))
	_, err = s.GetRecord(ctx, rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRecord(ctx, rec.ID), store.ErrNotFound)
}

func TestStoreListRecords(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openTestDB(t))

	for _, p := range []submit.Payload{
		payload("Bravo", "Dubai", map[string]any{"floor": "2"}),
		payload("Alpha", "Riyadh", map[string]any{"floor": "1", "note": "near_metro"}),
		payload("Charlie", "", map[string]any{}),
	} {
		_, err := s.CreateRecord(ctx, p, "")
		require.NoError(t, err)
	}

	all, total, err := s.ListRecords(ctx, store.ListParams{Limit: 10, CompanyID: "c1", ModuleID: "premises"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "Bravo", all[0].Name)

	byCity, _, err := s.ListRecords(ctx, store.ListParams{Limit: 10, Sort: []store.SortKey{{Field: "city"}}})
	require.NoError(t, err)
	assert.Equal(t, "Charlie", byCity[2].Name, "empty city sorts last")

	byFloor, _, err := s.ListRecords(ctx, store.ListParams{Limit: 10, Sort: []store.SortKey{{Field: "floor", Desc: true}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bravo", "Alpha", "Charlie"}, []string{byFloor[0].Name, byFloor[1].Name, byFloor[2].Name})

	page, total, err := s.ListRecords(ctx, store.ListParams{Limit: 1, Offset: 1, Sort: []store.SortKey{{Field: "name"}}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Bravo", page[0].Name)

	found, total, err := s.ListRecords(ctx, store.ListParams{Limit: 10, Q: "near_"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Alpha", found[0].Name)
}

func TestStoreScopeMappings(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openTestDB(t))

	a, err := s.CreateScopeMapping(ctx, scope.Mapping{
		ModuleID: "premises", CompanyID: "c1", Active: true,
		Dimensions: scope.Dimensions{CountryID: "AE"}, SelectedFieldIDs: []string{"f1", "f2"},
	})
	require.NoError(t, err)
	b, err := s.CreateScopeMapping(ctx, scope.Mapping{ModuleID: "premises", CompanyID: "c1"})
	require.NoError(t, err)
	_, err = s.CreateScopeMapping(ctx, scope.Mapping{ModuleID: "premises", CompanyID: "c2"})
	require.NoError(t, err)

	list, err := s.ListScopeMappings(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
	assert.Equal(t, []string{"f1", "f2"}, list[0].SelectedFieldIDs)
	assert.Empty(t, list[1].SelectedFieldIDs)
	assert.False(t, list[1].Active)

	a.SelectedFieldIDs = []string{"f3"}
	a.Active = false
	upd, err := s.UpdateScopeMapping(ctx, a.ID, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"f3"}, upd.SelectedFieldIDs)
	assert.False(t, upd.Active)

	require.NoError(t, s.DeleteScopeMapping(ctx, a.ID))
	_, err = s.GetScopeMapping(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.UpdateScopeMapping(ctx, a.ID, a)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteScopeMapping(ctx, a.ID), store.ErrNotFound)
}
