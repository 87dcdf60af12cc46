package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetadmin/internal/scope"
	"assetadmin/internal/submit"
)

func payload(name, city string) submit.Payload {
	return submit.Payload{
		ModuleID:   "premises",
		CompanyID:  "c1",
		Dimensions: scope.Dimensions{CountryID: "AE"},
		Name:       name,
		City:       city,
		Status:     submit.StatusActive,
		Usage:      submit.UsageOffice,
		Attributes: map[string]any{"premisesName": name, "floor": "3"},
	}
}

func TestMemoryRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	rec, err := s.CreateRecord(ctx, payload("Tower", "Dubai"), "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, "alice", rec.CreatedBy)

	// копии не разделяют мешок атрибутов
	rec.Attributes["floor"] = "99"
	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "3", got.Attributes["floor"])

	_, err = s.UpdateRecord(ctx, rec.ID, 5, payload("Tower B", "Dubai"), "bob")
	assert.ErrorIs(t, err, ErrVersionConflict)

	upd, err := s.UpdateRecord(ctx, rec.ID, 1, payload("Tower B", "Dubai"), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), upd.Version)
	assert.Equal(t, "Tower B", upd.Name)
	assert.Equal(t, "bob", upd.UpdatedBy)

	_, err = s.UpdateRecord(ctx, rec.ID, 0, payload("Tower C", "Dubai"), "bob")
	require.NoError(t, err, "zero version skips the check")

	require.NoError(t, s.DeleteRecord(ctx, rec.ID))
	_, err = s.GetRecord(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteRecord(ctx, rec.ID), ErrNotFound)
	_, err = s.UpdateRecord(ctx, "missing", 0, payload("x", "y"), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for _, p := range []submit.Payload{payload("Bravo", "Dubai"), payload("Alpha", "Riyadh"), payload("Charlie", "")} {
		_, err := s.CreateRecord(ctx, p, "")
		require.NoError(t, err)
	}
	other := payload("Zulu", "Doha")
	other.CompanyID = "c2"
	_, err := s.CreateRecord(ctx, other, "")
	require.NoError(t, err)

	all, total, err := s.ListRecords(ctx, ListParams{Limit: 10, CompanyID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "Bravo", all[0].Name, "creation order by default")

	byCity, _, err := s.ListRecords(ctx, ListParams{Limit: 10, CompanyID: "c1", Sort: []SortKey{{Field: "city"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dubai", "Riyadh", ""}, []string{byCity[0].City, byCity[1].City, byCity[2].City}, "empty last")

	page, total, err := s.ListRecords(ctx, ListParams{Limit: 1, Offset: 1, Sort: []SortKey{{Field: "name", Desc: true}}})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Charlie", page[0].Name)

	found, total, err := s.ListRecords(ctx, ListParams{Limit: 10, Q: "riy"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Alpha", found[0].Name)
}

func TestMemoryScopeMappings(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	a, err := s.CreateScopeMapping(ctx, scope.Mapping{ModuleID: "premises", CompanyID: "c1", Active: true, SelectedFieldIDs: []string{"f1"}})
	require.NoError(t, err)
	b, err := s.CreateScopeMapping(ctx, scope.Mapping{ModuleID: "premises", CompanyID: "c1", Active: true})
	require.NoError(t, err)
	_, err = s.CreateScopeMapping(ctx, scope.Mapping{ModuleID: "premises", CompanyID: "c2"})
	require.NoError(t, err)
	assert.Less(t, a.ID, b.ID)

	list, err := s.ListScopeMappings(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, []string{}, list[1].SelectedFieldIDs)

	all, err := s.ListScopeMappings(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	a.SelectedFieldIDs = []string{"f1", "f2"}
	upd, err := s.UpdateScopeMapping(ctx, a.ID, a)
	require.NoError(t, err)
	assert.Equal(t, a.CreatedAt, upd.CreatedAt)
	got, err := s.GetScopeMapping(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, got.SelectedFieldIDs)

	require.NoError(t, s.DeleteScopeMapping(ctx, a.ID))
	_, err = s.GetScopeMapping(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateScopeMapping(ctx, a.ID, a)
	assert.ErrorIs(t, err, ErrNotFound)
}
