package scope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapping(id string, d Dimensions, fields ...string) Mapping {
	return Mapping{ID: id, ModuleID: "premises", CompanyID: "c1", Dimensions: d, Active: true, SelectedFieldIDs: fields}
}

var ae = Dimensions{CountryID: "AE", PropertyTypeID: "COMMERCIAL", PremisesTypeID: "OFFICE", AreaID: "DT"}

func TestParseDimension(t *testing.T) {
	for in, want := range map[string]Dimension{
		"country":        Country,
		"countryId":      Country,
		"property_type":  PropertyType,
		"premisesTypeId": PremisesType,
		"premise-type":   PremisesType,
		" AREA ":         Area,
	} {
		got, err := ParseDimension(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDimension("city")
	assert.Error(t, err)
}

func TestDimensions(t *testing.T) {
	d := Dimensions{}.With(Country, " AE ").With(Area, "DT")
	assert.Equal(t, "AE", d.Get(Country))
	assert.Equal(t, []Dimension{PropertyType, PremisesType}, d.Missing())
	assert.Equal(t, 2, d.Specificity())
}

func TestMatchesWildcards(t *testing.T) {
	m := mapping("m1", Dimensions{CountryID: "AE"})
	assert.True(t, m.Matches("premises", ae))
	assert.False(t, m.Matches("vehicles", ae))
	assert.False(t, m.Matches("premises", ae.With(Country, "SA")))
	// незаданное измерение запроса не совпадает с конкретным значением маппинга
	assert.False(t, m.Matches("premises", Dimensions{}))

	all := mapping("m0", Dimensions{})
	assert.True(t, all.Matches("premises", Dimensions{}))
}

func TestResolveUnion(t *testing.T) {
	ms := []Mapping{
		mapping("01A", Dimensions{CountryID: "AE"}, "f1", "f2"),
		mapping("01B", ae, "f2", "f3"),
		mapping("01C", Dimensions{CountryID: "SA"}, "f9"),
	}
	sel := Resolve(ms, "premises", ae)
	assert.False(t, sel.Unrestricted)
	assert.Equal(t, ReasonMapping, sel.Reason)
	assert.Equal(t, []string{"f1", "f2", "f3"}, sel.IDs())
	assert.Equal(t, []string{"01A", "01B"}, sel.MappingIDs)
}

func TestAllWildcardMappingAppliesToAnyTuple(t *testing.T) {
	ms := []Mapping{mapping("m0", Dimensions{}, "A", "B")}
	for _, q := range []Dimensions{
		{},
		ae,
		{CountryID: "QA"},
		{PropertyTypeID: "RESIDENTIAL", AreaID: "MARINA"},
	} {
		sel := Resolve(ms, "premises", q)
		assert.False(t, sel.Unrestricted, "%+v", q)
		assert.Equal(t, []string{"A", "B"}, sel.IDs(), "%+v", q)
		assert.Equal(t, []string{"m0"}, sel.MappingIDs)
	}
	// другой модуль под маппинг не попадает
	assert.True(t, Resolve(ms, "parking", ae).Unrestricted)
}

func TestResolveUnrestrictedCases(t *testing.T) {
	t.Run("no match", func(t *testing.T) {
		sel := Resolve([]Mapping{mapping("x", Dimensions{CountryID: "SA"}, "f1")}, "premises", ae)
		assert.True(t, sel.Unrestricted)
		assert.Equal(t, ReasonNoMatch, sel.Reason)
	})

	t.Run("empty selection on a match", func(t *testing.T) {
		sel := Resolve([]Mapping{
			mapping("a", Dimensions{CountryID: "AE"}, "f1"),
			mapping("b", ae),
		}, "premises", ae)
		assert.True(t, sel.Unrestricted)
		assert.Equal(t, ReasonEmptySelection, sel.Reason)
		assert.Equal(t, []string{"a", "b"}, sel.MappingIDs)
	})

	t.Run("inactive ignored", func(t *testing.T) {
		m := mapping("a", ae, "f1")
		m.Active = false
		assert.Equal(t, ReasonNoMatch, Resolve([]Mapping{m}, "premises", ae).Reason)
	})
}

func TestResolveIsOrderIndependent(t *testing.T) {
	a := mapping("a", Dimensions{CountryID: "AE"}, "f1")
	b := mapping("b", Dimensions{AreaID: "DT"}, "f2")
	assert.True(t, Resolve([]Mapping{a, b}, "premises", ae).Equal(Resolve([]Mapping{b, a}, "premises", ae)))
}

func TestBestMatch(t *testing.T) {
	ms := []Mapping{
		mapping("01A", Dimensions{CountryID: "AE"}, "f1"),
		mapping("01B", Dimensions{CountryID: "AE", AreaID: "DT"}, "f2"),
		mapping("01C", Dimensions{CountryID: "AE", PremisesTypeID: "OFFICE"}, "f3"),
	}
	best, ok := BestMatch(ms, "premises", ae)
	require.True(t, ok)
	assert.Equal(t, "01B", best.ID, "ties go to the earliest mapping")

	_, ok = BestMatch(ms, "premises", Dimensions{CountryID: "QA"})
	assert.False(t, ok)
}

func TestSelectionJSON(t *testing.T) {
	b, err := json.Marshal(Unrestricted(ReasonFetchFailed))
	require.NoError(t, err)
	assert.JSONEq(t, `{"unrestricted":true,"reason":"fetch_failed","fieldIds":[]}`, string(b))

	sel := Selection{FieldIDs: map[string]struct{}{"b": {}, "a": {}}, Reason: ReasonMapping, MappingIDs: []string{"m"}}
	b, err = json.Marshal(sel)
	require.NoError(t, err)
	assert.JSONEq(t, `{"unrestricted":false,"reason":"mapping","fieldIds":["a","b"],"mappingIds":["m"]}`, string(b))

	var back Selection
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(sel))
	assert.Equal(t, []string{"m"}, back.MappingIDs)
}
