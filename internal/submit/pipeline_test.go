package submit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetadmin/internal/catalog"
	"assetadmin/internal/scope"
)

var dims = scope.Dimensions{CountryID: "AE", PropertyTypeID: "COMMERCIAL", PremisesTypeID: "OFFICE", AreaID: "DT"}

func structure() catalog.Structure {
	return catalog.Structure{
		{Section: catalog.Section{ID: "gen"}, Fields: []catalog.FieldDefinition{
			{ID: "f.city", Key: "city", Label: "City", Type: catalog.TypeText},
			{ID: "f.usage", Key: "usage", Label: "Usage", Type: catalog.TypeDropdown},
		}},
		{Section: catalog.Section{ID: "fac"}, Fields: []catalog.FieldDefinition{
			{ID: "f.furnished", Key: "furnished", Label: "Furnished", Type: catalog.TypeCheckbox},
			{ID: "f.rent", Key: "annualRent", Label: "Annual rent", Type: catalog.TypeText},
		}},
	}
}

func validInput() Input {
	return Input{
		ModuleID:   "premises",
		CompanyID:  "c1",
		Structure:  structure(),
		Dimensions: dims,
		Values: catalog.Values{
			"city":       catalog.String("Dubai"),
			"usage":      catalog.String("villa"),
			"annualRent": catalog.String("120,000"),
		},
	}
}

func TestNormalizeMissingDimension(t *testing.T) {
	in := validInput()
	in.Dimensions = dims.With(scope.PremisesType, "").With(scope.Area, "")

	_, err := Normalize(in)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, MissingDimension, ve.Kind)
	assert.Equal(t, "premisesType", ve.Field, "first missing dimension wins")
	assert.Equal(t, -1, ve.Section)

	// имени достаточно
	in.DimensionNames = scope.Dimensions{PremisesTypeID: "Office", AreaID: "Downtown"}
	_, err = Normalize(in)
	assert.NoError(t, err)
}

func TestNormalizeMissingField(t *testing.T) {
	in := validInput()
	in.Values["annualRent"] = catalog.String("  ")

	_, err := Normalize(in)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, MissingField, ve.Kind)
	assert.Equal(t, "annualRent", ve.Field)
	assert.Equal(t, 1, ve.Section)
	assert.Equal(t, "Annual rent is required", ve.Error())
}

func TestNormalizeBooleansNeverRequired(t *testing.T) {
	in := validInput()
	delete(in.Values, "furnished")
	_, err := Normalize(in)
	assert.NoError(t, err)
}

func TestNormalizePayload(t *testing.T) {
	in := validInput()
	in.Values["premiseName"] = catalog.String("Tower A")
	in.Values["building"] = catalog.String("Block 2")
	in.Values["leaseAgreement_reminder"] = catalog.String("60")
	in.Status = "draft"
	in.Region = " Dubai "

	p, err := Normalize(in)
	require.NoError(t, err)

	assert.Equal(t, "Tower A", p.Name)
	assert.Equal(t, "Block 2", p.Building)
	assert.Equal(t, UsageStaff, p.Usage)
	assert.Equal(t, "Dubai", p.City)
	assert.Equal(t, "Dubai", p.Region)
	assert.Equal(t, "DRAFT", p.Status)
	assert.Equal(t, float64(120000), p.Lease.AnnualRent)
	assert.Equal(t, 60, p.Lease.ReminderDays)
	assert.Equal(t, "YEARLY", p.Lease.PaymentFrequency)
	assert.Equal(t, "OWNED", p.Ownership.OwnershipType)
	assert.Equal(t, notAvailable, p.Ownership.OwnerName)
	assert.Equal(t, "Tower A", p.Attributes[KeyName])
	// входные значения не меняются
	assert.False(t, in.Values.Present(KeyName))
}

func TestNormalizeDefaults(t *testing.T) {
	p, err := Normalize(validInput())
	require.NoError(t, err)
	assert.Equal(t, DefaultName, p.Name)
	assert.Equal(t, DefaultBuilding, p.Building)
	assert.Equal(t, StatusActive, p.Status)

	// канонический ключ виден, но пуст: литерал не подставляется, поле обязано быть заполнено
	in := validInput()
	in.Structure[0].Fields = append(in.Structure[0].Fields,
		catalog.FieldDefinition{ID: "f.name", Key: KeyName, Label: "Premises name", Type: catalog.TypeText})
	_, err = Normalize(in)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, KeyName, ve.Field)
}

func TestLegacyNameAlias(t *testing.T) {
	in := validInput()
	in.Values["premicesNameAlt"] = catalog.String("X")
	p, err := Normalize(in)
	require.NoError(t, err)
	assert.Equal(t, "X", p.Name)
	assert.Equal(t, "X", p.Attributes[KeyName])
}

func TestAliasDoesNotOverrideCanonical(t *testing.T) {
	in := validInput()
	in.Values[KeyName] = catalog.String("Canonical")
	in.Values["premiseName"] = catalog.String("Alias")
	p, err := Normalize(in)
	require.NoError(t, err)
	assert.Equal(t, "Canonical", p.Name)
}

func TestNormalizeUsage(t *testing.T) {
	for raw, want := range map[string]string{
		"office": UsageOffice, "SHOP": UsageOffice, "Factory": UsageOffice,
		"warehouse": UsageWarehouse, "flat": UsageStaff, "VILLA": UsageStaff,
		"": UsageOther, "garage": UsageOther,
	} {
		got := NormalizeUsage(raw)
		assert.Equal(t, want, got, raw)
		assert.Equal(t, got, NormalizeUsage(got), "idempotent for %q", raw)
	}
}

func TestNormalizeBindsBestMapping(t *testing.T) {
	in := validInput()
	in.Mappings = []scope.Mapping{
		{ID: "01A", ModuleID: "premises", Active: true, Dimensions: scope.Dimensions{CountryID: "AE"}},
		{ID: "01B", ModuleID: "premises", Active: true, Dimensions: scope.Dimensions{CountryID: "AE", AreaID: "DT"}},
		{ID: "01C", ModuleID: "premises", Active: false, Dimensions: dims},
	}
	p, err := Normalize(in)
	require.NoError(t, err)
	assert.Equal(t, "01B", p.ScopeMappingID)
}

func TestUsageOnlyWhenModuleKnowsIt(t *testing.T) {
	t.Run("no usage field and no value", func(t *testing.T) {
		in := validInput()
		in.Structure = catalog.Structure{in.Structure[1]}
		delete(in.Values, KeyUsage)
		p, err := Normalize(in)
		require.NoError(t, err)
		assert.Empty(t, p.Usage)
		assert.NotContains(t, p.Attributes, KeyUsage)
	})

	t.Run("value without field is still normalized", func(t *testing.T) {
		in := validInput()
		in.Structure = catalog.Structure{in.Structure[1]}
		in.Values[KeyUsage] = catalog.String("shop")
		p, err := Normalize(in)
		require.NoError(t, err)
		assert.Equal(t, UsageOffice, p.Usage)
	})

	t.Run("field without value falls back to OTHER", func(t *testing.T) {
		in := validInput()
		in.Structure[0].Fields[1].Type = catalog.TypeCheckbox // не обязателен
		delete(in.Values, KeyUsage)
		p, err := Normalize(in)
		require.NoError(t, err)
		assert.Equal(t, UsageOther, p.Usage)
	})
}
