package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func codes(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, it := range issues {
		out = append(out, it.Code)
	}
	return out
}

func TestLint(t *testing.T) {
	mods := []*Module{{
		ModuleDefinition: ModuleDefinition{ID: "m", Name: "M"},
		Sections: Structure{
			{Section: Section{ID: "s1", Name: "One"}, Fields: []FieldDefinition{
				{ID: "m.a", Key: "a", Type: TypeText},
				{ID: "m.state", Key: "state", Type: TypeDropdown},
				{ID: "m.kind", Key: "kind", Type: TypeRadio},
			}},
			{Section: Section{ID: "s2", Name: "Two"}, Fields: []FieldDefinition{
				{ID: "m.a2", Key: "a", Type: TypeText},
				{ID: "m.a", Key: "b", Type: "rating"},
				{ID: "m.doc", Key: "doc", Type: TypeFile, Placeholder: "JSON:{oops"},
			}},
		},
	}}

	issues := Lint(mods)
	assert.ElementsMatch(t,
		[]string{"choice_without_options", "duplicate_key", "duplicate_id", "unknown_type", "extra_config_ignored"},
		codes(issues))
	assert.True(t, HasBlocking(issues))
}

func TestLintClean(t *testing.T) {
	issues := Lint([]*Module{{
		ModuleDefinition: ModuleDefinition{ID: "m"},
		Sections: Structure{{Section: Section{ID: "s"}, Fields: []FieldDefinition{
			{ID: "m.a", Key: "a", Type: TypeDropdown, Options: []Option{{Value: "X", Label: "X"}}},
		}}},
	}})
	assert.Empty(t, issues)
	assert.False(t, HasBlocking(issues))
}

func TestIsRegionField(t *testing.T) {
	assert.True(t, IsRegionField(FieldDefinition{Key: "state"}))
	assert.True(t, IsRegionField(FieldDefinition{Key: "billingRegion"}))
	assert.True(t, IsRegionField(FieldDefinition{Key: "x", Label: "State / Province"}))
	assert.False(t, IsRegionField(FieldDefinition{Key: "realEstateType", Label: "Real estate type"}))
}
