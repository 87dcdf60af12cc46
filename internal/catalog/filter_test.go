package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testStructure() Structure {
	return Structure{
		{Section: Section{ID: "s1", Order: 1}, Fields: []FieldDefinition{
			{ID: "f1", Key: "a", Type: TypeText, Active: true},
			{ID: "f2", Key: "b", Type: TypeText, Active: true},
		}},
		{Section: Section{ID: "s2", Order: 2}, Fields: []FieldDefinition{
			{ID: "f3", Key: "c", Type: TypeDate, Active: true},
		}},
		{Section: Section{ID: "s3", Order: 3}},
	}
}

func set(ids ...string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestFilterStructure(t *testing.T) {
	full := testStructure()

	t.Run("unrestricted keeps everything but empty sections", func(t *testing.T) {
		out := FilterStructure(full, nil, true)
		assert.Len(t, out, 2)
		assert.Equal(t, 3, out.FieldCount())
	})

	t.Run("selection keeps order and drops empty sections", func(t *testing.T) {
		out := FilterStructure(full, set("f2", "f1"), false)
		if assert.Len(t, out, 1) {
			assert.Equal(t, "s1", out[0].ID)
			assert.Equal(t, "a", out[0].Fields[0].Key)
			assert.Equal(t, "b", out[0].Fields[1].Key)
		}
	})

	t.Run("empty restricted selection yields nothing", func(t *testing.T) {
		assert.Empty(t, FilterStructure(full, set(), false))
	})

	t.Run("unknown ids are ignored", func(t *testing.T) {
		out := FilterStructure(full, set("f3", "ghost"), false)
		assert.Len(t, out, 1)
		assert.Equal(t, 1, out.FieldCount())
	})

	t.Run("input is not mutated", func(t *testing.T) {
		_ = FilterStructure(full, set("f1"), false)
		assert.Len(t, full[0].Fields, 2)
	})
}

func TestExtraFields(t *testing.T) {
	f := FieldDefinition{Key: "titleDeed", Type: TypeFile,
		Placeholder: ` JSON:{"reminder":true,"issueDate":true,"bogus":true,"expiry":false}`}

	extras := ExtraFields(f)
	if assert.Len(t, extras, 2) {
		assert.Equal(t, "titleDeed_issueDate", extras[0].Key)
		assert.Equal(t, TypeDate, extras[0].Type)
		assert.Equal(t, "titleDeed_reminder", extras[1].Key)
		assert.Equal(t, TypeDropdown, extras[1].Type)
		assert.Len(t, extras[1].Options, len(ReminderDays))
	}
	assert.Equal(t, []string{"titleDeed", "titleDeed_issueDate", "titleDeed_reminder"}, OwnedKeys(f))

	assert.Empty(t, ParseExtraConfig("JSON:{broken"))
	assert.Empty(t, ParseExtraConfig(`{"expiry":true}`))

	text := FieldDefinition{Key: "x", Type: TypeText, Placeholder: `JSON:{"expiry":true}`}
	assert.Nil(t, ExtraFields(text))
	assert.Equal(t, []string{"x"}, OwnedKeys(text))
}
