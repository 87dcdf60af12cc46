package catalog

import (
	"fmt"
	"strings"
)

type Issue struct {
	Module  string `json:"module"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	// Blocking: каталог с такой проблемой не применяем
	Blocking bool `json:"blocking"`
}

// Lint проверяет базовые противоречия каталога.
func Lint(modules []*Module) []Issue {
	var issues []Issue

	for _, m := range modules {
		keys := map[string]string{}
		ids := map[string]struct{}{}
		for _, s := range m.Sections {
			for _, f := range s.Fields {
				// key: имя атрибута записи, поэтому уникален на весь модуль
				if prev, dup := keys[f.Key]; dup {
					issues = append(issues, Issue{
						Module: m.ID, Field: f.Key, Code: "duplicate_key", Blocking: true,
						Message: fmt.Sprintf("field key %q already declared in section %q", f.Key, prev),
					})
				}
				keys[f.Key] = s.Name

				if _, dup := ids[f.ID]; dup {
					issues = append(issues, Issue{
						Module: m.ID, Field: f.Key, Code: "duplicate_id", Blocking: true,
						Message: fmt.Sprintf("field id %q is not unique", f.ID),
					})
				}
				ids[f.ID] = struct{}{}

				if !f.Type.Known() {
					issues = append(issues, Issue{
						Module: m.ID, Field: f.Key, Code: "unknown_type", Blocking: true,
						Message: fmt.Sprintf("unknown field type %q", f.Type),
					})
					continue
				}
				if f.Type.IsChoice() && len(f.Options) == 0 && !isRegionLike(f) {
					issues = append(issues, Issue{
						Module: m.ID, Field: f.Key, Code: "choice_without_options",
						Message: "choice field has no options",
					})
				}
				if f.Type.IsAttachment() && strings.HasPrefix(strings.TrimSpace(f.Placeholder), ExtraPrefix) &&
					len(ParseExtraConfig(f.Placeholder)) == 0 {
					// не блокирует: при разборе битая конфигурация = пустая
					issues = append(issues, Issue{
						Module: m.ID, Field: f.Key, Code: "extra_config_ignored",
						Message: "embedded config is malformed or has no recognized keys",
					})
				}
			}
		}
	}
	return issues
}

// HasBlocking: есть ли среди issues блокирующие
func HasBlocking(issues []Issue) bool {
	for _, it := range issues {
		if it.Blocking {
			return true
		}
	}
	return false
}

// IsRegionField: опции такого поля подменяются списком регионов выбранной страны.
func IsRegionField(f FieldDefinition) bool { return isRegionLike(f) }

func isRegionLike(f FieldDefinition) bool {
	k := strings.ToLower(f.Key)
	if k == "state" || k == "region" || strings.HasSuffix(k, "_state") || strings.HasSuffix(k, "_region") ||
		strings.HasSuffix(f.Key, "State") || strings.HasSuffix(f.Key, "Region") {
		return true
	}
	// "Real estate type" не считается
	words := strings.FieldsFunc(strings.ToLower(f.Label), func(r rune) bool { return r < 'a' || r > 'z' })
	for _, w := range words {
		if w == "state" || w == "region" {
			return true
		}
	}
	return false
}
