package catalog

import (
	"encoding/json"
	"strings"
)

// ExtraPrefix: маркер встроенной мини-схемы в placeholder у file/image
const ExtraPrefix = "JSON:"

// Подполя встроенной схемы; ключ подполя = <field.key>_<suffix>
const (
	ExtraPolicyNo     = "policyNo"
	ExtraIssueDate    = "issueDate"
	ExtraStartDate    = "startDate"
	ExtraEndDate      = "endDate"
	ExtraExpiry       = "expiry"
	ExtraCoverageType = "coverageType"
	ExtraReminder     = "reminder"
)

// порядок отображения подполей
var extraOrder = []string{
	ExtraPolicyNo, ExtraIssueDate, ExtraStartDate, ExtraEndDate,
	ExtraExpiry, ExtraCoverageType, ExtraReminder,
}

// ReminderDays: допустимые значения напоминания (дни)
var ReminderDays = []string{"30", "60", "90"}

// ExtraConfig: распознанные флаги встроенной схемы
type ExtraConfig map[string]bool

// ParseExtraConfig никогда не возвращает ошибку: битый JSON или отсутствие префикса
// дают пустую конфигурацию.
func ParseExtraConfig(placeholder string) ExtraConfig {
	s := strings.TrimSpace(placeholder)
	if !strings.HasPrefix(s, ExtraPrefix) {
		return ExtraConfig{}
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(strings.TrimPrefix(s, ExtraPrefix)), &raw); err != nil {
		return ExtraConfig{}
	}
	out := ExtraConfig{}
	for _, k := range extraOrder {
		if on, _ := raw[k].(bool); on {
			out[k] = true
		}
	}
	return out
}

// ExtraField: синтезированное подполе, в каталоге его нет
type ExtraField struct {
	Key     string    `json:"key"`
	Suffix  string    `json:"suffix"`
	Type    FieldType `json:"type"`
	Options []Option  `json:"options,omitempty"`
}

// ExtraFields возвращает подполя для file/image поля; для остальных типов, nil.
func ExtraFields(f FieldDefinition) []ExtraField {
	if !f.Type.IsAttachment() {
		return nil
	}
	cfg := ParseExtraConfig(f.Placeholder)
	if len(cfg) == 0 {
		return nil
	}
	out := make([]ExtraField, 0, len(cfg))
	for _, k := range extraOrder {
		if !cfg[k] {
			continue
		}
		ef := ExtraField{Key: f.Key + "_" + k, Suffix: k, Type: TypeText}
		switch k {
		case ExtraIssueDate, ExtraStartDate, ExtraEndDate, ExtraExpiry:
			ef.Type = TypeDate
		case ExtraReminder:
			ef.Type = TypeDropdown
			for _, d := range ReminderDays {
				ef.Options = append(ef.Options, Option{Value: d, Label: d + " days"})
			}
		}
		out = append(out, ef)
	}
	return out
}

// ClosedOptions: варианты, вне которых значение поля недопустимо. У radio список
// закрытый; dropdown и multiselect открыты, их варианты могут прийти из справочника.
func ClosedOptions(f FieldDefinition) []Option {
	if f.Type == TypeRadio {
		return f.Options
	}
	return nil
}

// OwnedKeys: ключ поля плюс ключи его подполей
func OwnedKeys(f FieldDefinition) []string {
	keys := []string{f.Key}
	for _, ef := range ExtraFields(f) {
		keys = append(keys, ef.Key)
	}
	return keys
}
