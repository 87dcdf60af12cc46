package catalog

// FieldType: тип поля каталога
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeTextarea    FieldType = "textarea"
	TypeDropdown    FieldType = "dropdown"
	TypeMultiselect FieldType = "multiselect"
	TypeRadio       FieldType = "radio"
	TypeCheckbox    FieldType = "checkbox"
	TypeSwitch      FieldType = "switch"
	TypeDate        FieldType = "date"
	TypeDatetime    FieldType = "datetime"
	TypeTime        FieldType = "time"
	TypeFile        FieldType = "file"
	TypeImage       FieldType = "image"
)

var knownTypes = map[FieldType]struct{}{
	TypeText: {}, TypeTextarea: {}, TypeDropdown: {}, TypeMultiselect: {}, TypeRadio: {},
	TypeCheckbox: {}, TypeSwitch: {}, TypeDate: {}, TypeDatetime: {}, TypeTime: {},
	TypeFile: {}, TypeImage: {},
}

func (t FieldType) Known() bool { _, ok := knownTypes[t]; return ok }

// IsBoolean: false: полноценный ответ, такие поля никогда не обязательны.
func (t FieldType) IsBoolean() bool { return t == TypeCheckbox || t == TypeSwitch }

func (t FieldType) IsChoice() bool {
	return t == TypeDropdown || t == TypeMultiselect || t == TypeRadio
}

func (t FieldType) IsAttachment() bool { return t == TypeFile || t == TypeImage }

// ModuleDefinition: настраиваемая схема данных (например, Premises)
type ModuleDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Section struct {
	ID       string `json:"id"`
	ModuleID string `json:"moduleId"`
	Name     string `json:"name"`
	Order    int    `json:"order"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldDefinition описывает поле секции. Key уникален в пределах модуля:
// он же имя атрибута записи.
type FieldDefinition struct {
	ID          string    `json:"id"`
	SectionID   string    `json:"sectionId"`
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Active      bool      `json:"active"`
}

// SectionFields: секция вместе с упорядоченными полями
type SectionFields struct {
	Section
	Fields []FieldDefinition `json:"fields"`
}

// Structure: дерево секций/полей модуля в порядке отображения
type Structure []SectionFields

// FieldByKey ищет поле по ключу во всём дереве.
func (s Structure) FieldByKey(key string) (FieldDefinition, int, bool) {
	for i, sec := range s {
		for _, f := range sec.Fields {
			if f.Key == key {
				return f, i, true
			}
		}
	}
	return FieldDefinition{}, -1, false
}

func (s Structure) HasKey(key string) bool {
	_, _, ok := s.FieldByKey(key)
	return ok
}

func (s Structure) FieldCount() int {
	n := 0
	for _, sec := range s {
		n += len(sec.Fields)
	}
	return n
}

func (s Structure) Clone() Structure {
	out := make(Structure, len(s))
	for i, sec := range s {
		out[i] = SectionFields{Section: sec.Section, Fields: append([]FieldDefinition(nil), sec.Fields...)}
	}
	return out
}
