package scope

import (
	"encoding/json"
	"sort"
)

// Reason: почему получен именно такой набор полей
type Reason string

const (
	ReasonMapping        Reason = "mapping"
	ReasonNoMatch        Reason = "no_match"
	ReasonEmptySelection Reason = "empty_selection"
	ReasonFetchFailed    Reason = "fetch_failed"
)

// Selection: результат разрешения. Unrestricted=true, видны все поля модуля,
// FieldIDs при этом не используется.
type Selection struct {
	Unrestricted bool
	FieldIDs     map[string]struct{}
	Reason       Reason
	MappingIDs   []string
}

func Unrestricted(reason Reason) Selection {
	return Selection{Unrestricted: true, Reason: reason}
}

// IDs: отсортированные id (для ответа API и сравнения в тестах)
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s.FieldIDs))
	for id := range s.FieldIDs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type selectionJSON struct {
	Unrestricted bool     `json:"unrestricted"`
	Reason       Reason   `json:"reason"`
	FieldIDs     []string `json:"fieldIds"`
	MappingIDs   []string `json:"mappingIds,omitempty"`
}

func (s Selection) MarshalJSON() ([]byte, error) {
	out := selectionJSON{Unrestricted: s.Unrestricted, Reason: s.Reason, FieldIDs: []string{}, MappingIDs: s.MappingIDs}
	if !s.Unrestricted {
		out.FieldIDs = s.IDs()
	}
	return json.Marshal(out)
}

func (s *Selection) UnmarshalJSON(b []byte) error {
	var in selectionJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*s = Selection{Unrestricted: in.Unrestricted, Reason: in.Reason, MappingIDs: in.MappingIDs}
	if !in.Unrestricted {
		s.FieldIDs = make(map[string]struct{}, len(in.FieldIDs))
		for _, id := range in.FieldIDs {
			s.FieldIDs[id] = struct{}{}
		}
	}
	return nil
}

func (s Selection) Equal(o Selection) bool {
	if s.Unrestricted || o.Unrestricted {
		return s.Unrestricted == o.Unrestricted
	}
	if len(s.FieldIDs) != len(o.FieldIDs) {
		return false
	}
	for id := range s.FieldIDs {
		if _, ok := o.FieldIDs[id]; !ok {
			return false
		}
	}
	return true
}

// Matches: по каждому измерению значение маппинга либо пустое (wildcard),
// либо равно значению запроса.
func (m Mapping) Matches(moduleID string, q Dimensions) bool {
	if m.ModuleID != moduleID {
		return false
	}
	for _, dim := range All {
		if v := m.Get(dim); v != "" && v != q.Get(dim) {
			return false
		}
	}
	return true
}

// Matching: активные маппинги модуля, подходящие под запрос, в исходном порядке
func Matching(mappings []Mapping, moduleID string, q Dimensions) []Mapping {
	var out []Mapping
	for _, m := range mappings {
		if m.Active && m.Matches(moduleID, q) {
			out = append(out, m)
		}
	}
	return out
}

// Resolve объединяет выбранные поля всех подходящих маппингов.
// Нет совпадений или у совпавшего маппинга пустой набор, без ограничений.
func Resolve(mappings []Mapping, moduleID string, q Dimensions) Selection {
	matched := Matching(mappings, moduleID, q)
	if len(matched) == 0 {
		return Unrestricted(ReasonNoMatch)
	}
	sel := Selection{FieldIDs: map[string]struct{}{}, Reason: ReasonMapping}
	for _, m := range matched {
		sel.MappingIDs = append(sel.MappingIDs, m.ID)
		if len(m.SelectedFieldIDs) == 0 {
			u := Unrestricted(ReasonEmptySelection)
			u.MappingIDs = mappingIDs(matched)
			return u
		}
		// объединение, а не «самый специфичный выигрывает»
		for _, id := range m.SelectedFieldIDs {
			sel.FieldIDs[id] = struct{}{}
		}
	}
	return sel
}

// BestMatch: самый специфичный подходящий маппинг; при равенстве, первый по порядку.
func BestMatch(mappings []Mapping, moduleID string, q Dimensions) (Mapping, bool) {
	matched := Matching(mappings, moduleID, q)
	if len(matched) == 0 {
		return Mapping{}, false
	}
	best := matched[0]
	for _, m := range matched[1:] {
		if m.Specificity() > best.Specificity() {
			best = m
		}
	}
	return best, true
}

func mappingIDs(ms []Mapping) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}
