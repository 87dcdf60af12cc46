package catalog

// FilterStructure оставляет только поля из selected, сохраняя порядок секций и полей.
// unrestricted=true: пропуск всех полей (пустое selected тут ничего не значит).
// Секции без полей не возвращаются никогда.
func FilterStructure(full Structure, selected map[string]struct{}, unrestricted bool) Structure {
	out := make(Structure, 0, len(full))
	for _, sec := range full {
		fields := make([]FieldDefinition, 0, len(sec.Fields))
		for _, f := range sec.Fields {
			if unrestricted {
				fields = append(fields, f)
				continue
			}
			if _, ok := selected[f.ID]; ok {
				fields = append(fields, f)
			}
		}
		if len(fields) == 0 {
			continue
		}
		out = append(out, SectionFields{Section: sec.Section, Fields: fields})
	}
	return out
}
