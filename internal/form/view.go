package form

import (
	"errors"

	"assetadmin/internal/catalog"
	"assetadmin/internal/scope"
	"assetadmin/internal/submit"
)

// View: снимок формы для клиента
type View struct {
	Phase         Phase            `json:"phase"`
	Step          int              `json:"step"`
	StepCount     int              `json:"stepCount"`
	ModuleID      string           `json:"moduleId"`
	CompanyID     string           `json:"companyId"`
	RecordID      string           `json:"recordId,omitempty"`
	RecordVersion int64            `json:"recordVersion,omitempty"`
	ViewOnly      bool             `json:"viewOnly"`
	Dimensions    scope.Dimensions `json:"dimensions"`
	Status        string           `json:"status"`
	Region        string           `json:"region"`
	Regions       []string         `json:"regions"`
	Selection     scope.Selection  `json:"selection"`
	Sections      []SectionView    `json:"sections"`
	Values        catalog.Values   `json:"values"`
	Error         *ErrorView       `json:"error,omitempty"`
}

type SectionView struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Step   int         `json:"step"`
	Fields []FieldView `json:"fields"`
}

type FieldView struct {
	ID          string               `json:"id"`
	Key         string               `json:"key"`
	Label       string               `json:"label"`
	Type        catalog.FieldType    `json:"type"`
	Required    bool                 `json:"required"`
	Placeholder string               `json:"placeholder,omitempty"`
	Options     []catalog.Option     `json:"options,omitempty"`
	Extras      []catalog.ExtraField `json:"extras,omitempty"`
}

// ErrorView повторяет формат ошибок API: code/field/message
type ErrorView struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Step    int    `json:"step,omitempty"`
}

// Render строит View из состояния. Поля-регионы получают список регионов страны вместо
// опций каталога; плейсхолдер со встроенной схемой наружу не отдаётся.
func Render(st State) View {
	v := View{
		Phase:         st.Phase,
		Step:          st.Step,
		StepCount:     len(st.Structure) + 1,
		ModuleID:      st.ModuleID,
		CompanyID:     st.CompanyID,
		RecordID:      st.RecordID,
		RecordVersion: st.RecordVersion,
		ViewOnly:      st.ViewOnly,
		Dimensions:    st.Dimensions,
		Status:        st.Status,
		Region:        st.Region,
		Regions:       append([]string{}, st.Regions...),
		Selection:     st.Selection,
		Sections:      make([]SectionView, 0, len(st.Structure)),
		Values:        st.Values.Clone(),
	}

	for i, sec := range st.Structure {
		sv := SectionView{ID: sec.ID, Name: sec.Name, Step: i + 1, Fields: make([]FieldView, 0, len(sec.Fields))}
		for _, f := range sec.Fields {
			fv := FieldView{
				ID:       f.ID,
				Key:      f.Key,
				Label:    f.Label,
				Type:     f.Type,
				Required: !f.Type.IsBoolean(),
				Options:  f.Options,
				Extras:   catalog.ExtraFields(f),
			}
			if !f.Type.IsAttachment() {
				fv.Placeholder = f.Placeholder
			}
			if catalog.IsRegionField(f) && len(st.Regions) > 0 {
				fv.Options = make([]catalog.Option, 0, len(st.Regions))
				for _, r := range st.Regions {
					fv.Options = append(fv.Options, catalog.Option{Value: r, Label: r})
				}
			}
			sv.Fields = append(sv.Fields, fv)
		}
		v.Sections = append(v.Sections, sv)
	}

	if st.Err != nil {
		v.Error = errorView(st.Err)
	}
	return v
}

func errorView(err error) *ErrorView {
	var verr *submit.ValidationError
	if errors.As(err, &verr) {
		return &ErrorView{Code: string(verr.Kind), Field: verr.Field, Message: verr.Error(), Step: verr.Section + 1}
	}
	return &ErrorView{Code: "error", Message: err.Error()}
}
