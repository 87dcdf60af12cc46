package form

import (
	"errors"

	"assetadmin/internal/catalog"
	"assetadmin/internal/scope"
	"assetadmin/internal/submit"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseLoading    Phase = "loading_structure"
	PhaseGeneral    Phase = "general_info"
	PhaseSection    Phase = "section"
	PhaseReady      Phase = "ready_to_submit"
	PhaseSubmitting Phase = "submitting"
	PhaseViewOnly   Phase = "view_only"
)

var (
	ErrNoModule     = errors.New("no module loaded")
	ErrWrongPhase   = errors.New("operation not allowed in current phase")
	ErrReadOnly     = errors.New("form is read-only")
	ErrUnknownField = errors.New("field is not visible in this form")
)

// RegionKey: ключ региона на шаге General Info
const RegionKey = "region"

// State: всё состояние одной формы. Редьюсеры не мутируют вход, а возвращают новое значение.
type State struct {
	Phase     Phase
	Step      int // 0: General Info, 1..N, секции
	ModuleID  string
	CompanyID string
	RecordID  string
	// RecordVersion: версия редактируемой записи для оптимистичной блокировки
	RecordVersion int64
	ViewOnly      bool

	// Full: нефильтрованная структура; после загрузки не меняется
	Full      catalog.Structure
	Selection scope.Selection
	Structure catalog.Structure

	Values     catalog.Values
	Dimensions scope.Dimensions
	Status     string
	Region     string
	Regions    []string

	// Seq: номер последнего выпущенного запроса разрешения
	Seq uint64
	Err error
}

// ===== события =====

type LoadRequested struct {
	ModuleID  string
	CompanyID string
	RecordID  string
	Version   int64
	ViewOnly  bool
	// предзаполнение при редактировании/просмотре
	Values     catalog.Values
	Dimensions scope.Dimensions
	Status     string
	Region     string
}

type StructureLoaded struct {
	ModuleID  string
	Structure catalog.Structure
	Err       error
}

type DimensionChanged struct {
	Dimension scope.Dimension
	Value     string
}

type SelectionResolved struct {
	ModuleID  string
	Seq       uint64
	Selection scope.Selection
}

type RegionsLoaded struct {
	Country string
	Regions []string
}

type ValueSet struct {
	Key   string
	Value any
}

type GeneralSet struct {
	Status *string
	Region *string
}

type NextRequested struct{}
type BackRequested struct{}
type SubmitStarted struct{}
type SubmitInvalid struct{ Err *submit.ValidationError }
type SubmitFailed struct{ Err error }
type SubmitSucceeded struct{}
type Reset struct{}

// ===== редьюсеры =====

// Reduce: единая точка применения событий
func Reduce(st State, ev any) (State, error) {
	switch e := ev.(type) {
	case LoadRequested:
		return onLoadRequested(st, e), nil
	case StructureLoaded:
		return onStructureLoaded(st, e), nil
	case DimensionChanged:
		return onDimensionChanged(st, e)
	case SelectionResolved:
		return onSelectionResolved(st, e), nil
	case RegionsLoaded:
		return onRegionsLoaded(st, e), nil
	case ValueSet:
		return onValueSet(st, e)
	case GeneralSet:
		return onGeneralSet(st, e)
	case NextRequested:
		return onNext(st)
	case BackRequested:
		return onBack(st)
	case SubmitStarted:
		if st.Phase != PhaseReady {
			return st, ErrWrongPhase
		}
		st.Phase = PhaseSubmitting
		st.Err = nil
		return st, nil
	case SubmitInvalid:
		return onSubmitInvalid(st, e), nil
	case SubmitFailed:
		st.Phase = PhaseReady
		st.Err = e.Err
		return st, nil
	case SubmitSucceeded, Reset:
		return State{Phase: PhaseIdle, Seq: st.Seq}, nil
	}
	return st, errors.New("unknown event")
}

func onLoadRequested(st State, e LoadRequested) State {
	return State{
		Phase:         PhaseLoading,
		ModuleID:      e.ModuleID,
		CompanyID:     e.CompanyID,
		RecordID:      e.RecordID,
		RecordVersion: e.Version,
		ViewOnly:      e.ViewOnly,
		Values:        e.Values.Clone(),
		Dimensions:    e.Dimensions,
		Status:        e.Status,
		Region:        e.Region,
		Seq:           st.Seq,
	}
}

// onStructureLoaded до разрешения показывает всё дерево и сразу выпускает первый запрос.
func onStructureLoaded(st State, e StructureLoaded) State {
	if st.Phase != PhaseLoading || e.ModuleID != st.ModuleID {
		return st
	}
	if e.Err != nil {
		return State{Phase: PhaseIdle, Seq: st.Seq, Err: e.Err}
	}
	st.Full = e.Structure
	st.Selection = scope.Unrestricted(scope.ReasonNoMatch)
	st.Structure = catalog.FilterStructure(st.Full, nil, true)
	st.Phase = PhaseGeneral
	if st.ViewOnly {
		st.Phase = PhaseViewOnly
	}
	st.Step = 0
	st.Seq++
	return st
}

func onDimensionChanged(st State, e DimensionChanged) (State, error) {
	switch st.Phase {
	case PhaseGeneral, PhaseSection, PhaseReady:
	case PhaseViewOnly:
		return st, ErrReadOnly
	case PhaseIdle:
		return st, ErrNoModule
	default:
		return st, ErrWrongPhase
	}
	prevCountry := st.Dimensions.CountryID
	st.Dimensions = st.Dimensions.With(e.Dimension, e.Value)
	if e.Dimension == scope.Country && st.Dimensions.CountryID != prevCountry {
		st.Region = ""
		st.Regions = nil
	}
	st.Err = nil
	st.Seq++
	return st, nil
}

// onSelectionResolved применяет только ответ на последний запрос и только для того же модуля.
func onSelectionResolved(st State, e SelectionResolved) State {
	switch st.Phase {
	case PhaseGeneral, PhaseSection, PhaseReady, PhaseViewOnly, PhaseSubmitting:
	default:
		return st
	}
	if e.ModuleID != st.ModuleID || e.Seq != st.Seq {
		return st
	}
	st.Selection = e.Selection
	st.Structure = catalog.FilterStructure(st.Full, e.Selection.FieldIDs, e.Selection.Unrestricted)
	st.Values = pruneValues(st.Values, st.Full, st.Structure)

	if st.Phase == PhaseSection && st.Step > len(st.Structure) {
		st.Step = len(st.Structure)
		if st.Step == 0 {
			st.Phase = PhaseGeneral
		}
	}
	return st
}

// pruneValues выбрасывает значения полей, которые исчезли из структуры (и их подполя).
// Ключи вне каталога не трогаем: среди них исторические алиасы.
func pruneValues(vals catalog.Values, full, visible catalog.Structure) catalog.Values {
	keep := map[string]struct{}{}
	for _, sec := range visible {
		for _, f := range sec.Fields {
			for _, k := range catalog.OwnedKeys(f) {
				keep[k] = struct{}{}
			}
		}
	}
	out := vals.Clone()
	for _, sec := range full {
		for _, f := range sec.Fields {
			for _, k := range catalog.OwnedKeys(f) {
				if _, ok := keep[k]; !ok {
					delete(out, k)
				}
			}
		}
	}
	return out
}

func onRegionsLoaded(st State, e RegionsLoaded) State {
	if st.Phase == PhaseIdle || st.Phase == PhaseLoading || e.Country != st.Dimensions.CountryID {
		return st
	}
	st.Regions = append([]string{}, e.Regions...)
	return st
}

func onValueSet(st State, e ValueSet) (State, error) {
	switch st.Phase {
	case PhaseGeneral, PhaseSection, PhaseReady:
	case PhaseViewOnly:
		return st, ErrReadOnly
	case PhaseIdle:
		return st, ErrNoModule
	default:
		return st, ErrWrongPhase
	}
	t, opts, ok := visibleField(st.Structure, e.Key)
	if !ok {
		return st, ErrUnknownField
	}
	v, err := catalog.CoerceOption(t, e.Value, opts)
	if err != nil {
		return st, &catalog.CoerceError{Key: e.Key, Err: err}
	}
	st.Values = st.Values.Clone()
	if v.IsNull() {
		delete(st.Values, e.Key)
	} else {
		st.Values[e.Key] = v
	}
	st.Err = nil
	return st, nil
}

// visibleField: тип и закрытые варианты видимого поля или подполя file/image
func visibleField(s catalog.Structure, key string) (catalog.FieldType, []catalog.Option, bool) {
	for _, sec := range s {
		for _, f := range sec.Fields {
			if f.Key == key {
				return f.Type, catalog.ClosedOptions(f), true
			}
			for _, ef := range catalog.ExtraFields(f) {
				if ef.Key == key {
					return ef.Type, ef.Options, true
				}
			}
		}
	}
	return "", nil, false
}

func onGeneralSet(st State, e GeneralSet) (State, error) {
	switch st.Phase {
	case PhaseGeneral, PhaseSection, PhaseReady:
	case PhaseViewOnly:
		return st, ErrReadOnly
	default:
		return st, ErrWrongPhase
	}
	if e.Status != nil {
		st.Status = *e.Status
	}
	if e.Region != nil {
		st.Region = *e.Region
	}
	st.Err = nil
	return st, nil
}

// onNext: переход вперёд с проверкой текущего шага
func onNext(st State) (State, error) {
	switch st.Phase {
	case PhaseGeneral:
		if err := checkGeneral(st); err != nil {
			st.Err = err
			return st, err
		}
		st.Err = nil
		if len(st.Structure) == 0 {
			st.Phase = PhaseReady
			return st, nil
		}
		st.Phase, st.Step = PhaseSection, 1
		return st, nil
	case PhaseSection:
		if err := checkSection(st.Structure, st.Step-1, st.Values); err != nil {
			st.Err = err
			return st, err
		}
		st.Err = nil
		if st.Step >= len(st.Structure) {
			st.Phase = PhaseReady
			return st, nil
		}
		st.Step++
		return st, nil
	case PhaseIdle:
		return st, ErrNoModule
	default:
		return st, ErrWrongPhase
	}
}

func onBack(st State) (State, error) {
	switch st.Phase {
	case PhaseSection:
		st.Step--
		if st.Step <= 0 {
			st.Phase, st.Step = PhaseGeneral, 0
		}
	case PhaseReady:
		if len(st.Structure) == 0 {
			st.Phase, st.Step = PhaseGeneral, 0
		} else {
			st.Phase, st.Step = PhaseSection, len(st.Structure)
		}
	case PhaseIdle:
		return st, ErrNoModule
	default:
		return st, ErrWrongPhase
	}
	st.Err = nil
	return st, nil
}

// onSubmitInvalid возвращает на шаг, где живёт проблемное поле
func onSubmitInvalid(st State, e SubmitInvalid) State {
	st.Err = e.Err
	if e.Err == nil || e.Err.Section < 0 || e.Err.Section >= len(st.Structure) {
		st.Phase, st.Step = PhaseGeneral, 0
		return st
	}
	st.Phase, st.Step = PhaseSection, e.Err.Section+1
	return st
}

// checkGeneral: четыре измерения обязательны; регион, только если для страны есть список.
func checkGeneral(st State) error {
	if missing := st.Dimensions.Missing(); len(missing) > 0 {
		return &submit.ValidationError{Kind: submit.MissingDimension, Field: string(missing[0]), Section: -1}
	}
	if len(st.Regions) > 0 && st.Region == "" {
		return &submit.ValidationError{Kind: submit.MissingField, Field: RegionKey, Label: "Region", Section: -1}
	}
	return nil
}

func checkSection(s catalog.Structure, idx int, vals catalog.Values) error {
	if idx < 0 || idx >= len(s) {
		return nil
	}
	for _, f := range s[idx].Fields {
		if f.Type.IsBoolean() {
			continue
		}
		if !vals.Present(f.Key) {
			return &submit.ValidationError{Kind: submit.MissingField, Field: f.Key, Label: f.Label, Section: idx}
		}
	}
	return nil
}
