package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind: закрытый набор представлений значения поля
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "null"
	}
}

// Value: string | number | bool | []string
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
	l    []string
}

func String(s string) Value      { return Value{kind: KindString, s: s} }
func Number(n float64) Value     { return Value{kind: KindNumber, n: n} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func List(items ...string) Value { return Value{kind: KindList, l: append([]string{}, items...)} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Str() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) Num() (float64, bool)  { return v.n, v.kind == KindNumber }
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) Items() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]string(nil), v.l...), true
}

// IsBlank: null, строка из пробелов или пустой список
func (v Value) IsBlank() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.s) == ""
	case KindList:
		return len(v.l) == 0
	default:
		return false
	}
}

// Text: строковое представление для алиасов, поиска и enum-нормализации
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		return strings.Join(v.l, ",")
	default:
		return ""
	}
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if v.l[i] != o.l[i] {
				return false
			}
		}
		return true
	default:
		return v.s == o.s && v.n == o.n && v.b == o.b
	}
}

// Any: значение для JSON/jsonb
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.n
	case KindBool:
		return v.b
	case KindList:
		return append([]string{}, v.l...)
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) { return json.Marshal(v.Any()) }

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	nv, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = nv
	return nil
}

var errUnsupported = errors.New("unsupported value type")

// CoerceError: значение не подходит под тип поля
type CoerceError struct {
	Key string
	Err error
}

func (e *CoerceError) Error() string { return fmt.Sprintf("field '%s' %v", e.Key, e.Err) }
func (e *CoerceError) Unwrap() error { return e.Err }

// FromAny переводит декодированный JSON в Value
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case []string:
		return List(t...), nil
	case []any:
		items := make([]string, 0, len(t))
		for i, it := range t {
			s, ok := it.(string)
			if !ok {
				return Value{}, fmt.Errorf("list element %d: must be string", i)
			}
			items = append(items, s)
		}
		return List(items...), nil
	default:
		return Value{}, errUnsupported
	}
}

// Coerce приводит сырое значение к представлению, которое ожидает тип поля.
func Coerce(t FieldType, raw any) (Value, error) {
	v, err := FromAny(raw)
	if err != nil {
		return Value{}, err
	}
	if v.IsNull() {
		return v, nil
	}
	switch {
	case t.IsBoolean():
		return toBoolStrict(v)
	case t == TypeMultiselect:
		switch v.kind {
		case KindList:
			return v, nil
		case KindString:
			// CSV допускаем для простоты: "a,b,c"
			if strings.TrimSpace(v.s) == "" {
				return List(), nil
			}
			parts := strings.Split(v.s, ",")
			items := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					items = append(items, p)
				}
			}
			return List(items...), nil
		default:
			return Value{}, errors.New("must be list of strings")
		}
	default:
		switch v.kind {
		case KindString:
			return v, nil
		case KindNumber:
			// dropdown со справочником может прислать числовой id
			return String(v.Text()), nil
		default:
			return Value{}, errors.New("must be string")
		}
	}
}

// ErrNotAnOption: значение вне закрытого списка вариантов
var ErrNotAnOption = errors.New("is not one of the allowed options")

// CoerceOption: Coerce плюс проверка по закрытому списку opts. Пустой opts или пустое
// значение не проверяются.
func CoerceOption(t FieldType, raw any, opts []Option) (Value, error) {
	v, err := Coerce(t, raw)
	if err != nil || len(opts) == 0 || v.IsBlank() {
		return v, err
	}
	items := []string{v.Text()}
	if l, ok := v.Items(); ok {
		items = l
	}
	for _, it := range items {
		found := false
		for _, o := range opts {
			if o.Value == it {
				found = true
				break
			}
		}
		if !found {
			return Value{}, fmt.Errorf("%w: %q", ErrNotAnOption, it)
		}
	}
	return v, nil
}

func toBoolStrict(v Value) (Value, error) {
	switch v.kind {
	case KindBool:
		return v, nil
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true", "1", "yes", "y", "on":
			return Bool(true), nil
		case "false", "0", "no", "n", "off", "":
			return Bool(false), nil
		}
	}
	return Value{}, errors.New("must be boolean")
}

// Values: мешок значений формы по ключу поля
type Values map[string]Value

func (vs Values) Clone() Values {
	out := make(Values, len(vs))
	for k, v := range vs {
		out[k] = v
	}
	return out
}

// Present: значение задано и не пустое
func (vs Values) Present(key string) bool {
	v, ok := vs[key]
	return ok && !v.IsBlank()
}

// Map: представление для хранения (jsonb)
func (vs Values) Map() map[string]any {
	out := make(map[string]any, len(vs))
	for k, v := range vs {
		out[k] = v.Any()
	}
	return out
}

// ValuesFromMap: обратное к Map; неподдерживаемые значения пропускаются.
func ValuesFromMap(m map[string]any) Values {
	out := make(Values, len(m))
	for k, raw := range m {
		if v, err := FromAny(raw); err == nil {
			out[k] = v
		}
	}
	return out
}
