package scope

import (
	"fmt"
	"strings"
	"time"
)

// Dimension: одно из четырёх измерений области действия
type Dimension string

const (
	Country      Dimension = "country"
	PropertyType Dimension = "propertyType"
	PremisesType Dimension = "premisesType"
	Area         Dimension = "area"
)

// All: в порядке проверки на шаге General Info
var All = []Dimension{Country, PropertyType, PremisesType, Area}

// ParseDimension принимает "country", "countryId", "property_type" и т.п.
func ParseDimension(s string) (Dimension, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.TrimSuffix(strings.TrimSuffix(k, "id"), "_")
	k = strings.ReplaceAll(strings.ReplaceAll(k, "_", ""), "-", "")
	switch k {
	case "country":
		return Country, nil
	case "propertytype":
		return PropertyType, nil
	case "premisestype", "premisetype":
		return PremisesType, nil
	case "area":
		return Area, nil
	}
	return "", fmt.Errorf("unknown dimension %q", s)
}

// Dimensions: кортеж измерений; пустая строка = не задано (в маппинге, wildcard)
type Dimensions struct {
	CountryID      string `json:"countryId,omitempty"`
	PropertyTypeID string `json:"propertyTypeId,omitempty"`
	PremisesTypeID string `json:"premisesTypeId,omitempty"`
	AreaID         string `json:"areaId,omitempty"`
}

func (d Dimensions) Get(dim Dimension) string {
	switch dim {
	case Country:
		return d.CountryID
	case PropertyType:
		return d.PropertyTypeID
	case PremisesType:
		return d.PremisesTypeID
	case Area:
		return d.AreaID
	}
	return ""
}

// With возвращает копию с заменённым значением
func (d Dimensions) With(dim Dimension, v string) Dimensions {
	v = strings.TrimSpace(v)
	switch dim {
	case Country:
		d.CountryID = v
	case PropertyType:
		d.PropertyTypeID = v
	case PremisesType:
		d.PremisesTypeID = v
	case Area:
		d.AreaID = v
	}
	return d
}

// Missing: незаданные измерения в порядке All
func (d Dimensions) Missing() []Dimension {
	var out []Dimension
	for _, dim := range All {
		if d.Get(dim) == "" {
			out = append(out, dim)
		}
	}
	return out
}

// Specificity: число заданных измерений
func (d Dimensions) Specificity() int { return len(All) - len(d.Missing()) }

// Mapping связывает модуль компании с кортежем измерений и набором выбранных полей.
// Пустой SelectedFieldIDs: ограничений нет.
type Mapping struct {
	ID        string `json:"id"`
	ModuleID  string `json:"moduleId"`
	CompanyID string `json:"companyId"`
	Dimensions
	Active           bool      `json:"isActive"`
	SelectedFieldIDs []string  `json:"selectedFieldIds"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
