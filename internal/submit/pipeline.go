package submit

import (
	"strings"

	"assetadmin/internal/catalog"
	"assetadmin/internal/scope"
)

const StatusActive = "ACTIVE"

// Input: всё, что собрал контроллер к моменту отправки
type Input struct {
	ModuleID  string
	CompanyID string
	Values    catalog.Values
	// Structure: отфильтрованная структура, видимая пользователю
	Structure  catalog.Structure
	Dimensions scope.Dimensions
	// DimensionNames: разрешённые имена; измерение считается заданным по id или по имени
	DimensionNames scope.Dimensions
	Status         string
	Region         string
	// Mappings: маппинги компании для привязки записи к конфигурации
	Mappings []scope.Mapping
}

// Payload: нормализованные данные для слоя хранения
type Payload struct {
	ModuleID       string `json:"moduleId"`
	CompanyID      string `json:"companyId"`
	ScopeMappingID string `json:"scopeMappingId,omitempty"`
	scope.Dimensions
	Name       string          `json:"name"`
	Building   string          `json:"buildingName"`
	City       string          `json:"city"`
	Address    string          `json:"address"`
	Region     string          `json:"region"`
	Status     string          `json:"status"`
	Usage      string          `json:"usage"`
	Attributes map[string]any  `json:"attributes"`
	Ownership  OwnershipDetail `json:"ownershipDetail"`
	Lease      LeaseDetail     `json:"leaseDetail"`
}

// Normalize проверяет и нормализует собранные значения. Правила применяются по порядку,
// первая ошибка останавливает разбор.
func Normalize(in Input) (Payload, error) {
	// 1) измерения
	for _, dim := range scope.All {
		if in.Dimensions.Get(dim) == "" && in.DimensionNames.Get(dim) == "" {
			return Payload{}, &ValidationError{Kind: MissingDimension, Field: string(dim), Section: -1}
		}
	}

	// 2) видимые поля; checkbox/switch не обязательны никогда
	for i, sec := range in.Structure {
		for _, f := range sec.Fields {
			if f.Type.IsBoolean() {
				continue
			}
			if !in.Values.Present(f.Key) {
				return Payload{}, &ValidationError{Kind: MissingField, Field: f.Key, Label: f.Label, Section: i}
			}
		}
	}

	vals := in.Values.Clone()

	// 3) алиасы
	applyAliases(vals)

	// 4) enum usage: только если модуль его знает или значение пришло
	if vals.Present(KeyUsage) || in.Structure.HasKey(KeyUsage) {
		vals[KeyUsage] = catalog.String(NormalizeUsage(text(vals, "", KeyUsage)))
	}

	// 5) умолчания для ключей, которых нет в структуре
	applyDefaults(vals, in.Structure)

	// 6) привязка к маппингу
	p := Payload{
		ModuleID:   in.ModuleID,
		CompanyID:  in.CompanyID,
		Dimensions: in.Dimensions,
		Name:       text(vals, "", KeyName),
		Building:   text(vals, "", KeyBuilding),
		City:       text(vals, "", KeyCity),
		Address:    text(vals, "", KeyAddress),
		Region:     strings.TrimSpace(in.Region),
		Status:     strings.ToUpper(strings.TrimSpace(in.Status)),
		Usage:      text(vals, "", KeyUsage),
		Attributes: vals.Map(),
		Ownership:  buildOwnership(vals),
		Lease:      buildLease(vals),
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if m, ok := scope.BestMatch(in.Mappings, in.ModuleID, in.Dimensions); ok {
		p.ScopeMappingID = m.ID
	}
	return p, nil
}
