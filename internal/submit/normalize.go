package submit

import (
	"strings"

	"assetadmin/internal/catalog"
)

// Канонические ключи записи
const (
	KeyName     = "premisesName"
	KeyBuilding = "buildingName"
	KeyUsage    = "usage"
	KeyCity     = "city"
	KeyAddress  = "address"
)

// Значения по умолчанию для модулей, которые этих атрибутов вообще не показывают
const (
	DefaultName     = "Untitled Premises"
	DefaultBuilding = "Main Building"
)

type alias struct {
	canonical string
	variants  []string // в порядке приоритета
}

// исторические варианты ключей
var aliases = []alias{
	{canonical: KeyName, variants: []string{"premiseName", "premicesName", "premicesNameAlt"}},
	{canonical: KeyBuilding, variants: []string{"building"}},
}

// Категории использования
const (
	UsageOffice    = "OFFICE"
	UsageWarehouse = "WAREHOUSE"
	UsageStaff     = "STAFF"
	UsageOther     = "OTHER"
)

var usageTable = map[string]string{
	"OFFICE":    UsageOffice,
	"SHOP":      UsageOffice,
	"FACTORY":   UsageOffice,
	"WAREHOUSE": UsageWarehouse,
	"FLAT":      UsageStaff,
	"VILLA":     UsageStaff,
	"STAFF":     UsageStaff,
	"OTHER":     UsageOther,
}

// NormalizeUsage сводит исторический словарь к фиксированным категориям.
func NormalizeUsage(raw string) string {
	if c, ok := usageTable[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return c
	}
	return UsageOther
}

// applyAliases заполняет канонический ключ первым непустым алиасом, только если
// канонический ещё пуст.
func applyAliases(vals catalog.Values) {
	for _, a := range aliases {
		if vals.Present(a.canonical) {
			continue
		}
		for _, v := range a.variants {
			if vals.Present(v) {
				vals[a.canonical] = vals[v]
				break
			}
		}
	}
}

// applyDefaults подставляет литерал, только если ни одно видимое поле не объявляет ключ.
func applyDefaults(vals catalog.Values, st catalog.Structure) {
	for key, def := range map[string]string{KeyName: DefaultName, KeyBuilding: DefaultBuilding} {
		if st.HasKey(key) || vals.Present(key) {
			continue
		}
		vals[key] = catalog.String(def)
	}
}
