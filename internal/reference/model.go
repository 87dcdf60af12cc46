package reference

// Directory: справочник одного измерения (страны, типы объектов, зоны ...)
type Directory struct {
	Name  string `yaml:"name" json:"name"`
	Items []Item `yaml:"items" json:"items"`
}

type Item struct {
	Code  string `yaml:"code" json:"code"`
	Name  string `yaml:"name" json:"name"`
	Order int    `yaml:"order,omitempty" json:"order,omitempty"`
	// Regions есть только у стран
	Regions   []string `yaml:"regions,omitempty" json:"regions,omitempty"`
	ValidFrom string   `yaml:"valid_from,omitempty" json:"validFrom,omitempty"`
	ValidTo   string   `yaml:"valid_to,omitempty" json:"validTo,omitempty"`
}

// Region: ответ внешнего поиска регионов
type Region struct {
	Name string `json:"name"`
}

// Имена справочников измерений
const (
	Countries     = "countries"
	PropertyTypes = "property_types"
	PremisesTypes = "premises_types"
	Areas         = "areas"
)

// dimensionDirs: справочник для каждого измерения области действия
var dimensionDirs = map[string]string{
	"country":      Countries,
	"propertyType": PropertyTypes,
	"premisesType": PremisesTypes,
	"area":         Areas,
}

// DirectoryFor: имя справочника измерения ("country" -> "countries")
func DirectoryFor(dimension string) (string, bool) {
	d, ok := dimensionDirs[dimension]
	return d, ok
}
