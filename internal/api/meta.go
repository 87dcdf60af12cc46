package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assetadmin/internal/catalog"
	"assetadmin/internal/reference"
	"assetadmin/internal/scope"
)

// ===== META HANDLERS =====

type metaModule struct {
	catalog.ModuleDefinition
	Sections int `json:"sections"`
	Fields   int `json:"fields"`
}

// GET /api/meta
func MetaListHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		mods := storage.Catalog.Modules()
		out := make([]metaModule, 0, len(mods))
		for _, m := range mods {
			out = append(out, metaModule{ModuleDefinition: m.ModuleDefinition, Sections: len(m.Sections), Fields: m.Sections.FieldCount()})
		}
		dims := make([]string, 0, len(scope.All))
		for _, d := range scope.All {
			dims = append(dims, string(d))
		}
		var dirs []string
		if storage.Reference != nil {
			dirs = storage.Reference.Names()
		}
		c.JSON(http.StatusOK, gin.H{
			"modules":     out,
			"dimensions":  dims,
			"directories": dirs,
			"fieldTypes":  fieldTypes,
			"dateFormat":  storage.DateFormat,
		})
	}
}

var fieldTypes = []catalog.FieldType{
	catalog.TypeText, catalog.TypeTextarea, catalog.TypeDropdown, catalog.TypeMultiselect, catalog.TypeRadio,
	catalog.TypeCheckbox, catalog.TypeSwitch, catalog.TypeDate, catalog.TypeDatetime, catalog.TypeTime,
	catalog.TypeFile, catalog.TypeImage,
}

// GET /api/modules
func ModulesHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := storage.Catalog.ListModules(c.Request.Context())
		if err != nil {
			writeError(c, storage, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

type metaField struct {
	catalog.FieldDefinition
	Extras []catalog.ExtraField `json:"extras,omitempty"`
}

type metaSection struct {
	catalog.Section
	Fields []metaField `json:"fields"`
}

// GET /api/modules/:module: полное дерево (включая неактивные поля) с подполями file/image
func ModuleHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := moduleParam(c, storage, c.Param("module"))
		if !ok {
			return
		}
		for _, m := range storage.Catalog.Modules() {
			if m.ID != id {
				continue
			}
			secs := make([]metaSection, 0, len(m.Sections))
			for _, s := range m.Sections {
				ms := metaSection{Section: s.Section, Fields: make([]metaField, 0, len(s.Fields))}
				for _, f := range s.Fields {
					ms.Fields = append(ms.Fields, metaField{FieldDefinition: f, Extras: catalog.ExtraFields(f)})
				}
				secs = append(secs, ms)
			}
			c.JSON(http.StatusOK, gin.H{"id": m.ID, "name": m.Name, "sections": secs})
			return
		}
		abortErrors(c, http.StatusNotFound, ferr(ErrUnknownModule, "module", "Module not found"))
	}
}

// GET /api/modules/:module/sections
func SectionsHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := moduleParam(c, storage, c.Param("module"))
		if !ok {
			return
		}
		out, err := storage.Catalog.ListSections(c.Request.Context(), id)
		if err != nil {
			writeError(c, storage, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/sections/:section/fields
func FieldsHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := storage.Catalog.ListFields(c.Request.Context(), c.Param("section"))
		if err != nil {
			writeError(c, storage, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/reference/:name
func ReferenceHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		dir, ok := storage.Reference.Directory(name)
		if !ok {
			abortErrors(c, http.StatusNotFound, ferr(ErrNotFound, "name", "Directory '"+name+"' not found"))
			return
		}
		c.JSON(http.StatusOK, dir)
	}
}

// GET /api/regions/:country: неизвестная страна даёт пустой список
func RegionsHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := storage.Reference.ListRegions(c.Request.Context(), c.Param("country"))
		if err != nil {
			writeError(c, storage, err)
			return
		}
		if out == nil {
			out = []reference.Region{}
		}
		c.JSON(http.StatusOK, out)
	}
}
