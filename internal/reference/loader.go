package reference

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog: справочники измерений в памяти
type Catalog struct {
	mu   sync.RWMutex
	dirs map[string]Directory
}

func NewCatalog(dirs map[string]Directory) *Catalog {
	c := &Catalog{}
	c.Replace(dirs)
	return c
}

// Load читает все *.yaml/*.yml из dir. Имя справочника, из поля name или из имени файла.
func Load(dir string) (map[string]Directory, error) {
	result := make(map[string]Directory)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		var d Directory
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		if d.Name == "" {
			d.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		sort.SliceStable(d.Items, func(i, j int) bool { return d.Items[i].Order < d.Items[j].Order })
		result[d.Name] = d
	}
	return result, nil
}

func (c *Catalog) Replace(dirs map[string]Directory) {
	if dirs == nil {
		dirs = map[string]Directory{}
	}
	c.mu.Lock()
	c.dirs = dirs
	c.mu.Unlock()
}

func (c *Catalog) Directory(name string) (Directory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.dirs[name]
	return d, ok
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.dirs)
}

// Lookup ищет элемент по коду или имени (без учёта регистра)
func (c *Catalog) Lookup(dir, codeOrName string) (Item, bool) {
	codeOrName = strings.TrimSpace(codeOrName)
	if codeOrName == "" {
		return Item{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.dirs[dir].Items {
		if strings.EqualFold(it.Code, codeOrName) || strings.EqualFold(it.Name, codeOrName) {
			return it, true
		}
	}
	return Item{}, false
}

// Name: отображаемое имя по коду; для неизвестного кода пусто.
func (c *Catalog) Name(dir, code string) string {
	if it, ok := c.Lookup(dir, code); ok {
		return it.Name
	}
	return ""
}

// DimensionName: имя значения измерения; пусто, если код неизвестен
func (c *Catalog) DimensionName(dimension, code string) string {
	dir, ok := DirectoryFor(dimension)
	if !ok {
		return ""
	}
	return c.Name(dir, code)
}

// Names: снимок всех справочников
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.dirs))
	for name := range c.dirs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ListRegions: best-effort: неизвестная страна даёт пустой список без ошибки.
func (c *Catalog) ListRegions(_ context.Context, country string) ([]Region, error) {
	it, ok := c.Lookup(Countries, country)
	if !ok {
		return []Region{}, nil
	}
	out := make([]Region, 0, len(it.Regions))
	for _, r := range it.Regions {
		out = append(out, Region{Name: r})
	}
	return out, nil
}
