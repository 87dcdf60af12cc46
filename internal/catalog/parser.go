package catalog

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	moduleRe  = regexp.MustCompile(`^module\s+(.+?)\s*$`)
	sectionRe = regexp.MustCompile(`^section\s+("[^"]+"|'[^']+'|[\w.-]+)(.*)$`)
	fieldRe   = regexp.MustCompile(`^\s*([A-Za-z][\w]*):\s*([^\s#]+)(.*)$`)
	choiceRe  = regexp.MustCompile(`^(\w+)\[(.*)\]$`)
	slugRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// Module: модуль каталога вместе с деревом секций
type Module struct {
	ModuleDefinition
	Sections Structure
}

// splitOptionTokens делит `k=v k2='v 2', flag` на токены; пробелы и запятые внутри
// кавычек и скобок не режут.
func splitOptionTokens(s string) []string {
	var out []string
	var buf []rune
	inSingle, inDouble := false, false
	depth := 0

	flush := func() {
		if len(buf) > 0 {
			out = append(out, string(buf))
			buf = buf[:0]
		}
	}

	for _, r := range s {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
			buf = append(buf, r)
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
			buf = append(buf, r)
		case '[', '{':
			if !inSingle && !inDouble {
				depth++
			}
			buf = append(buf, r)
		case ']', '}':
			if !inSingle && !inDouble && depth > 0 {
				depth--
			}
			buf = append(buf, r)
		default:
			if (r == ' ' || r == '\t' || r == ',') && !inSingle && !inDouble && depth == 0 {
				flush()
				continue
			}
			buf = append(buf, r)
		}
	}
	flush()
	return out
}

// stripComment отрезает `# ...` вне кавычек
func stripComment(s string) string {
	inSingle, inDouble := false, false
	for i, r := range s {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble {
				return s[:i]
			}
		}
	}
	return s
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

func parseOptions(raw string) map[string]string {
	opts := map[string]string{}
	for _, tok := range splitOptionTokens(strings.TrimSpace(raw)) {
		if tok == "" {
			continue
		}
		if !strings.Contains(tok, "=") {
			opts[strings.ToLower(tok)] = "true"
			continue
		}
		kv := strings.SplitN(tok, "=", 2)
		k := strings.ToLower(strings.TrimSpace(kv[0]))
		if k != "" {
			opts[k] = unquote(strings.TrimSpace(kv[1]))
		}
	}
	return opts
}

// parseChoices: "OFFICE, SHOP:Shop floor" -> [{OFFICE OFFICE} {SHOP Shop floor}]
func parseChoices(inside string) []Option {
	var out []Option
	for _, p := range strings.Split(inside, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		val, label := p, p
		if i := strings.IndexByte(p, ':'); i > 0 {
			val = strings.TrimSpace(p[:i])
			label = strings.TrimSpace(p[i+1:])
		}
		val, label = unquote(val), unquote(label)
		if val == "" {
			continue
		}
		if label == "" {
			label = val
		}
		out = append(out, Option{Value: val, Label: label})
	}
	return out
}

func slug(s string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Parse читает каталог из r. name, для сообщений об ошибках.
func Parse(r io.Reader, name string) ([]*Module, error) {
	var modules []*Module
	var current *Module
	var section *SectionFields
	lineNo := 0

	closeSection := func() {
		if current != nil && section != nil {
			current.Sections = append(current.Sections, *section)
		}
		section = nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}

		// module <Name>
		if m := moduleRe.FindStringSubmatch(line); m != nil {
			closeSection()
			if current != nil {
				modules = append(modules, current)
			}
			mname := unquote(strings.TrimSpace(m[1]))
			current = &Module{ModuleDefinition: ModuleDefinition{ID: slug(mname), Name: mname}}
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("%s:%d: declaration outside of module", name, lineNo)
		}

		// section <Name> [order=N]
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			closeSection()
			sname := unquote(m[1])
			opts := parseOptions(m[2])
			order := len(current.Sections) + 1
			if v, ok := opts["order"]; ok {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: section %q: bad order %q", name, lineNo, sname, v)
				}
				order = n
			}
			id := current.ID + "." + slug(sname)
			if v := opts["id"]; v != "" {
				id = v
			}
			section = &SectionFields{Section: Section{ID: id, ModuleID: current.ID, Name: sname, Order: order}}
			continue
		}

		m := fieldRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%s:%d: cannot parse %q", name, lineNo, line)
		}
		if section == nil {
			return nil, fmt.Errorf("%s:%d: field %q outside of section", name, lineNo, m[1])
		}
		key, rawType, tail := m[1], m[2], m[3]

		// склейка типов вида dropdown[A, B], пробел внутри скобок рвёт regexp
		if strings.Contains(rawType, "[") && !strings.Contains(rawType, "]") {
			if idx := strings.Index(tail, "]"); idx >= 0 {
				rawType += tail[:idx+1]
				tail = tail[idx+1:]
			}
		}

		f := FieldDefinition{
			ID:        current.ID + "." + key,
			SectionID: section.ID,
			Key:       key,
			Label:     key,
			Type:      FieldType(strings.ToLower(rawType)),
			Active:    true,
		}
		if cm := choiceRe.FindStringSubmatch(rawType); cm != nil {
			f.Type = FieldType(strings.ToLower(cm[1]))
			f.Options = parseChoices(cm[2])
		}

		opts := parseOptions(strings.TrimPrefix(strings.TrimSpace(tail), "options:"))
		if v := opts["label"]; v != "" {
			f.Label = v
		}
		f.Placeholder = opts["placeholder"]
		if opts["inactive"] == "true" || strings.EqualFold(opts["active"], "false") {
			f.Active = false
		}
		if v := opts["id"]; v != "" {
			f.ID = v
		}
		section.Fields = append(section.Fields, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	closeSection()
	if current != nil {
		modules = append(modules, current)
	}
	return modules, nil
}

// LoadFile читает один *.catalog файл
func LoadFile(path string) ([]*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// LoadDir обходит root и собирает каталог из всех *.catalog файлов.
func LoadDir(root string) (*Catalog, error) {
	mods, err := LoadModules(root)
	if err != nil {
		return nil, err
	}
	return New(mods), nil
}

// LoadModules: модули из всех *.catalog под root; повтор модуля, ошибка.
func LoadModules(root string) ([]*Module, error) {
	var all []*Module
	seen := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".catalog") {
			return nil
		}
		mods, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for _, m := range mods {
			if prev, dup := seen[m.ID]; dup {
				return fmt.Errorf("duplicate module %q (files: %s, %s)", m.Name, prev, path)
			}
			seen[m.ID] = path
			all = append(all, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}
