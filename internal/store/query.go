package store

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

type SortKey struct {
	Field string
	Desc  bool
}

type ListParams struct {
	Limit     int
	Offset    int
	Sort      []SortKey
	Q         string
	ModuleID  string
	CompanyID string
}

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// ParseListParams: _limit/_offset/_sort (и варианты без подчёркивания), q, module, company
func ParseListParams(q url.Values) ListParams {
	limit := DefaultLimit
	lv := q.Get("_limit")
	if lv == "" {
		lv = q.Get("limit")
	}
	if lv != "" {
		if n, err := strconv.Atoi(lv); err == nil && n >= 0 && n <= MaxLimit {
			limit = n
		}
	}

	offset := 0
	ov := q.Get("_offset")
	if ov == "" {
		ov = q.Get("offset")
	}
	if ov != "" {
		if n, err := strconv.Atoi(ov); err == nil && n >= 0 {
			offset = n
		}
	}

	var sortKeys []SortKey
	sv := strings.TrimSpace(q.Get("_sort"))
	if sv == "" {
		sv = strings.TrimSpace(q.Get("sort"))
	}
	for _, p := range strings.Split(sv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		desc := false
		if strings.HasPrefix(p, "-") {
			desc = true
			p = strings.TrimPrefix(p, "-")
		} else {
			p = strings.TrimPrefix(p, "+")
		}
		if p != "" {
			sortKeys = append(sortKeys, SortKey{Field: p, Desc: desc})
		}
	}

	return ListParams{
		Limit:     limit,
		Offset:    offset,
		Sort:      sortKeys,
		Q:         strings.TrimSpace(q.Get("q")),
		ModuleID:  strings.TrimSpace(q.Get("module")),
		CompanyID: strings.TrimSpace(q.Get("company")),
	}
}

// Page режет срез по limit/offset
func Page[T any](all []T, lp ListParams) []T {
	start := lp.Offset
	if start < 0 {
		start = 0
	}
	if start > len(all) {
		start = len(all)
	}
	end := start + lp.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// sortValue: системные колонки или атрибут из мешка
func sortValue(r Record, key string) (string, bool) {
	switch key {
	case "id":
		return r.ID, true
	case "name":
		return r.Name, r.Name != ""
	case "city":
		return r.City, r.City != ""
	case "status":
		return r.Status, r.Status != ""
	case "usage":
		return r.Usage, r.Usage != ""
	case "created_at", "createdAt":
		return r.CreatedAt.Format(time.RFC3339Nano), true
	case "updated_at", "updatedAt":
		return r.UpdatedAt.Format(time.RFC3339Nano), true
	}
	v, ok := r.Attributes[key]
	if !ok || v == nil {
		return "", false
	}
	return toString(v), true
}

// sortRecords: мультисортировка, null всегда в конце
func sortRecords(records []Record, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, k := range keys {
			a, oka := sortValue(records[i], k.Field)
			b, okb := sortValue(records[j], k.Field)
			if !oka && !okb {
				continue
			}
			if oka != okb {
				return oka
			}
			if a == b {
				continue
			}
			if k.Desc {
				return a > b
			}
			return a < b
		}
		return false
	})
}

// matchesQuery: поиск подстроки по имени, городу, адресу и строковым атрибутам
func matchesQuery(r Record, q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	for _, s := range []string{r.Name, r.City, r.Address, r.Building} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	for _, v := range r.Attributes {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ",")
	default:
		return ""
	}
}
