package pg

import (
	"fmt"
	"strings"
)

// Schema: схема БД сервиса
const Schema = "assetadmin"

func sqlIdent(s string) string { return `"` + strings.ToLower(s) + `"` }

func fqn(tbl string) string { return fmt.Sprintf("%s.%s", Schema, tbl) }

var (
	tableMappings = fqn("scope_mappings")
	tableRecords  = fqn("premises")
)

// DDL: шаги миграции; ключи задают порядок применения
func DDL() map[string]string {
	return map[string]string{
		"00_schema": `CREATE SCHEMA IF NOT EXISTS ` + Schema,
		"10_scope_mappings": `CREATE TABLE IF NOT EXISTS ` + tableMappings + ` (
  id                 text PRIMARY KEY,
  module_id          text NOT NULL,
  company_id         text NOT NULL,
  country_id         text NOT NULL DEFAULT '',
  property_type_id   text NOT NULL DEFAULT '',
  premises_type_id   text NOT NULL DEFAULT '',
  area_id            text NOT NULL DEFAULT '',
  is_active          boolean NOT NULL DEFAULT true,
  selected_field_ids jsonb NOT NULL DEFAULT '[]'::jsonb,
  created_at         timestamptz NOT NULL DEFAULT now(),
  updated_at         timestamptz NOT NULL DEFAULT now()
)`,
		"11_scope_mappings_company_idx": `CREATE INDEX IF NOT EXISTS scope_mappings_company_idx ON ` + tableMappings + ` (company_id, module_id)`,
		"20_premises": `CREATE TABLE IF NOT EXISTS ` + tableRecords + ` (
  id               text PRIMARY KEY,
  module_id        text NOT NULL,
  company_id       text NOT NULL,
  scope_mapping_id text NOT NULL DEFAULT '',
  country_id       text NOT NULL DEFAULT '',
  property_type_id text NOT NULL DEFAULT '',
  premises_type_id text NOT NULL DEFAULT '',
  area_id          text NOT NULL DEFAULT '',
  name             text NOT NULL DEFAULT '',
  building         text NOT NULL DEFAULT '',
  city             text NOT NULL DEFAULT '',
  address          text NOT NULL DEFAULT '',
  region           text NOT NULL DEFAULT '',
  status           text NOT NULL DEFAULT 'ACTIVE',
  usage            text NOT NULL DEFAULT '',
  attributes       jsonb NOT NULL DEFAULT '{}'::jsonb,
  ownership        jsonb NOT NULL DEFAULT '{}'::jsonb,
  lease            jsonb NOT NULL DEFAULT '{}'::jsonb,
  version          bigint NOT NULL DEFAULT 1,
  created_at       timestamptz NOT NULL DEFAULT now(),
  updated_at       timestamptz NOT NULL DEFAULT now(),
  created_by       text NOT NULL DEFAULT '',
  updated_by       text NOT NULL DEFAULT '',
  deleted          boolean NOT NULL DEFAULT false
)`,
		"21_premises_company_idx": `CREATE INDEX IF NOT EXISTS premises_company_idx ON ` + tableRecords + ` (company_id, module_id) WHERE NOT deleted`,
	}
}

// sortColumns: системные колонки, по которым разрешена сортировка
var sortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"city":       "city",
	"status":     "status",
	"usage":      "usage",
	"created_at": "created_at",
	"createdAt":  "created_at",
	"updated_at": "updated_at",
	"updatedAt":  "updated_at",
}

// orderExpr: колонка или атрибут из jsonb; ключ атрибута уходит параметром
func orderExpr(field string, args *[]any) string {
	if col, ok := sortColumns[field]; ok {
		switch col {
		case "id", "created_at", "updated_at":
			return sqlIdent(col)
		}
		// пустая строка сортируется как null
		return "NULLIF(" + sqlIdent(col) + ", '')"
	}
	*args = append(*args, field)
	return fmt.Sprintf("(attributes->>$%d)", len(*args))
}
