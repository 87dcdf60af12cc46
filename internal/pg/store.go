package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"assetadmin/internal/scope"
	"assetadmin/internal/store"
	"assetadmin/internal/submit"
)

// Store: PostgreSQL-реализация store.Store
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ store.Store = (*Store)(nil)

const recordColumns = `id, module_id, company_id, scope_mapping_id,
  country_id, property_type_id, premises_type_id, area_id,
  name, building, city, address, region, status, usage,
  attributes, ownership, lease, version, created_at, updated_at, created_by, updated_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (store.Record, error) {
	var (
		r                     store.Record
		attrs, owner, leaseJS []byte
	)
	err := row.Scan(&r.ID, &r.ModuleID, &r.CompanyID, &r.ScopeMappingID,
		&r.CountryID, &r.PropertyTypeID, &r.PremisesTypeID, &r.AreaID,
		&r.Name, &r.Building, &r.City, &r.Address, &r.Region, &r.Status, &r.Usage,
		&attrs, &owner, &leaseJS, &r.Version, &r.CreatedAt, &r.UpdatedAt, &r.CreatedBy, &r.UpdatedBy)
	if err != nil {
		return store.Record{}, err
	}
	if err := json.Unmarshal(attrs, &r.Attributes); err != nil {
		return store.Record{}, fmt.Errorf("decode attributes of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(owner, &r.Ownership); err != nil {
		return store.Record{}, fmt.Errorf("decode ownership of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(leaseJS, &r.Lease); err != nil {
		return store.Record{}, fmt.Errorf("decode lease of %s: %w", r.ID, err)
	}
	if r.Attributes == nil {
		r.Attributes = map[string]any{}
	}
	return r, nil
}

func encodeDetails(p submit.Payload) (attrs, owner, lease []byte, err error) {
	if p.Attributes == nil {
		p.Attributes = map[string]any{}
	}
	if attrs, err = json.Marshal(p.Attributes); err != nil {
		return
	}
	if owner, err = json.Marshal(p.Ownership); err != nil {
		return
	}
	lease, err = json.Marshal(p.Lease)
	return
}

// ===== records =====

func (s *Store) CreateRecord(ctx context.Context, p submit.Payload, actor string) (store.Record, error) {
	attrs, owner, lease, err := encodeDetails(p)
	if err != nil {
		return store.Record{}, err
	}
	now := s.now()
	row := s.db.QueryRowContext(ctx, `INSERT INTO `+tableRecords+` (
  id, module_id, company_id, scope_mapping_id,
  country_id, property_type_id, premises_type_id, area_id,
  name, building, city, address, region, status, usage,
  attributes, ownership, lease, version, created_at, updated_at, created_by, updated_by
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,1,$19,$19,$20,$20)
RETURNING `+recordColumns,
		ulid.Make().String(), p.ModuleID, p.CompanyID, p.ScopeMappingID,
		p.CountryID, p.PropertyTypeID, p.PremisesTypeID, p.AreaID,
		p.Name, p.Building, p.City, p.Address, p.Region, p.Status, p.Usage,
		attrs, owner, lease, now, actor)
	rec, err := scanRecord(row)
	if err != nil {
		return store.Record{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// UpdateRecord: оптимистичная блокировка по version (0, без проверки)
func (s *Store) UpdateRecord(ctx context.Context, id string, expectedVersion int64, p submit.Payload, actor string) (store.Record, error) {
	attrs, owner, lease, err := encodeDetails(p)
	if err != nil {
		return store.Record{}, err
	}
	row := s.db.QueryRowContext(ctx, `UPDATE `+tableRecords+` SET
  module_id=$2, company_id=$3, scope_mapping_id=$4,
  country_id=$5, property_type_id=$6, premises_type_id=$7, area_id=$8,
  name=$9, building=$10, city=$11, address=$12, region=$13, status=$14, usage=$15,
  attributes=$16, ownership=$17, lease=$18,
  version=version+1, updated_at=$19, updated_by=$20
WHERE id=$1 AND NOT deleted AND ($21::bigint = 0 OR version = $21)
RETURNING `+recordColumns,
		id, p.ModuleID, p.CompanyID, p.ScopeMappingID,
		p.CountryID, p.PropertyTypeID, p.PremisesTypeID, p.AreaID,
		p.Name, p.Building, p.City, p.Address, p.Region, p.Status, p.Usage,
		attrs, owner, lease, s.now(), actor, expectedVersion)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		// различаем «нет записи» и «чужая версия»
		if _, gerr := s.GetRecord(ctx, id); gerr != nil {
			return store.Record{}, gerr
		}
		return store.Record{}, store.ErrVersionConflict
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("update record %s: %w", id, err)
	}
	return rec, nil
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE `+tableRecords+`
SET deleted=true, version=version+1, updated_at=$2 WHERE id=$1 AND NOT deleted`, id, s.now())
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (store.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM `+tableRecords+` WHERE id=$1 AND NOT deleted`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, nil
}

// ListRecords: фильтры и поиск в WHERE, сортировка с NULLS LAST, total отдельным COUNT
func (s *Store) ListRecords(ctx context.Context, lp store.ListParams) ([]store.Record, int, error) {
	where := []string{"NOT deleted"}
	var args []any
	if lp.ModuleID != "" {
		args = append(args, lp.ModuleID)
		where = append(where, fmt.Sprintf("module_id = $%d", len(args)))
	}
	if lp.CompanyID != "" {
		args = append(args, lp.CompanyID)
		where = append(where, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if lp.Q != "" {
		args = append(args, "%"+escapeLike(lp.Q)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(name ILIKE $%[1]d OR city ILIKE $%[1]d OR address ILIKE $%[1]d OR building ILIKE $%[1]d OR "+
				"EXISTS (SELECT 1 FROM jsonb_each_text(attributes) a WHERE jsonb_typeof(attributes->a.key) = 'string' AND a.value ILIKE $%[1]d))", n))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+tableRecords+` WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	order := make([]string, 0, len(lp.Sort)+1)
	for _, k := range lp.Sort {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		order = append(order, orderExpr(k.Field, &args)+" "+dir+" NULLS LAST")
	}
	order = append(order, "id ASC")

	args = append(args, lp.Limit, lp.Offset)
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		recordColumns, tableRecords, cond, strings.Join(order, ", "), len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := make([]store.Record, 0, lp.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ===== scope mappings =====

const mappingColumns = `id, module_id, company_id, country_id, property_type_id, premises_type_id, area_id,
  is_active, selected_field_ids, created_at, updated_at`

func scanMapping(row rowScanner) (scope.Mapping, error) {
	var (
		m   scope.Mapping
		ids []byte
	)
	err := row.Scan(&m.ID, &m.ModuleID, &m.CompanyID, &m.CountryID, &m.PropertyTypeID, &m.PremisesTypeID, &m.AreaID,
		&m.Active, &ids, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return scope.Mapping{}, err
	}
	if err := json.Unmarshal(ids, &m.SelectedFieldIDs); err != nil {
		return scope.Mapping{}, fmt.Errorf("decode selected fields of %s: %w", m.ID, err)
	}
	if m.SelectedFieldIDs == nil {
		m.SelectedFieldIDs = []string{}
	}
	return m, nil
}

func encodeIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

// ListScopeMappings: в порядке создания (ULID); пустой companyID, все компании
func (s *Store) ListScopeMappings(ctx context.Context, companyID string) ([]scope.Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+mappingColumns+` FROM `+tableMappings+`
WHERE ($1 = '' OR company_id = $1) ORDER BY id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list scope mappings: %w", err)
	}
	defer rows.Close()
	var out []scope.Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetScopeMapping(ctx context.Context, id string) (scope.Mapping, error) {
	m, err := scanMapping(s.db.QueryRowContext(ctx, `SELECT `+mappingColumns+` FROM `+tableMappings+` WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return scope.Mapping{}, store.ErrNotFound
	}
	if err != nil {
		return scope.Mapping{}, fmt.Errorf("get scope mapping %s: %w", id, err)
	}
	return m, nil
}

func (s *Store) CreateScopeMapping(ctx context.Context, m scope.Mapping) (scope.Mapping, error) {
	ids, err := encodeIDs(m.SelectedFieldIDs)
	if err != nil {
		return scope.Mapping{}, err
	}
	now := s.now()
	out, err := scanMapping(s.db.QueryRowContext(ctx, `INSERT INTO `+tableMappings+` (
  id, module_id, company_id, country_id, property_type_id, premises_type_id, area_id,
  is_active, selected_field_ids, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10) RETURNING `+mappingColumns,
		ulid.Make().String(), m.ModuleID, m.CompanyID, m.CountryID, m.PropertyTypeID, m.PremisesTypeID, m.AreaID,
		m.Active, ids, now))
	if isUniqueViolation(err) {
		return scope.Mapping{}, fmt.Errorf("scope mapping already exists: %w", err)
	}
	if err != nil {
		return scope.Mapping{}, fmt.Errorf("insert scope mapping: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateScopeMapping(ctx context.Context, id string, m scope.Mapping) (scope.Mapping, error) {
	ids, err := encodeIDs(m.SelectedFieldIDs)
	if err != nil {
		return scope.Mapping{}, err
	}
	out, err := scanMapping(s.db.QueryRowContext(ctx, `UPDATE `+tableMappings+` SET
  module_id=$2, company_id=$3, country_id=$4, property_type_id=$5, premises_type_id=$6, area_id=$7,
  is_active=$8, selected_field_ids=$9, updated_at=$10
WHERE id=$1 RETURNING `+mappingColumns,
		id, m.ModuleID, m.CompanyID, m.CountryID, m.PropertyTypeID, m.PremisesTypeID, m.AreaID,
		m.Active, ids, s.now()))
	if errors.Is(err, sql.ErrNoRows) {
		return scope.Mapping{}, store.ErrNotFound
	}
	if err != nil {
		return scope.Mapping{}, fmt.Errorf("update scope mapping %s: %w", id, err)
	}
	return out, nil
}

func (s *Store) DeleteScopeMapping(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+tableMappings+` WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete scope mapping %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
