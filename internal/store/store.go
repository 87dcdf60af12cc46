package store

import (
	"context"
	"errors"
	"time"

	"assetadmin/internal/scope"
	"assetadmin/internal/submit"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
)

// Record: динамическая запись (Premise): системные атрибуты + мешок атрибутов по ключам
// полей, видимых на момент редактирования.
type Record struct {
	ID             string `json:"id"`
	ModuleID       string `json:"moduleId"`
	CompanyID      string `json:"companyId"`
	ScopeMappingID string `json:"scopeMappingId,omitempty"`
	scope.Dimensions
	Name       string                 `json:"name"`
	Building   string                 `json:"buildingName"`
	City       string                 `json:"city"`
	Address    string                 `json:"address"`
	Region     string                 `json:"region"`
	Status     string                 `json:"status"`
	Usage      string                 `json:"usage"`
	Attributes map[string]any         `json:"attributes"`
	Ownership  submit.OwnershipDetail `json:"ownershipDetail"`
	Lease      submit.LeaseDetail     `json:"leaseDetail"`
	Version    int64                  `json:"version"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	CreatedBy  string                 `json:"createdBy,omitempty"`
	UpdatedBy  string                 `json:"updatedBy,omitempty"`
	Deleted    bool                   `json:"-"`
}

// apply переносит нормализованный payload в запись (id/версия/аудит не трогаются)
func (r *Record) apply(p submit.Payload) {
	r.ModuleID = p.ModuleID
	r.CompanyID = p.CompanyID
	r.ScopeMappingID = p.ScopeMappingID
	r.Dimensions = p.Dimensions
	r.Name = p.Name
	r.Building = p.Building
	r.City = p.City
	r.Address = p.Address
	r.Region = p.Region
	r.Status = p.Status
	r.Usage = p.Usage
	r.Attributes = p.Attributes
	r.Ownership = p.Ownership
	r.Lease = p.Lease
}

// NewRecord собирает запись из payload (для реализаций вне пакета)
func NewRecord(p submit.Payload) Record {
	var r Record
	r.apply(p)
	return r
}

// Records: внешний коллаборатор хранения записей
type Records interface {
	CreateRecord(ctx context.Context, p submit.Payload, actor string) (Record, error)
	// expectedVersion=0: без проверки версии
	UpdateRecord(ctx context.Context, id string, expectedVersion int64, p submit.Payload, actor string) (Record, error)
	DeleteRecord(ctx context.Context, id string) error
	GetRecord(ctx context.Context, id string) (Record, error)
	ListRecords(ctx context.Context, lp ListParams) ([]Record, int, error)
}

// ScopeMappings: хранилище маппингов; read-through, без кэша
type ScopeMappings interface {
	scope.Source
	GetScopeMapping(ctx context.Context, id string) (scope.Mapping, error)
	CreateScopeMapping(ctx context.Context, m scope.Mapping) (scope.Mapping, error)
	UpdateScopeMapping(ctx context.Context, id string, m scope.Mapping) (scope.Mapping, error)
	DeleteScopeMapping(ctx context.Context, id string) error
}

// Store: обе стороны вместе (memory и pg реализуют целиком)
type Store interface {
	Records
	ScopeMappings
}
