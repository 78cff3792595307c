package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/credit-ledger/internal/domain/shared"
)

// BaseModel holds the identity and timestamp columns every ledger table has
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func baseModelOf(e shared.BaseEntity) BaseModel {
	return BaseModel{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

// Entity returns the columns as a domain entity
func (m *BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// AggregateModel adds the version column guarded by SaveWithLock
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// SetAggregateRoot copies identity, timestamps and version from a
func (m *AggregateModel) SetAggregateRoot(a shared.BaseAggregateRoot) {
	m.BaseModel = baseModelOf(a.BaseEntity)
	m.Version = a.Version
}

// AggregateRoot rebuilds the aggregate header. Pending events are not
// persisted, so the result has none.
func (m *AggregateModel) AggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: m.Entity(), Version: m.Version}
}
