package models

import (
	"time"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientModel is the persistence model for the Client aggregate (clientes).
// saldo is checked >= 0 by the schema.
type ClientModel struct {
	AggregateModel
	EmployerID    uuid.UUID       `gorm:"column:empresa_id;type:uuid;not null;index"`
	Name          string          `gorm:"column:nombre;type:varchar(200);not null"`
	OriginalLimit decimal.Decimal `gorm:"column:saldo_original;type:decimal(18,2);not null"`
	Balance       decimal.Decimal `gorm:"column:saldo;type:decimal(18,2);not null"`
	Active        bool            `gorm:"column:activo;not null;default:true"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clientes"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *credit.Client {
	return &credit.Client{
		BaseAggregateRoot: m.AggregateRoot(),
		EmployerID:        m.EmployerID,
		Name:              m.Name,
		OriginalLimit:     m.OriginalLimit,
		Balance:           m.Balance,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain Client
func (m *ClientModel) FromDomain(c *credit.Client) {
	m.SetAggregateRoot(c.BaseAggregateRoot)
	m.EmployerID = c.EmployerID
	m.Name = c.Name
	m.OriginalLimit = c.OriginalLimit
	m.Balance = c.Balance
	m.Active = c.Active
}

// ClientModelFromDomain creates a new persistence model from a domain Client
func ClientModelFromDomain(c *credit.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}

// ConsumptionModel is the persistence model for the Consumption aggregate (consumos)
type ConsumptionModel struct {
	AggregateModel
	OccurredAt     time.Time        `gorm:"column:fecha;not null;index:idx_consumos_empresa_fecha,priority:2;index:idx_consumos_proveedor_fecha,priority:2"`
	ClientID       uuid.UUID        `gorm:"column:cliente_id;type:uuid;not null;index"`
	EmployerID     uuid.UUID        `gorm:"column:empresa_id;type:uuid;not null;index:idx_consumos_empresa_fecha,priority:1"`
	MerchantID     uuid.UUID        `gorm:"column:proveedor_id;type:uuid;not null;index:idx_consumos_proveedor_fecha,priority:1"`
	StoreID        *uuid.UUID       `gorm:"column:tienda_id;type:uuid"`
	Amount         decimal.Decimal  `gorm:"column:monto;type:decimal(18,2);not null"`
	Commission     *decimal.Decimal `gorm:"column:comision;type:decimal(18,2)"`
	NetAmount      *decimal.Decimal `gorm:"column:monto_neto;type:decimal(18,2)"`
	Reversed       bool             `gorm:"column:reversado;not null;default:false"`
	ReversedAt     *time.Time       `gorm:"column:fecha_reverso"`
	ReversedBy     *uuid.UUID       `gorm:"column:reversado_por;type:uuid"`
	ReversalReason string           `gorm:"column:motivo_reverso;type:varchar(500)"`
	RegisteredBy   uuid.UUID        `gorm:"column:registrado_por;type:uuid"`
}

// TableName returns the table name for GORM
func (ConsumptionModel) TableName() string {
	return "consumos"
}

// ToDomain converts the persistence model to a domain Consumption
func (m *ConsumptionModel) ToDomain() *credit.Consumption {
	return &credit.Consumption{
		BaseAggregateRoot: m.AggregateRoot(),
		OccurredAt:        m.OccurredAt,
		ClientID:          m.ClientID,
		EmployerID:        m.EmployerID,
		MerchantID:        m.MerchantID,
		StoreID:           m.StoreID,
		Amount:            m.Amount,
		Commission:        m.Commission,
		NetAmount:         m.NetAmount,
		Reversed:          m.Reversed,
		ReversedAt:        m.ReversedAt,
		ReversedBy:        m.ReversedBy,
		ReversalReason:    m.ReversalReason,
		RegisteredBy:      m.RegisteredBy,
	}
}

// FromDomain populates the persistence model from a domain Consumption
func (m *ConsumptionModel) FromDomain(c *credit.Consumption) {
	m.SetAggregateRoot(c.BaseAggregateRoot)
	m.OccurredAt = c.OccurredAt
	m.ClientID = c.ClientID
	m.EmployerID = c.EmployerID
	m.MerchantID = c.MerchantID
	m.StoreID = c.StoreID
	m.Amount = c.Amount
	m.Commission = c.Commission
	m.NetAmount = c.NetAmount
	m.Reversed = c.Reversed
	m.ReversedAt = c.ReversedAt
	m.ReversedBy = c.ReversedBy
	m.ReversalReason = c.ReversalReason
	m.RegisteredBy = c.RegisteredBy
}

// ConsumptionModelFromDomain creates a new persistence model from a domain Consumption
func ConsumptionModelFromDomain(c *credit.Consumption) *ConsumptionModel {
	m := &ConsumptionModel{}
	m.FromDomain(c)
	return m
}
