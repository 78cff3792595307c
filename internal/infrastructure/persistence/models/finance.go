package models

import (
	"time"

	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentBalanceModel holds the balance columns shared by cxc_documentos
// and cxp_documentos. monto_pendiente is checked >= 0 by the schema.
type DocumentBalanceModel struct {
	TotalAmount       decimal.Decimal        `gorm:"column:monto_total;type:decimal(18,2);not null"`
	PaidAmount        decimal.Decimal        `gorm:"column:monto_pagado;type:decimal(18,2);not null;default:0"`
	OutstandingAmount decimal.Decimal        `gorm:"column:monto_pendiente;type:decimal(18,2);not null"`
	Status            finance.DocumentStatus `gorm:"column:estado;type:varchar(20);not null;default:'PENDING';index"`
	Voided            bool                   `gorm:"column:anulado;not null;default:false"`
	PaidAt            *time.Time             `gorm:"column:fecha_pago"`
}

func (m *DocumentBalanceModel) toDomain() finance.DocumentBalance {
	return finance.DocumentBalance{
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		OutstandingAmount: m.OutstandingAmount,
		Status:            m.Status,
		Voided:            m.Voided,
		PaidAt:            m.PaidAt,
	}
}

func (m *DocumentBalanceModel) fromDomain(b finance.DocumentBalance) {
	m.TotalAmount = b.TotalAmount
	m.PaidAmount = b.PaidAmount
	m.OutstandingAmount = b.OutstandingAmount
	m.Status = b.Status
	m.Voided = b.Voided
	m.PaidAt = b.PaidAt
}

// ReceivableDocumentModel is the persistence model for the ReceivableDocument aggregate (cxc_documentos).
// One non-void document per (empresa_id, periodo_desde, periodo_hasta).
type ReceivableDocumentModel struct {
	AggregateModel
	DocumentBalanceModel
	DocumentNumber string                `gorm:"column:numero_documento;type:varchar(30);not null;uniqueIndex"`
	EmployerID     uuid.UUID             `gorm:"column:empresa_id;type:uuid;not null;uniqueIndex:uq_cxc_empresa_periodo,priority:1,where:anulado = false"`
	PeriodFrom     time.Time             `gorm:"column:periodo_desde;not null;uniqueIndex:uq_cxc_empresa_periodo,priority:2"`
	PeriodTo       time.Time             `gorm:"column:periodo_hasta;not null;uniqueIndex:uq_cxc_empresa_periodo,priority:3"`
	IssueDate      time.Time             `gorm:"column:fecha_emision;not null"`
	DueDate        time.Time             `gorm:"column:fecha_vencimiento;not null;index"`
	EmployeeCount  int                   `gorm:"column:cantidad_empleados;not null;default:0"`
	Lines          []ReceivableLineModel `gorm:"foreignKey:DocumentID;references:ID"`
}

// TableName returns the table name for GORM
func (ReceivableDocumentModel) TableName() string {
	return "cxc_documentos"
}

// ToDomain converts the persistence model to a domain ReceivableDocument.
// Lines are included only when they were preloaded.
func (m *ReceivableDocumentModel) ToDomain() *finance.ReceivableDocument {
	doc := &finance.ReceivableDocument{
		BaseAggregateRoot: m.AggregateRoot(),
		DocumentBalance:   m.DocumentBalanceModel.toDomain(),
		DocumentNumber:    m.DocumentNumber,
		EmployerID:        m.EmployerID,
		Period:            valueobject.Period{From: m.PeriodFrom, To: m.PeriodTo},
		IssueDate:         m.IssueDate,
		DueDate:           m.DueDate,
		EmployeeCount:     m.EmployeeCount,
	}
	if len(m.Lines) > 0 {
		doc.Lines = make([]finance.ReceivableLine, len(m.Lines))
		for i := range m.Lines {
			doc.Lines[i] = m.Lines[i].ToDomain()
		}
	}
	return doc
}

// FromDomain populates the persistence model from a domain ReceivableDocument
func (m *ReceivableDocumentModel) FromDomain(doc *finance.ReceivableDocument) {
	m.SetAggregateRoot(doc.BaseAggregateRoot)
	m.DocumentBalanceModel.fromDomain(doc.DocumentBalance)
	m.DocumentNumber = doc.DocumentNumber
	m.EmployerID = doc.EmployerID
	m.PeriodFrom = doc.Period.From
	m.PeriodTo = doc.Period.To
	m.IssueDate = doc.IssueDate
	m.DueDate = doc.DueDate
	m.EmployeeCount = doc.EmployeeCount
}

// ReceivableDocumentModelFromDomain creates a header model from a domain
// ReceivableDocument. Lines are mapped separately.
func ReceivableDocumentModelFromDomain(doc *finance.ReceivableDocument) *ReceivableDocumentModel {
	m := &ReceivableDocumentModel{}
	m.FromDomain(doc)
	return m
}

// ReceivableLineModel is a receivable detail line (cxc_documento_detalles).
// consumo_id is unique: a consumption is attached to at most one receivable.
type ReceivableLineModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	DocumentID    uuid.UUID       `gorm:"column:documento_id;type:uuid;not null;index"`
	ConsumptionID uuid.UUID       `gorm:"column:consumo_id;type:uuid;not null;uniqueIndex"`
	ClientID      uuid.UUID       `gorm:"column:cliente_id;type:uuid;not null;index"`
	OccurredAt    time.Time       `gorm:"column:fecha;not null"`
	Amount        decimal.Decimal `gorm:"column:monto;type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (ReceivableLineModel) TableName() string {
	return "cxc_documento_detalles"
}

// ToDomain converts the persistence model to a domain ReceivableLine
func (m *ReceivableLineModel) ToDomain() finance.ReceivableLine {
	return finance.ReceivableLine{
		ID:            m.ID,
		DocumentID:    m.DocumentID,
		ConsumptionID: m.ConsumptionID,
		ClientID:      m.ClientID,
		OccurredAt:    m.OccurredAt,
		Amount:        m.Amount,
	}
}

// ReceivableLineModelsFromDomain maps the lines of a receivable document
func ReceivableLineModelsFromDomain(lines []finance.ReceivableLine) []ReceivableLineModel {
	out := make([]ReceivableLineModel, len(lines))
	for i, l := range lines {
		out[i] = ReceivableLineModel{
			ID:            l.ID,
			DocumentID:    l.DocumentID,
			ConsumptionID: l.ConsumptionID,
			ClientID:      l.ClientID,
			OccurredAt:    l.OccurredAt,
			Amount:        l.Amount,
		}
	}
	return out
}

// PayableDocumentModel is the persistence model for the PayableDocument aggregate (cxp_documentos).
// monto_total holds the net amount owed to the merchant.
type PayableDocumentModel struct {
	AggregateModel
	DocumentBalanceModel
	DocumentNumber    string             `gorm:"column:numero_documento;type:varchar(30);not null;uniqueIndex"`
	MerchantID        uuid.UUID          `gorm:"column:proveedor_id;type:uuid;not null;uniqueIndex:uq_cxp_proveedor_periodo,priority:1,where:anulado = false"`
	PeriodFrom        time.Time          `gorm:"column:periodo_desde;not null;uniqueIndex:uq_cxp_proveedor_periodo,priority:2"`
	PeriodTo          time.Time          `gorm:"column:periodo_hasta;not null;uniqueIndex:uq_cxp_proveedor_periodo,priority:3"`
	IssueDate         time.Time          `gorm:"column:fecha_emision;not null"`
	DueDate           time.Time          `gorm:"column:fecha_vencimiento;not null;index"`
	GrossAmount       decimal.Decimal    `gorm:"column:monto_bruto;type:decimal(18,2);not null"`
	CommissionAmount  decimal.Decimal    `gorm:"column:monto_comision;type:decimal(18,2);not null"`
	NetAmount         decimal.Decimal    `gorm:"column:monto_neto;type:decimal(18,2);not null"`
	CommissionPercent decimal.Decimal    `gorm:"column:porcentaje_comision;type:decimal(5,2);not null"`
	Lines             []PayableLineModel `gorm:"foreignKey:DocumentID;references:ID"`
}

// TableName returns the table name for GORM
func (PayableDocumentModel) TableName() string {
	return "cxp_documentos"
}

// ToDomain converts the persistence model to a domain PayableDocument
func (m *PayableDocumentModel) ToDomain() *finance.PayableDocument {
	doc := &finance.PayableDocument{
		BaseAggregateRoot: m.AggregateRoot(),
		DocumentBalance:   m.DocumentBalanceModel.toDomain(),
		DocumentNumber:    m.DocumentNumber,
		MerchantID:        m.MerchantID,
		Period:            valueobject.Period{From: m.PeriodFrom, To: m.PeriodTo},
		IssueDate:         m.IssueDate,
		DueDate:           m.DueDate,
		GrossAmount:       m.GrossAmount,
		CommissionAmount:  m.CommissionAmount,
		NetAmount:         m.NetAmount,
		CommissionPercent: m.CommissionPercent,
	}
	if len(m.Lines) > 0 {
		doc.Lines = make([]finance.PayableLine, len(m.Lines))
		for i := range m.Lines {
			doc.Lines[i] = m.Lines[i].ToDomain()
		}
	}
	return doc
}

// FromDomain populates the persistence model from a domain PayableDocument
func (m *PayableDocumentModel) FromDomain(doc *finance.PayableDocument) {
	m.SetAggregateRoot(doc.BaseAggregateRoot)
	m.DocumentBalanceModel.fromDomain(doc.DocumentBalance)
	m.DocumentNumber = doc.DocumentNumber
	m.MerchantID = doc.MerchantID
	m.PeriodFrom = doc.Period.From
	m.PeriodTo = doc.Period.To
	m.IssueDate = doc.IssueDate
	m.DueDate = doc.DueDate
	m.GrossAmount = doc.GrossAmount
	m.CommissionAmount = doc.CommissionAmount
	m.NetAmount = doc.NetAmount
	m.CommissionPercent = doc.CommissionPercent
}

// PayableDocumentModelFromDomain creates a header model from a domain PayableDocument
func PayableDocumentModelFromDomain(doc *finance.PayableDocument) *PayableDocumentModel {
	m := &PayableDocumentModel{}
	m.FromDomain(doc)
	return m
}

// PayableLineModel is a payable detail line (cxp_documento_detalles)
type PayableLineModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	DocumentID    uuid.UUID       `gorm:"column:documento_id;type:uuid;not null;index"`
	ConsumptionID uuid.UUID       `gorm:"column:consumo_id;type:uuid;not null;uniqueIndex"`
	ClientID      uuid.UUID       `gorm:"column:cliente_id;type:uuid;not null"`
	OccurredAt    time.Time       `gorm:"column:fecha;not null"`
	Amount        decimal.Decimal `gorm:"column:monto;type:decimal(18,2);not null"`
	Commission    decimal.Decimal `gorm:"column:comision;type:decimal(18,2);not null"`
	NetAmount     decimal.Decimal `gorm:"column:monto_neto;type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (PayableLineModel) TableName() string {
	return "cxp_documento_detalles"
}

// ToDomain converts the persistence model to a domain PayableLine
func (m *PayableLineModel) ToDomain() finance.PayableLine {
	return finance.PayableLine{
		ID:            m.ID,
		DocumentID:    m.DocumentID,
		ConsumptionID: m.ConsumptionID,
		ClientID:      m.ClientID,
		OccurredAt:    m.OccurredAt,
		Amount:        m.Amount,
		Commission:    m.Commission,
		NetAmount:     m.NetAmount,
	}
}

// PayableLineModelsFromDomain maps the lines of a payable document
func PayableLineModelsFromDomain(lines []finance.PayableLine) []PayableLineModel {
	out := make([]PayableLineModel, len(lines))
	for i, l := range lines {
		out[i] = PayableLineModel{
			ID:            l.ID,
			DocumentID:    l.DocumentID,
			ConsumptionID: l.ConsumptionID,
			ClientID:      l.ClientID,
			OccurredAt:    l.OccurredAt,
			Amount:        l.Amount,
			Commission:    l.Commission,
			NetAmount:     l.NetAmount,
		}
	}
	return out
}

// PaymentModel is the persistence model for payments. Receivable and payable
// payments share the shape and live in cxc_pagos and cxp_pagos.
type PaymentModel struct {
	BaseModel
	DocumentID    uuid.UUID             `gorm:"column:documento_id;type:uuid;not null;index"`
	PaymentNumber string                `gorm:"column:numero_pago;type:varchar(30);not null;uniqueIndex"`
	PaidAt        time.Time             `gorm:"column:fecha_pago;not null"`
	Amount        decimal.Decimal       `gorm:"column:monto;type:decimal(18,2);not null"`
	Method        finance.PaymentMethod `gorm:"column:metodo_pago;type:varchar(20);not null"`
	Reference     string                `gorm:"column:referencia;type:varchar(100)"`
	Bank          string                `gorm:"column:banco;type:varchar(100)"`
	Notes         string                `gorm:"column:notas;type:varchar(500)"`
	RecordedBy    uuid.UUID             `gorm:"column:registrado_por;type:uuid"`
	Voided        bool                  `gorm:"column:anulado;not null;default:false"`

	// NULL when absent so keyless payments never collide
	IdempotencyKey *string `gorm:"column:clave_idempotencia;type:varchar(128);uniqueIndex"`
}

// PaymentTable returns the payment table of a document kind
func PaymentTable(kind finance.DocumentKind) string {
	if kind == finance.DocumentKindPayable {
		return "cxp_pagos"
	}
	return "cxc_pagos"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain(kind finance.DocumentKind) *finance.Payment {
	p := &finance.Payment{
		BaseEntity:    m.Entity(),
		Kind:          kind,
		DocumentID:    m.DocumentID,
		PaymentNumber: m.PaymentNumber,
		PaidAt:        m.PaidAt,
		Amount:        m.Amount,
		Method:        m.Method,
		Reference:     m.Reference,
		Bank:          m.Bank,
		Notes:         m.Notes,
		RecordedBy:    m.RecordedBy,
		Voided:        m.Voided,
	}
	if m.IdempotencyKey != nil {
		p.IdempotencyKey = *m.IdempotencyKey
	}
	return p
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{
		BaseModel:     baseModelOf(p.BaseEntity),
		DocumentID:    p.DocumentID,
		PaymentNumber: p.PaymentNumber,
		PaidAt:        p.PaidAt,
		Amount:        p.Amount,
		Method:        p.Method,
		Reference:     p.Reference,
		Bank:          p.Bank,
		Notes:         p.Notes,
		RecordedBy:    p.RecordedBy,
		Voided:        p.Voided,
	}
	if p.IdempotencyKey != "" {
		key := p.IdempotencyKey
		m.IdempotencyKey = &key
	}
	return m
}

// ReceivablePaymentModel binds PaymentModel to cxc_pagos for schema migration
type ReceivablePaymentModel struct {
	PaymentModel
}

// TableName returns the table name for GORM
func (ReceivablePaymentModel) TableName() string {
	return "cxc_pagos"
}

// PayablePaymentModel binds PaymentModel to cxp_pagos for schema migration
type PayablePaymentModel struct {
	PaymentModel
}

// TableName returns the table name for GORM
func (PayablePaymentModel) TableName() string {
	return "cxp_pagos"
}
