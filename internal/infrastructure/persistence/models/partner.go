package models

import (
	"github.com/erp/credit-ledger/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// EmployerModel is the persistence model for the Employer aggregate (empresas)
type EmployerModel struct {
	AggregateModel
	Name   string `gorm:"column:nombre;type:varchar(200);not null"`
	TaxID  string `gorm:"column:rif;type:varchar(50)"`
	Active bool   `gorm:"column:activo;not null;default:true"`
}

// TableName returns the table name for GORM
func (EmployerModel) TableName() string {
	return "empresas"
}

// ToDomain converts the persistence model to a domain Employer
func (m *EmployerModel) ToDomain() *partner.Employer {
	return &partner.Employer{
		BaseAggregateRoot: m.AggregateRoot(),
		Name:              m.Name,
		TaxID:             m.TaxID,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain Employer
func (m *EmployerModel) FromDomain(e *partner.Employer) {
	m.SetAggregateRoot(e.BaseAggregateRoot)
	m.Name = e.Name
	m.TaxID = e.TaxID
	m.Active = e.Active
}

// EmployerModelFromDomain creates a new persistence model from a domain Employer
func EmployerModelFromDomain(e *partner.Employer) *EmployerModel {
	m := &EmployerModel{}
	m.FromDomain(e)
	return m
}

// MerchantModel is the persistence model for the Merchant aggregate (proveedores)
type MerchantModel struct {
	AggregateModel
	Name              string          `gorm:"column:nombre;type:varchar(200);not null"`
	TaxID             string          `gorm:"column:rif;type:varchar(50)"`
	CommissionPercent decimal.Decimal `gorm:"column:porcentaje_comision;type:decimal(5,2);not null;default:0"`
	Active            bool            `gorm:"column:activo;not null;default:true"`
}

// TableName returns the table name for GORM
func (MerchantModel) TableName() string {
	return "proveedores"
}

// ToDomain converts the persistence model to a domain Merchant
func (m *MerchantModel) ToDomain() *partner.Merchant {
	return &partner.Merchant{
		BaseAggregateRoot: m.AggregateRoot(),
		Name:              m.Name,
		TaxID:             m.TaxID,
		CommissionPercent: m.CommissionPercent,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain Merchant
func (m *MerchantModel) FromDomain(mer *partner.Merchant) {
	m.SetAggregateRoot(mer.BaseAggregateRoot)
	m.Name = mer.Name
	m.TaxID = mer.TaxID
	m.CommissionPercent = mer.CommissionPercent
	m.Active = mer.Active
}

// MerchantModelFromDomain creates a new persistence model from a domain Merchant
func MerchantModelFromDomain(mer *partner.Merchant) *MerchantModel {
	m := &MerchantModel{}
	m.FromDomain(mer)
	return m
}
