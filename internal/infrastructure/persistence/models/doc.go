// Package models contains GORM-specific persistence models that map to the
// ledger tables. Domain entities stay free of GORM tags; each model has
// ToDomain / FromDomain mappers used by the repositories.
//
// Table names are Spanish and match the SQL migrations: empresas,
// proveedores, clientes, consumos, cxc_documentos, cxc_documento_detalles,
// cxc_pagos, cxp_documentos, cxp_documento_detalles and cxp_pagos.
package models

// LedgerModels lists every model for AutoMigrate, parents first
func LedgerModels() []any {
	return []any{
		&EmployerModel{},
		&MerchantModel{},
		&ClientModel{},
		&ConsumptionModel{},
		&ReceivableDocumentModel{},
		&ReceivableLineModel{},
		&PayableDocumentModel{},
		&PayableLineModel{},
		&ReceivablePaymentModel{},
		&PayablePaymentModel{},
	}
}
