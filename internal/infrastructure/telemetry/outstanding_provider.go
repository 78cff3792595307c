package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormOutstandingProvider implements OutstandingProvider using GORM.
// It aggregates the document tables directly.
type GormOutstandingProvider struct {
	db *gorm.DB
}

// NewGormOutstandingProvider creates a new GormOutstandingProvider.
func NewGormOutstandingProvider(db *gorm.DB) *GormOutstandingProvider {
	return &GormOutstandingProvider{db: db}
}

var outstandingTables = map[string]string{
	"CXC": "cxc_documentos",
	"CXP": "cxp_documentos",
}

// OutstandingByKind returns open document count and outstanding amount per document kind.
func (p *GormOutstandingProvider) OutstandingByKind(ctx context.Context) (map[string]OutstandingStat, error) {
	type result struct {
		OpenDocuments int64           `gorm:"column:open_documents"`
		Outstanding   decimal.Decimal `gorm:"column:outstanding"`
	}

	stats := make(map[string]OutstandingStat, len(outstandingTables))
	for kind, table := range outstandingTables {
		var r result
		err := p.db.WithContext(ctx).
			Table(table).
			Select("COUNT(*) AS open_documents, COALESCE(SUM(monto_pendiente), 0) AS outstanding").
			Where("anulado = ? AND monto_pendiente > 0", false).
			Scan(&r).Error
		if err != nil {
			return nil, err
		}
		stats[kind] = OutstandingStat{OpenDocuments: r.OpenDocuments, Outstanding: r.Outstanding}
	}
	return stats, nil
}
