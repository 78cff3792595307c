package finance

import (
	"context"

	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableDocumentRepository defines persistence for receivable documents
type ReceivableDocumentRepository interface {
	// FindByID finds a document with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*ReceivableDocument, error)

	// FindByIDForUpdate locks the document row until the transaction ends.
	// Lines are not loaded; use FindLines.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ReceivableDocument, error)

	// FindLines returns the document's detail lines
	FindLines(ctx context.Context, documentID uuid.UUID) ([]ReceivableLine, error)

	// ExistsForPeriod checks for a non-void document with exactly this scope and period
	ExistsForPeriod(ctx context.Context, employerID uuid.UUID, period valueobject.Period) (bool, error)

	// Create inserts the document and all of its lines
	Create(ctx context.Context, doc *ReceivableDocument) error

	// SaveWithLock updates the document header if its version is unchanged
	SaveWithLock(ctx context.Context, doc *ReceivableDocument) error
}

// PayableDocumentRepository defines persistence for payable documents
type PayableDocumentRepository interface {
	// FindByID finds a document with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*PayableDocument, error)

	// FindByIDForUpdate locks the document row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PayableDocument, error)

	// FindLines returns the document's detail lines
	FindLines(ctx context.Context, documentID uuid.UUID) ([]PayableLine, error)

	// ExistsForPeriod checks for a non-void document with exactly this scope and period
	ExistsForPeriod(ctx context.Context, merchantID uuid.UUID, period valueobject.Period) (bool, error)

	// Create inserts the document and all of its lines
	Create(ctx context.Context, doc *PayableDocument) error

	// SaveWithLock updates the document header if its version is unchanged
	SaveWithLock(ctx context.Context, doc *PayableDocument) error
}

// PaymentRepository defines persistence for payments of both document kinds
type PaymentRepository interface {
	// Create inserts a payment into the table of its kind
	Create(ctx context.Context, payment *Payment) error

	// FindByDocument lists a document's payments ordered by payment date
	FindByDocument(ctx context.Context, kind DocumentKind, documentID uuid.UUID) ([]Payment, error)

	// SumByDocument sums the non-void payments of a document
	SumByDocument(ctx context.Context, kind DocumentKind, documentID uuid.UUID) (decimal.Decimal, error)

	// ExistsByIdempotencyKey reports whether a payment of kind already
	// carries key
	ExistsByIdempotencyKey(ctx context.Context, kind DocumentKind, key string) (bool, error)
}

// DocumentNumberRepository reads the number sequences stored in the document
// and payment tables
type DocumentNumberRepository interface {
	// LockSequence serializes number allocation for (prefix, year) until the
	// transaction ends
	LockSequence(ctx context.Context, prefix string, year int) error

	// LastNumber returns the highest number of the (prefix, year) sequence,
	// or "" when the sequence is empty
	LastNumber(ctx context.Context, prefix string, year int) (string, error)
}

// ScopeLocker serializes consolidations of one employer or merchant
type ScopeLocker interface {
	// LockScope blocks concurrent consolidations of the same scope until the
	// transaction ends
	LockScope(ctx context.Context, kind DocumentKind, scopeID uuid.UUID) error
}
