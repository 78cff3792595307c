package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/logger"
	"github.com/erp/credit-ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService registers payments against receivable and payable
// documents. A payment that settles a receivable restores the credit of
// every client on it in the same transaction.
type PaymentService struct {
	txScope         TransactionScope
	numbering       *NumberingService
	idempotency     shared.IdempotencyStore
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
	opts            Options
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(txScope TransactionScope, log *zap.Logger, opts Options) *PaymentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentService{
		txScope:        txScope,
		numbering:      NewNumberingService(),
		eventPublisher: shared.NopEventPublisher{},
		logger:         log,
		opts:           opts.withDefaults(),
	}
}

// SetIdempotencyStore enables idempotency keys on payment requests
func (s *PaymentService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetEventPublisher sets the publisher for events of committed payments
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics recorder
func (s *PaymentService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// paymentInput is a validated payment request
type paymentInput struct {
	method  finance.PaymentMethod
	details finance.PaymentDetails
	paidAt  time.Time
	key     string
}

func (s *PaymentService) prepare(ctx context.Context, kind finance.DocumentKind, req RegisterPaymentRequest) (*paymentInput, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	method, err := finance.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, err
	}
	paidAt := req.PaidAt
	if paidAt.IsZero() {
		paidAt = s.opts.Clock()
	}

	in := &paymentInput{
		method: method,
		details: finance.PaymentDetails{
			Reference:      req.Reference,
			Bank:           req.Bank,
			Notes:          req.Notes,
			RecordedBy:     req.RecordedBy,
			IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
		},
		paidAt: paidAt,
	}
	// The store only short-cuts retries that already committed. The payment
	// tables enforce the key inside the transaction.
	if in.details.IdempotencyKey != "" && s.idempotency != nil {
		in.key = "payment:" + kind.String() + ":" + in.details.IdempotencyKey
		processed, err := s.idempotency.IsProcessed(ctx, in.key)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if processed {
			return nil, shared.ErrDuplicateRequest
		}
	}
	return in, nil
}

// RegisterReceivablePayment registers a payment against a CXC document.
// Checks run in this order: DOCUMENT_NOT_FOUND, DOCUMENT_VOIDED,
// ALREADY_FULLY_PAID, INVALID_AMOUNT, EXCEEDS_OUTSTANDING.
func (s *PaymentService) RegisterReceivablePayment(ctx context.Context, req RegisterPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "register_receivable")
	defer span.End()
	started := time.Now()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentID, req.DocumentID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrPaymentMethod, req.Method,
	)

	in, err := s.prepare(ctx, finance.DocumentKindReceivable, req)
	if err != nil {
		telemetry.RecordError(span, err)
		s.recordPayment(ctx, finance.DocumentKindReceivable, req.Method, err, req.Amount)
		return nil, err
	}

	var (
		doc          *finance.ReceivableDocument
		payment      *finance.Payment
		clients      []*credit.Client
		restorations []credit.Restoration
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		doc, err = repos.ReceivableRepo().FindByIDForUpdate(ctx, req.DocumentID)
		if err != nil {
			return notFoundAs(err, finance.ErrDocumentNotFound)
		}
		if err := s.checkKeyUnused(ctx, repos, finance.DocumentKindReceivable, in); err != nil {
			return err
		}
		// Reject before a number is taken from the sequence
		if err := doc.CheckPayment(req.Amount); err != nil {
			return err
		}

		number, err := s.numbering.NextNumber(ctx, repos.NumberRepo(), finance.PrefixReceivablePayment, s.opts.Clock().Year())
		if err != nil {
			return err
		}
		payment, err = doc.ApplyPayment(number, req.Amount, in.method, in.details, in.paidAt)
		if err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		if err := repos.ReceivableRepo().SaveWithLock(ctx, doc); err != nil {
			return fmt.Errorf("failed to update receivable document: %w", err)
		}

		if doc.Status != finance.DocumentStatusPaid {
			return nil
		}
		clients, restorations, err = s.restoreCredit(ctx, repos, doc)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.recordPayment(ctx, finance.DocumentKindReceivable, in.method.String(), err, req.Amount)
		return nil, err
	}

	s.markProcessed(ctx, in.key)
	log := logger.WithLogger(ctx, s.logger)
	log.Info("Receivable payment registered",
		zap.String("document_number", doc.DocumentNumber),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("amount", payment.Amount.String()),
		zap.String("outstanding_amount", doc.OutstandingAmount.String()),
		zap.String("status", doc.Status.String()),
	)

	result := &PaymentResult{
		PaymentID:      payment.ID,
		PaymentNumber:  payment.PaymentNumber,
		NewOutstanding: doc.OutstandingAmount,
		NewStatus:      doc.Status,
	}
	if len(restorations) > 0 {
		restored := decimal.Zero
		result.CreditRestored = make([]CreditRestoration, 0, len(restorations))
		for _, r := range restorations {
			restored = restored.Add(r.Amount)
			result.CreditRestored = append(result.CreditRestored, CreditRestoration{
				ClientID:     r.ClientID,
				Amount:       r.Amount,
				NewBalance:   r.BalanceAfter,
				ExceedsLimit: r.ExceedsLimit,
			})
			if r.ExceedsLimit {
				log.Warn("Restored balance exceeds the original credit limit",
					zap.String("document_number", doc.DocumentNumber),
					zap.String("client_id", r.ClientID.String()),
					zap.String("restored", r.Amount.String()),
					zap.String("balance", r.BalanceAfter.String()),
				)
			}
		}
		log.Info("Client credit restored",
			zap.String("document_number", doc.DocumentNumber),
			zap.Int("client_count", len(restorations)),
			zap.String("restored_total", restored.String()),
		)
		if s.businessMetrics != nil {
			s.businessMetrics.RecordCreditRestored(ctx, len(restorations), restored)
		}
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID.String(),
		telemetry.SpanAttrDocumentStatus, doc.Status.String(),
	)
	s.recordPayment(ctx, finance.DocumentKindReceivable, in.method.String(), nil, payment.Amount)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordOperationDuration(ctx, "register_receivable_payment", time.Since(started))
	}

	aggregates := make([]shared.AggregateRoot, 0, len(clients)+1)
	aggregates = append(aggregates, doc)
	for _, c := range clients {
		aggregates = append(aggregates, c)
	}
	publishEvents(ctx, s.eventPublisher, s.logger, aggregates...)

	return result, nil
}

// restoreCredit locks the clients referenced by a paid receivable in ID
// order and gives each its attributed amount back, uncapped
func (s *PaymentService) restoreCredit(ctx context.Context, repos TransactionalRepositories, doc *finance.ReceivableDocument) ([]*credit.Client, []credit.Restoration, error) {
	lines, err := repos.ReceivableRepo().FindLines(ctx, doc.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load document lines: %w", err)
	}
	allocations := finance.ReceivableCreditAllocations(lines)
	_, ids := credit.SumAllocationsByClient(allocations)
	if len(ids) == 0 {
		return nil, nil, nil
	}

	clients, err := repos.ClientRepo().FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock clients: %w", err)
	}
	byID := make(map[uuid.UUID]*credit.Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}

	restorations, err := credit.RestoreCreditForDocument(byID, allocations)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range clients {
		if err := repos.ClientRepo().SaveWithLock(ctx, c); err != nil {
			return nil, nil, fmt.Errorf("failed to update client %s: %w", c.ID, err)
		}
	}
	return clients, restorations, nil
}

// RegisterPayablePayment registers a payment to a merchant against a CXP
// document. Payable payments never touch client balances.
func (s *PaymentService) RegisterPayablePayment(ctx context.Context, req RegisterPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "register_payable")
	defer span.End()
	started := time.Now()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentID, req.DocumentID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrPaymentMethod, req.Method,
	)

	in, err := s.prepare(ctx, finance.DocumentKindPayable, req)
	if err != nil {
		telemetry.RecordError(span, err)
		s.recordPayment(ctx, finance.DocumentKindPayable, req.Method, err, req.Amount)
		return nil, err
	}

	var (
		doc     *finance.PayableDocument
		payment *finance.Payment
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		doc, err = repos.PayableRepo().FindByIDForUpdate(ctx, req.DocumentID)
		if err != nil {
			return notFoundAs(err, finance.ErrDocumentNotFound)
		}
		if err := s.checkKeyUnused(ctx, repos, finance.DocumentKindPayable, in); err != nil {
			return err
		}
		if err := doc.CheckPayment(req.Amount); err != nil {
			return err
		}

		number, err := s.numbering.NextNumber(ctx, repos.NumberRepo(), finance.PrefixPayablePayment, s.opts.Clock().Year())
		if err != nil {
			return err
		}
		payment, err = doc.ApplyPayment(number, req.Amount, in.method, in.details, in.paidAt)
		if err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		if err := repos.PayableRepo().SaveWithLock(ctx, doc); err != nil {
			return fmt.Errorf("failed to update payable document: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.recordPayment(ctx, finance.DocumentKindPayable, in.method.String(), err, req.Amount)
		return nil, err
	}

	s.markProcessed(ctx, in.key)
	logger.WithLogger(ctx, s.logger).Info("Payable payment registered",
		zap.String("document_number", doc.DocumentNumber),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("amount", payment.Amount.String()),
		zap.String("outstanding_amount", doc.OutstandingAmount.String()),
		zap.String("status", doc.Status.String()),
	)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID.String(),
		telemetry.SpanAttrDocumentStatus, doc.Status.String(),
	)
	s.recordPayment(ctx, finance.DocumentKindPayable, in.method.String(), nil, payment.Amount)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordOperationDuration(ctx, "register_payable_payment", time.Since(started))
	}
	publishEvents(ctx, s.eventPublisher, s.logger, doc)

	return &PaymentResult{
		PaymentID:      payment.ID,
		PaymentNumber:  payment.PaymentNumber,
		NewOutstanding: doc.OutstandingAmount,
		NewStatus:      doc.Status,
	}, nil
}

// ListPayments returns a document's payments ordered by payment date
func (s *PaymentService) ListPayments(ctx context.Context, kind finance.DocumentKind, documentID uuid.UUID) ([]finance.Payment, error) {
	var payments []finance.Payment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		payments, err = repos.PaymentRepo().FindByDocument(ctx, kind, documentID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// checkKeyUnused rejects a request whose key is already stored. It runs
// under the document row lock, so a concurrent request with the same key
// on the same document sees the committed payment. Requests on different
// documents are caught by the unique index on insert.
func (s *PaymentService) checkKeyUnused(ctx context.Context, repos TransactionalRepositories, kind finance.DocumentKind, in *paymentInput) error {
	key := in.details.IdempotencyKey
	if key == "" {
		return nil
	}
	exists, err := repos.PaymentRepo().ExistsByIdempotencyKey(ctx, kind, key)
	if err != nil {
		return fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if exists {
		return shared.ErrDuplicateRequest
	}
	return nil
}

// markProcessed caches the idempotency key once the payment committed.
// A failure here only costs the fast path, so it is logged.
func (s *PaymentService) markProcessed(ctx context.Context, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, key, s.opts.IdempotencyTTL); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Failed to mark idempotency key",
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
	}
}

func (s *PaymentService) recordPayment(ctx context.Context, kind finance.DocumentKind, method string, err error, amount decimal.Decimal) {
	if s.businessMetrics == nil {
		return
	}
	status := telemetry.PaymentStatusSuccess
	switch {
	case err == nil:
	case shared.IsValidation(err) || shared.IsBusinessRule(err) || shared.IsNotFound(err):
		status = telemetry.PaymentStatusRejected
	default:
		status = telemetry.PaymentStatusFailed
	}
	s.businessMetrics.RecordPayment(ctx, kind.String(), method, status, amount)
}
