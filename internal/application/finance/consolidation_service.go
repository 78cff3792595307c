package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/partner"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/erp/credit-ledger/internal/infrastructure/logger"
	"github.com/erp/credit-ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConsolidationService turns the unconsolidated consumptions of one employer
// (receivable side) or one merchant (payable side) and period into a numbered
// document. Each consolidation runs in a single transaction.
type ConsolidationService struct {
	txScope         TransactionScope
	numbering       *NumberingService
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
	opts            Options
}

// NewConsolidationService creates a new ConsolidationService
func NewConsolidationService(txScope TransactionScope, log *zap.Logger, opts Options) *ConsolidationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConsolidationService{
		txScope:        txScope,
		numbering:      NewNumberingService(),
		eventPublisher: shared.NopEventPublisher{},
		logger:         log,
		opts:           opts.withDefaults(),
	}
}

// SetEventPublisher sets the publisher for events of committed documents
func (s *ConsolidationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics recorder
func (s *ConsolidationService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// consolidationInput is a validated request
type consolidationInput struct {
	scopeID   uuid.UUID
	period    valueobject.Period
	issueDate time.Time
	dueDays   int
}

func (s *ConsolidationService) prepare(req ConsolidateRequest) (*consolidationInput, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	period, err := valueobject.NewPeriod(req.From, req.To)
	if err != nil {
		return nil, finance.ErrInvalidPeriod.WithMessage(err.Error())
	}
	dueDays := s.opts.DefaultDueDays
	if req.DueDays != nil {
		if *req.DueDays < 0 {
			return nil, finance.ErrInvalidDueDays
		}
		dueDays = *req.DueDays
	}
	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = s.opts.Clock()
	}
	return &consolidationInput{
		scopeID:   req.ScopeID,
		period:    period,
		issueDate: issueDate,
		dueDays:   dueDays,
	}, nil
}

// ConsolidateReceivables creates the CXC document billing an employer for
// the period. It fails with DUPLICATE_PERIOD when a non-void document
// already covers exactly this period and NOTHING_TO_CONSOLIDATE when no
// consumption qualifies.
func (s *ConsolidationService) ConsolidateReceivables(ctx context.Context, req ConsolidateRequest) (*ConsolidationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "consolidation", "consolidate_receivables")
	defer span.End()
	started := time.Now()

	in, err := s.prepare(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrScopeID, in.scopeID.String(),
		telemetry.SpanAttrPeriod, in.period.String(),
	)

	var doc *finance.ReceivableDocument
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		employer, err := repos.EmployerRepo().FindByID(ctx, in.scopeID)
		if err != nil {
			return notFoundAs(err, finance.ErrEmployerNotFound)
		}
		if err := s.claimScope(ctx, repos, finance.DocumentKindReceivable, employer.ID, in.period); err != nil {
			return err
		}

		summary, err := s.summarizeReceivable(ctx, repos, employer, in.period)
		if err != nil {
			return err
		}
		number, err := s.numbering.NextNumber(ctx, repos.NumberRepo(), finance.PrefixReceivable, in.issueDate.Year())
		if err != nil {
			return err
		}
		doc, err = finance.NewReceivableDocument(number, summary, in.issueDate, in.dueDays)
		if err != nil {
			return err
		}
		if err := repos.ReceivableRepo().Create(ctx, doc); err != nil {
			return fmt.Errorf("failed to create receivable document: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentID, doc.ID.String(),
		telemetry.SpanAttrDocumentNumber, doc.DocumentNumber,
		telemetry.SpanAttrAmount, doc.TotalAmount.String(),
	)
	logger.WithLogger(ctx, s.logger).Info("Receivable document consolidated",
		zap.String("document_number", doc.DocumentNumber),
		zap.String("employer_id", doc.EmployerID.String()),
		zap.String("period", doc.Period.String()),
		zap.String("total_amount", doc.TotalAmount.String()),
		zap.Int("line_count", len(doc.Lines)),
		zap.Int("employee_count", doc.EmployeeCount),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordConsolidation(ctx, finance.DocumentKindReceivable.String(), doc.TotalAmount)
		s.businessMetrics.RecordOperationDuration(ctx, "consolidate_receivables", time.Since(started))
	}
	publishEvents(ctx, s.eventPublisher, s.logger, doc)

	return receivableResult(doc), nil
}

// ConsolidatePayables creates the CXP document owed to a merchant for the
// period, net of commission.
func (s *ConsolidationService) ConsolidatePayables(ctx context.Context, req ConsolidateRequest) (*ConsolidationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "consolidation", "consolidate_payables")
	defer span.End()
	started := time.Now()

	in, err := s.prepare(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrScopeID, in.scopeID.String(),
		telemetry.SpanAttrPeriod, in.period.String(),
	)

	var doc *finance.PayableDocument
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		merchant, err := repos.MerchantRepo().FindByID(ctx, in.scopeID)
		if err != nil {
			return notFoundAs(err, finance.ErrMerchantNotFound)
		}
		if err := s.claimScope(ctx, repos, finance.DocumentKindPayable, merchant.ID, in.period); err != nil {
			return err
		}

		summary, err := s.summarizePayable(ctx, repos, merchant, in.period)
		if err != nil {
			return err
		}
		number, err := s.numbering.NextNumber(ctx, repos.NumberRepo(), finance.PrefixPayable, in.issueDate.Year())
		if err != nil {
			return err
		}
		doc, err = finance.NewPayableDocument(number, summary, in.issueDate, in.dueDays)
		if err != nil {
			return err
		}
		if err := repos.PayableRepo().Create(ctx, doc); err != nil {
			return fmt.Errorf("failed to create payable document: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentID, doc.ID.String(),
		telemetry.SpanAttrDocumentNumber, doc.DocumentNumber,
		telemetry.SpanAttrAmount, doc.TotalAmount.String(),
	)
	logger.WithLogger(ctx, s.logger).Info("Payable document consolidated",
		zap.String("document_number", doc.DocumentNumber),
		zap.String("merchant_id", doc.MerchantID.String()),
		zap.String("period", doc.Period.String()),
		zap.String("gross_amount", doc.GrossAmount.String()),
		zap.String("commission_amount", doc.CommissionAmount.String()),
		zap.String("net_amount", doc.NetAmount.String()),
		zap.Int("line_count", len(doc.Lines)),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordConsolidation(ctx, finance.DocumentKindPayable.String(), doc.TotalAmount)
		s.businessMetrics.RecordOperationDuration(ctx, "consolidate_payables", time.Since(started))
	}
	publishEvents(ctx, s.eventPublisher, s.logger, doc)

	return payableResult(doc), nil
}

// PreviewReceivables computes what ConsolidateReceivables would create
// without numbering or persisting anything
func (s *ConsolidationService) PreviewReceivables(ctx context.Context, req ConsolidateRequest) (*ConsolidationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "consolidation", "preview_receivables")
	defer span.End()

	in, err := s.prepare(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var summary *finance.ReceivableSummary
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		employer, err := repos.EmployerRepo().FindByID(ctx, in.scopeID)
		if err != nil {
			return notFoundAs(err, finance.ErrEmployerNotFound)
		}
		if err := checkNoDocument(ctx, repos, finance.DocumentKindReceivable, employer.ID, in.period); err != nil {
			return err
		}
		summary, err = s.summarizeReceivable(ctx, repos, employer, in.period)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &ConsolidationResult{
		Kind:          finance.DocumentKindReceivable.String(),
		TotalAmount:   summary.GrossAmount,
		GrossAmount:   summary.GrossAmount,
		LineCount:     len(summary.Lines),
		EmployeeCount: summary.EmployeeCount,
		DueDate:       in.issueDate.AddDate(0, 0, in.dueDays),
	}, nil
}

// PreviewPayables computes what ConsolidatePayables would create without
// numbering or persisting anything
func (s *ConsolidationService) PreviewPayables(ctx context.Context, req ConsolidateRequest) (*ConsolidationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "consolidation", "preview_payables")
	defer span.End()

	in, err := s.prepare(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var summary *finance.PayableSummary
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		merchant, err := repos.MerchantRepo().FindByID(ctx, in.scopeID)
		if err != nil {
			return notFoundAs(err, finance.ErrMerchantNotFound)
		}
		if err := checkNoDocument(ctx, repos, finance.DocumentKindPayable, merchant.ID, in.period); err != nil {
			return err
		}
		summary, err = s.summarizePayable(ctx, repos, merchant, in.period)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &ConsolidationResult{
		Kind:             finance.DocumentKindPayable.String(),
		TotalAmount:      summary.NetAmount,
		GrossAmount:      summary.GrossAmount,
		CommissionAmount: summary.CommissionAmount,
		LineCount:        len(summary.Lines),
		EmployeeCount:    summary.ClientCount,
		DueDate:          in.issueDate.AddDate(0, 0, in.dueDays),
	}, nil
}

// claimScope serializes consolidations of the scope and rejects a period
// that already has a document
func (s *ConsolidationService) claimScope(ctx context.Context, repos TransactionalRepositories, kind finance.DocumentKind, scopeID uuid.UUID, period valueobject.Period) error {
	if err := repos.ScopeLocker().LockScope(ctx, kind, scopeID); err != nil {
		return fmt.Errorf("failed to lock consolidation scope: %w", err)
	}
	return checkNoDocument(ctx, repos, kind, scopeID, period)
}

func checkNoDocument(ctx context.Context, repos TransactionalRepositories, kind finance.DocumentKind, scopeID uuid.UUID, period valueobject.Period) error {
	var (
		exists bool
		err    error
	)
	if kind == finance.DocumentKindPayable {
		exists, err = repos.PayableRepo().ExistsForPeriod(ctx, scopeID, period)
	} else {
		exists, err = repos.ReceivableRepo().ExistsForPeriod(ctx, scopeID, period)
	}
	if err != nil {
		return fmt.Errorf("failed to check existing %s documents: %w", kind, err)
	}
	if exists {
		return finance.ErrDuplicatePeriod.WithMessage(
			fmt.Sprintf("A %s document already exists for %s", kind, period))
	}
	return nil
}

func (s *ConsolidationService) summarizeReceivable(ctx context.Context, repos TransactionalRepositories, employer *partner.Employer, period valueobject.Period) (*finance.ReceivableSummary, error) {
	consumptions, err := repos.ConsumptionRepo().FindUnconsolidated(ctx, credit.UnconsolidatedFilter{
		Side:       credit.SideReceivable,
		EmployerID: employer.ID,
		Period:     period,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select consumptions: %w", err)
	}
	return finance.SummarizeReceivable(employer.ID, period, consumptions)
}

func (s *ConsolidationService) summarizePayable(ctx context.Context, repos TransactionalRepositories, merchant *partner.Merchant, period valueobject.Period) (*finance.PayableSummary, error) {
	consumptions, err := repos.ConsumptionRepo().FindUnconsolidated(ctx, credit.UnconsolidatedFilter{
		Side:       credit.SidePayable,
		MerchantID: merchant.ID,
		Period:     period,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select consumptions: %w", err)
	}
	return finance.SummarizePayable(merchant, period, consumptions)
}

func receivableResult(doc *finance.ReceivableDocument) *ConsolidationResult {
	return &ConsolidationResult{
		DocumentID:     doc.ID,
		DocumentNumber: doc.DocumentNumber,
		Kind:           finance.DocumentKindReceivable.String(),
		TotalAmount:    doc.TotalAmount,
		GrossAmount:    doc.TotalAmount,
		LineCount:      len(doc.Lines),
		EmployeeCount:  doc.EmployeeCount,
		DueDate:        doc.DueDate,
	}
}

func payableResult(doc *finance.PayableDocument) *ConsolidationResult {
	return &ConsolidationResult{
		DocumentID:       doc.ID,
		DocumentNumber:   doc.DocumentNumber,
		Kind:             finance.DocumentKindPayable.String(),
		TotalAmount:      doc.TotalAmount,
		GrossAmount:      doc.GrossAmount,
		CommissionAmount: doc.CommissionAmount,
		LineCount:        len(doc.Lines),
		EmployeeCount:    distinctClients(doc.Lines),
		DueDate:          doc.DueDate,
	}
}

func distinctClients(lines []finance.PayableLine) int {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		seen[l.ClientID] = struct{}{}
	}
	return len(seen)
}
