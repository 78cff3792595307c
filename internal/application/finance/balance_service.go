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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceService moves client balances for point-of-sale activity.
// Every mutation locks the client row for the duration of its transaction.
type BalanceService struct {
	txScope         TransactionScope
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
	opts            Options
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(txScope TransactionScope, log *zap.Logger, opts Options) *BalanceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BalanceService{
		txScope:        txScope,
		eventPublisher: shared.NopEventPublisher{},
		logger:         log,
		opts:           opts.withDefaults(),
	}
}

// SetEventPublisher sets the publisher for events of committed balance changes
func (s *BalanceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics recorder
func (s *BalanceService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// ApplyConsumption debits an amount from the client's balance without
// creating a consumption record. It fails with INSUFFICIENT_BALANCE when
// the balance does not cover the amount.
func (s *BalanceService) ApplyConsumption(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal) (*BalanceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "balance", "apply_consumption")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrClientID, clientID.String(),
		telemetry.SpanAttrAmount, amount.String(),
	)

	var client *credit.Client
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		client, err = repos.ClientRepo().FindByIDForUpdate(ctx, clientID)
		if err != nil {
			return notFoundAs(err, credit.ErrClientNotFound)
		}
		if err := client.ApplyConsumption(amount); err != nil {
			return err
		}
		if err := repos.ClientRepo().SaveWithLock(ctx, client); err != nil {
			return fmt.Errorf("failed to update client balance: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("Consumption applied to balance",
		zap.String("client_id", clientID.String()),
		zap.String("amount", amount.String()),
		zap.String("balance", client.Balance.String()),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordConsumption(ctx, telemetry.ConsumptionApplied)
	}

	return &BalanceResult{ClientID: client.ID, NewBalance: client.Balance}, nil
}

// RecordConsumption inserts a consumption and debits the client in one
// transaction. The employer is copied from the client.
func (s *BalanceService) RecordConsumption(ctx context.Context, req RecordConsumptionRequest) (*BalanceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "balance", "record_consumption")
	defer span.End()
	started := time.Now()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrClientID, req.ClientID.String(),
		telemetry.SpanAttrMerchantID, req.MerchantID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	if err := validateRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.Commission != nil && (req.Commission.IsNegative() || req.Commission.GreaterThan(req.Amount)) {
		err := shared.ErrInvalidAmount.WithMessage("Commission must be between zero and the consumption amount")
		telemetry.RecordError(span, err)
		return nil, err
	}
	// Postgres would round the consumption and the balance independently
	if !valueobject.IsWholeCents(req.Amount) || (req.Commission != nil && !valueobject.IsWholeCents(*req.Commission)) {
		err := shared.ErrInvalidAmount.WithMessage("Amounts cannot have more than two decimal places")
		telemetry.RecordError(span, err)
		return nil, err
	}
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.opts.Clock()
	}

	var (
		client      *credit.Client
		consumption *credit.Consumption
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		merchant, err := repos.MerchantRepo().FindByID(ctx, req.MerchantID)
		if err != nil {
			return notFoundAs(err, finance.ErrMerchantNotFound)
		}
		if !merchant.Active {
			return partner.ErrMerchantInactive
		}

		client, err = repos.ClientRepo().FindByIDForUpdate(ctx, req.ClientID)
		if err != nil {
			return notFoundAs(err, credit.ErrClientNotFound)
		}
		consumption, err = credit.RecordConsumption(client, merchant.ID, req.Amount, occurredAt, req.RegisteredBy)
		if err != nil {
			return err
		}
		if req.StoreID != nil {
			consumption.WithStore(*req.StoreID)
		}
		if req.Commission != nil {
			consumption.WithCommission(*req.Commission)
		}

		if err := repos.ConsumptionRepo().Create(ctx, consumption); err != nil {
			return fmt.Errorf("failed to create consumption: %w", err)
		}
		if err := repos.ClientRepo().SaveWithLock(ctx, client); err != nil {
			return fmt.Errorf("failed to update client balance: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrConsumptionID, consumption.ID.String())
	logger.WithLogger(ctx, s.logger).Info("Consumption recorded",
		zap.String("consumption_id", consumption.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.String("merchant_id", consumption.MerchantID.String()),
		zap.String("amount", consumption.Amount.String()),
		zap.String("balance", client.Balance.String()),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordConsumption(ctx, telemetry.ConsumptionRecorded)
		s.businessMetrics.RecordOperationDuration(ctx, "record_consumption", time.Since(started))
	}
	publishEvents(ctx, s.eventPublisher, s.logger, consumption)

	id := consumption.ID
	return &BalanceResult{ClientID: client.ID, ConsumptionID: &id, NewBalance: client.Balance}, nil
}

// ApplyReversal reverses a consumption inside its reversal window and
// credits its amount back, capped at the client's original limit. A
// consumption already attached to a CXC or CXP document cannot be reversed.
func (s *BalanceService) ApplyReversal(ctx context.Context, req ReversalRequest) (*BalanceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "balance", "apply_reversal")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrConsumptionID, req.ConsumptionID.String())

	if err := validateRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		client      *credit.Client
		consumption *credit.Consumption
		credited    decimal.Decimal
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		consumption, err = repos.ConsumptionRepo().FindByIDForUpdate(ctx, req.ConsumptionID)
		if err != nil {
			return notFoundAs(err, credit.ErrConsumptionNotFound)
		}
		now := s.opts.Clock()
		if err := consumption.CanReverse(now, s.opts.ReversalWindow); err != nil {
			return err
		}
		consolidated, err := repos.ConsumptionRepo().IsConsolidated(ctx, consumption.ID)
		if err != nil {
			return fmt.Errorf("failed to check consolidation of consumption: %w", err)
		}
		if consolidated {
			return credit.ErrConsumptionConsolidated
		}

		client, err = repos.ClientRepo().FindByIDForUpdate(ctx, consumption.ClientID)
		if err != nil {
			return notFoundAs(err, credit.ErrClientNotFound)
		}
		credited, err = credit.ReverseConsumption(client, consumption, req.ActorID, req.Reason, now, s.opts.ReversalWindow)
		if err != nil {
			return err
		}

		if err := repos.ConsumptionRepo().SaveWithLock(ctx, consumption); err != nil {
			return fmt.Errorf("failed to update consumption: %w", err)
		}
		if err := repos.ClientRepo().SaveWithLock(ctx, client); err != nil {
			return fmt.Errorf("failed to update client balance: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	log := logger.WithLogger(ctx, s.logger)
	log.Info("Consumption reversed",
		zap.String("consumption_id", consumption.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.String("actor_id", req.ActorID.String()),
		zap.String("amount", consumption.Amount.String()),
		zap.String("credited", credited.String()),
		zap.String("balance", client.Balance.String()),
	)
	if credited.LessThan(consumption.Amount) {
		log.Warn("Reversal credit capped at the original limit",
			zap.String("consumption_id", consumption.ID.String()),
			zap.String("original_limit", client.OriginalLimit.String()),
		)
	}
	if s.businessMetrics != nil {
		s.businessMetrics.RecordConsumption(ctx, telemetry.ConsumptionReversed)
	}
	publishEvents(ctx, s.eventPublisher, s.logger, consumption)

	id := consumption.ID
	return &BalanceResult{
		ClientID:      client.ID,
		ConsumptionID: &id,
		NewBalance:    client.Balance,
		Credited:      credited,
	}, nil
}

// GetBalance returns a client's current balance without locking
func (s *BalanceService) GetBalance(ctx context.Context, clientID uuid.UUID) (*BalanceResult, error) {
	var client *credit.Client
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		client, err = repos.ClientRepo().FindByID(ctx, clientID)
		if err != nil {
			return notFoundAs(err, credit.ErrClientNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &BalanceResult{ClientID: client.ID, NewBalance: client.Balance}, nil
}
