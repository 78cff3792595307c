//go:build integration

package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	appfinance "github.com/erp/credit-ledger/internal/application/finance"
	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/partner"
	"github.com/erp/credit-ledger/internal/infrastructure/migration"
)

// pgLedger is a migrated Postgres database in a throwaway container
type pgLedger struct {
	db            *gorm.DB
	migrator      *migration.Migrator
	balances      *appfinance.BalanceService
	consolidation *appfinance.ConsolidationService
	payments      *appfinance.PaymentService
	employer      *partner.Employer
	merchant      *partner.Merchant
}

func newPgLedger(t *testing.T) *pgLedger {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("credit_ledger"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(postgres.Open(dsn), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, nil, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	scope := NewGormTransactionScope(db)
	l := &pgLedger{
		db:            db,
		migrator:      m,
		balances:      appfinance.NewBalanceService(scope, zap.NewNop(), appfinance.Options{}),
		consolidation: appfinance.NewConsolidationService(scope, zap.NewNop(), appfinance.Options{}),
		payments:      appfinance.NewPaymentService(scope, zap.NewNop(), appfinance.Options{}),
	}

	l.employer, err = partner.NewEmployer("Acme SA", "J-123")
	require.NoError(t, err)
	require.NoError(t, NewGormEmployerRepository(db).Save(ctx, l.employer))
	l.merchant, err = partner.NewMerchant("Farmacia Central", "J-456", amount("5"))
	require.NoError(t, err)
	require.NoError(t, NewGormMerchantRepository(db).Save(ctx, l.merchant))
	return l
}

func (l *pgLedger) newClient(t *testing.T, limit string) *credit.Client {
	t.Helper()
	c, err := credit.NewClient(l.employer.ID, "Cliente "+uuid.NewString()[:8], amount(limit))
	require.NoError(t, err)
	require.NoError(t, NewGormClientRepository(l.db).Save(context.Background(), c))
	return c
}

// parallel runs fn n times at once and returns the errors in call order
func parallel(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func count(errs []error, target error) int {
	n := 0
	for _, err := range errs {
		if (target == nil && err == nil) || (target != nil && errors.Is(err, target)) {
			n++
		}
	}
	return n
}

func TestPostgres_MigrationsRoundTrip(t *testing.T) {
	l := newPgLedger(t)

	status, err := l.migrator.Version()
	require.NoError(t, err)
	assert.True(t, status.Applied)
	assert.False(t, status.Dirty)
	assert.Equal(t, uint(5), status.Version)

	require.NoError(t, l.migrator.Steps(-3))
	status, err = l.migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), status.Version)
	assert.False(t, l.db.Migrator().HasTable("cxc_documentos"))

	require.NoError(t, l.migrator.Up())
	assert.True(t, l.db.Migrator().HasTable("cxp_pagos"))
}

func TestPostgres_SchemaRejectsNegativeBalance(t *testing.T) {
	l := newPgLedger(t)
	c := l.newClient(t, "100")

	err := l.db.Exec("UPDATE clientes SET saldo = -1 WHERE id = ?", c.ID).Error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chk_clientes_saldo")
}

func TestPostgres_ConcurrentConsumptionsNeverOverdraw(t *testing.T) {
	l := newPgLedger(t)
	c := l.newClient(t, "1000")
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	errs := parallel(20, func(int) error {
		_, err := l.balances.RecordConsumption(context.Background(), appfinance.RecordConsumptionRequest{
			ClientID:   c.ID,
			MerchantID: l.merchant.ID,
			Amount:     amount("100"),
			OccurredAt: at,
		})
		return err
	})

	assert.Equal(t, 10, count(errs, nil))
	assert.Equal(t, 10, count(errs, credit.ErrInsufficientBalance))

	res, err := l.balances.GetBalance(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, res.NewBalance.IsZero(), "balance %s", res.NewBalance)
}

func TestPostgres_ConcurrentConsolidationCreatesOneDocument(t *testing.T) {
	l := newPgLedger(t)
	ctx := context.Background()
	c := l.newClient(t, "1000")
	for _, v := range []string{"100", "200"} {
		_, err := l.balances.RecordConsumption(ctx, appfinance.RecordConsumptionRequest{
			ClientID: c.ID, MerchantID: l.merchant.ID, Amount: amount(v),
			OccurredAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}
	from, to := january()

	results := make([]*appfinance.ConsolidationResult, 5)
	errs := parallel(5, func(i int) error {
		var err error
		results[i], err = l.consolidation.ConsolidateReceivables(ctx, appfinance.ConsolidateRequest{ScopeID: l.employer.ID, From: from, To: to})
		return err
	})

	require.Equal(t, 1, count(errs, nil), "errors: %v", errs)
	assert.Equal(t, 4, count(errs, finance.ErrDuplicatePeriod))

	var lines int64
	require.NoError(t, l.db.Table("cxc_documento_detalles").Count(&lines).Error)
	assert.Equal(t, int64(2), lines)
}

func TestPostgres_ConcurrentPaymentsSettleOnce(t *testing.T) {
	l := newPgLedger(t)
	ctx := context.Background()
	c := l.newClient(t, "1000")
	_, err := l.balances.RecordConsumption(ctx, appfinance.RecordConsumptionRequest{
		ClientID: c.ID, MerchantID: l.merchant.ID, Amount: amount("300"),
		OccurredAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	from, to := january()
	doc, err := l.consolidation.ConsolidateReceivables(ctx, appfinance.ConsolidateRequest{ScopeID: l.employer.ID, From: from, To: to})
	require.NoError(t, err)

	results := make([]*appfinance.PaymentResult, 4)
	errs := parallel(4, func(i int) error {
		var err error
		results[i], err = l.payments.RegisterReceivablePayment(ctx, appfinance.RegisterPaymentRequest{
			DocumentID: doc.DocumentID,
			Amount:     amount("100"),
			Method:     "CASH",
		})
		return err
	})

	require.Equal(t, 3, count(errs, nil), "errors: %v", errs)
	assert.Equal(t, 1, count(errs, finance.ErrAlreadyFullyPaid))

	numbers := map[string]bool{}
	restored := 0
	for i, r := range results {
		if errs[i] != nil {
			continue
		}
		numbers[r.PaymentNumber] = true
		restored += len(r.CreditRestored)
	}
	assert.Len(t, numbers, 3, "payment numbers must be unique")
	assert.Equal(t, 1, restored, "credit is restored by the payment that settles the document")

	res, err := l.balances.GetBalance(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, amount("1000").Equal(res.NewBalance))
}
