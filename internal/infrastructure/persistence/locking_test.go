package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeUTC(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestDocumentNumberRepository_Postgres(t *testing.T) {
	t.Run("locks the sequence with an advisory lock", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
			WithArgs("ledger:seq:CXC:2024").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewGormDocumentNumberRepository(db.DB).LockSequence(context.Background(), finance.PrefixReceivable, 2024)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reads the longest then highest number", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT "numero_pago" FROM "cxp_pagos" WHERE numero_pago LIKE \$1 ORDER BY LENGTH\(numero_pago\) DESC, numero_pago DESC LIMIT \$2`).
			WithArgs("PCXP-2024-%", 1).
			WillReturnRows(sqlmock.NewRows([]string{"numero_pago"}).AddRow("PCXP-2024-100000"))

		last, err := NewGormDocumentNumberRepository(db.DB).LastNumber(context.Background(), finance.PrefixPayablePayment, 2024)
		require.NoError(t, err)
		assert.Equal(t, "PCXP-2024-100000", last)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty sequence", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT "numero_documento" FROM "cxc_documentos"`).
			WillReturnRows(sqlmock.NewRows([]string{"numero_documento"}))

		last, err := NewGormDocumentNumberRepository(db.DB).LastNumber(context.Background(), finance.PrefixReceivable, 2025)
		require.NoError(t, err)
		assert.Empty(t, last)
	})

	t.Run("unknown prefix", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		_, err := NewGormDocumentNumberRepository(db.DB).LastNumber(context.Background(), "NC", 2024)
		assert.ErrorIs(t, err, finance.ErrInvalidNumber)
	})
}

func TestScopeLocker_Postgres(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	scopeID := uuid.New()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("ledger:scope:CXP:" + scopeID.String()).
		WillReturnError(assert.AnError)

	err := NewGormScopeLocker(db.DB).LockScope(context.Background(), finance.DocumentKindPayable, scopeID)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "advisory lock")
}

func TestClientRepository_Postgres(t *testing.T) {
	t.Run("FindByIDForUpdate locks the row", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "clientes" WHERE id = \$1 ORDER BY "clientes"."id" LIMIT \$2 FOR UPDATE`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "empresa_id", "nombre", "saldo_original", "saldo", "activo", "version"}).
				AddRow(id, uuid.New(), "Ana", "1000.00", "400.00", true, 3))

		client, err := NewGormClientRepository(db.DB).FindByIDForUpdate(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(400).Equal(client.Balance))
		assert.Equal(t, 3, client.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "clientes"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewGormClientRepository(db.DB).FindByID(context.Background(), uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("FindByIDsForUpdate locks in id order", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		a, b := uuid.New(), uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "clientes" WHERE id IN \(\$1,\$2\) ORDER BY id ASC FOR UPDATE`).
			WithArgs(a, b).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewGormClientRepository(db.DB).FindByIDsForUpdate(context.Background(), []uuid.UUID{a, b})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SaveWithLock reports a stale version", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		client, err := credit.NewClient(uuid.New(), "Ana", decimal.NewFromInt(1000))
		require.NoError(t, err)
		require.NoError(t, client.ApplyConsumption(decimal.NewFromInt(100)))

		mock.ExpectExec(`UPDATE "clientes" SET .* WHERE .*id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = NewGormClientRepository(db.DB).SaveWithLock(context.Background(), client)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConsumptionRepository_FindUnconsolidated_Postgres(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	period, err := valueobject.NewPeriod(
		timeUTC(2024, 1, 1), timeUTC(2024, 2, 1),
	)
	require.NoError(t, err)
	merchantID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "consumos" WHERE consumos.reversado = \$1 AND \(consumos.fecha >= \$2 AND consumos.fecha < \$3\) AND consumos.proveedor_id = \$4 AND NOT EXISTS \(SELECT 1 FROM cxp_documento_detalles d WHERE d.consumo_id = consumos.id\) ORDER BY consumos.fecha ASC, consumos.id ASC FOR UPDATE`).
		WithArgs(false, period.From, period.To, merchantID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	consumptions, err := NewGormConsumptionRepository(db.DB).FindUnconsolidated(context.Background(), credit.UnconsolidatedFilter{
		Side:       credit.SidePayable,
		MerchantID: merchantID,
		Period:     period,
	})
	require.NoError(t, err)
	assert.Empty(t, consumptions)
	assert.NoError(t, mock.ExpectationsWereMet())
}
