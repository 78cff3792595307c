package partner

import (
	"testing"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmployer(t *testing.T) {
	t.Run("creates active employer", func(t *testing.T) {
		e, err := NewEmployer("  Acme Manufacturing ", "ACM010101AAA")
		require.NoError(t, err)
		assert.Equal(t, "Acme Manufacturing", e.Name)
		assert.True(t, e.Active)
		assert.Equal(t, 1, e.Version)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewEmployer("   ", "")
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestEmployer_Deactivate(t *testing.T) {
	e, err := NewEmployer("Acme", "")
	require.NoError(t, err)

	e.Deactivate()
	assert.False(t, e.Active)
	assert.Equal(t, 2, e.Version)

	e.Deactivate()
	assert.Equal(t, 2, e.Version, "deactivating twice is a no-op")
}

func TestNewMerchant(t *testing.T) {
	t.Run("creates merchant with commission", func(t *testing.T) {
		m, err := NewMerchant("Farmacia Central", "", decimal.NewFromInt(2))
		require.NoError(t, err)
		assert.True(t, m.CommissionPercent.Equal(decimal.NewFromInt(2)))
	})

	t.Run("rejects negative commission", func(t *testing.T) {
		_, err := NewMerchant("Farmacia Central", "", decimal.NewFromInt(-1))
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("rejects commission above 100", func(t *testing.T) {
		_, err := NewMerchant("Farmacia Central", "", decimal.NewFromInt(101))
		assert.True(t, shared.IsValidation(err))
	})
}

func TestMerchant_CommissionFor(t *testing.T) {
	m, err := NewMerchant("Farmacia Central", "", decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.True(t, m.CommissionFor(decimal.NewFromInt(600)).Equal(decimal.NewFromInt(12)))

	require.NoError(t, m.SetCommissionPercent(decimal.RequireFromString("3.5")))
	assert.True(t, m.CommissionFor(decimal.NewFromInt(200)).Equal(decimal.NewFromInt(7)))
	assert.Error(t, m.SetCommissionPercent(decimal.NewFromInt(-2)))
}
