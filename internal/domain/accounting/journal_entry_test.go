package accounting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(t *testing.T, s string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyFromString(s, valueobject.USD)
	require.NoError(t, err)
	return m
}

func TestNewDebitEntry(t *testing.T) {
	t.Run("creates debit entry", func(t *testing.T) {
		accountID := uuid.New()
		txID := uuid.New()

		entry, err := NewDebitEntry(accountID, money(t, "150.00"), txID, "Cash from sale")

		require.NoError(t, err)
		assert.True(t, entry.IsDebit())
		assert.Equal(t, "150", entry.Debit.String())
		assert.True(t, entry.Credit.IsZero())
		assert.Equal(t, accountID, entry.AccountID)
		assert.Equal(t, txID, entry.TransactionID)
	})

	t.Run("fails with non-positive amount", func(t *testing.T) {
		_, err := NewDebitEntry(uuid.New(), money(t, "0"), uuid.New(), "")

		require.Error(t, err)
	})

	t.Run("fails with nil account", func(t *testing.T) {
		_, err := NewDebitEntry(uuid.Nil, money(t, "1.00"), uuid.New(), "")

		require.Error(t, err)
	})
}

func TestJournalEntry_BuildReversal(t *testing.T) {
	entry, err := NewCreditEntry(uuid.New(), money(t, "80.00"), uuid.New(), "Inventory out")
	require.NoError(t, err)

	reversal := entry.BuildReversal()

	assert.True(t, reversal.IsDebit())
	assert.Equal(t, entry.Credit.String(), reversal.Debit.String())
	assert.True(t, reversal.Reversal)
	assert.Equal(t, entry.TransactionID, reversal.TransactionID)
	assert.Equal(t, entry.AccountID, reversal.AccountID)
	assert.NotEqual(t, entry.ID, reversal.ID)
}

func TestValidateBatch(t *testing.T) {
	txID := uuid.New()

	balanced := func(t *testing.T) []*JournalEntry {
		t.Helper()
		d1, err := NewDebitEntry(uuid.New(), money(t, "150.00"), txID, "Cash")
		require.NoError(t, err)
		c1, err := NewCreditEntry(uuid.New(), money(t, "150.00"), txID, "Revenue")
		require.NoError(t, err)
		d2, err := NewDebitEntry(uuid.New(), money(t, "80.00"), txID, "COGS")
		require.NoError(t, err)
		c2, err := NewCreditEntry(uuid.New(), money(t, "80.00"), txID, "Inventory")
		require.NoError(t, err)
		return []*JournalEntry{d1, c1, d2, c2}
	}

	t.Run("accepts a balanced batch", func(t *testing.T) {
		require.NoError(t, ValidateBatch(balanced(t)))
	})

	t.Run("rejects unbalanced totals", func(t *testing.T) {
		entries := balanced(t)
		extra, err := NewDebitEntry(uuid.New(), money(t, "0.01"), txID, "Drift")
		require.NoError(t, err)
		entries = append(entries, extra)

		err = ValidateBatch(entries)

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, "UNBALANCED_ENTRY"))
	})

	t.Run("rejects a single entry", func(t *testing.T) {
		d, err := NewDebitEntry(uuid.New(), money(t, "10.00"), txID, "")
		require.NoError(t, err)

		require.Error(t, ValidateBatch([]*JournalEntry{d}))
	})

	t.Run("rejects mixed currencies", func(t *testing.T) {
		d, err := NewDebitEntry(uuid.New(), money(t, "10.00"), txID, "")
		require.NoError(t, err)
		eur, err := valueobject.NewMoneyFromString("10.00", valueobject.EUR)
		require.NoError(t, err)
		c, err := NewCreditEntry(uuid.New(), eur, txID, "")
		require.NoError(t, err)

		err = ValidateBatch([]*JournalEntry{d, c})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, "CURRENCY_MISMATCH"))
	})

	t.Run("rejects mixed transaction ids", func(t *testing.T) {
		d, err := NewDebitEntry(uuid.New(), money(t, "10.00"), txID, "")
		require.NoError(t, err)
		c, err := NewCreditEntry(uuid.New(), money(t, "10.00"), uuid.New(), "")
		require.NoError(t, err)

		require.Error(t, ValidateBatch([]*JournalEntry{d, c}))
	})
}

func TestBuildReversalBatch(t *testing.T) {
	txID := uuid.New()
	d, err := NewDebitEntry(uuid.New(), money(t, "150.00"), txID, "Cash")
	require.NoError(t, err)
	c, err := NewCreditEntry(uuid.New(), money(t, "150.00"), txID, "Revenue")
	require.NoError(t, err)

	reversals := BuildReversalBatch([]*JournalEntry{d, c})

	require.Len(t, reversals, 2)
	assert.False(t, reversals[0].IsDebit())
	assert.True(t, reversals[1].IsDebit())
	// A reversal batch is itself balanced
	require.NoError(t, ValidateBatch(reversals))
}

func TestLedgerAccount_BalanceFrom(t *testing.T) {
	t.Run("asset accounts are debit normal", func(t *testing.T) {
		account, err := NewLedgerAccount("1000", "Cash", AccountTypeAsset, "current_asset", decimal.NewFromInt(500))
		require.NoError(t, err)

		balance := account.BalanceFrom(decimal.NewFromInt(150), decimal.NewFromInt(30))

		assert.Equal(t, "620", balance.String())
	})

	t.Run("income accounts are credit normal", func(t *testing.T) {
		account, err := NewLedgerAccount("4000", "Sales Revenue", AccountTypeIncome, "", decimal.Zero)
		require.NoError(t, err)

		balance := account.BalanceFrom(decimal.NewFromInt(30), decimal.NewFromInt(150))

		assert.Equal(t, "120", balance.String())
	})

	t.Run("rejects invalid account type", func(t *testing.T) {
		_, err := NewLedgerAccount("9999", "Mystery", AccountType("mystery"), "", decimal.Zero)

		require.Error(t, err)
	})
}
