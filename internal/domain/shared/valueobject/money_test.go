package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(99.99), USD)

		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(99.99)))
		assert.Equal(t, USD, m.Currency())
	})

	t.Run("fails with empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")

		require.Error(t, err)
	})
}

func TestNewMoneyFromString(t *testing.T) {
	t.Run("parses decimal string", func(t *testing.T) {
		m, err := NewMoneyFromString("15.00", USD)

		require.NoError(t, err)
		assert.Equal(t, "15.00", m.StringFixed(2))
	})

	t.Run("fails on invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", USD)

		require.Error(t, err)
	})
}

func TestNewMoneyFromMinorUnits(t *testing.T) {
	m, err := NewMoneyFromMinorUnits(1550, USD)

	require.NoError(t, err)
	assert.Equal(t, "15.50", m.StringFixed(2))
}

func TestMoney_Add(t *testing.T) {
	t.Run("adds same currency", func(t *testing.T) {
		a, _ := NewMoneyFromString("10.10", USD)
		b, _ := NewMoneyFromString("5.15", USD)

		sum, err := a.Add(b)

		require.NoError(t, err)
		assert.Equal(t, "15.25", sum.StringFixed(2))
	})

	t.Run("fails with currency mismatch", func(t *testing.T) {
		a, _ := NewMoneyFromString("10.00", USD)
		b, _ := NewMoneyFromString("10.00", EUR)

		_, err := a.Add(b)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "USD")
		assert.Contains(t, err.Error(), "EUR")
	})
}

func TestMoney_Subtract(t *testing.T) {
	t.Run("subtracts same currency", func(t *testing.T) {
		a, _ := NewMoneyFromString("10.00", USD)
		b, _ := NewMoneyFromString("3.25", USD)

		diff, err := a.Subtract(b)

		require.NoError(t, err)
		assert.Equal(t, "6.75", diff.StringFixed(2))
	})

	t.Run("fails with currency mismatch", func(t *testing.T) {
		a, _ := NewMoneyFromString("10.00", USD)
		b, _ := NewMoneyFromString("3.25", JPY)

		_, err := a.Subtract(b)

		require.Error(t, err)
	})
}

func TestMoney_Multiply(t *testing.T) {
	m, _ := NewMoneyFromString("15.00", USD)

	result := m.Multiply(decimal.NewFromInt(10))

	assert.Equal(t, "150.00", result.StringFixed(2))
}

func TestMoney_Compare(t *testing.T) {
	a, _ := NewMoneyFromString("10.00", USD)
	b, _ := NewMoneyFromString("20.00", USD)

	t.Run("less than", func(t *testing.T) {
		cmp, err := a.Compare(b)

		require.NoError(t, err)
		assert.Equal(t, -1, cmp)
	})

	t.Run("equal", func(t *testing.T) {
		same, _ := NewMoneyFromString("10.00", USD)
		cmp, err := a.Compare(same)

		require.NoError(t, err)
		assert.Equal(t, 0, cmp)
	})

	t.Run("fails with currency mismatch", func(t *testing.T) {
		other, _ := NewMoneyFromString("10.00", GBP)
		_, err := a.Compare(other)

		require.Error(t, err)
	})
}

func TestMoney_AllocateProportionally(t *testing.T) {
	t.Run("parts sum exactly to the whole", func(t *testing.T) {
		m, _ := NewMoneyFromString("100.00", USD)
		weights := []decimal.Decimal{
			decimal.NewFromInt(1),
			decimal.NewFromInt(1),
			decimal.NewFromInt(1),
		}

		parts, err := m.AllocateProportionally(weights)

		require.NoError(t, err)
		require.Len(t, parts, 3)

		total := ZeroUSD()
		for _, p := range parts {
			total = total.MustAdd(p)
		}
		assert.True(t, total.Equals(m))
		// 100/3 rounds to 33.33; last share absorbs the remainder
		assert.Equal(t, "33.33", parts[0].StringFixed(2))
		assert.Equal(t, "33.33", parts[1].StringFixed(2))
		assert.Equal(t, "33.34", parts[2].StringFixed(2))
	})

	t.Run("uneven weights still sum exactly", func(t *testing.T) {
		m, _ := NewMoneyFromString("7.77", USD)
		weights := []decimal.Decimal{
			decimal.NewFromInt(3),
			decimal.NewFromInt(5),
			decimal.NewFromInt(11),
		}

		parts, err := m.AllocateProportionally(weights)

		require.NoError(t, err)
		total := ZeroUSD()
		for _, p := range parts {
			total = total.MustAdd(p)
		}
		assert.True(t, total.Equals(m))
	})

	t.Run("zero weight gets zero share", func(t *testing.T) {
		m, _ := NewMoneyFromString("50.00", USD)
		weights := []decimal.Decimal{
			decimal.NewFromInt(1),
			decimal.Zero,
		}

		parts, err := m.AllocateProportionally(weights)

		require.NoError(t, err)
		assert.Equal(t, "50.00", parts[0].StringFixed(2))
		assert.True(t, parts[1].IsZero())
	})

	t.Run("fails when all weights are zero", func(t *testing.T) {
		m, _ := NewMoneyFromString("50.00", USD)

		_, err := m.AllocateProportionally([]decimal.Decimal{decimal.Zero, decimal.Zero})

		require.Error(t, err)
	})

	t.Run("fails on negative weight", func(t *testing.T) {
		m, _ := NewMoneyFromString("50.00", USD)

		_, err := m.AllocateProportionally([]decimal.Decimal{decimal.NewFromInt(-1)})

		require.Error(t, err)
	})
}

func TestMoney_Allocate(t *testing.T) {
	m, _ := NewMoneyFromString("10.00", USD)

	parts, err := m.Allocate(3)

	require.NoError(t, err)
	require.Len(t, parts, 3)
	total := ZeroUSD()
	for _, p := range parts {
		total = total.MustAdd(p)
	}
	assert.True(t, total.Equals(m))
}

func TestMoney_JSON(t *testing.T) {
	m, _ := NewMoneyFromString("42.50", USD)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestSum(t *testing.T) {
	t.Run("sums values", func(t *testing.T) {
		a, _ := NewMoneyFromString("1.10", USD)
		b, _ := NewMoneyFromString("2.20", USD)
		c, _ := NewMoneyFromString("3.30", USD)

		total, err := Sum([]Money{a, b, c})

		require.NoError(t, err)
		assert.Equal(t, "6.60", total.StringFixed(2))
	})

	t.Run("empty slice sums to zero", func(t *testing.T) {
		total, err := Sum(nil)

		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})

	t.Run("fails on mixed currencies", func(t *testing.T) {
		a, _ := NewMoneyFromString("1.00", USD)
		b, _ := NewMoneyFromString("1.00", EUR)

		_, err := Sum([]Money{a, b})

		require.Error(t, err)
	})
}
