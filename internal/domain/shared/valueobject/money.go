package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar (default)
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	JPY Currency = "JPY" // Japanese Yen
	CNY Currency = "CNY" // Chinese Yuan
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = USD

// Money is a value object representing monetary amounts.
// It is immutable - all operations return new Money instances.
// Amounts are only rounded at defined boundaries (line total, tax,
// grand total), never implicitly inside arithmetic.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyFromString creates Money from a decimal string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// NewMoneyFromMinorUnits creates Money from integer minor units (e.g. cents)
func NewMoneyFromMinorUnits(minorUnits int64, currency Currency) (Money, error) {
	return NewMoney(decimal.New(minorUnits, -2), currency)
}

// NewMoneyUSD creates Money in the default currency
func NewMoneyUSD(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: USD}
}

// NewMoneyUSDFromString creates Money in the default currency from a string
func NewMoneyUSDFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return Money{amount: d, currency: USD}, nil
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// ZeroUSD returns a zero-value Money in the default currency
func ZeroUSD() Money {
	return Zero(USD)
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) mismatch(other Money) error {
	return shared.NewDomainError("CURRENCY_MISMATCH",
		fmt.Sprintf("cannot combine %s with %s", m.currency, other.currency))
}

// Add returns a new Money with the sum of both amounts.
// Returns a CURRENCY_MISMATCH error if currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, m.mismatch(other)
	}
	return Money{
		amount:   m.amount.Add(other.amount),
		currency: m.currency,
	}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference.
// Returns a CURRENCY_MISMATCH error if currencies differ.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, m.mismatch(other)
	}
	return Money{
		amount:   m.amount.Sub(other.amount),
		currency: m.currency,
	}, nil
}

// MustSubtract subtracts two Money values, panics if currencies don't match
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Multiply returns a new Money multiplied by the given factor
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{
		amount:   m.amount.Mul(factor),
		currency: m.currency,
	}
}

// MultiplyByInt returns a new Money multiplied by an integer
func (m Money) MultiplyByInt(factor int64) Money {
	return m.Multiply(decimal.NewFromInt(factor))
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{
		amount:   m.amount.Neg(),
		currency: m.currency,
	}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	return Money{
		amount:   m.amount.Abs(),
		currency: m.currency,
	}
}

// Round returns a new Money rounded to the specified decimal places
func (m Money) Round(places int32) Money {
	return Money{
		amount:   m.amount.Round(places),
		currency: m.currency,
	}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Compare compares two Money values: -1 if m < other, 0 if equal, 1 if m > other.
// Returns a CURRENCY_MISMATCH error if currencies differ.
func (m Money) Compare(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, m.mismatch(other)
	}
	return m.amount.Cmp(other.amount), nil
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, m.mismatch(other)
	}
	return m.amount.LessThan(other.amount), nil
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, m.mismatch(other)
	}
	return m.amount.GreaterThan(other.amount), nil
}

// GreaterThanOrEqual returns true if this Money is greater than or equal to the other
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, m.mismatch(other)
	}
	return m.amount.GreaterThanOrEqual(other.amount), nil
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// StringFixed returns the amount as a string with fixed decimal places
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.String(),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler for deserialization scenarios
// such as API request binding. Currency is assigned as-is; an empty currency
// falls back to the system default.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	m.currency = v.Currency
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}

// Value implements driver.Valuer for database storage
// Stores as a numeric value (amount only)
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner for database retrieval. Only the amount is
// scanned; currency defaults to DefaultCurrency if not already set.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		m.currency = DefaultCurrency
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	amount, err := decimal.NewFromString(strVal)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	m.amount = amount
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}

// AllocateProportionally splits the amount across the given weights so that
// the parts sum exactly to the original amount. Each part is the proportional
// share rounded to 2 decimal places; the last part with a non-zero weight
// absorbs the rounding remainder.
func (m Money) AllocateProportionally(weights []decimal.Decimal) ([]Money, error) {
	if len(weights) == 0 {
		return nil, errors.New("weights cannot be empty")
	}

	totalWeight := decimal.Zero
	lastNonZero := -1
	for i, w := range weights {
		if w.IsNegative() {
			return nil, errors.New("weights cannot be negative")
		}
		if w.IsPositive() {
			lastNonZero = i
		}
		totalWeight = totalWeight.Add(w)
	}
	if totalWeight.IsZero() {
		return nil, errors.New("weights cannot all be zero")
	}

	result := make([]Money, len(weights))
	allocated := decimal.Zero
	for i, w := range weights {
		if i == lastNonZero {
			continue
		}
		share := m.amount.Mul(w).Div(totalWeight).Round(2)
		result[i] = Money{amount: share, currency: m.currency}
		allocated = allocated.Add(share)
	}
	// Last non-zero share is the exact remainder.
	result[lastNonZero] = Money{amount: m.amount.Sub(allocated), currency: m.currency}

	return result, nil
}

// Allocate divides money into n equal parts that sum to the original amount
func (m Money) Allocate(parts int) ([]Money, error) {
	if parts <= 0 {
		return nil, errors.New("parts must be positive")
	}
	weights := make([]decimal.Decimal, parts)
	for i := range weights {
		weights[i] = decimal.NewFromInt(1)
	}
	return m.AllocateProportionally(weights)
}

// CalculatePercentage returns the percentage of this Money
func (m Money) CalculatePercentage(percent decimal.Decimal) Money {
	return Money{
		amount:   m.amount.Mul(percent).Div(decimal.NewFromInt(100)),
		currency: m.currency,
	}
}

// Sum adds all the given Money values, starting from a zero value in the
// currency of the first element. An empty slice sums to zero in the default
// currency.
func Sum(values []Money) (Money, error) {
	if len(values) == 0 {
		return Zero(DefaultCurrency), nil
	}
	total := Zero(values[0].currency)
	for _, v := range values {
		var err error
		total, err = total.Add(v)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
