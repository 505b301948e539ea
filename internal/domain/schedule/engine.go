package schedule

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

// MaxMoney is the exclusive upper bound of a stored amount (NUMERIC(14,2)).
var MaxMoney = decimal.New(1, 12)

var (
	errNegativeMoney  = errors.New("must not be negative")
	errMoneyPrecision = errors.New("must have at most 2 decimal places")
	errMoneyRange     = errors.New("must be below 1000000000000")
)

// CheckMoney reports why d cannot be stored as an amount, or nil.
func CheckMoney(d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return errNegativeMoney
	case !d.Equal(d.Round(moneyPlaces)):
		return errMoneyPrecision
	case d.GreaterThanOrEqual(MaxMoney):
		return errMoneyRange
	}
	return nil
}

// FormatMoney renders d with exactly two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(moneyPlaces)
}

// Build validates submitted installments and turns them into entries ready to
// persist. Entries with a positive payment are stamped with actor and now.
// The first invalid entry aborts the whole build.
func Build(inputs []EntryInput, actor string, now time.Time) ([]Entry, error) {
	out := make([]Entry, 0, len(inputs))
	for i, in := range inputs {
		entry, err := buildEntry(i, in)
		if err != nil {
			return nil, err
		}
		if entry.PaymentAmount.IsPositive() {
			by := actor
			at := now
			entry.PaymentProcessedBy = &by
			entry.PaymentProcessedAt = &at
		}
		out = append(out, entry)
	}
	return out, nil
}

func buildEntry(index int, in EntryInput) (Entry, error) {
	month := in.Month
	if month < 0 {
		return Entry{}, &ValidationError{Index: index, Field: "month", Message: "must not be negative"}
	}
	if month == 0 {
		month = int32(index + 1)
	}

	start, err := ParseDate(in.EMIStartDate)
	if err != nil {
		return Entry{}, &ValidationError{Index: index, Field: "emiStartDate", Message: "must be a date in YYYY-MM-DD format"}
	}

	due, err := parseAmount(index, "emiTotalMonth", in.EMITotalMonth, true)
	if err != nil {
		return Entry{}, err
	}
	interest, err := parseAmount(index, "interest", in.Interest, false)
	if err != nil {
		return Entry{}, err
	}
	principal, err := parseAmount(index, "principalPaid", in.PrincipalPaid, false)
	if err != nil {
		return Entry{}, err
	}
	remaining, err := parseAmount(index, "remainingBalance", in.RemainingBalance, false)
	if err != nil {
		return Entry{}, err
	}
	paid, err := parseAmount(index, "paymentAmount", in.PaymentAmount, false)
	if err != nil {
		return Entry{}, err
	}

	var pending decimal.Decimal
	if strings.TrimSpace(string(in.PendingAmount)) == "" {
		pending = due.Sub(paid)
		if pending.IsNegative() {
			pending = decimal.Zero
		}
	} else {
		pending, err = parseAmount(index, "pendingAmount", in.PendingAmount, false)
		if err != nil {
			return Entry{}, err
		}
	}

	return Entry{
		Month:            month,
		EMIStartDate:     start,
		EMITotalMonth:    due,
		Interest:         interest,
		PrincipalPaid:    principal,
		RemainingBalance: remaining,
		PaymentAmount:    paid,
		PendingAmount:    pending,
	}, nil
}

func parseAmount(index int, field string, raw Amount, required bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		if required {
			return decimal.Zero, &ValidationError{Index: index, Field: field, Message: "required"}
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Index: index, Field: field, Message: "must be a decimal amount"}
	}
	if err := CheckMoney(d); err != nil {
		return decimal.Zero, &ValidationError{Index: index, Field: field, Message: err.Error()}
	}
	return d, nil
}

// ParseDate accepts a plain date or an RFC 3339 timestamp and returns the
// calendar date at UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ComputeTotals(entries []Entry) Totals {
	totals := Totals{Due: decimal.Zero, Paid: decimal.Zero}
	for _, e := range entries {
		totals.Due = totals.Due.Add(e.EMITotalMonth)
		totals.Paid = totals.Paid.Add(e.PaymentAmount)
	}
	return totals
}

// HasPastDue reports whether any installment dated before asOf is underpaid.
func HasPastDue(entries []Entry, asOf time.Time) bool {
	today := Day(asOf)
	for _, e := range entries {
		if Day(e.EMIStartDate).Before(today) && e.PaymentAmount.LessThan(e.EMITotalMonth) {
			return true
		}
	}
	return false
}
