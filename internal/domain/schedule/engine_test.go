package schedule

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEntryInputAcceptsNumbersAndStrings(t *testing.T) {
	var inputs []EntryInput
	payload := `[{"month":1,"emiStartDate":"2025-01-05","emiTotalMonth":500,"paymentAmount":"200.50","pendingAmount":null}]`
	require.NoError(t, json.Unmarshal([]byte(payload), &inputs))
	require.Len(t, inputs, 1)
	assert.Equal(t, Amount("500"), inputs[0].EMITotalMonth)
	assert.Equal(t, Amount("200.50"), inputs[0].PaymentAmount)
	assert.Equal(t, Amount(""), inputs[0].PendingAmount)
}

func TestBuildStampsOnlyPaidEntries(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entries, err := Build([]EntryInput{
		{Month: 1, EMIStartDate: "2025-01-05", EMITotalMonth: "500", PaymentAmount: "500"},
		{Month: 2, EMIStartDate: "2025-02-05", EMITotalMonth: "500", PaymentAmount: "0"},
		{Month: 3, EMIStartDate: "2025-03-05", EMITotalMonth: "500"},
	}, "manager1", now)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.NotNil(t, entries[0].PaymentProcessedBy)
	assert.Equal(t, "manager1", *entries[0].PaymentProcessedBy)
	assert.Equal(t, now, *entries[0].PaymentProcessedAt)
	assert.Nil(t, entries[1].PaymentProcessedBy)
	assert.Nil(t, entries[1].PaymentProcessedAt)
	assert.Nil(t, entries[2].PaymentProcessedBy)
}

func TestBuildDerivesPendingAmount(t *testing.T) {
	entries, err := Build([]EntryInput{
		{EMIStartDate: "2025-01-05", EMITotalMonth: "500", PaymentAmount: "200"},
		{EMIStartDate: "2025-02-05", EMITotalMonth: "500", PaymentAmount: "600"},
		{EMIStartDate: "2025-03-05", EMITotalMonth: "500", PaymentAmount: "100", PendingAmount: "10"},
	}, "staff1", time.Now())
	require.NoError(t, err)

	assert.True(t, entries[0].PendingAmount.Equal(dec("300")))
	assert.True(t, entries[1].PendingAmount.IsZero())
	assert.True(t, entries[2].PendingAmount.Equal(dec("10")))
	assert.Equal(t, int32(1), entries[0].Month)
	assert.Equal(t, int32(3), entries[2].Month)
}

func TestBuildRejectsInvalidEntries(t *testing.T) {
	cases := []struct {
		name  string
		in    EntryInput
		field string
	}{
		{"negative due", EntryInput{EMIStartDate: "2025-01-05", EMITotalMonth: "-1"}, "emiTotalMonth"},
		{"missing due", EntryInput{EMIStartDate: "2025-01-05"}, "emiTotalMonth"},
		{"garbage due", EntryInput{EMIStartDate: "2025-01-05", EMITotalMonth: "five hundred"}, "emiTotalMonth"},
		{"negative payment", EntryInput{EMIStartDate: "2025-01-05", EMITotalMonth: "500", PaymentAmount: "-0.01"}, "paymentAmount"},
		{"too precise", EntryInput{EMIStartDate: "2025-01-05", EMITotalMonth: "500.001"}, "emiTotalMonth"},
		{"due beyond column range", EntryInput{EMIStartDate: "2025-01-05", EMITotalMonth: "99999999999999999999.99"}, "emiTotalMonth"},
		{"payment beyond column range", EntryInput{EMIStartDate: "2025-01-05", EMITotalMonth: "500", PaymentAmount: "1000000000000"}, "paymentAmount"},
		{"bad date", EntryInput{EMIStartDate: "05/01/2025", EMITotalMonth: "500"}, "emiStartDate"},
		{"negative month", EntryInput{Month: -2, EMIStartDate: "2025-01-05", EMITotalMonth: "500"}, "month"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inputs := []EntryInput{
				{EMIStartDate: "2025-01-01", EMITotalMonth: "100"},
				tc.in,
			}
			entries, err := Build(inputs, "staff1", time.Now())
			require.Error(t, err)
			assert.Nil(t, entries)
			assert.True(t, errors.Is(err, ErrInvalidScheduleEntry))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, 1, verr.Index)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestBuildAcceptsRFC3339Dates(t *testing.T) {
	entries, err := Build([]EntryInput{{EMIStartDate: "2025-01-05T18:30:00Z", EMITotalMonth: "1"}}, "x", time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), entries[0].EMIStartDate)
}

func TestComputeTotalsAndSettlement(t *testing.T) {
	eps := dec("0.005")
	entries := []Entry{
		{EMITotalMonth: dec("500"), PaymentAmount: dec("500")},
		{EMITotalMonth: dec("500"), PaymentAmount: dec("200")},
	}
	totals := ComputeTotals(entries)
	assert.True(t, totals.Due.Equal(dec("1000")))
	assert.True(t, totals.Paid.Equal(dec("700")))
	assert.True(t, totals.Outstanding().Equal(dec("300")))
	assert.False(t, totals.Settled(eps))

	entries[1].PaymentAmount = dec("499.995")
	assert.True(t, ComputeTotals(entries).Settled(eps))

	assert.False(t, ComputeTotals(nil).Settled(eps), "empty plan is never settled")
	overpaid := Totals{Due: dec("10"), Paid: dec("12")}
	assert.True(t, overpaid.Outstanding().IsZero())
}

func TestHasPastDue(t *testing.T) {
	asOf := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	entries := []Entry{
		{EMIStartDate: time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC), EMITotalMonth: dec("500"), PaymentAmount: dec("500")},
		{EMIStartDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), EMITotalMonth: dec("500"), PaymentAmount: dec("0")},
	}
	assert.False(t, HasPastDue(entries, asOf), "an installment due today is not yet past due")

	entries[0].PaymentAmount = dec("499")
	assert.True(t, HasPastDue(entries, asOf))
}

func TestCheckMoneyBounds(t *testing.T) {
	assert.NoError(t, CheckMoney(dec("999999999999.99")))
	assert.NoError(t, CheckMoney(decimal.Zero))
	assert.Error(t, CheckMoney(dec("1000000000000")))
	assert.Error(t, CheckMoney(dec("-0.01")))
	assert.Error(t, CheckMoney(dec("1.001")))
}

func TestEntryJSONKeepsSubmittedShape(t *testing.T) {
	entries, err := Build([]EntryInput{
		{Month: 1, EMIStartDate: "2025-01-05", EMITotalMonth: "500", PaymentAmount: "200.5"},
	}, "staff1", time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	raw, err := json.Marshal(entries[0])
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "2025-01-05", got["emiStartDate"])
	assert.Equal(t, "500.00", got["emiTotalMonth"])
	assert.Equal(t, "200.50", got["paymentAmount"])
	assert.Equal(t, "299.50", got["pendingAmount"])
	assert.Equal(t, "0.00", got["interest"])
	assert.Equal(t, "staff1", got["paymentProcessedBy"])

	raw, err = json.Marshal(ComputeTotals(entries))
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalDue":"500.00","totalPaid":"200.50","outstanding":"299.50"}`, string(raw))
}
