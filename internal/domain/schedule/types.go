package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of installment dates.
const DateLayout = "2006-01-02"

var ErrInvalidScheduleEntry = errors.New("invalid_schedule_entry")

// Entry is one persisted installment of a loan's repayment plan.
type Entry struct {
	ID                 int64           `json:"id,omitempty"`
	Month              int32           `json:"month"`
	EMIStartDate       time.Time       `json:"emiStartDate"`
	EMITotalMonth      decimal.Decimal `json:"emiTotalMonth"`
	Interest           decimal.Decimal `json:"interest"`
	PrincipalPaid      decimal.Decimal `json:"principalPaid"`
	RemainingBalance   decimal.Decimal `json:"remainingBalance"`
	PaymentAmount      decimal.Decimal `json:"paymentAmount"`
	PendingAmount      decimal.Decimal `json:"pendingAmount"`
	PaymentProcessedBy *string         `json:"paymentProcessedBy"`
	PaymentProcessedAt *time.Time      `json:"paymentProcessedAt"`
}

// EntryInput is an installment as submitted by staff. Amounts are kept raw
// until Build validates them.
type EntryInput struct {
	Month            int32  `json:"month"`
	EMIStartDate     string `json:"emiStartDate"`
	EMITotalMonth    Amount `json:"emiTotalMonth"`
	Interest         Amount `json:"interest"`
	PrincipalPaid    Amount `json:"principalPaid"`
	RemainingBalance Amount `json:"remainingBalance"`
	PaymentAmount    Amount `json:"paymentAmount"`
	PendingAmount    Amount `json:"pendingAmount"`
}

// Amount is a raw monetary value accepted either as a JSON number or string.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	*a = Amount(raw)
	return nil
}

// ValidationError pinpoints the installment and field that failed validation.
type ValidationError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: entry %d %s: %s", ErrInvalidScheduleEntry, e.Index, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidScheduleEntry
}

// MarshalJSON renders amounts with two decimal places and the start date in
// DateLayout, the same shapes Build accepts.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID                 int64      `json:"id,omitempty"`
		Month              int32      `json:"month"`
		EMIStartDate       string     `json:"emiStartDate"`
		EMITotalMonth      string     `json:"emiTotalMonth"`
		Interest           string     `json:"interest"`
		PrincipalPaid      string     `json:"principalPaid"`
		RemainingBalance   string     `json:"remainingBalance"`
		PaymentAmount      string     `json:"paymentAmount"`
		PendingAmount      string     `json:"pendingAmount"`
		PaymentProcessedBy *string    `json:"paymentProcessedBy"`
		PaymentProcessedAt *time.Time `json:"paymentProcessedAt"`
	}{
		ID:                 e.ID,
		Month:              e.Month,
		EMIStartDate:       e.EMIStartDate.Format(DateLayout),
		EMITotalMonth:      FormatMoney(e.EMITotalMonth),
		Interest:           FormatMoney(e.Interest),
		PrincipalPaid:      FormatMoney(e.PrincipalPaid),
		RemainingBalance:   FormatMoney(e.RemainingBalance),
		PaymentAmount:      FormatMoney(e.PaymentAmount),
		PendingAmount:      FormatMoney(e.PendingAmount),
		PaymentProcessedBy: e.PaymentProcessedBy,
		PaymentProcessedAt: e.PaymentProcessedAt,
	})
}

type Totals struct {
	Due  decimal.Decimal `json:"totalDue"`
	Paid decimal.Decimal `json:"totalPaid"`
}

func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"totalDue":    FormatMoney(t.Due),
		"totalPaid":   FormatMoney(t.Paid),
		"outstanding": FormatMoney(t.Outstanding()),
	})
}

// Outstanding is what remains to be paid, never negative.
func (t Totals) Outstanding() decimal.Decimal {
	rest := t.Due.Sub(t.Paid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// Settled reports whether payments cover a non-empty plan within epsilon.
func (t Totals) Settled(epsilon decimal.Decimal) bool {
	return t.Due.IsPositive() && t.Paid.GreaterThanOrEqual(t.Due.Sub(epsilon))
}

type Repository interface {
	// Replace discards the loan's current entries and stores entries in order.
	Replace(ctx context.Context, loanID string, entries []Entry) ([]Entry, error)
	ListByLoan(ctx context.Context, loanID string) ([]Entry, error)
}
