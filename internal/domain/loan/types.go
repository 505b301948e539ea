package loan

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/kural1554/Finance/internal/domain/applicant"
	"github.com/kural1554/Finance/internal/domain/schedule"
	"github.com/kural1554/Finance/internal/domain/sequence"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("loan_not_found")
	ErrDuplicateActiveLoan    = errors.New("duplicate_active_loan")
	ErrUnauthorizedTransition = errors.New("unauthorized_transition")
	ErrTerminalState          = errors.New("terminal_state_violation")
	ErrInvalidInput           = errors.New("invalid_loan_input")
	ErrForbiddenRemarks       = errors.New("forbidden_remarks_channel")
)

var TermTypes = []string{"day", "week", "month", "year"}

type Entity struct {
	ID               string          `json:"id"`
	LoanID           *string         `json:"loanID"`
	ApplicantID      string          `json:"applicantId"`
	Amount           decimal.Decimal `json:"amount"`
	Term             int32           `json:"term"`
	TermType         string          `json:"termType"`
	InterestRate     decimal.Decimal `json:"interestRate"`
	Purpose          string          `json:"purpose"`
	RepaymentSource  string          `json:"repaymentSource"`
	AgreeTerms       bool            `json:"agreeTerms"`
	AgreeCreditCheck bool            `json:"agreeCreditCheck"`
	AgreeDataSharing bool            `json:"agreeDataSharing"`
	TranslatorName   string          `json:"translatorName"`
	TranslatorPlace  string          `json:"translatorPlace"`
	Remarks          string          `json:"remarks"`
	ManagerRemarks   string          `json:"managerRemarks"`
	AdminRemarks     string          `json:"adminRemarks"`
	RegisteredOn     time.Time       `json:"loanRegDate"`
	StartDate        *time.Time      `json:"startDate"`
	Status           Status          `json:"status"`
	CreatedBy        string          `json:"createdBy,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type Nominee struct {
	ID            int64  `json:"id,omitempty"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Relationship  string `json:"relationship"`
	Address       string `json:"address"`
	IDProofType   string `json:"idProofType"`
	IDProofNumber string `json:"idProofNumber"`
	ProfilePhoto  string `json:"profilePhoto"`
	IDProofFile   string `json:"idProofFile"`
}

type NomineeInput struct {
	Name          string `json:"name" binding:"required,max=100"`
	Phone         string `json:"phone" binding:"max=15"`
	Email         string `json:"email" binding:"omitempty,email"`
	Relationship  string `json:"relationship" binding:"max=100"`
	Address       string `json:"address"`
	IDProofType   string `json:"idProofType" binding:"max=100"`
	IDProofNumber string `json:"idProofNumber" binding:"max=100"`
	ProfilePhoto  string `json:"profilePhoto"`
	IDProofFile   string `json:"idProofFile"`
}

type CreateInput struct {
	ApplicantID      string
	Amount           decimal.Decimal
	Term             int32
	TermType         string
	InterestRate     decimal.Decimal
	Purpose          string
	RepaymentSource  string
	AgreeTerms       bool
	AgreeCreditCheck bool
	AgreeDataSharing bool
	TranslatorName   string
	TranslatorPlace  string
	Remarks          string
	StartDate        *time.Time
	Nominees         []NomineeInput
	Schedule         []schedule.EntryInput
}

// CreateRecord is what a repository persists for a new loan.
type CreateRecord struct {
	CreateInput
	Status       Status
	RegisteredOn time.Time
	CreatedBy    string
}

// RemarksInput carries optional remark updates; nil fields are left as is.
type RemarksInput struct {
	Remarks        *string `json:"remarks"`
	ManagerRemarks *string `json:"managerRemarks"`
	AdminRemarks   *string `json:"adminRemarks"`
}

type ListFilter struct {
	Status      Status
	Statuses    []Status
	ApplicantID string
	LoanID      string
	Limit       int32
	Offset      int32
	// After resumes the listing past this loan; it replaces Offset when set.
	After *Cursor
}

// Cursor marks a position in the newest-first loan listing.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func (e Entity) Cursor() *Cursor {
	return &Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
}

// Details is a loan together with its nominees, schedule and totals.
type Details struct {
	Entity
	Nominees           []Nominee        `json:"nominees"`
	Schedule           []schedule.Entry `json:"emiSchedule"`
	Totals             schedule.Totals  `json:"totals"`
	AllowedTransitions []Status         `json:"allowedTransitions"`
}

type ScheduleResult struct {
	Loan     Entity           `json:"loan"`
	Schedule []schedule.Entry `json:"emiSchedule"`
	Totals   schedule.Totals  `json:"totals"`
}

// Event records one accepted status change.
type Event struct {
	ID            int64     `json:"id"`
	LoanRecordID  string    `json:"loanRecordId"`
	LoanID        *string   `json:"loanID"`
	FromStatus    Status    `json:"fromStatus"`
	ToStatus      Status    `json:"toStatus"`
	ActorID       string    `json:"actorId"`
	ActorUsername string    `json:"actorUsername"`
	ActorRole     string    `json:"actorRole"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SystemActor is recorded on events no staff member triggered.
const SystemActor = "SYSTEM"

type SweepResult struct {
	Checked   int `json:"checked"`
	Activated int `json:"activated"`
	Overdue   int `json:"overdue"`
	Cured     int `json:"cured"`
	Failed    int `json:"failed"`
}

type Repository interface {
	Create(ctx context.Context, in CreateRecord) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	// GetForUpdate reads the loan and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Entity, error)
	List(ctx context.Context, f ListFilter) ([]Entity, error)
	HasUnresolved(ctx context.Context, applicantID string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status Status, loanID *string) error
	UpdateRemarks(ctx context.Context, id string, in RemarksInput) error
}

type ApplicantLocker interface {
	// LockByID reads the applicant and locks it until the transaction ends.
	LockByID(ctx context.Context, id string) (*applicant.Entity, error)
	GetByID(ctx context.Context, id string) (*applicant.Entity, error)
}

type NomineeRepository interface {
	Replace(ctx context.Context, loanID string, nominees []Nominee) ([]Nominee, error)
	ListByLoan(ctx context.Context, loanID string) ([]Nominee, error)
}

type EventRepository interface {
	Append(ctx context.Context, ev Event) (*Event, error)
	ListByLoan(ctx context.Context, loanID string) ([]Event, error)
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, topic string, payload []byte) error
}

// Repositories is the set of stores a loan operation works against. The set
// handed to a WithinTx callback shares one transaction.
type Repositories struct {
	Applicants ApplicantLocker
	Loans      Repository
	Schedules  schedule.Repository
	Nominees   NomineeRepository
	Sequences  sequence.Store
	Events     EventRepository
	Outbox     OutboxRepository
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Repositories() Repositories
}

// entityFields drops Entity's MarshalJSON so the wire struct can embed it.
type entityFields Entity

// entityWire overrides the money and date fields of a loan with their
// fixed-point and calendar-date renderings.
type entityWire struct {
	entityFields
	Amount       string  `json:"amount"`
	InterestRate string  `json:"interestRate"`
	RegisteredOn string  `json:"loanRegDate"`
	StartDate    *string `json:"startDate"`
}

func (e Entity) wire() entityWire {
	out := entityWire{
		entityFields: entityFields(e),
		Amount:       schedule.FormatMoney(e.Amount),
		InterestRate: FormatRate(e.InterestRate),
		RegisteredOn: e.RegisteredOn.Format(schedule.DateLayout),
	}
	if e.StartDate != nil {
		start := e.StartDate.Format(schedule.DateLayout)
		out.StartDate = &start
	}
	return out
}

func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.wire())
}

func (d Details) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		entityWire
		Nominees           []Nominee        `json:"nominees"`
		Schedule           []schedule.Entry `json:"emiSchedule"`
		Totals             schedule.Totals  `json:"totals"`
		AllowedTransitions []Status         `json:"allowedTransitions"`
	}{d.Entity.wire(), d.Nominees, d.Schedule, d.Totals, d.AllowedTransitions})
}

// FormatRate renders an interest rate with two to four decimal places,
// dropping trailing zeros beyond the second.
func FormatRate(rate decimal.Decimal) string {
	places := int32(2)
	if _, frac, ok := strings.Cut(rate.String(), "."); ok && int32(len(frac)) > places {
		places = min(int32(len(frac)), ratePlaces)
	}
	return rate.StringFixed(places)
}
