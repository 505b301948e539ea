package loan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/kural1554/Finance/internal/domain/schedule"
	"github.com/kural1554/Finance/internal/domain/sequence"
	"github.com/kural1554/Finance/internal/domain/staff"
	"github.com/shopspring/decimal"
)

const TopicApplicantNotification = "applicant_notification"

const sweepPageSize = 200

// Notification is the outbox payload written for every status change.
type Notification struct {
	LoanRecordID string    `json:"loan_record_id"`
	LoanID       *string   `json:"loan_id"`
	ApplicantID  string    `json:"applicant_id"`
	FromStatus   Status    `json:"from_status"`
	ToStatus     Status    `json:"to_status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type eventActor struct {
	id       string
	username string
	role     string
}

var systemActor = eventActor{role: SystemActor, username: strings.ToLower(SystemActor)}

func staffActor(a staff.Actor) eventActor {
	return eventActor{id: a.UserID, username: a.Username, role: a.Role.String()}
}

type Service struct {
	store     Transactor
	allocator *sequence.Allocator
	epsilon   decimal.Decimal
	logger    *slog.Logger
	now       func() time.Time
	sweepPage int32
}

func NewService(store Transactor, allocator *sequence.Allocator, epsilon decimal.Decimal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		allocator: allocator,
		epsilon:   epsilon,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		sweepPage: sweepPageSize,
	}
}

func (s *Service) CreateLoan(ctx context.Context, actor staff.Actor, in CreateInput) (*Details, error) {
	in, err := normalizeCreate(in)
	if err != nil {
		return nil, err
	}
	nominees, err := buildNominees(in.Nominees)
	if err != nil {
		return nil, err
	}
	now := s.now()
	entries, err := schedule.Build(in.Schedule, actor.Username, now)
	if err != nil {
		return nil, err
	}

	var out *Details
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := repos.Applicants.LockByID(ctx, in.ApplicantID); err != nil {
			return err
		}
		unresolved, err := repos.Loans.HasUnresolved(ctx, in.ApplicantID)
		if err != nil {
			return err
		}
		if unresolved {
			return ErrDuplicateActiveLoan
		}

		created, err := repos.Loans.Create(ctx, CreateRecord{
			CreateInput:  in,
			Status:       StatusPending,
			RegisteredOn: schedule.Day(now),
			CreatedBy:    actor.UserID,
		})
		if err != nil {
			return err
		}
		savedNominees, err := repos.Nominees.Replace(ctx, created.ID, nominees)
		if err != nil {
			return err
		}
		savedEntries, err := repos.Schedules.Replace(ctx, created.ID, entries)
		if err != nil {
			return err
		}
		if err := s.record(ctx, repos, created, "", staffActor(actor)); err != nil {
			return err
		}

		out = &Details{
			Entity:             *created,
			Nominees:           savedNominees,
			Schedule:           savedEntries,
			Totals:             schedule.ComputeTotals(savedEntries),
			AllowedTransitions: AllowedTransitions(actor.Role, created.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("loan application created", "loan", out.ID, "applicant", out.ApplicantID, "actor", actor.Username)
	return out, nil
}

func (s *Service) TransitionLoan(ctx context.Context, actor staff.Actor, id string, to Status) (*Entity, error) {
	var out *Entity
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		current, err := repos.Loans.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := CheckTransition(actor.Role, current.Status, to); err != nil {
			return err
		}
		if err := s.moveTo(ctx, repos, current, to, staffActor(actor)); err != nil {
			return err
		}

		// A plan paid off before approval settles as soon as it may.
		entries, err := repos.Schedules.ListByLoan(ctx, current.ID)
		if err != nil {
			return err
		}
		if err := s.settleIfPaid(ctx, repos, current, schedule.ComputeTotals(entries)); err != nil {
			return err
		}
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) SubmitSchedule(ctx context.Context, actor staff.Actor, id string, inputs []schedule.EntryInput) (*ScheduleResult, error) {
	entries, err := schedule.Build(inputs, actor.Username, s.now())
	if err != nil {
		return nil, err
	}

	var out *ScheduleResult
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		current, err := repos.Loans.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return ErrTerminalState
		}
		saved, err := repos.Schedules.Replace(ctx, current.ID, entries)
		if err != nil {
			return err
		}
		totals := schedule.ComputeTotals(saved)
		if err := s.settleIfPaid(ctx, repos, current, totals); err != nil {
			return err
		}
		out = &ScheduleResult{Loan: *current, Schedule: saved, Totals: totals}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ComputeTotals(ctx context.Context, id string) (schedule.Totals, error) {
	repos := s.store.Repositories()
	if _, err := repos.Loans.GetByID(ctx, id); err != nil {
		return schedule.Totals{}, err
	}
	entries, err := repos.Schedules.ListByLoan(ctx, id)
	if err != nil {
		return schedule.Totals{}, err
	}
	return schedule.ComputeTotals(entries), nil
}

func (s *Service) GetLoan(ctx context.Context, actor staff.Actor, id string) (*Details, error) {
	repos := s.store.Repositories()
	item, err := repos.Loans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	nominees, err := repos.Nominees.ListByLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := repos.Schedules.ListByLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Details{
		Entity:             *item,
		Nominees:           nominees,
		Schedule:           entries,
		Totals:             schedule.ComputeTotals(entries),
		AllowedTransitions: AllowedTransitions(actor.Role, item.Status),
	}, nil
}

func (s *Service) ListLoans(ctx context.Context, f ListFilter) ([]Entity, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.Repositories().Loans.List(ctx, f)
}

func (s *Service) ReplaceNominees(ctx context.Context, actor staff.Actor, id string, inputs []NomineeInput) ([]Nominee, error) {
	nominees, err := buildNominees(inputs)
	if err != nil {
		return nil, err
	}

	var out []Nominee
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		current, err := repos.Loans.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return ErrTerminalState
		}
		out, err = repos.Nominees.Replace(ctx, current.ID, nominees)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("loan nominees replaced", "loan", id, "count", len(out), "actor", actor.Username)
	return out, nil
}

// UpdateRemarks writes remark channels. Managers own managerRemarks and admins
// own adminRemarks; general remarks are frozen once the loan is terminal.
func (s *Service) UpdateRemarks(ctx context.Context, actor staff.Actor, id string, in RemarksInput) (*Entity, error) {
	if in.Remarks == nil && in.ManagerRemarks == nil && in.AdminRemarks == nil {
		return nil, fmt.Errorf("%w: no remarks supplied", ErrInvalidInput)
	}
	if in.ManagerRemarks != nil && actor.Role != staff.RoleManager {
		return nil, ErrForbiddenRemarks
	}
	if in.AdminRemarks != nil && actor.Role != staff.RoleAdmin {
		return nil, ErrForbiddenRemarks
	}
	if in.Remarks != nil && !actor.Role.Satisfies(staff.RoleManager) {
		return nil, ErrForbiddenRemarks
	}

	var out *Entity
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		current, err := repos.Loans.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.Remarks != nil && current.Status.Terminal() {
			return ErrTerminalState
		}
		if err := repos.Loans.UpdateRemarks(ctx, current.ID, in); err != nil {
			return err
		}
		if in.Remarks != nil {
			current.Remarks = *in.Remarks
		}
		if in.ManagerRemarks != nil {
			current.ManagerRemarks = *in.ManagerRemarks
		}
		if in.AdminRemarks != nil {
			current.AdminRemarks = *in.AdminRemarks
		}
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) History(ctx context.Context, id string) ([]Event, error) {
	repos := s.store.Repositories()
	if _, err := repos.Loans.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return repos.Events.ListByLoan(ctx, id)
}

// SweepOverdue applies the date-driven system transitions as of asOf: approved
// loans whose start date has come become active, loans with an underpaid past
// installment become overdue, and overdue loans with nothing past due recover.
// Each loan is handled in its own transaction; failures are counted, not fatal.
// Pages are keyed on the last loan seen, so loans leaving the swept statuses
// mid-run do not shift later pages.
func (s *Service) SweepOverdue(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	result := &SweepResult{}
	filter := ListFilter{
		Statuses: []Status{StatusApproved, StatusActive, StatusOverdue},
		Limit:    s.sweepPage,
	}
	for {
		page, err := s.store.Repositories().Loans.List(ctx, filter)
		if err != nil {
			return result, err
		}
		for _, item := range page {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.Checked++
			if err := s.sweepOne(ctx, item.ID, asOf, result); err != nil {
				result.Failed++
				s.logger.Error("overdue sweep failed for loan", "loan", item.ID, "err", err)
			}
		}
		if len(page) < int(filter.Limit) {
			break
		}
		filter.After = page[len(page)-1].Cursor()
	}
	s.logger.Info("overdue sweep finished", "checked", result.Checked, "activated", result.Activated, "overdue", result.Overdue, "cured", result.Cured, "failed", result.Failed)
	return result, nil
}

func (s *Service) sweepOne(ctx context.Context, id string, asOf time.Time, result *SweepResult) error {
	var activated, overdue, cured int
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		current, err := repos.Loans.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		today := schedule.Day(asOf)

		if current.Status == StatusApproved && current.StartDate != nil && !schedule.Day(*current.StartDate).After(today) {
			if err := s.systemMove(ctx, repos, current, StatusActive); err != nil {
				return err
			}
			activated++
		}

		entries, err := repos.Schedules.ListByLoan(ctx, current.ID)
		if err != nil {
			return err
		}
		pastDue := schedule.HasPastDue(entries, asOf)
		switch {
		case pastDue && (current.Status == StatusApproved || current.Status == StatusActive):
			if err := s.systemMove(ctx, repos, current, StatusOverdue); err != nil {
				return err
			}
			overdue++
		case !pastDue && current.Status == StatusOverdue:
			if err := s.systemMove(ctx, repos, current, StatusActive); err != nil {
				return err
			}
			cured++
		}
		return nil
	})
	if err != nil {
		return err
	}
	result.Activated += activated
	result.Overdue += overdue
	result.Cured += cured
	return nil
}

func (s *Service) settleIfPaid(ctx context.Context, repos Repositories, current *Entity, totals schedule.Totals) error {
	if !totals.Settled(s.epsilon) {
		return nil
	}
	if checkSystemTransition(current.Status, StatusPaid) != nil {
		return nil
	}
	s.logger.Info("loan repaid in full", "loan", current.ID, "total_due", totals.Due.String(), "total_paid", totals.Paid.String())
	return s.moveTo(ctx, repos, current, StatusPaid, systemActor)
}

func (s *Service) systemMove(ctx context.Context, repos Repositories, current *Entity, to Status) error {
	if err := checkSystemTransition(current.Status, to); err != nil {
		return err
	}
	return s.moveTo(ctx, repos, current, to, systemActor)
}

// moveTo persists an already validated transition, assigning the public loan
// ID first when the target status requires one.
func (s *Service) moveTo(ctx context.Context, repos Repositories, current *Entity, to Status, actor eventActor) error {
	from := current.Status
	if to.QualifiesForLoanID() {
		id, assigned, err := s.allocator.Assign(ctx, repos.Sequences, current.LoanID)
		if err != nil {
			return err
		}
		if assigned {
			current.LoanID = &id
			s.logger.Info("loan identifier assigned", "loan", current.ID, "loan_id", id)
		}
	}
	if err := repos.Loans.UpdateStatus(ctx, current.ID, to, current.LoanID); err != nil {
		return err
	}
	current.Status = to
	current.UpdatedAt = s.now()
	return s.record(ctx, repos, current, from, actor)
}

func (s *Service) record(ctx context.Context, repos Repositories, current *Entity, from Status, actor eventActor) error {
	now := s.now()
	if _, err := repos.Events.Append(ctx, Event{
		LoanRecordID:  current.ID,
		LoanID:        current.LoanID,
		FromStatus:    from,
		ToStatus:      current.Status,
		ActorID:       actor.id,
		ActorUsername: actor.username,
		ActorRole:     actor.role,
		CreatedAt:     now,
	}); err != nil {
		return err
	}

	payload, err := json.Marshal(Notification{
		LoanRecordID: current.ID,
		LoanID:       current.LoanID,
		ApplicantID:  current.ApplicantID,
		FromStatus:   from,
		ToStatus:     current.Status,
		OccurredAt:   now,
	})
	if err != nil {
		return err
	}
	return repos.Outbox.Enqueue(ctx, TopicApplicantNotification, payload)
}

// Interest rates are stored as NUMERIC(7,4) percentages.
const ratePlaces = 4

var maxInterestRate = decimal.New(1000, 0)

func normalizeCreate(in CreateInput) (CreateInput, error) {
	in.ApplicantID = strings.TrimSpace(in.ApplicantID)
	in.TermType = strings.ToLower(strings.TrimSpace(in.TermType))
	in.Purpose = strings.TrimSpace(in.Purpose)
	in.RepaymentSource = strings.TrimSpace(in.RepaymentSource)

	switch {
	case in.ApplicantID == "":
		return in, fmt.Errorf("%w: applicant is required", ErrInvalidInput)
	case !in.Amount.IsPositive():
		return in, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	case schedule.CheckMoney(in.Amount) != nil:
		return in, fmt.Errorf("%w: amount %v", ErrInvalidInput, schedule.CheckMoney(in.Amount))
	case in.Term <= 0:
		return in, fmt.Errorf("%w: term must be positive", ErrInvalidInput)
	case !slices.Contains(TermTypes, in.TermType):
		return in, fmt.Errorf("%w: unknown term type %q", ErrInvalidInput, in.TermType)
	case in.InterestRate.IsNegative():
		return in, fmt.Errorf("%w: interest rate must not be negative", ErrInvalidInput)
	case in.InterestRate.GreaterThanOrEqual(maxInterestRate):
		return in, fmt.Errorf("%w: interest rate must be below %s", ErrInvalidInput, maxInterestRate)
	case !in.InterestRate.Equal(in.InterestRate.Round(ratePlaces)):
		return in, fmt.Errorf("%w: interest rate must have at most %d decimal places", ErrInvalidInput, ratePlaces)
	}
	if in.StartDate != nil {
		day := schedule.Day(*in.StartDate)
		in.StartDate = &day
	}
	return in, nil
}

func buildNominees(inputs []NomineeInput) ([]Nominee, error) {
	out := make([]Nominee, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: nominee %d needs a name", ErrInvalidInput, i)
		}
		out = append(out, Nominee{
			Name:          name,
			Phone:         strings.TrimSpace(in.Phone),
			Email:         strings.TrimSpace(in.Email),
			Relationship:  strings.TrimSpace(in.Relationship),
			Address:       strings.TrimSpace(in.Address),
			IDProofType:   strings.TrimSpace(in.IDProofType),
			IDProofNumber: strings.TrimSpace(in.IDProofNumber),
			ProfilePhoto:  strings.TrimSpace(in.ProfilePhoto),
			IDProofFile:   strings.TrimSpace(in.IDProofFile),
		})
	}
	return out, nil
}
