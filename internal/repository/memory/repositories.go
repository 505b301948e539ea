package memory

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	applicantdomain "github.com/kural1554/Finance/internal/domain/applicant"
	loandomain "github.com/kural1554/Finance/internal/domain/loan"
	"github.com/kural1554/Finance/internal/domain/schedule"
	"github.com/kural1554/Finance/internal/domain/sequence"
)

var errLoanIDTaken = errors.New("loan identifier already assigned")

type ApplicantRepository struct{ view }

func (r *ApplicantRepository) Create(_ context.Context, in applicantdomain.CreateInput) (*applicantdomain.Entity, error) {
	var out applicantdomain.Entity
	err := r.do(func(st *state) error {
		for _, existing := range st.applicants {
			if existing.UserID == in.UserID || strings.EqualFold(existing.Email, in.Email) || existing.Phone == in.Phone {
				return applicantdomain.ErrDuplicate
			}
		}
		now := r.now()
		out = applicantdomain.Entity{
			ID:         uuid.NewString(),
			UserID:     in.UserID,
			FirstName:  in.FirstName,
			LastName:   in.LastName,
			Email:      in.Email,
			Phone:      in.Phone,
			Address:    in.Address,
			City:       in.City,
			State:      in.State,
			PostalCode: in.PostalCode,
			CreatedBy:  in.CreatedBy,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		st.applicants[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ApplicantRepository) GetByID(_ context.Context, id string) (*applicantdomain.Entity, error) {
	var out applicantdomain.Entity
	err := r.do(func(st *state) error {
		a, ok := st.applicants[id]
		if !ok {
			return applicantdomain.ErrNotFound
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LockByID is GetByID: transactions are already serialized.
func (r *ApplicantRepository) LockByID(ctx context.Context, id string) (*applicantdomain.Entity, error) {
	return r.GetByID(ctx, id)
}

func (r *ApplicantRepository) List(_ context.Context, f applicantdomain.ListFilter) ([]applicantdomain.Entity, error) {
	out := make([]applicantdomain.Entity, 0)
	_ = r.do(func(st *state) error {
		search := strings.ToLower(strings.TrimSpace(f.Search))
		for _, a := range st.applicants {
			if search != "" && !strings.Contains(strings.ToLower(a.FirstName+" "+a.LastName+" "+a.Email+" "+a.Phone+" "+a.UserID), search) {
				continue
			}
			out = append(out, a)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b applicantdomain.Entity) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return page(out, f.Limit, f.Offset), nil
}

type LoanRepository struct{ view }

func (r *LoanRepository) Create(_ context.Context, in loandomain.CreateRecord) (*loandomain.Entity, error) {
	var out loandomain.Entity
	err := r.do(func(st *state) error {
		if !in.Status.Terminal() && hasUnresolved(st, in.ApplicantID) {
			return loandomain.ErrDuplicateActiveLoan
		}
		now := r.now()
		out = loandomain.Entity{
			ID:               uuid.NewString(),
			ApplicantID:      in.ApplicantID,
			Amount:           in.Amount,
			Term:             in.Term,
			TermType:         in.TermType,
			InterestRate:     in.InterestRate,
			Purpose:          in.Purpose,
			RepaymentSource:  in.RepaymentSource,
			AgreeTerms:       in.AgreeTerms,
			AgreeCreditCheck: in.AgreeCreditCheck,
			AgreeDataSharing: in.AgreeDataSharing,
			TranslatorName:   in.TranslatorName,
			TranslatorPlace:  in.TranslatorPlace,
			Remarks:          in.Remarks,
			RegisteredOn:     in.RegisteredOn,
			StartDate:        in.StartDate,
			Status:           in.Status,
			CreatedBy:        in.CreatedBy,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		st.loans[out.ID] = out
		st.loanOrder = append(st.loanOrder, out.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *LoanRepository) GetByID(_ context.Context, id string) (*loandomain.Entity, error) {
	var out loandomain.Entity
	err := r.do(func(st *state) error {
		l, ok := st.loans[id]
		if !ok {
			return loandomain.ErrNotFound
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *LoanRepository) GetForUpdate(ctx context.Context, id string) (*loandomain.Entity, error) {
	return r.GetByID(ctx, id)
}

func (r *LoanRepository) List(_ context.Context, f loandomain.ListFilter) ([]loandomain.Entity, error) {
	out := make([]loandomain.Entity, 0)
	_ = r.do(func(st *state) error {
		end := len(st.loanOrder)
		if f.After != nil {
			if at := slices.Index(st.loanOrder, f.After.ID); at >= 0 {
				end = at
			}
		}
		for i := end - 1; i >= 0; i-- {
			l := st.loans[st.loanOrder[i]]
			if f.Status != "" && l.Status != f.Status {
				continue
			}
			if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, l.Status) {
				continue
			}
			if f.ApplicantID != "" && l.ApplicantID != f.ApplicantID {
				continue
			}
			if f.LoanID != "" && (l.LoanID == nil || *l.LoanID != f.LoanID) {
				continue
			}
			out = append(out, l)
		}
		return nil
	})
	offset := f.Offset
	if f.After != nil {
		offset = 0
	}
	return page(out, f.Limit, offset), nil
}

func (r *LoanRepository) HasUnresolved(_ context.Context, applicantID string) (bool, error) {
	var found bool
	_ = r.do(func(st *state) error {
		found = hasUnresolved(st, applicantID)
		return nil
	})
	return found, nil
}

func hasUnresolved(st *state, applicantID string) bool {
	for _, l := range st.loans {
		if l.ApplicantID == applicantID && !l.Status.Terminal() {
			return true
		}
	}
	return false
}

func (r *LoanRepository) UpdateStatus(_ context.Context, id string, status loandomain.Status, loanID *string) error {
	return r.do(func(st *state) error {
		l, ok := st.loans[id]
		if !ok {
			return loandomain.ErrNotFound
		}
		if loanID != nil {
			for otherID, other := range st.loans {
				if otherID != id && other.LoanID != nil && *other.LoanID == *loanID {
					return errLoanIDTaken
				}
			}
			assigned := *loanID
			l.LoanID = &assigned
		}
		l.Status = status
		l.UpdatedAt = r.now()
		st.loans[id] = l
		return nil
	})
}

func (r *LoanRepository) UpdateRemarks(_ context.Context, id string, in loandomain.RemarksInput) error {
	return r.do(func(st *state) error {
		l, ok := st.loans[id]
		if !ok {
			return loandomain.ErrNotFound
		}
		if in.Remarks != nil {
			l.Remarks = *in.Remarks
		}
		if in.ManagerRemarks != nil {
			l.ManagerRemarks = *in.ManagerRemarks
		}
		if in.AdminRemarks != nil {
			l.AdminRemarks = *in.AdminRemarks
		}
		l.UpdatedAt = r.now()
		st.loans[id] = l
		return nil
	})
}

type ScheduleRepository struct{ view }

func (r *ScheduleRepository) Replace(_ context.Context, loanID string, entries []schedule.Entry) ([]schedule.Entry, error) {
	saved := make([]schedule.Entry, len(entries))
	err := r.do(func(st *state) error {
		if _, ok := st.loans[loanID]; !ok {
			return loandomain.ErrNotFound
		}
		for i, e := range entries {
			e.ID = st.nextSerial()
			saved[i] = e
		}
		st.schedules[loanID] = slices.Clone(saved)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *ScheduleRepository) ListByLoan(_ context.Context, loanID string) ([]schedule.Entry, error) {
	var out []schedule.Entry
	_ = r.do(func(st *state) error {
		out = slices.Clone(st.schedules[loanID])
		return nil
	})
	if out == nil {
		out = []schedule.Entry{}
	}
	return out, nil
}

type NomineeRepository struct{ view }

func (r *NomineeRepository) Replace(_ context.Context, loanID string, nominees []loandomain.Nominee) ([]loandomain.Nominee, error) {
	saved := make([]loandomain.Nominee, len(nominees))
	err := r.do(func(st *state) error {
		if _, ok := st.loans[loanID]; !ok {
			return loandomain.ErrNotFound
		}
		for i, n := range nominees {
			n.ID = st.nextSerial()
			saved[i] = n
		}
		st.nominees[loanID] = slices.Clone(saved)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *NomineeRepository) ListByLoan(_ context.Context, loanID string) ([]loandomain.Nominee, error) {
	var out []loandomain.Nominee
	_ = r.do(func(st *state) error {
		out = slices.Clone(st.nominees[loanID])
		return nil
	})
	if out == nil {
		out = []loandomain.Nominee{}
	}
	return out, nil
}

type SequenceRepository struct{ view }

func (r *SequenceRepository) LockCounter(_ context.Context, prefix string) (int64, bool, error) {
	var (
		last  int64
		found bool
	)
	_ = r.do(func(st *state) error {
		last, found = st.counters[prefix]
		return nil
	})
	return last, found, nil
}

func (r *SequenceRepository) SeedCounter(_ context.Context, prefix string, value int64) error {
	return r.do(func(st *state) error {
		if _, ok := st.counters[prefix]; !ok {
			st.counters[prefix] = value
		}
		return nil
	})
}

func (r *SequenceRepository) AdvanceCounter(_ context.Context, prefix string, value int64) error {
	return r.do(func(st *state) error {
		st.counters[prefix] = value
		return nil
	})
}

func (r *SequenceRepository) GreatestAssigned(_ context.Context, prefix string) (string, bool, error) {
	var best string
	_ = r.do(func(st *state) error {
		for _, l := range st.loans {
			if l.LoanID == nil || !strings.HasPrefix(*l.LoanID, prefix) {
				continue
			}
			if best == "" || sequence.Less(best, *l.LoanID) {
				best = *l.LoanID
			}
		}
		return nil
	})
	return best, best != "", nil
}

func (r *SequenceRepository) IdentifierExists(_ context.Context, id string) (bool, error) {
	var exists bool
	_ = r.do(func(st *state) error {
		for _, l := range st.loans {
			if l.LoanID != nil && *l.LoanID == id {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, nil
}

type EventRepository struct{ view }

func (r *EventRepository) Append(_ context.Context, ev loandomain.Event) (*loandomain.Event, error) {
	err := r.do(func(st *state) error {
		ev.ID = int64(len(st.events) + 1)
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = r.now()
		}
		st.events = append(st.events, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *EventRepository) ListByLoan(_ context.Context, loanID string) ([]loandomain.Event, error) {
	out := make([]loandomain.Event, 0)
	_ = r.do(func(st *state) error {
		for _, ev := range st.events {
			if ev.LoanRecordID == loanID {
				out = append(out, ev)
			}
		}
		return nil
	})
	return out, nil
}

func (r *EventRepository) ListSince(_ context.Context, lastID int64, limit int32) ([]loandomain.Event, error) {
	out := make([]loandomain.Event, 0)
	_ = r.do(func(st *state) error {
		for _, ev := range st.events {
			if ev.ID > lastID {
				out = append(out, ev)
			}
			if limit > 0 && len(out) >= int(limit) {
				break
			}
		}
		return nil
	})
	return out, nil
}

func (r *EventRepository) LatestID(_ context.Context) (int64, error) {
	var latest int64
	_ = r.do(func(st *state) error {
		latest = int64(len(st.events))
		return nil
	})
	return latest, nil
}

type OutboxRepository struct{ view }

func (r *OutboxRepository) Enqueue(_ context.Context, topic string, payload []byte) error {
	return r.do(func(st *state) error {
		st.outbox = append(st.outbox, OutboxMessage{Topic: topic, Payload: slices.Clone(payload)})
		return nil
	})
}

func page[T any](items []T, limit, offset int32) []T {
	if offset > 0 {
		if int(offset) >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}
