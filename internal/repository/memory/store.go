// Package memory is an in-process implementation of the loan repositories.
// Transactions run against a copy of the state that replaces the live state
// only when the callback succeeds; one transaction runs at a time.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	applicantdomain "github.com/kural1554/Finance/internal/domain/applicant"
	loandomain "github.com/kural1554/Finance/internal/domain/loan"
	"github.com/kural1554/Finance/internal/domain/schedule"
)

type OutboxMessage struct {
	Topic   string
	Payload []byte
}

type state struct {
	applicants map[string]applicantdomain.Entity
	loans      map[string]loandomain.Entity
	loanOrder  []string
	nominees   map[string][]loandomain.Nominee
	schedules  map[string][]schedule.Entry
	counters   map[string]int64
	events     []loandomain.Event
	outbox     []OutboxMessage
	serial     int64
}

func newState() *state {
	return &state{
		applicants: map[string]applicantdomain.Entity{},
		loans:      map[string]loandomain.Entity{},
		nominees:   map[string][]loandomain.Nominee{},
		schedules:  map[string][]schedule.Entry{},
		counters:   map[string]int64{},
	}
}

// clone copies every container. Entities are values whose pointer fields are
// replaced, never written through, so a shallow copy of each is enough.
func (s *state) clone() *state {
	out := &state{
		applicants: maps.Clone(s.applicants),
		loans:      maps.Clone(s.loans),
		loanOrder:  slices.Clone(s.loanOrder),
		nominees:   make(map[string][]loandomain.Nominee, len(s.nominees)),
		schedules:  make(map[string][]schedule.Entry, len(s.schedules)),
		counters:   maps.Clone(s.counters),
		events:     slices.Clone(s.events),
		outbox:     slices.Clone(s.outbox),
		serial:     s.serial,
	}
	for k, v := range s.nominees {
		out.nominees[k] = slices.Clone(v)
	}
	for k, v := range s.schedules {
		out.schedules[k] = slices.Clone(v)
	}
	return out
}

func (s *state) nextSerial() int64 {
	s.serial++
	return s.serial
}

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{state: newState(), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos loandomain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(ctx, s.repositories(work)); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Repositories returns repositories that read and write the live state
// directly, each call under the store lock.
func (s *Store) Repositories() loandomain.Repositories {
	return s.repositories(nil)
}

func (s *Store) Applicants() *ApplicantRepository {
	return &ApplicantRepository{view{store: s}}
}

func (s *Store) Events() *EventRepository {
	return &EventRepository{view{store: s}}
}

// Outbox returns a copy of every enqueued message in order.
func (s *Store) Outbox() []OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.outbox)
}

func (s *Store) repositories(tx *state) loandomain.Repositories {
	v := view{store: s, tx: tx}
	return loandomain.Repositories{
		Applicants: &ApplicantRepository{v},
		Loans:      &LoanRepository{v},
		Schedules:  &ScheduleRepository{v},
		Nominees:   &NomineeRepository{v},
		Sequences:  &SequenceRepository{v},
		Events:     &EventRepository{v},
		Outbox:     &OutboxRepository{v},
	}
}

// view binds a repository either to a transaction's working state or to the
// live state.
type view struct {
	store *Store
	tx    *state
}

func (v view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

func (v view) now() time.Time {
	return v.store.now()
}
