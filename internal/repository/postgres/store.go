package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	loandomain "github.com/kural1554/Finance/internal/domain/loan"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so a repository works
// the same inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
	numericOutOfRange         = "22003"
	unresolvedLoanIndex       = "loan_applications_one_unresolved_idx"
	loanIdentifierUniqueKey   = "loan_applications_loan_id_key"
)

// Store runs loan operations against Postgres. Each WithinTx call is one
// READ COMMITTED transaction; invariants rely on row locks taken inside it.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos loandomain.Repositories) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, repositories(tx))
	})
}

func (s *Store) Repositories() loandomain.Repositories {
	return repositories(s.pool)
}

func repositories(db DBTX) loandomain.Repositories {
	return loandomain.Repositories{
		Applicants: NewApplicantRepository(db),
		Loans:      NewLoanRepository(db),
		Schedules:  NewScheduleRepository(db),
		Nominees:   NewNomineeRepository(db),
		Sequences:  NewSequenceRepository(db),
		Events:     NewEventRepository(db),
		Outbox:     NewOutboxRepository(db),
	}
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// notFound maps a missing row, or a malformed uuid key, to sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return sentinel
	}
	return err
}
