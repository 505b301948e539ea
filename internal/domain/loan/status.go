package loan

import (
	"slices"
	"strings"

	"github.com/kural1554/Finance/internal/domain/staff"
)

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusManagerApproved Status = "MANAGER_APPROVED"
	StatusInfoRequested   Status = "INFO_REQUESTED"
	StatusApproved        Status = "APPROVED"
	StatusActive          Status = "ACTIVE"
	StatusPaid            Status = "PAID"
	StatusRejected        Status = "REJECTED"
	StatusCancelled       Status = "CANCELLED"
	StatusOverdue         Status = "OVERDUE"
)

var AllStatuses = []Status{
	StatusPending,
	StatusManagerApproved,
	StatusInfoRequested,
	StatusApproved,
	StatusActive,
	StatusPaid,
	StatusRejected,
	StatusCancelled,
	StatusOverdue,
}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.Valid()
}

func (s Status) Valid() bool {
	return slices.Contains(AllStatuses, s)
}

// Terminal statuses accept no further transitions. A loan in a terminal status
// no longer counts against its applicant's single unresolved loan.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusRejected || s == StatusCancelled
}

// QualifiesForLoanID reports whether entering s requires a public loan ID.
func (s Status) QualifiesForLoanID() bool {
	return s == StatusApproved || s == StatusActive
}

var humanTransitions = map[staff.Role]map[Status][]Status{
	staff.RoleManager: {
		StatusPending: {StatusManagerApproved, StatusRejected},
	},
	staff.RoleAdmin: {
		StatusPending:         {StatusRejected},
		StatusManagerApproved: {StatusApproved, StatusRejected},
	},
}

// systemTransitions are driven by repayments and the overdue sweep, never by
// a staff request.
var systemTransitions = map[Status][]Status{
	StatusApproved: {StatusActive, StatusOverdue, StatusPaid},
	StatusActive:   {StatusOverdue, StatusPaid},
	StatusOverdue:  {StatusActive, StatusPaid},
}

// CheckTransition validates a staff-requested status change.
func CheckTransition(role staff.Role, from, to Status) error {
	if from.Terminal() {
		return ErrTerminalState
	}
	if slices.Contains(humanTransitions[role][from], to) {
		return nil
	}
	return ErrUnauthorizedTransition
}

func checkSystemTransition(from, to Status) error {
	if from.Terminal() {
		return ErrTerminalState
	}
	if slices.Contains(systemTransitions[from], to) {
		return nil
	}
	return ErrUnauthorizedTransition
}

// AllowedTransitions lists the statuses role may move a loan to from from.
func AllowedTransitions(role staff.Role, from Status) []Status {
	out := []Status{}
	if from.Terminal() {
		return out
	}
	return append(out, humanTransitions[role][from]...)
}
