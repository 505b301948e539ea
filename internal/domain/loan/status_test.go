package loan

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kural1554/Finance/internal/domain/staff"
)

type triple struct {
	role     staff.Role
	from, to Status
}

var allowedTriples = map[triple]bool{
	{staff.RoleManager, StatusPending, StatusManagerApproved}: true,
	{staff.RoleManager, StatusPending, StatusRejected}:        true,
	{staff.RoleAdmin, StatusPending, StatusRejected}:          true,
	{staff.RoleAdmin, StatusManagerApproved, StatusApproved}:  true,
	{staff.RoleAdmin, StatusManagerApproved, StatusRejected}:  true,
}

func TestCheckTransitionConformance(t *testing.T) {
	roles := []staff.Role{staff.RoleStaff, staff.RoleManager, staff.RoleAdmin}
	for _, role := range roles {
		for _, from := range AllStatuses {
			for _, to := range AllStatuses {
				name := fmt.Sprintf("%s/%s->%s", role, from, to)
				err := CheckTransition(role, from, to)
				switch {
				case from.Terminal():
					if !errors.Is(err, ErrTerminalState) {
						t.Fatalf("%s: expected terminal state violation, got %v", name, err)
					}
				case allowedTriples[triple{role, from, to}]:
					if err != nil {
						t.Fatalf("%s: expected allowed, got %v", name, err)
					}
				default:
					if !errors.Is(err, ErrUnauthorizedTransition) {
						t.Fatalf("%s: expected unauthorized, got %v", name, err)
					}
				}
			}
		}
	}
}

func TestSystemTransitionsAreNotHumanTransitions(t *testing.T) {
	for from, targets := range systemTransitions {
		for _, to := range targets {
			if err := checkSystemTransition(from, to); err != nil {
				t.Fatalf("system %s->%s: %v", from, to, err)
			}
			for _, role := range []staff.Role{staff.RoleStaff, staff.RoleManager, staff.RoleAdmin} {
				if err := CheckTransition(role, from, to); err == nil {
					t.Fatalf("%s must not be able to request system transition %s->%s", role, from, to)
				}
			}
		}
	}
	if err := checkSystemTransition(StatusPending, StatusPaid); !errors.Is(err, ErrUnauthorizedTransition) {
		t.Fatalf("pending loans cannot settle, got %v", err)
	}
	if err := checkSystemTransition(StatusPaid, StatusActive); !errors.Is(err, ErrTerminalState) {
		t.Fatalf("paid loans are terminal, got %v", err)
	}
}

func TestStatusHelpers(t *testing.T) {
	if st, ok := ParseStatus(" manager_approved "); !ok || st != StatusManagerApproved {
		t.Fatalf("unexpected parse result %q %v", st, ok)
	}
	if _, ok := ParseStatus("ARCHIVED"); ok {
		t.Fatalf("unknown status must not parse")
	}
	for _, st := range AllStatuses {
		want := st == StatusApproved || st == StatusActive
		if st.QualifiesForLoanID() != want {
			t.Fatalf("%s qualifies=%v", st, st.QualifiesForLoanID())
		}
	}
	if got := AllowedTransitions(staff.RoleAdmin, StatusManagerApproved); len(got) != 2 {
		t.Fatalf("unexpected admin targets %v", got)
	}
	if got := AllowedTransitions(staff.RoleStaff, StatusPending); got == nil || len(got) != 0 {
		t.Fatalf("staff should get an empty, non-nil list, got %v", got)
	}
}
