package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kural1554/Finance/internal/domain/applicant"
	"github.com/kural1554/Finance/internal/domain/loan"
	"github.com/kural1554/Finance/internal/domain/schedule"
	"github.com/kural1554/Finance/internal/domain/sequence"
	"github.com/kural1554/Finance/internal/domain/staff"
	"github.com/kural1554/Finance/internal/http/middleware"
)

// writeError maps domain errors to a status and a snake_case error code.
// Anything unclassified becomes a 500 with fallback as the code.
func writeError(c *gin.Context, err error, fallback string) {
	var verr *schedule.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_schedule_entry", "details": verr})
	case errors.Is(err, schedule.ErrInvalidScheduleEntry):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_schedule_entry"})
	case errors.Is(err, loan.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loan_not_found"})
	case errors.Is(err, applicant.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "applicant_not_found"})
	case errors.Is(err, staff.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "staff_not_found"})
	case errors.Is(err, loan.ErrDuplicateActiveLoan):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_active_loan"})
	case errors.Is(err, loan.ErrTerminalState):
		c.JSON(http.StatusConflict, gin.H{"error": "terminal_state_violation"})
	case errors.Is(err, loan.ErrUnauthorizedTransition):
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized_transition"})
	case errors.Is(err, loan.ErrForbiddenRemarks), errors.Is(err, staff.ErrForbiddenCreation):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, applicant.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "applicant_exists"})
	case errors.Is(err, staff.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username_taken"})
	case errors.Is(err, loan.ErrInvalidInput), errors.Is(err, applicant.ErrInvalidInput), errors.Is(err, staff.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, sequence.ErrAllocationConflict):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sequence_allocation_conflict"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func requireActor(c *gin.Context) (staff.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return actor, ok
}
