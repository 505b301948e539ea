package postgres

import (
	"github.com/kural1554/Finance/internal/domain/applicant"
	"github.com/kural1554/Finance/internal/domain/loan"
	"github.com/kural1554/Finance/internal/domain/schedule"
	"github.com/kural1554/Finance/internal/domain/sequence"
	"github.com/kural1554/Finance/internal/domain/staff"
	"github.com/kural1554/Finance/internal/jobs"
	"github.com/kural1554/Finance/internal/ws"
)

var (
	_ loan.Transactor        = (*Store)(nil)
	_ loan.Repository        = (*LoanRepository)(nil)
	_ loan.ApplicantLocker   = (*ApplicantRepository)(nil)
	_ loan.NomineeRepository = (*NomineeRepository)(nil)
	_ loan.EventRepository   = (*EventRepository)(nil)
	_ loan.OutboxRepository  = (*OutboxRepository)(nil)
	_ applicant.Repository   = (*ApplicantRepository)(nil)
	_ schedule.Repository    = (*ScheduleRepository)(nil)
	_ sequence.Store         = (*SequenceRepository)(nil)
	_ staff.Repository       = (*StaffRepository)(nil)
	_ staff.AuditRepository  = (*AdminAuditRepository)(nil)
	_ jobs.OutboxRepository  = (*OutboxRepository)(nil)
	_ ws.EventSource         = (*EventRepository)(nil)
)
