package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kural1554/Finance/internal/domain/loan"
	"github.com/kural1554/Finance/internal/domain/schedule"
	"github.com/kural1554/Finance/internal/domain/staff"
	"github.com/shopspring/decimal"
)

type LoanService interface {
	CreateLoan(ctx context.Context, actor staff.Actor, in loan.CreateInput) (*loan.Details, error)
	TransitionLoan(ctx context.Context, actor staff.Actor, id string, to loan.Status) (*loan.Entity, error)
	SubmitSchedule(ctx context.Context, actor staff.Actor, id string, inputs []schedule.EntryInput) (*loan.ScheduleResult, error)
	ComputeTotals(ctx context.Context, id string) (schedule.Totals, error)
	GetLoan(ctx context.Context, actor staff.Actor, id string) (*loan.Details, error)
	ListLoans(ctx context.Context, f loan.ListFilter) ([]loan.Entity, error)
	ReplaceNominees(ctx context.Context, actor staff.Actor, id string, inputs []loan.NomineeInput) ([]loan.Nominee, error)
	UpdateRemarks(ctx context.Context, actor staff.Actor, id string, in loan.RemarksInput) (*loan.Entity, error)
	History(ctx context.Context, id string) ([]loan.Event, error)
}

type LoanHandler struct {
	loanService LoanService
}

func NewLoanHandler(loanService LoanService) *LoanHandler {
	RegisterValidators()
	return &LoanHandler{loanService: loanService}
}

type createLoanRequest struct {
	ApplicantID      string                `json:"applicantId" binding:"required"`
	Amount           decimal.Decimal       `json:"amount"`
	Term             int32                 `json:"term" binding:"required,gt=0"`
	TermType         string                `json:"termType" binding:"required,term_type"`
	InterestRate     decimal.Decimal       `json:"interestRate"`
	Purpose          string                `json:"purpose"`
	RepaymentSource  string                `json:"repaymentSource"`
	AgreeTerms       bool                  `json:"agreeTerms"`
	AgreeCreditCheck bool                  `json:"agreeCreditCheck"`
	AgreeDataSharing bool                  `json:"agreeDataSharing"`
	TranslatorName   string                `json:"translatorName" binding:"max=100"`
	TranslatorPlace  string                `json:"translatorPlace" binding:"max=100"`
	Remarks          string                `json:"remarks"`
	StartDate        string                `json:"startDate"`
	Nominees         []loan.NomineeInput   `json:"nominees" binding:"dive"`
	Schedule         []schedule.EntryInput `json:"emiSchedule"`
}

func (h *LoanHandler) CreateLoan(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	var startDate *time.Time
	if raw := strings.TrimSpace(req.StartDate); raw != "" {
		d, err := schedule.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_start_date"})
			return
		}
		startDate = &d
	}

	created, err := h.loanService.CreateLoan(c.Request.Context(), actor, loan.CreateInput{
		ApplicantID:      req.ApplicantID,
		Amount:           req.Amount,
		Term:             req.Term,
		TermType:         req.TermType,
		InterestRate:     req.InterestRate,
		Purpose:          req.Purpose,
		RepaymentSource:  req.RepaymentSource,
		AgreeTerms:       req.AgreeTerms,
		AgreeCreditCheck: req.AgreeCreditCheck,
		AgreeDataSharing: req.AgreeDataSharing,
		TranslatorName:   req.TranslatorName,
		TranslatorPlace:  req.TranslatorPlace,
		Remarks:          req.Remarks,
		StartDate:        startDate,
		Nominees:         req.Nominees,
		Schedule:         req.Schedule,
	})
	if err != nil {
		writeError(c, err, "create_loan_failed")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *LoanHandler) ListLoans(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)
	filter := loan.ListFilter{
		ApplicantID: strings.TrimSpace(c.Query("applicant_id")),
		LoanID:      strings.TrimSpace(c.Query("loan_id")),
		Limit:       int32(limit),
		Offset:      int32(offset),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := loan.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
			return
		}
		filter.Status = status
	}

	items, err := h.loanService.ListLoans(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err, "list_loans_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LoanHandler) GetLoan(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	item, err := h.loanService.GetLoan(c.Request.Context(), actor, strings.TrimSpace(c.Param("loanId")))
	if err != nil {
		writeError(c, err, "get_loan_failed")
		return
	}
	c.JSON(http.StatusOK, item)
}

type transitionRequest struct {
	Status string `json:"status" binding:"required,loan_status"`
}

func (h *LoanHandler) TransitionLoan(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
		return
	}
	to, _ := loan.ParseStatus(req.Status)

	item, err := h.loanService.TransitionLoan(c.Request.Context(), actor, strings.TrimSpace(c.Param("loanId")), to)
	if err != nil {
		writeError(c, err, "transition_failed")
		return
	}
	c.JSON(http.StatusOK, item)
}

type scheduleRequest struct {
	Entries []schedule.EntryInput `json:"emiSchedule"`
}

func (h *LoanHandler) SubmitSchedule(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.loanService.SubmitSchedule(c.Request.Context(), actor, strings.TrimSpace(c.Param("loanId")), req.Entries)
	if err != nil {
		writeError(c, err, "submit_schedule_failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LoanHandler) GetTotals(c *gin.Context) {
	totals, err := h.loanService.ComputeTotals(c.Request.Context(), strings.TrimSpace(c.Param("loanId")))
	if err != nil {
		writeError(c, err, "totals_failed")
		return
	}
	c.JSON(http.StatusOK, totals)
}

type nomineesRequest struct {
	Nominees []loan.NomineeInput `json:"nominees" binding:"dive"`
}

func (h *LoanHandler) ReplaceNominees(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req nomineesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	items, err := h.loanService.ReplaceNominees(c.Request.Context(), actor, strings.TrimSpace(c.Param("loanId")), req.Nominees)
	if err != nil {
		writeError(c, err, "replace_nominees_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"nominees": items})
}

func (h *LoanHandler) UpdateRemarks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req loan.RemarksInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	item, err := h.loanService.UpdateRemarks(c.Request.Context(), actor, strings.TrimSpace(c.Param("loanId")), req)
	if err != nil {
		writeError(c, err, "update_remarks_failed")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *LoanHandler) History(c *gin.Context) {
	events, err := h.loanService.History(c.Request.Context(), strings.TrimSpace(c.Param("loanId")))
	if err != nil {
		writeError(c, err, "history_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": events})
}
