package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kural1554/Finance/internal/domain/applicant"
)

type ApplicantService interface {
	Create(ctx context.Context, createdBy string, in applicant.CreateInput) (*applicant.Entity, error)
	Get(ctx context.Context, id string) (*applicant.Entity, error)
	List(ctx context.Context, f applicant.ListFilter) ([]applicant.Entity, error)
}

type ApplicantHandler struct {
	applicantService ApplicantService
}

func NewApplicantHandler(applicantService ApplicantService) *ApplicantHandler {
	return &ApplicantHandler{applicantService: applicantService}
}

type createApplicantRequest struct {
	FirstName  string `json:"firstName" binding:"required,max=100"`
	LastName   string `json:"lastName" binding:"required,max=100"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required,max=15"`
	Address    string `json:"address"`
	City       string `json:"city" binding:"max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postalCode" binding:"max=20"`
}

func (h *ApplicantHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req createApplicantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.applicantService.Create(c.Request.Context(), actor.UserID, applicant.CreateInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		writeError(c, err, "create_applicant_failed")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *ApplicantHandler) Get(c *gin.Context) {
	item, err := h.applicantService.Get(c.Request.Context(), strings.TrimSpace(c.Param("applicantId")))
	if err != nil {
		writeError(c, err, "get_applicant_failed")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ApplicantHandler) List(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)
	items, err := h.applicantService.List(c.Request.Context(), applicant.ListFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		writeError(c, err, "list_applicants_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
