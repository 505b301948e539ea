package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kural1554/Finance/internal/domain/staff"
)

type StaffService interface {
	Create(ctx context.Context, actor staff.Actor, in staff.CreateInput) (*staff.Entity, error)
	Get(ctx context.Context, id string) (*staff.Entity, error)
	List(ctx context.Context, role staff.Role, limit, offset int32) ([]staff.Entity, error)
}

type StaffHandler struct {
	staffService StaffService
}

func NewStaffHandler(staffService StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

func (h *StaffHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req staff.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.staffService.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err, "create_staff_failed")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *StaffHandler) Get(c *gin.Context) {
	item, err := h.staffService.Get(c.Request.Context(), strings.TrimSpace(c.Param("staffId")))
	if err != nil {
		writeError(c, err, "get_staff_failed")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *StaffHandler) List(c *gin.Context) {
	var role staff.Role
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		parsed, err := staff.ParseRole(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
			return
		}
		role = parsed
	}
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)

	items, err := h.staffService.List(c.Request.Context(), role, int32(limit), int32(offset))
	if err != nil {
		writeError(c, err, "list_staff_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
