package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kural1554/Finance/internal/domain/loan"
)

type MetaHandler struct {
	env          string
	version      string
	loanIDPrefix string
}

func NewMetaHandler(env, version, loanIDPrefix string) *MetaHandler {
	return &MetaHandler{env: env, version: version, loanIDPrefix: loanIDPrefix}
}

// GetMeta also serves the enumerations the staff UI renders in its forms.
func (h *MetaHandler) GetMeta(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":         "Finance Loan Backend",
		"version":      h.version,
		"env":          h.env,
		"loanIdPrefix": h.loanIDPrefix,
		"loanStatuses": loan.AllStatuses,
		"termTypes":    loan.TermTypes,
		"roles":        []string{"STAFF", "MANAGER", "ADMIN"},
	})
}
