package handlers

import (
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/kural1554/Finance/internal/domain/loan"
)

var registerOnce sync.Once

// RegisterValidators adds the loan-specific tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("term_type", func(fl validator.FieldLevel) bool {
			return slices.Contains(loan.TermTypes, strings.ToLower(strings.TrimSpace(fl.Field().String())))
		})
		_ = v.RegisterValidation("loan_status", func(fl validator.FieldLevel) bool {
			_, ok := loan.ParseStatus(fl.Field().String())
			return ok
		})
	})
}
