package dto

import (
	"fmt"

	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the custom binding tags used by the request DTOs
// on gin's validator engine.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return registerOn(v)
}

func registerOn(v *validator.Validate) error {
	if err := v.RegisterValidation("quotestatus", validQuoteStatus); err != nil {
		return fmt.Errorf("failed to register quotestatus validator: %w", err)
	}
	if err := v.RegisterValidation("settlementstatus", validSettlementStatus); err != nil {
		return fmt.Errorf("failed to register settlementstatus validator: %w", err)
	}
	return nil
}

func validQuoteStatus(fl validator.FieldLevel) bool {
	return domain.QuoteStatus(fl.Field().String()).IsValid()
}

func validSettlementStatus(fl validator.FieldLevel) bool {
	return domain.SettlementSources(domain.QuoteStatus(fl.Field().String())) != nil
}
