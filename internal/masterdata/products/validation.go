package products

import (
	"strings"

	"github.com/khovattu/khovattu/internal/shared"
)

func (s *Service) validate(f *ProductForm) error {
	f.SKU = strings.TrimSpace(f.SKU)
	f.Name = strings.TrimSpace(f.Name)
	f.Unit = strings.TrimSpace(f.Unit)
	f.Origin = strings.TrimSpace(f.Origin)
	if err := shared.ValidateStruct(f); err != nil {
		return err
	}
	fields := map[string]string{}
	if f.Cost.IsNegative() {
		fields["Cost"] = "must not be negative"
	}
	if f.Price.IsNegative() {
		fields["Price"] = "must not be negative"
	}
	if f.MinStock.IsNegative() {
		fields["MinStock"] = "must not be negative"
	}
	if len(fields) > 0 {
		return shared.NewValidationError(fields)
	}
	return nil
}
