package warehouses

import (
	"strings"

	"github.com/khovattu/khovattu/internal/shared"
)

func (s *Service) validate(f *WarehouseForm) error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Location != nil {
		loc := strings.TrimSpace(*f.Location)
		f.Location = &loc
		if loc == "" {
			f.Location = nil
		}
	}
	return shared.ValidateStruct(f)
}
