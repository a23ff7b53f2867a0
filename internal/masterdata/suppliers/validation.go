package suppliers

import (
	"strings"

	"github.com/khovattu/khovattu/internal/shared"
)

// validate trims input and drops blank optional fields so they store as NULL.
func (s *Service) validate(f *SupplierForm) error {
	f.Name = strings.TrimSpace(f.Name)
	for _, field := range []**string{&f.Phone, &f.Email, &f.Address} {
		if *field == nil {
			continue
		}
		v := strings.TrimSpace(**field)
		if v == "" {
			*field = nil
			continue
		}
		*field = &v
	}
	return shared.ValidateStruct(f)
}
