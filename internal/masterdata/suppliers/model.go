package suppliers

// Supplier delivers goods on receipts.
type Supplier struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

// SupplierForm is the create/update payload.
type SupplierForm struct {
	Name    string  `json:"name" validate:"required,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

func (f SupplierForm) supplier() Supplier {
	return Supplier{Name: f.Name, Phone: f.Phone, Email: f.Email, Address: f.Address}
}
