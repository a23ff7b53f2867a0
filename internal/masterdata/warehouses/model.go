package warehouses

// Warehouse holds stock. At most one warehouse is the default.
type Warehouse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Location  *string `json:"location"`
	IsDefault bool    `json:"is_default"`
}

// WarehouseForm is the create/update payload.
type WarehouseForm struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Location *string `json:"location" validate:"omitempty,max=500"`
}
