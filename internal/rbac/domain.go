package rbac

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions,omitempty"`
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

// Built-in roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// Permission keys.
const (
	PermUsersRead       = "users:read"
	PermUsersWrite      = "users:write"
	PermProductsRead    = "products:read"
	PermProductsWrite   = "products:write"
	PermCategoriesWrite = "categories:write"
	PermSuppliersWrite  = "suppliers:write"
	PermWarehousesWrite = "warehouses:write"
	PermReceiptsRead    = "receipts:read"
	PermReceiptsWrite   = "receipts:write"
	PermReceiptsApprove = "receipts:approve"
	PermIssuesRead      = "issues:read"
	PermIssuesWrite     = "issues:write"
	PermIssuesApprove   = "issues:approve"
	PermExportsRead     = "exports:read"
)

// DefaultRoles are created once on an empty database.
var DefaultRoles = []Role{
	{Name: RoleAdmin, Description: "Full system access"},
	{Name: RoleManager, Description: "Manages warehouses and documents"},
	{Name: RoleStaff, Description: "Warehouse staff"},
}

// DefaultPermissions are created once on an empty database.
var DefaultPermissions = []Permission{
	{Key: PermUsersRead, Description: "View users"},
	{Key: PermUsersWrite, Description: "Manage users"},
	{Key: PermProductsRead, Description: "View products"},
	{Key: PermProductsWrite, Description: "Manage products"},
	{Key: PermCategoriesWrite, Description: "Manage categories"},
	{Key: PermSuppliersWrite, Description: "Manage suppliers"},
	{Key: PermWarehousesWrite, Description: "Manage warehouses"},
	{Key: PermReceiptsRead, Description: "View receipts"},
	{Key: PermReceiptsWrite, Description: "Create receipts"},
	{Key: PermReceiptsApprove, Description: "Approve receipts"},
	{Key: PermIssuesRead, Description: "View issues"},
	{Key: PermIssuesWrite, Description: "Create issues"},
	{Key: PermIssuesApprove, Description: "Approve issues"},
	{Key: PermExportsRead, Description: "Export reports"},
}

// DefaultGrants maps non-admin roles to their permissions. Admin receives
// every permission.
var DefaultGrants = map[string][]string{
	RoleManager: {
		PermProductsRead, PermProductsWrite, PermCategoriesWrite, PermSuppliersWrite,
		PermWarehousesWrite, PermReceiptsRead, PermReceiptsWrite, PermReceiptsApprove,
		PermIssuesRead, PermIssuesWrite, PermIssuesApprove, PermExportsRead,
	},
	RoleStaff: {PermProductsRead, PermReceiptsRead, PermIssuesRead, PermExportsRead},
}
