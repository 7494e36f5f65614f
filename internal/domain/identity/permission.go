package identity

import "strings"

// PermissionAll grants every permission
const PermissionAll = "*"

// Permission describes one resource:action code
type Permission struct {
	Code        string `json:"code"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

func perm(resource, action, description string) Permission {
	return Permission{Code: resource + ":" + action, Resource: resource, Action: action, Description: description}
}

// Catalog lists every permission the API checks
var Catalog = []Permission{
	perm("product", "read", "View products and stock"),
	perm("product", "create", "Create products"),
	perm("product", "update", "Edit products, prices and images"),
	perm("product", "delete", "Delete and restore products"),
	perm("category", "read", "View categories"),
	perm("category", "create", "Create categories"),
	perm("category", "update", "Edit categories"),
	perm("category", "delete", "Delete and restore categories"),
	perm("stock", "update", "Adjust, restock and bulk update stock"),
	perm("sale", "read", "View sales and receipts"),
	perm("sale", "create", "Ring up sales"),
	perm("sale", "void", "Void sales"),
	perm("sale", "refund", "Refund sales"),
	perm("contact", "read", "View contacts"),
	perm("contact", "create", "Create contacts"),
	perm("contact", "update", "Edit contacts"),
	perm("contact", "delete", "Delete and restore contacts"),
	perm("notification", "read", "View notifications"),
	perm("notification", "create", "Broadcast notifications"),
	perm("notification", "update", "Mark notifications as read"),
	perm("notification", "delete", "Delete notifications"),
	perm("report", "read", "View dashboard analytics"),
	perm("finance", "read", "View financial reports"),
	perm("user", "read", "View users"),
	perm("user", "create", "Create users"),
	perm("user", "update", "Edit users and reset passwords"),
	perm("user", "delete", "Delete users"),
	perm("role", "read", "View roles"),
	perm("role", "create", "Create roles"),
	perm("role", "update", "Edit role permissions"),
	perm("role", "delete", "Delete roles"),
}

var catalogIndex = func() map[string]bool {
	m := make(map[string]bool, len(Catalog)+1)
	m[PermissionAll] = true
	for _, p := range Catalog {
		m[p.Code] = true
	}
	return m
}()

// IsKnownPermission reports whether the code exists in the catalog
func IsKnownPermission(code string) bool {
	return catalogIndex[code]
}

// PermissionGranted checks a code against a granted set.
// "*" grants everything and "resource:*" grants every action on a resource.
func PermissionGranted(granted []string, code string) bool {
	resource, _, _ := strings.Cut(code, ":")
	for _, g := range granted {
		if g == PermissionAll || g == code || g == resource+":*" {
			return true
		}
	}
	return false
}

func resourcePermissions(resources ...string) []string {
	var out []string
	for _, p := range Catalog {
		for _, r := range resources {
			if p.Resource == r {
				out = append(out, p.Code)
			}
		}
	}
	return out
}

// System role codes seeded on first start
const (
	RoleAdmin      = "ADMIN"
	RoleManager    = "MANAGER"
	RolePharmacist = "PHARMACIST"
	RoleCashier    = "CASHIER"
)

// SystemRoleDefinition describes a seeded role
type SystemRoleDefinition struct {
	Code        string
	Name        string
	Description string
	Permissions []string
}

// SystemRoles returns the default role set
func SystemRoles() []SystemRoleDefinition {
	manager := append(resourcePermissions("product", "category", "stock", "sale", "contact", "notification", "report", "finance"), "user:read", "role:read")
	pharmacist := append(resourcePermissions("product", "contact", "notification"),
		"category:read", "stock:update", "sale:create", "sale:read", "sale:refund", "report:read")
	cashier := []string{"product:read", "category:read", "sale:create", "sale:read",
		"contact:read", "contact:create", "notification:read", "notification:update"}

	return []SystemRoleDefinition{
		{Code: RoleAdmin, Name: "Administrator", Description: "Full access", Permissions: []string{PermissionAll}},
		{Code: RoleManager, Name: "Store Manager", Description: "Runs the store and reads financials", Permissions: manager},
		{Code: RolePharmacist, Name: "Pharmacist", Description: "Dispenses and manages stock", Permissions: pharmacist},
		{Code: RoleCashier, Name: "Cashier", Description: "Rings up sales", Permissions: cashier},
	}
}
