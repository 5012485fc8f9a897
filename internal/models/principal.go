package models

// Role values supplied by the identity provider. The engine trusts them.
const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

// Principal is the authenticated caller as asserted by the identity layer.
type Principal struct {
	UserID string
	Role   string
}
