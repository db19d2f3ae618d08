package models

// Role is the application-level claim that decides which route table and
// pages a user sees
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCaterer  Role = "caterer"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleCaterer
}

// HomePath returns the landing route for the role
func (r Role) HomePath() string {
	if r == RoleCaterer {
		return "/caterer/dashboard"
	}
	return "/customer/home"
}
