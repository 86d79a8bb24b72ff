// Package authz owns the role model and the capability table.  Routes ask
// for a capability; only this package knows which roles hold it.
package authz

import "strings"

// Role is the value stored in users.role and in the JWT "role" claim.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCashier  Role = "cashier"
	RoleWaiter   Role = "waiter"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

// Capability names an action a route performs.
type Capability string

const (
	CapRedeem             Capability = "redeem"
	CapRecordPurchase     Capability = "record_purchase"
	CapLookupCustomers    Capability = "lookup_customers"
	CapGrantPoints        Capability = "grant_points"
	CapProcessRedemptions Capability = "process_redemptions"
	CapManageRewards      Capability = "manage_rewards"
	CapManageUsers        Capability = "manage_users"
	CapManageTickets      Capability = "manage_tickets"
	CapOpenTickets        Capability = "open_tickets"
	CapViewActivity       Capability = "view_activity"
	CapViewMetrics        Capability = "view_metrics"
)

var staff = []Role{RoleCashier, RoleWaiter, RoleManager, RoleAdmin, RoleOwner}

var table = map[Capability][]Role{
	CapRedeem:             {RoleCustomer},
	CapRecordPurchase:     staff,
	CapLookupCustomers:    staff,
	CapGrantPoints:        {RoleManager, RoleAdmin},
	CapProcessRedemptions: {RoleManager, RoleAdmin},
	CapManageRewards:      {RoleManager, RoleAdmin},
	CapManageUsers:        {RoleAdmin, RoleOwner},
	CapManageTickets:      {RoleManager, RoleAdmin, RoleOwner},
	CapOpenTickets:        append([]Role{RoleCustomer}, staff...),
	CapViewActivity:       {RoleAdmin, RoleOwner},
	CapViewMetrics:        {RoleManager, RoleAdmin, RoleOwner},
}

// grants is the inverted table built once at init.
var grants = func() map[Role]map[Capability]bool {
	out := make(map[Role]map[Capability]bool)
	for c, roles := range table {
		for _, r := range roles {
			if out[r] == nil {
				out[r] = make(map[Capability]bool)
			}
			out[r][c] = true
		}
	}
	return out
}()

// Can reports whether role holds capability c.
func Can(role Role, c Capability) bool { return grants[role][c] }

// Capabilities lists what a role may do, in table order of the constants
// above.  The frontend uses it to decide which views to render.
func Capabilities(role Role) []Capability {
	all := []Capability{
		CapRedeem, CapRecordPurchase, CapLookupCustomers, CapGrantPoints,
		CapProcessRedemptions, CapManageRewards, CapManageUsers,
		CapManageTickets, CapOpenTickets, CapViewActivity, CapViewMetrics,
	}
	out := make([]Capability, 0, len(all))
	for _, c := range all {
		if Can(role, c) {
			out = append(out, c)
		}
	}
	return out
}

// ParseRole normalises a role string.  ok is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleCustomer, RoleCashier, RoleWaiter, RoleManager, RoleAdmin, RoleOwner:
		return r, true
	}
	return "", false
}

// IsStaff reports whether r is any non-customer role.
func (r Role) IsStaff() bool {
	for _, s := range staff {
		if s == r {
			return true
		}
	}
	return false
}
