package domain

import (
	"slices"
	"strings"
)

// Role is the coarse access level attached to every identity.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleUser     Role = "user"
)

// Roles lists every known role in ascending privilege order.
var Roles = []Role{RoleUser, RoleEmployee, RoleAdmin}

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleEmployee, RoleUser:
		return r, true
	}
	return "", false
}

// IsStaff reports whether the role sees every record regardless of owner.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Permission is a capability tag checked against the role table.
type Permission string

const (
	PermCreateUser Permission = "create_user"
	PermReadUser   Permission = "read_user"
	PermUpdateUser Permission = "update_user"
	PermDeleteUser Permission = "delete_user"

	PermCreatePet Permission = "create_pet"
	PermReadPet   Permission = "read_pet"
	PermUpdatePet Permission = "update_pet"
	PermDeletePet Permission = "delete_pet"

	PermCreateEmployee Permission = "create_employee"
	PermReadEmployee   Permission = "read_employee"
	PermUpdateEmployee Permission = "update_employee"
	PermDeleteEmployee Permission = "delete_employee"

	PermCreateService Permission = "create_service"
	PermReadService   Permission = "read_service"
	PermUpdateService Permission = "update_service"
	PermDeleteService Permission = "delete_service"

	PermCreateReservation Permission = "create_reservation"
	PermReadReservation   Permission = "read_reservation"
	PermUpdateReservation Permission = "update_reservation"
	PermDeleteReservation Permission = "delete_reservation"

	PermCreateMedicalHistory Permission = "create_medical_history"
	PermReadMedicalHistory   Permission = "read_medical_history"
	PermUpdateMedicalHistory Permission = "update_medical_history"
	PermDeleteMedicalHistory Permission = "delete_medical_history"

	PermCreateInvoice Permission = "create_invoice"
	PermReadInvoice   Permission = "read_invoice"
	PermUpdateInvoice Permission = "update_invoice"
	PermDeleteInvoice Permission = "delete_invoice"

	PermCreatePayment Permission = "create_payment"
	PermReadPayment   Permission = "read_payment"
	PermUpdatePayment Permission = "update_payment"
	PermDeletePayment Permission = "delete_payment"

	PermCreateAssignment Permission = "create_assignment"
	PermReadAssignment   Permission = "read_assignment"
	PermUpdateAssignment Permission = "update_assignment"
	PermDeleteAssignment Permission = "delete_assignment"

	PermCreateActivityLog Permission = "create_activity_log"
	PermViewLogs          Permission = "view_logs"

	PermManageRoles  Permission = "manage_roles"
	PermExportData   Permission = "export_data"
	PermSystemConfig Permission = "system_config"
)

// AllPermissions enumerates every capability the table knows about.
var AllPermissions = []Permission{
	PermCreateUser, PermReadUser, PermUpdateUser, PermDeleteUser,
	PermCreatePet, PermReadPet, PermUpdatePet, PermDeletePet,
	PermCreateEmployee, PermReadEmployee, PermUpdateEmployee, PermDeleteEmployee,
	PermCreateService, PermReadService, PermUpdateService, PermDeleteService,
	PermCreateReservation, PermReadReservation, PermUpdateReservation, PermDeleteReservation,
	PermCreateMedicalHistory, PermReadMedicalHistory, PermUpdateMedicalHistory, PermDeleteMedicalHistory,
	PermCreateInvoice, PermReadInvoice, PermUpdateInvoice, PermDeleteInvoice,
	PermCreatePayment, PermReadPayment, PermUpdatePayment, PermDeletePayment,
	PermCreateAssignment, PermReadAssignment, PermUpdateAssignment, PermDeleteAssignment,
	PermCreateActivityLog, PermViewLogs,
	PermManageRoles, PermExportData, PermSystemConfig,
}

type permissionSet map[Permission]struct{}

func newPermissionSet(perms ...Permission) permissionSet {
	s := make(permissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// rolePermissions is built once at package init and never mutated.
var rolePermissions = map[Role]permissionSet{
	RoleAdmin: newPermissionSet(AllPermissions...),
	RoleEmployee: newPermissionSet(
		PermReadUser,
		PermCreatePet, PermReadPet, PermUpdatePet,
		PermReadEmployee,
		PermReadService,
		PermCreateReservation, PermReadReservation, PermUpdateReservation,
		PermCreateMedicalHistory, PermReadMedicalHistory, PermUpdateMedicalHistory,
		PermCreateInvoice, PermReadInvoice,
		PermCreatePayment, PermReadPayment,
		PermReadAssignment,
		PermCreateActivityLog, PermViewLogs,
	),
	RoleUser: newPermissionSet(
		PermCreatePet, PermReadPet, PermUpdatePet, PermDeletePet,
		PermReadService,
		PermCreateReservation, PermReadReservation, PermUpdateReservation,
		PermReadMedicalHistory,
		PermReadInvoice,
		PermCreatePayment, PermReadPayment,
	),
}

// HasPermission reports whether role r holds p. Unknown roles hold nothing.
func HasPermission(r Role, p Permission) bool {
	_, ok := rolePermissions[r][p]
	return ok
}

// HasAnyPermission reports whether r holds at least one of perms.
func HasAnyPermission(r Role, perms ...Permission) bool {
	for _, p := range perms {
		if HasPermission(r, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether r holds every one of perms.
func HasAllPermissions(r Role, perms ...Permission) bool {
	for _, p := range perms {
		if !HasPermission(r, p) {
			return false
		}
	}
	return true
}

// Permissions returns a sorted copy of the permissions held by r.
func Permissions(r Role) []Permission {
	set := rolePermissions[r]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// AvailableRoutes reports which UI sections the role can reach. The keys are
// stable and every key is always present.
func AvailableRoutes(r Role) map[string]bool {
	return map[string]bool{
		"dashboard":       HasPermission(r, PermReadPet) || HasPermission(r, PermReadService),
		"users":           HasPermission(r, PermReadUser),
		"employees":       HasPermission(r, PermReadEmployee),
		"pets":            HasPermission(r, PermReadPet),
		"reservations":    HasPermission(r, PermReadReservation),
		"services":        HasPermission(r, PermReadService),
		"medical_history": HasPermission(r, PermReadMedicalHistory),
		"invoices":        HasPermission(r, PermReadInvoice),
		"payments":        HasPermission(r, PermReadPayment),
		"exports":         HasPermission(r, PermExportData),
		"admin":           HasPermission(r, PermManageRoles),
		"logs":            HasPermission(r, PermViewLogs),
		"settings":        HasPermission(r, PermSystemConfig),
	}
}
