package permission

import "github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"

// Permission identifies a family-scoped capability
type Permission string

const (
	ViewFinance       Permission = "view_finance"
	CreateFinance     Permission = "create_finance"
	EditFinance       Permission = "edit_finance"
	DeleteFinance     Permission = "delete_finance"
	ManageMembers     Permission = "manage_members"
	ManageInvitations Permission = "manage_invitations"
	AssignPermissions Permission = "assign_permissions"
)

// FlagValue maps a permission to the corresponding capability flag on a
// membership. An unrecognized permission maps to false, which denies.
func FlagValue(m *models.FamilyMember, p Permission) bool {
	switch p {
	case ViewFinance:
		return m.CanViewFinance
	case CreateFinance:
		return m.CanCreateFinance
	case EditFinance:
		return m.CanEditFinance
	case DeleteFinance:
		return m.CanDeleteFinance
	case ManageMembers:
		return m.CanManageMembers
	case ManageInvitations:
		return m.CanManageInvitations
	case AssignPermissions:
		return m.CanAssignPermissions
	default:
		return false
	}
}
