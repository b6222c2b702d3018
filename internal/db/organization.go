package db

import "gorm.io/gorm"

// Organisation roles, ordered weakest to strongest.
const (
	OrgRoleMember      = "member"
	OrgRoleTeamManager = "team_manager"
	OrgRoleAdmin       = "org_admin"
)

// Organization groups users for aggregate-only reporting. Membership never
// grants access to an individual member's experiments.
type Organization struct {
	gorm.Model
	Name string `gorm:"not null"`
	Slug string `gorm:"size:100;uniqueIndex;not null"`
}

// OrgMembership links a user to an organisation with a role.
type OrgMembership struct {
	gorm.Model
	OrgID  uint `gorm:"index;index:idx_org_member,unique;not null"`
	UserID uint `gorm:"index;index:idx_org_member,unique;not null"`
	User   User
	Role   string `gorm:"size:20;default:member"`
}

// TableName keeps the unique index name stable on org_id + user_id.
func (OrgMembership) TableName() string {
	return "org_memberships"
}
