package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrOrgNotFound is returned for a missing organisation.
	ErrOrgNotFound = errors.New("organization not found")
	// ErrMembershipNotFound is returned when the target user is not a member.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrOrgRoleInvalid rejects roles outside the ladder.
	ErrOrgRoleInvalid = errors.New("invalid organization role")
	// ErrOrgForbidden is returned when the caller's role is too weak.
	ErrOrgForbidden = errors.New("insufficient organization role")
	// ErrLastOrgAdmin guards the last remaining org_admin against demotion
	// or removal by anyone but a super admin.
	ErrLastOrgAdmin = errors.New("organization must keep at least one org_admin")
)

var orgRoleRank = map[string]int{
	db.OrgRoleMember:      1,
	db.OrgRoleTeamManager: 2,
	db.OrgRoleAdmin:       3,
}

// OrgService manages organisations and the member < team_manager < org_admin
// role ladder. A super admin user bypasses every role check here; nothing in
// this service grants access to an individual member's experiments.
type OrgService struct {
	db *gorm.DB
}

// OrgOverview is the anonymized aggregate exposed to org viewers. It carries
// counts only, never per-member data.
type OrgOverview struct {
	OrgID           uint   `json:"org_id"`
	Name            string `json:"name"`
	MemberCount     int64  `json:"member_count"`
	ExperimentCount int64  `json:"experiment_count"`
	CheckInCount    int64  `json:"check_in_count"`
}

// NewOrgService constructs an OrgService.
func NewOrgService(gdb *gorm.DB) *OrgService {
	return &OrgService{db: gdb}
}

// Create stores an organisation and makes the creator its first org_admin.
func (s *OrgService) Create(name, slug string, creator db.User) (*db.Organization, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(strings.ToLower(slug))
	if name == "" || slug == "" {
		return nil, fmt.Errorf("organization name and slug are required")
	}

	org := db.Organization{Name: name, Slug: slug}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return fmt.Errorf("create organization: %w", err)
		}
		membership := db.OrgMembership{OrgID: org.ID, UserID: creator.ID, Role: db.OrgRoleAdmin}
		if err := tx.Create(&membership).Error; err != nil {
			return fmt.Errorf("create membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Get loads an organisation by id.
func (s *OrgService) Get(orgID uint) (*db.Organization, error) {
	var org db.Organization
	if err := s.db.First(&org, orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &org, nil
}

// RoleOf returns the caller's role within the organisation.
func (s *OrgService) RoleOf(orgID, userID uint) (string, error) {
	var membership db.OrgMembership
	if err := s.db.Where("org_id = ? AND user_id = ?", orgID, userID).
		First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrMembershipNotFound
		}
		return "", fmt.Errorf("get membership: %w", err)
	}
	return membership.Role, nil
}

// RequireRole verifies the caller holds at least minRole in the
// organisation. Super admins always pass.
func (s *OrgService) RequireRole(orgID uint, caller db.User, minRole string) error {
	if caller.SuperAdmin {
		return nil
	}

	required, ok := orgRoleRank[minRole]
	if !ok {
		return ErrOrgRoleInvalid
	}

	role, err := s.RoleOf(orgID, caller.ID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return ErrOrgForbidden
		}
		return err
	}
	if orgRoleRank[role] < required {
		return ErrOrgForbidden
	}
	return nil
}

// Members lists the organisation's memberships with user records attached.
func (s *OrgService) Members(orgID uint) ([]db.OrgMembership, error) {
	var members []db.OrgMembership
	if err := s.db.Preload("User").Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// AddMember attaches a user to the organisation with the given role.
func (s *OrgService) AddMember(orgID, userID uint, role string) (*db.OrgMembership, error) {
	if _, ok := orgRoleRank[role]; !ok {
		return nil, ErrOrgRoleInvalid
	}

	membership := db.OrgMembership{OrgID: orgID, UserID: userID, Role: role}
	if err := s.db.Create(&membership).Error; err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return &membership, nil
}

// UpdateRole changes a member's role. Demoting the last org_admin is only
// allowed for super admins, so a non-super-admin can never leave an
// organisation without any admin.
func (s *OrgService) UpdateRole(orgID uint, caller db.User, targetUserID uint, newRole string) (*db.OrgMembership, error) {
	if _, ok := orgRoleRank[newRole]; !ok {
		return nil, ErrOrgRoleInvalid
	}
	if err := s.RequireRole(orgID, caller, db.OrgRoleAdmin); err != nil {
		return nil, err
	}

	var membership db.OrgMembership
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("org_id = ? AND user_id = ?", orgID, targetUserID).
			First(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMembershipNotFound
			}
			return fmt.Errorf("get membership: %w", err)
		}

		if membership.Role == db.OrgRoleAdmin && newRole != db.OrgRoleAdmin && !caller.SuperAdmin {
			count, err := s.adminCount(tx, orgID)
			if err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastOrgAdmin
			}
		}

		membership.Role = newRole
		if err := tx.Save(&membership).Error; err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// RemoveMember detaches a user from the organisation under the same
// last-admin guard as UpdateRole.
func (s *OrgService) RemoveMember(orgID uint, caller db.User, targetUserID uint) error {
	if err := s.RequireRole(orgID, caller, db.OrgRoleAdmin); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var membership db.OrgMembership
		if err := tx.Where("org_id = ? AND user_id = ?", orgID, targetUserID).
			First(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMembershipNotFound
			}
			return fmt.Errorf("get membership: %w", err)
		}

		if membership.Role == db.OrgRoleAdmin && !caller.SuperAdmin {
			count, err := s.adminCount(tx, orgID)
			if err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastOrgAdmin
			}
		}

		if err := tx.Unscoped().Delete(&membership).Error; err != nil {
			return fmt.Errorf("remove member: %w", err)
		}
		return nil
	})
}

// Overview computes the anonymized aggregate for an organisation.
func (s *OrgService) Overview(orgID uint) (*OrgOverview, error) {
	org, err := s.Get(orgID)
	if err != nil {
		return nil, err
	}

	overview := &OrgOverview{OrgID: org.ID, Name: org.Name}

	if err := s.db.Model(&db.OrgMembership{}).Where("org_id = ?", orgID).
		Count(&overview.MemberCount).Error; err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	if err := s.db.Model(&db.Experiment{}).Where("org_id = ?", orgID).
		Count(&overview.ExperimentCount).Error; err != nil {
		return nil, fmt.Errorf("count experiments: %w", err)
	}
	if err := s.db.Model(&db.CheckIn{}).
		Where("experiment_id IN (?)",
			s.db.Model(&db.Experiment{}).Select("id").Where("org_id = ?", orgID)).
		Count(&overview.CheckInCount).Error; err != nil {
		return nil, fmt.Errorf("count check-ins: %w", err)
	}

	return overview, nil
}

func (s *OrgService) adminCount(tx *gorm.DB, orgID uint) (int64, error) {
	var count int64
	if err := tx.Model(&db.OrgMembership{}).
		Where("org_id = ? AND role = ?", orgID, db.OrgRoleAdmin).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}
