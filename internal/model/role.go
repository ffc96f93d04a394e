package model

import "fmt"

// Role is the closed set of actor roles in the certification program.
type Role int

const (
	RoleAdmin Role = iota
	RoleCountryTechnician
	RoleAdvisor
	RoleAuditor
	RoleCommittee
	RoleConsultingFirm
	RoleAuditFirm
	RoleCompany
)

var roleNames = map[Role]string{
	RoleAdmin:             "admin",
	RoleCountryTechnician: "country_technician",
	RoleAdvisor:           "advisor",
	RoleAuditor:           "auditor",
	RoleCommittee:         "committee",
	RoleConsultingFirm:    "consulting_firm",
	RoleAuditFirm:         "audit_firm",
	RoleCompany:           "company",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Internal reports whether the role belongs to program staff rather
// than a certified company.
func (r Role) Internal() bool {
	return r != RoleCompany
}

// ParseRole resolves a stored role name.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// CanManageProcesses reports whether the role may drive administrative
// transitions (auditor assignment, reopening, direct status changes).
func (r Role) CanManageProcesses() bool {
	return r == RoleAdmin || r == RoleCountryTechnician
}
