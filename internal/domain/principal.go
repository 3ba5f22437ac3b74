package domain

// Role is the closed set of principal roles issued by the identity provider.
type Role string

const (
	RoleUser    Role = "user"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

type Capability string

const (
	CapCreateInquiry    Capability = "inquiry:create"
	CapRespondAsCompany Capability = "inquiry:respond"
	CapRunMaintenance   Capability = "inquiry:maintenance"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleUser: {
		CapCreateInquiry: true,
	},
	RoleCompany: {
		CapRespondAsCompany: true,
	},
	RoleAdmin: {
		CapCreateInquiry:    true,
		CapRespondAsCompany: true,
		CapRunMaintenance:   true,
	},
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleCapabilities[r]
	return r, ok
}

func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

// Principal is the authenticated caller.
type Principal struct {
	UserID    int64  `json:"user_id"`
	CompanyID *int64 `json:"company_id,omitempty"`
	Role      Role   `json:"role"`
}

// ActingCompanyID returns the company the principal may act for, if any.
func (p Principal) ActingCompanyID() *int64 {
	if p.CompanyID == nil || !p.Role.Can(CapRespondAsCompany) {
		return nil
	}
	return p.CompanyID
}
