// Package identity implements the Identity Resolver: IP -> employee or
// infrastructure profile lookup, and a CIDR-first department resolver.
//
// Grounded on original_source/pkg/data/idp_mock.py's static employee
// directory, infra directory, and SUBNET_DEPARTMENTS CIDR table,
// reimplemented as Go static maps the way config.Defaults() builds
// static configuration structs. In production this would sync from
// AD/Okta/Workspace via SCIM; here it is an in-memory O(1)/O(k) lookup.
package identity

import "net"

// RiskTier grades how much damage an account could do if compromised.
type RiskTier string

const (
	RiskStandard   RiskTier = "standard"
	RiskElevated   RiskTier = "elevated"
	RiskPrivileged RiskTier = "privileged"
)

// Profile is an immutable employee identity record.
type Profile struct {
	UserID     string   `json:"user_id"`
	UserName   string   `json:"user_name"`
	Department string   `json:"department"`
	Role       string   `json:"role"`
	Email      string   `json:"email"`
	RiskTier   RiskTier `json:"risk_tier"`
}

// subnetDept is one CIDR -> department entry, evaluated in order.
type subnetDept struct {
	net  *net.IPNet
	dept string
}

// Resolver answers identity and department lookups for internal IPs.
// Its tables are static for the lifetime of the process; Load replaces
// them wholesale (e.g. from a YAML data file).
type Resolver struct {
	employees map[string]Profile
	infra     map[string]string
	subnets   []subnetDept
}

// New returns a Resolver seeded with the built-in demo directory,
// mirroring original_source/pkg/data/idp_mock.py field-for-field.
func New() *Resolver {
	r := &Resolver{
		employees: map[string]Profile{
			"192.168.1.10": {UserID: "EMP-001", UserName: "Ravi Sharma", Department: "Engineering", Role: "Senior Developer", Email: "ravi.sharma@company.com", RiskTier: RiskStandard},
			"192.168.1.11": {UserID: "EMP-002", UserName: "Priya Patel", Department: "Design", Role: "UI/UX Designer", Email: "priya.patel@company.com", RiskTier: RiskStandard},
			"192.168.1.12": {UserID: "EMP-003", UserName: "Arjun Mehta", Department: "Management", Role: "Engineering Manager", Email: "arjun.mehta@company.com", RiskTier: RiskPrivileged},
			"192.168.1.13": {UserID: "EMP-004", UserName: "Meera Kapoor", Department: "Data Science", Role: "ML Engineer", Email: "meera.kapoor@company.com", RiskTier: RiskElevated},
			"192.168.1.14": {UserID: "EMP-005", UserName: "Kiran Desai", Department: "Engineering", Role: "Software Intern", Email: "kiran.desai@company.com", RiskTier: RiskStandard},
		},
		infra: map[string]string{
			"192.168.1.1":   "Gateway Router",
			"192.168.1.100": "File Server",
			"192.168.1.101": "Git Server",
			"192.168.1.102": "Jira Server",
			"192.168.1.200": "Database Server",
		},
	}
	for cidr, dept := range map[string]string{
		"192.168.1.0/26":   "Engineering",
		"192.168.1.64/26":  "Design & Product",
		"192.168.1.128/26": "Data Science",
		"192.168.1.192/26": "Management & Ops",
	} {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		r.subnets = append(r.subnets, subnetDept{net: n, dept: dept})
	}
	return r
}

// Resolve returns the employee profile for ip, if any.
func (r *Resolver) Resolve(ip string) (Profile, bool) {
	p, ok := r.employees[ip]
	return p, ok
}

// ResolveInfra returns the infrastructure label for ip, if any.
func (r *Resolver) ResolveInfra(ip string) (string, bool) {
	label, ok := r.infra[ip]
	return label, ok
}

// DepartmentForIP consults the CIDR->department table first, falling
// back to a per-employee lookup when no subnet matches.
func (r *Resolver) DepartmentForIP(ip string) (string, bool) {
	addr := net.ParseIP(ip)
	if addr != nil {
		for _, sd := range r.subnets {
			if sd.net.Contains(addr) {
				return sd.dept, true
			}
		}
	}
	if p, ok := r.employees[ip]; ok {
		return p.Department, true
	}
	return "", false
}

// LoadEmployees replaces the employee directory wholesale, e.g. from a
// YAML-decoded data file. Infra and subnet tables are left untouched.
func (r *Resolver) LoadEmployees(employees map[string]Profile) {
	r.employees = employees
}

// LoadInfra replaces the infrastructure directory wholesale.
func (r *Resolver) LoadInfra(infra map[string]string) {
	r.infra = infra
}
