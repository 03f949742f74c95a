package identity

import (
	"strings"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// System role names seeded into every tenant
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Role is a named set of permissions within a tenant
type Role struct {
	shared.TenantAggregateRoot
	Name        string
	Description string
	Allowed     []string
	System      bool
}

// NewRole creates a custom role
func NewRole(tenantID uuid.UUID, name, description string, allowed []string) (*Role, error) {
	r := &Role{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, uuid.Nil),
	}
	if err := r.apply(name, description, allowed); err != nil {
		return nil, err
	}
	return r, nil
}

// Update changes a custom role. System roles are immutable.
func (r *Role) Update(name, description string, allowed []string) error {
	if r.System {
		return shared.NewDomainError("SYSTEM_ROLE", "System roles cannot be modified")
	}
	if err := r.apply(name, description, allowed); err != nil {
		return err
	}
	r.Touch()
	return nil
}

// CanDelete reports whether the role may be deleted
func (r *Role) CanDelete() error {
	if r.System {
		return shared.NewDomainError("SYSTEM_ROLE", "System roles cannot be deleted")
	}
	return nil
}

// Can reports whether the role grants required
func (r *Role) Can(required Permission) bool {
	for _, p := range r.Allowed {
		if Permission(p).Grants(required) {
			return true
		}
	}
	return false
}

// Exceeding returns the entries of allowed that grant a catalogue
// permission this role does not hold. Wildcards are expanded against the
// catalogue, so "*" is only covered by a role holding every permission.
func (r *Role) Exceeding(allowed []string) []string {
	var out []string
	for _, raw := range allowed {
		p := Permission(strings.ToLower(strings.TrimSpace(raw)))
		if p == "" {
			continue
		}
		for _, c := range Catalogue {
			if p.Grants(c) && !r.Can(c) {
				out = append(out, string(p))
				break
			}
		}
	}
	return out
}

// Covers reports whether every permission in allowed is held by this role
func (r *Role) Covers(allowed []string) bool {
	return len(r.Exceeding(allowed)) == 0
}

// IsOwner reports whether this is the tenant's owner role
func (r *Role) IsOwner() bool {
	return r.System && r.Name == RoleOwner
}

func (r *Role) apply(name, description string, allowed []string) error {
	verr := &shared.ValidationError{}
	name = strings.ToLower(strings.TrimSpace(name))
	switch {
	case name == "":
		verr.Add("name", "Name is required")
	case len(name) > 50:
		verr.Add("name", "Name cannot exceed 50 characters")
	case !r.System && isSystemRoleName(name):
		verr.Add("name", "Name is reserved")
	}
	if len(description) > 500 {
		verr.Add("description", "Description cannot exceed 500 characters")
	}
	perms, unknown := NormalizePermissions(allowed)
	if len(unknown) > 0 {
		verr.Add("allowed", "Unknown permissions: "+strings.Join(unknown, ", "))
	}
	if verr.HasErrors() {
		return verr
	}
	r.Name = name
	r.Description = strings.TrimSpace(description)
	r.Allowed = perms
	return nil
}

// SystemRoles builds the default roles for a new tenant
func SystemRoles(tenantID uuid.UUID) []*Role {
	readAll := make([]string, 0, len(Catalogue))
	for _, p := range Catalogue {
		if strings.HasSuffix(string(p), ":read") {
			readAll = append(readAll, string(p))
		}
	}
	adminPerms := []string{"member:*", "role:*", "template:*", "pipeline:*", "file:*", "audit:*",
		string(PermTenantRead), string(PermTenantUpdate)}
	memberPerms := append(append([]string{}, readAll...),
		string(PermTemplateWrite), string(PermPipelineWrite), string(PermFileWrite))

	specs := []struct {
		name, desc string
		allowed    []string
	}{
		{RoleOwner, "Full access to the workspace", []string{string(Wildcard)}},
		{RoleAdmin, "Manage members, roles and content", adminPerms},
		{RoleMember, "Create and edit content", memberPerms},
		{RoleViewer, "Read-only access", readAll},
	}

	roles := make([]*Role, 0, len(specs))
	for _, s := range specs {
		perms, _ := NormalizePermissions(s.allowed)
		roles = append(roles, &Role{
			TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, uuid.Nil),
			Name:                s.name,
			Description:         s.desc,
			Allowed:             perms,
			System:              true,
		})
	}
	return roles
}

func isSystemRoleName(name string) bool {
	switch name {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}
