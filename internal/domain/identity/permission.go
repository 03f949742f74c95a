package identity

import (
	"sort"
	"strings"
)

// Permission is a "resource:action" string. "*" grants everything and
// "resource:*" grants every action on one resource.
type Permission string

// Wildcard grants every permission
const Wildcard Permission = "*"

// Permission catalogue
const (
	PermTenantRead    Permission = "tenant:read"
	PermTenantUpdate  Permission = "tenant:update"
	PermTenantDelete  Permission = "tenant:delete"
	PermMemberRead    Permission = "member:read"
	PermMemberManage  Permission = "member:manage"
	PermRoleRead      Permission = "role:read"
	PermRoleManage    Permission = "role:manage"
	PermTemplateRead  Permission = "template:read"
	PermTemplateWrite Permission = "template:write"
	PermPipelineRead  Permission = "pipeline:read"
	PermPipelineWrite Permission = "pipeline:write"
	PermFileRead      Permission = "file:read"
	PermFileWrite     Permission = "file:write"
	PermAuditRead     Permission = "audit:read"
)

// Catalogue lists every concrete permission
var Catalogue = []Permission{
	PermTenantRead, PermTenantUpdate, PermTenantDelete,
	PermMemberRead, PermMemberManage,
	PermRoleRead, PermRoleManage,
	PermTemplateRead, PermTemplateWrite,
	PermPipelineRead, PermPipelineWrite,
	PermFileRead, PermFileWrite,
	PermAuditRead,
}

// Resource returns the part before the colon
func (p Permission) Resource() string {
	resource, _, _ := strings.Cut(string(p), ":")
	return resource
}

// Grants reports whether holding p allows required
func (p Permission) Grants(required Permission) bool {
	if p == Wildcard || p == required {
		return true
	}
	resource, action, ok := strings.Cut(string(p), ":")
	return ok && action == "*" && resource == required.Resource()
}

// IsKnown reports whether p is a catalogue permission or a wildcard over a
// known resource
func (p Permission) IsKnown() bool {
	if p == Wildcard {
		return true
	}
	for _, c := range Catalogue {
		if c == p || (strings.HasSuffix(string(p), ":*") && c.Resource() == p.Resource()) {
			return true
		}
	}
	return false
}

// NormalizePermissions trims, dedupes and sorts a permission list, and
// returns the entries that are not known.
func NormalizePermissions(raw []string) ([]string, []string) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	var unknown []string
	for _, s := range raw {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if !Permission(s).IsKnown() {
			unknown = append(unknown, s)
			continue
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, unknown
}
