// Package authz holds the view of the current user that visibility checks
// consume. Granting permissions is somebody else's job; this package only
// answers "does the user satisfy this requirement".
package authz

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SuperAdminRole is the role name that FromClaims maps onto IsSuperAdmin.
const SuperAdminRole = "super-admin"

// Permissions describes the current user.
type Permissions struct {
	UserPermissions []string `json:"userPermissions" yaml:"userPermissions"`
	IsSuperAdmin    bool     `json:"isSuperAdmin" yaml:"isSuperAdmin"`
	// Attributes are exposed to declarative predicates as `user`.
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Has reports whether the user holds perm, or is a super-admin.
func (p Permissions) Has(perm string) bool {
	if p.IsSuperAdmin {
		return true
	}
	for _, held := range p.UserPermissions {
		if held == perm {
			return true
		}
	}
	return false
}

// Allows reports whether the requirement is met: no requirement, a
// super-admin, or any one of the required permissions held.
func (p Permissions) Allows(req Requirement) bool {
	if len(req) == 0 || p.IsSuperAdmin {
		return true
	}
	for _, perm := range req {
		if p.Has(perm) {
			return true
		}
	}
	return false
}

// Map exposes the user to expression predicates.
func (p Permissions) Map() map[string]any {
	perms := make([]any, len(p.UserPermissions))
	for i, s := range p.UserPermissions {
		perms[i] = s
	}
	out := map[string]any{
		"permissions":  perms,
		"isSuperAdmin": p.IsSuperAdmin,
	}
	for k, v := range p.Attributes {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}

// Requirement is a permission requirement: nil, one permission, or a list of
// alternatives. It decodes from either a string or a list.
type Requirement []string

// Require builds a requirement from alternatives, dropping blanks.
func Require(perms ...string) Requirement {
	var out Requirement
	for _, p := range perms {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseRequirement accepts the shapes a decoded document can carry.
func ParseRequirement(v any) (Requirement, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return Require(t), nil
	case []string:
		return Require(t...), nil
	case []any:
		perms := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("permission must be a string, got %T", item)
			}
			perms = append(perms, s)
		}
		return Require(perms...), nil
	case Requirement:
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported permission requirement %T", v)
	}
}

// UnmarshalJSON accepts a string or a list of strings.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	req, err := ParseRequirement(raw)
	if err != nil {
		return err
	}
	*r = req
	return nil
}

// UnmarshalYAML accepts a string or a list of strings.
func (r *Requirement) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	req, err := ParseRequirement(raw)
	if err != nil {
		return err
	}
	*r = req
	return nil
}

// FromClaims builds Permissions from a decoded token payload. It reads
// "permissions" (list) or "scope" (space separated), and treats
// "is_super_admin"/"isSuperAdmin" or a "super-admin" entry in "roles" as
// super-admin.
func FromClaims(claims map[string]any) Permissions {
	var p Permissions
	switch perms := claims["permissions"].(type) {
	case []any:
		for _, item := range perms {
			if s, ok := item.(string); ok {
				p.UserPermissions = append(p.UserPermissions, s)
			}
		}
	case string:
		p.UserPermissions = strings.Fields(perms)
	}
	if scope, ok := claims["scope"].(string); ok {
		p.UserPermissions = append(p.UserPermissions, strings.Fields(scope)...)
	}
	for _, key := range []string{"is_super_admin", "isSuperAdmin"} {
		if b, ok := claims[key].(bool); ok && b {
			p.IsSuperAdmin = true
		}
	}
	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok && s == SuperAdminRole {
				p.IsSuperAdmin = true
			}
		}
	}
	attrs := map[string]any{}
	for _, key := range []string{"sub", "name", "email", "tenant"} {
		if v, ok := claims[key]; ok {
			attrs[key] = v
		}
	}
	if len(attrs) > 0 {
		p.Attributes = attrs
	}
	return p
}
