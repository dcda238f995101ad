package authz

import (
	"strings"
)

const (
	rolePrefix       = "role"
	subjectSeparator = ":"
)

// Capability is an (object, action) pair granted to roles by policy.
type Capability struct {
	Object string
	Action string
}

func (c Capability) String() string {
	return c.Object + subjectSeparator + c.Action
}

var (
	// CapManageSubtree lets a role see the whole subtree below its home node.
	CapManageSubtree = Capability{Object: "establishment", Action: "manage_subtree"}
	// CapAssignEstablishment lets a role assign actors to nodes inside its subtree.
	CapAssignEstablishment = Capability{Object: "actor", Action: "assign_establishment"}
	CapCreateEstablishment = Capability{Object: "establishment", Action: "create"}
	CapValidateMission     = Capability{Object: "mission", Action: "validate"}
)

// Request encapsulates all parameters required to evaluate a Casbin rule.
type Request struct {
	Subject string
	Object  string
	Action  string
}

func NewRequest(subject, object, action string) Request {
	return Request{
		Subject: subject,
		Object:  strings.ToLower(strings.TrimSpace(object)),
		Action:  strings.ToLower(strings.TrimSpace(action)),
	}
}

// SubjectForRole returns the canonical identifier for a role-based subject.
func SubjectForRole(role Role) string {
	slug := strings.ToLower(strings.TrimSpace(string(role)))
	if strings.HasPrefix(slug, rolePrefix+subjectSeparator) {
		return slug
	}
	return rolePrefix + subjectSeparator + slug
}
