package media

import "strings"

// Policy decides which mime types the pipeline accepts. The system list is
// what the deployment supports at all; the user list, when non-empty, narrows
// it further for the current caller.
type Policy struct {
	systemAllowed map[string]struct{}
	userAllowed   map[string]struct{}
}

// NewPolicy builds a Policy from the configured allow-lists.
func NewPolicy(systemAllowed, userAllowed []string) *Policy {
	policy := &Policy{
		systemAllowed: make(map[string]struct{}, len(systemAllowed)),
	}
	for _, mime := range systemAllowed {
		policy.systemAllowed[normalizeMime(mime)] = struct{}{}
	}
	if len(userAllowed) > 0 {
		policy.userAllowed = make(map[string]struct{}, len(userAllowed))
		for _, mime := range userAllowed {
			policy.userAllowed[normalizeMime(mime)] = struct{}{}
		}
	}
	return policy
}

// SystemAllows reports whether the deployment supports the mime type at all.
func (p *Policy) SystemAllows(mimeType string) bool {
	if len(p.systemAllowed) == 0 {
		return false
	}
	_, ok := p.systemAllowed[normalizeMime(mimeType)]
	return ok
}

// UserAllows reports whether the current user may upload the mime type.
// An unset user list means every system-supported type is allowed.
func (p *Policy) UserAllows(mimeType string) bool {
	if p.userAllowed == nil {
		return true
	}
	_, ok := p.userAllowed[normalizeMime(mimeType)]
	return ok
}

func normalizeMime(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
}
