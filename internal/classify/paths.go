package classify

import "strings"

// AdminPaths recognizes administrative and platform-internal request paths
type AdminPaths struct {
	prefixes []string
}

func NewAdminPaths(prefixes []string) *AdminPaths {
	return &AdminPaths{prefixes: append([]string(nil), prefixes...)}
}

// IsAdminTech is true if path starts with any configured prefix
func (a *AdminPaths) IsAdminTech(path string) bool {
	if a == nil || path == "" {
		return false
	}
	for _, p := range a.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// IsContent is always the negation of IsAdminTech
func (a *AdminPaths) IsContent(path string) bool {
	return !a.IsAdminTech(path)
}
