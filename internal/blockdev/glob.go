package blockdev

import "strings"

// HasGlobMeta reports whether the argument contains shell-style glob
// metacharacters and should be expanded against the enumerator's listing
// rather than treated as a literal device name.
func HasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// GlobMatch matches a device name against an anchored shell-style pattern.
// `*` matches any run of characters, `?` matches exactly one. The matcher
// is deliberately self-contained so target resolution stays deterministic
// and testable without touching the host filesystem.
func GlobMatch(pattern, name string) bool {
	return globMatch(pattern, name)
}

func globMatch(pattern, name string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			// Collapse consecutive stars, then try every split point.
			for len(pattern) > 0 && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if globMatch(pattern, name[i:]) {
					return true
				}
			}
			return false
		case '?':
			if name == "" {
				return false
			}
			pattern, name = pattern[1:], name[1:]
		default:
			if name == "" || pattern[0] != name[0] {
				return false
			}
			pattern, name = pattern[1:], name[1:]
		}
	}
	return name == ""
}
