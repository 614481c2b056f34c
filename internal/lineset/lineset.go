// Package lineset merges managed literal lines into line-oriented
// configuration files. Entries are matched as whole trimmed lines, never as
// substrings, so an entry that happens to be a prefix of an existing line is
// still treated as missing.
package lineset

import "strings"

// Contains reports whether entry is present in content as a whole line.
func Contains(content string, entry string) bool {
	entry = strings.TrimSpace(entry)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == entry {
			return true
		}
	}
	return false
}

// Missing returns the entries not present in content, preserving the order
// in which they were given.
func Missing(content string, entries []string) []string {
	present := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		present[strings.TrimSpace(line)] = struct{}{}
	}
	var missing []string
	for _, entry := range entries {
		if _, ok := present[strings.TrimSpace(entry)]; !ok {
			missing = append(missing, entry)
		}
	}
	return missing
}

// Merge returns content with every entry present exactly once as a whole
// line, appending missing entries at the end in the order given. When section
// is non-empty and not yet present, it is written as a comment line before
// the first appended entry. The second return value reports whether content
// changed.
func Merge(content string, section string, entries []string) (string, bool) {
	missing := Missing(content, entries)
	if len(missing) == 0 {
		return content, false
	}

	var b strings.Builder
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	if section != "" && !Contains(content, section) {
		if content != "" {
			b.WriteString("\n")
		}
		b.WriteString(section)
		b.WriteString("\n")
	}
	for _, entry := range missing {
		b.WriteString(entry)
		b.WriteString("\n")
	}
	return b.String(), true
}
