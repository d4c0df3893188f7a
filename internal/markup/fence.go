package markup

import "strings"

const fenceMarker = "```"

func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), fenceMarker)
}

// mapOutsideFences applies fn to every line that is not part of a fenced code
// block. Fence lines themselves are passed through untouched.
func mapOutsideFences(content string, fn func(line string) string) string {
	lines := strings.Split(content, "\n")
	inCode := false
	for i, line := range lines {
		if isFence(line) {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		lines[i] = fn(line)
	}
	return strings.Join(lines, "\n")
}

// replaceUnescaped replaces every occurrence of old in s that is not already
// preceded by a backslash.
func replaceUnescaped(s string, old byte, repl string) string {
	if strings.IndexByte(s, old) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == old && (i == 0 || s[i-1] != '\\') {
			b.WriteString(repl)
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
