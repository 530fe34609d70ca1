package parser

import (
	"fmt"
	"strings"
)

// stripComment drops everything from the first '#' not preceded by '\'.
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != '#' {
			continue
		}
		if i == 0 || line[i-1] != '\\' {
			return line[:i]
		}
	}
	return line
}

func isNameChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '.', c == '-', c == '/':
		return true
	}
	return false
}

func isSeparator(c byte) bool {
	return c == ' ' || c == '\t'
}

// ruleColon validates a rule line and returns the position of its single
// colon. reason is set when the line is rejected.
func ruleColon(line string) (colon int, reason string) {
	colon = -1
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == ':':
			if colon >= 0 {
				return -1, "more than one ':' in rule line"
			}
			colon = i
		case isNameChar(c), isSeparator(c):
		default:
			return -1, fmt.Sprintf("invalid character %q in target or dependency", c)
		}
	}
	if colon < 0 {
		return -1, "line is neither a rule nor a recipe"
	}
	return colon, ""
}

// appendWords appends the separator-delimited words of s to dst.
func appendWords(dst []string, s string) []string {
	start := -1
	for i := 0; i < len(s); i++ {
		if isSeparator(s[i]) {
			if start >= 0 {
				dst = append(dst, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		dst = append(dst, s[start:])
	}
	return dst
}

// splitAssignment recognizes IDENT=VALUE. IDENT starts with a letter or '_'
// and continues with letters, digits or '_'. VALUE is everything after '='.
func splitAssignment(line string) (name, value string, ok bool) {
	eq := strings.IndexByte(line, '=')
	if eq <= 0 {
		return "", "", false
	}
	for i := 0; i < eq; i++ {
		c := line[i]
		letter := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
		digit := c >= '0' && c <= '9'
		if !letter && !(digit && i > 0) {
			return "", "", false
		}
	}
	return line[:eq], line[eq+1:], true
}
