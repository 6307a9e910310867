// Package bonename turns bone names of different rig families into comparable canonical keys.
package bonename

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

type Side int8

const (
	Center Side = iota
	Left
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return ""
}

func (s Side) Mirror() Side {
	switch s {
	case Left:
		return Right
	case Right:
		return Left
	}
	return Center
}

// Key identifies a bone by body role and side, independent of naming scheme.
type Key struct {
	Side Side
	Role string
}

func (k Key) String() string {
	if k.Side == Center {
		return k.Role
	}
	return k.Side.String() + ":" + k.Role
}

func (k Key) IsZero() bool { return k.Role == "" }

var folder = cases.Fold()

func isSeparator(r rune) bool {
	switch r {
	case '_', '-', ' ', '.', ':', '|', '/', '\t':
		return true
	}
	return false
}

// StripNamespace drops everything up to the last ':' or '|' ("mixamorig:Hips", "Armature|Hips").
func StripNamespace(name string) string {
	if i := strings.LastIndexAny(name, ":|"); i >= 0 && i+1 < len(name) {
		return name[i+1:]
	}
	return name
}

// Normalize lowercases name, strips a namespace and removes separators.
func Normalize(name string) string {
	name = norm.NFKC.String(name)
	name = StripNamespace(name)
	var b strings.Builder
	for _, r := range name {
		if isSeparator(r) {
			continue
		}
		b.WriteRune(r)
	}
	return folder.String(b.String())
}

// Tokens splits name on separators, camelCase humps and letter/digit borders.
// Tokens are case folded. The namespace is removed first.
func Tokens(name string) []string {
	name = StripNamespace(norm.NFKC.String(name))
	runes := []rune(name)

	tokens := make([]string, 0, 4)
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			tokens = append(tokens, folder.String(string(runes[start:end])))
		}
		start = -1
	}

	for i, r := range runes {
		if isSeparator(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		switch {
		case unicode.IsDigit(r) != unicode.IsDigit(prev):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// "HTTPServer" -> "http", "server"
			flush(i)
			start = i
		}
	}
	flush(len(runes))
	return tokens
}

var rigPrefixTokens = map[string]bool{
	"mixamorig": true,
	"bip":       true,
	"biped":     true,
	"def":       true,
	"cc":        true,
	"base":      true,
	"rig":       true,
	"org":       true,
}

func sideOf(token string) Side {
	switch token {
	case "l", "left", "lft":
		return Left
	case "r", "right", "rgt":
		return Right
	}
	return Center
}

func trimNumber(token string) string {
	if n, err := strconv.Atoi(token); err == nil {
		return strconv.Itoa(n)
	}
	return token
}

// Canonical returns the comparable key of a bone name.
func Canonical(name string) Key {
	tokens := Tokens(name)

	// rig prefixes ("Bip01 L Thigh", "CC_Base_Hip") only when something follows them
	for len(tokens) > 1 && rigPrefixTokens[tokens[0]] {
		tokens = tokens[1:]
		if len(tokens) > 1 && isNumber(tokens[0]) {
			tokens = tokens[1:]
		}
	}

	side := Center
	body := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if side == Center && len(tokens) > 1 {
			if s := sideOf(t); s != Center {
				side = s
				continue
			}
		}
		body = append(body, trimNumber(t))
	}

	return Key{Side: side, Role: canonicalRole(strings.Join(body, ""))}
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
