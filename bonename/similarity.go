package bonename

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

var jaroWinkler = func() *metrics.JaroWinkler {
	m := metrics.NewJaroWinkler()
	m.CaseSensitive = false
	return m
}()

// Similarity scores two bone names in [0,1]. Names resolving to different sides never match.
func Similarity(a, b string) float64 {
	ka, kb := Canonical(a), Canonical(b)
	if ka.Side != kb.Side {
		return 0
	}
	if ka.Role == kb.Role {
		return 1
	}
	return strutil.Similarity(ka.Role, kb.Role, jaroWinkler)
}

// Compatible reports whether a and b may be paired at all: a hand never pairs with a finger.
func Compatible(a, b Key) bool {
	if IsHandRole(a.Role) && IsFingerRole(b.Role) {
		return false
	}
	if IsFingerRole(a.Role) && IsHandRole(b.Role) {
		return false
	}
	return true
}
