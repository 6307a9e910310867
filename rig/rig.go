// Package rig inspects skeleton hierarchies: roots, duplicates, statistics and naming family.
package rig

import (
	"sort"

	"github.com/mogaika/retargeter/bonename"
	"github.com/mogaika/retargeter/skeleton"
)

// Duplicates returns names that occur more than once with their counts.
func Duplicates(names []string) map[string]int {
	counts := make(map[string]int, len(names))
	for _, n := range names {
		counts[n]++
	}
	dups := make(map[string]int)
	for n, c := range counts {
		if c > 1 {
			dups[n] = c
		}
	}
	return dups
}

func Roots(s *skeleton.Skeleton) []int {
	roots := make([]int, 0, 1)
	for i := range s.Bones {
		if s.Bones[i].Parent == skeleton.NoParent {
			roots = append(roots, i)
		}
	}
	return roots
}

var functionalRootPriority = []string{"hips", "hip", "pelvis", "root", "armature"}

// FunctionalRoot finds the bone standing for the pelvis: first a name from the priority
// list, then any bone whose canonical role is hips, then the first structural root.
// Returns -1 only for an empty skeleton.
func FunctionalRoot(s *skeleton.Skeleton) int {
	return FunctionalRootOf(s.Names(), s.Parents())
}

func FunctionalRootOf(names []string, parents []int) int {
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = bonename.Normalize(n)
	}
	for _, p := range functionalRootPriority {
		for i, n := range normalized {
			if n == p {
				return i
			}
		}
		if p == "pelvis" {
			for i, n := range names {
				if bonename.Canonical(n).Role == bonename.RoleHips {
					return i
				}
			}
		}
	}
	for i, p := range parents {
		if p < 0 {
			return i
		}
	}
	return -1
}

type Stats struct {
	BoneCount      int            `json:"boneCount"`
	MaxDepth       int            `json:"maxDepth"`
	RootCount      int            `json:"rootCount"`
	Root           string         `json:"root"`
	FunctionalRoot string         `json:"functionalRoot"`
	LimbCount      int            `json:"limbCount"`
	Symmetric      bool           `json:"symmetric"`
	Duplicates     map[string]int `json:"duplicates,omitempty"`
	Family         Family         `json:"family"`
}

func Analyze(s *skeleton.Skeleton) Stats {
	names := s.Names()
	st := Stats{
		BoneCount:  len(names),
		Duplicates: Duplicates(names),
		Family:     Classify(names),
		Symmetric:  Symmetric(names),
	}
	roots := Roots(s)
	st.RootCount = len(roots)
	if len(roots) != 0 {
		st.Root = names[roots[0]]
	}
	if fr := FunctionalRoot(s); fr >= 0 {
		st.FunctionalRoot = names[fr]
	}

	depth := make([]int, len(s.Bones))
	for i := range s.Bones {
		if p := s.Bones[i].Parent; p != skeleton.NoParent {
			depth[i] = depth[p] + 1
		}
		if depth[i] > st.MaxDepth {
			st.MaxDepth = depth[i]
		}
		if bonename.IsLimbName(names[i]) {
			st.LimbCount++
		}
	}
	return st
}

// Symmetric reports whether any left bone has a right counterpart with the same role.
func Symmetric(names []string) bool {
	lefts := make(map[string]bool)
	rights := make(map[string]bool)
	for _, n := range names {
		k := bonename.Canonical(n)
		switch k.Side {
		case bonename.Left:
			lefts[k.Role] = true
		case bonename.Right:
			rights[k.Role] = true
		}
	}
	for role := range lefts {
		if rights[role] {
			return true
		}
	}
	return false
}

type Compatibility struct {
	MatchPercentage float64  `json:"matchPercentage"`
	Compatible      bool     `json:"compatible"`
	Matched         []string `json:"matched"`
	Missing         []string `json:"missing"`
}

// CompatibleThreshold is the minimal match percentage for a compatible pair of rigs.
const CompatibleThreshold = 50.0

// CheckCompatibility measures which base humanoid bones of src are present in trg.
// Matched and Missing hold canonical keys of src.
func CheckCompatibility(src, trg []string) Compatibility {
	have := make(map[bonename.Key]bool, len(trg))
	for _, n := range trg {
		have[bonename.Canonical(n)] = true
	}

	seen := make(map[bonename.Key]bool)
	c := Compatibility{Matched: []string{}, Missing: []string{}}
	for _, n := range src {
		k := bonename.Canonical(n)
		if !bonename.IsBase(k) || seen[k] {
			continue
		}
		seen[k] = true
		if have[k] {
			c.Matched = append(c.Matched, k.String())
		} else {
			c.Missing = append(c.Missing, k.String())
		}
	}
	sort.Strings(c.Matched)
	sort.Strings(c.Missing)

	if len(seen) != 0 {
		c.MatchPercentage = float64(len(c.Matched)) * 100 / float64(len(seen))
	}
	c.Compatible = len(seen) != 0 && c.MatchPercentage >= CompatibleThreshold
	return c
}
