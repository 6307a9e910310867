package bonemap

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/bonename"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/rig"
)

type candidate struct {
	index int
	name  string
	key   bonename.Key
}

func canonicalize(names []string) []candidate {
	res := make([]candidate, len(names))
	for i, n := range names {
		res[i] = candidate{index: i, name: n, key: bonename.Canonical(n)}
	}
	return res
}

// tiers: base humanoid roles by priority, then other named bones, then fingers.
func mappingOrder(src []candidate, fingers bool) []candidate {
	var base, other, finger []candidate
	for _, c := range src {
		switch {
		case c.key.IsZero():
		case bonename.IsBase(c.key):
			base = append(base, c)
		case bonename.IsFingerRole(c.key.Role):
			if fingers {
				finger = append(finger, c)
			}
		default:
			other = append(other, c)
		}
	}
	sort.SliceStable(base, func(i, j int) bool {
		return bonename.BaseRank(base[i].key) < bonename.BaseRank(base[j].key)
	})
	order := make([]candidate, 0, len(base)+len(other)+len(finger))
	order = append(order, base...)
	order = append(order, other...)
	return append(order, finger...)
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// AutoMap pairs source and target bones with equal canonical keys.
// Each target is claimed at most once and a hand never pairs with a finger.
// Confidence counts exact base humanoid matches over base humanoid bones of the source.
func AutoMap(sourceBones, targetBones []string, opts config.MappingOptions) *BoneMap {
	m := New()
	m.SourceFamily = rig.Classify(sourceBones)
	m.TargetFamily = rig.Classify(targetBones)

	src := canonicalize(sourceBones)
	trg := canonicalize(targetBones)

	srcBase := make(map[bonename.Key]bool)
	for _, c := range src {
		if bonename.IsBase(c.key) {
			srcBase[c.key] = true
		}
	}
	trgHasBase := false
	for _, c := range trg {
		if bonename.IsBase(c.key) {
			trgHasBase = true
			break
		}
	}
	if len(srcBase) == 0 && !trgHasBase {
		log.Printf("[bonemap] no humanoid bones on either side (%d source, %d target)", len(src), len(trg))
		return m
	}

	claimed := make([]bool, len(trg))
	matchedBase := make(map[bonename.Key]bool)
	order := mappingOrder(src, opts.IncludeHandFingers)

	for _, s := range order {
		if _, done := m.index[s.name]; done {
			continue
		}
		best := -1
		for ti, t := range trg {
			if claimed[ti] || t.key != s.key || !bonename.Compatible(s.key, t.key) {
				continue
			}
			if best < 0 || distance(ti, s.index) < distance(best, s.index) {
				best = ti
			}
		}
		if best < 0 {
			continue
		}
		claimed[best] = true
		m.put(s.name, trg[best].name)
		if bonename.IsBase(s.key) {
			matchedBase[s.key] = true
		}
	}

	if opts.FuzzyThreshold > 0 {
		fuzzyPass(m, order, trg, claimed, opts.FuzzyThreshold)
	}

	if len(srcBase) != 0 {
		m.Confidence = float64(len(matchedBase)) / float64(len(srcBase))
	}
	log.Printf("[bonemap] auto mapped %d bones (%s -> %s), confidence %.2f",
		m.Len(), m.SourceFamily, m.TargetFamily, m.Confidence)
	return m
}

func fuzzyPass(m *BoneMap, order []candidate, trg []candidate, claimed []bool, threshold float64) {
	for _, s := range order {
		if _, done := m.index[s.name]; done {
			continue
		}
		best, bestScore := -1, threshold
		for ti, t := range trg {
			if claimed[ti] || !bonename.Compatible(s.key, t.key) {
				continue
			}
			if score := bonename.Similarity(s.name, t.name); score >= bestScore && (best < 0 || score > bestScore) {
				best, bestScore = ti, score
			}
		}
		if best >= 0 {
			claimed[best] = true
			m.put(s.name, trg[best].name)
		}
	}
}

type Suggestion struct {
	Target string  `json:"target"`
	Score  float64 `json:"score"`
}

// Suggest ranks at most n targets for a manual mapping of source.
func Suggest(source string, targets []string, n int) []Suggestion {
	sk := bonename.Canonical(source)
	res := make([]Suggestion, 0, len(targets))
	for _, t := range targets {
		if !bonename.Compatible(sk, bonename.Canonical(t)) {
			continue
		}
		if score := bonename.Similarity(source, t); score > 0 {
			res = append(res, Suggestion{Target: t, Score: score})
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Score > res[j].Score })
	if n > 0 && len(res) > n {
		res = res[:n]
	}
	return res
}
