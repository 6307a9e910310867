// Package bonemap builds and maintains source to target bone correspondences.
package bonemap

import (
	"strings"

	"github.com/jinzhu/copier"

	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/rig"
)

type Entry struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// BoneMap is an ordered source name to target name table.
// Keys are unique; Add on an existing key overwrites its target in place.
type BoneMap struct {
	Confidence   float64
	SourceFamily rig.Family
	TargetFamily rig.Family

	entries []Entry
	index   map[string]int
}

func New() *BoneMap {
	return &BoneMap{index: make(map[string]int)}
}

// FromEntries keeps the last target of repeated sources.
func FromEntries(entries []Entry) *BoneMap {
	m := New()
	for _, e := range entries {
		m.put(e.Source, e.Target)
	}
	return m
}

func (m *BoneMap) put(source, target string) {
	if i, ok := m.index[source]; ok {
		m.entries[i].Target = target
		return
	}
	m.index[source] = len(m.entries)
	m.entries = append(m.entries, Entry{Source: source, Target: target})
}

func (m *BoneMap) Len() int { return len(m.entries) }

func (m *BoneMap) Get(source string) (string, bool) {
	if i, ok := m.index[source]; ok {
		return m.entries[i].Target, true
	}
	return "", false
}

func (m *BoneMap) Add(source, target string) error {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(target) == "" {
		return diag.Errorf(diag.InvalidInput, "mapping needs both source and target bone (%q -> %q)", source, target)
	}
	m.put(source, target)
	return nil
}

func (m *BoneMap) Remove(source string) bool {
	i, ok := m.index[source]
	if !ok {
		return false
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	m.reindex()
	return true
}

func (m *BoneMap) Clear() {
	m.entries = m.entries[:0]
	m.index = make(map[string]int)
	m.Confidence = 0
}

// Set replaces content with entries whose bones exist in the given name lists.
// Skipped bone names are returned in order of appearance. A nil list disables the check for that side.
func (m *BoneMap) Set(entries []Entry, sourceBones, targetBones []string) (missing []string) {
	srcSet := nameSet(sourceBones)
	trgSet := nameSet(targetBones)
	reported := make(map[string]bool)
	report := func(name string) {
		if !reported[name] {
			reported[name] = true
			missing = append(missing, name)
		}
	}

	m.Clear()
	for _, e := range entries {
		ok := true
		if srcSet != nil && !srcSet[e.Source] {
			report(e.Source)
			ok = false
		}
		if trgSet != nil && !trgSet[e.Target] {
			report(e.Target)
			ok = false
		}
		if ok && e.Source != "" && e.Target != "" {
			m.put(e.Source, e.Target)
		}
	}
	return missing
}

func nameSet(names []string) map[string]bool {
	if names == nil {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func (m *BoneMap) reindex() {
	m.index = make(map[string]int, len(m.entries))
	for i, e := range m.entries {
		m.index[e.Source] = i
	}
}

// Entries returns a copy; mutating it does not touch the map.
func (m *BoneMap) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Map returns a copy as plain map.
func (m *BoneMap) Map() map[string]string {
	out := make(map[string]string, len(m.entries))
	for _, e := range m.entries {
		out[e.Source] = e.Target
	}
	return out
}

// Snapshot returns a deep copy detached from further mutations.
func (m *BoneMap) Snapshot() *BoneMap {
	s := New()
	s.Confidence = m.Confidence
	s.SourceFamily = m.SourceFamily
	s.TargetFamily = m.TargetFamily
	if len(m.entries) != 0 {
		if err := copier.CopyWithOption(&s.entries, &m.entries, copier.Option{DeepCopy: true}); err != nil {
			panic(err)
		}
	}
	s.reindex()
	return s
}
