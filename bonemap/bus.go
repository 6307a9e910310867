package bonemap

import (
	"sync"
)

type Op string

const (
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpClear   Op = "clear"
	OpSet     Op = "set"
	OpReplace Op = "replace"
)

// Event is delivered to subscribers after a command changed the map.
type Event struct {
	Op      Op       `json:"op"`
	Source  string   `json:"source,omitempty"`
	Target  string   `json:"target,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Len     int      `json:"len"`
}

type Command interface {
	apply(m *BoneMap) (Event, error)
}

type Add struct{ Source, Target string }

func (c Add) apply(m *BoneMap) (Event, error) {
	if err := m.Add(c.Source, c.Target); err != nil {
		return Event{}, err
	}
	return Event{Op: OpAdd, Source: c.Source, Target: c.Target}, nil
}

type Remove struct{ Source string }

func (c Remove) apply(m *BoneMap) (Event, error) {
	m.Remove(c.Source)
	return Event{Op: OpRemove, Source: c.Source}, nil
}

type Clear struct{}

func (Clear) apply(m *BoneMap) (Event, error) {
	m.Clear()
	return Event{Op: OpClear}, nil
}

// Set bulk loads entries, skipping bones absent from SourceBones/TargetBones.
type Set struct {
	Entries     []Entry
	Confidence  float64
	SourceBones []string
	TargetBones []string
}

func (c Set) apply(m *BoneMap) (Event, error) {
	missing := m.Set(c.Entries, c.SourceBones, c.TargetBones)
	m.Confidence = c.Confidence
	return Event{Op: OpSet, Missing: missing}, nil
}

// Replace swaps the whole map, typically with an auto mapping result.
type Replace struct{ Map *BoneMap }

func (c Replace) apply(m *BoneMap) (Event, error) {
	s := c.Map.Snapshot()
	*m = *s
	return Event{Op: OpReplace}, nil
}

// Bus is the only writer of its BoneMap. Readers get snapshots.
type Bus struct {
	lock sync.Mutex
	m    *BoneMap
	subs map[int]func(Event)
	next int
}

func NewBus(m *BoneMap) *Bus {
	if m == nil {
		m = New()
	}
	return &Bus{m: m, subs: make(map[int]func(Event))}
}

func (b *Bus) Dispatch(cmd Command) (Event, error) {
	b.lock.Lock()
	ev, err := cmd.apply(b.m)
	if err != nil {
		b.lock.Unlock()
		return ev, err
	}
	ev.Len = b.m.Len()
	subs := make([]func(Event), 0, len(b.subs))
	for i := 0; i < b.next; i++ {
		if fn, ok := b.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	b.lock.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
	return ev, nil
}

// Subscribe returns a function removing the subscription.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.lock.Lock()
	defer b.lock.Unlock()
	id := b.next
	b.next++
	b.subs[id] = fn
	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		delete(b.subs, id)
	}
}

func (b *Bus) Snapshot() *BoneMap {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.m.Snapshot()
}

func (b *Bus) Entries() []Entry {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.m.Entries()
}
