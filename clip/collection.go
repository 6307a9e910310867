package clip

import (
	"strings"

	"github.com/mogaika/retargeter/diag"
)

const (
	UnnamedClip   = "Unnamed"
	DuplicateMark = " (copy)"
)

// Collection is the ordered list of clips known to a session.
type Collection struct {
	clips []*Clip
}

func NewCollection(clips ...*Clip) *Collection {
	c := &Collection{}
	c.Load(clips)
	return c
}

// Load replaces the whole content.
func (c *Collection) Load(clips []*Clip) {
	c.clips = append(make([]*Clip, 0, len(clips)), clips...)
}

func (c *Collection) Len() int { return len(c.clips) }

func (c *Collection) At(i int) (*Clip, error) {
	if err := c.check(i); err != nil {
		return nil, err
	}
	return c.clips[i], nil
}

func (c *Collection) All() []*Clip {
	return append([]*Clip(nil), c.clips...)
}

func (c *Collection) check(i int) error {
	if i < 0 || i >= len(c.clips) {
		return diag.Errorf(diag.InvalidInput, "clip index %d out of range [0,%d)", i, len(c.clips))
	}
	return nil
}

// Add appends clip and returns its index.
func (c *Collection) Add(clip *Clip) int {
	c.clips = append(c.clips, clip)
	return len(c.clips) - 1
}

func (c *Collection) Remove(i int) error {
	if err := c.check(i); err != nil {
		return err
	}
	c.clips = append(c.clips[:i], c.clips[i+1:]...)
	return nil
}

// Rename replaces clip i with a renamed copy. Blank names are rejected.
func (c *Collection) Rename(i int, name string) (*Clip, error) {
	if err := c.check(i); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, diag.Errorf(diag.InvalidInput, "clip name is empty")
	}
	c.clips[i] = c.clips[i].WithName(name)
	return c.clips[i], nil
}

// Duplicate appends a deep copy of clip i with a marked name and returns its index.
func (c *Collection) Duplicate(i int) (int, error) {
	if err := c.check(i); err != nil {
		return -1, err
	}
	dup := c.clips[i].Clone()
	dup.Name = displayName(dup.Name) + DuplicateMark
	return c.Add(dup), nil
}

// Find returns the first clip with exactly this name.
func (c *Collection) Find(name string) (int, *Clip) {
	for i, clip := range c.clips {
		if clip.Name == name {
			return i, clip
		}
	}
	return -1, nil
}

func displayName(name string) string {
	if name == "" {
		return UnnamedClip
	}
	return name
}

func (c *Collection) Names() []string {
	names := make([]string, len(c.clips))
	for i, clip := range c.clips {
		names[i] = displayName(clip.Name)
	}
	return names
}
