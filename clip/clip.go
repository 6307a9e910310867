// Package clip holds animation clips, their tracks and the clip collection.
package clip

import (
	"math"

	"github.com/jinzhu/copier"

	"github.com/mogaika/retargeter/diag"
)

// TrimThreshold is the leading silence kept untouched by Trim, in seconds.
const TrimThreshold = 0.01

// DurationEpsilon is the tolerance of the max key time over the clip duration.
const DurationEpsilon = 1e-6

// Clip is immutable once built; operations return new clips.
type Clip struct {
	Name     string
	Duration float64
	Tracks   []*Track
}

// New builds a clip; a negative duration is derived from the last key time.
func New(name string, duration float64, tracks []*Track) *Clip {
	c := &Clip{Name: name, Duration: duration, Tracks: tracks}
	if c.Tracks == nil {
		c.Tracks = []*Track{}
	}
	if duration < 0 {
		c.Duration = c.MaxTime()
	}
	return c
}

func (c *Clip) MaxTime() float64 {
	max := 0.0
	for _, t := range c.Tracks {
		if m := t.MaxTime(); m > max {
			max = m
		}
	}
	return max
}

// MinTime is the earliest first key among tracks, 0 for a clip without keys.
func (c *Clip) MinTime() float64 {
	min := math.Inf(1)
	for _, t := range c.Tracks {
		if m := t.MinTime(); m < min {
			min = m
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// Validate accepts clips with at least one track and aligned times and values.
func (c *Clip) Validate() error {
	if c == nil {
		return diag.Errorf(diag.InvalidInput, "no clip")
	}
	if len(c.Tracks) == 0 {
		return diag.Errorf(diag.InvalidInput, "clip %q has no tracks", c.Name)
	}
	for _, t := range c.Tracks {
		if !t.Aligned() {
			return diag.Errorf(diag.InvalidInput, "clip %q track %q has %d times for %d values of %s",
				c.Name, t.Name, len(t.Times), t.valueCount(), t.Kind)
		}
	}
	return nil
}

// Trim removes leading silence longer than TrimThreshold. Otherwise c itself is returned.
func (c *Clip) Trim() *Clip {
	min := c.MinTime()
	if min <= TrimThreshold {
		return c
	}

	tracks := make([]*Track, len(c.Tracks))
	for i, t := range c.Tracks {
		nt := t.Clone()
		for k := range nt.Times {
			nt.Times[k] -= min
		}
		tracks[i] = nt
	}
	duration := c.Duration - min
	if duration < 0 {
		duration = 0
	}
	return &Clip{Name: c.Name, Duration: duration, Tracks: tracks}
}

// Clone deep copies the clip.
func (c *Clip) Clone() *Clip {
	var out Clip
	if err := copier.CopyWithOption(&out, c, copier.Option{DeepCopy: true}); err != nil {
		panic(err)
	}
	if out.Tracks == nil {
		out.Tracks = []*Track{}
	}
	return &out
}

func (c *Clip) WithName(name string) *Clip {
	out := *c
	out.Name = name
	out.Tracks = append([]*Track(nil), c.Tracks...)
	return &out
}

func (c *Clip) Track(name string) *Track {
	for _, t := range c.Tracks {
		if t.Name == name {
			return t
		}
	}
	return nil
}
