package playback

import (
	"math"

	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/skeleton"
	"github.com/mogaika/retargeter/utils"
)

// Mixer owns clip actions and advances them with the host frame loop.
type Mixer struct {
	actions []*ClipAction
	time    float64
}

func NewMixer() *Mixer {
	return &Mixer{}
}

// ClipAction returns the action of c on root, creating it on first use.
func (m *Mixer) ClipAction(c *clip.Clip, root *skeleton.Skeleton) *ClipAction {
	for _, a := range m.actions {
		if a.clip == c && a.root == root {
			return a
		}
	}
	a := newClipAction(c, root)
	m.actions = append(m.actions, a)
	return a
}

// Uncache forgets the actions of c.
func (m *Mixer) Uncache(c *clip.Clip) {
	kept := m.actions[:0]
	for _, a := range m.actions {
		if a.clip != c {
			kept = append(kept, a)
		}
	}
	m.actions = kept
}

func (m *Mixer) Actions() []*ClipAction {
	return append([]*ClipAction(nil), m.actions...)
}

func (m *Mixer) Time() float64 { return m.time }

func (m *Mixer) StopAll() {
	for _, a := range m.actions {
		a.Stop()
	}
}

// Update advances every action by dt and poses their roots.
func (m *Mixer) Update(dt float64) {
	m.time += dt
	posed := make(map[*skeleton.Skeleton]bool)
	for _, a := range m.actions {
		a.advance(dt)
		if a.scheduled && a.root != nil {
			ApplyClip(a.root, a.clip, a.state.Time)
			posed[a.root] = true
		}
	}
	for s := range posed {
		s.UpdateWorld()
	}
}

// Pose writes every scheduled action into s, whatever root the actions were created for.
// It returns the count of tracks applied.
func (m *Mixer) Pose(s *skeleton.Skeleton) int {
	n := 0
	for _, a := range m.actions {
		if a.scheduled {
			n += ApplyClip(s, a.clip, a.state.Time)
		}
	}
	s.UpdateWorld()
	return n
}

// ApplyClip samples transform tracks of c at time into the locals of s. World
// matrices are left stale. Tracks of other nodes or properties are skipped.
func ApplyClip(s *skeleton.Skeleton, c *clip.Clip, time float64) int {
	n := 0
	for _, t := range c.Tracks {
		if len(t.Times) == 0 || !t.Aligned() {
			continue
		}
		p, err := t.Path()
		if err != nil || !p.IsTransform() {
			continue
		}
		i := s.Index(p.Node)
		if i < 0 {
			continue
		}
		switch {
		case p.Property == clip.PropRotation && t.Kind == clip.KindQuaternion:
			s.SetLocalRotation(i, t.SampleQuat(time))
		case p.Property == clip.PropPosition && t.Kind == clip.KindVector:
			s.Bones[i].Local.Position = t.SampleVec3(time)
		case p.Property == clip.PropScale && t.Kind == clip.KindVector:
			s.Bones[i].Local.Scale = t.SampleVec3(time)
		default:
			continue
		}
		n++
	}
	return n
}

// FrameTimes lists sample times from 0 to duration inclusive at fps frames per second.
func FrameTimes(duration, fps float64) []float64 {
	if fps <= 0 || duration < 0 {
		return nil
	}
	count := int(math.Floor(duration*fps+utils.Epsilon)) + 1
	times := make([]float64, 0, count+1)
	for i := 0; i < count; i++ {
		times = append(times, float64(i)/fps)
	}
	if last := times[len(times)-1]; duration-last > utils.Epsilon {
		times = append(times, duration)
	}
	return times
}
