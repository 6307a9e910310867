// Package playback drives clips over time: a pure step function, a mixer of
// clip actions and the single-clip controller used by hosts.
package playback

import (
	"math"

	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/skeleton"
)

// ActionState is everything Advance needs. Values are copied, never shared.
type ActionState struct {
	Time     float64
	Duration float64
	Loop     config.LoopKind
	Running  bool
	Paused   bool
}

// Advance moves the state dt seconds forward. LoopOnce clamps at the ends and
// stops, LoopRepeat wraps around the duration. Paused or stopped states are returned as is.
func Advance(s ActionState, dt float64) ActionState {
	if !s.Running || s.Paused || dt == 0 {
		return s
	}
	s.Time += dt
	if s.Duration <= 0 {
		s.Time = 0
		if s.Loop == config.LoopOnce {
			s.Running = false
		}
		return s
	}

	switch s.Loop {
	case config.LoopRepeat:
		s.Time = math.Mod(s.Time, s.Duration)
		if s.Time < 0 {
			s.Time += s.Duration
		}
	default:
		if s.Time >= s.Duration {
			s.Time = s.Duration
			s.Running = false
		} else if s.Time < 0 {
			s.Time = 0
			s.Running = false
		}
	}
	return s
}

// Action is a clip scheduled on a mixer.
type Action interface {
	Play()
	Pause()
	Stop()
	Reset()
	SetLoop(kind config.LoopKind)
	IsRunning() bool
	Time() float64
	SetTime(t float64)
	Paused() bool
	SetPaused(paused bool)
	Duration() float64
}

// ClipAction plays one clip onto one skeleton.
type ClipAction struct {
	clip  *clip.Clip
	root  *skeleton.Skeleton
	state ActionState
	// scheduled actions write poses, including finished LoopOnce actions clamped at the end
	scheduled bool
}

func newClipAction(c *clip.Clip, root *skeleton.Skeleton) *ClipAction {
	return &ClipAction{
		clip:  c,
		root:  root,
		state: ActionState{Duration: c.Duration, Loop: config.LoopRepeat},
	}
}

func (a *ClipAction) Clip() *clip.Clip             { return a.clip }
func (a *ClipAction) Root() *skeleton.Skeleton     { return a.root }
func (a *ClipAction) State() ActionState           { return a.state }
func (a *ClipAction) SetLoop(kind config.LoopKind) { a.state.Loop = kind }
func (a *ClipAction) Loop() config.LoopKind        { return a.state.Loop }
func (a *ClipAction) Time() float64                { return a.state.Time }
func (a *ClipAction) Paused() bool                 { return a.state.Paused }
func (a *ClipAction) SetPaused(paused bool)        { a.state.Paused = paused }
func (a *ClipAction) Duration() float64            { return a.state.Duration }
func (a *ClipAction) Scheduled() bool              { return a.scheduled }

func (a *ClipAction) Play() {
	a.scheduled = true
	a.state.Running = true
}

func (a *ClipAction) Pause() { a.state.Paused = true }

// Stop unschedules the action and rewinds it.
func (a *ClipAction) Stop() {
	a.scheduled = false
	a.state.Running = false
	a.state.Paused = false
	a.state.Time = 0
}

// Reset rewinds and unpauses without unscheduling.
func (a *ClipAction) Reset() {
	a.state.Time = 0
	a.state.Paused = false
	a.state.Running = a.scheduled
}

func (a *ClipAction) IsRunning() bool {
	return a.scheduled && a.state.Running && !a.state.Paused
}

// SetTime clamps t into the clip range.
func (a *ClipAction) SetTime(t float64) {
	a.state.Time = math.Max(0, math.Min(t, a.state.Duration))
}

func (a *ClipAction) advance(dt float64) {
	a.state = Advance(a.state, dt)
}
